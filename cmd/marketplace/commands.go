package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jrsteele09/go-marketplace-client/chat"
	"github.com/jrsteele09/go-marketplace-client/internal/utils"
	"github.com/jrsteele09/go-marketplace-client/listings"
	"github.com/jrsteele09/go-marketplace-client/session"
	"github.com/jrsteele09/go-marketplace-client/token"
	"github.com/jrsteele09/go-marketplace-client/users"
)

type command struct {
	summary string
	run     func(ctx context.Context, s *session.Session, args []string) error
}

var commands = map[string]command{
	"help":          {summary: "show this help"},
	"register":      {summary: "create an account and sign in", run: registerCmd},
	"login":         {summary: "sign in and store credentials", run: loginCmd},
	"logout":        {summary: "sign out and forget stored credentials", run: logoutCmd},
	"whoami":        {summary: "show the signed-in user", run: whoamiCmd},
	"listings":      {summary: "browse listings", run: listingsCmd},
	"sell":          {summary: "create a listing", run: sellCmd},
	"favorites":     {summary: "show favorited listings", run: favoritesCmd},
	"notifications": {summary: "show notifications", run: notificationsCmd},
	"rooms":         {summary: "show chat rooms", run: roomsCmd},
	"chat":          {summary: "open a chat room; lines on stdin are sent", run: chatCmd},
}

func usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(os.Stderr, "usage: marketplace <command> [flags]")
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-14s %s\n", name, commands[name].summary)
	}
}

func registerCmd(ctx context.Context, s *session.Session, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	var reg users.Registration
	fs.StringVar(&reg.Username, "u", "", "username")
	fs.StringVar(&reg.Email, "e", "", "email")
	fs.StringVar(&reg.Password, "p", os.Getenv("MARKETPLACE_PASSWORD"), "password")
	fs.StringVar(&reg.Location, "location", "", "location")
	if err := fs.Parse(args); err != nil {
		return err
	}
	reg.Password2 = reg.Password
	u, err := s.Auth.Register(ctx, reg)
	if err != nil {
		return err
	}
	fmt.Printf("Welcome, %s\n", u.Username)
	return nil
}

func loginCmd(ctx context.Context, s *session.Session, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("u", "", "username")
	password := fs.String("p", os.Getenv("MARKETPLACE_PASSWORD"), "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	u, err := s.Auth.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Signed in as %s\n", u.Username)
	return nil
}

func logoutCmd(ctx context.Context, s *session.Session, _ []string) error {
	if err := s.Auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("Signed out")
	return nil
}

func whoamiCmd(ctx context.Context, s *session.Session, _ []string) error {
	u, err := s.Auth.Profile(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.Location)

	if claims, err := token.Inspect(s.Credentials.AccessToken(ctx)); err == nil && !claims.Expiry.IsZero() {
		fmt.Printf("token\tsub=%s\texpires=%s\n", claims.Subject, claims.Expiry.Local().Format(time.RFC3339))
	}
	return nil
}

func listingsCmd(ctx context.Context, s *session.Session, args []string) error {
	fs := flag.NewFlagSet("listings", flag.ContinueOnError)
	var filter listings.Filter
	fs.StringVar(&filter.Search, "search", "", "search text")
	fs.Int64Var(&filter.CategoryID, "category", 0, "category id")
	fs.StringVar(&filter.Location, "location", "", "location")
	fs.StringVar(&filter.Ordering, "order", "", "ordering, e.g. price or -created_at")
	fs.IntVar(&filter.Page, "page", 1, "page number")
	mine := fs.Bool("mine", false, "only my listings")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *mine {
		ls, err := s.Listings.Mine(ctx)
		if err != nil {
			return err
		}
		printListings(os.Stdout, ls)
		return nil
	}
	page, err := s.Listings.List(ctx, filter)
	if err != nil {
		return err
	}
	printListings(os.Stdout, page.Results)
	fmt.Printf("%d listings", page.Count)
	if page.HasNext() {
		fmt.Printf(", more with -page %d", filter.Page+1)
	}
	fmt.Println()
	return nil
}

func sellCmd(ctx context.Context, s *session.Session, args []string) error {
	fs := flag.NewFlagSet("sell", flag.ContinueOnError)
	var d listings.Draft
	fs.StringVar(&d.Title, "title", "", "title")
	fs.StringVar(&d.Description, "description", "", "description")
	fs.StringVar(&d.Price, "price", "", "price, e.g. 120.00")
	fs.Int64Var(&d.CategoryID, "category", 0, "category id")
	fs.StringVar(&d.Location, "location", "", "location")
	fs.StringVar(&d.Condition, "condition", listings.ConditionGood, "condition")
	images := fs.String("images", "", "comma separated image files or URLs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *images != "" {
		d.Images = s.Media.ResolveAll(ctx, strings.Split(*images, ","))
	}
	l, err := s.Listings.Create(ctx, d)
	if err != nil {
		return err
	}
	fmt.Printf("Created listing %d (%s)\n", l.ID, l.Status)
	return nil
}

func favoritesCmd(ctx context.Context, s *session.Session, _ []string) error {
	ls, err := s.Listings.Favorites(ctx)
	if err != nil {
		return err
	}
	printListings(os.Stdout, ls)
	return nil
}

func notificationsCmd(ctx context.Context, s *session.Session, args []string) error {
	fs := flag.NewFlagSet("notifications", flag.ContinueOnError)
	readAll := fs.Bool("read-all", false, "mark every notification read")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *readAll {
		return s.Notifications.MarkAllRead(ctx)
	}
	page, err := s.Notifications.List(ctx, 1)
	if err != nil {
		return err
	}
	for _, n := range page.Results {
		marker := "*"
		if n.IsRead {
			marker = " "
		}
		fmt.Printf("%s %d\t%s\t%s\n", marker, n.ID, n.Kind, n.Title)
	}
	return nil
}

func roomsCmd(ctx context.Context, s *session.Session, _ []string) error {
	me, err := s.Auth.CurrentUser(ctx)
	if err != nil {
		return err
	}
	rooms, err := s.Rooms.Rooms(ctx)
	if err != nil {
		return err
	}
	for _, r := range rooms {
		last := utils.Value(r.LastMessage).Content
		fmt.Printf("%d\t%s\t%s\t(%d unread)\t%s\n", r.ID, r.Listing.Title, r.Counterpart(me.ID).Username, r.UnreadCount, last)
	}
	return nil
}

func chatCmd(ctx context.Context, s *session.Session, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	roomID := fs.Int64("room", 0, "room id")
	listingID := fs.Int64("listing", 0, "open (or create) the room for a listing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *roomID == 0 && *listingID != 0 {
		room, err := s.Rooms.CreateOrGet(ctx, *listingID)
		if err != nil {
			return err
		}
		*roomID = room.ID
	}
	if *roomID == 0 {
		return errors.New("chat needs -room or -listing")
	}

	room, err := s.Chat.Open(ctx, *roomID)
	if err != nil {
		return err
	}
	defer room.Close()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-room.Stream():
			if !ok {
				return nil
			}
			printMessage(os.Stdout, m)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			receipt, err := room.Send(ctx, line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
				continue
			}
			if receipt.Via == chat.ViaREST {
				fmt.Fprintln(os.Stderr, "(sent without live connection)")
			}
		}
	}
}

func printListings(w io.Writer, ls []listings.Listing) {
	for _, l := range ls {
		fav := " "
		if l.IsFavorited {
			fav = "♥"
		}
		fmt.Fprintf(w, "%s %d\t%s\t%s\t%s\t%s\t%s\n", fav, l.ID, l.Title, l.Price, utils.ValueOr(l.Category, listings.Category{Name: "-"}).Name, l.Location, l.Seller.Username)
	}
}

func printMessage(w io.Writer, m chat.Message) {
	fmt.Fprintf(w, "[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04"), m.Sender.Username, m.Content)
}
