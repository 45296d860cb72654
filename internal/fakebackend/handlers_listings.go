package fakebackend

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

const pageSize = 20

// CreateCategory seeds a category and returns its id.
func (b *Backend) CreateCategory(name string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := &category{ID: b.id(), Name: name, Slug: strings.ToLower(strings.ReplaceAll(name, " ", "-"))}
	b.categories = append(b.categories, c)
	return c.ID
}

// CreateListing seeds an approved listing and returns its id.
func (b *Backend) CreateListing(sellerID, categoryID int64, title string, price float64) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now().UTC()
	l := &listing{
		ID:          b.id(),
		Title:       title,
		Description: title,
		Price:       price,
		CategoryID:  categoryID,
		Location:    "Nairobi",
		SellerID:    sellerID,
		Status:      "approved",
		Condition:   "good",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	b.listings[l.ID] = l
	return l.ID
}

func (b *Backend) category(id int64) *category {
	for _, c := range b.categories {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (b *Backend) isFavorite(userID, listingID int64) bool {
	for _, f := range b.favorites {
		if f.UserID == userID && f.ListingID == listingID {
			return true
		}
	}
	return false
}

func (b *Backend) view(l *listing, viewerID int64) *listingView {
	images := l.Images
	if images == nil {
		images = []listingImage{}
	}
	return &listingView{
		ID:          l.ID,
		Title:       l.Title,
		Description: l.Description,
		Price:       strconv.FormatFloat(l.Price, 'f', 2, 64),
		Category:    b.category(l.CategoryID),
		Location:    l.Location,
		Seller:      b.users[l.SellerID],
		Status:      l.Status,
		Condition:   l.Condition,
		IsFeatured:  l.IsFeatured,
		Images:      images,
		IsFavorited: viewerID != 0 && b.isFavorite(viewerID, l.ID),
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

func (b *Backend) visible(l *listing, viewerID int64) bool {
	return l.Status == "approved" || (viewerID != 0 && l.SellerID == viewerID)
}

func (b *Backend) handleListListings(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := userIDFrom(r)
	q := r.URL.Query()

	b.mu.Lock()
	defer b.mu.Unlock()

	var matched []*listing
	for _, l := range b.listings {
		if !b.visible(l, viewerID) || !matches(l, q) {
			continue
		}
		matched = append(matched, l)
	}
	sortListings(matched, q.Get("ordering"))

	pageNum, _ := strconv.Atoi(q.Get("page"))
	if pageNum < 1 {
		pageNum = 1
	}
	start := (pageNum - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	out := page[*listingView]{Count: len(matched), Results: []*listingView{}}
	for _, l := range matched[start:end] {
		out.Results = append(out.Results, b.view(l, viewerID))
	}
	if end < len(matched) {
		next := b.URL() + "/listings/?page=" + strconv.Itoa(pageNum+1)
		out.Next = &next
	}
	if pageNum > 1 {
		prev := b.URL() + "/listings/?page=" + strconv.Itoa(pageNum-1)
		out.Previous = &prev
	}
	writeJSON(w, http.StatusOK, out)
}

func matches(l *listing, q map[string][]string) bool {
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	if s := strings.ToLower(get("search")); s != "" {
		hay := strings.ToLower(l.Title + " " + l.Description + " " + l.Location)
		if !strings.Contains(hay, s) {
			return false
		}
	}
	if c := get("category"); c != "" && c != strconv.FormatInt(l.CategoryID, 10) {
		return false
	}
	if loc := get("location"); loc != "" && !strings.EqualFold(loc, l.Location) {
		return false
	}
	if c := get("condition"); c != "" && c != l.Condition {
		return false
	}
	if f := get("is_featured"); f != "" && (f == "true") != l.IsFeatured {
		return false
	}
	if v, err := strconv.ParseFloat(get("price__gte"), 64); err == nil && l.Price < v {
		return false
	}
	if v, err := strconv.ParseFloat(get("price__lte"), 64); err == nil && l.Price > v {
		return false
	}
	return true
}

func sortListings(ls []*listing, ordering string) {
	sort.SliceStable(ls, func(i, j int) bool {
		switch ordering {
		case "price":
			return ls[i].Price < ls[j].Price
		case "-price":
			return ls[i].Price > ls[j].Price
		case "created_at":
			return ls[i].ID < ls[j].ID
		default:
			return ls[i].ID > ls[j].ID
		}
	})
}

func (b *Backend) handleListCategories(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*category, len(b.categories))
	copy(out, b.categories)
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.category(id)
	if c == nil {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (b *Backend) lookupListing(r *http.Request) (*listing, int64) {
	viewerID, _ := userIDFrom(r)
	id, ok := pathID(r)
	if !ok {
		return nil, viewerID
	}
	l := b.listings[id]
	if l == nil || !b.visible(l, viewerID) {
		return nil, viewerID
	}
	return l, viewerID
}

func (b *Backend) handleGetListing(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, viewerID := b.lookupListing(r)
	if l == nil {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, b.view(l, viewerID))
}

func (b *Backend) handleSimilarListings(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, viewerID := b.lookupListing(r)
	if l == nil {
		notFound(w)
		return
	}
	var similar []*listing
	for _, other := range b.listings {
		if other.ID != l.ID && other.CategoryID == l.CategoryID && other.Status == "approved" {
			similar = append(similar, other)
		}
	}
	sortListings(similar, "")
	if len(similar) > 6 {
		similar = similar[:6]
	}
	out := []*listingView{}
	for _, s := range similar {
		out = append(out, b.view(s, viewerID))
	}
	writeJSON(w, http.StatusOK, out)
}

type listingWrite struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Price       any      `json:"price"`
	CategoryID  *int64   `json:"category_id"`
	Location    *string  `json:"location"`
	Condition   *string  `json:"condition"`
	Images      []string `json:"images"`
	ImagesData  []string `json:"images_data"`
}

func parsePrice(v any) (float64, bool) {
	switch p := v.(type) {
	case float64:
		return p, true
	case string:
		f, err := strconv.ParseFloat(p, 64)
		return f, err == nil
	}
	return 0, false
}

func images(refs []string) []listingImage {
	out := []listingImage{}
	for i, ref := range refs {
		if ref == "" {
			continue
		}
		out = append(out, listingImage{ID: int64(i + 1), Image: ref, IsPrimary: len(out) == 0})
	}
	return out
}

func (b *Backend) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	sellerID, _ := userIDFrom(r)
	var req listingWrite
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if req.CategoryID == nil || *req.CategoryID == 0 {
		fieldError(w, "category_id", "Category is required")
		return
	}
	if b.category(*req.CategoryID) == nil {
		fieldError(w, "category_id", "Invalid category ID: "+strconv.FormatInt(*req.CategoryID, 10))
		return
	}
	price, ok := parsePrice(req.Price)
	if req.Price == nil {
		fieldError(w, "price", "Price is required")
		return
	}
	if !ok {
		fieldError(w, "price", "Invalid price format. Must be a number.")
		return
	}
	if price <= 0 {
		fieldError(w, "price", "Price must be greater than 0")
		return
	}

	now := time.Now().UTC()
	l := &listing{
		ID:         b.id(),
		Price:      price,
		CategoryID: *req.CategoryID,
		SellerID:   sellerID,
		Status:     "approved",
		Condition:  "good",
		Images:     images(req.Images),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.Title != nil {
		l.Title = *req.Title
	}
	if req.Description != nil {
		l.Description = *req.Description
	}
	if req.Location != nil {
		l.Location = *req.Location
	}
	if req.Condition != nil && *req.Condition != "" {
		l.Condition = *req.Condition
	}
	b.listings[l.ID] = l
	writeJSON(w, http.StatusCreated, b.view(l, sellerID))
}

func (b *Backend) handleUpdateListing(w http.ResponseWriter, r *http.Request) {
	var req listingWrite
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	l, viewerID := b.lookupListing(r)
	if l == nil {
		notFound(w)
		return
	}
	if l.SellerID != viewerID {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "You can only update your own listings."})
		return
	}

	validation := func(field, msg string) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"errors":  map[string][]string{field: {msg}},
			"message": "Validation failed. Please check the errors below.",
		})
	}
	if req.Price != nil {
		price, ok := parsePrice(req.Price)
		if !ok {
			validation("price", "A valid number is required.")
			return
		}
		if price <= 0 {
			validation("price", "Price must be greater than 0")
			return
		}
		l.Price = price
	}
	if req.CategoryID != nil {
		if b.category(*req.CategoryID) == nil {
			validation("category_id", "Invalid category ID: "+strconv.FormatInt(*req.CategoryID, 10))
			return
		}
		l.CategoryID = *req.CategoryID
	}
	if req.Title != nil {
		l.Title = *req.Title
	}
	if req.Description != nil {
		l.Description = *req.Description
	}
	if req.Location != nil {
		l.Location = *req.Location
	}
	if req.Condition != nil {
		l.Condition = *req.Condition
	}
	switch {
	case req.ImagesData != nil:
		l.Images = images(req.ImagesData)
	case req.Images != nil:
		l.Images = images(req.Images)
	}
	l.UpdatedAt = time.Now().UTC()
	writeJSON(w, http.StatusOK, b.view(l, viewerID))
}

func (b *Backend) handleDeleteListing(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, viewerID := b.lookupListing(r)
	if l == nil {
		notFound(w)
		return
	}
	if l.SellerID != viewerID {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "You do not have permission to perform this action."})
		return
	}
	delete(b.listings, l.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleFavorite(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, viewerID := b.lookupListing(r)
	if l == nil {
		notFound(w)
		return
	}

	if r.Method == http.MethodDelete {
		kept := b.favorites[:0]
		for _, f := range b.favorites {
			if !(f.UserID == viewerID && f.ListingID == l.ID) {
				kept = append(kept, f)
			}
		}
		b.favorites = kept
		writeJSON(w, http.StatusOK, map[string]string{"message": "Removed from favorites"})
		return
	}
	if b.isFavorite(viewerID, l.ID) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Already in favorites"})
		return
	}
	b.favorites = append(b.favorites, &favorite{ID: b.id(), UserID: viewerID, ListingID: l.ID, CreatedAt: time.Now().UTC()})
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Added to favorites"})
}

func (b *Backend) handleFavorites(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := userIDFrom(r)
	b.mu.Lock()
	defer b.mu.Unlock()

	type favoriteView struct {
		ID        int64        `json:"id"`
		Listing   *listingView `json:"listing"`
		CreatedAt time.Time    `json:"created_at"`
	}
	out := []favoriteView{}
	for i := len(b.favorites) - 1; i >= 0; i-- {
		f := b.favorites[i]
		if f.UserID != viewerID {
			continue
		}
		if l := b.listings[f.ListingID]; l != nil {
			out = append(out, favoriteView{ID: f.ID, Listing: b.view(l, viewerID), CreatedAt: f.CreatedAt})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleMyListings(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := userIDFrom(r)
	b.mu.Lock()
	defer b.mu.Unlock()

	var mine []*listing
	for _, l := range b.listings {
		if l.SellerID == viewerID {
			mine = append(mine, l)
		}
	}
	sortListings(mine, "")
	out := []*listingView{}
	for _, l := range mine {
		out = append(out, b.view(l, viewerID))
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleReport(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, _ := b.lookupListing(r)
	if l == nil {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Listing reported successfully. Our team will review it.",
		"listing_id": l.ID,
	})
}
