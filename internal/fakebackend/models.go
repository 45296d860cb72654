package fakebackend

import "time"

type user struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PhoneNumber    string    `json:"phone_number"`
	ProfilePicture string    `json:"profile_picture"`
	Location       string    `json:"location"`
	CreatedAt      time.Time `json:"created_at"`

	passwordHash []byte
	fcmToken     string
}

type category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type listingImage struct {
	ID        int64  `json:"id"`
	Image     string `json:"image"`
	IsPrimary bool   `json:"is_primary"`
}

type listing struct {
	ID          int64
	Title       string
	Description string
	Price       float64
	CategoryID  int64
	Location    string
	SellerID    int64
	Status      string
	Condition   string
	IsFeatured  bool
	Images      []listingImage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type listingView struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Price       string         `json:"price"`
	Category    *category      `json:"category"`
	Location    string         `json:"location"`
	Seller      *user          `json:"seller"`
	Status      string         `json:"status"`
	Condition   string         `json:"condition"`
	IsFeatured  bool           `json:"is_featured"`
	Images      []listingImage `json:"images"`
	IsFavorited bool           `json:"is_favorited"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type favorite struct {
	ID        int64
	UserID    int64
	ListingID int64
	CreatedAt time.Time
}

type room struct {
	ID        int64
	ListingID int64
	BuyerID   int64
	SellerID  int64
	Messages  []*message
	CreatedAt time.Time
	UpdatedAt time.Time
}

type message struct {
	ID        int64
	SenderID  int64
	Content   string
	IsRead    bool
	CreatedAt time.Time
}

type messageView struct {
	ID        int64     `json:"id"`
	Sender    *user     `json:"sender"`
	Content   string    `json:"content"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// socketSender is the compact sender the push channel sends.
type socketSender struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type socketMessage struct {
	ID        int64        `json:"id"`
	Sender    socketSender `json:"sender"`
	Content   string       `json:"content"`
	CreatedAt string       `json:"created_at"`
}

type roomView struct {
	ID          int64         `json:"id"`
	Listing     *listingView  `json:"listing"`
	Buyer       *user         `json:"buyer"`
	Seller      *user         `json:"seller"`
	Messages    []messageView `json:"messages,omitempty"`
	LastMessage *messageView  `json:"last_message,omitempty"`
	UnreadCount *int          `json:"unread_count,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type notification struct {
	ID        int64        `json:"id"`
	Type      string       `json:"notification_type"`
	Title     string       `json:"title"`
	Message   string       `json:"message"`
	Listing   *listingView `json:"listing"`
	IsRead    bool         `json:"is_read"`
	CreatedAt time.Time    `json:"created_at"`

	userID int64
}

type page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}
