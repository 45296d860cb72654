// Package listings is the client for marketplace listings, categories and
// favorites.
package listings

import (
	"net/url"
	"strconv"
	"time"

	"github.com/jrsteele09/go-marketplace-client/users"
)

// Condition values accepted by the backend.
const (
	ConditionNew       = "new"
	ConditionLikeNew   = "like_new"
	ConditionExcellent = "excellent"
	ConditionGood      = "good"
	ConditionFair      = "fair"
	ConditionPoor      = "poor"
)

// Ordering values accepted by List.
const (
	OrderNewest    = "-created_at"
	OrderOldest    = "created_at"
	OrderPriceAsc  = "price"
	OrderPriceDesc = "-price"
)

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Image struct {
	ID        int64  `json:"id"`
	Image     string `json:"image"` // URL or data URI
	IsPrimary bool   `json:"is_primary"`
}

type Listing struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Price       string        `json:"price"` // Decimal string, e.g. "120.00"
	Category    *Category     `json:"category"`
	Location    string        `json:"location"`
	Seller      users.Summary `json:"seller"`
	Status      string        `json:"status"`
	Condition   string        `json:"condition"`
	IsFeatured  bool          `json:"is_featured"`
	Images      []Image       `json:"images"`
	IsFavorited bool          `json:"is_favorited"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// PrimaryImage returns the image flagged primary, else the first, else "".
func (l *Listing) PrimaryImage() string {
	for _, img := range l.Images {
		if img.IsPrimary {
			return img.Image
		}
	}
	if len(l.Images) > 0 {
		return l.Images[0].Image
	}
	return ""
}

// Draft is a new listing. Images hold remote URLs (or data URIs) already
// resolved by the media package.
type Draft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	CategoryID  int64    `json:"category_id"`
	Location    string   `json:"location"`
	Condition   string   `json:"condition,omitempty"`
	Images      []string `json:"images"`
}

// Update is a partial update; nil fields are left alone. A non-nil Images
// replaces the whole image set.
type Update struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *string  `json:"price,omitempty"`
	CategoryID  *int64   `json:"category_id,omitempty"`
	Location    *string  `json:"location,omitempty"`
	Condition   *string  `json:"condition,omitempty"`
	Images      []string `json:"images_data,omitempty"`
}

// Filter narrows List. Zero fields are not sent.
type Filter struct {
	Search     string
	CategoryID int64
	Location   string
	Condition  string
	Featured   *bool
	MinPrice   *float64
	MaxPrice   *float64
	Ordering   string
	Page       int
}

// Values encodes the filter as the backend's query parameters.
func (f Filter) Values() url.Values {
	v := url.Values{}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.CategoryID != 0 {
		v.Set("category", strconv.FormatInt(f.CategoryID, 10))
	}
	if f.Location != "" {
		v.Set("location", f.Location)
	}
	if f.Condition != "" {
		v.Set("condition", f.Condition)
	}
	if f.Featured != nil {
		v.Set("is_featured", strconv.FormatBool(*f.Featured))
	}
	if f.MinPrice != nil {
		v.Set("price__gte", strconv.FormatFloat(*f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice != nil {
		v.Set("price__lte", strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64))
	}
	if f.Ordering != "" {
		v.Set("ordering", f.Ordering)
	}
	if f.Page > 1 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	return v
}
