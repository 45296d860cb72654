package listings

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-marketplace-client/apiclient"
	"github.com/jrsteele09/go-marketplace-client/endpoint"
	internalerrors "github.com/jrsteele09/go-marketplace-client/internal/errors"
)

// Doer is the typed half of the request dispatcher.
type Doer interface {
	Do(ctx context.Context, method, path string, in, out any) error
	Get(ctx context.Context, path string, query url.Values, out any) error
}

type Service struct {
	doer Doer
}

func NewService(doer Doer) *Service {
	return &Service{doer: doer}
}

// List returns one page of approved listings (plus the caller's own).
func (s *Service) List(ctx context.Context, filter Filter) (*apiclient.Page[Listing], error) {
	var page apiclient.Page[Listing]
	if err := s.doer.Get(ctx, endpoint.RouteListings, filter.Values(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Listing, error) {
	var l Listing
	if err := s.doer.Get(ctx, endpoint.Listing(id), nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Service) Create(ctx context.Context, d Draft) (*Listing, error) {
	if strings.TrimSpace(d.Title) == "" {
		return nil, internalerrors.Wrapf(internalerrors.ErrInvalidListing, "title is required")
	}
	if d.Images == nil {
		d.Images = []string{}
	}
	var l Listing
	if err := s.doer.Do(ctx, http.MethodPost, endpoint.RouteListings, d, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Service) Update(ctx context.Context, id int64, u Update) (*Listing, error) {
	var l Listing
	if err := s.doer.Do(ctx, http.MethodPut, endpoint.Listing(id), u, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.doer.Do(ctx, http.MethodDelete, endpoint.Listing(id), nil, nil)
}

func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := s.doer.Get(ctx, endpoint.RouteCategories, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToggleFavorite removes the favorite when isFavorited, adds it otherwise, and
// returns the new state.
func (s *Service) ToggleFavorite(ctx context.Context, id int64, isFavorited bool) (bool, error) {
	method := http.MethodPost
	if isFavorited {
		method = http.MethodDelete
	}
	if err := s.doer.Do(ctx, method, endpoint.ListingFavorite(id), nil, nil); err != nil {
		return isFavorited, err
	}
	return !isFavorited, nil
}

// Favorites returns the caller's favorited listings, newest first.
func (s *Service) Favorites(ctx context.Context) ([]Listing, error) {
	var favs []struct {
		Listing Listing `json:"listing"`
	}
	if err := s.doer.Get(ctx, endpoint.RouteListingFavorites, nil, &favs); err != nil {
		return nil, err
	}
	out := make([]Listing, 0, len(favs))
	for _, f := range favs {
		out = append(out, f.Listing)
	}
	return out, nil
}

// Mine returns every listing the caller is selling, whatever its status.
func (s *Service) Mine(ctx context.Context) ([]Listing, error) {
	var out []Listing
	if err := s.doer.Get(ctx, endpoint.RouteListingMyListings, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Similar returns up to six approved listings in the same category.
func (s *Service) Similar(ctx context.Context, id int64) ([]Listing, error) {
	var out []Listing
	if err := s.doer.Get(ctx, endpoint.ListingSimilar(id), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Report(ctx context.Context, id int64, reason string) error {
	if strings.TrimSpace(reason) == "" {
		reason = "Inappropriate content"
	}
	return s.doer.Do(ctx, http.MethodPost, endpoint.ListingReport(id), map[string]string{"reason": reason}, nil)
}
