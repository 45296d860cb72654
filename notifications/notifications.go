// Package notifications reads and acknowledges the signed-in user's
// notifications.
package notifications

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jrsteele09/go-marketplace-client/apiclient"
	"github.com/jrsteele09/go-marketplace-client/endpoint"
	"github.com/pkg/errors"
)

// Kinds emitted by the backend.
const (
	KindMessage         = "message"
	KindListingApproved = "listing_approved"
	KindListingRejected = "listing_rejected"
	KindFavorite        = "favorite"
	KindSystem          = "system"
)

// ListingRef is the listing a notification points at, when it has one.
type ListingRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type Notification struct {
	ID        int64       `json:"id"`
	Kind      string      `json:"notification_type"`
	Title     string      `json:"title"`
	Message   string      `json:"message"`
	Listing   *ListingRef `json:"listing"`
	IsRead    bool        `json:"is_read"`
	CreatedAt time.Time   `json:"created_at"`
}

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

// List returns a page of notifications, newest first. page <= 1 fetches the
// first page.
func (s *Service) List(ctx context.Context, page int) (*apiclient.Page[Notification], error) {
	var query url.Values
	if page > 1 {
		query = url.Values{"page": {strconv.Itoa(page)}}
	}
	var out apiclient.Page[Notification]
	if err := s.doer.Get(ctx, endpoint.RouteNotifications, query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		Count *int `json:"count"`
	}
	if err := s.doer.Get(ctx, endpoint.RouteNotificationsUnreadCnt, nil, &out); err != nil {
		return 0, err
	}
	if out.Count == nil {
		return 0, errors.New("Service.UnreadCount response missing count")
	}
	return *out.Count, nil
}

func (s *Service) MarkRead(ctx context.Context, id int64) error {
	return s.doer.Do(ctx, http.MethodPost, endpoint.NotificationMarkRead(id), nil, nil)
}

func (s *Service) MarkAllRead(ctx context.Context) error {
	return s.doer.Do(ctx, http.MethodPost, endpoint.RouteNotificationsReadAll, nil, nil)
}
