package chat

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-marketplace-client/apiclient"
	"github.com/jrsteele09/go-marketplace-client/endpoint"
	"github.com/jrsteele09/go-marketplace-client/internal/errors"
)

// Doer is the typed half of the request dispatcher.
type Doer interface {
	Do(ctx context.Context, method, path string, in, out any) error
	Get(ctx context.Context, path string, query url.Values, out any) error
}

// API is the REST side of chat.
type API struct {
	doer Doer
}

func NewAPI(doer Doer) *API {
	return &API{doer: doer}
}

// Rooms lists the caller's rooms, most recently active first.
func (a *API) Rooms(ctx context.Context) ([]Room, error) {
	var page apiclient.Page[Room]
	if err := a.doer.Get(ctx, endpoint.RouteChatRooms, nil, &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

// Room fetches a room with its full message history.
func (a *API) Room(ctx context.Context, roomID int64) (*Room, error) {
	var room Room
	if err := a.doer.Get(ctx, endpoint.ChatRoom(roomID), nil, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// CreateOrGet opens (or reopens) the room for listingID with its seller.
func (a *API) CreateOrGet(ctx context.Context, listingID int64) (*Room, error) {
	var room Room
	in := map[string]int64{"listing_id": listingID}
	if err := a.doer.Do(ctx, http.MethodPost, endpoint.RouteChatCreateOrGet, in, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (a *API) SendMessage(ctx context.Context, roomID int64, content string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.ErrEmptyMessage
	}
	var m Message
	in := map[string]string{"content": content}
	if err := a.doer.Do(ctx, http.MethodPost, endpoint.ChatRoomSendMessage(roomID), in, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkRead marks every message from the other participant read.
func (a *API) MarkRead(ctx context.Context, roomID int64) error {
	return a.doer.Do(ctx, http.MethodPost, endpoint.ChatRoomMarkRead(roomID), nil, nil)
}
