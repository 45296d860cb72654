// Package chat keeps one ordered, de-duplicated timeline per open room, fed by
// a websocket push channel when it is up and by the REST API when it is not.
package chat

import (
	"encoding/json"
	"time"

	"github.com/jrsteele09/go-marketplace-client/users"
)

// DeliveryState tracks a message from the local user's point of view.
type DeliveryState int

const (
	DeliverySent      DeliveryState = iota // Written to the channel, not yet echoed
	DeliveryConfirmed                      // Known to the server
)

func (d DeliveryState) String() string {
	if d == DeliveryConfirmed {
		return "confirmed"
	}
	return "sent"
}

// Message is one chat line. ID is assigned by the server and is the de-dup key.
type Message struct {
	ID        int64         `json:"id"`
	Sender    users.Summary `json:"sender"`
	Content   string        `json:"content"`
	IsRead    bool          `json:"is_read"`
	CreatedAt time.Time     `json:"created_at"`
	Delivery  DeliveryState `json:"-"`
}

// UnmarshalJSON marks every decoded message confirmed: it came from the server.
func (m *Message) UnmarshalJSON(data []byte) error {
	type plain Message
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = Message(p)
	m.Delivery = DeliveryConfirmed
	return nil
}

// ListingRef is the part of a listing a room needs to render its header.
type ListingRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Price string `json:"price"`
}

// Room is a conversation between a buyer and the seller of one listing.
type Room struct {
	ID          int64         `json:"id"`
	Listing     ListingRef    `json:"listing"`
	Buyer       users.Summary `json:"buyer"`
	Seller      users.Summary `json:"seller"`
	Messages    []Message     `json:"messages,omitempty"`     // Detail responses only
	LastMessage *Message      `json:"last_message,omitempty"` // List responses only
	UnreadCount int           `json:"unread_count"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Counterpart returns the other participant for userID.
func (r *Room) Counterpart(userID int64) users.Summary {
	if r.Buyer.ID == userID {
		return r.Seller
	}
	return r.Buyer
}

// Via says which path carried a send.
type Via int

const (
	ViaChannel Via = iota
	ViaREST
)

func (v Via) String() string {
	if v == ViaREST {
		return "rest"
	}
	return "channel"
}

// Receipt describes how a send was carried. Message is set only for REST
// sends; channel sends appear in the timeline when the server echoes them.
type Receipt struct {
	Via      Via
	Delivery DeliveryState
	Message  *Message
}
