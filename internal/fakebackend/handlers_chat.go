package fakebackend

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
)

// CreateRoom seeds a room between a listing's seller and buyerID.
func (b *Backend) CreateRoom(listingID, buyerID int64) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.getOrCreateRoom(b.listings[listingID], buyerID).ID
}

// AddMessage appends a message to a room without pushing it, as the REST send does.
func (b *Backend) AddMessage(roomID, senderID int64, content string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addMessage(b.rooms[roomID], senderID, content).ID
}

// Broadcast stores a message and pushes it to every open channel on the room,
// as when the other participant sends over their socket.
func (b *Backend) Broadcast(roomID, senderID int64, content string) int64 {
	b.mu.Lock()
	m := b.addMessage(b.rooms[roomID], senderID, content)
	b.mu.Unlock()
	b.push(roomID, m)
	return m.ID
}

// PushExisting re-sends an already stored message over the room's channels.
func (b *Backend) PushExisting(roomID, messageID int64) {
	b.mu.Lock()
	var found *message
	if rm := b.rooms[roomID]; rm != nil {
		for _, m := range rm.Messages {
			if m.ID == messageID {
				found = m
			}
		}
	}
	b.mu.Unlock()
	if found != nil {
		b.push(roomID, found)
	}
}

// DropSockets closes every channel on the room from the server side.
func (b *Backend) DropSockets(roomID int64) {
	b.mu.Lock()
	conns := b.sockets[roomID]
	delete(b.sockets, roomID)
	b.mu.Unlock()
	for c := range conns {
		_ = c.Close(websocket.StatusGoingAway, "dropped")
	}
}

// OpenSockets counts channels connected to the room.
func (b *Backend) OpenSockets(roomID int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sockets[roomID])
}

// MessageCount counts stored messages in a room.
func (b *Backend) MessageCount(roomID int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if rm := b.rooms[roomID]; rm != nil {
		return len(rm.Messages)
	}
	return 0
}

func (b *Backend) getOrCreateRoom(l *listing, buyerID int64) *room {
	for _, rm := range b.rooms {
		if rm.ListingID == l.ID && rm.BuyerID == buyerID {
			return rm
		}
	}
	now := time.Now().UTC()
	rm := &room{ID: b.id(), ListingID: l.ID, BuyerID: buyerID, SellerID: l.SellerID, CreatedAt: now, UpdatedAt: now}
	b.rooms[rm.ID] = rm
	return rm
}

func (b *Backend) addMessage(rm *room, senderID int64, content string) *message {
	m := &message{ID: b.id(), SenderID: senderID, Content: content, CreatedAt: time.Now().UTC()}
	rm.Messages = append(rm.Messages, m)
	rm.UpdatedAt = m.CreatedAt
	return m
}

func (b *Backend) messageView(m *message) messageView {
	return messageView{ID: m.ID, Sender: b.users[m.SenderID], Content: m.Content, IsRead: m.IsRead, CreatedAt: m.CreatedAt}
}

func (b *Backend) roomView(rm *room, viewerID int64, detail bool) roomView {
	v := roomView{
		ID:        rm.ID,
		Buyer:     b.users[rm.BuyerID],
		Seller:    b.users[rm.SellerID],
		CreatedAt: rm.CreatedAt,
		UpdatedAt: rm.UpdatedAt,
	}
	if l := b.listings[rm.ListingID]; l != nil {
		v.Listing = b.view(l, viewerID)
	}
	if detail {
		v.Messages = []messageView{}
		for _, m := range rm.Messages {
			v.Messages = append(v.Messages, b.messageView(m))
		}
		return v
	}
	unread := 0
	for _, m := range rm.Messages {
		if !m.IsRead && m.SenderID != viewerID {
			unread++
		}
	}
	v.UnreadCount = &unread
	if n := len(rm.Messages); n > 0 {
		last := b.messageView(rm.Messages[n-1])
		v.LastMessage = &last
	}
	return v
}

func (b *Backend) lookupRoom(r *http.Request) (*room, int64) {
	viewerID, _ := userIDFrom(r)
	id, ok := pathID(r)
	if !ok {
		return nil, viewerID
	}
	rm := b.rooms[id]
	if rm == nil || (rm.BuyerID != viewerID && rm.SellerID != viewerID) {
		return nil, viewerID
	}
	return rm, viewerID
}

func (b *Backend) handleListRooms(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := userIDFrom(r)
	b.mu.Lock()
	defer b.mu.Unlock()

	var rooms []*room
	for _, rm := range b.rooms {
		if rm.BuyerID == viewerID || rm.SellerID == viewerID {
			rooms = append(rooms, rm)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].UpdatedAt.After(rooms[j].UpdatedAt) })

	out := page[roomView]{Count: len(rooms), Results: []roomView{}}
	for _, rm := range rooms {
		out.Results = append(out.Results, b.roomView(rm, viewerID, false))
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rm, viewerID := b.lookupRoom(r)
	if rm == nil {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, b.roomView(rm, viewerID, true))
}

func (b *Backend) handleCreateOrGetRoom(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := userIDFrom(r)
	var req struct {
		ListingID int64 `json:"listing_id"`
	}
	if err := decodeBody(r, &req); err != nil || req.ListingID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "listing_id is required"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	l := b.listings[req.ListingID]
	if l == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Listing not found"})
		return
	}
	if l.SellerID == viewerID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Cannot chat with yourself"})
		return
	}
	before := len(b.rooms)
	rm := b.getOrCreateRoom(l, viewerID)
	status := http.StatusOK
	if len(b.rooms) > before {
		status = http.StatusCreated
	}
	writeJSON(w, status, b.roomView(rm, viewerID, true))
}

func (b *Backend) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	_ = decodeBody(r, &req)

	b.mu.Lock()
	defer b.mu.Unlock()

	rm, viewerID := b.lookupRoom(r)
	if rm == nil {
		notFound(w)
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Message content is required"})
		return
	}
	m := b.addMessage(rm, viewerID, req.Content)
	writeJSON(w, http.StatusCreated, b.messageView(m))
}

func (b *Backend) handleMarkRoomRead(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rm, viewerID := b.lookupRoom(r)
	if rm == nil {
		notFound(w)
		return
	}
	for _, m := range rm.Messages {
		if m.SenderID != viewerID {
			m.IsRead = true
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Messages marked as read"})
}

func (b *Backend) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	roomID, err := strconv.ParseInt(chi.URLParam(r, "roomID"), 10, 64)
	if err != nil {
		http.Error(w, "bad room", http.StatusNotFound)
		return
	}

	b.mu.Lock()
	userID, authErr := b.verifyAccess(r.URL.Query().Get("token"))
	rm := b.rooms[roomID]
	b.mu.Unlock()
	if authErr != nil {
		http.Error(w, "unauthorized", http.StatusForbidden)
		return
	}
	if rm == nil {
		http.Error(w, "no such room", http.StatusNotFound)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return
	}
	defer func() {
		_ = ws.Close(websocket.StatusNormalClosure, "bye")
	}()

	b.mu.Lock()
	if b.sockets[roomID] == nil {
		b.sockets[roomID] = make(map[*websocket.Conn]struct{})
	}
	b.sockets[roomID][ws] = struct{}{}
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.sockets[roomID], ws)
		b.mu.Unlock()
	}()

	ctx := r.Context()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			return
		}
		var frame struct {
			Message string `json:"message"`
			Content string `json:"content"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		content := frame.Message
		if content == "" {
			content = frame.Content
		}
		if content == "" {
			continue
		}

		b.mu.Lock()
		m := b.addMessage(rm, userID, content)
		b.mu.Unlock()
		b.push(roomID, m)
	}
}

func (b *Backend) push(roomID int64, m *message) {
	b.mu.Lock()
	sender := b.users[m.SenderID]
	frame := socketMessage{
		ID:        m.ID,
		Sender:    socketSender{ID: sender.ID, Username: sender.Username},
		Content:   m.Content,
		CreatedAt: m.CreatedAt.Format(time.RFC3339Nano),
	}
	times := 1
	if b.duplicateFrames {
		times = 2
	}
	conns := make([]*websocket.Conn, 0, len(b.sockets[roomID]))
	for c := range b.sockets[roomID] {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, c := range conns {
		for i := 0; i < times; i++ {
			_ = wsjson.Write(ctx, c, frame)
		}
	}
}
