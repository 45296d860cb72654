package fakebackend

import (
	"net/http"
	"time"
)

// AddNotification seeds an unread notification for userID.
func (b *Backend) AddNotification(userID int64, kind, title string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := &notification{
		ID:        b.id(),
		Type:      kind,
		Title:     title,
		Message:   title,
		CreatedAt: time.Now().UTC(),
		userID:    userID,
	}
	b.notifications = append(b.notifications, n)
	return n.ID
}

func (b *Backend) userNotifications(userID int64) []*notification {
	var out []*notification
	for i := len(b.notifications) - 1; i >= 0; i-- {
		if n := b.notifications[i]; n.userID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (b *Backend) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := userIDFrom(r)
	b.mu.Lock()
	defer b.mu.Unlock()

	ns := b.userNotifications(viewerID)
	out := page[*notification]{Count: len(ns), Results: []*notification{}}
	out.Results = append(out.Results, ns...)
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := userIDFrom(r)
	b.mu.Lock()
	defer b.mu.Unlock()

	count := 0
	for _, n := range b.userNotifications(viewerID) {
		if !n.IsRead {
			count++
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (b *Backend) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := userIDFrom(r)
	id, _ := pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, n := range b.userNotifications(viewerID) {
		if n.ID == id {
			n.IsRead = true
			writeJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
			return
		}
	}
	notFound(w)
}

func (b *Backend) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := userIDFrom(r)
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, n := range b.userNotifications(viewerID) {
		n.IsRead = true
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "All notifications marked as read"})
}
