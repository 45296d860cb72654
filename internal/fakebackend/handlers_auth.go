package fakebackend

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func fieldError(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string][]string{field: {msg}})
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

type authPayload struct {
	User    *user  `json:"user"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// CreateUser seeds an account and returns its id.
func (b *Backend) CreateUser(username, password string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.createUser(username, username+"@example.com", password, "", "").ID
}

// IssueTokens returns a fresh token pair for a seeded user.
func (b *Backend) IssueTokens(userID int64) (access, refresh string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issuePair(userID)
}

// UserJSON returns the serialised profile, as login would.
func (b *Backend) UserJSON(userID int64) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, _ := json.Marshal(b.users[userID])
	return raw
}

func (b *Backend) createUser(username, email, password, phone, location string) *user {
	u := &user{
		ID:          b.id(),
		Username:    username,
		Email:       email,
		PhoneNumber: phone,
		Location:    location,
		CreatedAt:   time.Now().UTC(),
	}
	u.passwordHash, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	b.users[u.ID] = u
	return u
}

func (b *Backend) userByName(username string) *user {
	for _, u := range b.users {
		if strings.EqualFold(u.Username, username) {
			return u
		}
	}
	return nil
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		Email       string `json:"email"`
		Password    string `json:"password"`
		Password2   string `json:"password2"`
		PhoneNumber string `json:"phone_number"`
		Location    string `json:"location"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case req.Username == "":
		fieldError(w, "username", "This field is required.")
		return
	case b.userByName(req.Username) != nil:
		fieldError(w, "username", "A user with that username already exists.")
		return
	case len(req.Password) < 8:
		fieldError(w, "password", "This password is too short. It must contain at least 8 characters.")
		return
	case req.Password != req.Password2:
		fieldError(w, "password", "Password fields didn't match.")
		return
	}

	u := b.createUser(req.Username, req.Email, req.Password, req.PhoneNumber, req.Location)
	access, refresh := b.issuePair(u.ID)
	writeJSON(w, http.StatusCreated, authPayload{User: u, Access: access, Refresh: refresh})
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	u := b.userByName(req.Username)
	if u == nil || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(req.Password)) != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}
	access, refresh := b.issuePair(u.ID)
	writeJSON(w, http.StatusOK, authPayload{User: u, Access: access, Refresh: refresh})
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)

	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := decodeBody(r, &req); err != nil || req.Refresh == "" {
		fieldError(w, "refresh", "This field is required.")
		return
	}

	b.mu.Lock()
	delay := b.refreshDelay
	b.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	invalid := map[string]string{"detail": "Token is invalid or expired", "code": "token_not_valid"}
	if b.rejectRefresh {
		writeJSON(w, http.StatusUnauthorized, invalid)
		return
	}
	claims, err := b.parseToken(req.Refresh, tokenTypeRefresh)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, invalid)
		return
	}
	userID, ok := b.liveRefresh[claims.ID]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, invalid)
		return
	}

	resp := map[string]string{"access": b.issueToken(userID, tokenTypeAccess, b.accessTTL)}
	if b.rotateRefresh {
		delete(b.liveRefresh, claims.ID)
		resp["refresh"] = b.issueToken(userID, tokenTypeRefresh, 7*24*time.Hour)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	status, delay := b.logoutStatus, b.logoutDelay
	b.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		writeJSON(w, status, map[string]string{"error": "Logout failed"})
		return
	}

	var req struct {
		Refresh string `json:"refresh"`
	}
	_ = decodeBody(r, &req)

	b.mu.Lock()
	defer b.mu.Unlock()
	if claims, err := b.parseToken(req.Refresh, tokenTypeRefresh); err == nil {
		delete(b.liveRefresh, claims.ID)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

type profileView struct {
	*user
	FCMToken string `json:"fcm_token"`
}

func (b *Backend) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.users[userID]
	writeJSON(w, http.StatusOK, profileView{user: u, FCMToken: u.fcmToken})
}

func (b *Backend) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r)
	var req struct {
		Username       *string `json:"username"`
		Email          *string `json:"email"`
		PhoneNumber    *string `json:"phone_number"`
		ProfilePicture *string `json:"profile_picture"`
		Location       *string `json:"location"`
		FCMToken       *string `json:"fcm_token"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.users[userID]

	if req.Username != nil {
		if *req.Username == "" {
			fieldError(w, "username", "This field may not be blank.")
			return
		}
		if other := b.userByName(*req.Username); other != nil && other.ID != u.ID {
			fieldError(w, "username", "A user with that username already exists.")
			return
		}
		u.Username = *req.Username
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.PhoneNumber != nil {
		u.PhoneNumber = *req.PhoneNumber
	}
	if req.ProfilePicture != nil {
		u.ProfilePicture = *req.ProfilePicture
	}
	if req.Location != nil {
		u.Location = *req.Location
	}
	if req.FCMToken != nil {
		u.fcmToken = *req.FCMToken
	}
	writeJSON(w, http.StatusOK, profileView{user: u, FCMToken: u.fcmToken})
}
