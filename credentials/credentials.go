package credentials

import (
	"context"
	"encoding/json"
)

// Persisted keys. The three entries are always written and removed together.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

// Keys lists every persisted entry, in a stable order.
var Keys = []string{KeyAccessToken, KeyRefreshToken, KeyUser}

// Credentials is the authenticated state of the single local user.
type Credentials struct {
	AccessToken  string          // Short-lived bearer credential
	RefreshToken string          // Long-lived credential exchanged at /auth/token/refresh/
	User         json.RawMessage // Serialised profile, as returned by login
}

// Complete reports whether all three parts are present. Anything less is a
// protocol violation and is handled as unauthenticated.
func (c Credentials) Complete() bool {
	return c.AccessToken != "" && c.RefreshToken != "" && len(c.User) > 0
}

// Empty reports whether no part is present.
func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == "" && len(c.User) == 0
}

func (c Credentials) entries() map[string]string {
	return map[string]string{
		KeyAccessToken:  c.AccessToken,
		KeyRefreshToken: c.RefreshToken,
		KeyUser:         string(c.User),
	}
}

func fromEntries(entries map[string]string) Credentials {
	c := Credentials{
		AccessToken:  entries[KeyAccessToken],
		RefreshToken: entries[KeyRefreshToken],
	}
	if u := entries[KeyUser]; u != "" {
		c.User = json.RawMessage(u)
	}
	return c
}

// Repo is durable key/value storage. SetMany and Delete must be atomic across
// all the keys they are given.
type Repo interface {
	// GetMany returns the stored values for keys; missing keys are absent from the map
	GetMany(ctx context.Context, keys ...string) (map[string]string, error)

	// SetMany writes all entries in one unit
	SetMany(ctx context.Context, entries map[string]string) error

	// Delete removes all keys in one unit
	Delete(ctx context.Context, keys ...string) error
}
