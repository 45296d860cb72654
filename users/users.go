package users

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// User is the profile record returned by login, register and /auth/profile/.
type User struct {
	ID             int64      `json:"id"`                        // Backend user id
	Username       string     `json:"username"`                  // Unique username
	Email          string     `json:"email,omitempty"`           // User's email address
	PhoneNumber    string     `json:"phone_number,omitempty"`    // Optional phone number
	ProfilePicture string     `json:"profile_picture,omitempty"` // URL or data URI of the avatar
	Location       string     `json:"location,omitempty"`        // Free text location
	CreatedAt      *time.Time `json:"created_at,omitempty"`      // Date the account was created
}

// Summary is the compact user embedded in listings, rooms and messages.
type Summary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// ProfileUpdate is a partial profile update; nil fields are left untouched.
type ProfileUpdate struct {
	Username       *string `json:"username,omitempty"`
	Email          *string `json:"email,omitempty"`
	PhoneNumber    *string `json:"phone_number,omitempty"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
	Location       *string `json:"location,omitempty"`
	FCMToken       *string `json:"fcm_token,omitempty"`
}

// Registration holds the fields accepted by /auth/register/.
type Registration struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Password2   string `json:"password2"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Location    string `json:"location,omitempty"`
}

// Validate mirrors the checks the register form runs before calling the backend.
func (r *Registration) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return errors.New("username is required")
	}
	if strings.TrimSpace(r.Email) == "" {
		return errors.New("email is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	if r.Password2 == "" {
		r.Password2 = r.Password
	}
	if r.Password != r.Password2 {
		return errors.New("password fields didn't match")
	}
	return nil
}

func (u *User) Summary() Summary {
	return Summary{ID: u.ID, Username: u.Username, Email: u.Email}
}

// Marshal serialises the profile for the credential store.
func Marshal(u *User) (json.RawMessage, error) {
	raw, err := json.Marshal(u)
	if err != nil {
		return nil, errors.Wrap(err, "users.Marshal")
	}
	return raw, nil
}

// Unmarshal decodes a profile previously written by Marshal.
func Unmarshal(raw json.RawMessage) (*User, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, errors.Wrap(err, "users.Unmarshal")
	}
	return &u, nil
}
