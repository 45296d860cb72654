// Package token reads the claims of the backend's access tokens. The client never
// holds the signing key, so nothing here verifies a signature: the server stays the
// source of truth. Expiry feeds oauth2.Token.Valid, which the dispatcher uses to
// log requests sent with an expired token.
package token

import (
	"errors"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const bearerType = "Bearer"

// Claims is the subset of access token claims the client cares about.
type Claims struct {
	Subject   string
	UserID    string
	TokenType string
	JTI       string
	IssuedAt  time.Time
	Expiry    time.Time
}

// Inspect parses a JWT without verifying it.
func Inspect(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, errors.New("empty token")
	}

	unverified, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, err
	}
	claims, ok := unverified.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("error extracting claims")
	}

	c := &Claims{}
	c.Subject, _ = claims["sub"].(string)
	c.JTI, _ = claims["jti"].(string)
	c.TokenType, _ = claims["token_type"].(string)
	switch uid := claims["user_id"].(type) {
	case string:
		c.UserID = uid
	case float64:
		c.UserID = strconv.FormatFloat(uid, 'f', -1, 64)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		c.Expiry = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	return c, nil
}

// Expired reports whether the token's exp claim is at or before now.
// Tokens without an exp claim never expire locally.
func (c *Claims) Expired(now time.Time) bool {
	if c == nil || c.Expiry.IsZero() {
		return false
	}
	return !now.Before(c.Expiry)
}

// OAuth2 converts a raw access/refresh pair into an oauth2.Token, with Expiry
// taken from the access token when it is a JWT.
func OAuth2(access, refresh string) *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  access,
		TokenType:    bearerType,
		RefreshToken: refresh,
	}
	if c, err := Inspect(access); err == nil {
		t.Expiry = c.Expiry
	}
	return t
}
