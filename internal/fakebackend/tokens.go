package fakebackend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const contextKeyUserID contextKey = "user_id"

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type tokenClaims struct {
	TokenType string `json:"token_type"`
	UserID    int64  `json:"user_id"`
	jwtlib.RegisteredClaims
}

func (b *Backend) issueToken(userID int64, tokenType string, ttl time.Duration) string {
	now := time.Now()
	jti := uuid.NewString()
	claims := tokenClaims{
		TokenType: tokenType,
		UserID:    userID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        jti,
			Subject:   fmt.Sprint(userID),
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		panic(err)
	}
	if tokenType == tokenTypeAccess {
		b.liveAccess[jti] = userID
	} else {
		b.liveRefresh[jti] = userID
	}
	return signed
}

// issuePair must be called with b.mu held.
func (b *Backend) issuePair(userID int64) (access, refresh string) {
	return b.issueToken(userID, tokenTypeAccess, b.accessTTL), b.issueToken(userID, tokenTypeRefresh, 7*24*time.Hour)
}

func (b *Backend) parseToken(raw, tokenType string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, func(t *jwtlib.Token) (any, error) {
		return b.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenType {
		return nil, errors.New("wrong token type")
	}
	return claims, nil
}

// verifyAccess must be called with b.mu held.
func (b *Backend) verifyAccess(raw string) (int64, error) {
	claims, err := b.parseToken(raw, tokenTypeAccess)
	if err != nil {
		return 0, err
	}
	userID, ok := b.liveAccess[claims.ID]
	if !ok {
		return 0, errors.New("token expired")
	}
	return userID, nil
}

// authenticate resolves a bearer token when one is sent. Like the real backend,
// a bad token is rejected even on endpoints that allow anonymous access.
func (b *Backend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.record(r)

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authorization header must contain two space-delimited values"})
			return
		}

		b.mu.Lock()
		userID, err := b.verifyAccess(parts[1])
		b.mu.Unlock()
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := userIDFrom(r); !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userIDFrom(r *http.Request) (int64, bool) {
	id, ok := r.Context().Value(contextKeyUserID).(int64)
	return id, ok
}
