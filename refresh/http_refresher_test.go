package refresh_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	internalerrors "github.com/jrsteele09/go-marketplace-client/internal/errors"
	"github.com/jrsteele09/go-marketplace-client/refresh"
	"github.com/stretchr/testify/require"
)

func TestHTTPRefresher_Refresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/auth/token/refresh/", r.URL.Path)
		require.Empty(t, r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["refresh"] != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Token is invalid or expired","code":"token_not_valid"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access": "a2", "refresh": "r2"})
	}))
	defer srv.Close()

	r := refresh.NewHTTPRefresher(srv.URL+"/api/", srv.Client())

	tokens, err := r.Refresh(context.Background(), "good")
	require.NoError(t, err)
	require.Equal(t, refresh.Tokens{Access: "a2", Refresh: "r2"}, tokens)

	_, err = r.Refresh(context.Background(), "bad")
	require.ErrorIs(t, err, internalerrors.ErrRefreshRejected)
}
