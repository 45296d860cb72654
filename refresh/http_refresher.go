package refresh

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-marketplace-client/apierror"
	"github.com/jrsteele09/go-marketplace-client/endpoint"
	internalerrors "github.com/jrsteele09/go-marketplace-client/internal/errors"
	"github.com/pkg/errors"
)

const maxRefreshBody = 1 << 20

var _ Refresher = (*HTTPRefresher)(nil)

// HTTPRefresher calls the token refresh endpoint directly, outside the request
// pipeline, so a 401 here can never trigger another refresh.
type HTTPRefresher struct {
	baseURL string
	client  *http.Client
}

func NewHTTPRefresher(baseURL string, client *http.Client) *HTTPRefresher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRefresher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (r *HTTPRefresher) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	body, err := json.Marshal(map[string]string{"refresh": refreshToken})
	if err != nil {
		return Tokens{}, errors.Wrap(err, "HTTPRefresher.Refresh Marshal")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+endpoint.RouteTokenRefresh, bytes.NewReader(body))
	if err != nil {
		return Tokens{}, errors.Wrap(err, "HTTPRefresher.Refresh NewRequest")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return Tokens{}, &apierror.NetworkError{Op: "refresh", Err: err, Timeout: isTimeout(ctx, err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRefreshBody))
	if err != nil {
		return Tokens{}, &apierror.NetworkError{Op: "refresh", Err: err, Timeout: isTimeout(ctx, err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Tokens{}, internalerrors.Wrapf(internalerrors.ErrRefreshRejected, "status %d: %v", resp.StatusCode, apierror.FromResponse(resp.StatusCode, raw))
	}

	var tokens Tokens
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return Tokens{}, fmt.Errorf("decode refresh response: %w", err)
	}
	return tokens, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
