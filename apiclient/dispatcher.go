// Package apiclient sends requests to the marketplace backend. It attaches the
// bearer credential to protected endpoints and recovers from an expired access
// token with a single refresh and a single replay.
package apiclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-marketplace-client/apierror"
	"github.com/jrsteele09/go-marketplace-client/refresh"
	"github.com/jrsteele09/go-marketplace-client/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	defaultTimeout  = 15 * time.Second
	maxResponseBody = 10 << 20
	requestIDHeader = "X-Request-ID"
)

// TokenSource yields the current access token, or "" when signed out.
type TokenSource interface {
	AccessToken(ctx context.Context) string
}

// Refresher renews an access token that the backend rejected.
type Refresher interface {
	Refresh(ctx context.Context, staleAccess string) (string, error)
}

// Dispatcher never writes credentials; only the refresher does.
type Dispatcher struct {
	baseURL   string
	client    *http.Client
	tokens    TokenSource
	refresher Refresher
	logger    zerolog.Logger
	timeout   time.Duration
}

type Option func(*Dispatcher)

func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		d.client = client
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithTimeout bounds each network attempt. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

func New(baseURL string, tokens TokenSource, refresher Refresher, options ...Option) *Dispatcher {
	d := &Dispatcher{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    http.DefaultClient,
		tokens:    tokens,
		refresher: refresher,
		logger:    zerolog.Nop(),
		timeout:   defaultTimeout,
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// BaseURL returns the REST root every path is joined to.
func (d *Dispatcher) BaseURL() string {
	return d.baseURL
}

// Send performs req. Non-401 responses, including errors, come back unchanged.
// A 401 on a public endpoint is replayed once with any credential stripped; on a
// protected endpoint the token is refreshed and the request replayed once. A
// failed refresh yields *apierror.AuthRequiredError. NoRetry requests get no
// second attempt.
func (d *Dispatcher) Send(ctx context.Context, req *Request) (*Response, error) {
	var accessToken string
	if !req.Public {
		accessToken = d.tokens.AccessToken(ctx)
		if accessToken == "" {
			d.logger.Warn().Str("request_id", req.ID.String()).Str("path", req.Path).
				Msg("no credential for protected endpoint, sending unauthenticated")
		} else if !token.OAuth2(accessToken, "").Valid() {
			d.logger.Info().Str("request_id", req.ID.String()).Str("path", req.Path).
				Msg("token expired, expecting refresh")
		}
	}

	resp, err := d.roundTrip(ctx, req, accessToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || req.Retried || req.NoRetry {
		return resp, nil
	}

	if req.Public {
		req.Retried = true
		d.logger.Debug().Str("request_id", req.ID.String()).Str("path", req.Path).
			Msg("public endpoint rejected credential, retrying without it")
		req.Header.Del("Authorization")
		return d.roundTrip(ctx, req, "")
	}

	req.Retried = true
	newToken, err := d.refresher.Refresh(ctx, accessToken)
	if err != nil {
		if errors.Is(err, refresh.ErrRefreshFailed) {
			return nil, &apierror.AuthRequiredError{Response: resp, Err: err}
		}
		return nil, &apierror.NetworkError{Op: "refresh", Err: err, Timeout: errors.Is(err, context.DeadlineExceeded)}
	}
	return d.roundTrip(ctx, req, newToken)
}

func (d *Dispatcher) roundTrip(ctx context.Context, req *Request, accessToken string) (*Response, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	httpReq, err := d.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	if accessToken != "" {
		token.OAuth2(accessToken, "").SetAuthHeader(httpReq)
	}

	start := time.Now()
	httpResp, err := d.client.Do(httpReq)
	if err != nil {
		d.logger.Debug().Err(err).Str("request_id", req.ID.String()).Str("method", req.Method).
			Str("path", req.Path).Msg("request failed")
		return nil, &apierror.NetworkError{Op: req.Method + " " + req.Path, Err: err, Timeout: isTimeout(ctx, err)}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, &apierror.NetworkError{Op: req.Method + " " + req.Path, Err: err, Timeout: isTimeout(ctx, err)}
	}

	d.logger.Debug().
		Str("request_id", req.ID.String()).
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", httpResp.StatusCode).
		Bool("retried", req.Retried).
		Dur("elapsed", time.Since(start)).
		Msg("request complete")

	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: body}, nil
}

func (d *Dispatcher) newHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	target := d.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, errors.Wrap(err, "Dispatcher.newHTTPRequest")
	}
	for k, v := range req.Header {
		httpReq.Header[k] = append([]string(nil), v...)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	httpReq.Header.Set(requestIDHeader, req.ID.String())
	return httpReq, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
