package apiclient

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-marketplace-client/apierror"
	"github.com/jrsteele09/go-marketplace-client/endpoint"
	"github.com/pkg/errors"
)

// Response is the buffered result of a request.
type Response = apierror.Response

// Request describes one logical call. The body is held as bytes so the request
// can be replayed after a refresh.
type Request struct {
	ID      uuid.UUID
	Method  string
	Path    string
	Query   url.Values
	Header  http.Header
	Body    []byte
	Public  bool // Set from the endpoint classifier
	Retried bool // Set once the request has been replayed after a 401
	NoRetry bool // A 401 is final: never replayed, never refreshed
}

// NewRequest builds a request and classifies it.
func NewRequest(method, path string, body []byte) *Request {
	return &Request{
		ID:     uuid.New(),
		Method: method,
		Path:   path,
		Header: make(http.Header),
		Body:   body,
		Public: endpoint.IsPublic(method, path),
	}
}

// NewJSONRequest marshals in as the request body. A nil in sends no body.
func NewJSONRequest(method, path string, in any) (*Request, error) {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return nil, errors.Wrap(err, "NewJSONRequest Marshal")
		}
	}
	req := NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// WithQuery sets the query string and returns the request.
func (r *Request) WithQuery(q url.Values) *Request {
	r.Query = q
	return r
}
