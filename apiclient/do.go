package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-marketplace-client/apierror"
	"github.com/pkg/errors"
)

// Do sends in as JSON to path and decodes a 2xx body into out. Non-2xx
// responses are resolved through apierror.FromResponse.
func (d *Dispatcher) Do(ctx context.Context, method, path string, in, out any) error {
	req, err := NewJSONRequest(method, path, in)
	if err != nil {
		return err
	}
	return d.DoRequest(ctx, req, out)
}

// DoRequest is Do for a prepared request.
func (d *Dispatcher) DoRequest(ctx context.Context, req *Request, out any) error {
	resp, err := d.Send(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apierror.FromResponse(resp.StatusCode, resp.Body)
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return errors.Wrapf(err, "decode %s %s", req.Method, req.Path)
	}
	return nil
}

func (d *Dispatcher) Get(ctx context.Context, path string, query url.Values, out any) error {
	req := NewRequest(http.MethodGet, path, nil).WithQuery(query)
	return d.DoRequest(ctx, req, out)
}

func (d *Dispatcher) Post(ctx context.Context, path string, in, out any) error {
	return d.Do(ctx, http.MethodPost, path, in, out)
}

func (d *Dispatcher) Put(ctx context.Context, path string, in, out any) error {
	return d.Do(ctx, http.MethodPut, path, in, out)
}

func (d *Dispatcher) Patch(ctx context.Context, path string, in, out any) error {
	return d.Do(ctx, http.MethodPatch, path, in, out)
}

func (d *Dispatcher) Delete(ctx context.Context, path string) error {
	return d.Do(ctx, http.MethodDelete, path, nil, nil)
}
