package apiclient

import (
	"bytes"
	"encoding/json"
)

// Page is a page of results. Collection endpoints either paginate
// ({count, next, previous, results}) or return a bare array; both decode here.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// HasNext reports whether the backend advertised another page.
func (p *Page[T]) HasNext() bool {
	return p.Next != nil && *p.Next != ""
}

func (p *Page[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*p = Page[T]{Count: len(items), Results: items}
		return nil
	}

	var raw rawPage[T]
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	*p = Page[T](raw)
	return nil
}

// rawPage has Page's fields without its UnmarshalJSON.
type rawPage[T any] Page[T]
