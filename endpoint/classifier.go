// Package endpoint decides which backend routes need an authorization credential.
package endpoint

import (
	"net/http"
	"strconv"
	"strings"
)

// Visibility says whether a request must carry a bearer credential.
type Visibility int

const (
	Protected Visibility = iota
	Public
)

func (v Visibility) String() string {
	if v == Public {
		return "public"
	}
	return "protected"
}

// Classify maps a method and path to its visibility. Only reads of listings and
// categories are public; the favorites and my_listings collections live under
// /listings/ but are guarded by the backend.
func Classify(method, path string) Visibility {
	if !isRead(method) {
		return Protected
	}
	segments := splitPath(path)
	if len(segments) == 0 || segments[0] != "listings" {
		return Protected
	}
	rest := segments[1:]
	switch len(rest) {
	case 0:
		return Public
	case 1:
		if rest[0] == "categories" || isID(rest[0]) {
			return Public
		}
	case 2:
		if rest[0] == "categories" && isID(rest[1]) {
			return Public
		}
		if isID(rest[0]) && rest[1] == "similar" {
			return Public
		}
	}
	return Protected
}

// IsPublic is shorthand for Classify(method, path) == Public.
func IsPublic(method, path string) bool {
	return Classify(method, path) == Public
}

func isRead(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead:
		return true
	}
	return false
}

// splitPath drops the query, fragment, an optional /api prefix and empty segments.
func splitPath(path string) []string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	if len(segments) > 0 && segments[0] == "api" {
		segments = segments[1:]
	}
	return segments
}

func isID(segment string) bool {
	_, err := strconv.ParseInt(segment, 10, 64)
	return err == nil
}
