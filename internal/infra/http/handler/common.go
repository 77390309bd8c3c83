package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ListResponse is the envelope every paginated list endpoint returns.
type ListResponse[T any] struct {
	Data       []T              `json:"data"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`
	TotalPages int              `json:"total_pages"`
	Links      *PaginationLinks `json:"links,omitempty"`
}

// PaginationLinks carries navigation URLs for a paginated response.
type PaginationLinks struct {
	Self  string `json:"self"`
	First string `json:"first,omitempty"`
	Prev  string `json:"prev,omitempty"`
	Next  string `json:"next,omitempty"`
	Last  string `json:"last,omitempty"`
}

// NewPaginationLinks derives navigation links from the current request,
// keeping any other query parameters intact.
func NewPaginationLinks(r *http.Request, page, perPage, totalPages int) *PaginationLinks {
	if totalPages == 0 {
		return nil
	}

	base := requestBaseURL(r)
	query := r.URL.Query()
	pageURL := func(p int) string {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("page", strconv.Itoa(p))
		q.Set("per_page", strconv.Itoa(perPage))
		return base + "?" + q.Encode()
	}

	links := &PaginationLinks{
		Self:  pageURL(page),
		First: pageURL(1),
	}
	if page > 1 {
		links.Prev = pageURL(page - 1)
	}
	if page < totalPages {
		links.Next = pageURL(page + 1)
	}
	if totalPages > 1 {
		links.Last = pageURL(totalPages)
	}
	return links
}

// requestBaseURL reconstructs the externally visible URL of the request,
// honoring the forwarding headers a reverse proxy sets.
func requestBaseURL(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
	}

	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = fwd
	}

	return scheme + "://" + host + r.URL.Path
}

// parseQueryBool interprets a query parameter as an optional boolean.
// An empty value means the filter was not supplied at all.
func parseQueryBool(s string) *bool {
	if s == "" {
		return nil
	}
	v := s == "true" || s == "1"
	return &v
}

// getClientIP resolves the originating client address, preferring the
// headers set by the load balancer over the socket peer.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
