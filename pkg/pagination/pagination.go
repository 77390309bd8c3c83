// Package pagination provides pagination utilities.
package pagination

import (
	"net/url"
	"strconv"
)

// Pagination holds normalized page-based pagination parameters.
type Pagination struct {
	Page    int
	PerPage int
}

// FromQuery parses "page" and "per_page" from query parameters. Out of
// range or malformed values fall back to the defaults.
func FromQuery(q url.Values, defaultPerPage, maxPerPage int) Pagination {
	page := parseInt(q.Get("page"), 1)
	if page < 1 {
		page = 1
	}

	perPage := parseInt(q.Get("per_page"), defaultPerPage)
	if perPage < 1 || perPage > maxPerPage {
		perPage = defaultPerPage
	}

	return Pagination{Page: page, PerPage: perPage}
}

// Limit returns the per-page row limit.
func (p Pagination) Limit() int {
	return p.PerPage
}

// Offset returns the row offset for the current page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Pages returns the number of pages needed for total rows.
func (p Pagination) Pages(total int64) int {
	if p.PerPage <= 0 {
		return 0
	}
	return int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
}

func parseInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}
