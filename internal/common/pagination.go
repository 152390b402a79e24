package common

import (
	"net/http"
	"strconv"
)

// MaxPerPage caps the page size a client can request; product and order
// listings never return more rows than this in one response.
const MaxPerPage = 100

// Pagination is the metadata block attached to every list response.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}

// ParsePagination reads the page and limit query parameters, falling back
// to page 1 and defaultPerPage when absent or unusable.
func ParsePagination(r *http.Request, defaultPerPage int) (page, perPage int) {
	page = positiveParam(r, "page", 1)
	perPage = positiveParam(r, "limit", defaultPerPage)
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

func positiveParam(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
