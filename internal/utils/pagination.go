// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// Page size bounds shared by every list endpoint.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// PageMeta carries pagination metadata for list responses. From and To are
// the 1-based positions of the first and last row on the page, both 0 when
// the result is empty.
type PageMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	From       int64 `json:"from"`
	To         int64 `json:"to"`
}

// ClampPage bounds page to >= 1 and pageSize to [1, MaxPageSize], using
// DefaultPageSize when pageSize is not positive.
func ClampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// Offset returns the row offset of page (1-based).
func Offset(page, pageSize int) int {
	return (page - 1) * pageSize
}

// Paginate computes the metadata for page/pageSize over total rows.
// Inputs are clamped first.
func Paginate(page, pageSize int, total int64) PageMeta {
	page, pageSize = ClampPage(page, pageSize)
	size := int64(pageSize)
	totalPages := int((total + size - 1) / size)

	m := PageMeta{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
	if total > 0 {
		from := int64(Offset(page, pageSize)) + 1
		if from <= total {
			m.From = from
			m.To = min(int64(page)*size, total)
		}
	}
	return m
}
