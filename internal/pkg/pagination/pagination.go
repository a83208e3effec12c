// internal/pkg/pagination/pagination.go
package pagination

// Request holds page parameters bound from query strings
type Request struct {
	Page  int `form:"page" json:"page"`
	Limit int `form:"limit" json:"limit"`
}

// Pagination describes the page returned to the caller
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// Normalize fills defaults and caps the page size
func (r *Request) Normalize(defaultLimit, maxLimit int) {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Limit < 1 {
		r.Limit = defaultLimit
	}
	if maxLimit > 0 && r.Limit > maxLimit {
		r.Limit = maxLimit
	}
}

// Offset returns the row offset for the current page
func (r Request) Offset() int {
	return (r.Page - 1) * r.Limit
}

// New computes page info for a total row count
func New(r Request, total int64) Pagination {
	totalPages := 0
	if r.Limit > 0 {
		totalPages = int((total + int64(r.Limit) - 1) / int64(r.Limit))
	}
	return Pagination{
		Page:       r.Page,
		Limit:      r.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    r.Page < totalPages,
		HasPrev:    r.Page > 1,
	}
}
