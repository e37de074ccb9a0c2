package model

// Pagination is the page metadata returned with paged listings.
type Pagination struct {
	Page    int  `json:"page"`
	Pages   int  `json:"pages"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// DefaultPagination is the state of a store before its first listing.
func DefaultPagination() Pagination {
	return Pagination{Page: 1, PerPage: 10}
}

// ProjectPagination is the projects store's page cursor. It keeps the
// client-side names and is merged from the server's Pagination.
type ProjectPagination struct {
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	TotalCount  int  `json:"total_count"`
	PerPage     int  `json:"per_page"`
	HasNext     bool `json:"has_next"`
	HasPrev     bool `json:"has_prev"`
}

// DefaultProjectPagination is the cursor of a fresh projects store.
func DefaultProjectPagination() ProjectPagination {
	return ProjectPagination{CurrentPage: 1, TotalPages: 1, PerPage: 10}
}
