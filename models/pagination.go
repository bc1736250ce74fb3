package models

// Pagination describes one page of a listing.
type Pagination struct {
	Current    int   `json:"current"`
	Total      int   `json:"total"`
	Count      int   `json:"count"`
	TotalItems int64 `json:"totalItems"`
}

// NewPagination builds page metadata; Total is ceil(totalItems/limit).
func NewPagination(page, limit, count int, totalItems int64) Pagination {
	return Pagination{
		Current:    page,
		Total:      TotalPages(totalItems, limit),
		Count:      count,
		TotalItems: totalItems,
	}
}

// TotalPages returns ceil(total/limit), or 0 when limit is not positive.
func TotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
