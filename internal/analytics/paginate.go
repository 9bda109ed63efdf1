package analytics

// DefaultPageSize matches the dashboard's table size.
const DefaultPageSize = 10

// Page is one slice of an ordered collection.
type Page[T any] struct {
	Items       []T `json:"items"`
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalItems  int `json:"totalItems"`
	PageSize    int `json:"limit"`
}

// Paginate returns the 1-indexed page of items. Out-of-range page numbers are
// clamped to the first or last page instead of failing. An empty collection
// yields page 1 of 0 with no items.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(items)
	pages := (total + size - 1) / size

	if page > pages {
		page = pages
	}
	if page < 1 {
		page = 1
	}

	p := Page[T]{
		Items:       []T{},
		CurrentPage: page,
		TotalPages:  pages,
		TotalItems:  total,
		PageSize:    size,
	}
	if total == 0 {
		return p
	}
	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	p.Items = append(p.Items, items[start:end]...)
	return p
}
