package analytics

// Pagination mirrors the list envelope returned by the HTTP API.
type Pagination struct {
	Size  int `json:"size"`
	Page  int `json:"page"`
	Count int `json:"count"`
}

// Page is one slice of a longer list.
type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// Paginate returns the 1-based page of items. Out-of-range pages are empty.
func Paginate[T any](items []T, page, size int) Page[T] {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	total := len(items)
	// compare before multiplying so huge page or size values cannot wrap
	pages := total / size
	if total%size != 0 {
		pages++
	}
	start := total
	if page-1 < pages {
		start = (page - 1) * size
	}
	end := total
	if size < total-start {
		end = start + size
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return Page[T]{
		Items:      out,
		Pagination: Pagination{Size: size, Page: page, Count: total},
	}
}
