package utils

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type PageMeta struct {
	Page       int `json:"page"`
	Size       int `json:"size"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// Paginate returns the 1-based page of items. Out of range pages yield an
// empty slice with the meta still describing the full set.
func Paginate[T any](items []T, page, size int) ([]T, PageMeta) {
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if page < 1 {
		page = 1
	}

	total := len(items)
	meta := PageMeta{
		Page:       page,
		Size:       size,
		TotalItems: total,
		TotalPages: (total + size - 1) / size,
	}

	if page > meta.TotalPages {
		return []T{}, meta
	}
	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	return items[start:end], meta
}
