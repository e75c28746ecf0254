package pagination

// Metadata describes the page returned alongside the data.
type Metadata struct {
	Total      int64 `json:"total"`       // Items across all pages
	Page       int   `json:"page"`        // Current page number (1-based)
	Limit      int   `json:"limit"`       // Items per page
	TotalPages int   `json:"total_pages"` // ceil(Total / Limit), at least 1
}

// NewMetadata builds the metadata of page p out of total items.
func NewMetadata(total int64, p Params) Metadata {
	return Metadata{
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: CalculateTotalPages(total, p.Limit),
	}
}

// Response is the envelope of a paginated list.
type Response[T any] struct {
	Data       []T      `json:"data"`
	Pagination Metadata `json:"pagination"`
}

// NewResponse wraps data and its metadata. A nil data slice encodes as [].
func NewResponse[T any](data []T, metadata Metadata) Response[T] {
	if data == nil {
		data = []T{}
	}
	return Response[T]{
		Data:       data,
		Pagination: metadata,
	}
}
