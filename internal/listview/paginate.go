package listview

import "time"

// Meta is the pagination metadata exchanged with the backend and returned to
// the UI.
type Meta struct {
	ItemCount       int  `json:"itemCount"`
	PageCount       int  `json:"pageCount"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
	Page            int  `json:"page"`
	Limit           int  `json:"limit"`
}

// Page is the visible slice of a list plus display metadata. From and To are
// 1-based inclusive positions; both are 0 for an empty list.
type Page[T any] struct {
	Rows []T `json:"rows"`
	Meta Meta `json:"meta"`
	From int  `json:"from"`
	To   int  `json:"to"`
}

// TotalPages is ceil(total/size) floored at 1.
func TotalPages(total, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := (total + size - 1) / size
	if pages < 1 {
		return 1
	}
	return pages
}

// ClampPage bounds page into [1, TotalPages(total, size)].
func ClampPage(page, total, size int) int {
	last := TotalPages(total, size)
	if page > last {
		return last
	}
	if page < 1 {
		return 1
	}
	return page
}

// Paginate slices rows into the requested window. Out-of-range pages are
// clamped to the nearest valid page rather than rejected.
func Paginate[T any](rows []T, w PageWindow) Page[T] {
	w = w.Normalize()
	total := len(rows)
	pages := TotalPages(total, w.Size)
	page := ClampPage(w.Page, total, w.Size)
	start := (page - 1) * w.Size
	end := min(start+w.Size, total)

	visible := make([]T, 0, end-start)
	visible = append(visible, rows[start:end]...)

	p := Page[T]{
		Rows: visible,
		Meta: Meta{
			ItemCount:       total,
			PageCount:       pages,
			HasNextPage:     page < pages,
			HasPreviousPage: page > 1,
			Page:            page,
			Limit:           w.Size,
		},
	}
	if end > start {
		p.From = start + 1
		p.To = end
	}
	return p
}

// Passthrough wraps a server-paged result without re-slicing it.
func Passthrough[T any](rows []T, meta Meta) Page[T] {
	if rows == nil {
		rows = []T{}
	}
	if meta.PageCount < 1 {
		meta.PageCount = 1
	}
	if meta.Page < 1 {
		meta.Page = 1
	}
	p := Page[T]{Rows: rows, Meta: meta}
	if len(rows) > 0 {
		p.From = (meta.Page-1)*meta.Limit + 1
		p.To = p.From + len(rows) - 1
	}
	return p
}

// Run filters, sorts and paginates rows in one pass.
func Run[T any](schema *Schema[T], rows []T, st State, now time.Time) Page[T] {
	filtered := Filter(schema, rows, st.Filter, now)
	sorted := Sort(schema, filtered, st.Sort)
	return Paginate(sorted, st.Window)
}
