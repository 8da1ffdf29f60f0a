package viewmodel

import (
	"net/url"
	"strconv"
)

// Ellipsis markers returned by Window. They are negative so they never collide
// with a page number, and distinct so each can key its own rendered node.
const (
	Ellipsis     = -1
	EllipsisTail = -2
)

// Windowing thresholds for Window.
const (
	windowMinPages  = 13
	windowEdgeRun   = 7
	windowTailRun   = 6
	windowNearStart = 6
	windowNearEnd   = 5
	windowHeadRun   = 4
	windowShortTail = 3
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Window returns the page numbers to render for a table with totalPages pages
// while currentPage (1-based) is selected. Ellipsis markers are negative.
//
// Fewer than 13 pages are listed in full. Near either edge the output is the
// first 7 pages, one ellipsis, and the last 6; otherwise it is the first 4, an
// ellipsis, the current page with its neighbours, a second ellipsis, and the
// last 3. Out-of-range currentPage values follow the same arithmetic.
func Window(totalPages, currentPage int) []int {
	if totalPages < windowMinPages {
		return pageRange(1, totalPages)
	}

	if currentPage < windowNearStart || totalPages-currentPage < windowNearEnd {
		out := make([]int, 0, windowEdgeRun+1+windowTailRun)
		out = append(out, pageRange(1, windowEdgeRun)...)
		out = append(out, Ellipsis)
		return append(out, pageRange(totalPages-windowTailRun+1, totalPages)...)
	}

	out := make([]int, 0, windowHeadRun+1+3+1+windowShortTail)
	out = append(out, pageRange(1, windowHeadRun)...)
	out = append(out, Ellipsis)
	out = append(out, pageRange(currentPage-1, currentPage+1)...)
	out = append(out, EllipsisTail)
	return append(out, pageRange(totalPages-windowShortTail+1, totalPages)...)
}

// ShouldRender reports whether a Window result warrants a pagination control.
func ShouldRender(pages []int) bool {
	return len(pages) >= 2
}

// IsEllipsis reports whether a Window entry is an ellipsis marker.
func IsEllipsis(page int) bool { return page < 0 }

// PageCount returns how many pages rowCount rows fill at pageSize rows per page.
func PageCount(rowCount, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if rowCount <= 0 {
		return 0
	}
	return (rowCount + pageSize - 1) / pageSize
}

// PageParams parses pagination params from URL query with sane defaults.
func PageParams(q url.Values) (int, int) {
	page := 1
	pageSize := DefaultPageSize
	if p := q.Get("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			page = n
		}
	}
	if s := q.Get("page_size"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= MaxPageSize {
			pageSize = n
		}
	}
	return page, pageSize
}

// PageLink is one entry of the rendered pagination control.
type PageLink struct {
	Page     int  `json:"page"`
	Active   bool `json:"active,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
}

// Pagination contains pagination metadata for list views.
type Pagination struct {
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	HasPrev    bool       `json:"has_prev"`
	HasNext    bool       `json:"has_next"`
	StartIndex int        `json:"start_index"`
	EndIndex   int        `json:"end_index"`
	TotalCount int        `json:"total_count"`
	TotalPages int        `json:"total_pages"`
	Links      []PageLink `json:"links,omitempty"`
}

// NewPagination builds the view model for page (1-based) of a list holding
// totalCount rows. Links is empty when there is nothing to paginate.
func NewPagination(page, pageSize, totalCount int) Pagination {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	totalPages := PageCount(totalCount, pageSize)

	p := Pagination{
		Page:       page,
		PageSize:   pageSize,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}

	if offset := (page - 1) * pageSize; offset < totalCount {
		p.StartIndex = offset + 1
		p.EndIndex = min(offset+pageSize, totalCount)
	}

	pages := Window(totalPages, page)
	if !ShouldRender(pages) {
		return p
	}
	p.Links = make([]PageLink, 0, len(pages))
	for _, n := range pages {
		p.Links = append(p.Links, PageLink{Page: n, Active: n == page, Ellipsis: IsEllipsis(n)})
	}
	return p
}

func pageRange(from, to int) []int {
	if to < from {
		return []int{}
	}
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}
