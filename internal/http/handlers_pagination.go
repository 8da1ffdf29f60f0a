package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/serm-lab/admin-console/internal/http/ui/viewmodel"
)

type paginationResponse struct {
	Pages      []int                `json:"pages"`
	Render     bool                 `json:"render"`
	Pagination viewmodel.Pagination `json:"pagination"`
}

// paginationHandler computes the page window for a data table.
// GET /api/pagination?total=<pages>&page=<n> or ?rows=<count>&page_size=<n>&page=<n>.
func paginationHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, pageSize := viewmodel.PageParams(q)

	var total, rows int
	switch {
	case q.Get("total") != "":
		n, err := strconv.Atoi(q.Get("total"))
		if err != nil {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_total", Err: errors.New("total must be an integer"), Field: "total"})
			return
		}
		total = max(n, 0)
		rows = total * pageSize
	case q.Get("rows") != "":
		n, err := strconv.Atoi(q.Get("rows"))
		if err != nil {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_rows", Err: errors.New("rows must be an integer"), Field: "rows"})
			return
		}
		rows = max(n, 0)
		total = viewmodel.PageCount(rows, pageSize)
	default:
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_total", Err: errors.New("total or rows is required")})
		return
	}

	pages := viewmodel.Window(total, page)
	WriteJSON(w, http.StatusOK, paginationResponse{
		Pages:      pages,
		Render:     viewmodel.ShouldRender(pages),
		Pagination: viewmodel.NewPagination(page, pageSize, rows),
	})
}
