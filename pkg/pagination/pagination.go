package pagination

import (
	"math"
	"net/http"
	"strconv"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100

	// maxPage keeps (page-1)*perPage within int for any accepted perPage.
	maxPage = math.MaxInt / maxPerPage
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int
	PerPage int
	Offset  int
}

// FromRequest reads ?page= and ?limit= from r. Missing or out-of-range values
// fall back to page 1 and 20 items per page.
func FromRequest(r *http.Request) Params {
	q := r.URL.Query()
	return New(atoi(q.Get("page")), atoi(q.Get("limit")))
}

// New normalises page and perPage and computes the row offset.
func New(page, perPage int) Params {
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if perPage < 1 || perPage > maxPerPage {
		perPage = defaultPerPage
	}
	return Params{
		Page:    page,
		PerPage: perPage,
		Offset:  (page - 1) * perPage,
	}
}

func atoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
