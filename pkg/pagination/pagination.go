package pagination

import (
	"net/url"
	"strconv"

	apperrors "github.com/ConnorDW-SA/marketplace/pkg/errors"
)

// Query-string keys that carry the page window.
const (
	SkipKey  = "skip"
	LimitKey = "limit"
)

// Limits bounds the page size a client may request.
type Limits struct {
	Default int
	Max     int
}

// DefaultLimits returns the stock page size bounds.
func DefaultLimits() Limits {
	return Limits{Default: 20, Max: 100}
}

// Window is a skip/limit slice of an ordered result set.
type Window struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

// ParseWindow reads skip and limit from raw query-string values. Empty
// values fall back to 0 and the default limit. A limit that is zero,
// negative or non-numeric is rejected; one above the maximum is clamped.
func ParseWindow(rawSkip, rawLimit string, lim Limits) (Window, error) {
	w := Window{Skip: 0, Limit: lim.Default}

	if rawSkip != "" {
		v, err := strconv.Atoi(rawSkip)
		if err != nil || v < 0 {
			return Window{}, apperrors.Validation("invalid query", map[string]string{
				SkipKey: "must be a non-negative integer",
			})
		}
		w.Skip = v
	}

	if rawLimit != "" {
		v, err := strconv.Atoi(rawLimit)
		if err != nil || v <= 0 {
			return Window{}, apperrors.Validation("invalid query", map[string]string{
				LimitKey: "must be a positive integer",
			})
		}
		w.Limit = v
	}

	if lim.Max > 0 && w.Limit > lim.Max {
		w.Limit = lim.Max
	}
	return w, nil
}

// TotalPages returns ceil(total / limit). A non-positive limit yields 0.
func TotalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	pages := total / limit
	if total%limit > 0 {
		pages++
	}
	return pages
}

// Links are navigation URLs over a paginated collection. First and Last are
// always set; Prev and Next only when such a page exists.
type Links struct {
	First string `json:"first"`
	Prev  string `json:"prev,omitempty"`
	Next  string `json:"next,omitempty"`
	Last  string `json:"last"`
}

// BuildLinks derives navigation links from the base URL, the original query
// parameters, the current window and the total match count. Every link keeps
// the caller's filter, sort and projection parameters and only rewrites skip
// and limit.
func BuildLinks(base url.URL, params url.Values, w Window, total int) Links {
	link := func(skip int) string {
		q := make(url.Values, len(params)+2)
		for k, v := range params {
			q[k] = append([]string(nil), v...)
		}
		q.Set(SkipKey, strconv.Itoa(skip))
		q.Set(LimitKey, strconv.Itoa(w.Limit))

		u := base
		u.RawQuery = q.Encode()
		return u.String()
	}

	lastSkip := 0
	if pages := TotalPages(total, w.Limit); pages > 0 {
		lastSkip = (pages - 1) * w.Limit
	}

	links := Links{
		First: link(0),
		Last:  link(lastSkip),
	}
	if w.Skip > 0 {
		prev := w.Skip - w.Limit
		if prev < 0 {
			prev = 0
		}
		links.Prev = link(prev)
	}
	if w.Skip < total-w.Limit {
		links.Next = link(w.Skip + w.Limit)
	}
	return links
}
