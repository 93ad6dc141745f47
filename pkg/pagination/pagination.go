package pagination

import (
	"fmt"
	"net/url"
	"strconv"
)

// Params is an offset window expressed as skip/limit.
type Params struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

// FromQuery reads skip and limit from q. A missing limit becomes defaultLimit;
// limits above maxLimit are clamped. Malformed or negative values are errors.
func FromQuery(q url.Values, defaultLimit, maxLimit int) (Params, error) {
	p := Params{Limit: defaultLimit}

	if v := q.Get("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Params{}, fmt.Errorf("skip must be a non-negative integer")
		}
		p.Skip = n
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Params{}, fmt.Errorf("limit must be a positive integer")
		}
		p.Limit = n
	}

	if maxLimit > 0 && p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p, nil
}

// Window returns the [skip, skip+limit) slice of items, or an empty slice when
// skip is past the end.
func Window[T any](items []T, p Params) []T {
	if p.Skip >= len(items) {
		return []T{}
	}
	end := len(items)
	if p.Limit > 0 && p.Skip+p.Limit < end {
		end = p.Skip + p.Limit
	}
	return items[p.Skip:end]
}
