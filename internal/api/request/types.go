package request

import (
	"net/http"
	"strconv"
)

// Results query bounds
const (
	DefaultResultsLimit = 10
	MaxResultsLimit     = 100
)

// ParseLimit reads the optional "limit" query parameter. Missing means def;
// values above max are clamped.
func ParseLimit(r *http.Request, def, max int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return min(n, max), true
}
