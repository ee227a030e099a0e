package response

import (
	"encoding/json"
	"net/http"
)

// JSON writes data as a JSON response. Room state changes constantly, so
// responses are marked uncacheable. Encoding happens before the status is
// written; a value that cannot be encoded becomes a bare 500.
func JSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
