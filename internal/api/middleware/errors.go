package middleware

import (
	"encoding/json"
	"net/http"
)

// Same body shape as dto.ErrorResponse; middleware cannot import dto.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
