package mw

import (
	"encoding/json"
	"net/http"
)

// reject writes the REST error shape used across the service.
func reject(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":    code,
		"message": http.StatusText(status),
		"data":    map[string]int{"status": status},
	})
}
