package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
)

// ErrHttp is a json error response model for http handlers.
type ErrHttp struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

// SendJsonErr writes the error as a json response body with the
// corresponding status code.
func (e *ErrHttp) SendJsonErr(w http.ResponseWriter) {

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)

	if err := json.NewEncoder(w).Encode(e); err != nil {
		// status is already committed, nothing left to send the caller
		slog.Default().Error(fmt.Sprintf("failed to encode json error response: %v", err))
	}
}
