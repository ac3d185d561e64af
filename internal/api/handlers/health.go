package handlers

import (
	"net/http"

	"github.com/go-kit/log"
)

// Health provides a minimal liveness check endpoint.
func Health(logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := map[string]string{"status": "ok"}
		writeJSON(w, r, logger, http.StatusOK, res)
	}
}
