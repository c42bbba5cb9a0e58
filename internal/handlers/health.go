package handlers

import "net/http"

// Health is a trivial liveness probe.
// (GET /health)
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
