package http

import "net/http"

// Handler is the Vercel function entry point. It serves the four backend routes
// selected by CHATFLOW_ENDPOINTS.
func Handler(w http.ResponseWriter, r *http.Request) {
	ServerlessHandler(w, r)
}
