package utils

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/chatflow-dev/chatflow/constants"
)

// ============================================================================
// JSON HELPERS
// ============================================================================

// MustMarshalJSON marshals to JSON and panics on error.
func MustMarshalJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// PrettyJSON renders v as indented JSON, falling back to %v formatting.
func PrettyJSON(v any) string {
	data, err := json.MarshalIndent(v, "", constants.JSONIndent)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// ============================================================================
// HTTP HELPERS
// ============================================================================

// HTTPErrorResponse is the body written for every failed backend call.
type HTTPErrorResponse struct {
	Error string `json:"error"`
}

// WriteHTTPError writes a JSON error body with the given status.
func WriteHTTPError(w http.ResponseWriter, message string, code int) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(code)
	data, err := json.Marshal(HTTPErrorResponse{Error: message})
	if err != nil {
		fmt.Fprintf(w, "Error: %s", message)
		return
	}
	_, _ = w.Write(data)
}

// WriteHTTPJSON writes v as a JSON response with status 200.
func WriteHTTPJSON(w http.ResponseWriter, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		WriteHTTPError(w, "Failed to encode response", http.StatusInternalServerError)
		return err
	}
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	_, err = w.Write(data)
	return err
}
