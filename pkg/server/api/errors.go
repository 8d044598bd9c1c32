package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/aditya-xq/PicToWebP/pkg/convert"
	"github.com/aditya-xq/PicToWebP/pkg/convexec"
	"github.com/aditya-xq/PicToWebP/pkg/runs"
)

// ErrorResponse is the standard JSON error envelope, used consistently
// across all API endpoints.
//
// Example:
//
//	{
//	  "error": "Not Found",
//	  "code": "RUN_NOT_FOUND",
//	  "message": "conversion run \"b2f1...\" not found"
//	}
type ErrorResponse struct {
	Error   string `json:"error"`             // Short error type (e.g., "Not Found")
	Code    string `json:"code,omitempty"`    // Machine-readable error code (e.g., "RUN_NOT_FOUND")
	Message string `json:"message,omitempty"` // Detailed error message (optional)
}

// WriteError writes a standard JSON error response, mapping the error type
// to an HTTP status:
//   - runs.NotFoundError -> 404 Not Found
//   - convert.DiscoveryError, convexec.ErrOutputInsideSource -> 400 Bad Request
//   - everything else -> 500 Internal Server Error
//
// It also logs the error with structured fields.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var statusCode int
	var errorType string
	var errorCode string

	var notFoundErr *runs.NotFoundError
	var discoveryErr *convert.DiscoveryError
	switch {
	case errors.As(err, &notFoundErr):
		statusCode = http.StatusNotFound
		errorType = "Not Found"
		errorCode = "RUN_NOT_FOUND"
	case errors.As(err, &discoveryErr):
		statusCode = http.StatusBadRequest
		errorType = "Bad Request"
		errorCode = "INVALID_SOURCE_FOLDER"
	case errors.Is(err, convexec.ErrOutputInsideSource):
		statusCode = http.StatusBadRequest
		errorType = "Bad Request"
		errorCode = "INVALID_OUTPUT_FOLDER"
	default:
		statusCode = http.StatusInternalServerError
		errorType = "Internal Server Error"
		errorCode = "INTERNAL_ERROR"
	}

	logEvent := log.Error().
		Str("component", "api").
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", statusCode).
		Str("error_code", errorCode).
		Err(err)

	switch {
	case statusCode == http.StatusNotFound:
		logEvent.Msg("Resource not found")
	case statusCode >= 500:
		logEvent.Msg("Internal server error")
	default:
		logEvent.Msg("Client error")
	}

	writeErrorResponse(w, statusCode, ErrorResponse{
		Error:   errorType,
		Code:    errorCode,
		Message: err.Error(),
	})
}

// WriteJSONError writes a custom JSON error response with a specific status
// code. Use this when you need fine-grained control over the error response.
//
// Example:
//
//	WriteJSONError(w, http.StatusBadRequest, "Bad Request", "SOURCE_FOLDER_REQUIRED", "source_folder is required")
func WriteJSONError(w http.ResponseWriter, statusCode int, errorType, errorCode, message string) {
	writeErrorResponse(w, statusCode, ErrorResponse{
		Error:   errorType,
		Code:    errorCode,
		Message: message,
	})
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, response ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().
			Str("component", "api").
			Err(err).
			Msg("Failed to encode error response")
	}
}

// WriteJSON writes a JSON response to the client.
// Use this for successful API responses.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().
			Str("component", "api").
			Err(err).
			Msg("Failed to encode JSON response")
	}
}
