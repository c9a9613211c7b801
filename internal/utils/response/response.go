package response

import (
	"encoding/json"
	"net/http"

	"github.com/trellis-commerce/storefront-api/internal/errors"
)

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// Envelope is the uniform response body: {status, data} for success and fail,
// {status, message} for internal errors.
type Envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, v any) error {

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	return json.NewEncoder(w).Encode(v)
}

func Success(w http.ResponseWriter, statusCode int, data any) {
	WriteJSON(w, statusCode, Envelope{Status: StatusSuccess, Data: data})
}

// Fail writes a fail envelope whose data is a field -> reason map.
func Fail(w http.ResponseWriter, statusCode int, fields map[string]string) {
	WriteJSON(w, statusCode, Envelope{Status: StatusFail, Data: fields})
}

// Error translates an error into the envelope. AppErrors keep their status
// code and surface under their field name ("auth" for 401/403 unless set);
// anything else becomes a generic 500 error body, never an empty response.
func Error(w http.ResponseWriter, err error) {

	appErr, ok := errors.IsAppError(err)
	if !ok || appErr.StatusCode >= http.StatusInternalServerError {
		WriteJSON(w, http.StatusInternalServerError, Envelope{
			Status:  StatusError,
			Message: "an unexpected error occurred",
		})

		return
	}

	field := appErr.Field
	if field == "" {
		switch appErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			field = "auth"
		default:
			field = "message"
		}
	}

	Fail(w, appErr.StatusCode, map[string]string{field: appErr.Message})
}
