package api

import (
	"encoding/json"
	"net/http"

	"github.com/mailru/easyjson/jwriter"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// MarshalEasyJSON writes the envelope without reflection; only Details,
// which is free-form, goes through encoding/json.
func (e ErrorResponse) MarshalEasyJSON(w *jwriter.Writer) {
	a := e.Error
	w.RawString(`{"error":{"code":`)
	w.String(a.Code)
	w.RawString(`,"message":`)
	w.String(a.Message)
	if len(a.Details) > 0 {
		w.RawString(`,"details":`)
		b, err := json.Marshal(a.Details)
		w.Raw(b, err)
	}
	if a.RequestID != "" {
		w.RawString(`,"request_id":`)
		w.String(a.RequestID)
	}
	w.RawString(`}}`)
}

func WriteError(w http.ResponseWriter, status int, code, message, requestID string, details map[string]any) {
	WriteJSON(w, status, ErrorResponse{Error: APIError{Code: code, Message: message, Details: details, RequestID: requestID}})
}

func BadRequest(w http.ResponseWriter, code, message, requestID string, details map[string]any) {
	WriteError(w, http.StatusBadRequest, code, message, requestID, details)
}

func Unauthorized(w http.ResponseWriter, code, message, requestID string) {
	WriteError(w, http.StatusUnauthorized, code, message, requestID, nil)
}

func Forbidden(w http.ResponseWriter, code, message, requestID string) {
	WriteError(w, http.StatusForbidden, code, message, requestID, nil)
}

func UnsupportedMediaType(w http.ResponseWriter, code, message, requestID string, details map[string]any) {
	WriteError(w, http.StatusUnsupportedMediaType, code, message, requestID, details)
}

func UnprocessableEntity(w http.ResponseWriter, code, message, requestID string, details map[string]any) {
	WriteError(w, http.StatusUnprocessableEntity, code, message, requestID, details)
}

func RateLimited(w http.ResponseWriter, code, message, requestID string, details map[string]any) {
	WriteError(w, http.StatusTooManyRequests, code, message, requestID, details)
}

// ServiceUnavailable also asks clients to retry after 5 seconds.
func ServiceUnavailable(w http.ResponseWriter, code, message, requestID string) {
	w.Header().Set("Retry-After", "5")
	WriteError(w, http.StatusServiceUnavailable, code, message, requestID, nil)
}

func Internal(w http.ResponseWriter, requestID string) {
	WriteError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error", requestID, nil)
}
