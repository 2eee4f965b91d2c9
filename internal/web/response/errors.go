package response

import (
	"net/http"
	"strconv"
)

// ErrorObject is a JSON:API error object
type ErrorObject struct {
	Status string `json:"status"`
	Code   string `json:"code"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

// ErrorDocument is the top-level document for error responses
type ErrorDocument struct {
	Errors []ErrorObject `json:"errors"`
}

// NewErrorObject builds an error object for status with a human-readable detail
func NewErrorObject(status int, detail string) ErrorObject {
	return ErrorObject{
		Status: strconv.Itoa(status),
		Code:   errorCodeFromStatus(status),
		Title:  http.StatusText(status),
		Detail: detail,
	}
}

// RenderError renders a single error as a JSON:API error document
func RenderError(w http.ResponseWriter, status int, detail string) {
	RenderErrors(w, status, NewErrorObject(status, detail))
}

// RenderErrors renders one or more error objects under a single status
func RenderErrors(w http.ResponseWriter, status int, errs ...ErrorObject) {
	_ = RenderJSONAPI(w, status, ErrorDocument{Errors: errs})
}

// RenderNotFound renders a 404 error
func RenderNotFound(w http.ResponseWriter, detail string) {
	if detail == "" {
		detail = "Resource not found"
	}
	RenderError(w, http.StatusNotFound, detail)
}

// RenderMethodNotAllowed renders a 405 error
func RenderMethodNotAllowed(w http.ResponseWriter) {
	RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// RenderInternalError renders a 500 error. Internal details are never exposed.
func RenderInternalError(w http.ResponseWriter) {
	RenderError(w, http.StatusInternalServerError, "An unexpected error occurred")
}

// errorCodeFromStatus maps HTTP status codes to error codes
func errorCodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusRequestEntityTooLarge:
		return "request_too_large"
	case http.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	case http.StatusInternalServerError:
		return "internal_error"
	case http.StatusNotImplemented:
		return "not_implemented"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	case http.StatusGatewayTimeout:
		return "gateway_timeout"
	default:
		return "error"
	}
}
