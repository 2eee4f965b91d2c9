package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/inkwell-cms/inkwell/internal/document"
	"github.com/inkwell-cms/inkwell/internal/resource"
	"github.com/inkwell-cms/inkwell/internal/store"
)

// User-facing request validation messages
const (
	MsgClientID        = "Client generated IDs is not supported. Remove the `id` member and try again."
	MsgUpdateID        = "All update requests must contain the `id` member."
	MsgIDMismatch      = "The ID found in the request URI does not match the value of the `id` member."
	MsgBodyTooLarge    = "The request body is too large."
	MsgUnsupportedType = "Request bodies must be sent as application/json or application/vnd.api+json."
	MsgInternal        = "An unexpected error occurred"
)

// ErrNotImplemented is returned by the relationship mutation endpoints
var ErrNotImplemented = errors.New("Modifying relationships via the `related` link is not yet available.")

// Error is an error with the HTTP status and message sent to the client
type Error struct {
	Status  int
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

func badRequest(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

// notFoundRecord maps a store miss onto the client-facing message
func notFoundRecord(id string, err error) *Error {
	return &Error{Status: http.StatusNotFound, Message: "No record found for ID: " + id, Err: err}
}

// toError classifies err into the status and message returned to the client.
// Anything unrecognised becomes a 500 with a generic message.
func toError(err error) *Error {
	var (
		apiErr  *Error
		tooBig  *http.MaxBytesError
		invalid *document.ValidationError
		lookup  *resource.LookupError
	)

	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &tooBig):
		return &Error{Status: http.StatusRequestEntityTooLarge, Message: MsgBodyTooLarge, Err: err}
	case errors.As(err, &invalid):
		return &Error{Status: http.StatusBadRequest, Message: invalid.Message, Err: err}
	case errors.As(err, &lookup):
		return &Error{Status: http.StatusNotFound, Message: lookup.Error(), Err: err}
	case store.IsNotFound(err):
		return &Error{Status: http.StatusNotFound, Message: "No record found", Err: err}
	case errors.Is(err, ErrNotImplemented):
		return &Error{Status: http.StatusNotImplemented, Message: ErrNotImplemented.Error(), Err: err}
	default:
		return &Error{Status: http.StatusInternalServerError, Message: MsgInternal, Err: err}
	}
}
