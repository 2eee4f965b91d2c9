// Package response renders JSON:API and plain JSON responses
package response

import (
	"mime"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

const (
	// JSONAPIMediaType is the official JSON:API media type
	JSONAPIMediaType = "application/vnd.api+json"
	// JSONMediaType is the plain JSON media type
	JSONMediaType = "application/json"
)

// IsJSONBody reports whether the request body is declared as JSON or JSON:API.
// A missing Content-Type is accepted.
func IsJSONBody(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return true
	}

	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.Contains(ct, "json")
	}
	return mediaType == JSONAPIMediaType || mediaType == JSONMediaType
}

// RenderJSONAPI writes v as a JSON:API document with the given status
func RenderJSONAPI(w http.ResponseWriter, status int, v any) error {
	return render(w, status, JSONAPIMediaType, v)
}

// RenderJSON writes v as plain JSON with the given status
func RenderJSON(w http.ResponseWriter, status int, v any) error {
	return render(w, status, JSONMediaType+"; charset=utf-8", v)
}

// NoContent writes a 204 with no body
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func render(w http.ResponseWriter, status int, contentType string, v any) error {
	// Marshal before touching the response so a failure leaves it unwritten
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}
