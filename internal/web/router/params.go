package router

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// Param returns the unescaped value of a path parameter, or "" if absent
func Param(r *http.Request, name string) string {
	value := chi.URLParam(r, name)
	if unescaped, err := url.PathUnescape(value); err == nil {
		return unescaped
	}
	return value
}
