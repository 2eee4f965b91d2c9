package router

import (
	"net/http"

	"github.com/inkwell-cms/inkwell/internal/web/response"
)

// NotFoundHandler renders a JSON:API 404 for unmatched paths
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	response.RenderNotFound(w, "No route matches "+r.URL.Path)
}

// MethodNotAllowedHandler renders a JSON:API 405 for unsupported methods
func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	response.RenderMethodNotAllowed(w)
}
