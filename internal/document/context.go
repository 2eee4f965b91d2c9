package document

import (
	"net/http"
	"strings"
)

// RequestContext carries what serialization needs from the inbound request
// to build absolute links.
type RequestContext struct {
	// BaseURL is scheme://host with no trailing slash
	BaseURL string
	// Prefix is the API mount point, e.g. "/api"
	Prefix string
	// Path is the request path, used as the document self link
	Path string
}

// NewRequestContext derives link parameters from r. When trustProxy is set,
// X-Forwarded-Proto and X-Forwarded-Host override the connection values.
func NewRequestContext(r *http.Request, prefix string, trustProxy bool) RequestContext {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host

	if trustProxy {
		if proto := firstForwarded(r.Header.Get("X-Forwarded-Proto")); proto != "" {
			scheme = strings.ToLower(proto)
		}
		if fwdHost := firstForwarded(r.Header.Get("X-Forwarded-Host")); fwdHost != "" {
			host = fwdHost
		}
	}

	return RequestContext{
		BaseURL: scheme + "://" + host,
		Prefix:  strings.TrimRight(prefix, "/"),
		Path:    r.URL.Path,
	}
}

func firstForwarded(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

// Self returns the absolute URL of the current request
func (c RequestContext) Self() string {
	return c.BaseURL + c.Path
}

// CollectionURL returns the absolute URL of a resource collection
func (c RequestContext) CollectionURL(typ string) string {
	return c.BaseURL + c.Prefix + "/" + typ
}

// ResourceURL returns the absolute URL of a single resource
func (c RequestContext) ResourceURL(typ, id string) string {
	return c.CollectionURL(typ) + "/" + id
}
