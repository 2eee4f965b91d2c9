package middleware

import "net/http"

// DefaultSecurityHeaders are the hardening headers set on every response
var DefaultSecurityHeaders = map[string]string{
	"Content-Security-Policy":           "default-src 'self'; frame-ancestors 'self'; object-src 'none'",
	"Cross-Origin-Opener-Policy":        "same-origin",
	"Cross-Origin-Resource-Policy":      "same-origin",
	"Origin-Agent-Cluster":              "?1",
	"Referrer-Policy":                   "no-referrer",
	"Strict-Transport-Security":         "max-age=15552000; includeSubDomains",
	"X-Content-Type-Options":            "nosniff",
	"X-DNS-Prefetch-Control":            "off",
	"X-Download-Options":                "noopen",
	"X-Frame-Options":                   "SAMEORIGIN",
	"X-Permitted-Cross-Domain-Policies": "none",
	"X-XSS-Protection":                  "0",
}

// SecurityHeaders sets DefaultSecurityHeaders before calling next
func SecurityHeaders() Middleware {
	return SecurityHeadersWith(DefaultSecurityHeaders)
}

// SecurityHeadersWith sets the given headers before calling next
func SecurityHeadersWith(headers map[string]string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for k, v := range headers {
				h.Set(k, v)
			}
			next.ServeHTTP(w, r)
		})
	}
}
