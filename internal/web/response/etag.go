package response

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// ETag returns a weak entity tag for an encoded response body
func ETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `W/"` + hex.EncodeToString(sum[:16]) + `"`
}

// RenderJSONAPIConditional renders v like RenderJSONAPI and tags it with an
// ETag. A GET or HEAD whose If-None-Match already names the tag gets a 304
// with no body.
func RenderJSONAPIConditional(w http.ResponseWriter, r *http.Request, status int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	etag := ETag(data)
	w.Header().Set("ETag", etag)
	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && noneMatch(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}

	w.Header().Set("Content-Type", JSONAPIMediaType)
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}

// noneMatch reports whether an If-None-Match header names etag, using weak
// comparison.
func noneMatch(header, etag string) bool {
	if header == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}
