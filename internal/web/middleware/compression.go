package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

// CompressionConfig holds configuration for the compression middleware
type CompressionConfig struct {
	// Level is the gzip compression level
	Level int
	// MinSize is the smallest body, in bytes, that is compressed
	MinSize int
}

// DefaultCompressionConfig compresses bodies of 1KB and more at level 6
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{Level: 6, MinSize: 1024}
}

// Compression gzips responses for clients that accept it. Output is held back
// until MinSize bytes have been written so that small bodies go out unencoded
// with consistent headers.
func Compression(config CompressionConfig) Middleware {
	pool := &sync.Pool{
		New: func() any {
			zw, err := gzip.NewWriterLevel(io.Discard, config.Level)
			if err != nil {
				zw = gzip.NewWriter(io.Discard)
			}
			return zw
		},
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Accept-Encoding")
			if r.Method == http.MethodHead || !acceptsGzip(r.Header.Get("Accept-Encoding")) {
				next.ServeHTTP(w, r)
				return
			}

			gw := &gzipResponseWriter{ResponseWriter: w, pool: pool, minSize: config.MinSize, status: http.StatusOK}
			defer gw.Close()

			next.ServeHTTP(gw, r)
		})
	}
}

func acceptsGzip(header string) bool {
	for _, part := range strings.Split(header, ",") {
		enc := strings.TrimSpace(part)
		if i := strings.IndexByte(enc, ';'); i >= 0 {
			if strings.Contains(enc[i:], "q=0") && !strings.Contains(enc[i:], "q=0.") {
				continue
			}
			enc = strings.TrimSpace(enc[:i])
		}
		if enc == "gzip" || enc == "*" {
			return true
		}
	}
	return false
}

// gzipResponseWriter buffers the start of the body to decide whether to compress
type gzipResponseWriter struct {
	http.ResponseWriter
	pool    *sync.Pool
	minSize int

	status      int
	wroteHeader bool
	started     bool
	buf         bytes.Buffer
	zw          *gzip.Writer
}

func (g *gzipResponseWriter) WriteHeader(status int) {
	if g.wroteHeader {
		return
	}
	g.wroteHeader = true
	g.status = status
}

func (g *gzipResponseWriter) Write(b []byte) (int, error) {
	if !g.wroteHeader {
		g.WriteHeader(http.StatusOK)
	}
	if g.started {
		if g.zw != nil {
			return g.zw.Write(b)
		}
		return g.ResponseWriter.Write(b)
	}

	g.buf.Write(b)
	if g.buf.Len() < g.minSize {
		return len(b), nil
	}
	if err := g.start(g.compressible()); err != nil {
		return 0, err
	}
	return len(b), nil
}

// start sends the header and flushes the buffered body
func (g *gzipResponseWriter) start(compress bool) error {
	g.started = true
	h := g.ResponseWriter.Header()
	if compress {
		h.Set("Content-Encoding", "gzip")
		h.Del("Content-Length")
		g.zw = g.pool.Get().(*gzip.Writer)
		g.zw.Reset(g.ResponseWriter)
	}
	g.ResponseWriter.WriteHeader(g.status)

	if g.buf.Len() == 0 {
		return nil
	}
	var err error
	if g.zw != nil {
		_, err = g.zw.Write(g.buf.Bytes())
	} else {
		_, err = g.ResponseWriter.Write(g.buf.Bytes())
	}
	g.buf.Reset()
	return err
}

func (g *gzipResponseWriter) compressible() bool {
	if g.status < http.StatusOK || g.status == http.StatusNoContent || g.status == http.StatusNotModified {
		return false
	}
	if g.ResponseWriter.Header().Get("Content-Encoding") != "" {
		return false
	}
	ct := g.ResponseWriter.Header().Get("Content-Type")
	for _, prefix := range []string{"image/", "video/", "audio/"} {
		if strings.HasPrefix(ct, prefix) {
			return false
		}
	}
	return true
}

// Close flushes any buffered body and returns the gzip writer to the pool
func (g *gzipResponseWriter) Close() error {
	if !g.started {
		if !g.wroteHeader && g.buf.Len() == 0 {
			return nil
		}
		if err := g.start(false); err != nil {
			return err
		}
	}
	if g.zw == nil {
		return nil
	}
	err := g.zw.Close()
	g.pool.Put(g.zw)
	g.zw = nil
	return err
}
