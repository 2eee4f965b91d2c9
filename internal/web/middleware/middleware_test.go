package middleware

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inkwell-cms/inkwell/internal/metrics"
)

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.api+json")
		w.Write([]byte(body))
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	chain := NewChain(mark("first")).Use(mark("second"), mark("third"))
	if chain.Len() != 3 {
		t.Fatalf("Expected 3 middleware, got %d", chain.Len())
	}

	chain.Then(okHandler("")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if strings.Join(order, ",") != "first,second,third" {
		t.Errorf("Expected first,second,third, got %v", order)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" {
		t.Fatal("Expected a generated request ID")
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("Expected response header %q, got %q", seen, rec.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc-123" {
		t.Errorf("Expected client request ID to be reused, got %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 500))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if len(seen) > maxRequestIDLength {
		t.Errorf("Expected oversized request ID to be replaced, got %d bytes", len(seen))
	}
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	m := metrics.New()

	handler := RequestID()(AccessLog(AccessLogConfig{
		Logger:    zap.New(core),
		Metrics:   m,
		SkipPaths: []string{"/healthz"},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/boom":
			w.WriteHeader(http.StatusInternalServerError)
		}
		w.Write([]byte("body"))
	})))

	for _, path := range []string{"/api/stories", "/missing", "/boom", "/healthz"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("Expected 3 log entries, got %d", len(entries))
	}

	wantLevels := []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, entry := range entries {
		if entry.Level != wantLevels[i] {
			t.Errorf("entry %d: expected level %s, got %s", i, wantLevels[i], entry.Level)
		}
		fields := entry.ContextMap()
		if fields["request_id"] == "" {
			t.Errorf("entry %d: missing request_id", i)
		}
		if fields["bytes"] != int64(4) {
			t.Errorf("entry %d: expected 4 bytes, got %v", i, fields["bytes"])
		}
	}

	var out bytes.Buffer
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	out.Write(rec.Body.Bytes())
	if !strings.Contains(out.String(), `inkwell_http_requests_total{method="GET",status="200"} 2`) {
		t.Errorf("Expected two 200 requests in metrics, got:\n%s", out.String())
	}
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	handler := Recovery(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(errors.New("nil map write"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stories", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "nil map write") {
		t.Error("Panic value leaked into the response")
	}
	if !strings.Contains(rec.Body.String(), `"errors"`) {
		t.Errorf("Expected an error document, got %s", rec.Body.String())
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Error("Expected the panic to be logged")
	}
}

func TestRecoveryReraisesAbort(t *testing.T) {
	handler := Recovery(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if p := recover(); p != http.ErrAbortHandler {
			t.Errorf("Expected ErrAbortHandler to propagate, got %v", p)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders()(okHandler("")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	for k, v := range DefaultSecurityHeaders {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s: expected %q, got %q", k, v, got)
		}
	}
}

func TestCORS(t *testing.T) {
	handler := CORS(DefaultCORSConfig("http://admin.local", "*.example.com"))(okHandler("ok"))

	tests := []struct {
		name        string
		method      string
		origin      string
		preflight   bool
		wantStatus  int
		wantAllowed string
	}{
		{"allowed origin", http.MethodGet, "http://admin.local", false, http.StatusOK, "http://admin.local"},
		{"subdomain", http.MethodGet, "https://cms.example.com", false, http.StatusOK, "https://cms.example.com"},
		{"disallowed origin", http.MethodGet, "http://evil.test", false, http.StatusOK, ""},
		{"preflight", http.MethodOptions, "http://admin.local", true, http.StatusNoContent, "http://admin.local"},
		{"plain options", http.MethodOptions, "http://admin.local", false, http.StatusOK, "http://admin.local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/stories", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllowed {
				t.Errorf("Expected allow-origin %q, got %q", tt.wantAllowed, got)
			}
			if tt.preflight && !strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch) {
				t.Error("Expected PATCH in allowed methods")
			}
		})
	}
}

func TestCORSDisabled(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://admin.local")
	rec := httptest.NewRecorder()
	CORS(DefaultCORSConfig())(okHandler("ok")).ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("Expected no CORS headers without configured origins")
	}
}

func TestCompression(t *testing.T) {
	large := strings.Repeat(`{"type":"stories"}`, 200)

	tests := []struct {
		name           string
		acceptEncoding string
		body           string
		wantGzip       bool
	}{
		{"large body compressed", "gzip, deflate", large, true},
		{"small body passes through", "gzip", "tiny", false},
		{"client without gzip", "identity", large, false},
		{"gzip refused", "gzip;q=0", large, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/stories", nil)
			req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			rec := httptest.NewRecorder()

			Compression(DefaultCompressionConfig())(okHandler(tt.body)).ServeHTTP(rec, req)

			gotGzip := rec.Header().Get("Content-Encoding") == "gzip"
			if gotGzip != tt.wantGzip {
				t.Fatalf("Expected gzip=%v, got %v", tt.wantGzip, gotGzip)
			}

			body := rec.Body.Bytes()
			if gotGzip {
				zr, err := gzip.NewReader(bytes.NewReader(body))
				if err != nil {
					t.Fatalf("gzip reader: %v", err)
				}
				body, err = io.ReadAll(zr)
				if err != nil {
					t.Fatalf("gunzip: %v", err)
				}
			}
			if string(body) != tt.body {
				t.Errorf("Body mismatch: got %d bytes, want %d", len(body), len(tt.body))
			}
		})
	}
}

func TestCompressionNoContent(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/api/stories/1", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()

	Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 || rec.Header().Get("Content-Encoding") != "" {
		t.Error("Expected an empty, unencoded 204")
	}
}

func TestTimeout(t *testing.T) {
	handler := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Handler", "yes")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("OK"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusCreated || rec.Body.String() != "OK" {
		t.Errorf("Expected 201 OK, got %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Handler") != "yes" {
		t.Error("Expected handler headers to be copied")
	}
}

func TestTimeoutExceeded(t *testing.T) {
	cancelled := make(chan struct{})
	handler := Timeout(50 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		close(cancelled)
		w.Write([]byte("late"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("Expected status 504, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), TimeoutMessage) {
		t.Errorf("Expected timeout message, got %s", rec.Body.String())
	}

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Error("Expected the handler context to be cancelled")
	}
}

func TestTimeoutPanicPropagates(t *testing.T) {
	handler := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	defer func() {
		if p := recover(); p != "boom" {
			t.Errorf("Expected panic to propagate, got %v", p)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
