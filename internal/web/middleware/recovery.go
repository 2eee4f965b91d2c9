package middleware

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/inkwell-cms/inkwell/internal/web/response"
)

// Recovery turns a handler panic into a 500 error document and logs the
// panic value with its stack. http.ErrAbortHandler is re-panicked so the
// server can abort the connection.
func Recovery(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic recovered",
					RequestIDField(r.Context()),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Error(panicError(rec)),
					zap.StackSkip("stack", 2),
				)
				response.RenderInternalError(w)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func panicError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", v)
}
