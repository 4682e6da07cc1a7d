package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/EliasAN1/Stacktictoe/internal/api/apierr"
)

// Recovery turns handler panics into JSON 500 responses. Once a connection
// has been upgraded there is nothing left to write, so the panic is only logged.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				logger.Error("panic recovered",
					slog.Any("error", err),
					slog.String("stack", string(debug.Stack())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				if rw, ok := w.(*ResponseWriter); ok && rw.Hijacked() {
					return
				}
				apierr.WriteError(w, apierr.NewInternalError())
			}()

			next.ServeHTTP(w, r)
		})
	}
}
