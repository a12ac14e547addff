package middleware

import (
	"net/http"
	"time"

	"github.com/nkiryanov/greenpoints/internal/handlers/userctx"
)

type logger interface {
	Info(msg string, args ...any)
}

// Captures what the handler chain answered
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	w.size += n
	return n, err
}

func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// AccessLog writes one line per request. Requests that passed auth also carry the caller's account and role
func AccessLog(l logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			ctx, caller := userctx.Track(r.Context())
			r = r.WithContext(ctx)

			next.ServeHTTP(rec, r)

			args := []any{
				"method", r.Method,
				"uri", r.RequestURI,
				"route", r.Pattern,
				"status", rec.status,
				"size", rec.size,
				"duration", time.Since(start),
			}
			if p, ok := caller(); ok {
				args = append(args, "account_id", p.AccountID.String(), "role", p.Role)
			}

			l.Info("HTTP request served", args...)
		})
	}
}
