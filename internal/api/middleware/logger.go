package middleware

import (
	"net/http"
	"time"

	"github.com/pratik-mahalle/ec2-automations/internal/pkg/logger"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
	fields     map[string]interface{}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// AddLogField adds a field to the request log
func AddLogField(w http.ResponseWriter, key string, value interface{}) {
	if rw, ok := w.(*responseWriter); ok {
		rw.fields[key] = value
	}
}

// Logger returns a middleware that logs HTTP requests
func Logger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				fields:         make(map[string]interface{}),
			}

			next.ServeHTTP(wrapped, r)

			fields := map[string]interface{}{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     wrapped.statusCode,
				"duration":   time.Since(start).Milliseconds(),
				"bytes":      wrapped.written,
				"ip":         r.RemoteAddr,
				"request_id": GetRequestID(r),
			}
			for k, v := range wrapped.fields {
				fields[k] = v
			}

			entry := log.WithFields(fields)
			if wrapped.statusCode >= http.StatusInternalServerError {
				entry.Warn("HTTP request")
				return
			}
			entry.Info("HTTP request")
		})
	}
}
