package middleware

import (
	"log/slog"
	"net/http"
	"strings"
)

// MaxBodyBytes caps request bodies; checkout payloads are far smaller
const MaxBodyBytes = 64 << 10

const markupChars = `<>"'`

// ValidateJSONContentType rejects POST/PUT/PATCH bodies that are not JSON
// and caps their size at MaxBodyBytes
func ValidateJSONContentType(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
			default:
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			if ct := r.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
				log.Warn("invalid content type",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("content_type", ct),
				)
				writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// SanitizeInputs rejects markup in query parameters and traversal in paths
func SanitizeInputs(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for key, values := range r.URL.Query() {
				for _, val := range values {
					if strings.ContainsAny(val, markupChars) {
						log.Warn("markup in query parameter",
							slog.String("path", r.URL.Path),
							slog.String("param", key),
						)
						writeError(w, http.StatusBadRequest, "invalid characters in query parameter "+key)
						return
					}
				}
			}

			if strings.Contains(r.URL.Path, "..") || strings.Contains(r.URL.Path, "//") {
				log.Warn("suspicious path", slog.String("path", r.URL.Path))
				writeError(w, http.StatusBadRequest, "invalid path")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
