package middleware

import "net/http"

// defaultMaxBodySize caps request bodies at 1 MiB when no limit is configured.
const defaultMaxBodySize = 1 << 20

// BodyLimit rejects request bodies larger than maxBytes. Reads past the
// limit fail with http.MaxBytesError, which decoders surface as a 400.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBodySize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			default:
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
