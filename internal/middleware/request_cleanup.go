package middleware

import (
	"io"
	"net/http"
)

// maxDrainBytes bounds how much unread body is discarded before closing.
const maxDrainBytes = 256 << 10

// LimitAndDrainBody caps request bodies at maxBodyBytes (reads past the cap
// fail with *http.MaxBytesError) and, after the handler returns, drains what
// the handler left unread and closes the body so the connection can be reused.
// maxBodyBytes <= 0 disables the cap.
func LimitAndDrainBody(maxBodyBytes int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && maxBodyBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			}
			next.ServeHTTP(w, r)
			if r.Body != nil {
				_, _ = io.CopyN(io.Discard, r.Body, maxDrainBytes)
				_ = r.Body.Close()
			}
		})
	}
}
