package middleware

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/fitnesstracker/pkg"
)

// LogRequest logs every request at trace level.
func LogRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fields := log.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
				"ip":     pkg.ClientIP(r),
			}
			if ua := r.Header.Get("User-Agent"); ua != "" {
				fields["ua"] = ua
			}
			log.WithFields(fields).Trace("request")
			next.ServeHTTP(w, r)
		})
	}
}
