package middleware

import (
	"net/http"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/fitnesstracker/internal/telemetry/metrics"
	"github.com/2beens/fitnesstracker/pkg"
)

// PanicRecovery turns a handler panic into a JSON 500 response.
func PanicRecovery(metricsManager *metrics.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(respWriter http.ResponseWriter, req *http.Request) {
			defer func() {
				if r := recover(); r != nil {
					if r == http.ErrAbortHandler {
						panic(r)
					}
					log.Errorf("http: panic serving %s: %v\n%s", req.URL.Path, r, debug.Stack())
					if metricsManager != nil {
						metricsManager.CounterHandleRequestPanic.Inc()
					}
					pkg.WriteAPIError(respWriter, pkg.APIErrInternal, "Unexpected error while handling the request")
				}
			}()

			next.ServeHTTP(respWriter, req)
		})
	}
}
