package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/mcoot/playerinfo-proxy/internal/metrics"
	"github.com/mcoot/playerinfo-proxy/internal/middleware"
)

// Metrics records request duration by route template and status.
// It must run as mux middleware so the matched route is known.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.RequestInflight.Inc()
			defer m.RequestInflight.Dec()

			start := time.Now()
			wrapped := middleware.NewResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			route := "unmatched"
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}

			m.RequestDuration.
				WithLabelValues(r.Method, route, strconv.Itoa(wrapped.Status())).
				Observe(time.Since(start).Seconds())
		})
	}
}
