package middleware

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/acmlab/labsite/internal/metrics"
	"github.com/acmlab/labsite/internal/requestinfo"
)

// statusWriter records the status code and body size.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// AccessLog writes one structured line per request and observes
// http_request_duration_seconds.  Place it inside requestinfo.Enrich so
// the client fields are available.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		d := time.Since(start)
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, strconv.Itoa(sw.status)).Observe(d.Seconds())

		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"bytes", sw.bytes,
			"duration_ms", d.Milliseconds(),
		}
		if info := requestinfo.FromContext(r.Context()); info != nil {
			fields = append(fields,
				"ip", info.Geo.IP.String(),
				"country", info.Geo.CountryISO,
				"browser", info.UA.Browser,
				"device", info.UA.Device,
				"bot", info.UA.IsBot,
			)
		}

		log := zap.S()
		switch {
		case sw.status >= 500:
			log.Errorw("request", fields...)
		case r.URL.Path == "/health" || r.URL.Path == "/metrics":
			log.Debugw("request", fields...)
		default:
			log.Infow("request", fields...)
		}
	})
}
