package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики сервиса. Регистрируются через promauto в default registry,
// отдаются хендлером promhttp на /metrics.
var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sharezone_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sharezone_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// SweepReclaimedTotal считает строки, зачищенные фоновой очисткой,
	// по видам: spaces, files, tokens.
	SweepReclaimedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sharezone_sweep_reclaimed_total",
			Help: "Total number of expired rows reclaimed by background sweeps",
		},
		[]string{"kind"},
	)

	// SweepErrorsTotal считает ошибки отдельных элементов во время очистки.
	SweepErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sharezone_sweep_errors_total",
			Help: "Total number of per-item errors during background sweeps",
		},
		[]string{"kind"},
	)
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware собирает счётчик и гистограмму длительности по каждому запросу.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := normalizePath(r.URL.Path)
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath заменяет числовые сегменты пути на {id}, чтобы не плодить
// кардинальность меток по каждому конкретному идентификатору.
func normalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if _, err := strconv.ParseInt(seg, 10, 64); err == nil {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}
