// Package metrics собирает метрики Prometheus: выполнения привычек, уровни,
// значки, уведомления и HTTP-запросы API.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lifeleveling"

var (
	// Registry — собственный реестр приложения (без глобального DefaultRegisterer).
	Registry = prometheus.NewRegistry()

	completions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "completions_total",
			Help:      "Выполнения напоминаний по источнику (bot, api).",
		},
		[]string{"source"},
	)

	levelUps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "character",
			Name:      "level_ups_total",
			Help:      "Полученные уровни.",
		},
	)

	badgesUnlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "badges",
			Name:      "unlocked_total",
			Help:      "Открытые значки.",
		},
		[]string{"badge"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "notifications_total",
			Help:      "Отправленные уведомления о напоминаниях.",
		},
		[]string{"success"},
	)

	streakResets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "streaks",
			Name:      "resets_total",
			Help:      "Серии, сброшенные ежедневной задачей.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP-запросы к API.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Длительность HTTP-запросов.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms .. ~5s
		},
		[]string{"method", "route"},
	)
)

func init() {
	Registry.MustRegister(
		completions,
		levelUps,
		badgesUnlocked,
		notifications,
		streakResets,
		httpRequests,
		httpDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler отдаёт метрики в формате Prometheus.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordCompletion учитывает выполнение напоминания.
func RecordCompletion(source string) {
	if source == "" {
		source = "unknown"
	}
	completions.WithLabelValues(source).Inc()
}

// RecordLevelUps учитывает полученные уровни.
func RecordLevelUps(n int) {
	if n > 0 {
		levelUps.Add(float64(n))
	}
}

// RecordBadge учитывает открытый значок.
func RecordBadge(badgeID string) {
	badgesUnlocked.WithLabelValues(badgeID).Inc()
}

// RecordNotification учитывает попытку отправить уведомление.
func RecordNotification(success bool) {
	notifications.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// RecordStreakResets учитывает сброшенные серии.
func RecordStreakResets(n int64) {
	if n > 0 {
		streakResets.Add(float64(n))
	}
}

// Middleware — mux-middleware, которая меряет запросы по шаблону маршрута.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := routeTemplate(r)
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// routeTemplate возвращает шаблон маршрута ("/api/v1/reminders/{id}"), чтобы
// UUID в путях не раздували число серий.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
