// Package metrics exposes Prometheus counters for the answering pipeline.
package metrics

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes recorded for every request.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Store owns a private registry so several instances can coexist in tests.
type Store struct {
	registry *prometheus.Registry

	requests            *prometheus.CounterVec
	stageDuration       *prometheus.HistogramVec
	languages           *prometheus.CounterVec
	translationFailures *prometheus.CounterVec
}

func NewStore() *Store {
	s := &Store{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medassist",
			Name:      "requests_total",
			Help:      "Questions handled, by outcome.",
		}, []string{"outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medassist",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		languages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medassist",
			Name:      "detected_language_total",
			Help:      "Questions by detected language.",
		}, []string{"language"}),
		translationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medassist",
			Name:      "translation_failures_total",
			Help:      "Translations that fell back to the pivot language, by stage.",
		}, []string{"stage"}),
	}

	s.registry.MustRegister(
		s.requests,
		s.stageDuration,
		s.languages,
		s.translationFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return s
}

func (s *Store) RecordRequest(outcome string) {
	s.requests.WithLabelValues(outcome).Inc()
}

func (s *Store) ObserveStage(stage string, d time.Duration) {
	s.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (s *Store) RecordLanguage(lang string) {
	if lang == "" {
		lang = "unknown"
	}
	s.languages.WithLabelValues(lang).Inc()
}

func (s *Store) RecordTranslationFailure(stage string) {
	s.translationFailures.WithLabelValues(stage).Inc()
}

func (s *Store) Registry() *prometheus.Registry {
	return s.registry
}

// Handler serves the registry in the Prometheus text format.
func (s *Store) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// APIKeyAuth protects /metrics with a static token. An empty token disables
// the check. The token is read from "Authorization: Bearer" or "X-API-Key".
func APIKeyAuth(expected string) func(http.Handler) http.Handler {
	expected = strings.TrimSpace(expected)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := extractAPIKey(r)
			if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractAPIKey(r *http.Request) string {
	if value := strings.TrimSpace(r.Header.Get("X-API-Key")); value != "" {
		return value
	}

	authValue := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(authValue) > 7 && strings.EqualFold(authValue[:7], "bearer ") {
		return strings.TrimSpace(authValue[7:])
	}
	return ""
}
