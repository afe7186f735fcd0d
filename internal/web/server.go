// Package web serves the question form and a JSON endpoint on top of the
// assistant pipeline.
package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"

	"github.com/valpere/medassist/internal/assistant"
	"github.com/valpere/medassist/internal/metrics"
)

// Answerer is the part of the assistant the handlers need.
type Answerer interface {
	Answer(ctx context.Context, req assistant.Request) (*assistant.Response, error)
}

type Options struct {
	// CSRFKey enables CSRF protection on the form when non-empty.
	CSRFKey        string
	CSRFSecure     bool
	TrustedOrigins []string

	RequestTimeout time.Duration
	Metrics        *metrics.Store
	MetricsToken   string
	Logger         *slog.Logger
}

// NewRouter wires the routes. The JSON API sits outside CSRF protection.
func NewRouter(a Answerer, opts Options) (http.Handler, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	tpl, err := ParseFS(templatesFS, "templates/index.gohtml")
	if err != nil {
		return nil, err
	}

	h := &Handler{
		assistant: a,
		tpl:       tpl,
		timeout:   opts.RequestTimeout,
		logger:    opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(opts.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	if opts.Metrics != nil {
		r.With(metrics.APIKeyAuth(opts.MetricsToken)).Handle("/metrics", opts.Metrics.Handler())
	}
	r.Post("/api/ask", h.PostAPIAsk)

	r.Group(func(r chi.Router) {
		if opts.CSRFKey != "" {
			r.Use(csrfMiddleware(opts))
		}
		r.Get("/", h.GetForm)
		r.Post("/ask", h.PostAsk)
	})

	return r, nil
}

func csrfMiddleware(opts Options) func(http.Handler) http.Handler {
	protect := csrf.Protect(
		[]byte(opts.CSRFKey),
		csrf.Secure(opts.CSRFSecure),
		csrf.Path("/"),
		csrf.TrustedOrigins(opts.TrustedOrigins),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			opts.Logger.Warn("csrf_rejected", "path", r.URL.Path, "reason", csrf.FailureReason(r))
			http.Error(w, "Your session expired. Please reload the page and try again.", http.StatusForbidden)
		})),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		if opts.CSRFSecure {
			return protected
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			protected.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

// RequestLogger logs one line per request. Successful health and metrics
// probes are skipped.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startedAt := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				if status < http.StatusBadRequest && isNoisyPath(r.URL.Path) {
					return
				}

				fields := []any{
					"request_id", middleware.GetReqID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"status", status,
					"latency", time.Since(startedAt),
					"bytes", ww.BytesWritten(),
				}

				switch {
				case status >= 500:
					logger.Error("http_request", fields...)
				case status >= 400:
					logger.Warn("http_request", fields...)
				default:
					logger.Info("http_request", fields...)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func isNoisyPath(path string) bool {
	switch path {
	case "/healthz", "/metrics":
		return true
	default:
		return false
	}
}
