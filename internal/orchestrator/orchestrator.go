// Package orchestrator runs a request through an ordered list of translation
// services and returns the first usable result.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/valpere/medassist/internal/translator"
	"github.com/valpere/medassist/internal/validator"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 3
	defaultRetryDelay  = 500 * time.Millisecond
)

var ErrNoServices = errors.New("no translation services configured")

type OrchestratorConfig struct {
	// Timeout bounds a single attempt against one service.
	Timeout     time.Duration
	MaxAttempts int
	// RetryDelay is the first backoff interval; later ones grow exponentially.
	RetryDelay time.Duration
	// Validator, when set, rejects results not written in the target language.
	Validator *validator.Validator
	Logger    *slog.Logger
}

type OrchestratorResult struct {
	Result   *translator.ServiceResult
	Errors   []error
	Attempts int
}

// Orchestrator implements translator.Translator. Services are tried in order;
// each gets MaxAttempts tries with exponential backoff before the next one is
// used.
type Orchestrator struct {
	services []translator.TranslationService
	config   OrchestratorConfig
	logger   *slog.Logger
}

func New(services []translator.TranslationService, config OrchestratorConfig) *Orchestrator {
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaultMaxAttempts
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaultRetryDelay
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{
		services: services,
		config:   config,
		logger:   logger,
	}
}

// Services returns the names of the configured services in the order they are tried.
func (o *Orchestrator) Services() []string {
	names := make([]string, len(o.services))
	for i, svc := range o.services {
		names[i] = svc.Name()
	}
	return names
}

// Execute tries every service until one succeeds. Result is nil when all fail.
func (o *Orchestrator) Execute(ctx context.Context, req translator.TranslateRequest) *OrchestratorResult {
	result := &OrchestratorResult{}

	for _, svc := range o.services {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, err)
			break
		}

		if err := o.supports(ctx, svc, req); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", svc.Name(), err))
			continue
		}

		res, attempts, err := o.try(ctx, svc, req)
		result.Attempts += attempts
		if err != nil {
			o.logger.Warn("translation_service_failed",
				"service", svc.Name(),
				"attempts", attempts,
				"err", err,
			)
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", svc.Name(), err))
			continue
		}

		o.logger.Debug("translation_service_succeeded",
			"service", svc.Name(),
			"attempts", attempts,
			"latency", res.Latency,
		)
		result.Result = res
		return result
	}

	return result
}

// Translate returns the first successful result. When every service fails the
// error wraps translator.ErrUnavailable and lists each failure.
func (o *Orchestrator) Translate(ctx context.Context, req translator.TranslateRequest) (*translator.ServiceResult, error) {
	if len(o.services) == 0 {
		return nil, fmt.Errorf("%w: %w", translator.ErrUnavailable, ErrNoServices)
	}

	result := o.Execute(ctx, req)
	if result.Result != nil {
		return result.Result, nil
	}
	return nil, fmt.Errorf("%w: %w", translator.ErrUnavailable, errors.Join(result.Errors...))
}

func (o *Orchestrator) try(ctx context.Context, svc translator.TranslationService, req translator.TranslateRequest) (*translator.ServiceResult, int, error) {
	attempts := 0
	operation := func() (*translator.ServiceResult, error) {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, o.config.Timeout)
		defer cancel()

		res, err := svc.Translate(attemptCtx, req)
		if err != nil {
			return nil, err
		}
		if res == nil {
			return nil, errors.New("no result")
		}
		if res.Error != "" {
			return nil, errors.New(res.Error)
		}
		if o.config.Validator != nil {
			if ok, verr := o.config.Validator.IsValid(res.TranslatedText, req.TargetLang); !ok {
				return nil, fmt.Errorf("validation failed: %w", verr)
			}
		}
		return res, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.config.RetryDelay
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(o.config.MaxAttempts-1)), ctx)

	res, err := backoff.RetryWithData(operation, policy)
	return res, attempts, err
}

// supports rejects language pairs the service declares it cannot handle.
func (o *Orchestrator) supports(ctx context.Context, svc translator.TranslationService, req translator.TranslateRequest) error {
	langs, err := svc.SupportedLanguages(ctx)
	if err != nil || len(langs) == 0 {
		return nil
	}
	check := func(lang string) error {
		if lang == "" || lang == translator.AutoDetect {
			return nil
		}
		if !slices.ContainsFunc(langs, func(l string) bool { return strings.EqualFold(l, lang) }) {
			return fmt.Errorf("unsupported language %q", lang)
		}
		return nil
	}
	if err := check(req.TargetLang); err != nil {
		return err
	}
	return check(req.SourceLang)
}
