// Package assistant answers one medical question end to end: it normalizes
// the question to the pivot language, generates an answer and localizes the
// answer back to the asker's language.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/valpere/medassist/internal"
	"github.com/valpere/medassist/internal/localizer"
	"github.com/valpere/medassist/internal/metrics"
	"github.com/valpere/medassist/internal/normalizer"
)

// DegradedNote tells the user why the answer is shown in the pivot language
// instead of theirs. The pivot is named in English, "en" gives "English".
func DegradedNote(pivot string) string {
	name := "the default language"
	if tag, err := language.Parse(pivot); err == nil {
		if n := display.English.Languages().Name(tag); n != "" {
			name = n
		}
	}
	return "Translation is currently unavailable; the answer is shown in " + name + "."
}

type Normalizer interface {
	Normalize(ctx context.Context, text string) (normalizer.Normalized, error)
}

type Generator interface {
	Answer(ctx context.Context, question, focus string) (string, error)
	Backend() string
}

type Localizer interface {
	Localize(ctx context.Context, answer, lang string) (localizer.Localized, error)
}

// Recorder keeps answered consultations. It is optional.
type Recorder interface {
	Record(ctx context.Context, c internal.Consultation) (string, error)
}

type Options struct {
	Pivot    string
	Recorder Recorder
	Metrics  *metrics.Store
	Logger   *slog.Logger
}

type Assistant struct {
	normalizer Normalizer
	generator  Generator
	localizer  Localizer
	pivot      string
	note       string
	recorder   Recorder
	metrics    *metrics.Store
	logger     *slog.Logger
}

func New(n Normalizer, g Generator, l Localizer, opts Options) *Assistant {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Pivot == "" {
		opts.Pivot = "en"
	}
	return &Assistant{
		normalizer: n,
		generator:  g,
		localizer:  l,
		pivot:      opts.Pivot,
		note:       DegradedNote(opts.Pivot),
		recorder:   opts.Recorder,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
	}
}

// Answer runs the pipeline for req. Translation failures do not fail the
// request: the answer is returned in the pivot language with Degraded set.
// Validation and generation errors are returned as is.
func (a *Assistant) Answer(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		a.recordOutcome(metrics.OutcomeInvalid)
		return nil, err
	}

	stageStart := time.Now()
	norm, err := a.normalizer.Normalize(ctx, req.Question)
	a.observe("normalize", stageStart)
	degraded := false
	if err != nil {
		if !errors.Is(err, normalizer.ErrTranslationUnavailable) {
			a.recordOutcome(metrics.OutcomeError)
			return nil, fmt.Errorf("normalize question: %w", err)
		}
		a.translationUnavailable("question", norm.Language, err)
		degraded = true
	}
	if a.metrics != nil {
		a.metrics.RecordLanguage(norm.Language)
	}

	stageStart = time.Now()
	answer, err := a.generator.Answer(ctx, norm.Text, req.FocusArea)
	a.observe("generate", stageStart)
	if err != nil {
		a.recordOutcome(metrics.OutcomeError)
		return nil, err
	}

	resp := &Response{
		Answer:     answer,
		Disclaimer: localizer.Disclaimer,
		Language:   a.pivot,
		Detection:  norm.Detection,
	}

	if !degraded {
		stageStart = time.Now()
		loc, err := a.localizer.Localize(ctx, answer, norm.Language)
		a.observe("localize", stageStart)
		switch {
		case err == nil:
			resp.Answer = loc.Answer
			resp.Disclaimer = loc.Disclaimer
			resp.Language = loc.Language
			resp.Translated = norm.Translated || loc.Translated
		case errors.Is(err, localizer.ErrTranslationUnavailable):
			a.translationUnavailable("answer", norm.Language, err)
			degraded = true
		default:
			a.recordOutcome(metrics.OutcomeError)
			return nil, fmt.Errorf("localize answer: %w", err)
		}
	}

	if degraded {
		resp.Degraded = true
		resp.Note = a.note
		a.recordOutcome(metrics.OutcomeDegraded)
	} else {
		a.recordOutcome(metrics.OutcomeOK)
	}

	resp.ID = a.record(ctx, req, norm.Language, resp, time.Since(start))
	return resp, nil
}

func (a *Assistant) translationUnavailable(stage, lang string, err error) {
	a.logger.Warn("translation_unavailable", "stage", stage, "language", lang, "err", err)
	if a.metrics != nil {
		a.metrics.RecordTranslationFailure(stage)
	}
}

func (a *Assistant) record(ctx context.Context, req Request, detected string, resp *Response, latency time.Duration) string {
	if a.recorder == nil {
		return ""
	}
	id, err := a.recorder.Record(context.WithoutCancel(ctx), internal.Consultation{
		Question:     req.Question,
		FocusArea:    req.FocusArea,
		DetectedLang: detected,
		ResponseLang: resp.Language,
		Answer:       resp.Answer,
		Disclaimer:   resp.Disclaimer,
		Degraded:     resp.Degraded,
		Backend:      a.generator.Backend(),
		Latency:      latency,
	})
	if err != nil {
		a.logger.Error("consultation_record_failed", "err", err)
		return ""
	}
	return id
}

func (a *Assistant) observe(stage string, since time.Time) {
	if a.metrics != nil {
		a.metrics.ObserveStage(stage, time.Since(since))
	}
}

func (a *Assistant) recordOutcome(outcome string) {
	if a.metrics != nil {
		a.metrics.RecordRequest(outcome)
	}
}
