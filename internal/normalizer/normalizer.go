// Package normalizer brings a question into the pivot language before it is
// answered.
package normalizer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/valpere/medassist/internal/detector"
	"github.com/valpere/medassist/internal/translator"
)

// ErrTranslationUnavailable is returned when the question could not be
// translated. It matches translator.ErrUnavailable under errors.Is.
var ErrTranslationUnavailable = translator.ErrUnavailable

// Detector reports the language of a text.
type Detector interface {
	Detect(text string) detector.Detection
}

// Normalized is the question as it should be handed to the generator.
type Normalized struct {
	Detection detector.Detection
	// Language is the detected code, or the pivot when detection failed.
	Language string
	Text     string
	// Translated reports whether Text is a translation of the input.
	Translated bool
}

type Normalizer struct {
	detector   Detector
	translator translator.Translator
	pivot      string
	logger     *slog.Logger
}

func New(det Detector, tr translator.Translator, pivot string, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Normalizer{
		detector:   det,
		translator: tr,
		pivot:      strings.ToLower(pivot),
		logger:     logger,
	}
}

// Normalize detects the language of text and translates it to the pivot
// language when needed. On translation failure the untranslated text and the
// detected language are returned together with an error wrapping
// ErrTranslationUnavailable.
func (n *Normalizer) Normalize(ctx context.Context, text string) (Normalized, error) {
	d := n.detector.Detect(text)
	out := Normalized{
		Detection: d,
		Language:  d.CodeOr(n.pivot),
		Text:      text,
	}

	if !d.OK {
		n.logger.Debug("language_detection_failed", "fallback", n.pivot)
		return out, nil
	}
	n.logger.Info("language_detected", "language", out.Language)

	if out.Language == n.pivot {
		return out, nil
	}

	res, err := n.translator.Translate(ctx, translator.TranslateRequest{
		Text:       text,
		SourceLang: translator.AutoDetect,
		TargetLang: n.pivot,
		SourceHint: out.Language,
	})
	if err != nil {
		return out, fmt.Errorf("%w: question: %w", ErrTranslationUnavailable, err)
	}
	if strings.TrimSpace(res.TranslatedText) == "" {
		return out, fmt.Errorf("%w: question: empty translation", ErrTranslationUnavailable)
	}

	n.logger.Info("question_translated",
		"from", out.Language,
		"to", n.pivot,
		"service", res.ServiceName,
		"latency", res.Latency,
	)
	out.Text = res.TranslatedText
	out.Translated = true
	return out, nil
}
