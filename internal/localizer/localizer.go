// Package localizer translates a pivot-language answer and the disclaimer back
// into the language the question was asked in.
package localizer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/valpere/medassist/internal/translator"
)

// Disclaimer is appended to every answer.
const Disclaimer = "This is general medical information, not a substitute for professional diagnosis."

// ErrTranslationUnavailable is returned when the answer or disclaimer could
// not be translated. It matches translator.ErrUnavailable under errors.Is.
var ErrTranslationUnavailable = translator.ErrUnavailable

type Localized struct {
	Answer     string
	Disclaimer string
	Language   string
	Translated bool
}

type Localizer struct {
	translator translator.Translator
	pivot      string
	logger     *slog.Logger
}

func New(tr translator.Translator, pivot string, logger *slog.Logger) *Localizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Localizer{
		translator: tr,
		pivot:      strings.ToLower(pivot),
		logger:     logger,
	}
}

// Localize returns answer and the disclaimer in lang. Pivot (or empty) lang
// passes both through untouched. Otherwise answer and disclaimer are
// translated in two separate calls. A blank answer stays blank and only the
// disclaimer is translated.
func (l *Localizer) Localize(ctx context.Context, answer, lang string) (Localized, error) {
	lang = strings.ToLower(lang)
	if lang == "" || lang == l.pivot {
		return Localized{
			Answer:     answer,
			Disclaimer: Disclaimer,
			Language:   l.pivot,
		}, nil
	}

	translatedAnswer := answer
	if strings.TrimSpace(answer) != "" {
		var err error
		translatedAnswer, err = l.translate(ctx, answer, lang)
		if err != nil {
			return Localized{}, fmt.Errorf("%w: answer: %w", ErrTranslationUnavailable, err)
		}
	}

	translatedDisclaimer, err := l.translate(ctx, Disclaimer, lang)
	if err != nil {
		return Localized{}, fmt.Errorf("%w: disclaimer: %w", ErrTranslationUnavailable, err)
	}

	l.logger.Info("answer_localized", "language", lang)
	return Localized{
		Answer:     translatedAnswer,
		Disclaimer: translatedDisclaimer,
		Language:   lang,
		Translated: true,
	}, nil
}

func (l *Localizer) translate(ctx context.Context, text, lang string) (string, error) {
	res, err := l.translator.Translate(ctx, translator.TranslateRequest{
		Text:       text,
		SourceLang: l.pivot,
		TargetLang: lang,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(res.TranslatedText) == "" {
		return "", fmt.Errorf("%s returned an empty translation", res.ServiceName)
	}
	return res.TranslatedText, nil
}
