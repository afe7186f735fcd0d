package translator

import (
	"context"
	"errors"
	"time"
)

// AutoDetect asks a service to detect the source language itself.
const AutoDetect = "auto"

// ErrUnavailable marks a translation that could not be produced: network
// failure, provider error or unsupported language. Callers treat it as
// recoverable and fall back to the untranslated text.
var ErrUnavailable = errors.New("translation unavailable")

type TranslateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	// SourceHint is the caller's own guess of the source language. Services
	// without auto-detection fall back to it when SourceLang is AutoDetect.
	SourceHint string `json:"source_hint,omitempty"`
}

type ServiceResult struct {
	ServiceName    string            `json:"service_name"`
	TranslatedText string            `json:"translated_text"`
	DetectedSource string            `json:"detected_source,omitempty"`
	Metadata       map[string]string `json:"metadata"`
	Latency        time.Duration     `json:"latency"`
	Error          string            `json:"error,omitempty"`
}

// TranslationService is one translation provider.
type TranslationService interface {
	Name() string
	Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error)
	IsAvailable(ctx context.Context) error
	// SupportedLanguages returns the codes the provider accepts. An empty
	// list means the provider does not restrict languages.
	SupportedLanguages(ctx context.Context) ([]string, error)
}

// Translator is what the pipeline stages depend on. The orchestrator
// implements it on top of one or more TranslationService values.
type Translator interface {
	Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error)
}

// fail records msg on result and returns the error the services hand back.
func fail(result *ServiceResult, err error) (*ServiceResult, error) {
	result.Error = err.Error()
	return result, err
}

func isAuto(lang string) bool {
	return lang == "" || lang == AutoDetect
}
