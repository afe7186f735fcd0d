// Package generator turns a pivot-language question into a cleaned answer.
package generator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/valpere/medassist/internal/postprocess"
)

// DefaultFocusArea is used when the caller gives no focus area.
const DefaultFocusArea = "General Health"

// Decoding parameters. They are fixed for every request.
const (
	MaxLength         = 150
	NumBeams          = 4
	NoRepeatNgramSize = 3
	RepetitionPenalty = 2.5
	EarlyStopping     = true
	SkipSpecialTokens = true
)

// Params carries the decoding parameters to a Backend.
type Params struct {
	MaxLength         int     `json:"max_length"`
	NumBeams          int     `json:"num_beams"`
	NoRepeatNgramSize int     `json:"no_repeat_ngram_size"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	EarlyStopping     bool    `json:"early_stopping"`
	SkipSpecialTokens bool    `json:"skip_special_tokens"`
}

func DefaultParams() Params {
	return Params{
		MaxLength:         MaxLength,
		NumBeams:          NumBeams,
		NoRepeatNgramSize: NoRepeatNgramSize,
		RepetitionPenalty: RepetitionPenalty,
		EarlyStopping:     EarlyStopping,
		SkipSpecialTokens: SkipSpecialTokens,
	}
}

// Backend runs the model on a prompt and returns the decoded text.
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt string, params Params) (string, error)
}

// BuildPrompt interpolates focus and question verbatim. An empty focus
// becomes DefaultFocusArea.
func BuildPrompt(question, focus string) string {
	if focus == "" {
		focus = DefaultFocusArea
	}
	return "Question about " + focus + ": " + question
}

type Generator struct {
	backend Backend
	sem     *semaphore.Weighted
	logger  *slog.Logger
}

// New returns a Generator that allows at most maxConcurrent generations at
// once. Values below 1 are treated as 1.
func New(backend Backend, maxConcurrent int, logger *slog.Logger) *Generator {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Generator{
		backend: backend,
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		logger:  logger,
	}
}

// Backend returns the name of the backend answering questions.
func (g *Generator) Backend() string {
	return g.backend.Name()
}

// Answer generates an answer to question. Backend errors are returned wrapped
// and are not retried.
func (g *Generator) Answer(ctx context.Context, question, focus string) (string, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("wait for generation slot: %w", err)
	}
	defer g.sem.Release(1)

	prompt := BuildPrompt(question, focus)
	start := time.Now()

	raw, err := g.backend.Generate(ctx, prompt, DefaultParams())
	if err != nil {
		return "", fmt.Errorf("generate answer with %s: %w", g.backend.Name(), err)
	}

	answer := postprocess.CollapseRepeats(postprocess.StripSpecialTokens(raw))
	g.logger.Info("answer_generated",
		"backend", g.backend.Name(),
		"latency", time.Since(start),
		"raw_len", len(raw),
		"answer_len", len(answer),
	)
	return answer, nil
}
