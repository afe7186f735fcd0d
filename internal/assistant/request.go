package assistant

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/valpere/medassist/internal/detector"
	"github.com/valpere/medassist/internal/generator"
)

// ErrEmptyQuestion is returned for a question that is empty after trimming.
var ErrEmptyQuestion = errors.New("question is empty")

// ErrQuestionTooLong is returned when a question or focus area exceeds its limit.
var ErrQuestionTooLong = errors.New("question is too long")

// Request is one question. Build it with NewRequest.
type Request struct {
	Question  string `json:"question" validate:"notblank,max=2000"`
	FocusArea string `json:"focus_area" validate:"max=200"`
}

// NewRequest trims both fields and fills in the default focus area.
func NewRequest(question, focus string) Request {
	focus = strings.TrimSpace(focus)
	if focus == "" {
		focus = generator.DefaultFocusArea
	}
	return Request{
		Question:  strings.TrimSpace(question),
		FocusArea: focus,
	}
}

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}()

// Validate maps validator errors onto the package's sentinel errors.
func (r Request) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		if fe.Tag() == "notblank" {
			return ErrEmptyQuestion
		}
	}
	return ErrQuestionTooLong
}

// Response is the answer to a Request together with how it was produced.
type Response struct {
	Answer     string             `json:"answer"`
	Disclaimer string             `json:"disclaimer"`
	Language   string             `json:"language"`
	Detection  detector.Detection `json:"detection"`
	Translated bool               `json:"translated"`
	Degraded   bool               `json:"degraded"`
	Note       string             `json:"note,omitempty"`
	ID         string             `json:"id,omitempty"`
}

// Text joins answer and disclaimer with one blank line.
func (r *Response) Text() string {
	return r.Answer + "\n\n" + r.Disclaimer
}
