// Package validator checks that a translation came back in the language it was
// requested in. Providers occasionally echo the input or answer in English.
package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/valpere/medassist/internal/detector"
)

// minValidationLength is the minimum rune count required to attempt language detection.
// Shorter texts produce unreliable results and are accepted without validation.
const minValidationLength = 20

var ErrEmptyTranslation = errors.New("translation is empty")

// Validator checks that a translation result is written in the expected target language.
type Validator struct {
	det *detector.Detector
}

// New returns a Validator sharing det with the rest of the process.
func New(det *detector.Detector) *Validator {
	if det == nil {
		det = detector.New()
	}
	return &Validator{det: det}
}

// IsValid returns true when translatedText appears to be written in targetLang.
//
// Short texts and texts whose language cannot be determined pass. When the
// detected language differs from targetLang the error names both codes.
func (v *Validator) IsValid(translatedText, targetLang string) (bool, error) {
	if targetLang == "" {
		return true, nil
	}

	text := strings.TrimSpace(translatedText)
	if text == "" {
		return false, ErrEmptyTranslation
	}

	if len([]rune(text)) < minValidationLength {
		return true, nil
	}

	d := v.det.Detect(text)
	if !d.OK {
		return true, nil
	}

	if !strings.EqualFold(d.Code, targetLang) {
		return false, fmt.Errorf("expected %s but detected %s", targetLang, d.Code)
	}

	return true, nil
}
