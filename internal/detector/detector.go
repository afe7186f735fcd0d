// Package detector identifies the language a question is written in.
package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

// Detection is the outcome of a single detection attempt. OK is false when
// the text was empty or its language could not be determined; Code is empty
// in that case.
type Detection struct {
	Code string `json:"code"`
	OK   bool   `json:"ok"`
}

// CodeOr returns the detected code, or fallback when detection failed.
func (d Detection) CodeOr(fallback string) string {
	if !d.OK {
		return fallback
	}
	return d.Code
}

// Detector wraps a lingua language detector. Building one loads the language
// models, so a single instance should be shared; it is safe for concurrent use.
type Detector struct {
	detector lingua.LanguageDetector
}

func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		Build()

	return &Detector{detector: detector}
}

func (d *Detector) Language(text string) (lingua.Language, bool) {
	if strings.TrimSpace(text) == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// Detect returns the ISO 639-1 code of text in lower case ("en", "uk").
func (d *Detector) Detect(text string) Detection {
	lang, ok := d.Language(text)
	if !ok {
		return Detection{}
	}
	return Detection{
		Code: strings.ToLower(lang.IsoCode639_1().String()),
		OK:   true,
	}
}
