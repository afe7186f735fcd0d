package normalizer

import (
	"context"
	"errors"
	"testing"

	"github.com/valpere/medassist/internal/detector"
	"github.com/valpere/medassist/internal/translator"
)

type fakeDetector struct {
	detection detector.Detection
}

func (f fakeDetector) Detect(string) detector.Detection { return f.detection }

type fakeTranslator struct {
	text  string
	err   error
	calls int
	last  translator.TranslateRequest
}

func (f *fakeTranslator) Translate(ctx context.Context, req translator.TranslateRequest) (*translator.ServiceResult, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &translator.ServiceResult{ServiceName: "fake", TranslatedText: f.text}, nil
}

func TestNormalize_PivotPassthrough(t *testing.T) {
	tr := &fakeTranslator{}
	n := New(fakeDetector{detector.Detection{Code: "en", OK: true}}, tr, "en", nil)

	got, err := n.Normalize(context.Background(), "What are the symptoms of flu?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.calls != 0 {
		t.Errorf("expected no translation call, got %d", tr.calls)
	}
	if got.Text != "What are the symptoms of flu?" || got.Language != "en" || got.Translated {
		t.Errorf("unexpected result %+v", got)
	}
}

func TestNormalize_DetectionFailed(t *testing.T) {
	tr := &fakeTranslator{}
	n := New(fakeDetector{}, tr, "en", nil)

	got, err := n.Normalize(context.Background(), "???")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Detection.OK {
		t.Error("expected failed detection to be reported")
	}
	if got.Language != "en" {
		t.Errorf("expected pivot language, got %q", got.Language)
	}
	if tr.calls != 0 {
		t.Errorf("expected no translation call, got %d", tr.calls)
	}
}

func TestNormalize_TranslatesToPivot(t *testing.T) {
	tr := &fakeTranslator{text: "What are the symptoms of flu?"}
	n := New(fakeDetector{detector.Detection{Code: "uk", OK: true}}, tr, "en", nil)

	got, err := n.Normalize(context.Background(), "Які симптоми грипу?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "What are the symptoms of flu?" {
		t.Errorf("unexpected text %q", got.Text)
	}
	if got.Language != "uk" || !got.Translated {
		t.Errorf("unexpected result %+v", got)
	}
	if tr.last.SourceLang != translator.AutoDetect || tr.last.TargetLang != "en" || tr.last.SourceHint != "uk" {
		t.Errorf("unexpected request %+v", tr.last)
	}
}

func TestNormalize_TranslationUnavailable(t *testing.T) {
	tests := []struct {
		name string
		tr   *fakeTranslator
	}{
		{name: "service error", tr: &fakeTranslator{err: errors.New("connection refused")}},
		{name: "empty translation", tr: &fakeTranslator{text: "  "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New(fakeDetector{detector.Detection{Code: "es", OK: true}}, tt.tr, "en", nil)

			got, err := n.Normalize(context.Background(), "¿Qué es la gripe?")
			if !errors.Is(err, ErrTranslationUnavailable) {
				t.Fatalf("expected ErrTranslationUnavailable, got %v", err)
			}
			if !errors.Is(err, translator.ErrUnavailable) {
				t.Error("expected the shared translator sentinel")
			}
			if got.Text != "¿Qué es la gripe?" || got.Language != "es" || got.Translated {
				t.Errorf("expected untranslated text and detected language, got %+v", got)
			}
		})
	}
}

func TestNormalize_RealDetector(t *testing.T) {
	tr := &fakeTranslator{text: "Is a headache after a cold normal?"}
	n := New(detector.New(), tr, "en", nil)

	got, err := n.Normalize(context.Background(), "Ist Kopfschmerz nach einer Erkältung normal?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Language != "de" {
		t.Errorf("expected de, got %q", got.Language)
	}
	if tr.calls != 1 {
		t.Errorf("expected one translation call, got %d", tr.calls)
	}
}
