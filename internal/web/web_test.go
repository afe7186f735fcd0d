package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/valpere/medassist/internal/assistant"
	"github.com/valpere/medassist/internal/localizer"
	"github.com/valpere/medassist/internal/metrics"
)

type fakeAnswerer struct {
	resp *assistant.Response
	err  error
	got  assistant.Request
}

func (f *fakeAnswerer) Answer(_ context.Context, req assistant.Request) (*assistant.Response, error) {
	f.got = req
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func newTestRouter(t *testing.T, a Answerer, opts Options) http.Handler {
	t.Helper()
	h, err := NewRouter(a, opts)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return h
}

func postForm(h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetForm(t *testing.T) {
	h := newTestRouter(t, &fakeAnswerer{}, Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Get Answer", `name="question"`, `value="General Health"`} {
		if !strings.Contains(body, want) {
			t.Errorf("form missing %q", want)
		}
	}
	if strings.Contains(body, "Response:") {
		t.Error("empty form should not show a response")
	}
}

func TestPostAsk(t *testing.T) {
	a := &fakeAnswerer{resp: &assistant.Response{
		Answer:     "Die **Grippe** verursacht Fieber.",
		Disclaimer: "Dies ist eine allgemeine Information.",
		Language:   "de",
		Translated: true,
	}}
	h := newTestRouter(t, a, Options{})

	rec := postForm(h, "/ask", url.Values{"question": {"  Was sind Grippesymptome?  "}})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"Response:", "<strong>Grippe</strong>", "Dies ist eine allgemeine Information.", `lang="de"`} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if a.got.Question != "Was sind Grippesymptome?" {
		t.Errorf("question = %q, want trimmed", a.got.Question)
	}
	if a.got.FocusArea != "General Health" {
		t.Errorf("focus = %q, want default", a.got.FocusArea)
	}
}

func TestPostAskDegradedShowsNote(t *testing.T) {
	a := &fakeAnswerer{resp: &assistant.Response{
		Answer:     "Rest and fluids.",
		Disclaimer: localizer.Disclaimer,
		Language:   "en",
		Degraded:   true,
		Note:       assistant.DegradedNote("en"),
	}}
	h := newTestRouter(t, a, Options{})

	rec := postForm(h, "/ask", url.Values{"question": {"Wie behandle ich eine Erkältung?"}})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Translation is currently unavailable") {
		t.Error("degraded note missing")
	}
}

func TestPostAskErrors(t *testing.T) {
	tests := []struct {
		name     string
		question string
		err      error
		status   int
		msg      string
	}{
		{"empty", "   ", nil, http.StatusUnprocessableEntity, MsgEmptyQuestion},
		{"too long", strings.Repeat("a", 2001), nil, http.StatusUnprocessableEntity, MsgTooLong},
		{"timeout", "What is flu?", fmt.Errorf("generate: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, MsgTimeout},
		{"backend", "What is flu?", errors.New("connection refused"), http.StatusBadGateway, MsgUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, &fakeAnswerer{err: tt.err}, Options{})

			rec := postForm(h, "/ask", url.Values{"question": {tt.question}})

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			body := rec.Body.String()
			if !strings.Contains(body, tt.msg) {
				t.Errorf("body missing %q", tt.msg)
			}
			if strings.Contains(body, "connection refused") {
				t.Error("internal error leaked to the page")
			}
		})
	}
}

func TestPostAPIAsk(t *testing.T) {
	a := &fakeAnswerer{resp: &assistant.Response{
		Answer:     "Rest and fluids.",
		Disclaimer: localizer.Disclaimer,
		Language:   "en",
	}}
	h := newTestRouter(t, a, Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question":"How do I treat a cold?","focus_area":"pediatrics"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var got struct {
		Answer     string `json:"answer"`
		Disclaimer string `json:"disclaimer"`
		Language   string `json:"language"`
		Text       string `json:"text"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if got.Answer != "Rest and fluids." || got.Language != "en" {
		t.Errorf("got %+v", got)
	}
	if got.Text != "Rest and fluids.\n\n"+localizer.Disclaimer {
		t.Errorf("text = %q", got.Text)
	}
	if a.got.FocusArea != "pediatrics" {
		t.Errorf("focus = %q", a.got.FocusArea)
	}
}

func TestPostAPIAskErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"bad json", `{"question": 42}`, http.StatusBadRequest, "invalid JSON body"},
		{"empty body", ``, http.StatusUnprocessableEntity, MsgEmptyQuestion},
		{"blank question", `{"question":"  "}`, http.StatusUnprocessableEntity, MsgEmptyQuestion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, &fakeAnswerer{}, Options{})

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(tt.body)))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			var got apiError
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if got.Error != tt.msg {
				t.Errorf("error = %q, want %q", got.Error, tt.msg)
			}
		})
	}
}

func TestCSRFRejectsFormWithoutToken(t *testing.T) {
	h := newTestRouter(t, &fakeAnswerer{resp: &assistant.Response{}}, Options{
		CSRFKey: strings.Repeat("k", 32),
	})

	rec := postForm(h, "/ask", url.Values{"question": {"What is flu?"}})

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestCSRFFormCarriesToken(t *testing.T) {
	h := newTestRouter(t, &fakeAnswerer{}, Options{
		CSRFKey: strings.Repeat("k", 32),
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `name="gorilla.csrf.Token"`) {
		t.Error("form is missing the csrf field")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	m := metrics.NewStore()
	m.RecordRequest(metrics.OutcomeOK)
	h := newTestRouter(t, &fakeAnswerer{}, Options{Metrics: m, MetricsToken: "secret"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("metrics without token = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics with token = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "medassist_requests_total") {
		t.Error("metrics output missing request counter")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{assistant.ErrEmptyQuestion, http.StatusUnprocessableEntity},
		{fmt.Errorf("validate: %w", assistant.ErrQuestionTooLong), http.StatusUnprocessableEntity},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{context.Canceled, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		if got, _ := statusFor(tt.err); got != tt.status {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.status)
		}
	}
}
