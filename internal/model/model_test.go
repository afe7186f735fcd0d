package model

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/valpere/medassist/internal/generator"
)

const t5Config = `{
  "_name_or_path": "medical-t5-small",
  "architectures": ["T5ForConditionalGeneration"],
  "model_type": "t5",
  "is_encoder_decoder": true,
  "vocab_size": 32128,
  "decoder_start_token_id": 0
}`

func writeModelDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoad_Valid(t *testing.T) {
	dir := writeModelDir(t, map[string]string{
		"config.json":  t5Config,
		"spiece.model": "binary",
	})

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Name != "medical-t5-small" {
		t.Errorf("unexpected name %q", m.Name)
	}
	if m.ModelType != "t5" || m.VocabSize != 32128 {
		t.Errorf("unexpected descriptor %+v", m)
	}
	if m.TokenizerFile != "spiece.model" {
		t.Errorf("unexpected tokenizer %q", m.TokenizerFile)
	}
}

func TestLoad_NameFromDirectory(t *testing.T) {
	dir := writeModelDir(t, map[string]string{
		"config.json":    `{"model_type":"bart","architectures":["BartForConditionalGeneration"]}`,
		"tokenizer.json": "{}",
	})

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Name != filepath.Base(dir) {
		t.Errorf("expected directory name, got %q", m.Name)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr error
	}{
		{
			name:    "missing config",
			files:   map[string]string{"tokenizer.json": "{}"},
			wantErr: ErrNoConfig,
		},
		{
			name:    "missing tokenizer",
			files:   map[string]string{"config.json": t5Config},
			wantErr: ErrNoTokenizer,
		},
		{
			name: "decoder only",
			files: map[string]string{
				"config.json":    `{"model_type":"gpt2","architectures":["GPT2LMHeadModel"]}`,
				"tokenizer.json": "{}",
			},
			wantErr: ErrNotSeq2Seq,
		},
		{
			name: "explicit flag wins",
			files: map[string]string{
				"config.json":    `{"model_type":"t5","is_encoder_decoder":false}`,
				"tokenizer.json": "{}",
			},
			wantErr: ErrNotSeq2Seq,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeModelDir(t, tt.files))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "model.bin")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(file); !errors.Is(err, ErrNotDirectory) {
		t.Errorf("expected ErrNotDirectory, got %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := writeModelDir(t, map[string]string{"config.json": "{", "tokenizer.json": "{}"})
	if _, err := Load(dir); err == nil {
		t.Error("expected decode error")
	}
}

func TestInferenceClient_Generate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "list response", body: `[{"generated_text":"Rest and fluids help."}]`},
		{name: "object response", body: `{"generated_text":"Rest and fluids help."}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/generate" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				var req inferenceRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("decode request: %v", err)
				}
				if req.Inputs != "Question about General Health: What helps a cold?" {
					t.Errorf("unexpected inputs %q", req.Inputs)
				}
				if req.Parameters != generator.DefaultParams() {
					t.Errorf("unexpected parameters %+v", req.Parameters)
				}
				if req.Model != "medical-t5-small" {
					t.Errorf("unexpected model %q", req.Model)
				}
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewInferenceClient(server.URL+"/", &Pretrained{Name: "medical-t5-small"}, time.Second)

			got, err := c.Generate(context.Background(), "Question about General Health: What helps a cold?", generator.DefaultParams())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != "Rest and fluids help." {
				t.Errorf("unexpected output %q", got)
			}
		})
	}
}

func TestInferenceClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusServiceUnavailable, body: "loading"},
		{name: "empty list", status: http.StatusOK, body: `[]`},
		{name: "bad json", status: http.StatusOK, body: `nope`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewInferenceClient(server.URL, nil, time.Second)
			if _, err := c.Generate(context.Background(), "q", generator.DefaultParams()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestOllamaClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("expected stream=false")
		}
		if req.Options.NumPredict != generator.MaxLength || req.Options.RepeatPenalty != generator.RepetitionPenalty {
			t.Errorf("unexpected options %+v", req.Options)
		}
		json.NewEncoder(w).Encode(ollamaResponse{Response: "<think>flu</think>Here is the answer: Rest and drink fluids."})
	}))
	defer server.Close()

	c := NewOllamaClient("llama3.2", server.URL, time.Second)

	got, err := c.Generate(context.Background(), "Question about General Health: flu?", generator.DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Rest and drink fluids." {
		t.Errorf("unexpected output %q", got)
	}
	if c.Name() != "ollama" {
		t.Errorf("unexpected name %q", c.Name())
	}
}

func TestOllamaClient_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewOllamaClient("missing-model", server.URL, time.Second)
	if _, err := c.Generate(context.Background(), "q", generator.DefaultParams()); err == nil {
		t.Error("expected error for non-OK status")
	}
}

func TestNewGeminiClient_MissingKey(t *testing.T) {
	if _, err := NewGeminiClient(context.Background(), "", "", 0); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}
