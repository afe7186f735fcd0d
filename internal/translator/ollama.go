package translator

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/valpere/medassist/internal/postprocess"
)

const DefaultOllamaModel = "llama3.2"

// OllamaTranslator asks a local Ollama model to translate.
type OllamaTranslator struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaTranslator(baseURL, model string, timeout time.Duration) *OllamaTranslator {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaTranslator{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *OllamaTranslator) Name() string {
	return "ollama"
}

func buildOllamaPrompt(req TranslateRequest) string {
	source := req.SourceLang
	if isAuto(source) {
		source = "the detected language"
		if req.SourceHint != "" {
			source = req.SourceHint
		}
	}
	return fmt.Sprintf(`Translate the following medical text from %s to %s.
Keep medical terms accurate. Only respond with the translation, nothing else.

Text: "%s"

Translation:`, source, req.TargetLang, req.Text)
}

func (s *OllamaTranslator) Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	jsonData, err := json.Marshal(map[string]any{
		"model":  s.model,
		"prompt": buildOllamaPrompt(req),
		"stream": false,
	})
	if err != nil {
		return fail(result, fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return fail(result, fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fail(result, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fail(result, fmt.Errorf("API returned status %d", resp.StatusCode))
	}

	var ollamaResp struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return fail(result, fmt.Errorf("failed to decode response: %w", err))
	}

	text := postprocess.Clean(ollamaResp.Response)
	if text == "" {
		return fail(result, fmt.Errorf("empty translation"))
	}

	result.TranslatedText = text
	result.Metadata = map[string]string{"model": s.model}
	return result, nil
}

func (s *OllamaTranslator) IsAvailable(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not available: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *OllamaTranslator) SupportedLanguages(ctx context.Context) ([]string, error) {
	return nil, nil
}
