package translator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/valpere/medassist/internal/chunker"
)

const (
	googleWebURL = "https://translate.googleapis.com/translate_a/single"

	// googleWebChunk keeps each query comfortably below the endpoint's URL limit.
	googleWebChunk = 4500
)

// GoogleWebService uses the keyless web endpoint (client=gtx) that browser
// extensions talk to. No credentials are needed.
type GoogleWebService struct {
	baseURL string
	client  *http.Client
}

func NewGoogleWebService(timeout time.Duration) *GoogleWebService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GoogleWebService{
		baseURL: googleWebURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *GoogleWebService) Name() string {
	return "googleweb"
}

func (s *GoogleWebService) Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	source := req.SourceLang
	if isAuto(source) {
		source = AutoDetect
	}

	pieces := chunker.Split(req.Text, googleWebChunk)
	out := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		text, detected, err := s.translateChunk(ctx, piece, source, req.TargetLang)
		if err != nil {
			return fail(result, err)
		}
		if result.DetectedSource == "" {
			result.DetectedSource = detected
		}
		out = append(out, text)
	}

	result.TranslatedText = chunker.Join(out)
	result.Metadata = map[string]string{"chunks": fmt.Sprint(len(pieces))}
	return result, nil
}

func (s *GoogleWebService) translateChunk(ctx context.Context, text, source, target string) (string, string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", source)
	params.Set("tl", target)
	params.Set("dt", "t")
	params.Set("q", text)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	return parseGoogleWeb(body)
}

// parseGoogleWeb reads the nested array the endpoint returns:
//
//	[[["translated","original",...],...],null,"detected",...]
func parseGoogleWeb(body []byte) (string, string, error) {
	var raw []any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(raw) == 0 {
		return "", "", fmt.Errorf("empty response")
	}

	segments, ok := raw[0].([]any)
	if !ok {
		return "", "", fmt.Errorf("unexpected response shape")
	}

	var sb strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]any)
		if !ok || len(parts) == 0 {
			continue
		}
		if s, ok := parts[0].(string); ok {
			sb.WriteString(s)
		}
	}
	if sb.Len() == 0 {
		return "", "", fmt.Errorf("no translation returned")
	}

	var detected string
	if len(raw) > 2 {
		detected, _ = raw[2].(string)
	}
	return sb.String(), detected, nil
}

func (s *GoogleWebService) IsAvailable(ctx context.Context) error {
	return nil
}

func (s *GoogleWebService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return nil, nil
}
