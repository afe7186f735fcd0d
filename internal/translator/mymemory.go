package translator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/valpere/medassist/internal/chunker"
)

const (
	myMemoryURL = "https://api.mymemory.translated.net/get"

	// myMemoryChunk stays under the API's 500 character query limit.
	myMemoryChunk = 450
)

type MyMemoryService struct {
	email   string
	baseURL string
	client  *http.Client
}

func NewMyMemoryService(email string, timeout time.Duration) *MyMemoryService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &MyMemoryService{
		email:   email,
		baseURL: myMemoryURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *MyMemoryService) Name() string {
	return "mymemory"
}

func (s *MyMemoryService) Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	// MyMemory has no auto-detection.
	source := req.SourceLang
	if isAuto(source) {
		source = req.SourceHint
	}
	if source == "" {
		return fail(result, fmt.Errorf("source language is required"))
	}
	langPair := source + "|" + req.TargetLang

	pieces := chunker.Split(req.Text, myMemoryChunk)
	out := make([]string, 0, len(pieces))
	var match float64
	for _, piece := range pieces {
		text, m, err := s.translateChunk(ctx, piece, langPair)
		if err != nil {
			return fail(result, err)
		}
		out = append(out, text)
		match += m
	}

	result.TranslatedText = chunker.Join(out)
	result.Metadata = map[string]string{
		"match":  strconv.FormatFloat(match/float64(len(pieces)), 'f', 2, 64),
		"chunks": strconv.Itoa(len(pieces)),
	}
	return result, nil
}

func (s *MyMemoryService) translateChunk(ctx context.Context, text, langPair string) (string, float64, error) {
	params := url.Values{}
	params.Set("q", text)
	params.Set("langpair", langPair)
	if s.email != "" {
		params.Set("de", s.email)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var mymemResp struct {
		ResponseData struct {
			TranslatedText string  `json:"translatedText"`
			Match          float64 `json:"match"`
		} `json:"responseData"`
		ResponseStatus  int    `json:"responseStatus"`
		ResponseDetails string `json:"responseDetails"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&mymemResp); err != nil {
		return "", 0, fmt.Errorf("failed to decode response: %w", err)
	}

	if mymemResp.ResponseStatus != http.StatusOK {
		return "", 0, fmt.Errorf("API error: %s (%d)", mymemResp.ResponseDetails, mymemResp.ResponseStatus)
	}
	if mymemResp.ResponseData.TranslatedText == "" {
		return "", 0, fmt.Errorf("no translation returned")
	}

	return mymemResp.ResponseData.TranslatedText, mymemResp.ResponseData.Match, nil
}

func (s *MyMemoryService) IsAvailable(ctx context.Context) error {
	return nil
}

func (s *MyMemoryService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{
		"en", "es", "fr", "de", "it", "pt", "ru", "ja", "ko", "zh",
		"ar", "nl", "pl", "tr", "sv", "da", "no", "fi", "el", "he",
		"th", "vi", "id", "ms", "cs", "hu", "ro", "uk", "bg", "ca",
		"hi", "bn", "fa", "sw",
	}, nil
}
