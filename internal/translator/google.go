package translator

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sync"
	"time"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

// ErrClosed is returned by a GoogleService after Close.
var ErrClosed = errors.New("google translate client is closed")

// GoogleService calls the Cloud Translation v2 API. The client is created on
// first use and shared afterwards.
type GoogleService struct {
	credentials string

	mu        sync.Mutex
	client    *translate.Client
	clientErr error
	closed    bool
}

// NewGoogleService returns a Cloud Translation service. credentials is an
// optional path to a service account file; when empty, application default
// credentials are used.
func NewGoogleService(credentials string) *GoogleService {
	return &GoogleService{credentials: credentials}
}

func (s *GoogleService) Name() string {
	return "google"
}

func (s *GoogleService) getClient(ctx context.Context) (*translate.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.client == nil && s.clientErr == nil {
		var opts []option.ClientOption
		if s.credentials != "" {
			opts = append(opts, option.WithCredentialsFile(s.credentials))
		}
		s.client, s.clientErr = translate.NewClient(context.WithoutCancel(ctx), opts...)
	}
	return s.client, s.clientErr
}

func (s *GoogleService) Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	target, err := language.Parse(req.TargetLang)
	if err != nil {
		return fail(result, fmt.Errorf("invalid target language %q: %w", req.TargetLang, err))
	}

	opts := &translate.Options{Format: translate.Text}
	if !isAuto(req.SourceLang) {
		source, err := language.Parse(req.SourceLang)
		if err != nil {
			return fail(result, fmt.Errorf("invalid source language %q: %w", req.SourceLang, err))
		}
		opts.Source = source
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return fail(result, fmt.Errorf("failed to create client: %w", err))
	}

	translations, err := client.Translate(ctx, []string{req.Text}, target, opts)
	if err != nil {
		return fail(result, fmt.Errorf("translation failed: %w", err))
	}
	if len(translations) == 0 {
		return fail(result, fmt.Errorf("no translation returned"))
	}

	result.TranslatedText = html.UnescapeString(translations[0].Text)
	if translations[0].Source != language.Und {
		result.DetectedSource = translations[0].Source.String()
	}
	return result, nil
}

func (s *GoogleService) IsAvailable(ctx context.Context) error {
	_, err := s.getClient(ctx)
	return err
}

func (s *GoogleService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return nil, nil
}

// Close releases the underlying client, if one was created. Later calls
// fail with ErrClosed.
func (s *GoogleService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.client == nil {
		return nil
	}
	client := s.client
	s.client = nil
	return client.Close()
}
