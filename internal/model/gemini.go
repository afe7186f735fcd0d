package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/valpere/medassist/internal/generator"
	"github.com/valpere/medassist/internal/postprocess"
)

var ErrMissingAPIKey = errors.New("missing gemini api key")

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient answers through the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client, err := genai.NewClient(context.WithoutCancel(ctx), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			Timeout: genai.Ptr(timeout),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Name() string {
	return "gemini"
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string, params generator.Params) (string, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(params.MaxLength),
		SystemInstruction: genai.NewContentFromText(
			"Answer the medical question briefly in plain English for a general audience.",
			genai.RoleUser,
		),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("empty gemini response")
	}
	return postprocess.Clean(text), nil
}
