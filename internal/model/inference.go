package model

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/valpere/medassist/internal/generator"
)

// InferenceClient talks to a text2text inference server that has the local
// pretrained model loaded.
type InferenceClient struct {
	baseURL string
	model   *Pretrained
	client  *http.Client
}

type inferenceRequest struct {
	Model      string           `json:"model,omitempty"`
	Inputs     string           `json:"inputs"`
	Parameters generator.Params `json:"parameters"`
}

type inferenceOutput struct {
	GeneratedText string `json:"generated_text"`
}

func NewInferenceClient(baseURL string, model *Pretrained, timeout time.Duration) *InferenceClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &InferenceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *InferenceClient) Name() string {
	return "inference"
}

func (c *InferenceClient) Generate(ctx context.Context, prompt string, params generator.Params) (string, error) {
	body := inferenceRequest{Inputs: prompt, Parameters: params}
	if c.model != nil {
		body.Model = c.model.Name
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read inference response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("inference server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	return decodeGenerated(data)
}

// decodeGenerated accepts both [{"generated_text": ...}] and {"generated_text": ...}.
func decodeGenerated(data []byte) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var outputs []inferenceOutput
		if err := json.Unmarshal(trimmed, &outputs); err != nil {
			return "", fmt.Errorf("failed to decode inference response: %w", err)
		}
		if len(outputs) == 0 {
			return "", fmt.Errorf("inference server returned no output")
		}
		return outputs[0].GeneratedText, nil
	}

	var output inferenceOutput
	if err := json.Unmarshal(trimmed, &output); err != nil {
		return "", fmt.Errorf("failed to decode inference response: %w", err)
	}
	return output.GeneratedText, nil
}
