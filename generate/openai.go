package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chatflow-dev/chatflow/constants"
	"github.com/chatflow-dev/chatflow/telemetry"
)

// OpenAIOptions configures an OpenAIGenerator. Zero values take the defaults.
type OpenAIOptions struct {
	APIKey      string
	Model       string
	Endpoint    string
	Temperature float64
	Template    *PromptTemplate
	HTTPClient  *http.Client
}

// OpenAIGenerator calls an OpenAI compatible chat completions endpoint.
type OpenAIGenerator struct {
	apiKey      string
	model       string
	endpoint    string
	temperature float64
	template    *PromptTemplate
	client      *http.Client
}

var _ Generator = (*OpenAIGenerator)(nil)

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewOpenAIGenerator(opts OpenAIOptions) (*OpenAIGenerator, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%s environment variable is required", constants.EnvOpenAIKey)
	}
	g := &OpenAIGenerator{
		apiKey:      opts.APIKey,
		model:       opts.Model,
		endpoint:    opts.Endpoint,
		temperature: opts.Temperature,
		template:    opts.Template,
		client:      opts.HTTPClient,
	}
	if g.model == "" {
		g.model = constants.DefaultOpenAIModel
	}
	if g.endpoint == "" {
		g.endpoint = constants.DefaultOpenAIEndpoint
	}
	if g.template == nil {
		tmpl, err := NewPromptTemplate("")
		if err != nil {
			return nil, err
		}
		g.template = tmpl
	}
	if g.client == nil {
		g.client = &http.Client{Timeout: 60 * time.Second, Transport: telemetry.WrapTransport(nil)}
	}
	return g, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	if strings.TrimSpace(p.Question) == "" {
		return "", ErrEmptyQuestion
	}
	msgs, err := g.template.Messages(p)
	if err != nil {
		return "", err
	}
	reqBody, err := json.Marshal(chatRequest{Model: g.model, Messages: msgs, Temperature: g.temperature})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode chat completion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("chat completion error (status %d): %s", resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("chat completion error (status %d)", resp.StatusCode)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}
