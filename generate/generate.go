package generate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/chatflow-dev/chatflow/config"
	"github.com/chatflow-dev/chatflow/constants"
)

// ErrEmptyQuestion is returned when a prompt has no question.
var ErrEmptyQuestion = errors.New("question is required")

// Generator answers a prompt.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// NewGeneratorFromConfig returns the generator named by cfg. Empty means echo.
func NewGeneratorFromConfig(cfg config.GenerationConfig) (Generator, error) {
	tmpl, err := NewPromptTemplate(cfg.PromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("prompt template: %w", err)
	}
	switch strings.ToLower(cfg.Driver) {
	case "", constants.GeneratorEcho:
		return &EchoGenerator{template: tmpl}, nil
	case constants.GeneratorOpenAI:
		return NewOpenAIGenerator(OpenAIOptions{
			APIKey:      os.Getenv(constants.EnvOpenAIKey),
			Model:       cfg.Model,
			Endpoint:    cfg.Endpoint,
			Temperature: cfg.Temperature,
			Template:    tmpl,
		})
	default:
		return nil, fmt.Errorf("unsupported generation driver: %s", cfg.Driver)
	}
}

// EchoGenerator answers deterministically without calling a model. It still renders
// the prompt so template errors surface the same way they would in production.
type EchoGenerator struct {
	template *PromptTemplate
}

var _ Generator = (*EchoGenerator)(nil)

func NewEchoGenerator() *EchoGenerator {
	tmpl, _ := NewPromptTemplate("")
	return &EchoGenerator{template: tmpl}
}

func (g *EchoGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	if strings.TrimSpace(p.Question) == "" {
		return "", ErrEmptyQuestion
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := g.template.Messages(p); err != nil {
		return "", err
	}
	return "Echo: " + p.Question, nil
}
