package artifact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/a-h/briefserver/models"
	"github.com/tmc/langchaingo/llms"
)

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.3
)

// ErrEmptyInput is returned when there is no text to summarize.
var ErrEmptyInput = errors.New("artifact: no text to summarize")

type InvalidKindError struct {
	Kind models.Kind
}

func (e *InvalidKindError) Error() string {
	return fmt.Sprintf("artifact: invalid kind %q, must be one of %q or %q", string(e.Kind), models.KindBrief, models.KindOutline)
}

// ProviderError wraps any failure of the completion API, including a
// response that contains no usable content.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("artifact: completion failed: %v", e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

var errNoContent = errors.New("response contained no content")

type Option func(*Generator)

func WithModel(model string) Option {
	return func(g *Generator) {
		g.model = model
	}
}

func WithTemperature(temperature float64) Option {
	return func(g *Generator) {
		g.temperature = temperature
	}
}

func WithPrompts(prompts Prompts) Option {
	return func(g *Generator) {
		for kind, p := range prompts {
			g.prompts[kind] = p
		}
	}
}

// New creates a Generator that uses llm to write artifacts.
func New(llm llms.Model, opts ...Option) *Generator {
	g := &Generator{
		llm:         llm,
		model:       DefaultModel,
		temperature: DefaultTemperature,
		prompts:     DefaultPrompts(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generator writes case briefs and outlines. It holds no per-request state
// and is safe for concurrent use.
type Generator struct {
	llm         llms.Model
	model       string
	temperature float64
	prompts     Prompts
}

// Generate makes a single completion request to turn text, extracted from
// filename, into an artifact of the given kind.
func (g *Generator) Generate(ctx context.Context, kind models.Kind, text, filename string) (resp models.GeneratePostResponse, err error) {
	if !kind.Valid() {
		return resp, &InvalidKindError{Kind: kind}
	}
	if strings.TrimSpace(text) == "" {
		return resp, ErrEmptyInput
	}
	prompt, ok := g.prompts[kind]
	if !ok {
		return resp, &InvalidKindError{Kind: kind}
	}
	userPrompt, err := prompt.render(filename, text)
	if err != nil {
		return resp, fmt.Errorf("artifact: failed to render prompt: %w", err)
	}

	cr, err := g.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, prompt.System),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}, llms.WithModel(g.model), llms.WithTemperature(g.temperature))
	if err != nil {
		return resp, &ProviderError{Err: err}
	}
	if cr == nil || len(cr.Choices) == 0 || cr.Choices[0] == nil || cr.Choices[0].Content == "" {
		return resp, &ProviderError{Err: errNoContent}
	}

	return models.GeneratePostResponse{
		Title:   Title(filename, kind),
		Content: cr.Choices[0].Content,
		Kind:    kind,
	}, nil
}

// Title of an artifact generated from filename.
func Title(filename string, kind models.Kind) string {
	return fmt.Sprintf("%s – %s", filename, kind.Label())
}
