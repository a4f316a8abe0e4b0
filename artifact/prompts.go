package artifact

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/a-h/briefserver/models"
	"gopkg.in/yaml.v3"
)

const briefSystemPrompt = `You are an expert law tutor. Given excerpts from a casebook or syllabus, produce a structured case brief that is suitable for law school study. Include headings like: Facts, Issue, Holding, Reasoning, and Notes. If the text contains multiple cases, focus on the most important one and say so explicitly.`

const briefUserPrompt = `Create a detailed case brief based on the following text from {{ .Filename }}:

{{ .Text }}`

const outlineSystemPrompt = `You are an expert at creating law school course outlines. Given textbook or outline text, produce a concise but structured outline with headings, subheadings, and bullet points. Focus on doctrinal structure and elements, not storytelling.`

const outlineUserPrompt = `Create a course outline based on the following text from {{ .Filename }}:

{{ .Text }}`

// PromptConfig is the raw form of a prompt pair, as read from YAML.
type PromptConfig struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// Prompt is the system instruction and user template for one kind of artifact.
type Prompt struct {
	System string
	User   *template.Template
}

type promptData struct {
	Filename string
	Text     string
}

func (p Prompt) render(filename, text string) (string, error) {
	var sb strings.Builder
	if err := p.User.Execute(&sb, promptData{Filename: filename, Text: text}); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Prompts maps each artifact kind to its prompt pair.
type Prompts map[models.Kind]Prompt

// DefaultPrompts returns the built-in prompts for briefs and outlines.
func DefaultPrompts() Prompts {
	p, err := NewPrompts(map[models.Kind]PromptConfig{
		models.KindBrief:   {System: briefSystemPrompt, User: briefUserPrompt},
		models.KindOutline: {System: outlineSystemPrompt, User: outlineUserPrompt},
	})
	if err != nil {
		panic(err)
	}
	return p
}

// NewPrompts parses the user templates and checks that each renders.
func NewPrompts(configs map[models.Kind]PromptConfig) (Prompts, error) {
	prompts := make(Prompts, len(configs))
	for kind, pc := range configs {
		if !kind.Valid() {
			return nil, &InvalidKindError{Kind: kind}
		}
		if strings.TrimSpace(pc.System) == "" {
			return nil, fmt.Errorf("artifact: %s: system prompt is empty", kind)
		}
		tmpl, err := template.New(string(kind)).Option("missingkey=error").Parse(pc.User)
		if err != nil {
			return nil, fmt.Errorf("artifact: %s: invalid user prompt template: %w", kind, err)
		}
		p := Prompt{System: pc.System, User: tmpl}
		if _, err = p.render("hello.pdf", "world"); err != nil {
			return nil, fmt.Errorf("artifact: %s: invalid user prompt template: %w", kind, err)
		}
		prompts[kind] = p
	}
	return prompts, nil
}

// LoadPrompts reads prompt overrides from a YAML file. Kinds that aren't
// present in the file keep their default prompts. An empty filename returns
// the defaults.
func LoadPrompts(filename string) (Prompts, error) {
	prompts := DefaultPrompts()
	if filename == "" {
		return prompts, nil
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("artifact: failed to open prompts file: %w", err)
	}
	defer f.Close()
	var configs map[models.Kind]PromptConfig
	if err = yaml.NewDecoder(f).Decode(&configs); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("artifact: failed to decode prompts file %s: %w", filename, err)
	}
	overrides, err := NewPrompts(configs)
	if err != nil {
		return nil, err
	}
	for kind, p := range overrides {
		prompts[kind] = p
	}
	return prompts, nil
}
