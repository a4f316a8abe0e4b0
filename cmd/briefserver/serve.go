package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/a-h/briefserver/artifact"
	generatepost "github.com/a-h/briefserver/handlers/generate/post"
	healthget "github.com/a-h/briefserver/handlers/health/get"
	"github.com/a-h/briefserver/pdftext"
	"github.com/rs/cors"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

type ServeCommand struct {
	ListenAddr     string  `help:"The address to listen on." env:"LISTEN_ADDR" default:"localhost:8001"`
	TLSCertFile    string  `help:"The TLS certificate file." env:"TLS_CERT_FILE" default:""`
	TLSKeyFile     string  `help:"The TLS key file." env:"TLS_KEY_FILE" default:""`
	AllowedOrigin  string  `help:"The browser origin allowed to call the API." env:"ALLOWED_ORIGIN" default:"http://localhost:8000"`
	LLMProvider    string  `help:"The LLM provider to use." env:"LLM_PROVIDER" enum:"openai,ollama" default:"openai"`
	OpenAIAPIKey   string  `help:"The OpenAI API key." env:"OPENAI_API_KEY" default:""`
	OpenAIBaseURL  string  `help:"Override the OpenAI API base URL, e.g. for a compatible proxy." env:"OPENAI_BASE_URL" default:""`
	OllamaURL      string  `help:"The URL of the Ollama server." env:"OLLAMA_URL" default:"http://127.0.0.1:11434/"`
	Model          string  `help:"The model to generate artifacts with." env:"MODEL" default:"gpt-4o-mini"`
	Temperature    float64 `help:"The sampling temperature." env:"TEMPERATURE" default:"0.3"`
	MaxChars       int     `help:"The maximum number of characters of PDF text to send to the LLM." env:"MAX_CHARS" default:"12000"`
	MaxUploadBytes int64   `help:"The maximum size of an upload in bytes." env:"MAX_UPLOAD_BYTES" default:"20971520"`
	PromptsFile    string  `help:"A YAML file of system and user prompts keyed by kind." env:"PROMPTS_FILE" default:""`
	LogLevel       string  `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

// ConfigurationError prevents the server from starting.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Reason)
}

func (c ServeCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)

	prompts, err := artifact.LoadPrompts(c.PromptsFile)
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}

	log.Info("creating LLM client", slog.String("provider", c.LLMProvider), slog.String("model", c.Model))
	llm, err := c.newLLM(&http.Client{})
	if err != nil {
		return err
	}

	h := c.handler(log, artifact.New(llm,
		artifact.WithModel(c.Model),
		artifact.WithTemperature(c.Temperature),
		artifact.WithPrompts(prompts)))

	log.Info("Listening", slog.String("addr", c.ListenAddr), slog.String("allowedOrigin", c.AllowedOrigin))
	s := &http.Server{
		Addr:    c.ListenAddr,
		Handler: h,
	}
	if c.TLSCertFile != "" && c.TLSKeyFile != "" {
		log.Info("Enabling TLS mode")
		var cert tls.Certificate
		cert, err = tls.LoadX509KeyPair(c.TLSCertFile, c.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("failed to load cert: %w", err)
		}
		s.TLSConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{cert},
		}
		return s.ListenAndServeTLS(c.TLSCertFile, c.TLSKeyFile)
	}
	return s.ListenAndServe()
}

func (c ServeCommand) newLLM(httpClient *http.Client) (llms.Model, error) {
	switch c.LLMProvider {
	case "ollama":
		llm, err := ollama.New(
			ollama.WithModel(c.Model),
			ollama.WithHTTPClient(httpClient),
			ollama.WithServerURL(c.OllamaURL))
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM: %w", err)
		}
		return llm, nil
	case "openai", "":
		if c.OpenAIAPIKey == "" {
			return nil, ConfigurationError{Setting: "OPENAI_API_KEY", Reason: "not set, configure it in the environment"}
		}
		opts := []openai.Option{
			openai.WithToken(c.OpenAIAPIKey),
			openai.WithModel(c.Model),
			openai.WithHTTPClient(httpClient),
		}
		if c.OpenAIBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(c.OpenAIBaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM: %w", err)
		}
		return llm, nil
	}
	return nil, ConfigurationError{Setting: "LLM_PROVIDER", Reason: fmt.Sprintf("unknown provider %q", c.LLMProvider)}
}

func (c ServeCommand) handler(log *slog.Logger, generator *artifact.Generator) http.Handler {
	maxChars := c.MaxChars
	if maxChars <= 0 {
		maxChars = pdftext.DefaultMaxChars
	}

	mux := http.NewServeMux()

	gph := generatepost.New(log, generator, maxChars, c.MaxUploadBytes)
	mux.Handle("POST /api/generate", gph)

	mux.Handle("GET /health", healthget.New())

	return cors.New(cors.Options{
		AllowedOrigins: []string{c.AllowedOrigin},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(mux)
}
