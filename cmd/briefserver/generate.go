package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/a-h/briefserver/client"
	"github.com/a-h/briefserver/models"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
)

type GenerateCommand struct {
	BriefServerURL string `help:"The URL of the brief server." env:"BRIEF_SERVER_URL" default:"http://localhost:8001"`
	File           string `arg:"" help:"The PDF to upload." type:"existingfile"`
	Kind           string `help:"The kind of artifact to generate." enum:"brief,outline" default:"brief"`
	Width          int    `help:"Wrap output at this many columns, 0 disables wrapping." default:"100"`
	NoValidate     bool   `help:"Upload the file without checking that it is a valid PDF first." default:"false"`
	LogLevel       string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

var titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#bd93f9")).Bold(true)

func (c GenerateCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)

	if !c.NoValidate {
		log.Debug("validating PDF", slog.String("file", c.File))
		if err = pdfapi.ValidateFile(c.File, nil); err != nil {
			return fmt.Errorf("%s is not a valid PDF: %w", c.File, err)
		}
	}
	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	log.Info("generating artifact", slog.String("file", c.File), slog.String("kind", c.Kind))
	rsc := client.New(c.BriefServerURL)
	resp, err := rsc.GeneratePost(ctx, models.GeneratePostRequest{
		Kind:     models.Kind(c.Kind),
		Filename: filepath.Base(c.File),
		File:     data,
	})
	if err != nil {
		return fmt.Errorf("failed to generate artifact: %w", err)
	}

	fmt.Println(titleStyle.Render(resp.Title))
	fmt.Println()
	fmt.Println(wrap(resp.Content, c.Width))
	return nil
}

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return wordwrap.String(s, width)
}
