package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"unicode/utf8"

	"github.com/a-h/briefserver/pdftext"
)

type ExtractCommand struct {
	File     string `arg:"" help:"The PDF to read." type:"existingfile"`
	MaxChars int    `help:"The maximum number of characters to extract." env:"MAX_CHARS" default:"12000"`
	LogLevel string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c ExtractCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)
	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	text, err := pdftext.Extract(data, c.MaxChars)
	if err != nil {
		return err
	}
	log.Info("extracted text", slog.String("file", c.File), slog.Int("characters", utf8.RuneCountInString(text)))
	fmt.Println(text)
	return nil
}
