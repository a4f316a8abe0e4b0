package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

type CLI struct {
	Serve    ServeCommand    `cmd:"serve" help:"Start the brief server."`
	Generate GenerateCommand `cmd:"generate" help:"Upload a PDF to a brief server and print the case brief or outline."`
	Extract  ExtractCommand  `cmd:"extract" help:"Print the text excerpt that would be sent to the LLM for a PDF."`
	Version  VersionCommand  `cmd:"version" help:"Print the version of the brief server."`
}

func main() {
	var cli CLI
	ctx := context.Background()
	kctx := kong.Parse(&cli, kong.UsageOnError(), kong.BindTo(ctx, (*context.Context)(nil)))
	if err := kctx.Run(); err != nil {
		log := getLogger("error")
		log.Error("error", slog.Any("error", err))
		os.Exit(1)
	}
}

func getLogger(level string) *slog.Logger {
	ll := slog.LevelInfo
	switch level {
	case "debug":
		ll = slog.LevelDebug
	case "info":
		ll = slog.LevelInfo
	case "warn":
		ll = slog.LevelWarn
	case "error":
		ll = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: ll,
	}))
}
