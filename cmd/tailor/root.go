package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"keywordtailor/app/internal/app/bootstrap"
	"keywordtailor/app/internal/config"
	applog "keywordtailor/app/internal/log"
	"keywordtailor/app/internal/seo"
)

var debug bool

var rootCmd = &cobra.Command{
	Use:          "tailor",
	Short:        "Long-tail keyword and SEO blog post generator",
	Long:         "Tailor runs the keyword flows against the configured language model provider and prints JSON.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// newService is swapped out in tests.
var newService = buildService

// buildService loads configuration from the environment (and .env) and wires the flows.
// Logs go to stderr so stdout stays machine-readable.
func buildService(ctx context.Context) (seo.Service, func(), error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, eris.Wrap(err, "loading configuration")
	}

	level := cfg.LogLevel
	if debug {
		level = logrus.DebugLevel.String()
	}

	logger, err := applog.NewLogger(level)
	if err != nil {
		return nil, nil, eris.Wrap(err, "initialising logger")
	}
	logger.SetOutput(os.Stderr)

	sentryHub, flush, err := applog.InitSentry(logger, applog.SentrySettings{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Provider:    cfg.LLMProvider,
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "initialising sentry")
	}

	service, err := bootstrap.BuildService(ctx, bootstrap.Dependencies{
		Config:    cfg,
		Logger:    logger,
		SentryHub: sentryHub,
	})
	if err != nil {
		flush()
		return nil, nil, err
	}

	return service, flush, nil
}

// withService runs fn against a freshly built service and flushes Sentry afterwards.
func withService(cmd *cobra.Command, fn func(seo.Service) (any, error)) error {
	service, flush, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer flush()

	result, err := fn(service)
	if err != nil {
		return err
	}

	return writeJSON(cmd.OutOrStdout(), result)
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return eris.Wrap(encoder.Encode(v), "writing output")
}
