package log

import (
	"time"

	"github.com/getsentry/sentry-go"
	sentrylogrus "github.com/getsentry/sentry-go/logrus"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const providerTag = "llm.provider"

// SentrySettings configures Sentry reporting for the server and the CLI.
type SentrySettings struct {
	DSN         string
	Environment string
	Release     string
	// Provider tags every event and forwarded log with the configured LLM provider.
	Provider string
	// Transport replaces the HTTP transport when set.
	Transport sentry.Transport
}

// InitSentry returns the hub flow failures are captured on and forwards error-level
// logs to Sentry Logs. Without a DSN it is a no-op and the hub is nil.
func InitSentry(logger *logrus.Logger, settings SentrySettings) (*sentry.Hub, func(), error) {
	if settings.DSN == "" {
		return nil, func() {}, nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              settings.DSN,
		Environment:      settings.Environment,
		Release:          settings.Release,
		AttachStacktrace: true,
		EnableLogs:       true,
		Transport:        settings.Transport,
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "error initializing sentry client")
	}

	hub := sentry.NewHub(client, sentry.NewScope())

	hook := sentrylogrus.NewLogHookFromClient([]logrus.Level{
		logrus.ErrorLevel,
		logrus.FatalLevel,
		logrus.PanicLevel,
	}, client)

	if settings.Provider != "" {
		hub.Scope().SetTag(providerTag, settings.Provider)
		hook.AddTags(map[string]string{providerTag: settings.Provider})
	}

	logger.AddHook(hook)

	flush := func() {
		hub.Flush(2 * time.Second)
	}

	return hub, flush, nil
}
