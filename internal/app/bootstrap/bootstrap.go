package bootstrap

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"keywordtailor/app/internal/config"
	apphttp "keywordtailor/app/internal/http"
	"keywordtailor/app/internal/llm"
	"keywordtailor/app/internal/prompt"
	"keywordtailor/app/internal/seo"
)

type Dependencies struct {
	Config    *config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
}

type Result struct {
	Service    seo.Service
	HTTPServer *apphttp.Server
}

// completerFactory builds one provider-backed completer per model.
type completerFactory func(ctx context.Context, model string) (llm.Completer, error)

// Build composes the keyword service and the HTTP transport around it.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	service, err := BuildService(ctx, deps)
	if err != nil {
		return Result{}, err
	}

	cfg := deps.Config
	httpServer, err := apphttp.NewServer(apphttp.Options{
		Service:   service,
		Logger:    deps.Logger,
		SentryHub: deps.SentryHub,
		RateLimiter: apphttp.RateLimiterSettings{
			Burst:             cfg.RateLimit.Burst,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			ClientTTL:         cfg.RateLimit.ClientTTL,
		},
		CORSOrigins:  cfg.CORSOrigins,
		Provider:     cfg.LLMProvider,
		KeywordModel: cfg.KeywordModel(),
		BlogModel:    cfg.BlogModel(),
	})
	if err != nil {
		return Result{}, eris.Wrap(err, "initialising http server")
	}

	return Result{
		Service:    service,
		HTTPServer: httpServer,
	}, nil
}

// BuildService wires the configured provider, prompt catalog and flows. The CLI uses it directly.
func BuildService(ctx context.Context, deps Dependencies) (seo.Service, error) {
	if deps.Config == nil {
		return nil, eris.New("configuration is required")
	}

	newCompleter, err := completerFor(deps.Config, deps.Logger)
	if err != nil {
		return nil, err
	}

	return buildService(ctx, deps, newCompleter)
}

func buildService(ctx context.Context, deps Dependencies, newCompleter completerFactory) (seo.Service, error) {
	cfg := deps.Config
	if cfg.KeywordModel() == "" {
		return nil, eris.New("LLM_MODELS must include at least one model name")
	}

	catalog, err := prompt.LoadCatalog(cfg.PromptsPath)
	if err != nil {
		return nil, eris.Wrap(err, "loading prompt catalog")
	}

	keywordCaller, err := newCaller(ctx, newCompleter, cfg.KeywordModel(), deps.Logger)
	if err != nil {
		return nil, eris.Wrap(err, "initialising keyword caller")
	}

	blogCaller := keywordCaller
	if cfg.BlogModel() != cfg.KeywordModel() {
		blogCaller, err = newCaller(ctx, newCompleter, cfg.BlogModel(), deps.Logger)
		if err != nil {
			return nil, eris.Wrap(err, "initialising blog post caller")
		}
	}

	service, err := seo.NewService(seo.Options{
		KeywordCaller: keywordCaller,
		BlogCaller:    blogCaller,
		Catalog:       catalog,
		Logger:        deps.Logger,
		SentryHub:     deps.SentryHub,
	})
	if err != nil {
		return nil, eris.Wrap(err, "creating keyword service")
	}

	if deps.Logger != nil {
		deps.Logger.WithFields(logrus.Fields{
			"provider":      cfg.LLMProvider,
			"keyword_model": cfg.KeywordModel(),
			"blog_model":    cfg.BlogModel(),
			"prompt_count":  len(catalog),
		}).Info("keyword service ready")
	}

	return service, nil
}

func newCaller(ctx context.Context, newCompleter completerFactory, model string, logger *logrus.Logger) (*llm.Caller, error) {
	completer, err := newCompleter(ctx, model)
	if err != nil {
		return nil, err
	}

	return llm.NewCaller(llm.CallerOptions{
		Completer: completer,
		Logger:    logger,
		Model:     model,
	})
}

func completerFor(cfg *config.Config, logger *logrus.Logger) (completerFactory, error) {
	switch cfg.LLMProvider {
	case config.ProviderBedrock:
		return func(ctx context.Context, model string) (llm.Completer, error) {
			return llm.NewBedrockCompleter(ctx, llm.BedrockOptions{
				Region: cfg.AWSRegion,
				Model:  model,
				Logger: logger,
			})
		}, nil
	case config.ProviderOpenRouter, config.ProviderOpenAI:
		baseURL := cfg.LLMEndpoint
		if baseURL == "" && cfg.LLMProvider == config.ProviderOpenAI {
			baseURL = llm.OpenAIBaseURL
		}

		client, err := llm.NewClient(llm.ClientOptions{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: baseURL,
			Logger:  logger,
		})
		if err != nil {
			return nil, eris.Wrap(err, "creating llm client")
		}
		if logger != nil {
			logger.WithFields(logrus.Fields{
				"provider": cfg.LLMProvider,
				"base_url": client.BaseURL(),
			}).Info("llm client configured")
		}

		return func(_ context.Context, model string) (llm.Completer, error) {
			return llm.NewChatCompleter(llm.ChatCompleterOptions{
				Client:        client,
				Model:         model,
				DisableSchema: !cfg.StructuredOutput,
			})
		}, nil
	default:
		return nil, eris.Errorf("unsupported llm provider: %s", cfg.LLMProvider)
	}
}
