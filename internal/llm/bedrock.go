package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const (
	bedrockAnthropicVersion = "bedrock-2023-05-31"
	defaultBedrockMaxTokens = 4096
	defaultBedrockRegion    = "us-east-1"
)

type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockOptions configures the Bedrock-backed completer.
type BedrockOptions struct {
	Region    string
	Model     string
	MaxTokens int
	Logger    *logrus.Logger
}

type bedrockCompleter struct {
	runtime   bedrockInvoker
	logger    *logrus.Logger
	model     string
	maxTokens int
}

type claudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	Temperature      float64         `json:"temperature"`
	System           string          `json:"system,omitempty"`
	Messages         []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// NewBedrockCompleter loads the default AWS configuration and returns a Completer that
// invokes an Anthropic Claude model on Amazon Bedrock. SDK retries are disabled.
func NewBedrockCompleter(ctx context.Context, opts BedrockOptions) (Completer, error) {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		return nil, eris.New("bedrock model id is required")
	}

	region := strings.TrimSpace(opts.Region)
	if region == "" {
		region = defaultBedrockRegion
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, eris.Wrap(err, "loading aws configuration")
	}

	runtime := bedrockruntime.NewFromConfig(cfg, func(o *bedrockruntime.Options) {
		o.RetryMaxAttempts = 1
	})

	return newBedrockCompleter(runtime, model, opts.MaxTokens, opts.Logger), nil
}

func newBedrockCompleter(runtime bedrockInvoker, model string, maxTokens int, logger *logrus.Logger) *bedrockCompleter {
	if maxTokens <= 0 {
		maxTokens = defaultBedrockMaxTokens
	}

	return &bedrockCompleter{
		runtime:   runtime,
		logger:    logger,
		model:     model,
		maxTokens: maxTokens,
	}
}

func (b *bedrockCompleter) Complete(ctx context.Context, completion Completion) (string, error) {
	payload, err := json.Marshal(claudeRequest{
		AnthropicVersion: bedrockAnthropicVersion,
		MaxTokens:        b.maxTokens,
		Temperature:      completion.temperature(),
		System:           completion.System,
		Messages: []claudeMessage{
			{Role: "user", Content: completion.User},
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "encoding bedrock request")
	}

	fields := logrus.Fields{"flow": completion.Name, "model": b.model}

	output, err := b.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.model),
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		b.logError(fields, err, "invoking bedrock model")
		return "", &TransportError{Err: eris.Wrap(err, "invoking bedrock model")}
	}

	var response claudeResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return "", invalidResponse("decoding bedrock response envelope", err)
	}

	var builder strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			builder.WriteString(block.Text)
		}
	}

	content := strings.TrimSpace(builder.String())
	if content == "" {
		return "", invalidResponse("bedrock response has no text content (stop reason "+response.StopReason+")", nil)
	}

	return content, nil
}

func (b *bedrockCompleter) logError(fields logrus.Fields, err error, message string) {
	if b.logger == nil || err == nil {
		return
	}

	entry := b.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Debug(message)
}
