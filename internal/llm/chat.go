package llm

import (
	"context"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/shared"
	"github.com/openai/openai-go/v2/shared/constant"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// ChatCompleterOptions configures the OpenAI-compatible completer.
type ChatCompleterOptions struct {
	Client *Client
	Model  string
	// DisableSchema stops the completer from sending a JSON schema response format,
	// for models behind OpenRouter that reject structured outputs.
	DisableSchema bool
}

type chatCompleter struct {
	client        *Client
	logger        *logrus.Logger
	model         string
	disableSchema bool
}

// NewChatCompleter constructs a Completer backed by chat completions.
func NewChatCompleter(opts ChatCompleterOptions) (Completer, error) {
	if opts.Client == nil {
		return nil, eris.New("llm client is required")
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		return nil, eris.New("chat model is required")
	}

	return &chatCompleter{
		client:        opts.Client,
		logger:        opts.Client.logger,
		model:         model,
		disableSchema: opts.DisableSchema,
	}, nil
}

func (c *chatCompleter) Complete(ctx context.Context, completion Completion) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if completion.System != "" {
		messages = append(messages, openai.SystemMessage(completion.System))
	}
	messages = append(messages, openai.UserMessage(completion.User))

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(completion.temperature()),
	}

	if completion.Shape != nil && !c.disableSchema {
		params.ResponseFormat = responseFormat(completion.Name, *completion.Shape)
	}

	fields := logrus.Fields{"flow": completion.Name, "model": c.model}

	result, err := c.client.chat.New(ctx, params)
	if err != nil {
		c.logError(fields, err, "requesting chat completion")
		return "", &TransportError{Err: eris.Wrap(err, "requesting chat completion")}
	}

	if len(result.Choices) == 0 {
		return "", invalidResponse("completion returned no choices", nil)
	}

	choice := result.Choices[0]
	if reason := strings.TrimSpace(choice.FinishReason); strings.EqualFold(reason, "content_filter") {
		return "", invalidResponse("provider blocked the request via content filter", nil)
	}

	if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
		return "", invalidResponse("provider refused to answer: "+refusal, nil)
	}

	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return "", invalidResponse("completion content is empty", nil)
	}

	return content, nil
}

func (c *chatCompleter) logError(fields logrus.Fields, err error, message string) {
	if c.logger == nil || err == nil {
		return
	}

	entry := c.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Debug(message)
}

func responseFormat(name string, shape Shape) openai.ChatCompletionNewParamsResponseFormatUnion {
	schemaName := shape.Name
	if schemaName == "" {
		schemaName = name
	}

	jsonSchema := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:   schemaName,
		Strict: openai.Bool(true),
		Schema: shape.JSONSchema(),
	}
	if shape.Description != "" {
		jsonSchema.Description = openai.String(shape.Description)
	}

	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: jsonSchema,
			Type:       constant.ValueOf[constant.JSONSchema](),
		},
	}
}
