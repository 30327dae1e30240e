package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"keywordtailor/app/internal/prompt"
)

// Completion is a single rendered request sent to a provider.
type Completion struct {
	Name   string
	System string
	User   string
	// Shape is forwarded so providers with structured output support can enforce it server side.
	Shape *Shape
	// Temperature is nil when the prompt leaves sampling to DefaultTemperature.
	Temperature *float64
}

// DefaultTemperature applies to completions that do not set one.
const DefaultTemperature = 0.7

func (c Completion) temperature() float64 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}

// Completer sends one completion to a text-generation provider and returns its raw text reply.
type Completer interface {
	Complete(ctx context.Context, completion Completion) (string, error)
}

// Prompt pairs a prompt template with the shape of the record it must produce.
type Prompt struct {
	Name        string
	System      string
	Template    string
	Output      Shape
	Temperature *float64
}

// Caller runs prompts against a provider and validates the structured reply.
type Caller struct {
	completer Completer
	logger    *logrus.Logger
	model     string
}

// CallerOptions configures a Caller.
type CallerOptions struct {
	Completer Completer
	Logger    *logrus.Logger
	// Model is only used for log fields; the completer decides which model is called.
	Model string
}

// NewCaller constructs a Caller.
func NewCaller(opts CallerOptions) (*Caller, error) {
	if opts.Completer == nil {
		return nil, eris.New("llm completer is required")
	}

	return &Caller{
		completer: opts.Completer,
		logger:    opts.Logger,
		model:     strings.TrimSpace(opts.Model),
	}, nil
}

// Call renders p with input, sends it to the provider and decodes the validated reply into out.
// out must be a pointer to a struct whose JSON field names match p.Output. On error out is untouched.
func (c *Caller) Call(ctx context.Context, p Prompt, input prompt.Fields, out any) error {
	user, err := prompt.Render(p.Template, input)
	if err != nil {
		var missing *prompt.MissingFieldError
		if errors.As(err, &missing) {
			return &InvalidInputError{Flow: p.Name, Field: missing.Field}
		}
		return eris.Wrapf(err, "rendering prompt %s", p.Name)
	}

	shape := p.Output
	completion := Completion{
		Name:        p.Name,
		System:      strings.TrimSpace(p.System),
		User:        user + "\n\n" + shape.Instructions(),
		Shape:       &shape,
		Temperature: p.Temperature,
	}

	fields := logrus.Fields{"flow": p.Name, "model": c.model}
	start := time.Now()

	reply, err := c.completer.Complete(ctx, completion)
	if err != nil {
		err = classify(p.Name, err)
		c.logError(fields, err, "provider call failed")
		return err
	}

	record, err := shape.Validate(reply)
	if err != nil {
		err = classify(p.Name, err)
		c.logError(fields, err, "provider reply rejected")
		return err
	}

	encoded, err := json.Marshal(record)
	if err != nil {
		return eris.Wrapf(err, "encoding validated record for %s", p.Name)
	}
	if err := json.Unmarshal(encoded, out); err != nil {
		return eris.Wrapf(err, "decoding validated record for %s", p.Name)
	}

	if c.logger != nil {
		c.logger.WithFields(fields).
			WithField("duration_ms", float64(time.Since(start).Microseconds())/1000).
			Debug("flow completed")
	}

	return nil
}

// classify stamps the flow name on taxonomy errors and treats anything else as a transport failure.
func classify(flow string, err error) error {
	var invalidInput *InvalidInputError
	var transport *TransportError
	var invalidResp *InvalidResponseError

	switch {
	case errors.As(err, &invalidInput):
		if invalidInput.Flow == "" {
			invalidInput.Flow = flow
		}
		return invalidInput
	case errors.As(err, &invalidResp):
		if invalidResp.Flow == "" {
			invalidResp.Flow = flow
		}
		return invalidResp
	case errors.As(err, &transport):
		if transport.Flow == "" {
			transport.Flow = flow
		}
		return transport
	default:
		return &TransportError{Flow: flow, Err: err}
	}
}

func (c *Caller) logError(fields logrus.Fields, err error, message string) {
	if c.logger == nil || err == nil {
		return
	}

	entry := c.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Warn(message)
}
