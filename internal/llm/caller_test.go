package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rotisserie/eris"

	"keywordtailor/app/internal/prompt"
)

type stubCompleter struct {
	reply string
	err   error
	calls int
	last  Completion
}

func (s *stubCompleter) Complete(_ context.Context, completion Completion) (string, error) {
	s.calls++
	s.last = completion
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

type keywordRecord struct {
	LongTailKeywords []string `json:"longTailKeywords"`
}

var keywordPrompt = Prompt{
	Name:     "generateLongTailKeywords",
	System:   "You are an expert SEO keyword generator.",
	Template: "Base Keyword: {{baseKeyword}}",
	Output:   keywordShape,
}

func newTestCaller(t *testing.T, completer Completer) *Caller {
	t.Helper()

	caller, err := NewCaller(CallerOptions{Completer: completer, Logger: silentLogger(), Model: "tailor-model"})
	if err != nil {
		t.Fatalf("NewCaller returned error: %v", err)
	}
	return caller
}

func TestCallDecodesValidatedRecord(t *testing.T) {
	t.Parallel()

	completer := &stubCompleter{reply: `{"longTailKeywords":["best running shoes for beginners","running shoes for flat feet"]}`}
	caller := newTestCaller(t, completer)

	var out keywordRecord
	if err := caller.Call(context.Background(), keywordPrompt, prompt.Fields{"baseKeyword": "running shoes"}, &out); err != nil {
		t.Fatalf("Call returned error: %v", err)
	}

	if len(out.LongTailKeywords) != 2 {
		t.Fatalf("expected 2 keywords, got %v", out.LongTailKeywords)
	}

	if completer.calls != 1 {
		t.Fatalf("expected exactly one provider call, got %d", completer.calls)
	}

	if !strings.HasPrefix(completer.last.User, "Base Keyword: running shoes") {
		t.Fatalf("expected rendered prompt, got %q", completer.last.User)
	}

	if !strings.Contains(completer.last.User, `"longTailKeywords"`) {
		t.Fatalf("expected JSON instructions appended to prompt, got %q", completer.last.User)
	}

	if completer.last.Shape == nil || completer.last.Shape.Name != "long_tail_keywords" {
		t.Fatalf("expected shape forwarded to completer, got %+v", completer.last.Shape)
	}

	if completer.last.System != keywordPrompt.System {
		t.Fatalf("expected system prompt forwarded, got %q", completer.last.System)
	}
}

func TestCallMissingInputSkipsProvider(t *testing.T) {
	t.Parallel()

	completer := &stubCompleter{reply: `{"longTailKeywords":["a"]}`}
	caller := newTestCaller(t, completer)

	var out keywordRecord
	err := caller.Call(context.Background(), keywordPrompt, prompt.Fields{"baseKeyword": " "}, &out)

	var invalid *InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
	if invalid.Field != "baseKeyword" || invalid.Flow != "generateLongTailKeywords" {
		t.Fatalf("unexpected error details %+v", invalid)
	}

	if completer.calls != 0 {
		t.Fatalf("expected no provider call, got %d", completer.calls)
	}
}

func TestCallWrapsUnknownProviderErrorsAsTransport(t *testing.T) {
	t.Parallel()

	completer := &stubCompleter{err: eris.New("dial tcp: connection refused")}
	caller := newTestCaller(t, completer)

	var out keywordRecord
	err := caller.Call(context.Background(), keywordPrompt, prompt.Fields{"baseKeyword": "running shoes"}, &out)

	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if transport.Flow != "generateLongTailKeywords" {
		t.Fatalf("expected flow name on error, got %q", transport.Flow)
	}
}

func TestCallKeepsInvalidResponseFromProvider(t *testing.T) {
	t.Parallel()

	completer := &stubCompleter{err: invalidResponse("provider refused to answer", nil)}
	caller := newTestCaller(t, completer)

	var out keywordRecord
	err := caller.Call(context.Background(), keywordPrompt, prompt.Fields{"baseKeyword": "running shoes"}, &out)
	if !IsInvalidResponse(err) {
		t.Fatalf("expected InvalidResponseError, got %v", err)
	}
	if IsTransport(err) {
		t.Fatalf("refusal must not be reported as a transport failure")
	}
}

func TestCallMalformedReplyLeavesOutputUntouched(t *testing.T) {
	t.Parallel()

	completer := &stubCompleter{reply: "Sure! Here are some ideas: running shoes for kids"}
	caller := newTestCaller(t, completer)

	out := keywordRecord{LongTailKeywords: []string{"sentinel"}}
	err := caller.Call(context.Background(), keywordPrompt, prompt.Fields{"baseKeyword": "running shoes"}, &out)
	if !IsInvalidResponse(err) {
		t.Fatalf("expected InvalidResponseError, got %v", err)
	}

	if len(out.LongTailKeywords) != 1 || out.LongTailKeywords[0] != "sentinel" {
		t.Fatalf("expected output untouched, got %v", out.LongTailKeywords)
	}
}

func TestCallMalformedTemplateIsNotInputError(t *testing.T) {
	t.Parallel()

	completer := &stubCompleter{}
	caller := newTestCaller(t, completer)

	broken := keywordPrompt
	broken.Template = "Base Keyword: {{baseKeyword"

	var out keywordRecord
	err := caller.Call(context.Background(), broken, prompt.Fields{"baseKeyword": "x"}, &out)
	if err == nil || IsInvalidInput(err) {
		t.Fatalf("expected template error, got %v", err)
	}
	if !eris.Is(err, prompt.ErrMalformedTemplate) {
		t.Fatalf("expected ErrMalformedTemplate, got %v", err)
	}
}

func TestNewCallerRequiresCompleter(t *testing.T) {
	t.Parallel()

	if _, err := NewCaller(CallerOptions{}); err == nil {
		t.Fatalf("expected error when completer is nil")
	}
}

func TestCallForwardsPromptTemperature(t *testing.T) {
	t.Parallel()

	completer := &stubCompleter{reply: `{"longTailKeywords":["a"]}`}
	caller := newTestCaller(t, completer)

	var out keywordRecord
	if err := caller.Call(context.Background(), keywordPrompt, prompt.Fields{"baseKeyword": "tea"}, &out); err != nil {
		t.Fatalf("Call returned error: %v", err)
	}
	if completer.last.Temperature != nil {
		t.Fatalf("expected unset temperature, got %v", *completer.last.Temperature)
	}

	zero := 0.0
	deterministic := keywordPrompt
	deterministic.Temperature = &zero
	if err := caller.Call(context.Background(), deterministic, prompt.Fields{"baseKeyword": "tea"}, &out); err != nil {
		t.Fatalf("Call returned error: %v", err)
	}
	if completer.last.Temperature == nil || *completer.last.Temperature != 0 {
		t.Fatalf("expected temperature 0 to be forwarded, got %v", completer.last.Temperature)
	}
}
