package seo

import (
	"context"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"keywordtailor/app/internal/llm"
	"keywordtailor/app/internal/prompt"
)

// Service defines the keyword and blog post flows.
type Service interface {
	GenerateLongTailKeywords(ctx context.Context, req KeywordRequest) (*KeywordSuggestions, error)
	ImproveKeywordPrompt(ctx context.Context, req RefinementRequest) (*RefinedSuggestions, error)
	SummarizeKeywords(ctx context.Context, req SummaryRequest) (*KeywordSummary, error)
	GenerateBlogPost(ctx context.Context, req BlogPostRequest) (*BlogPostResult, error)
}

// Caller runs a structured prompt. *llm.Caller satisfies it.
type Caller interface {
	Call(ctx context.Context, p llm.Prompt, input prompt.Fields, out any) error
}

// Options wires the service with its dependencies.
type Options struct {
	KeywordCaller Caller
	// BlogCaller runs GenerateBlogPost; KeywordCaller is used when nil.
	BlogCaller Caller
	Catalog    prompt.Catalog
	Logger     *logrus.Logger
	SentryHub  *sentry.Hub
}

type service struct {
	keywords  Caller
	blog      Caller
	prompts   map[string]llm.Prompt
	logger    *logrus.Logger
	sentryHub *sentry.Hub
}

var _ Service = (*service)(nil)

// NewService wires the flows with their callers and resolved prompts.
func NewService(opts Options) (Service, error) {
	if opts.KeywordCaller == nil {
		return nil, eris.New("keyword caller is required")
	}

	blog := opts.BlogCaller
	if blog == nil {
		blog = opts.KeywordCaller
	}

	prompts, err := resolveFlows(opts.Catalog)
	if err != nil {
		return nil, eris.Wrap(err, "resolving flow prompts")
	}

	return &service{
		keywords:  opts.KeywordCaller,
		blog:      blog,
		prompts:   prompts,
		logger:    opts.Logger,
		sentryHub: opts.SentryHub,
	}, nil
}

func (s *service) GenerateLongTailKeywords(ctx context.Context, req KeywordRequest) (*KeywordSuggestions, error) {
	baseKeyword := strings.TrimSpace(req.BaseKeyword)
	if baseKeyword == "" {
		return nil, missing(FlowGenerateLongTailKeywords, "baseKeyword")
	}

	var out KeywordSuggestions
	err := s.keywords.Call(ctx, s.prompts[FlowGenerateLongTailKeywords], prompt.Fields{"baseKeyword": baseKeyword}, &out)
	if err != nil {
		s.recordError(ctx, logrus.Fields{"flow": FlowGenerateLongTailKeywords, "base_keyword": baseKeyword}, err, "generating long-tail keywords")
		return nil, err
	}

	return &out, nil
}

func (s *service) ImproveKeywordPrompt(ctx context.Context, req RefinementRequest) (*RefinedSuggestions, error) {
	baseKeyword := strings.TrimSpace(req.BaseKeyword)
	if baseKeyword == "" {
		return nil, missing(FlowImproveKeywordPrompt, "baseKeyword")
	}

	feedback := strings.TrimSpace(req.Feedback)
	if feedback == "" {
		return nil, missing(FlowImproveKeywordPrompt, "feedback")
	}

	previous := prompt.Compact(req.PreviousSuggestions)
	if len(previous) == 0 {
		return nil, missing(FlowImproveKeywordPrompt, "previousSuggestions")
	}

	var out RefinedSuggestions
	err := s.keywords.Call(ctx, s.prompts[FlowImproveKeywordPrompt], prompt.Fields{
		"baseKeyword":         baseKeyword,
		"feedback":            feedback,
		"previousSuggestions": previous,
	}, &out)
	if err != nil {
		s.recordError(ctx, logrus.Fields{"flow": FlowImproveKeywordPrompt, "base_keyword": baseKeyword}, err, "refining keywords")
		return nil, err
	}

	return &out, nil
}

func (s *service) SummarizeKeywords(ctx context.Context, req SummaryRequest) (*KeywordSummary, error) {
	keywords := prompt.Compact(req.Keywords)
	if len(keywords) == 0 {
		return nil, missing(FlowSummarizeKeywords, "keywords")
	}

	var out KeywordSummary
	err := s.keywords.Call(ctx, s.prompts[FlowSummarizeKeywords], prompt.Fields{"keywords": keywords}, &out)
	if err != nil {
		s.recordError(ctx, logrus.Fields{"flow": FlowSummarizeKeywords, "keyword_count": len(keywords)}, err, "summarizing keywords")
		return nil, err
	}

	out.Progress = SummaryProgress
	return &out, nil
}

func (s *service) GenerateBlogPost(ctx context.Context, req BlogPostRequest) (*BlogPostResult, error) {
	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" {
		return nil, missing(FlowGenerateBlogPost, "keyword")
	}

	var out BlogPostResult
	err := s.blog.Call(ctx, s.prompts[FlowGenerateBlogPost], prompt.Fields{"keyword": keyword}, &out)
	if err != nil {
		s.recordError(ctx, logrus.Fields{"flow": FlowGenerateBlogPost, "keyword": keyword}, err, "generating blog post")
		return nil, err
	}

	out.Progress = BlogPostProgress
	return &out, nil
}

func missing(flow, field string) error {
	return &llm.InvalidInputError{Flow: flow, Field: field}
}

// recordError logs a failed flow at warn level, which the Sentry log hook skips,
// and reports anything but invalid input to Sentry exactly once.
func (s *service) recordError(ctx context.Context, fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Warn(message)
	}

	if llm.IsInvalidInput(err) {
		return
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}
