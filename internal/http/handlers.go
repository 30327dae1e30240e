package http

import (
	"context"
	"errors"
	"fmt"
	"html"
	stdhttp "net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"keywordtailor/app/internal/http/templates"
	"keywordtailor/app/internal/llm"
	"keywordtailor/app/internal/markdown"
	"keywordtailor/app/internal/seo"
)

const (
	htmlContentType         = "text/html; charset=utf-8"
	errorFallbackMessage    = "We couldn't process your request right now."
	transportErrorMessage   = "The language model provider could not be reached. Please try again."
	invalidResponseMessage  = "The language model returned a response we couldn't use. Please try again."
	invalidInputFallbackMsg = "The request is missing required input."
	homeKeywordMissingMsg   = "Enter a keyword to generate suggestions."
)

type htmlResponse struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type homeInput struct {
	Keyword string `query:"keyword" doc:"Optional base keyword to generate suggestions for."`
}

type keywordInput struct {
	Body seo.KeywordRequest
}

type keywordOutput struct {
	Body seo.KeywordSuggestions
}

type refineInput struct {
	Body seo.RefinementRequest
}

type refineOutput struct {
	Body seo.RefinedSuggestions
}

type summaryInput struct {
	Body seo.SummaryRequest
}

type summaryOutput struct {
	Body seo.KeywordSummary
}

type blogPostInput struct {
	Body seo.BlogPostRequest
}

type blogPostBody struct {
	seo.BlogPostResult
	BlogPostHTML string `json:"blogPostHtml,omitempty" doc:"The blog post rendered as sanitized HTML."`
}

type blogPostOutput struct {
	Body blogPostBody
}

type healthResponse struct {
	Status int
	Body   struct {
		Status       string `json:"status"`
		Provider     string `json:"provider"`
		KeywordModel string `json:"keywordModel"`
		BlogModel    string `json:"blogModel"`
	}
}

func (s *Server) registerHomeRoute() {
	huma.Get(s.api, "/", s.homeHandler, htmlOperation(
		"Keyword Tailor home",
		stdhttp.StatusBadRequest,
		stdhttp.StatusInternalServerError,
		stdhttp.StatusBadGateway,
	))
}

func (s *Server) registerKeywordRoutes() {
	huma.Post(s.api, "/api/keywords", s.keywordsHandler, jsonOperation(
		"generate-long-tail-keywords",
		"Generate long-tail keywords",
	))
	huma.Post(s.api, "/api/keywords/refine", s.refineHandler, jsonOperation(
		"improve-keyword-prompt",
		"Refine keywords with feedback",
	))
	huma.Post(s.api, "/api/keywords/summary", s.summaryHandler, jsonOperation(
		"summarize-keywords",
		"Summarize keywords into themes",
	))
}

func (s *Server) registerBlogPostRoute() {
	huma.Post(s.api, "/api/blog-posts", s.blogPostHandler, jsonOperation(
		"generate-blog-post",
		"Generate an SEO blog post",
	))
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

// homeHandler renders the keyword form. A submitted form runs the keyword flow; rejected
// input is shown inline, provider failures get the error page.
func (s *Server) homeHandler(ctx context.Context, input *homeInput) (*htmlResponse, error) {
	data := templates.HomePageData{Keyword: strings.TrimSpace(input.Keyword)}
	status := stdhttp.StatusOK

	if input.Keyword != "" {
		result, err := s.service.GenerateLongTailKeywords(ctx, seo.KeywordRequest{BaseKeyword: input.Keyword})
		switch {
		case llm.IsInvalidInput(err):
			status = stdhttp.StatusBadRequest
			data.ErrorMessage = homeKeywordMissingMsg
			s.logFailure(ctx, err, "home page keyword rejected", logrus.Fields{"status": status})
		case err != nil:
			code, message := classifyError(err)
			s.logFailure(ctx, err, "home page keyword generation failed", logrus.Fields{"base_keyword": data.Keyword, "status": code})
			return s.renderErrorResponse(ctx, code, message)
		default:
			data.Keywords = result.LongTailKeywords
		}
	}

	resp, err := renderPage(ctx, status, templates.HomePage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering home page", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't render the homepage.")
	}

	return resp, nil
}

func (s *Server) keywordsHandler(ctx context.Context, input *keywordInput) (*keywordOutput, error) {
	result, err := s.service.GenerateLongTailKeywords(ctx, input.Body)
	if err != nil {
		return nil, s.apiError(ctx, err, "generating long-tail keywords")
	}
	return &keywordOutput{Body: *result}, nil
}

func (s *Server) refineHandler(ctx context.Context, input *refineInput) (*refineOutput, error) {
	result, err := s.service.ImproveKeywordPrompt(ctx, input.Body)
	if err != nil {
		return nil, s.apiError(ctx, err, "refining keywords")
	}
	return &refineOutput{Body: *result}, nil
}

func (s *Server) summaryHandler(ctx context.Context, input *summaryInput) (*summaryOutput, error) {
	result, err := s.service.SummarizeKeywords(ctx, input.Body)
	if err != nil {
		return nil, s.apiError(ctx, err, "summarizing keywords")
	}
	return &summaryOutput{Body: *result}, nil
}

func (s *Server) blogPostHandler(ctx context.Context, input *blogPostInput) (*blogPostOutput, error) {
	result, err := s.service.GenerateBlogPost(ctx, input.Body)
	if err != nil {
		return nil, s.apiError(ctx, err, "generating blog post")
	}

	out := &blogPostOutput{Body: blogPostBody{BlogPostResult: *result}}

	rendered, err := markdown.ToHTML(result.BlogPost)
	if err != nil {
		s.logFailure(ctx, err, "rendering blog post html", logrus.Fields{"keyword": input.Body.Keyword})
		return out, nil
	}
	out.Body.BlogPostHTML = rendered

	return out, nil
}

func (s *Server) healthHandler(_ context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{Status: stdhttp.StatusOK}
	resp.Body.Status = "ok"
	resp.Body.Provider = s.provider
	resp.Body.KeywordModel = s.keywordModel
	resp.Body.BlogModel = s.blogModel

	if s.keywordModel == "" {
		resp.Status = stdhttp.StatusServiceUnavailable
		resp.Body.Status = "degraded"
		resp.Body.KeywordModel = "unconfigured"
	}

	return resp, nil
}

func (s *Server) apiError(ctx context.Context, err error, message string) error {
	status, userMessage := classifyError(err)
	s.logFailure(ctx, err, message, logrus.Fields{"status": status})
	return huma.NewError(status, userMessage)
}

func jsonOperation(id, summary string) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		op.OperationID = id
		op.Summary = summary
		op.Tags = []string{"keywords"}
	}
}

func htmlOperation(summary string, statuses ...int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		if summary != "" {
			op.Summary = summary
		}
		if op.Responses == nil {
			op.Responses = map[string]*huma.Response{}
		}

		statusCodes := append([]int{stdhttp.StatusOK}, statuses...)
		for _, status := range statusCodes {
			code := strconv.Itoa(status)
			op.Responses[code] = &huma.Response{
				Description: stdhttp.StatusText(status),
				Content: map[string]*huma.MediaType{
					htmlContentType: {
						Schema: &huma.Schema{Type: "string"},
					},
				},
			}
		}
	}
}

// classifyError maps the flow error taxonomy onto an HTTP status and a user-facing message.
func classifyError(err error) (int, string) {
	var inputErr *llm.InvalidInputError
	switch {
	case err == nil:
		return stdhttp.StatusInternalServerError, errorFallbackMessage
	case errors.As(err, &inputErr):
		if inputErr.Field == "" {
			return stdhttp.StatusBadRequest, invalidInputFallbackMsg
		}
		reason := inputErr.Reason
		if reason == "" {
			reason = "is required"
		}
		return stdhttp.StatusBadRequest, fmt.Sprintf("%s %s.", inputErr.Field, reason)
	case llm.IsInvalidResponse(err):
		return stdhttp.StatusBadGateway, invalidResponseMessage
	case llm.IsTransport(err):
		return stdhttp.StatusBadGateway, transportErrorMessage
	default:
		return stdhttp.StatusInternalServerError, errorFallbackMessage
	}
}

func (s *Server) renderErrorResponse(ctx context.Context, status int, message string) (*htmlResponse, error) {
	label := fmt.Sprintf("%d %s", status, stdhttp.StatusText(status))
	template := templates.ErrorPage(templates.ErrorPageData{
		Title:       label + " • Keyword Tailor",
		StatusLabel: label,
		Message:     message,
	})

	resp, err := renderPage(ctx, status, template)
	if err != nil {
		s.recordError(ctx, err, "rendering error page", logrus.Fields{"status": status})
		fallback := fmt.Sprintf("<html><body><h1>%s</h1><p>%s</p></body></html>", label, html.EscapeString(message))
		return newHTMLResponse(status, []byte(fallback)), nil
	}

	return resp, nil
}

// logFailure logs a failed flow call. The flow service already reported it to Sentry.
func (s *Server) logFailure(ctx context.Context, err error, message string, fields logrus.Fields) {
	if s.logger == nil || err == nil {
		return
	}
	s.requestEntry(ctx, fields).WithError(err).Warn(message)
}

// recordError logs below the Sentry hook's levels and captures err once on the request hub.
func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		s.requestEntry(ctx, fields).WithError(err).Warn(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}
