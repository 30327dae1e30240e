package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"keywordtailor/app/internal/llm"
	"keywordtailor/app/internal/seo"
)

func TestKeywordsRouteReturnsSuggestions(t *testing.T) {
	t.Parallel()

	service := &stubService{keywords: &seo.KeywordSuggestions{LongTailKeywords: []string{"best running shoes for flat feet", "trail running shoes for women"}}}
	srv := newTestServer(t, service)

	rec := postJSON(t, srv, "/api/keywords", `{"baseKeyword":"running shoes"}`)

	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body seo.KeywordSuggestions
	decode(t, rec, &body)

	if len(body.LongTailKeywords) != 2 || body.LongTailKeywords[0] != "best running shoes for flat feet" {
		t.Fatalf("unexpected keywords %v", body.LongTailKeywords)
	}

	if service.lastKeyword.BaseKeyword != "running shoes" {
		t.Fatalf("expected base keyword to reach the service, got %q", service.lastKeyword.BaseKeyword)
	}

	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestKeywordsRouteMapsInvalidInputTo400(t *testing.T) {
	t.Parallel()

	service := &stubService{err: &llm.InvalidInputError{Flow: seo.FlowGenerateLongTailKeywords, Field: "baseKeyword"}}
	srv := newTestServer(t, service)

	rec := postJSON(t, srv, "/api/keywords", `{}`)

	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rec.Code, rec.Body.String())
	}

	if !strings.Contains(rec.Body.String(), "baseKeyword is required.") {
		t.Fatalf("expected field name in error body, got %q", rec.Body.String())
	}
}

func TestAPIRoutesMapProviderErrorsTo502(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		err     error
		message string
	}{
		"transport":        {&llm.TransportError{Err: errors.New("dial tcp: connection refused")}, transportErrorMessage},
		"invalid response": {&llm.InvalidResponseError{Reason: "missing field summary"}, invalidResponseMessage},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			srv := newTestServer(t, &stubService{err: tc.err})
			rec := postJSON(t, srv, "/api/keywords/summary", `{"keywords":["a","b","c"]}`)

			if rec.Code != stdhttp.StatusBadGateway {
				t.Fatalf("expected status 502, got %d", rec.Code)
			}

			if !strings.Contains(rec.Body.String(), tc.message) {
				t.Fatalf("expected %q in body, got %q", tc.message, rec.Body.String())
			}
		})
	}
}

func TestUnknownErrorMapsTo500(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubService{err: errors.New("boom")})
	rec := postJSON(t, srv, "/api/keywords/refine", `{"baseKeyword":"a","feedback":"b","previousSuggestions":["c"]}`)

	if rec.Code != stdhttp.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}

func TestRefineRouteForwardsRequest(t *testing.T) {
	t.Parallel()

	service := &stubService{refined: &seo.RefinedSuggestions{RefinedKeywords: []string{"waterproof trail running shoes"}}}
	srv := newTestServer(t, service)

	rec := postJSON(t, srv, "/api/keywords/refine", `{"baseKeyword":"running shoes","feedback":"more trail","previousSuggestions":["road running shoes"]}`)

	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if service.lastRefine.Feedback != "more trail" || len(service.lastRefine.PreviousSuggestions) != 1 {
		t.Fatalf("unexpected refinement request %+v", service.lastRefine)
	}

	var body seo.RefinedSuggestions
	decode(t, rec, &body)
	if len(body.RefinedKeywords) != 1 {
		t.Fatalf("unexpected refined keywords %v", body.RefinedKeywords)
	}
}

func TestSummaryRouteReturnsProgress(t *testing.T) {
	t.Parallel()

	service := &stubService{summary: &seo.KeywordSummary{Summary: "Themes: letters", Progress: seo.SummaryProgress}}
	srv := newTestServer(t, service)

	rec := postJSON(t, srv, "/api/keywords/summary", `{"keywords":["a","b","c"]}`)

	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body seo.KeywordSummary
	decode(t, rec, &body)
	if body.Progress != seo.SummaryProgress {
		t.Fatalf("expected progress %q, got %q", seo.SummaryProgress, body.Progress)
	}
}

func TestBlogPostRouteIncludesHTML(t *testing.T) {
	t.Parallel()

	service := &stubService{blog: &seo.BlogPostResult{BlogPost: "# Flat Feet\n\nPick **support**.", Progress: seo.BlogPostProgress}}
	srv := newTestServer(t, service)

	rec := postJSON(t, srv, "/api/blog-posts", `{"keyword":"running shoes for flat feet"}`)

	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		BlogPost     string `json:"blogPost"`
		BlogPostHTML string `json:"blogPostHtml"`
		Progress     string `json:"progress"`
	}
	decode(t, rec, &body)

	if body.BlogPost == "" || body.Progress != seo.BlogPostProgress {
		t.Fatalf("unexpected blog post body %+v", body)
	}

	if !strings.Contains(body.BlogPostHTML, "<strong>support</strong>") {
		t.Fatalf("expected rendered HTML, got %q", body.BlogPostHTML)
	}
}

func TestHomeRouteRendersForm(t *testing.T) {
	t.Parallel()

	service := &stubService{}
	srv := newTestServer(t, service)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/", nil))

	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	if ct := rec.Header().Get("Content-Type"); ct != htmlContentType {
		t.Fatalf("expected content type %q, got %q", htmlContentType, ct)
	}

	if !strings.Contains(rec.Body.String(), `name="keyword"`) {
		t.Fatalf("expected keyword form, got %q", rec.Body.String())
	}

	if service.calls != 0 {
		t.Fatalf("expected no flow call without a keyword, got %d", service.calls)
	}
}

func TestHomeRouteRendersKeywords(t *testing.T) {
	t.Parallel()

	service := &stubService{keywords: &seo.KeywordSuggestions{LongTailKeywords: []string{"running shoes for flat feet"}}}
	srv := newTestServer(t, service)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/?keyword=running+shoes", nil))

	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	if !strings.Contains(rec.Body.String(), "<li>running shoes for flat feet</li>") {
		t.Fatalf("expected keyword list, got %q", rec.Body.String())
	}
}

func TestHomeRouteRendersErrorPage(t *testing.T) {
	t.Parallel()

	service := &stubService{err: &llm.TransportError{Err: errors.New("timeout")}}
	srv := newTestServer(t, service)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/?keyword=shoes", nil))

	if rec.Code != stdhttp.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", rec.Code)
	}

	if !strings.Contains(rec.Body.String(), "502 Bad Gateway") {
		t.Fatalf("expected error page, got %q", rec.Body.String())
	}
}

func TestHomeRouteShowsRejectedKeywordInline(t *testing.T) {
	t.Parallel()

	service := &stubService{err: &llm.InvalidInputError{Flow: seo.FlowGenerateLongTailKeywords, Field: "baseKeyword"}}
	srv := newTestServer(t, service)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/?keyword=+++", nil))

	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, `role="alert">`+homeKeywordMissingMsg+"</p>") {
		t.Fatalf("expected inline error message, got %q", body)
	}
	if !strings.Contains(body, `name="keyword"`) {
		t.Fatalf("expected the form to be rendered again, got %q", body)
	}
	if service.lastKeyword.BaseKeyword != "   " {
		t.Fatalf("expected the raw keyword to reach the service, got %q", service.lastKeyword.BaseKeyword)
	}
}

func TestHealthRouteReportsModels(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubService{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/healthz", nil))

	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body map[string]string
	decode(t, rec, &body)
	if body["status"] != "ok" || body["provider"] != "openrouter" || body["keywordModel"] != "test-model" {
		t.Fatalf("unexpected health body %v", body)
	}
}

func TestRateLimitedAPIRequestReturnsJSON429(t *testing.T) {
	t.Parallel()

	srv, err := NewServer(Options{
		Service:      &stubService{keywords: &seo.KeywordSuggestions{LongTailKeywords: []string{"a"}}},
		Logger:       silentLogger(),
		RateLimiter:  RateLimiterSettings{RequestsPerSecond: 0.001, Burst: 1, ClientTTL: time.Minute},
		Provider:     "openrouter",
		KeywordModel: "test-model",
	})
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}
	t.Cleanup(srv.Close)

	if rec := postJSON(t, srv, "/api/keywords", `{"baseKeyword":"a"}`); rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}

	rec := postJSON(t, srv, "/api/keywords", `{"baseKeyword":"a"}`)
	if rec.Code != stdhttp.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rec.Code)
	}

	if rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After header, got %q", rec.Header().Get("Retry-After"))
	}

	if !strings.Contains(rec.Body.String(), rateLimitMessage) {
		t.Fatalf("expected rate limit message, got %q", rec.Body.String())
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	t.Parallel()

	srv, err := NewServer(Options{
		Service:      &stubService{},
		Logger:       silentLogger(),
		RateLimiter:  RateLimiterSettings{RequestsPerSecond: 10, Burst: 10, ClientTTL: time.Minute},
		CORSOrigins:  []string{"https://app.example.com"},
		KeywordModel: "test-model",
	})
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}
	t.Cleanup(srv.Close)

	req := httptest.NewRequest(stdhttp.MethodOptions, "/api/keywords", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", stdhttp.MethodPost)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("expected allowed origin header, got %q", got)
	}
}

func TestNewServerRequiresService(t *testing.T) {
	t.Parallel()

	_, err := NewServer(Options{RateLimiter: RateLimiterSettings{RequestsPerSecond: 1, Burst: 1, ClientTTL: time.Minute}})
	if err == nil {
		t.Fatalf("expected error without service")
	}
}

func TestPanicInAPIRouteReturnsJSON500(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubService{panics: true})
	rec := postJSON(t, srv, "/api/keywords", `{"baseKeyword":"a"}`)

	if rec.Code != stdhttp.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}

	if !strings.Contains(rec.Header().Get("Content-Type"), "json") {
		t.Fatalf("expected JSON problem response, got %q", rec.Header().Get("Content-Type"))
	}
}

func TestRequestIDIsReusedWhenValid(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubService{})
	const inbound = "2f1b8a52-9a53-4c1e-b8f6-3f3b0d9c6a11"

	req := httptest.NewRequest(stdhttp.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", inbound)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != inbound {
		t.Fatalf("expected inbound request id to be reused, got %q", got)
	}

	req = httptest.NewRequest(stdhttp.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "not-a-uuid")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got == "not-a-uuid" || got == "" {
		t.Fatalf("expected a fresh request id, got %q", got)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(stdhttp.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")
	if ip := clientIPFromRequest(req); ip != "203.0.113.7" {
		t.Fatalf("expected forwarded client ip, got %q", ip)
	}

	req = httptest.NewRequest(stdhttp.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.4:5123"
	if ip := clientIPFromRequest(req); ip != "198.51.100.4" {
		t.Fatalf("expected remote host, got %q", ip)
	}
}

type stubService struct {
	keywords *seo.KeywordSuggestions
	refined  *seo.RefinedSuggestions
	summary  *seo.KeywordSummary
	blog     *seo.BlogPostResult
	err      error
	panics   bool

	calls       int
	lastKeyword seo.KeywordRequest
	lastRefine  seo.RefinementRequest
}

func (s *stubService) GenerateLongTailKeywords(_ context.Context, req seo.KeywordRequest) (*seo.KeywordSuggestions, error) {
	s.calls++
	s.lastKeyword = req
	if s.panics {
		panic("keyword flow exploded")
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.keywords, nil
}

func (s *stubService) ImproveKeywordPrompt(_ context.Context, req seo.RefinementRequest) (*seo.RefinedSuggestions, error) {
	s.calls++
	s.lastRefine = req
	if s.err != nil {
		return nil, s.err
	}
	return s.refined, nil
}

func (s *stubService) SummarizeKeywords(_ context.Context, _ seo.SummaryRequest) (*seo.KeywordSummary, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.summary, nil
}

func (s *stubService) GenerateBlogPost(_ context.Context, _ seo.BlogPostRequest) (*seo.BlogPostResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.blog, nil
}

func newTestServer(t *testing.T, service seo.Service) *Server {
	t.Helper()

	srv, err := NewServer(Options{
		Service:      service,
		Logger:       silentLogger(),
		RateLimiter:  RateLimiterSettings{RequestsPerSecond: 100, Burst: 100, ClientTTL: time.Minute},
		Provider:     "openrouter",
		KeywordModel: "test-model",
		BlogModel:    "test-model",
	})
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}
	t.Cleanup(srv.Close)

	return srv
}

func postJSON(t *testing.T, srv *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(stdhttp.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()

	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
