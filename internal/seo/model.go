package seo

// KeywordRequest asks for long-tail suggestions for a base keyword.
type KeywordRequest struct {
	BaseKeyword string `json:"baseKeyword,omitempty" doc:"The base keyword to generate long-tail keyword suggestions for."`
}

// KeywordSuggestions lists long-tail keywords in the order the model produced them.
type KeywordSuggestions struct {
	LongTailKeywords []string `json:"longTailKeywords" doc:"An array of long-tail keyword suggestions."`
}

// RefinementRequest carries user feedback on a previous set of suggestions.
type RefinementRequest struct {
	BaseKeyword         string   `json:"baseKeyword,omitempty" doc:"The original base keyword."`
	Feedback            string   `json:"feedback,omitempty" doc:"User feedback on the previous keyword suggestions."`
	PreviousSuggestions []string `json:"previousSuggestions,omitempty" doc:"The previous keyword suggestions."`
}

// RefinedSuggestions is the refined long-tail keyword list.
type RefinedSuggestions struct {
	RefinedKeywords []string `json:"refinedKeywords" doc:"Refined long-tail keyword suggestions."`
}

// SummaryRequest lists the keywords to group into themes.
type SummaryRequest struct {
	Keywords []string `json:"keywords,omitempty" doc:"The list of keywords to summarize."`
}

// KeywordSummary describes the main themes of a keyword list.
type KeywordSummary struct {
	Summary  string `json:"summary" doc:"A summary of the main themes or categories of the keywords."`
	Progress string `json:"progress" doc:"A short, one-sentence summary of what has been generated."`
}

// BlogPostRequest asks for an SEO blog post targeting a keyword.
type BlogPostRequest struct {
	Keyword string `json:"keyword,omitempty" doc:"The keyword to generate the blog post for."`
}

// BlogPostResult holds the generated post.
type BlogPostResult struct {
	BlogPost string `json:"blogPost" doc:"The generated SEO optimized blog post."`
	Progress string `json:"progress" doc:"A short, one-sentence summary of what has been generated."`
}

const (
	// SummaryProgress is the fixed progress note returned by SummarizeKeywords.
	SummaryProgress = "The keywords have been summarized into main themes or categories."
	// BlogPostProgress is the fixed progress note returned by GenerateBlogPost.
	BlogPostProgress = "The blog post has been generated."
)
