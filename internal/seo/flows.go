package seo

import (
	"github.com/rotisserie/eris"

	"keywordtailor/app/internal/llm"
	"keywordtailor/app/internal/prompt"
)

// Flow names double as prompt catalog keys.
const (
	FlowGenerateLongTailKeywords = "generateLongTailKeywords"
	FlowImproveKeywordPrompt     = "improveKeywordPrompt"
	FlowSummarizeKeywords        = "summarizeKeywords"
	FlowGenerateBlogPost         = "generateBlogPost"
)

type flowDefinition struct {
	prompt llm.Prompt
	inputs []string
}

var defaultFlows = map[string]flowDefinition{
	FlowGenerateLongTailKeywords: {
		inputs: []string{"baseKeyword"},
		prompt: llm.Prompt{
			Name:   FlowGenerateLongTailKeywords,
			System: "You are an expert SEO keyword generator.",
			Template: `Generate a list of long-tail keyword suggestions based on the following base keyword:

Base Keyword: {{baseKeyword}}

The long-tail keywords should be relevant and specific to the base keyword.
Do not include any explanation or intro/outro text.`,
			Output: llm.Shape{
				Name:        "long_tail_keywords",
				Description: "Long-tail keyword suggestions for a base keyword.",
				Fields: []llm.Field{
					{Name: "longTailKeywords", Type: llm.StringList, Description: "An array of long-tail keyword suggestions.", MinItems: 1},
				},
			},
		},
	},
	FlowImproveKeywordPrompt: {
		inputs: []string{"baseKeyword", "feedback", "previousSuggestions"},
		prompt: llm.Prompt{
			Name:   FlowImproveKeywordPrompt,
			System: "You are an expert SEO specialist.",
			Template: `A user has provided the base keyword "{{baseKeyword}}" and the following long-tail keyword suggestions: {{previousSuggestions}}.
The user has given the following feedback: "{{feedback}}".
Based on this feedback, refine the long-tail keyword suggestions to be more relevant and accurate.`,
			Output: llm.Shape{
				Name:        "refined_keywords",
				Description: "Refined long-tail keyword suggestions.",
				Fields: []llm.Field{
					{Name: "refinedKeywords", Type: llm.StringList, Description: "Refined long-tail keyword suggestions.", MinItems: 1},
				},
			},
		},
	},
	FlowSummarizeKeywords: {
		inputs: []string{"keywords"},
		prompt: llm.Prompt{
			Name:   FlowSummarizeKeywords,
			System: "You are an expert in keyword analysis and categorization.",
			Template: `Your task is to summarize the following list of keywords into a few main themes or categories.
Provide a concise summary that captures the overall focus of the generated keyword list.

Keywords:
{{keywords|lines}}`,
			Output: llm.Shape{
				Name:        "keyword_summary",
				Description: "Main themes of a keyword list.",
				Fields: []llm.Field{
					{Name: "summary", Type: llm.String, Description: "A summary of the main themes or categories of the keywords."},
				},
			},
		},
	},
	FlowGenerateBlogPost: {
		inputs: []string{"keyword"},
		prompt: llm.Prompt{
			Name:   FlowGenerateBlogPost,
			System: "You are an expert SEO content writer.",
			Template: `Your task is to generate a SEO optimized blog post for the given keyword.
The blog post should be at least 500 words long and should be engaging and informative.
The blog post should be well-structured with markdown headings and paragraphs.
The blog post should be optimized for the given keyword.

Keyword: {{keyword}}`,
			Output: llm.Shape{
				Name:        "blog_post",
				Description: "An SEO optimized blog post.",
				Fields: []llm.Field{
					{Name: "blogPost", Type: llm.String, Description: "The generated SEO optimized blog post in markdown."},
				},
			},
		},
	},
}

// resolveFlows applies catalog overrides to the built-in prompts. Overrides must
// reference every input field of the flow and nothing else.
func resolveFlows(catalog prompt.Catalog) (map[string]llm.Prompt, error) {
	for name := range catalog {
		if _, ok := defaultFlows[name]; !ok {
			return nil, eris.Errorf("prompt catalog references unknown flow %s", name)
		}
	}

	resolved := make(map[string]llm.Prompt, len(defaultFlows))
	for name, def := range defaultFlows {
		tmpl := catalog.Resolve(name, prompt.Template{System: def.prompt.System, Template: def.prompt.Template})
		if err := prompt.CheckFields(tmpl.Template, def.inputs, def.inputs); err != nil {
			return nil, eris.Wrapf(err, "validating prompt for flow %s", name)
		}

		p := def.prompt
		p.System = tmpl.System
		p.Template = tmpl.Template
		resolved[name] = p
	}

	return resolved, nil
}
