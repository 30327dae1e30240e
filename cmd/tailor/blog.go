package main

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"keywordtailor/app/internal/markdown"
	"keywordtailor/app/internal/seo"
)

var blogHTML bool

var blogCmd = &cobra.Command{
	Use:   "blog <keyword>",
	Short: "Generate an SEO blog post for a keyword",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBlog,
}

func init() {
	blogCmd.Flags().BoolVar(&blogHTML, "html", false, "print the post as sanitized HTML instead of JSON")
	rootCmd.AddCommand(blogCmd)
}

func runBlog(cmd *cobra.Command, args []string) error {
	request := seo.BlogPostRequest{Keyword: strings.Join(args, " ")}

	if !blogHTML {
		return withService(cmd, func(service seo.Service) (any, error) {
			return service.GenerateBlogPost(cmd.Context(), request)
		})
	}

	service, flush, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer flush()

	result, err := service.GenerateBlogPost(cmd.Context(), request)
	if err != nil {
		return err
	}

	rendered, err := markdown.ToHTML(result.BlogPost)
	if err != nil {
		return eris.Wrap(err, "rendering blog post")
	}

	_, err = io.WriteString(cmd.OutOrStdout(), rendered+"\n")
	return eris.Wrap(err, "writing output")
}
