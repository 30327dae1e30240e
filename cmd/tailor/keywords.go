package main

import (
	"strings"

	"github.com/spf13/cobra"

	"keywordtailor/app/internal/seo"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords <base keyword>",
	Short: "Generate long-tail keyword suggestions",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runKeywords,
}

func init() {
	rootCmd.AddCommand(keywordsCmd)
}

func runKeywords(cmd *cobra.Command, args []string) error {
	request := seo.KeywordRequest{BaseKeyword: strings.Join(args, " ")}
	return withService(cmd, func(service seo.Service) (any, error) {
		return service.GenerateLongTailKeywords(cmd.Context(), request)
	})
}
