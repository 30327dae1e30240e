package main

import (
	"github.com/spf13/cobra"

	"keywordtailor/app/internal/seo"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <keyword>...",
	Short: "Summarize keywords into main themes",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	request := seo.SummaryRequest{Keywords: args}
	return withService(cmd, func(service seo.Service) (any, error) {
		return service.SummarizeKeywords(cmd.Context(), request)
	})
}
