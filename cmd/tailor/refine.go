package main

import (
	"github.com/spf13/cobra"

	"keywordtailor/app/internal/seo"
)

var (
	refineBase     string
	refineFeedback string
	refinePrevious []string
)

var refineCmd = &cobra.Command{
	Use:   "refine",
	Short: "Refine previous keyword suggestions with feedback",
	Args:  cobra.NoArgs,
	RunE:  runRefine,
}

func init() {
	refineCmd.Flags().StringVar(&refineBase, "base", "", "the original base keyword")
	refineCmd.Flags().StringVar(&refineFeedback, "feedback", "", "feedback on the previous suggestions")
	refineCmd.Flags().StringSliceVar(&refinePrevious, "previous", nil, "previous suggestions, comma separated")
	rootCmd.AddCommand(refineCmd)
}

func runRefine(cmd *cobra.Command, _ []string) error {
	request := seo.RefinementRequest{
		BaseKeyword:         refineBase,
		Feedback:            refineFeedback,
		PreviousSuggestions: refinePrevious,
	}
	return withService(cmd, func(service seo.Service) (any, error) {
		return service.ImproveKeywordPrompt(cmd.Context(), request)
	})
}
