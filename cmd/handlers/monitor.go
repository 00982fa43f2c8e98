package handlers

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMonitorCmd creates the monitoring summary command.
func NewMonitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Show artifact quality metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, store, client, err := buildPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			defer client.Close()

			summary, err := orch.Monitoring(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Artifacts:          %d\n", summary.TotalArtifacts)
			fmt.Printf("Accepted:           %d\n", summary.AcceptedCount)
			fmt.Printf("Flagged:            %d\n", summary.FlaggedCount)
			fmt.Printf("Pending review:     %d\n", summary.PendingReview)
			if summary.TotalArtifacts == 0 {
				return nil
			}
			fmt.Println()
			fmt.Printf("Avg relevance:      %.2f\n", summary.AvgRelevance)
			fmt.Printf("Avg evidence:       %.2f\n", summary.AvgEvidenceCoverage)
			fmt.Printf("Avg hallucination:  %.2f\n", summary.AvgHallucinationRisk)
			fmt.Printf("Avg actionability:  %.2f\n", summary.AvgActionability)
			fmt.Printf("Avg freshness:      %.2f\n", summary.AvgFreshness)
			fmt.Printf("Avg overall:        %.2f\n", summary.AvgOverall)
			return nil
		},
	}
}
