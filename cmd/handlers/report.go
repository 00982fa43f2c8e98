package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"rivalscope/internal/core"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "report <competitor>",
		Short: "Build a competitive snapshot report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, store, client, err := buildPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			defer client.Close()

			competitor, err := resolveCompetitor(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}

			rep, err := orch.BuildReport(cmd.Context(), competitor.ID)
			if err != nil {
				return err
			}

			if asJSON {
				fmt.Println(rep.Content)
				return nil
			}

			var snap core.Snapshot
			if err := json.Unmarshal([]byte(rep.Content), &snap); err != nil {
				return fmt.Errorf("failed to decode snapshot: %w", err)
			}
			printSnapshot(snap)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw snapshot JSON")
	return cmd
}

func printSnapshot(snap core.Snapshot) {
	fmt.Printf("# %s\n\n", snap.Title)
	fmt.Printf("Themes: %d   Evidence: %d   Avg confidence: %.2f\n\n",
		snap.ThemeCount, snap.EvidenceCount, snap.AvgConfidence)

	printList := func(header string, items []string) {
		fmt.Printf("## %s\n", header)
		if len(items) == 0 {
			fmt.Println("  (none identified)")
		}
		for _, item := range items {
			fmt.Printf("  - %s\n", item)
		}
		fmt.Println()
	}
	printList("Strengths", snap.SWOT.Strengths)
	printList("Weaknesses", snap.SWOT.Weaknesses)
	printList("Opportunities", snap.SWOT.Opportunities)
	printList("Threats", snap.SWOT.Threats)

	fmt.Println("## Top Weaknesses")
	if len(snap.TopWeaknesses) == 0 {
		fmt.Println("  (none identified)")
	}
	for i, w := range snap.TopWeaknesses {
		fmt.Printf("  %d. %s (severity %.2f) %s\n", i+1, w.Name, w.Severity, w.Evidence)
	}
	fmt.Println()

	fmt.Printf("## Positioning Angle\n  %s\n\n", snap.PositioningAngle)
	printList("Recommended Actions", snap.RecommendedActions)
}
