package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rivalscope/internal/core"
	"rivalscope/internal/persistence"
)

// NewIngestCmd creates the ingest command.
func NewIngestCmd() *cobra.Command {
	var (
		url  string
		file string
	)

	cmd := &cobra.Command{
		Use:   "ingest <competitor>",
		Short: "Ingest a source for a competitor",
		Long: `Ingest a public source and run the full pipeline: extraction,
dedup, scoring, and theme reclustering.

Examples:
  # Fetch and process a review page
  rivalscope ingest Acme --url https://www.g2.com/products/acme/reviews

  # Process a saved text file
  rivalscope ingest Acme --file notes.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (url == "") == (file == "") {
				return fmt.Errorf("%w: exactly one of --url or --file is required", core.ErrValidation)
			}

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

			var result core.IngestResult
			if url != "" {
				result, err = orch.IngestURL(cmd.Context(), competitor.ID, url)
			} else {
				data, readErr := os.ReadFile(file)
				if readErr != nil {
					return fmt.Errorf("failed to read %s: %w", file, readErr)
				}
				result, err = orch.IngestText(cmd.Context(), competitor.ID, string(data), core.OriginUpload)
			}
			if err != nil {
				return err
			}

			fmt.Printf("Status: %s\n", result.Status)
			fmt.Printf("Insights extracted: %d\n", result.InsightsExtracted)
			fmt.Printf("Themes: %d\n", result.ThemesGenerated)
			if result.Message != "" {
				fmt.Printf("Note: %s\n", result.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "URL to fetch and process")
	cmd.Flags().StringVar(&file, "file", "", "text file to process")
	return cmd
}

// resolveCompetitor accepts either an id or a name.
func resolveCompetitor(ctx context.Context, store persistence.Store, ref string) (*core.Competitor, error) {
	if c, err := store.Competitors().Get(ctx, ref); err == nil {
		return c, nil
	}
	return store.Competitors().GetByName(ctx, ref)
}
