package handlers

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"rivalscope/internal/core"
)

// NewCompetitorCmd creates the competitor management command group.
func NewCompetitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "competitor",
		Short: "Manage tracked competitors",
	}
	cmd.AddCommand(newCompetitorAddCmd())
	cmd.AddCommand(newCompetitorListCmd())
	return cmd
}

func newCompetitorAddCmd() *cobra.Command {
	var (
		url    string
		sector string
		desc   string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a competitor to track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, client, err := buildPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			defer client.Close()

			now := time.Now().UTC()
			c := &core.Competitor{
				ID:          uuid.NewString(),
				Name:        args[0],
				URL:         url,
				Sector:      sector,
				Description: desc,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := store.Competitors().Create(cmd.Context(), c); err != nil {
				return err
			}
			fmt.Printf("Added competitor %s (%s)\n", c.Name, c.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "competitor homepage")
	cmd.Flags().StringVar(&sector, "sector", "", "market sector")
	cmd.Flags().StringVar(&desc, "description", "", "short description")
	return cmd
}

func newCompetitorListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked competitors",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, client, err := buildPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			defer client.Close()

			list, err := store.Competitors().List(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("No competitors tracked yet. Add one with: rivalscope competitor add <name>")
				return nil
			}
			for _, c := range list {
				fmt.Printf("%s  %s", c.ID, c.Name)
				if c.Sector != "" {
					fmt.Printf("  [%s]", c.Sector)
				}
				fmt.Println()
			}
			return nil
		},
	}
}
