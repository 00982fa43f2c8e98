package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rivalscope/internal/collect"
	"rivalscope/internal/config"
	"rivalscope/internal/dedup"
	"rivalscope/internal/insight"
	"rivalscope/internal/llm"
	"rivalscope/internal/logger"
	"rivalscope/internal/persistence"
	"rivalscope/internal/pipeline"
	"rivalscope/internal/quality"
	"rivalscope/internal/themes"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rivalscope",
		Short: "Rivalscope turns public competitor feedback into scored intel and deliverables.",
		Long: `Rivalscope ingests public sources about your competitors (review sites,
forums, pasted notes), extracts cited insights, clusters them into scored
themes, and generates evaluated deliverables: battlecards, messaging
briefs, and roadmap recommendations.`,
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.rivalscope.yaml)")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewCompetitorCmd())
	rootCmd.AddCommand(NewIngestCmd())
	rootCmd.AddCommand(NewReportCmd())
	rootCmd.AddCommand(NewMonitorCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.App.LogLevel)
}

// buildPipeline wires the orchestrator and its store from configuration.
// The caller owns closing both the store and the collaborator client.
func buildPipeline(ctx context.Context) (*pipeline.Orchestrator, persistence.Store, llm.Client, error) {
	cfg := config.Get()

	store, err := persistence.NewSQLiteStore(cfg.Store.Directory)
	if err != nil {
		return nil, nil, nil, err
	}

	client, err := llm.New(ctx, cfg.AI)
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}

	scorer, err := insight.NewScorer(client, insight.Weights{
		Recency:   cfg.Scoring.RecencyWeight,
		Sentiment: cfg.Scoring.SentimentWeight,
		Frequency: cfg.Scoring.FrequencyWeight,
	}, cfg.Scoring.LowConfidenceFloor)
	if err != nil {
		store.Close()
		client.Close()
		return nil, nil, nil, err
	}

	dd := dedup.New(client)
	dd.InsightCutoff = cfg.Dedup.InsightCutoff
	dd.ChunkCutoff = cfg.Dedup.ChunkCutoff

	collector := collect.New()
	collector.ChunkSize = cfg.Ingest.ChunkSize
	collector.ChunkOverlap = cfg.Ingest.ChunkOverlap
	collector.UserAgent = cfg.Ingest.UserAgent

	aggregator := themes.NewAggregator(client, scorer, dd, cfg.Scoring.WeaknessSeverityBar)
	evaluator := quality.NewEvaluator(client, quality.Thresholds{
		Relevance:         cfg.Eval.Relevance,
		EvidenceCoverage:  cfg.Eval.EvidenceCoverage,
		HallucinationRisk: cfg.Eval.HallucinationRisk,
		Actionability:     cfg.Eval.Actionability,
		Freshness:         cfg.Eval.Freshness,
	})

	orch := pipeline.New(store, collector, scorer, dd, aggregator, client, evaluator, pipeline.Options{
		MaxStoredText: cfg.Ingest.MaxStoredText,
	})
	return orch, store, client, nil
}
