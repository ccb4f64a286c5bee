package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tanaste-io/tanaste/internal/config"
	"github.com/tanaste-io/tanaste/internal/events"
	"github.com/tanaste-io/tanaste/internal/harvest"
	"github.com/tanaste-io/tanaste/internal/ingestion"
	"github.com/tanaste-io/tanaste/internal/processor"
	"github.com/tanaste-io/tanaste/internal/scoring"
	"github.com/tanaste-io/tanaste/internal/storage/sqlite"
)

var dryRunCmd = &cobra.Command{
	Use:   "dry-run [path]",
	Short: "Report the moves a library scan would make, without touching the filesystem",
	Args:  cobra.ExactArgs(1),
	RunE:  runDryRun,
}

func runDryRun(cmd *cobra.Command, args []string) error {
	manifest, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("dry-run: load config: %w", err)
	}

	store, err := sqlite.Open(manifest.DatabasePath)
	if err != nil {
		return fmt.Errorf("dry-run: open database: %w", err)
	}
	defer store.Close()

	registry := processor.NewRegistry()
	registry.Register(processor.NewGenericProcessor(), 0)

	weights, fieldWeights := manifest.ProviderWeights()
	cfg := ingestion.Config{
		LibraryRoot:          manifest.Ingestion.LibraryRoot,
		OrganizationTemplate: manifest.Ingestion.OrganizationTemplate,
		AutoOrganize:         manifest.Ingestion.AutoOrganize,
		WriteBack:            manifest.Ingestion.WriteBack,
		Scoring: scoring.Config{
			AutoLinkThreshold:     manifest.Scoring.AutoLinkThreshold,
			ConflictThreshold:     manifest.Scoring.ConflictThreshold,
			ConflictEpsilon:       manifest.Scoring.ConflictEpsilon,
			StaleClaimDecayDays:   manifest.Scoring.StaleClaimDecayDays,
			StaleClaimDecayFactor: manifest.Scoring.StaleClaimDecayFactor,
		},
		ProviderWeights:      weights,
		ProviderFieldWeights: fieldWeights,
	}

	engine := ingestion.NewEngine(store, registry, scoring.NewEngine(), harvest.NewQueue(), events.NewBus(), func() ingestion.Config { return cfg })

	ops, err := engine.DryRun(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("dry-run: %w", err)
	}

	if len(ops) == 0 {
		fmt.Println("no pending operations")
		return nil
	}
	for _, op := range ops {
		fmt.Printf("%-8s %s -> %s (%s)\n", op.Kind, op.Source, op.Destination, op.Reason)
	}
	return nil
}
