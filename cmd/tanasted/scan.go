package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tanaste-io/tanaste/internal/config"
	"github.com/tanaste-io/tanaste/internal/sidecar"
	"github.com/tanaste-io/tanaste/internal/storage/sqlite"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Perform a full library scan, re-reading sidecars and healing drift",
	RunE:  runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	manifest, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("scan: load config: %w", err)
	}

	store, err := sqlite.Open(manifest.DatabasePath)
	if err != nil {
		return fmt.Errorf("scan: open database: %w", err)
	}
	defer store.Close()

	scanner := sidecar.NewScanner(store)
	summary, err := scanner.LibraryScan(context.Background(), manifest.Ingestion.LibraryRoot)
	if err != nil {
		return fmt.Errorf("scan: library scan: %w", err)
	}

	fmt.Printf("scanned %d hubs, %d editions, %d errors, elapsed %s\n",
		summary.HubsUpserted, summary.EditionsUpserted, summary.Errors, summary.Elapsed)
	return nil
}
