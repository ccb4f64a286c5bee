package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tanaste-io/tanaste/internal/config"
	"github.com/tanaste-io/tanaste/internal/daemon"
	"github.com/tanaste-io/tanaste/internal/events"
	"github.com/tanaste-io/tanaste/internal/harvest"
	"github.com/tanaste-io/tanaste/internal/ingestion"
	"github.com/tanaste-io/tanaste/internal/logx"
	"github.com/tanaste-io/tanaste/internal/processor"
	"github.com/tanaste-io/tanaste/internal/scoring"
	"github.com/tanaste-io/tanaste/internal/storage/sqlite"
	"github.com/tanaste-io/tanaste/internal/watcher"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the watch-and-ingest daemon",
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	manifest, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("start: load config: %w", err)
	}

	log := logx.New(logx.Options{})

	lock, err := daemon.Acquire(manifest.DataRoot)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer lock.Release()

	store, err := sqlite.Open(manifest.DatabasePath)
	if err != nil {
		return fmt.Errorf("start: open database: %w", err)
	}
	defer store.Close()

	bus := events.NewBus()
	queue := harvest.NewQueue()
	scoringEngine := scoring.NewEngine()

	registry := processor.NewRegistry()
	registry.Register(processor.NewGenericProcessor(), 0)

	ingestionCfg := func() ingestion.Config {
		weights, fieldWeights := manifest.ProviderWeights()
		return ingestion.Config{
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
	}
	engine := ingestion.NewEngine(store, registry, scoringEngine, queue, bus, ingestionCfg)

	dispatcher := harvest.NewDispatcher(queue, store, scoringEngine, func() (map[string]float64, map[string]map[string]float64, scoring.Config) {
		w, fw := manifest.ProviderWeights()
		return w, fw, ingestionCfg().Scoring
	}, bus)
	registerProviders(dispatcher, manifest)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := watcher.New(func(c watcher.Candidate) {
		if err := engine.Submit(ctx, c); err != nil {
			log.Error("ingest failed", "path", c.Path, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("start: create watcher: %w", err)
	}
	if err := w.AddDirectory(manifest.Ingestion.WatchDirectory, true); err != nil {
		return fmt.Errorf("start: watch %s: %w", manifest.Ingestion.WatchDirectory, err)
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start: start watcher: %w", err)
	}
	defer w.Stop()

	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	log.Info("tanasted started", "watchDirectory", manifest.Ingestion.WatchDirectory, "libraryRoot", manifest.Ingestion.LibraryRoot)
	bus.Publish(events.WatchFolderActive, map[string]string{"path": manifest.Ingestion.WatchDirectory})

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("tanasted shutting down")
	return nil
}

func registerProviders(d *harvest.Dispatcher, manifest *config.Manifest) {
	if p := manifest.Providers["ebook-search"]; p.Enabled {
		d.Register(harvest.NewEbookProvider(manifest.ProviderEndpoints["ebook-search"]))
	}
	if p := manifest.Providers["asin-lookup"]; p.Enabled {
		d.Register(harvest.NewAsinProvider(manifest.ProviderEndpoints["asin-lookup"]))
	}
	if p := manifest.Providers["knowledge-graph"]; p.Enabled {
		d.Register(harvest.NewKnowledgeGraphProvider(manifest.ProviderEndpoints["knowledge-graph"]))
	}
}
