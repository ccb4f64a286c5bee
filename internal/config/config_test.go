package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaultsWithNoFile(t *testing.T) {
	dir := t.TempDir()
	oldWd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(oldWd) })

	m, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Scoring.AutoLinkThreshold != 0.85 {
		t.Fatalf("expected default autoLinkThreshold 0.85, got %v", m.Scoring.AutoLinkThreshold)
	}
	if !m.Ingestion.AutoOrganize {
		t.Fatalf("expected autoOrganize to default true")
	}
	weights, _ := m.ProviderWeights()
	if weights["localProcessor"] != 1.0 {
		t.Fatalf("expected localProcessor weight 1.0, got %v", weights["localProcessor"])
	}
}

func TestLoadReadsExplicitFileAndOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tanaste.json")
	contents := `{"ingestion": {"autoOrganize": false}, "scoring": {"autoLinkThreshold": 0.5}}`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Ingestion.AutoOrganize {
		t.Fatalf("expected autoOrganize override to false")
	}
	if m.Scoring.AutoLinkThreshold != 0.5 {
		t.Fatalf("expected autoLinkThreshold override 0.5, got %v", m.Scoring.AutoLinkThreshold)
	}
}

func TestEnvVarOverridesFileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	oldWd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(oldWd) })

	t.Setenv("TANASTE_INGESTION_AUTOORGANIZE", "false")

	m, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Ingestion.AutoOrganize {
		t.Fatalf("expected env var override to win over the default")
	}
}

func TestProviderWeightsSkipsDisabledProviders(t *testing.T) {
	m := &Manifest{
		Providers: map[string]struct {
			Enabled      bool               `mapstructure:"enabled"`
			Weight       float64            `mapstructure:"weight"`
			FieldWeights map[string]float64 `mapstructure:"fieldWeights"`
		}{
			"a": {Enabled: true, Weight: 0.9},
			"b": {Enabled: false, Weight: 0.5},
		},
	}
	weights, _ := m.ProviderWeights()
	if _, ok := weights["b"]; ok {
		t.Fatalf("expected disabled provider b to be excluded")
	}
	if weights["a"] != 0.9 {
		t.Fatalf("expected provider a weight 0.9, got %v", weights["a"])
	}
}
