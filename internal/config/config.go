// Package config loads the Tanaste configuration manifest: a JSON file
// with environment-variable overrides, following the same viper-backed
// singleton idiom the teacher uses for its own config loading, adapted
// from YAML to the JSON manifest format spec §6 documents.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Manifest is the fully-resolved configuration, covering every key
// documented in spec §6.
type Manifest struct {
	DatabasePath string `mapstructure:"databasePath"`
	DataRoot     string `mapstructure:"dataRoot"`

	Ingestion struct {
		WatchDirectory       string `mapstructure:"watchDirectory"`
		LibraryRoot          string `mapstructure:"libraryRoot"`
		AutoOrganize         bool   `mapstructure:"autoOrganize"`
		WriteBack            bool   `mapstructure:"writeBack"`
		OrganizationTemplate string `mapstructure:"organizationTemplate"`
	} `mapstructure:"ingestion"`

	Scoring struct {
		AutoLinkThreshold     float64 `mapstructure:"autoLinkThreshold"`
		ConflictThreshold     float64 `mapstructure:"conflictThreshold"`
		ConflictEpsilon       float64 `mapstructure:"conflictEpsilon"`
		StaleClaimDecayDays   int     `mapstructure:"staleClaimDecayDays"`
		StaleClaimDecayFactor float64 `mapstructure:"staleClaimDecayFactor"`
	} `mapstructure:"scoring"`

	Maintenance struct {
		VacuumOnStartup bool `mapstructure:"vacuumOnStartup"`
	} `mapstructure:"maintenance"`

	ProviderEndpoints map[string]string `mapstructure:"provider_endpoints"`

	Providers map[string]struct {
		Enabled      bool               `mapstructure:"enabled"`
		Weight       float64            `mapstructure:"weight"`
		FieldWeights map[string]float64 `mapstructure:"fieldWeights"`
	} `mapstructure:"providers"`
}

var v *viper.Viper

// Load locates and reads tanaste.json, applying the search precedence:
// explicit path argument, then ./tanaste.json, then
// ~/.config/tanaste/tanaste.json. Environment variables prefixed
// TANASTE_ always take precedence over file values.
func Load(explicitPath string) (*Manifest, error) {
	v = viper.New()
	v.SetConfigType("json")
	v.SetConfigName("tanaste")

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		if cwd, err := os.Getwd(); err == nil {
			v.AddConfigPath(cwd)
		}
		if configDir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(configDir, "tanaste"))
		}
	}

	v.SetEnvPrefix("TANASTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read tanaste.json: %w", err)
		}
	}

	var m Manifest
	if err := v.Unmarshal(&m); err != nil {
		return nil, fmt.Errorf("config: unmarshal manifest: %w", err)
	}
	return &m, nil
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(home, ".tanaste")

	v.SetDefault("databasePath", filepath.Join(defaultRoot, "tanaste.db"))
	v.SetDefault("dataRoot", defaultRoot)

	v.SetDefault("ingestion.watchDirectory", filepath.Join(defaultRoot, "inbox"))
	v.SetDefault("ingestion.libraryRoot", filepath.Join(defaultRoot, "library"))
	v.SetDefault("ingestion.autoOrganize", true)
	v.SetDefault("ingestion.writeBack", false)
	v.SetDefault("ingestion.organizationTemplate", filepath.Join("{Category}", "{HubName}", "{Title} ({Year})", "{Title}.{Extension}"))

	v.SetDefault("scoring.autoLinkThreshold", 0.85)
	v.SetDefault("scoring.conflictThreshold", 0.60)
	v.SetDefault("scoring.conflictEpsilon", 0.05)
	v.SetDefault("scoring.staleClaimDecayDays", 90)
	v.SetDefault("scoring.staleClaimDecayFactor", 0.5)

	v.SetDefault("maintenance.vacuumOnStartup", false)

	v.SetDefault("provider_endpoints", map[string]string{
		"ebook-search":    "https://itunes.apple.com",
		"asin-lookup":     "https://api.audnex.us",
		"knowledge-graph": "https://www.wikidata.org",
	})

	v.SetDefault("providers", map[string]interface{}{
		"localProcessor":  map[string]interface{}{"enabled": true, "weight": 1.0},
		"ebook-search":    map[string]interface{}{"enabled": true, "weight": 0.7},
		"asin-lookup":     map[string]interface{}{"enabled": true, "weight": 0.8},
		"knowledge-graph": map[string]interface{}{"enabled": true, "weight": 0.9},
	})
}

// ProviderWeights flattens the Providers map into the format
// scoring.Engine.ScoreEntity expects: a plain per-provider weight plus a
// per-provider, per-field override map.
func (m *Manifest) ProviderWeights() (map[string]float64, map[string]map[string]float64) {
	weights := make(map[string]float64)
	fieldWeights := make(map[string]map[string]float64)
	for id, p := range m.Providers {
		if !p.Enabled {
			continue
		}
		weights[id] = p.Weight
		if len(p.FieldWeights) > 0 {
			fieldWeights[id] = p.FieldWeights
		}
	}
	return weights, fieldWeights
}
