// Package config holds the aligner process's configuration contract:
// defaults, validation, and the env/map/YAML encodings used to pass it
// between a launcher and the process itself.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	NumWorkersDefault    = 2
	LanguageDefault      = "en"
	SimilarityCSVDefault = "similarity.csv"
)

// Config is everything the aligner process needs to run one batch over a
// voice-line directory.
type Config struct {
	DataDir          string
	SimilarityCSV    string
	Language         string
	NumWorkers       int
	ForceRename      bool
	ActorMappingsCfg string
}

// IsEmpty reports whether cfg still has its zero value throughout,
// meaning SetDefaults has not yet been applied.
func (cfg Config) IsEmpty() bool {
	return cfg == Config{}
}

// SetDefaults fills in every unset field with its documented default.
func (cfg *Config) SetDefaults() {
	if cfg.Language == "" {
		cfg.Language = LanguageDefault
	}
	if cfg.SimilarityCSV == "" {
		cfg.SimilarityCSV = SimilarityCSVDefault
	}
	if cfg.NumWorkers == 0 {
		cfg.NumWorkers = min(NumWorkersDefault, runtime.NumCPU())
	}
}

// IsValid checks the fields that SetDefaults cannot safely default: the
// data directory must be named, the worker count must lie in
// [1, runtime.NumCPU()], and the language must be non-empty.
func (cfg Config) IsValid() error {
	if cfg.DataDir == "" {
		return fmt.Errorf("DataDir cannot be empty")
	}
	if cfg.NumWorkers < 1 || cfg.NumWorkers > runtime.NumCPU() {
		return fmt.Errorf("NumWorkers should be in the range [1, %d]", runtime.NumCPU())
	}
	if cfg.Language == "" {
		return fmt.Errorf("Language cannot be empty")
	}
	return nil
}

// ToEnv renders cfg as a list of NAME=value strings suitable for a child
// process's environment.
func (cfg Config) ToEnv() []string {
	return []string{
		fmt.Sprintf("DATA_DIR=%s", cfg.DataDir),
		fmt.Sprintf("SIMILARITY_CSV=%s", cfg.SimilarityCSV),
		fmt.Sprintf("LANGUAGE=%s", cfg.Language),
		fmt.Sprintf("NUM_WORKERS=%d", cfg.NumWorkers),
		fmt.Sprintf("FORCE_RENAME=%t", cfg.ForceRename),
		fmt.Sprintf("ACTOR_MAPPINGS_CFG=%s", cfg.ActorMappingsCfg),
	}
}

// FromEnv builds a Config from the process environment.
func FromEnv() Config {
	var cfg Config
	cfg.DataDir = os.Getenv("DATA_DIR")
	cfg.SimilarityCSV = os.Getenv("SIMILARITY_CSV")
	cfg.Language = os.Getenv("LANGUAGE")
	cfg.NumWorkers, _ = strconv.Atoi(os.Getenv("NUM_WORKERS"))
	cfg.ForceRename, _ = strconv.ParseBool(os.Getenv("FORCE_RENAME"))
	cfg.ActorMappingsCfg = os.Getenv("ACTOR_MAPPINGS_CFG")
	return cfg
}

// ToMap renders cfg for JSON/YAML-friendly serialisation.
func (cfg Config) ToMap() map[string]any {
	return map[string]any{
		"data_dir":           cfg.DataDir,
		"similarity_csv":     cfg.SimilarityCSV,
		"language":           cfg.Language,
		"num_workers":        cfg.NumWorkers,
		"force_rename":       cfg.ForceRename,
		"actor_mappings_cfg": cfg.ActorMappingsCfg,
	}
}

// FromMap populates cfg from a map as produced by ToMap (or decoded from
// YAML/JSON, where integers may arrive as float64).
func (cfg *Config) FromMap(m map[string]any) *Config {
	cfg.DataDir, _ = m["data_dir"].(string)
	cfg.SimilarityCSV, _ = m["similarity_csv"].(string)
	cfg.Language, _ = m["language"].(string)
	cfg.ForceRename, _ = m["force_rename"].(bool)
	cfg.ActorMappingsCfg, _ = m["actor_mappings_cfg"].(string)

	switch v := m["num_workers"].(type) {
	case int:
		cfg.NumWorkers = v
	case float64:
		cfg.NumWorkers = int(v)
	}
	return cfg
}

// LoadYAML decodes an operator settings file (e.g. aligner.yaml) into a
// Config, then applies SetDefaults.
func LoadYAML(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.SetDefaults()
	return cfg, nil
}
