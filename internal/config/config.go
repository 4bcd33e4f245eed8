// Package config loads Synapse's configuration: a set of defaults,
// overlaid by an optional TOML file (spec.md component 15).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/synapse-sh/synapse/internal/tools"
)

// Config is the full configuration surface for synapsed.
type Config struct {
	Socket    Socket    `toml:"socket"`
	Paths     Paths     `toml:"paths"`
	Providers Providers `toml:"providers"`
	Ranker    Ranker    `toml:"ranker"`
	LLM       LLM       `toml:"llm"`
	Logging   Logging   `toml:"logging"`
	Debug     Debug     `toml:"debug"`
}

type Socket struct {
	Path string `toml:"path"`
}

type Paths struct {
	DataDir        string `toml:"data_dir"`
	CompletionsDir string `toml:"completions_dir"`
	InteractionLog string `toml:"interaction_log"`
	MaxLogSizeMB   int    `toml:"max_log_size_mb"`
}

type Providers struct {
	TrustProjectGenerators bool   `toml:"trust_project_generators"`
	HistoryFuzzyEnabled    bool   `toml:"history_fuzzy_enabled"`
	HistoryFile            string `toml:"history_file"`
}

type Ranker struct {
	WorkflowMinProbability float64 `toml:"workflow_min_probability"`
}

type LLM struct {
	EnableArgumentProvider bool     `toml:"enable_argument_provider"`
	EnableNLTranslate      bool     `toml:"enable_nl_translate"`
	BlocklistPatterns      []string `toml:"blocklist_patterns"`
}

// Debug controls the optional loopback-only metrics endpoint. MetricsAddr
// empty (the default) means the endpoint is never started.
type Debug struct {
	MetricsAddr string `toml:"metrics_addr"`
}

type Logging struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Default returns the built-in defaults, with no file overlay applied.
func Default() Config {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		stateHome = tools.ExpandHome("~/.local/state")
	}
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = tools.ExpandHome("~/.local/share")
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = "/tmp"
	}

	dataDir := filepath.Join(dataHome, "synapse")
	return Config{
		Socket: Socket{
			Path: filepath.Join(runtimeDir, "synapse.sock"),
		},
		Paths: Paths{
			DataDir:        dataDir,
			CompletionsDir: filepath.Join(dataDir, "completions"),
			InteractionLog: filepath.Join(stateHome, "synapse", "interactions.ndjson"),
			MaxLogSizeMB:   50,
		},
		Providers: Providers{
			TrustProjectGenerators: false,
			HistoryFuzzyEnabled:    true,
			HistoryFile:            tools.ExpandHome("~/.zsh_history"),
		},
		Ranker: Ranker{
			WorkflowMinProbability: 0.15,
		},
		LLM: LLM{
			EnableArgumentProvider: true,
			EnableNLTranslate:      true,
			BlocklistPatterns: []string{
				"rm -rf *", "dd if=* of=/dev/*", "mkfs.*", ":(){:|:&};:",
				"chmod -R 777 /", "> /dev/sda",
			},
		},
		Logging: Logging{
			Level: "info",
			File:  filepath.Join(stateHome, "synapse", "server.log"),
		},
	}
}

// Load applies defaults, then overlays path if it exists. A missing file is
// not an error — synapsed runs on defaults alone (spec.md: config loading
// is an overlay on top of built-in defaults, never a hard requirement).
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultPath returns the conventional config file location,
// ~/.config/synapse/config.toml, honoring XDG_CONFIG_HOME.
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = tools.ExpandHome("~/.config")
	}
	return filepath.Join(configHome, "synapse", "config.toml")
}

