package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// HookConfig describes one command run for every submission.
type HookConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`

	// Wizards limits the hook to the listed wizard IDs. Empty means all.
	Wizards []string `yaml:"wizards" json:"wizards"`
}

// ConfigFile represents the structure of hooks.yaml.
type ConfigFile struct {
	Hooks []HookConfig `yaml:"hooks" json:"hooks"`
}

// LoadHooks reads a hooks file (YAML or JSON). Hooks without a name or a
// command are rejected.
func LoadHooks(path string) ([]HookConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hooks config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	seen := make(map[string]bool, len(cfg.Hooks))
	for _, h := range cfg.Hooks {
		if h.Name == "" || h.Command == "" {
			return nil, fmt.Errorf("hook %q: name and command are required", h.Name)
		}
		if seen[h.Name] {
			return nil, fmt.Errorf("hook %q declared twice", h.Name)
		}
		seen[h.Name] = true
	}
	return cfg.Hooks, nil
}
