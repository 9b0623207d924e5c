// Package precommit reads the pre-commit framework's repository config.
package precommit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the config file pre-commit reads from the repository root.
const FileName = ".pre-commit-config.yaml"

// ErrNoConfig is returned by Load when the repository has no config file.
var ErrNoConfig = errors.New(FileName + " not found")

// Config is the subset of .pre-commit-config.yaml that civerify reads.
type Config struct {
	Repos []Repo `yaml:"repos"`
}

// Repo is one hook source.
type Repo struct {
	Repo  string `yaml:"repo"`
	Rev   string `yaml:"rev,omitempty"`
	Hooks []Hook `yaml:"hooks"`
}

// Hook is one hook declared by a repo.
type Hook struct {
	ID     string   `yaml:"id"`
	Name   string   `yaml:"name,omitempty"`
	Stages []string `yaml:"stages,omitempty"`
}

// Load reads the config from the repository root.
func Load(root string) (*Config, error) {
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoConfig
		}
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	return cfg, nil
}

// HookIDs returns every declared hook id in file order, without duplicates.
func (c *Config) HookIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, r := range c.Repos {
		for _, h := range r.Hooks {
			if h.ID == "" || seen[h.ID] {
				continue
			}
			seen[h.ID] = true
			ids = append(ids, h.ID)
		}
	}
	return ids
}

// Undeclared returns the ids from want that the config does not declare.
func (c *Config) Undeclared(want []string) []string {
	declared := make(map[string]bool)
	for _, id := range c.HookIDs() {
		declared[id] = true
	}
	var missing []string
	for _, id := range want {
		if !declared[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
