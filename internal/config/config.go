package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"stageflow/internal/stage"
)

// Env holds settings read from the environment.
type Env struct {
	Addr      string `env:"ADDR" envDefault:":8080"`
	DBPath    string `env:"DB_PATH" envDefault:"stageflow.db"`
	GamesPath string `env:"GAMES_PATH" envDefault:"games.yaml"`
}

// ParseEnv loads Env from environment variables.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// File mirrors the YAML registry schema.
type File struct {
	Lobby string       `yaml:"lobby,omitempty"`
	Games []GameConfig `yaml:"games"`
}

// GameConfig is one game entry: a name plus its stages in play order.
type GameConfig struct {
	Name   string   `yaml:"name"`
	Stages []string `yaml:"stages"`
}

// Load reads and parses the registry file.
func Load(path string) (File, error) {
	var cfg File
	b, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read games config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return File{}, fmt.Errorf("parse games config: %w", err)
	}
	return cfg, nil
}

// Validate checks semantic constraints of a registry file.
func Validate(cfg File) error {
	var errs []string

	for i, g := range cfg.Games {
		if strings.TrimSpace(g.Name) == "" {
			errs = append(errs, fmt.Sprintf("games[%d].name must not be empty", i))
		}
		if len(g.Stages) == 0 {
			errs = append(errs, fmt.Sprintf("games[%d] (%s) must have at least one stage", i, g.Name))
		}
		for j, s := range g.Stages {
			if strings.TrimSpace(s) == "" {
				errs = append(errs, fmt.Sprintf("games[%d].stages[%d] must not be empty", i, j))
			}
			if s == cfg.Lobby {
				errs = append(errs, fmt.Sprintf("games[%d].stages[%d] collides with the lobby stage %q", i, j, cfg.Lobby))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("games config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DuplicateStages reports stage identifiers that appear more than once across
// the registry. Lookups take the first occurrence, so duplicates are not an
// error, but callers should log them.
func DuplicateStages(cfg File) []string {
	seen := make(map[string]bool)
	dup := make(map[string]bool)
	var out []string
	for _, g := range cfg.Games {
		for _, s := range g.Stages {
			if seen[s] && !dup[s] {
				dup[s] = true
				out = append(out, s)
			}
			seen[s] = true
		}
	}
	return out
}

// Registry converts the file into an immutable stage registry.
func (f File) Registry() *stage.Registry {
	games := make([]stage.Game, len(f.Games))
	for i, g := range f.Games {
		games[i] = stage.Game{Name: g.Name, Stages: g.Stages}
	}
	return stage.NewRegistry(games)
}
