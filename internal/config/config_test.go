package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "games.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
lobby: KingsLobby
games:
  - name: Puzzle
    stages: [P1, P2, P3]
  - name: Arcade
    stages: [A1, A2]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Lobby != "KingsLobby" {
		t.Fatalf("expected lobby KingsLobby, got %s", cfg.Lobby)
	}
	if len(cfg.Games) != 2 {
		t.Fatalf("expected 2 games, got %d", len(cfg.Games))
	}
	if cfg.Games[0].Name != "Puzzle" || len(cfg.Games[0].Stages) != 3 {
		t.Fatalf("unexpected first game: %+v", cfg.Games[0])
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "games: [not: {valid")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}

func TestValidateErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		cfg  File
		want string
	}{
		{
			name: "empty game name",
			cfg:  File{Games: []GameConfig{{Name: " ", Stages: []string{"S1"}}}},
			want: "name must not be empty",
		},
		{
			name: "no stages",
			cfg:  File{Games: []GameConfig{{Name: "Puzzle"}}},
			want: "at least one stage",
		},
		{
			name: "empty stage id",
			cfg:  File{Games: []GameConfig{{Name: "Puzzle", Stages: []string{"P1", ""}}}},
			want: "stages[1] must not be empty",
		},
		{
			name: "stage collides with lobby",
			cfg: File{
				Lobby: "Hub",
				Games: []GameConfig{{Name: "Puzzle", Stages: []string{"P1", "Hub"}}},
			},
			want: "collides with the lobby",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestDuplicateStages(t *testing.T) {
	cfg := File{Games: []GameConfig{
		{Name: "First", Stages: []string{"S1", "Shared"}},
		{Name: "Second", Stages: []string{"Shared", "S2", "S2"}},
	}}

	dups := DuplicateStages(cfg)
	if len(dups) != 2 {
		t.Fatalf("expected 2 duplicates, got %v", dups)
	}
	if dups[0] != "Shared" || dups[1] != "S2" {
		t.Fatalf("unexpected duplicates: %v", dups)
	}
}

func TestRegistry(t *testing.T) {
	cfg := File{Games: []GameConfig{{Name: "Puzzle", Stages: []string{"P1", "P2"}}}}
	r := cfg.Registry()
	if r.Len() != 1 {
		t.Fatalf("expected 1 game, got %d", r.Len())
	}
	games := r.Games()
	if games[0].Name != "Puzzle" || len(games[0].Stages) != 2 {
		t.Fatalf("unexpected registry contents: %+v", games[0])
	}
}

func TestParseEnvDefaults(t *testing.T) {
	e, err := ParseEnv()
	if err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if e.Addr != ":8080" {
		t.Fatalf("expected default addr :8080, got %s", e.Addr)
	}
	if e.GamesPath != "games.yaml" {
		t.Fatalf("expected default games path, got %s", e.GamesPath)
	}
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9999")
	t.Setenv("DB_PATH", "/tmp/test.db")

	e, err := ParseEnv()
	if err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if e.Addr != ":9999" {
		t.Fatalf("expected :9999, got %s", e.Addr)
	}
	if e.DBPath != "/tmp/test.db" {
		t.Fatalf("expected /tmp/test.db, got %s", e.DBPath)
	}
}
