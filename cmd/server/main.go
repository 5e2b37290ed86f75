package main

import (
	"log"
	"net/http"
	"time"

	"stageflow/internal/config"
	"stageflow/internal/server"
	"stageflow/internal/session"
	"stageflow/internal/stage"
	"stageflow/internal/storage"
)

func main() {
	env, err := config.ParseEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	cfg, err := config.Load(env.GamesPath)
	if err != nil {
		log.Fatalf("load games config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("invalid games config: %v", err)
	}
	for _, dup := range config.DuplicateStages(cfg) {
		log.Printf("warning: stage %q appears more than once; first match wins", dup)
	}

	store, err := storage.New(env.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer store.Close()

	registry := cfg.Registry()
	resolver := stage.NewResolver(registry, cfg.Lobby)

	mgr := session.NewManager(resolver, store)
	if err := mgr.Restore(); err != nil {
		log.Printf("warning: restore sessions: %v", err)
	}

	// Cleanup stale sessions every minute, remove after 1 hour
	go mgr.CleanupLoop(1*time.Minute, 1*time.Hour)

	srv := server.New(registry, resolver, mgr)

	log.Printf("listening on %s (%d games, lobby %s)", env.Addr, registry.Len(), resolver.Lobby())
	if err := http.ListenAndServe(env.Addr, srv); err != nil {
		log.Fatalf("server: %v", err)
	}
}
