package session

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"stageflow/internal/stage"
	"stageflow/internal/storage"
)

// Manager owns all active sessions. It drives the progression flow: the
// resolver decides where a completed stage leads, the store keeps per-stage
// time and score, and subscribers hear about every transition.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	resolver *stage.Resolver
	store    *storage.Store
}

// NewManager creates a session manager around an injected resolver and store.
func NewManager(resolver *stage.Resolver, store *storage.Store) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		resolver: resolver,
		store:    store,
	}
}

// Create makes a new session at the given starting stage and persists it.
// The stage must be in the registry or be the lobby.
func (m *Manager) Create(startStage string) (*Session, error) {
	state := StateInGame
	if m.resolver.IsLobby(startStage) {
		state = StateAtLobby
	} else if _, ok := m.resolver.ResolveGame(startStage); !ok {
		return nil, fmt.Errorf("unknown stage: %s", startStage)
	}

	id := uuid.NewString()
	if err := m.store.CreateSession(id, startStage, string(state)); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	s := New(id, startStage, state, time.Now())
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns a session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// List returns info for all active sessions.
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	infos := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, s.Info())
	}
	return infos
}

// Complete handles a level-complete trigger for the session's current stage.
// An unresolvable stage is logged and leaves the session untouched. Before
// the transition the current stage's time and score are reset; a failed
// reset is logged but never blocks navigation.
func (m *Manager) Complete(id string) (stage.NextAction, error) {
	s, ok := m.Get(id)
	if !ok {
		return stage.NextAction{}, fmt.Errorf("unknown session: %s", id)
	}

	cur, _ := s.Current()
	action := m.resolver.Advance(cur)
	if action.Kind == stage.ActionUnresolved {
		log.Printf("session %s: stage %q not in registry, staying put", id, cur)
		return action, nil
	}

	gameName, _ := m.resolver.ResolveGame(cur)
	if err := m.store.ResetStageTime(id, gameName, cur); err != nil {
		log.Printf("session %s: reset time for %s/%s: %v", id, gameName, cur, err)
	}
	if err := m.store.ResetStageScores(id, gameName, cur); err != nil {
		log.Printf("session %s: reset scores for %s/%s: %v", id, gameName, cur, err)
	}

	state := StateInGame
	lobby := m.resolver.IsLobby(action.Stage)
	if lobby {
		state = StateAtLobby
	}
	s.Move(action.Stage, state, Transition{
		From:  cur,
		To:    action.Stage,
		Game:  gameName,
		Lobby: lobby,
	})
	if err := m.store.UpdateSessionStage(id, action.Stage, string(state)); err != nil {
		log.Printf("session %s: persist stage %s: %v", id, action.Stage, err)
	}
	return action, nil
}

// RecordProgress accumulates elapsed time and score against the session's
// current stage.
func (m *Manager) RecordProgress(id string, elapsed time.Duration, score int) error {
	s, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("unknown session: %s", id)
	}
	cur, state := s.Current()
	if state == StateAtLobby {
		return fmt.Errorf("session %s is at the lobby", id)
	}
	gameName, ok := m.resolver.ResolveGame(cur)
	if !ok {
		return fmt.Errorf("stage %s not in registry", cur)
	}
	if elapsed > 0 {
		if err := m.store.AddStageTime(id, gameName, cur, elapsed); err != nil {
			return fmt.Errorf("record time: %w", err)
		}
	}
	if score != 0 {
		if err := m.store.AddStageScore(id, gameName, cur, score); err != nil {
			return fmt.Errorf("record score: %w", err)
		}
	}
	return nil
}

// Progress returns the accumulated time and score for the session's current
// stage. A session at the lobby reports zeroes.
func (m *Manager) Progress(id string) (time.Duration, int, error) {
	s, ok := m.Get(id)
	if !ok {
		return 0, 0, fmt.Errorf("unknown session: %s", id)
	}
	cur, state := s.Current()
	if state == StateAtLobby {
		return 0, 0, nil
	}
	gameName, ok := m.resolver.ResolveGame(cur)
	if !ok {
		return 0, 0, nil
	}
	elapsed, err := m.store.StageTime(id, gameName, cur)
	if err != nil {
		return 0, 0, err
	}
	score, err := m.store.StageScore(id, gameName, cur)
	if err != nil {
		return 0, 0, err
	}
	return elapsed, score, nil
}

// Restore loads sessions from the database on startup. Sessions at a stage
// the registry no longer knows are skipped.
func (m *Manager) Restore() error {
	rows, err := m.store.ListSessions()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	for _, row := range rows {
		if !m.resolver.IsLobby(row.Stage) {
			if _, ok := m.resolver.ResolveGame(row.Stage); !ok {
				log.Printf("skipping session %s: unknown stage %s", row.ID, row.Stage)
				continue
			}
		}
		s := New(row.ID, row.Stage, State(row.State), row.CreatedAt)
		m.mu.Lock()
		m.sessions[row.ID] = s
		m.mu.Unlock()
	}
	return nil
}

// Remove deletes a session from memory and storage.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	if err := m.store.DeleteSession(id); err != nil {
		log.Printf("delete session %s: %v", id, err)
	}
}

// CleanupLoop removes stale sessions periodically.
func (m *Manager) CleanupLoop(interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		m.cleanup(maxAge)
	}
}

func (m *Manager) cleanup(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, s := range m.sessions {
		if s.WatcherCount() > 0 {
			continue
		}
		if now.Sub(s.CreatedAt) > maxAge {
			log.Printf("cleaning up session %s", id)
			if err := m.store.DeleteSession(id); err != nil {
				log.Printf("delete session %s: %v", id, err)
			}
			delete(m.sessions, id)
		}
	}
}
