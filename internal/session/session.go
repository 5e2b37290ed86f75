package session

import (
	"sync"
	"time"
)

// State represents where a session is in the progression flow.
type State string

const (
	StateInGame  State = "in_game"
	StateAtLobby State = "at_lobby"
)

// Transition is pushed to subscribers whenever a session moves to a new
// stage. It carries everything the host needs to load the next scene.
type Transition struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Game  string `json:"game,omitempty"`
	Lobby bool   `json:"lobby"`
}

// Session tracks one player's position through the stage flow.
type Session struct {
	mu        sync.RWMutex
	ID        string
	CreatedAt time.Time
	stage     string
	state     State
	watchers  map[chan Transition]struct{}
}

// New creates a session positioned at the given stage.
func New(id, stage string, state State, createdAt time.Time) *Session {
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return &Session{
		ID:        id,
		CreatedAt: createdAt,
		stage:     stage,
		state:     state,
		watchers:  make(map[chan Transition]struct{}),
	}
}

// Current returns the session's stage and state.
func (s *Session) Current() (string, State) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stage, s.state
}

// Move updates the session's position and notifies subscribers.
func (s *Session) Move(to string, state State, tr Transition) {
	s.mu.Lock()
	s.stage = to
	s.state = state
	for ch := range s.watchers {
		select {
		case ch <- tr:
		default:
			// drop if the subscriber is not keeping up
		}
	}
	s.mu.Unlock()
}

// Subscribe registers a watcher for stage transitions. The caller must
// Unsubscribe when done.
func (s *Session) Subscribe() chan Transition {
	ch := make(chan Transition, 8)
	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

// Unsubscribe removes a watcher and closes its channel.
func (s *Session) Unsubscribe(ch chan Transition) {
	s.mu.Lock()
	if _, ok := s.watchers[ch]; ok {
		delete(s.watchers, ch)
		close(ch)
	}
	s.mu.Unlock()
}

// WatcherCount returns the number of active subscribers.
func (s *Session) WatcherCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.watchers)
}

// Info is the session summary for the API.
type Info struct {
	ID        string    `json:"id"`
	Stage     string    `json:"stage"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"createdAt"`
}

// Info returns the session summary.
func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Info{
		ID:        s.ID,
		Stage:     s.stage,
		State:     s.state,
		CreatedAt: s.CreatedAt,
	}
}
