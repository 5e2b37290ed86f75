package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"stageflow/internal/session"
	"stageflow/internal/stage"
)

// Server is the HTTP server.
type Server struct {
	mux      *http.ServeMux
	registry *stage.Registry
	resolver *stage.Resolver
	manager  *session.Manager
}

// New creates a server with all routes.
func New(registry *stage.Registry, resolver *stage.Resolver, manager *session.Manager) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		registry: registry,
		resolver: resolver,
		manager:  manager,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/games", s.handleListGames)
	s.mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	s.mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("POST /api/sessions/{id}/complete", s.handleComplete)
	s.mux.HandleFunc("POST /api/sessions/{id}/progress", s.handleProgress)
	s.mux.HandleFunc("GET /api/sessions/{id}/ws", s.handleWebSocket)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type gameView struct {
	Name   string   `json:"name"`
	Stages []string `json:"stages"`
}

type gamesResponse struct {
	Lobby string     `json:"lobby"`
	Games []gameView `json:"games"`
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games := s.registry.Games()
	views := make([]gameView, 0, len(games))
	for _, g := range games {
		views = append(views, gameView{Name: g.Name, Stages: g.Stages})
	}
	writeJSON(w, http.StatusOK, gamesResponse{Lobby: s.resolver.Lobby(), Games: views})
}

type sessionView struct {
	ID         string    `json:"id"`
	Stage      string    `json:"stage"`
	Game       string    `json:"game,omitempty"`
	StageIndex int       `json:"stageIndex"`
	State      string    `json:"state"`
	CreatedAt  time.Time `json:"createdAt"`
	Age        string    `json:"age"`
}

func (s *Server) sessionView(info session.Info) sessionView {
	v := sessionView{
		ID:         info.ID,
		Stage:      info.Stage,
		StageIndex: -1,
		State:      string(info.State),
		CreatedAt:  info.CreatedAt,
		Age:        humanize.Time(info.CreatedAt),
	}
	if game, ok := s.resolver.ResolveGame(info.Stage); ok {
		v.Game = game
		v.StageIndex = s.resolver.ResolveIndex(info.Stage)
	}
	return v
}

type createSessionRequest struct {
	Stage string `json:"stage"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req.Stage = strings.TrimSpace(req.Stage)
	if req.Stage == "" {
		// empty start means the player begins at the lobby
		req.Stage = s.resolver.Lobby()
	}

	sess, err := s.manager.Create(req.Stage)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, s.sessionView(sess.Info()))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	infos := s.manager.List()
	views := make([]sessionView, 0, len(infos))
	for _, info := range infos {
		views = append(views, s.sessionView(info))
	}
	writeJSON(w, http.StatusOK, views)
}

type sessionDetail struct {
	sessionView
	ElapsedMs int64 `json:"elapsedMs"`
	Score     int   `json:"score"`
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, ok := s.manager.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	elapsed, score, err := s.manager.Progress(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sessionDetail{
		sessionView: s.sessionView(sess.Info()),
		ElapsedMs:   elapsed.Milliseconds(),
		Score:       score,
	})
}

type completeResponse struct {
	Result string `json:"result"` // "go_to" or "unresolved"
	Stage  string `json:"stage,omitempty"`
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.manager.Get(id); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	action, err := s.manager.Complete(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, completeView(action))
}

func completeView(action stage.NextAction) completeResponse {
	if action.Kind == stage.ActionGoTo {
		return completeResponse{Result: "go_to", Stage: action.Stage}
	}
	return completeResponse{Result: "unresolved"}
}

type progressRequest struct {
	ElapsedMs int64 `json:"elapsedMs"`
	Score     int   `json:"score"`
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.manager.Get(id); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.ElapsedMs < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "elapsedMs must not be negative"})
		return
	}
	elapsed := time.Duration(req.ElapsedMs) * time.Millisecond
	if err := s.manager.RecordProgress(id, elapsed, req.Score); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
