package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SessionRow represents a session in the database.
type SessionRow struct {
	ID        string
	Stage     string
	State     string // "in_game", "at_lobby"
	CreatedAt time.Time
}

// Store handles SQLite persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			stage      TEXT NOT NULL,
			state      TEXT NOT NULL DEFAULT 'in_game',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS stage_times (
			session_id TEXT NOT NULL REFERENCES sessions(id),
			game       TEXT NOT NULL,
			stage      TEXT NOT NULL,
			elapsed_ms INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (session_id, game, stage)
		);
		CREATE TABLE IF NOT EXISTS stage_scores (
			session_id TEXT NOT NULL REFERENCES sessions(id),
			game       TEXT NOT NULL,
			stage      TEXT NOT NULL,
			score      INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (session_id, game, stage)
		);
	`)
	return err
}

// CreateSession inserts a new session at the given stage.
func (s *Store) CreateSession(id, stage, state string) error {
	_, err := s.db.Exec(
		"INSERT INTO sessions (id, stage, state) VALUES (?, ?, ?)",
		id, stage, state,
	)
	return err
}

// GetSession retrieves a session by id.
func (s *Store) GetSession(id string) (*SessionRow, error) {
	row := s.db.QueryRow("SELECT id, stage, state, created_at FROM sessions WHERE id = ?", id)
	var sr SessionRow
	if err := row.Scan(&sr.ID, &sr.Stage, &sr.State, &sr.CreatedAt); err != nil {
		return nil, err
	}
	return &sr, nil
}

// UpdateSessionStage moves a session to a new stage and state.
func (s *Store) UpdateSessionStage(id, stage, state string) error {
	_, err := s.db.Exec("UPDATE sessions SET stage = ?, state = ? WHERE id = ?", stage, state, id)
	return err
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions() ([]SessionRow, error) {
	rows, err := s.db.Query("SELECT id, stage, state, created_at FROM sessions ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []SessionRow
	for rows.Next() {
		var sr SessionRow
		if err := rows.Scan(&sr.ID, &sr.Stage, &sr.State, &sr.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, sr)
	}
	return result, rows.Err()
}

// DeleteSession removes a session and its per-stage rows.
func (s *Store) DeleteSession(id string) error {
	for _, q := range []string{
		"DELETE FROM stage_times WHERE session_id = ?",
		"DELETE FROM stage_scores WHERE session_id = ?",
		"DELETE FROM sessions WHERE id = ?",
	} {
		if _, err := s.db.Exec(q, id); err != nil {
			return err
		}
	}
	return nil
}

// AddStageTime accumulates elapsed play time for (session, game, stage).
func (s *Store) AddStageTime(sessionID, game, stage string, elapsed time.Duration) error {
	_, err := s.db.Exec(`
		INSERT INTO stage_times (session_id, game, stage, elapsed_ms, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(session_id, game, stage) DO UPDATE SET
			elapsed_ms = stage_times.elapsed_ms + excluded.elapsed_ms,
			updated_at = excluded.updated_at
	`, sessionID, game, stage, elapsed.Milliseconds())
	return err
}

// StageTime returns the accumulated time for (session, game, stage).
// A missing row reads as zero.
func (s *Store) StageTime(sessionID, game, stage string) (time.Duration, error) {
	var ms int64
	err := s.db.QueryRow(
		"SELECT elapsed_ms FROM stage_times WHERE session_id = ? AND game = ? AND stage = ?",
		sessionID, game, stage,
	).Scan(&ms)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// ResetStageTime clears the accumulated time for (session, game, stage).
func (s *Store) ResetStageTime(sessionID, game, stage string) error {
	_, err := s.db.Exec(
		"DELETE FROM stage_times WHERE session_id = ? AND game = ? AND stage = ?",
		sessionID, game, stage,
	)
	return err
}

// AddStageScore accumulates score for (session, game, stage).
func (s *Store) AddStageScore(sessionID, game, stage string, score int) error {
	_, err := s.db.Exec(`
		INSERT INTO stage_scores (session_id, game, stage, score, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(session_id, game, stage) DO UPDATE SET
			score = stage_scores.score + excluded.score,
			updated_at = excluded.updated_at
	`, sessionID, game, stage, score)
	return err
}

// StageScore returns the accumulated score for (session, game, stage).
// A missing row reads as zero.
func (s *Store) StageScore(sessionID, game, stage string) (int, error) {
	var score int
	err := s.db.QueryRow(
		"SELECT score FROM stage_scores WHERE session_id = ? AND game = ? AND stage = ?",
		sessionID, game, stage,
	).Scan(&score)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return score, nil
}

// ResetStageScores clears the accumulated score for (session, game, stage).
func (s *Store) ResetStageScores(sessionID, game, stage string) error {
	_, err := s.db.Exec(
		"DELETE FROM stage_scores WHERE session_id = ? AND game = ? AND stage = ?",
		sessionID, game, stage,
	)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
