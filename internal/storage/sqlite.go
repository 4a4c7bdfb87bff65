// Package storage provides SQLite-based persistence for match history.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/duelhub/internal/multiplayer"
)

// Store manages the SQLite database connection for match history.
type Store struct {
	db *sql.DB
}

// MatchEntry is one participant's record of one finished match.
type MatchEntry struct {
	ID            int64
	SessionID     string // empty for records posted from outside
	ParticipantID string
	DisplayName   string
	OpponentID    string
	OpponentName  string
	Outcome       multiplayer.Result
	Reason        string
	Moves         int
	EndedAt       time.Time
}

// ParticipantStats aggregates a participant's history.
type ParticipantStats struct {
	Wins   int `json:"wins"`
	Losses int `json:"loses"`
	Draws  int `json:"draws"`
	Total  int `json:"total"`
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	// Recorder calls arrive from several goroutines; sqlite wants one writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS match_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT,
			participant_id TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			opponent_id TEXT NOT NULL DEFAULT '',
			opponent_name TEXT NOT NULL,
			outcome TEXT NOT NULL CHECK (outcome IN ('win', 'lose', 'draw')),
			reason TEXT NOT NULL DEFAULT '',
			moves INTEGER NOT NULL DEFAULT 0,
			ended_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_match_history_participant
			ON match_history(participant_id, ended_at DESC);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_match_history_session
			ON match_history(session_id, participant_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordOutcome stores the coordinator's record of an ended session.
// Recording the same session twice for a participant is a no-op.
func (s *Store) RecordOutcome(ctx context.Context, rec multiplayer.HistoryRecord) error {
	_, err := s.AddMatch(ctx, MatchEntry{
		SessionID:     string(rec.SessionID),
		ParticipantID: string(rec.ParticipantID),
		DisplayName:   rec.DisplayName,
		OpponentID:    string(rec.OpponentID),
		OpponentName:  rec.OpponentName,
		Outcome:       rec.Result,
		Reason:        rec.Reason.String(),
		Moves:         rec.Moves,
		EndedAt:       rec.EndedAt,
	})
	return err
}

// AddMatch inserts a history entry and returns its ID.
// A zero EndedAt is stored as the current time.
func (s *Store) AddMatch(ctx context.Context, e MatchEntry) (int64, error) {
	switch e.Outcome {
	case multiplayer.ResultWin, multiplayer.ResultLose, multiplayer.ResultDraw:
	default:
		return 0, fmt.Errorf("storage: invalid outcome %q", e.Outcome)
	}
	if e.EndedAt.IsZero() {
		e.EndedAt = time.Now()
	}

	var sessionID any
	if e.SessionID != "" {
		sessionID = e.SessionID
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO match_history
		 (session_id, participant_id, display_name, opponent_id, opponent_name, outcome, reason, moves, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id, participant_id) DO NOTHING`,
		sessionID,
		e.ParticipantID,
		e.DisplayName,
		e.OpponentID,
		e.OpponentName,
		string(e.Outcome),
		e.Reason,
		e.Moves,
		e.EndedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save match: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}
	return id, nil
}

const matchColumns = `id, session_id, participant_id, display_name, opponent_id,
		        opponent_name, outcome, reason, moves, ended_at`

// MatchHistory returns a participant's matches, newest first.
func (s *Store) MatchHistory(ctx context.Context, participantID string, limit int) ([]MatchEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+matchColumns+`
		 FROM match_history
		 WHERE participant_id = ?
		 ORDER BY ended_at DESC, id DESC
		 LIMIT ?`,
		participantID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query match history: %w", err)
	}
	return scanMatches(rows)
}

// RecentMatches returns the most recent entries across all participants.
func (s *Store) RecentMatches(ctx context.Context, limit int) ([]MatchEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+matchColumns+`
		 FROM match_history
		 ORDER BY ended_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query recent matches: %w", err)
	}
	return scanMatches(rows)
}

// Stats counts a participant's wins, losses and draws.
func (s *Store) Stats(ctx context.Context, participantID string) (ParticipantStats, error) {
	var st ParticipantStats
	var wins, losses, draws sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT
		    SUM(CASE WHEN outcome = 'win' THEN 1 ELSE 0 END),
		    SUM(CASE WHEN outcome = 'lose' THEN 1 ELSE 0 END),
		    SUM(CASE WHEN outcome = 'draw' THEN 1 ELSE 0 END)
		 FROM match_history
		 WHERE participant_id = ?`,
		participantID,
	).Scan(&wins, &losses, &draws)
	if err != nil {
		return st, fmt.Errorf("storage: cannot query stats: %w", err)
	}

	st.Wins = int(wins.Int64)
	st.Losses = int(losses.Int64)
	st.Draws = int(draws.Int64)
	st.Total = st.Wins + st.Losses + st.Draws
	return st, nil
}

// ClearHistory deletes all entries of a participant.
func (s *Store) ClearHistory(ctx context.Context, participantID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM match_history WHERE participant_id = ?", participantID)
	if err != nil {
		return fmt.Errorf("storage: cannot clear history: %w", err)
	}
	return nil
}

func scanMatches(rows *sql.Rows) ([]MatchEntry, error) {
	defer rows.Close()

	var entries []MatchEntry
	for rows.Next() {
		var e MatchEntry
		var sessionID sql.NullString
		var outcome string
		var endedAt int64
		if err := rows.Scan(
			&e.ID,
			&sessionID,
			&e.ParticipantID,
			&e.DisplayName,
			&e.OpponentID,
			&e.OpponentName,
			&outcome,
			&e.Reason,
			&e.Moves,
			&endedAt,
		); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		if sessionID.Valid {
			e.SessionID = sessionID.String
		}
		e.Outcome = multiplayer.Result(outcome)
		e.EndedAt = time.UnixMilli(endedAt)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return entries, nil
}
