// Package storage provides SQLite-based persistence for rooms and match history.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/tui-battleships/internal/core"
	"github.com/vovakirdan/tui-battleships/internal/game"
	"github.com/vovakirdan/tui-battleships/internal/multiplayer"
)

// Store manages the SQLite database connection.
type Store struct {
	db *sql.DB
}

// RoomSummary is one row of the room listing.
type RoomSummary struct {
	Code       multiplayer.RoomCode
	Phase      game.Phase
	Version    uint64
	Occupied   [2]bool
	UpdatedAt  time.Time
	FinishedAt time.Time
}

// MatchResult represents the outcome of a finished match.
type MatchResult struct {
	ID          int64
	RoomCode    string
	Winner      core.PlayerID
	Player1Name string
	Player2Name string
	Shots1      int
	Shots2      int
	Duration    int // Duration in seconds
	FinishedAt  time.Time
	CreatedAt   time.Time
}

// WinnerName returns the display name of the winning player.
func (m MatchResult) WinnerName() string {
	switch m.Winner {
	case core.Player1:
		return m.Player1Name
	case core.Player2:
		return m.Player2Name
	}
	return ""
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
	// Rooms write from many goroutines; SQLite takes one writer at a time.
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
// Room timestamps are unix milliseconds, zero meaning unset.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS rooms (
			code TEXT PRIMARY KEY,
			snapshot TEXT NOT NULL,
			player1_token TEXT NOT NULL DEFAULT '',
			player1_seen INTEGER NOT NULL DEFAULT 0,
			player2_token TEXT NOT NULL DEFAULT '',
			player2_seen INTEGER NOT NULL DEFAULT 0,
			recent_action_ids TEXT NOT NULL DEFAULT '[]',
			version INTEGER NOT NULL DEFAULT 0,
			phase TEXT NOT NULL,
			started_at INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_rooms_updated ON rooms(updated_at);

		CREATE TABLE IF NOT EXISTS match_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_code TEXT NOT NULL,
			winner INTEGER NOT NULL,
			player1_name TEXT NOT NULL,
			player2_name TEXT NOT NULL,
			shots1 INTEGER NOT NULL DEFAULT 0,
			shots2 INTEGER NOT NULL DEFAULT 0,
			duration_secs INTEGER NOT NULL DEFAULT 0,
			finished_at INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_match_results_room ON match_results(room_code);
		CREATE INDEX IF NOT EXISTS idx_match_results_p1 ON match_results(player1_name);
		CREATE INDEX IF NOT EXISTS idx_match_results_p2 ON match_results(player2_name);
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

// LoadRoom implements multiplayer.RoomStore. It returns (nil, nil) for an
// unknown code.
func (s *Store) LoadRoom(ctx context.Context, code multiplayer.RoomCode) (*multiplayer.RoomRecord, error) {
	var (
		rec                    multiplayer.RoomRecord
		snapshot, recent       string
		token1, token2         string
		seen1, seen2           int64
		version                int64
		started, updated, done int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT code, snapshot, player1_token, player1_seen, player2_token, player2_seen,
		        recent_action_ids, version, started_at, updated_at, finished_at
		 FROM rooms
		 WHERE code = ?`,
		string(code),
	).Scan(&rec.Code, &snapshot, &token1, &seen1, &token2, &seen2,
		&recent, &version, &started, &updated, &done)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query room: %w", err)
	}

	if err := json.Unmarshal([]byte(snapshot), &rec.Snapshot); err != nil {
		return nil, fmt.Errorf("storage: corrupt snapshot for room %s: %w", code, err)
	}
	if err := json.Unmarshal([]byte(recent), &rec.RecentActions); err != nil {
		return nil, fmt.Errorf("storage: corrupt action ids for room %s: %w", code, err)
	}
	rec.Slots = [2]multiplayer.Slot{
		{Token: multiplayer.SessionToken(token1), LastSeen: fromMillis(seen1)},
		{Token: multiplayer.SessionToken(token2), LastSeen: fromMillis(seen2)},
	}
	rec.Version = uint64(version)
	rec.StartedAt = fromMillis(started)
	rec.UpdatedAt = fromMillis(updated)
	rec.FinishedAt = fromMillis(done)

	return &rec, nil
}

// SaveRoom implements multiplayer.RoomStore as an upsert.
func (s *Store) SaveRoom(ctx context.Context, rec *multiplayer.RoomRecord) error {
	snapshot, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return fmt.Errorf("storage: cannot encode snapshot: %w", err)
	}
	ids := rec.RecentActions
	if ids == nil {
		ids = []string{}
	}
	recent, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("storage: cannot encode action ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rooms
		 (code, snapshot, player1_token, player1_seen, player2_token, player2_seen,
		  recent_action_ids, version, phase, started_at, updated_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(code) DO UPDATE SET
		  snapshot = excluded.snapshot,
		  player1_token = excluded.player1_token,
		  player1_seen = excluded.player1_seen,
		  player2_token = excluded.player2_token,
		  player2_seen = excluded.player2_seen,
		  recent_action_ids = excluded.recent_action_ids,
		  version = excluded.version,
		  phase = excluded.phase,
		  started_at = excluded.started_at,
		  updated_at = excluded.updated_at,
		  finished_at = excluded.finished_at`,
		string(rec.Code),
		string(snapshot),
		string(rec.Slots[0].Token), toMillis(rec.Slots[0].LastSeen),
		string(rec.Slots[1].Token), toMillis(rec.Slots[1].LastSeen),
		string(recent),
		int64(rec.Version),
		string(rec.Snapshot.Phase),
		toMillis(rec.StartedAt),
		toMillis(rec.UpdatedAt),
		toMillis(rec.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("storage: cannot save room %s: %w", rec.Code, err)
	}
	return nil
}

// DeleteRoom implements multiplayer.RoomStore.
func (s *Store) DeleteRoom(ctx context.Context, code multiplayer.RoomCode) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM rooms WHERE code = ?", string(code)); err != nil {
		return fmt.Errorf("storage: cannot delete room: %w", err)
	}
	return nil
}

// DeleteExpired implements multiplayer.RoomStore.
func (s *Store) DeleteExpired(ctx context.Context, idleBefore, finishedBefore time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM rooms
		 WHERE updated_at < ?
		    OR (finished_at > 0 AND finished_at < ?)`,
		toMillis(idleBefore), toMillis(finishedBefore),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot delete expired rooms: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot count deleted rooms: %w", err)
	}
	return int(n), nil
}

// ListRooms returns the most recently updated rooms.
func (s *Store) ListRooms(ctx context.Context, limit int) ([]RoomSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT code, phase, version, player1_token, player2_token, updated_at, finished_at
		 FROM rooms
		 ORDER BY updated_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []RoomSummary
	for rows.Next() {
		var (
			r                RoomSummary
			phase            string
			version          int64
			token1, token2   string
			updated, finished int64
		)
		if err := rows.Scan(&r.Code, &phase, &version, &token1, &token2, &updated, &finished); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		r.Phase = game.Phase(phase)
		r.Version = uint64(version)
		r.Occupied = [2]bool{token1 != "", token2 != ""}
		r.UpdatedAt = fromMillis(updated)
		r.FinishedAt = fromMillis(finished)
		rooms = append(rooms, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return rooms, nil
}

// SaveMatch records the result of a finished match.
// Returns the ID of the inserted record.
func (s *Store) SaveMatch(result MatchResult) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO match_results
		 (room_code, winner, player1_name, player2_name, shots1, shots2, duration_secs, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RoomCode,
		int(result.Winner),
		result.Player1Name,
		result.Player2Name,
		result.Shots1,
		result.Shots2,
		result.Duration,
		toMillis(result.FinishedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save match result: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	return id, nil
}

// RecentMatches retrieves the most recent match results, newest first.
func (s *Store) RecentMatches(limit int) ([]MatchResult, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, room_code, winner, player1_name, player2_name,
		        shots1, shots2, duration_secs, finished_at, created_at
		 FROM match_results
		 ORDER BY finished_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query match results: %w", err)
	}
	defer rows.Close()

	var results []MatchResult
	for rows.Next() {
		var (
			result    MatchResult
			winner    int
			finished  int64
			createdAt any
		)
		if err := rows.Scan(
			&result.ID,
			&result.RoomCode,
			&winner,
			&result.Player1Name,
			&result.Player2Name,
			&result.Shots1,
			&result.Shots2,
			&result.Duration,
			&finished,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		result.Winner = core.PlayerID(winner)
		result.FinishedAt = fromMillis(finished)
		result.CreatedAt = parseTime(createdAt)
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return results, nil
}

// PlayerWins counts the matches won by a player with the given name.
func (s *Store) PlayerWins(name string) (int, error) {
	var wins int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM match_results
		 WHERE (winner = 1 AND player1_name = ?)
		    OR (winner = 2 AND player2_name = ?)`,
		name, name,
	).Scan(&wins)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot count wins: %w", err)
	}
	return wins, nil
}

// SaveMatchResult implements multiplayer.MatchResultSaver.
// This adapter lets rooms save results without a direct storage dependency.
func (s *Store) SaveMatchResult(data multiplayer.MatchResultData) error {
	_, err := s.SaveMatch(MatchResult{
		RoomCode:    data.RoomCode,
		Winner:      data.Winner,
		Player1Name: data.Player1Name,
		Player2Name: data.Player2Name,
		Shots1:      data.Shots1,
		Shots2:      data.Shots2,
		Duration:    data.DurationSecs,
		FinishedAt:  data.FinishedAt,
	})
	return err
}

var (
	_ multiplayer.RoomStore        = (*Store)(nil)
	_ multiplayer.MatchResultSaver = (*Store)(nil)
)

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// parseTime handles DATETIME columns, which the driver returns either as
// time.Time or as text depending on how the value was written.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
