// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/roomtrack/internal/model"
	"github.com/verte-zerg/roomtrack/internal/session"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrSessionNotFound is returned when a requested session does not exist.
var ErrSessionNotFound = errors.New("session not found")

// ErrRoomCountMismatch is returned when stored attempts disagree with the session's room count.
var ErrRoomCountMismatch = errors.New("room count mismatch")

// Store wraps SQLite access for practice sessions.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			started_at TEXT NOT NULL,
			room_count INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS attempts (
			session_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			outcome TEXT NOT NULL,
			dnf_room INTEGER,
			dnf_ticks INTEGER,
			PRIMARY KEY (session_id, idx)
		);`,
		`CREATE TABLE IF NOT EXISTS attempt_rooms (
			session_id TEXT NOT NULL,
			attempt_idx INTEGER NOT NULL,
			ord INTEGER NOT NULL,
			room INTEGER NOT NULL,
			ticks INTEGER NOT NULL,
			PRIMARY KEY (session_id, attempt_idx, ord)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveSession writes a session and all of its attempts, replacing any previous copy.
func (s *Store) SaveSession(ctx context.Context, sess *session.PracticeSession) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (id, name, started_at, room_count) VALUES (?, ?, ?, ?)`,
		sess.ID(), sess.Name(), formatTime(sess.StartedAt()), sess.RoomCount(),
	); err != nil {
		return err
	}
	for _, table := range []string{"attempts", "attempt_rooms"} {
		if _, err = tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE session_id = ?`, table), sess.ID()); err != nil {
			return err
		}
	}

	attemptStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO attempts (session_id, idx, started_at, outcome, dnf_room, dnf_ticks) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := attemptStmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	roomStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO attempt_rooms (session_id, attempt_idx, ord, room, ticks) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := roomStmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()

	for _, a := range sess.Attempts() {
		var dnfRoom, dnfTicks sql.NullInt64
		if info, ok := a.Dnf(); ok {
			dnfRoom = sql.NullInt64{Int64: int64(info.Room), Valid: true}
			dnfTicks = sql.NullInt64{Int64: int64(info.TimeIntoRoom), Valid: true}
		}
		if _, err = attemptStmt.ExecContext(ctx,
			sess.ID(), a.Index(), formatTime(a.StartedAt()), a.Outcome().String(), dnfRoom, dnfTicks,
		); err != nil {
			return err
		}
		for ord, rt := range a.CompletedRooms() {
			if _, err = roomStmt.ExecContext(ctx, sess.ID(), a.Index(), ord, int(rt.Room), int64(rt.Ticks)); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// ListSessions returns session summaries filtered by stats config, oldest first.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionSummary, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Name != "" {
		clauses = append(clauses, "s.name = ?")
		args = append(args, cfg.Name)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "s.started_at >= ?")
		args = append(args, formatTime(*cfg.Since))
	}
	query := fmt.Sprintf(`SELECT s.id, s.name, s.started_at, s.room_count,
		COUNT(a.idx), COALESCE(SUM(CASE WHEN a.outcome = 'completed' THEN 1 ELSE 0 END), 0)
		FROM sessions s
		LEFT JOIN attempts a ON a.session_id = s.id
		WHERE %s
		GROUP BY s.id
		ORDER BY s.started_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionSummary
	for rows.Next() {
		var sum model.SessionSummary
		var startedAt string
		if err := rows.Scan(&sum.ID, &sum.Name, &startedAt, &sum.RoomCount, &sum.Attempts, &sum.Completed); err != nil {
			return nil, err
		}
		if sum.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// LatestSession loads the most recently started session.
func (s *Store) LatestSession(ctx context.Context) (*session.PracticeSession, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM sessions ORDER BY started_at DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.LoadSession(ctx, id)
}

type storedAttempt struct {
	idx       int
	startedAt time.Time
	dnfRoom   sql.NullInt64
	dnfTicks  sql.NullInt64
	rooms     []model.RoomTime
}

// LoadSession rebuilds a session by replaying its stored attempts.
func (s *Store) LoadSession(ctx context.Context, id string) (*session.PracticeSession, error) {
	var (
		name, startedAt string
		roomCount       int
	)
	err := s.db.QueryRowContext(ctx, `SELECT name, started_at, room_count FROM sessions WHERE id = ?`, id).
		Scan(&name, &startedAt, &roomCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	started, err := parseTime(startedAt)
	if err != nil {
		return nil, err
	}

	attempts, err := s.loadAttempts(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.loadRooms(ctx, id, attempts); err != nil {
		return nil, err
	}

	sess := session.Restore(id, name, started)
	for _, sa := range attempts {
		a, err := sa.rebuild()
		if err != nil {
			return nil, fmt.Errorf("failed to restore attempt %d of session %s: %w", sa.idx, id, err)
		}
		sess.AddAttempt(a)
	}
	if got := sess.RoomCount(); got != roomCount {
		return nil, fmt.Errorf("%w: session %s stores %d rooms, attempts have %d", ErrRoomCountMismatch, id, roomCount, got)
	}
	return sess, nil
}

func (s *Store) loadAttempts(ctx context.Context, id string) ([]*storedAttempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, started_at, dnf_room, dnf_ticks FROM attempts WHERE session_id = ? ORDER BY idx ASC`, id)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []*storedAttempt
	for rows.Next() {
		sa := &storedAttempt{}
		var startedAt string
		if err := rows.Scan(&sa.idx, &startedAt, &sa.dnfRoom, &sa.dnfTicks); err != nil {
			return nil, err
		}
		if sa.startedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		out = append(out, sa)
	}
	return out, rows.Err()
}

func (s *Store) loadRooms(ctx context.Context, id string, attempts []*storedAttempt) error {
	byIdx := make(map[int]*storedAttempt, len(attempts))
	for _, sa := range attempts {
		byIdx[sa.idx] = sa
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT attempt_idx, room, ticks FROM attempt_rooms WHERE session_id = ? ORDER BY attempt_idx ASC, ord ASC`, id)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	for rows.Next() {
		var idx, room int
		var ticks int64
		if err := rows.Scan(&idx, &room, &ticks); err != nil {
			return err
		}
		if sa, ok := byIdx[idx]; ok {
			sa.rooms = append(sa.rooms, model.RoomTime{Room: model.RoomIndex(room), Ticks: model.TimeTicks(ticks)})
		}
	}
	return rows.Err()
}

func (sa *storedAttempt) rebuild() (*model.Attempt, error) {
	b := model.NewAttemptBuilder(sa.idx, sa.startedAt)
	var cumulative model.TimeTicks
	for _, rt := range sa.rooms {
		cumulative += rt.Ticks
		if err := b.CompleteRoom(rt.Room, cumulative); err != nil {
			return nil, err
		}
	}
	if sa.dnfRoom.Valid {
		if err := b.SetDnf(model.RoomIndex(sa.dnfRoom.Int64), cumulative+model.TimeTicks(sa.dnfTicks.Int64)); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, v)
}
