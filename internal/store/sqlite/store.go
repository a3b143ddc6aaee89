// Package sqlite is the embedded SQLite session store used for local
// development and tests.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"mentor-meet-api/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// Open opens the database file at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	defer src.Close()
	drv, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	// m.Close would close db as well
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isUnique(err error, column string) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return strings.Contains(sqliteErr.Error(), column)
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") && strings.Contains(msg, column)
}

func (s *Store) UpsertUser(ctx context.Context, u *model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, image_url, role, created_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE
		 SET name = excluded.name, email = excluded.email,
		     image_url = excluded.image_url, role = excluded.role`,
		u.ID, u.Name, u.Email, u.ImageURL, u.Role.External(), toMillis(s.now()),
	)
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, image_url, role, created_at
		 FROM users ORDER BY created_at, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var (
			u       model.User
			role    string
			created int64
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.ImageURL, &role, &created); err != nil {
			return nil, err
		}
		if u.Role, err = model.ParseRole(role); err != nil {
			return nil, err
		}
		u.CreatedAt = fromMillis(created)
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) CreateSession(ctx context.Context, n model.NewSession) (*model.Session, error) {
	sess := &model.Session{
		ID:             uuid.New().String(),
		Title:          n.Title,
		Description:    n.Description,
		StartTime:      n.StartTime,
		Status:         model.StatusUpcoming,
		CallID:         n.CallID,
		CandidateID:    n.CandidateID,
		InterviewerIDs: append([]string(nil), n.InterviewerIDs...),
		CreatedAt:      fromMillis(toMillis(s.now())),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, title, description, start_time, status, stream_call_id, candidate_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Title, sess.Description, toMillis(sess.StartTime), string(sess.Status),
		sess.CallID, sess.CandidateID, toMillis(sess.CreatedAt),
	)
	if err != nil {
		if isUnique(err, "stream_call_id") {
			return nil, model.ErrDuplicateCall
		}
		return nil, err
	}
	for i, uid := range sess.InterviewerIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_interviewers (session_id, user_id, position) VALUES (?, ?, ?)`,
			sess.ID, uid, i,
		); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Store) ListSessions(ctx context.Context) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, start_time, status, stream_call_id, candidate_id, created_at
		 FROM sessions ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	var out []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *sess)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	interviewers, err := s.interviewers(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].InterviewerIDs = interviewers[out[i].ID]
	}
	return out, nil
}

func (s *Store) SessionByCallID(ctx context.Context, callID string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, start_time, status, stream_call_id, candidate_id, created_at
		 FROM sessions WHERE stream_call_id = ?`, callID)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	interviewers, err := s.interviewers(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	sess.InterviewerIDs = interviewers[sess.ID]
	return sess, nil
}

// interviewers maps session id to ordered interviewer ids; an empty
// sessionID loads all sessions.
func (s *Store) interviewers(ctx context.Context, sessionID string) (map[string][]string, error) {
	q := `SELECT session_id, user_id FROM session_interviewers`
	var args []any
	if sessionID != "" {
		q += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	q += ` ORDER BY session_id, position`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var sid, uid string
		if err := rows.Scan(&sid, &uid); err != nil {
			return nil, err
		}
		out[sid] = append(out[sid], uid)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*model.Session, error) {
	var (
		sess           model.Session
		status         string
		start, created int64
	)
	if err := row.Scan(&sess.ID, &sess.Title, &sess.Description, &start, &status,
		&sess.CallID, &sess.CandidateID, &created); err != nil {
		return nil, err
	}
	sess.StartTime = fromMillis(start)
	sess.CreatedAt = fromMillis(created)
	sess.Status = model.Status(status)
	if !sess.Status.Valid() {
		return nil, fmt.Errorf("session %s: invalid status %q", sess.ID, status)
	}
	return &sess, nil
}

func (s *Store) RecordOrphan(ctx context.Context, callID, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO orphaned_calls (call_id, reason, recorded_at) VALUES (?, ?, ?)
		 ON CONFLICT (call_id) DO UPDATE
		 SET reason = excluded.reason, recorded_at = excluded.recorded_at, resolved_at = NULL`,
		callID, reason, toMillis(s.now()),
	)
	return err
}

func (s *Store) ResolveOrphan(ctx context.Context, callID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE orphaned_calls SET resolved_at = ? WHERE call_id = ? AND resolved_at IS NULL`,
		toMillis(s.now()), callID,
	)
	return err
}

func (s *Store) ListOrphans(ctx context.Context) ([]model.OrphanedCall, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT call_id, reason, recorded_at FROM orphaned_calls
		 WHERE resolved_at IS NULL ORDER BY recorded_at, call_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.OrphanedCall
	for rows.Next() {
		var (
			o        model.OrphanedCall
			recorded int64
		)
		if err := rows.Scan(&o.CallID, &o.Reason, &recorded); err != nil {
			return nil, err
		}
		o.RecordedAt = fromMillis(recorded)
		out = append(out, o)
	}
	return out, rows.Err()
}
