package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"mentor-meet-api/internal/model"
)

const sessionColumns = `s.id, s.title, s.description, s.start_time, s.status,
	s.stream_call_id, s.candidate_id, s.created_at,
	COALESCE(array_agg(si.user_id ORDER BY si.position) FILTER (WHERE si.user_id IS NOT NULL), '{}')`

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
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO sessions (id, title, description, start_time, status, stream_call_id, candidate_id)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 RETURNING created_at`,
		sess.ID, sess.Title, sess.Description, sess.StartTime, string(sess.Status), sess.CallID, sess.CandidateID,
	).Scan(&sess.CreatedAt)
	if err != nil {
		if isUnique(err, "sessions_stream_call_id_key") {
			return nil, model.ErrDuplicateCall
		}
		return nil, err
	}

	for i, uid := range sess.InterviewerIDs {
		_, err = tx.Exec(ctx,
			`INSERT INTO session_interviewers (session_id, user_id, position) VALUES ($1,$2,$3)`,
			sess.ID, uid, i,
		)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}

// ListSessions returns every session in creation order.
func (s *Store) ListSessions(ctx context.Context) ([]model.Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions s
		 LEFT JOIN session_interviewers si ON si.session_id = s.id
		 GROUP BY s.seq, s.id
		 ORDER BY s.seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

func (s *Store) SessionByCallID(ctx context.Context, callID string) (*model.Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions s
		 LEFT JOIN session_interviewers si ON si.session_id = s.id
		 WHERE s.stream_call_id = $1
		 GROUP BY s.seq, s.id`, callID)
	sess, err := scanSession(row)
	if err != nil {
		return nil, notFound(err)
	}
	return sess, nil
}

func scanSession(row pgx.Row) (*model.Session, error) {
	var (
		sess   model.Session
		status string
	)
	err := row.Scan(&sess.ID, &sess.Title, &sess.Description, &sess.StartTime, &status,
		&sess.CallID, &sess.CandidateID, &sess.CreatedAt, &sess.InterviewerIDs)
	if err != nil {
		return nil, err
	}
	sess.Status = model.Status(status)
	if !sess.Status.Valid() {
		return nil, fmt.Errorf("session %s: invalid status %q", sess.ID, status)
	}
	return &sess, nil
}
