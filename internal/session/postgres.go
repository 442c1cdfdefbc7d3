package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresStore implements Store on top of a sessions table. One row per
// user; Put upserts so replacing an in-progress session is a single write.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an already connected pool.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type sessionRow struct {
	UserID    int64     `db:"user_id"`
	Kind      string    `db:"kind"`
	State     string    `db:"state"`
	Answers   []byte    `db:"answers"`
	StartedAt time.Time `db:"started_at"`
}

func (s *PostgresStore) Get(ctx context.Context, userID int64) (*Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row,
		`SELECT user_id, kind, state, answers, started_at FROM sessions WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: select: %w", err)
	}

	sess := &Session{
		UserID:    row.UserID,
		Kind:      Kind(row.Kind),
		State:     StateID(row.State),
		Answers:   make(map[string]string),
		StartedAt: row.StartedAt,
	}
	if len(row.Answers) > 0 {
		if err := json.Unmarshal(row.Answers, &sess.Answers); err != nil {
			return nil, fmt.Errorf("session: decode answers: %w", err)
		}
	}
	return sess, nil
}

func (s *PostgresStore) Put(ctx context.Context, userID int64, sess *Session) error {
	answers, err := json.Marshal(sess.Answers)
	if err != nil {
		return fmt.Errorf("session: encode answers: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (user_id, kind, state, answers, started_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (user_id) DO UPDATE
		 SET kind = EXCLUDED.kind,
		     state = EXCLUDED.state,
		     answers = EXCLUDED.answers,
		     started_at = EXCLUDED.started_at,
		     updated_at = NOW()`,
		userID, string(sess.Kind), string(sess.State), answers, sess.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("session: upsert: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}
