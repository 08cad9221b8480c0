package postgres

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/bryanwahyu/radiology-ai/internal/domain/chat"
)

type ChatRepository struct {
	db *sql.DB
}

func NewChatRepository(db *sql.DB) *ChatRepository { return &ChatRepository{db: db} }

func (r *ChatRepository) CreateSession(ctx context.Context, s *domain.Session) error {
	const q = `INSERT INTO chat_sessions (id, owner_id, session_start) VALUES ($1,$2,$3);`
	_, err := r.db.ExecContext(ctx, q, s.ID, s.OwnerID, s.StartedAt)
	return err
}

func (r *ChatRepository) GetSession(ctx context.Context, ownerID string, id domain.SessionID) (*domain.Session, error) {
	const q = `
SELECT id, owner_id, session_start, session_end
FROM chat_sessions
WHERE id = $1 AND owner_id = $2 LIMIT 1;`
	var s domain.Session
	var ended sql.NullTime
	err := r.db.QueryRowContext(ctx, q, id, ownerID).Scan(&s.ID, &s.OwnerID, &s.StartedAt, &ended)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if ended.Valid {
		s.EndedAt = &ended.Time
	}
	return &s, nil
}

func (r *ChatRepository) ListSessions(ctx context.Context, ownerID string, limit int) ([]*domain.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, owner_id, session_start, session_end
FROM chat_sessions
WHERE owner_id = $1
ORDER BY session_start DESC
LIMIT $2;`
	rows, err := r.db.QueryContext(ctx, q, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		var s domain.Session
		var ended sql.NullTime
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.StartedAt, &ended); err != nil {
			return nil, err
		}
		if ended.Valid {
			t := ended.Time
			s.EndedAt = &t
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *ChatRepository) AppendMessage(ctx context.Context, m *domain.Message) error {
	const q = `
INSERT INTO chat_messages (id, session_id, sender, message, scan_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6);`
	_, err := r.db.ExecContext(ctx, q, m.ID, m.SessionID, m.Sender, m.Body, nullString(m.ScanID), m.CreatedAt)
	return err
}

// Messages returns the newest limit messages, oldest first (seq is BIGSERIAL)
func (r *ChatRepository) Messages(ctx context.Context, id domain.SessionID, limit int) ([]*domain.Message, error) {
	q := `
SELECT id, session_id, sender, message, scan_id, created_at FROM (
  SELECT seq, id, session_id, sender, message, scan_id, created_at
  FROM chat_messages
  WHERE session_id = $1
  ORDER BY seq DESC`
	args := []any{id}
	if limit > 0 {
		q += `
  LIMIT $2`
		args = append(args, limit)
	}
	q += `
) t ORDER BY seq ASC;`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*domain.Message{}
	for rows.Next() {
		var m domain.Message
		var scanID sql.NullString
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Sender, &m.Body, &scanID, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.ScanID = scanID.String
		out = append(out, &m)
	}
	return out, rows.Err()
}
