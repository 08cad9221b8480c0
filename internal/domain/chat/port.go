package chat

import "context"

// Repository port untuk sesi dan pesan chat
type Repository interface {
	CreateSession(ctx context.Context, s *Session) error
	// GetSession returns ErrSessionNotFound when id does not belong to owner.
	GetSession(ctx context.Context, ownerID string, id SessionID) (*Session, error)
	ListSessions(ctx context.Context, ownerID string, limit int) ([]*Session, error)
	AppendMessage(ctx context.Context, m *Message) error
	// Messages returns the latest limit messages oldest first; limit <= 0 means all.
	Messages(ctx context.Context, id SessionID, limit int) ([]*Message, error)
}
