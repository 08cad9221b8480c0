package chat

import (
	"errors"
	"time"
)

var (
	ErrEmptyMessage    = errors.New("message cannot be empty")
	ErrForbidden       = errors.New("not allowed to access this resource")
	ErrSessionNotFound = errors.New("chat session not found")
)

type SessionID string

// Sender of a chat message
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Session groups the messages of one conversation owned by a subject.
type Session struct {
	ID        SessionID  `json:"id"`
	OwnerID   string     `json:"owner_id"`
	StartedAt time.Time  `json:"session_start"`
	EndedAt   *time.Time `json:"session_end,omitempty"`
}

type Message struct {
	ID        string    `json:"id"`
	SessionID SessionID `json:"session_id"`
	Sender    Sender    `json:"sender"`
	Body      string    `json:"message"`
	// ScanID is set when the message was sent with scan context.
	ScanID    string    `json:"scan_id,omitempty"`
	CreatedAt time.Time `json:"timestamp"`
}
