package model

import (
	"time"

	"github.com/google/uuid"
)

type SessionID string

// NewSessionID generates a new unique SessionID
func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

// Turn is a single conversational message as exchanged with collaborators
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// History is the conversation transcript of a chat session
type History struct {
	ID        SessionID `json:"id"`
	Turns     []Turn    `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Recent returns at most n trailing turns
func (h *History) Recent(n int) []Turn {
	if h == nil || n <= 0 {
		return nil
	}
	if len(h.Turns) <= n {
		return h.Turns
	}
	return h.Turns[len(h.Turns)-n:]
}

// Append adds a turn to the transcript
func (h *History) Append(turn Turn) {
	h.Turns = append(h.Turns, turn)
	h.UpdatedAt = turn.Timestamp
}

// RecentTurns returns at most n trailing turns of a turn sequence
func RecentTurns(turns []Turn, n int) []Turn {
	h := History{Turns: turns}
	return h.Recent(n)
}
