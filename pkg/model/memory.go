package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidRole = goerr.New("invalid role")
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Validate checks if the role is one of the conversation roles
func (r Role) Validate() error {
	switch r {
	case RoleUser, RoleAssistant:
		return nil
	default:
		return goerr.Wrap(ErrInvalidRole, "unknown role", goerr.V("role", r))
	}
}

type RecordID string

// NewRecordID derives a record ID from text and timestamp. The same pair always
// yields the same ID, so re-adding an identical turn is idempotent.
func NewRecordID(text string, timestamp time.Time) RecordID {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte(timestamp.UTC().Format(time.RFC3339Nano)))
	return RecordID(hex.EncodeToString(h.Sum(nil)))
}

// MemoryRecord is an embedded conversation turn. It is never modified after it is written.
type MemoryRecord struct {
	ID        RecordID
	Text      string
	Role      Role
	Timestamp time.Time
	Embedding firestore.Vector32
}

// RetrievalResult is a record matched by a similarity search
type RetrievalResult struct {
	RecordID  RecordID
	Content   string
	Role      Role
	Score     float64
	Timestamp time.Time
}
