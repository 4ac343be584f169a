package core

import "github.com/google/uuid"

// Role identifies the side of the table a participant sits on.
type Role string

const (
	// RoleBuyer is the purchasing side.
	RoleBuyer Role = "buyer"
	// RoleSeller is the selling side.
	RoleSeller Role = "seller"
)

// Turn is one utterance in a negotiation dialogue. Turns are immutable once
// appended to a Conversation and are owned exclusively by the conversation
// log of their episode.
type Turn struct {
	Role        Role   `json:"role"`
	Participant int    `json:"participant"`
	Product     string `json:"product,omitempty"`
	Content     string `json:"content"`
	Round       int    `json:"round"`
}

// NewID generates a unique identifier for episodes and runs.
func NewID() string { return uuid.NewString() }
