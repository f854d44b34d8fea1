package types

import "time"

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// ArtifactRef points at an artifact delivered in a turn.
type ArtifactRef struct {
	Kind Kind   `json:"kind"`
	Path string `json:"path"`
}

// ConversationTurn is one immutable entry of a session log.
type ConversationTurn struct {
	Role      Role         `json:"role"`
	Text      string       `json:"text"`
	Artifact  *ArtifactRef `json:"artifact,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewUserTurn creates a user turn stamped with the current time.
func NewUserTurn(text string) ConversationTurn {
	return ConversationTurn{Role: RoleUser, Text: text, Timestamp: time.Now()}
}

// NewAgentTurn creates an agent turn, optionally referencing a delivered artifact.
func NewAgentTurn(text string, artifact *ArtifactRef) ConversationTurn {
	return ConversationTurn{Role: RoleAgent, Text: text, Artifact: artifact, Timestamp: time.Now()}
}
