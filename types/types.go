package types

import "github.com/google/uuid"

// Phase is the conversation state. A pending generation snapshot exists if
// and only if the phase is PhaseConfirming; PhaseGenerating covers the
// window between approval and the end of the generation pipeline.
type Phase string

const (
	PhaseCollecting Phase = "collecting"
	PhaseConfirming Phase = "confirming"
	PhaseGenerating Phase = "generating"
)

type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Message is one transcript entry. The transcript is append only and is
// rendered by the UI layer.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func NewMessage(role Role, content string) Message {
	return Message{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
	}
}

// FieldInfo describes one request slot for prompt building.
type FieldInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}
