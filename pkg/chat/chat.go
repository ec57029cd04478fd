package chat

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/maduarte95/arena-test/pkg/arena"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleNarrator  = "narrator"
)

// Message is a single message sent to or received from an LLM.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Response is a completed (non-streaming) LLM result.
type Response struct {
	Message string `json:"message"`
}

// TurnRequest is a human player's message to the Game Master for one
// turn of an arena session.
type TurnRequest struct {
	SessionID uuid.UUID `json:"session_id,omitempty"`
	Message   string    `json:"message"`
}

func (tr *TurnRequest) Validate() error {
	if tr.Message == "" {
		return fmt.Errorf("message cannot be empty")
	}
	return nil
}

// TurnResult is the outcome of processing one human message. When the
// turn completed an autonomous cycle, PlayerBNarrative and Summary
// carry Player B's move and the narrator's public summary.
type TurnResult struct {
	SessionID        uuid.UUID        `json:"session_id"`
	Narrative        string           `json:"narrative"`
	PlayerBNarrative string           `json:"player_b_narrative,omitempty"`
	Summary          string           `json:"summary,omitempty"`
	GameState        *arena.GameState `json:"game_state"`
	GameOver         bool             `json:"game_over"`
	Winner           string           `json:"winner,omitempty"`
}
