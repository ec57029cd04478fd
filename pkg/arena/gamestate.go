package arena

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

const (
	// BoardSize is the side length of the square arena grid.
	BoardSize = 10

	// StartingHP is each combatant's hit points at game start.
	StartingHP = 100

	// HumanTurnsPerCycle is how many human turns run before an
	// autonomous Player B turn and narrator summary.
	HumanTurnsPerCycle = 5

	// MaxCycles is the number of completed autonomous cycles after
	// which the game ends and the winner is decided on remaining HP.
	MaxCycles = 3
)

// TurnAction records one applied update: who acted, the narrative
// produced, the delta applied, and the turn index at time of recording.
// Actions are append-only and never modified after creation.
type TurnAction struct {
	Player     PlayerID `json:"player"`
	Narrative  string   `json:"narrative"`
	Updates    *Delta   `json:"updates"`
	TurnNumber int      `json:"turn_number"`
}

// ActionSummary is the reduced view of a TurnAction used in agent
// prompts and the narrator's recent-actions context.
type ActionSummary struct {
	Player     PlayerID `json:"player"`
	Narrative  string   `json:"narrative"`
	TurnNumber int      `json:"turn_number"`
}

// ConversationTurn is one exchange of the Game Master transcript.
type ConversationTurn struct {
	PlayerMessage string `json:"player_message"`
	GMResponse    string `json:"gm_response"`
	TurnNumber    int    `json:"turn_number"`
}

// GameState is the authoritative state of one arena session. It is
// mutated only through Apply; the orchestrator owns sequencing and
// termination.
type GameState struct {
	ID              uuid.UUID          `json:"id"`
	PlayerA         *PlayerState       `json:"player_a"`
	PlayerB         *PlayerState       `json:"player_b"`
	TurnNumber      int                `json:"turn_number"`
	CurrentPlayer   PlayerID           `json:"current_player,omitempty"`
	ActionHistory   []TurnAction       `json:"action_history,omitempty"`
	PublicNarrative []string           `json:"public_narrative,omitempty"`
	Conversation    []ConversationTurn `json:"conversation,omitempty"`

	// PromptNames selects a named prompt template per agent role for
	// the life of the session. Absent roles use the default template.
	PromptNames map[string]string `json:"prompt_names,omitempty"`

	// HumanTurns counts human turns completed in the current cycle
	// (0..HumanTurnsPerCycle-1 while awaiting input). Cycles counts
	// completed autonomous cycles.
	HumanTurns int `json:"human_turns"`
	Cycles     int `json:"cycles"`

	IsEnded bool   `json:"is_ended"`
	Winner  string `json:"winner,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewGameState creates a fresh session with both combatants at starting
// HP, facing each other across the board.
func NewGameState() *GameState {
	now := time.Now().UTC()
	return &GameState{
		ID: uuid.New(),
		PlayerA: &PlayerState{
			Name:     PlayerA.Label(),
			HP:       StartingHP,
			Position: Position{3, 4},
		},
		PlayerB: &PlayerState{
			Name:     PlayerB.Label(),
			HP:       StartingHP,
			Position: Position{7, 4},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Player returns the state for the given identifier, or nil when the
// identifier is not a real combatant.
func (gs *GameState) Player(id PlayerID) *PlayerState {
	switch id {
	case PlayerA:
		return gs.PlayerA
	case PlayerB:
		return gs.PlayerB
	}
	return nil
}

// Apply folds a delta into the game state and records the turn.
//
// HP is floored at zero with no upper clamp. Position moves are clamped
// per axis to the board. Custom stats merge last-write-wins. Entries
// keyed by an unknown player identifier are skipped; valid entries still
// apply. Apply never fails: the parser guarantees a well-formed,
// possibly zeroed, delta.
func (gs *GameState) Apply(delta *Delta, actor PlayerID, narrative string) {
	if delta == nil {
		delta = ZeroDelta()
	}

	for id, change := range delta.HPChanges {
		p := gs.Player(id)
		if p == nil {
			continue
		}
		p.HP = max(0, p.HP+change)
	}

	for id, move := range delta.PositionChanges {
		p := gs.Player(id)
		if p == nil {
			continue
		}
		p.Position[0] = clampCoord(p.Position[0] + move[0])
		p.Position[1] = clampCoord(p.Position[1] + move[1])
	}

	for id, stats := range delta.CustomStatChanges {
		p := gs.Player(id)
		if p == nil || len(stats) == 0 {
			continue
		}
		if p.CustomStats == nil {
			p.CustomStats = make(map[string]any, len(stats))
		}
		maps.Copy(p.CustomStats, stats)
	}

	gs.ActionHistory = append(gs.ActionHistory, TurnAction{
		Player:     actor,
		Narrative:  narrative,
		Updates:    delta,
		TurnNumber: gs.TurnNumber,
	})

	gs.TurnNumber++
	gs.CurrentPlayer = actor.Opponent()
	gs.UpdatedAt = time.Now().UTC()
}

// RecentActions returns summaries of the full action history, oldest
// first, for use in agent prompts.
func (gs *GameState) RecentActions() []ActionSummary {
	summaries := make([]ActionSummary, 0, len(gs.ActionHistory))
	for _, action := range gs.ActionHistory {
		summaries = append(summaries, ActionSummary{
			Player:     action.Player,
			Narrative:  action.Narrative,
			TurnNumber: action.TurnNumber,
		})
	}
	return summaries
}

// ActionsBy returns the narratives produced by one player, oldest first.
// Player B's adapter uses this as its own narrative history.
func (gs *GameState) ActionsBy(id PlayerID) []string {
	var narratives []string
	for _, action := range gs.ActionHistory {
		if action.Player == id {
			narratives = append(narratives, action.Narrative)
		}
	}
	return narratives
}

func clampCoord(v int) int {
	return max(0, min(BoardSize-1, v))
}
