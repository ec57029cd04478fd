// Package engine orchestrates arena sessions: the human turn loop, the
// autonomous opponent cadence, narration, and termination.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/maduarte95/arena-test/internal/services"
	"github.com/maduarte95/arena-test/internal/storage"
	"github.com/maduarte95/arena-test/pkg/arena"
	"github.com/maduarte95/arena-test/pkg/chat"
	"github.com/maduarte95/arena-test/pkg/prompts"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrGameOver        = errors.New("game is already over")
	ErrUnknownTemplate = errors.New("unknown prompt template")
)

// Phase describes where a session is in the turn loop. The processing
// phases are transient: they exist only while HumanTurn runs and are
// never persisted.
type Phase string

const (
	PhaseAwaitingHuman        Phase = "awaiting_human_input"
	PhaseProcessingHuman      Phase = "processing_human"
	PhaseProcessingAutonomous Phase = "processing_autonomous"
	PhaseProcessingNarration  Phase = "processing_narration"
	PhaseGameOver             Phase = "game_over"
)

// CurrentPhase derives the phase from persisted state. Mid-turn agent
// work is transient and never stored, so only these two are observable.
func CurrentPhase(gs *arena.GameState) Phase {
	if gs.IsEnded {
		return PhaseGameOver
	}
	return PhaseAwaitingHuman
}

// Engine is the stateless turn orchestrator. All session state lives in
// storage; each call loads, mutates, and persists.
type Engine struct {
	gameMaster *GameMaster
	playerB    *PlayerB
	narrator   *Narrator
	storage    storage.Storage
	library    *prompts.Library
	modelName  string
	logger     *slog.Logger
}

func NewEngine(llm services.LLMService, store storage.Storage, library *prompts.Library, modelName string, logger *slog.Logger) *Engine {
	return NewEngineWithSupportLLM(llm, llm, store, library, modelName, logger)
}

// NewEngineWithSupportLLM routes Player B and narrator calls to a
// separate service, so the autonomous agents can run on a cheaper model
// than the Game Master.
func NewEngineWithSupportLLM(primary, support services.LLMService, store storage.Storage, library *prompts.Library, modelName string, logger *slog.Logger) *Engine {
	return &Engine{
		gameMaster: NewGameMaster(primary, library, logger),
		playerB:    NewPlayerB(support, library, logger),
		narrator:   NewNarrator(support, library, logger),
		storage:    store,
		library:    library,
		modelName:  modelName,
		logger:     logger,
	}
}

// CreateSession starts a new game owned by the given user (empty for
// anonymous play). promptNames selects a named template per agent role
// for the session; absent roles use the defaults.
func (e *Engine) CreateSession(ctx context.Context, owner string, promptNames map[string]string) (*arena.GameState, error) {
	for role, name := range promptNames {
		if _, err := e.library.Get(role, name); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnknownTemplate, err)
		}
	}

	gs := arena.NewGameState()
	if len(promptNames) > 0 {
		gs.PromptNames = promptNames
	}
	if err := e.storage.CreateSession(ctx, gs, owner); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	e.logger.Info("Session created", "session_id", gs.ID, "owner", owner)
	return gs, nil
}

// HumanTurn processes one human message end to end: the Game Master
// adjudicates and the delta is applied; every fifth human turn then
// triggers Player B's move and a narrator summary. Termination is
// checked after each applied action. When onChunk is non-nil the Game
// Master's narrative is streamed through it.
//
// A Game Master transport error (including cancellation) returns before
// any state changes, so the turn can be retried.
func (e *Engine) HumanTurn(ctx context.Context, sessionID uuid.UUID, message string, onChunk func(string)) (*chat.TurnResult, error) {
	rec, err := e.storage.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if rec == nil {
		return nil, ErrSessionNotFound
	}
	gs := rec.State
	if gs.IsEnded {
		return nil, ErrGameOver
	}

	e.logger.Debug("Phase change", "session_id", gs.ID, "phase", PhaseProcessingHuman)
	narrative, delta, err := e.gameMaster.Produce(ctx, gs, message, onChunk)
	if err != nil {
		return nil, err
	}

	gs.Conversation = append(gs.Conversation, arena.ConversationTurn{
		PlayerMessage: message,
		GMResponse:    narrative,
		TurnNumber:    gs.TurnNumber,
	})
	gs.Apply(delta, arena.PlayerA, narrative)
	gs.HumanTurns++

	e.recordTurn(ctx, gs, delta)
	e.recordConversation(ctx, gs, []storage.ConversationMessage{
		{Role: chat.RoleUser, Content: message, Player: string(arena.PlayerA)},
		{Role: chat.RoleAssistant, Content: narrative},
	})

	result := &chat.TurnResult{
		SessionID: gs.ID,
		Narrative: narrative,
		GameState: gs,
	}

	winner := knockoutWinner(gs)
	if winner == "" && gs.HumanTurns >= arena.HumanTurnsPerCycle {
		winner, err = e.runAutonomousCycle(ctx, gs, result)
		if err != nil {
			// The human turn already applied; persist before failing.
			if saveErr := e.storage.SaveSession(ctx, gs); saveErr != nil {
				e.logger.Error("Failed to save session after cycle error",
					"session_id", gs.ID, "error", saveErr)
			}
			return nil, err
		}
	}

	if winner != "" {
		return result, e.endGame(ctx, rec, gs, winner, result)
	}
	if err := e.storage.SaveSession(ctx, gs); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return result, nil
}

// runAutonomousCycle executes Player B's move and the narrator summary,
// resets the human turn counter, and returns the winner label if the
// cycle ended the game.
func (e *Engine) runAutonomousCycle(ctx context.Context, gs *arena.GameState, result *chat.TurnResult) (string, error) {
	e.logger.Debug("Phase change", "session_id", gs.ID, "phase", PhaseProcessingAutonomous)
	narrative, delta, err := e.playerB.Produce(ctx, gs)
	if err != nil {
		return "", err
	}
	gs.Apply(delta, arena.PlayerB, narrative)
	result.PlayerBNarrative = narrative

	e.recordTurn(ctx, gs, delta)
	e.recordConversation(ctx, gs, []storage.ConversationMessage{
		{Role: chat.RoleAssistant, Content: narrative, Player: string(arena.PlayerB)},
	})

	if winner := knockoutWinner(gs); winner != "" {
		return winner, nil
	}

	e.logger.Debug("Phase change", "session_id", gs.ID, "phase", PhaseProcessingNarration)
	summary, err := e.narrator.Produce(ctx, gs)
	if err != nil {
		// Summaries are decorative; the cycle still completes.
		e.logger.Warn("Narrator failed, skipping summary", "session_id", gs.ID, "error", err)
	} else if summary != "" {
		gs.PublicNarrative = append(gs.PublicNarrative, summary)
		result.Summary = summary
		e.recordConversation(ctx, gs, []storage.ConversationMessage{
			{Role: chat.RoleNarrator, Content: summary},
		})
	}

	gs.HumanTurns = 0
	gs.Cycles++
	if gs.Cycles >= arena.MaxCycles {
		return hpWinner(gs), nil
	}
	return "", nil
}

func (e *Engine) endGame(ctx context.Context, rec *storage.SessionRecord, gs *arena.GameState, winner string, result *chat.TurnResult) error {
	gs.IsEnded = true
	gs.Winner = winner
	result.GameOver = true
	result.Winner = winner

	if err := e.storage.EndSession(ctx, gs.ID, winner, gs); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	e.logger.Info("Game over", "session_id", gs.ID, "winner", winner, "turns", gs.TurnNumber)

	if rec.Owner != "" {
		won := winner == arena.PlayerA.Label()
		if err := e.storage.UpdateUserStats(ctx, rec.Owner, won); err != nil {
			e.logger.Warn("Failed to update user stats", "username", rec.Owner, "error", err)
		}
	}
	return nil
}

// knockoutWinner returns the winner label if a combatant has been
// reduced to zero HP. Player A is checked first, so a simultaneous
// knockout goes to Player B.
func knockoutWinner(gs *arena.GameState) string {
	if gs.PlayerA.HP <= 0 {
		return arena.PlayerB.Label()
	}
	if gs.PlayerB.HP <= 0 {
		return arena.PlayerA.Label()
	}
	return ""
}

// hpWinner decides the game on remaining HP at the cycle cap.
func hpWinner(gs *arena.GameState) string {
	switch {
	case gs.PlayerA.HP > gs.PlayerB.HP:
		return arena.PlayerA.Label()
	case gs.PlayerB.HP > gs.PlayerA.HP:
		return arena.PlayerB.Label()
	}
	return "Draw"
}

// recordTurn appends a turn snapshot to session history. History writes
// are auxiliary; failures are logged, not fatal.
func (e *Engine) recordTurn(ctx context.Context, gs *arena.GameState, delta *arena.Delta) {
	err := e.storage.SaveTurn(ctx, gs.ID, &storage.TurnRecord{
		TurnNumber: gs.TurnNumber,
		PlayerState: map[arena.PlayerID]*arena.PlayerState{
			arena.PlayerA: gs.PlayerA,
			arena.PlayerB: gs.PlayerB,
		},
		Actions: delta,
	})
	if err != nil {
		e.logger.Warn("Failed to save turn record", "session_id", gs.ID, "error", err)
	}
}

func (e *Engine) recordConversation(ctx context.Context, gs *arena.GameState, messages []storage.ConversationMessage) {
	err := e.storage.SaveConversation(ctx, gs.ID, &storage.ConversationRecord{
		TurnNumber: gs.TurnNumber,
		Messages:   messages,
		Params: storage.ModelParams{
			Model:   e.modelName,
			Prompts: e.promptParams(gs),
		},
	})
	if err != nil {
		e.logger.Warn("Failed to save conversation record", "session_id", gs.ID, "error", err)
	}
}

// promptParams resolves the template name each role is using for this
// session, defaults included, so history records which prompts
// produced each conversation fragment.
func (e *Engine) promptParams(gs *arena.GameState) map[string]string {
	resolved := make(map[string]string, len(prompts.Roles))
	for _, role := range prompts.Roles {
		tmpl, err := e.library.Resolve(role, gs.PromptNames[role])
		if err != nil {
			continue
		}
		resolved[role] = tmpl.Name
	}
	return resolved
}
