package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/maduarte95/arena-test/internal/services"
	"github.com/maduarte95/arena-test/internal/storage"
	"github.com/maduarte95/arena-test/pkg/arena"
	"github.com/maduarte95/arena-test/pkg/chat"
	"github.com/maduarte95/arena-test/pkg/prompts"
)

func newTestEngine(llm services.LLMService) (*Engine, *storage.Mock) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMock()
	return NewEngine(llm, store, prompts.DefaultLibrary(), "mock-model", logger), store
}

// scriptedLLM routes each agent to its own canned response by sniffing
// the system prompt.
func scriptedLLM(gameMaster, playerB, narrator string) *services.MockLLM {
	m := services.NewMockLLM()
	m.ChatFunc = func(ctx context.Context, messages []chat.Message) (*chat.Response, error) {
		system := messages[0].Content
		switch {
		case strings.Contains(system, "You are the Game Master"):
			return &chat.Response{Message: gameMaster}, nil
		case strings.Contains(system, "You are playing as Player B"):
			return &chat.Response{Message: playerB}, nil
		default:
			return &chat.Response{Message: narrator}, nil
		}
	}
	return m
}

func withUpdates(narrative, payload string) string {
	return narrative + "\n" + arena.UpdateSentinel + "\n" + payload
}

func TestHumanTurn_AppliesDelta(t *testing.T) {
	llm := scriptedLLM(
		withUpdates("Your blade finds its mark.", `{"hp_changes": {"player_b": -10}}`),
		"B holds position.",
		"The duel continues.",
	)
	e, store := newTestEngine(llm)
	ctx := context.Background()

	gs, err := e.CreateSession(ctx, "alice", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	result, err := e.HumanTurn(ctx, gs.ID, "I strike at my opponent", nil)
	if err != nil {
		t.Fatalf("HumanTurn failed: %v", err)
	}

	if result.Narrative != "Your blade finds its mark." {
		t.Errorf("unexpected narrative: %q", result.Narrative)
	}
	if result.GameState.PlayerB.HP != 90 {
		t.Errorf("expected player B HP 90, got %d", result.GameState.PlayerB.HP)
	}
	if result.GameState.HumanTurns != 1 {
		t.Errorf("expected 1 human turn, got %d", result.GameState.HumanTurns)
	}
	if result.GameOver {
		t.Error("game should not be over")
	}

	rec, err := store.GetSession(ctx, gs.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if rec.State.PlayerB.HP != 90 {
		t.Errorf("persisted state not updated: HP %d", rec.State.PlayerB.HP)
	}
	if store.SaveTurnCalls != 1 {
		t.Errorf("expected 1 turn record, got %d", store.SaveTurnCalls)
	}
	if len(rec.State.Conversation) != 1 {
		t.Fatalf("expected 1 conversation turn, got %d", len(rec.State.Conversation))
	}
	if rec.State.Conversation[0].PlayerMessage != "I strike at my opponent" {
		t.Errorf("unexpected transcript: %+v", rec.State.Conversation[0])
	}
}

func TestHumanTurn_SessionNotFound(t *testing.T) {
	e, _ := newTestEngine(services.NewMockLLM())

	_, err := e.HumanTurn(context.Background(), uuid.New(), "hello", nil)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestHumanTurn_EndedSessionRejected(t *testing.T) {
	llm := scriptedLLM(
		withUpdates("A devastating blow.", `{"hp_changes": {"player_b": -100}}`),
		"", "",
	)
	e, _ := newTestEngine(llm)
	ctx := context.Background()

	gs, err := e.CreateSession(ctx, "alice", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := e.HumanTurn(ctx, gs.ID, "finish it", nil); err != nil {
		t.Fatalf("HumanTurn failed: %v", err)
	}

	_, err = e.HumanTurn(ctx, gs.ID, "another swing", nil)
	if !errors.Is(err, ErrGameOver) {
		t.Errorf("expected ErrGameOver, got %v", err)
	}
}

func TestHumanTurn_LLMErrorLeavesStateUntouched(t *testing.T) {
	llm := services.NewMockLLM()
	llm.SetError(errors.New("upstream unavailable"))
	e, store := newTestEngine(llm)
	ctx := context.Background()

	gs, err := e.CreateSession(ctx, "alice", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if _, err := e.HumanTurn(ctx, gs.ID, "I attack", nil); err == nil {
		t.Fatal("expected error from failing LLM")
	}

	rec, err := store.GetSession(ctx, gs.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if rec.State.TurnNumber != 0 {
		t.Errorf("turn applied despite LLM error: turn %d", rec.State.TurnNumber)
	}
	if rec.State.HumanTurns != 0 {
		t.Errorf("human turn counted despite LLM error: %d", rec.State.HumanTurns)
	}
	if store.SaveTurnCalls != 0 {
		t.Errorf("turn record written despite LLM error")
	}
}

func TestHumanTurn_MalformedUpdatesApplyZeroDelta(t *testing.T) {
	llm := scriptedLLM(
		withUpdates("The spell fizzles strangely.", `{not valid json`),
		"", "",
	)
	e, _ := newTestEngine(llm)
	ctx := context.Background()

	gs, err := e.CreateSession(ctx, "alice", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	result, err := e.HumanTurn(ctx, gs.ID, "I cast a spell", nil)
	if err != nil {
		t.Fatalf("HumanTurn failed: %v", err)
	}

	if result.Narrative != "The spell fizzles strangely." {
		t.Errorf("unexpected narrative: %q", result.Narrative)
	}
	if result.GameState.PlayerA.HP != arena.StartingHP || result.GameState.PlayerB.HP != arena.StartingHP {
		t.Error("zero delta should leave HP unchanged")
	}
	if result.GameState.TurnNumber != 1 {
		t.Errorf("turn should still advance, got %d", result.GameState.TurnNumber)
	}
}

func TestHumanTurn_AutonomousCadence(t *testing.T) {
	llm := scriptedLLM(
		withUpdates("You advance.", `{"position_changes": {"player_a": [1, 0]}}`),
		withUpdates("B circles to the flank.", `{"position_changes": {"player_b": [-1, 0]}}`),
		"Dust settles over the arena.",
	)
	e, store := newTestEngine(llm)
	ctx := context.Background()

	gs, err := e.CreateSession(ctx, "alice", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	for i := 1; i < arena.HumanTurnsPerCycle; i++ {
		result, err := e.HumanTurn(ctx, gs.ID, "step forward", nil)
		if err != nil {
			t.Fatalf("turn %d failed: %v", i, err)
		}
		if result.PlayerBNarrative != "" {
			t.Fatalf("player B acted early on turn %d", i)
		}
		if result.Summary != "" {
			t.Fatalf("narrator ran early on turn %d", i)
		}
	}

	result, err := e.HumanTurn(ctx, gs.ID, "step forward", nil)
	if err != nil {
		t.Fatalf("fifth turn failed: %v", err)
	}
	if result.PlayerBNarrative != "B circles to the flank." {
		t.Errorf("expected player B move on fifth turn, got %q", result.PlayerBNarrative)
	}
	if result.Summary != "Dust settles over the arena." {
		t.Errorf("expected narrator summary, got %q", result.Summary)
	}

	rec, err := store.GetSession(ctx, gs.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if rec.State.Cycles != 1 {
		t.Errorf("expected 1 completed cycle, got %d", rec.State.Cycles)
	}
	if rec.State.HumanTurns != 0 {
		t.Errorf("human turn counter not reset: %d", rec.State.HumanTurns)
	}
	if got := len(rec.State.ActionsBy(arena.PlayerB)); got != 1 {
		t.Errorf("expected exactly 1 player B action, got %d", got)
	}
	if len(rec.State.PublicNarrative) != 1 {
		t.Errorf("expected 1 public summary, got %d", len(rec.State.PublicNarrative))
	}
}

func TestHumanTurn_KnockoutEndsGame(t *testing.T) {
	llm := scriptedLLM(
		withUpdates("A devastating blow.", `{"hp_changes": {"player_b": -100}}`),
		"", "",
	)
	e, store := newTestEngine(llm)
	ctx := context.Background()

	gs, err := e.CreateSession(ctx, "alice", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := store.CreateUser(ctx, &storage.User{Username: "alice"}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	result, err := e.HumanTurn(ctx, gs.ID, "finish it", nil)
	if err != nil {
		t.Fatalf("HumanTurn failed: %v", err)
	}

	if !result.GameOver {
		t.Error("expected game over")
	}
	if result.Winner != "Player A" {
		t.Errorf("expected winner Player A, got %q", result.Winner)
	}
	if store.EndSessionCalls != 1 {
		t.Errorf("expected 1 EndSession call, got %d", store.EndSessionCalls)
	}

	rec, err := store.GetSession(ctx, gs.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if rec.Status != storage.StatusCompleted {
		t.Errorf("expected completed status, got %q", rec.Status)
	}
	if !rec.State.IsEnded || rec.State.Winner != "Player A" {
		t.Errorf("final state not recorded: %+v", rec.State)
	}

	user, err := store.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user.GamesPlayed != 1 || user.GamesWon != 1 {
		t.Errorf("expected stats 1/1, got %d/%d", user.GamesPlayed, user.GamesWon)
	}
}

func TestHumanTurn_DoubleKnockoutGoesToPlayerB(t *testing.T) {
	llm := scriptedLLM(
		withUpdates("Mutual destruction.", `{"hp_changes": {"player_a": -100, "player_b": -100}}`),
		"", "",
	)
	e, _ := newTestEngine(llm)
	ctx := context.Background()

	gs, err := e.CreateSession(ctx, "alice", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	result, err := e.HumanTurn(ctx, gs.ID, "detonate everything", nil)
	if err != nil {
		t.Fatalf("HumanTurn failed: %v", err)
	}
	if !result.GameOver || result.Winner != "Player B" {
		t.Errorf("expected Player B victory on double knockout, got over=%v winner=%q",
			result.GameOver, result.Winner)
	}
}

func TestHumanTurn_PlayerBKnockoutSkipsNarrator(t *testing.T) {
	narratorCalled := false
	llm := services.NewMockLLM()
	llm.ChatFunc = func(ctx context.Context, messages []chat.Message) (*chat.Response, error) {
		system := messages[0].Content
		switch {
		case strings.Contains(system, "Game Master"):
			return &chat.Response{Message: "You miss."}, nil
		case strings.Contains(system, "Player B"):
			return &chat.Response{Message: withUpdates("B lands the killing blow.", `{"hp_changes": {"player_a": -100}}`)}, nil
		}
		narratorCalled = true
		return &chat.Response{Message: "summary"}, nil
	}
	e, _ := newTestEngine(llm)
	ctx := context.Background()

	gs, err := e.CreateSession(ctx, "alice", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	var result *chat.TurnResult
	for i := 0; i < arena.HumanTurnsPerCycle; i++ {
		result, err = e.HumanTurn(ctx, gs.ID, "attack", nil)
		if err != nil {
			t.Fatalf("turn %d failed: %v", i+1, err)
		}
	}

	if !result.GameOver || result.Winner != "Player B" {
		t.Errorf("expected Player B knockout victory, got over=%v winner=%q",
			result.GameOver, result.Winner)
	}
	if narratorCalled {
		t.Error("narrator should not run after a knockout")
	}
	if result.Summary != "" {
		t.Errorf("expected no summary, got %q", result.Summary)
	}
}

func TestHumanTurn_CycleCapDecidesOnHP(t *testing.T) {
	llm := scriptedLLM(
		withUpdates("You chip away.", `{"hp_changes": {"player_b": -1}}`),
		"B bides its time.",
		"The crowd roars.",
	)
	e, store := newTestEngine(llm)
	ctx := context.Background()

	gs, err := e.CreateSession(ctx, "alice", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := store.CreateUser(ctx, &storage.User{Username: "alice"}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	var result *chat.TurnResult
	total := arena.HumanTurnsPerCycle * arena.MaxCycles
	for i := 0; i < total; i++ {
		result, err = e.HumanTurn(ctx, gs.ID, "chip away", nil)
		if err != nil {
			t.Fatalf("turn %d failed: %v", i+1, err)
		}
		if i < total-1 && result.GameOver {
			t.Fatalf("game ended early on turn %d", i+1)
		}
	}

	if !result.GameOver {
		t.Fatal("expected game over at cycle cap")
	}
	if result.Winner != "Player A" {
		t.Errorf("expected Player A on HP comparison, got %q", result.Winner)
	}
	if result.GameState.Cycles != arena.MaxCycles {
		t.Errorf("expected %d cycles, got %d", arena.MaxCycles, result.GameState.Cycles)
	}
	// The final cycle still narrates before the game is decided.
	if result.Summary == "" {
		t.Error("expected summary on final cycle")
	}
}

func TestHumanTurn_CycleCapDraw(t *testing.T) {
	llm := scriptedLLM("You posture.", "B postures back.", "Nothing much happens.")
	e, _ := newTestEngine(llm)
	ctx := context.Background()

	gs, err := e.CreateSession(ctx, "", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	var result *chat.TurnResult
	for i := 0; i < arena.HumanTurnsPerCycle*arena.MaxCycles; i++ {
		result, err = e.HumanTurn(ctx, gs.ID, "posture", nil)
		if err != nil {
			t.Fatalf("turn %d failed: %v", i+1, err)
		}
	}

	if !result.GameOver || result.Winner != "Draw" {
		t.Errorf("expected draw at equal HP, got over=%v winner=%q", result.GameOver, result.Winner)
	}
}

func TestHumanTurn_Streaming(t *testing.T) {
	llm := services.NewMockLLM()
	llm.StreamChunks("The arrow ", "flies true.", "\n###Upd", "ates\n", `{"hp_changes": {"player_b": -7}}`)
	e, _ := newTestEngine(llm)
	ctx := context.Background()

	gs, err := e.CreateSession(ctx, "alice", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	var streamed strings.Builder
	result, err := e.HumanTurn(ctx, gs.ID, "loose an arrow", func(chunk string) {
		streamed.WriteString(chunk)
	})
	if err != nil {
		t.Fatalf("HumanTurn failed: %v", err)
	}

	if got := strings.TrimSpace(streamed.String()); got != "The arrow flies true." {
		t.Errorf("streamed text leaked the update payload: %q", got)
	}
	if result.GameState.PlayerB.HP != 93 {
		t.Errorf("expected delta applied from stream, got HP %d", result.GameState.PlayerB.HP)
	}
}

func TestHumanTurn_StreamErrorLeavesStateUntouched(t *testing.T) {
	llm := services.NewMockLLM()
	llm.ChatStreamFunc = func(ctx context.Context, messages []chat.Message) (<-chan services.StreamChunk, error) {
		chunks := make(chan services.StreamChunk, 2)
		chunks <- services.StreamChunk{Text: "The arrow "}
		chunks <- services.StreamChunk{Err: errors.New("connection reset")}
		close(chunks)
		return chunks, nil
	}
	e, store := newTestEngine(llm)
	ctx := context.Background()

	gs, err := e.CreateSession(ctx, "alice", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	_, err = e.HumanTurn(ctx, gs.ID, "loose an arrow", func(string) {})
	if err == nil {
		t.Fatal("expected stream error")
	}

	rec, err := store.GetSession(ctx, gs.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if rec.State.TurnNumber != 0 {
		t.Errorf("turn applied despite stream error: %d", rec.State.TurnNumber)
	}
}

func TestCurrentPhase(t *testing.T) {
	gs := arena.NewGameState()
	if got := CurrentPhase(gs); got != PhaseAwaitingHuman {
		t.Errorf("expected awaiting phase, got %q", got)
	}
	gs.IsEnded = true
	if got := CurrentPhase(gs); got != PhaseGameOver {
		t.Errorf("expected game over phase, got %q", got)
	}
}

func TestCreateSession_PromptSelection(t *testing.T) {
	dir := t.TempDir()
	custom := `name: Grim Game Master
type: game_master
content: |
  You are the Grim Game Master presiding over {{.PlayerName}}.
  History: {{.ConversationHistory}}
  State: {{.GameState}}
  Action: {{.PlayerMessage}}
`
	if err := os.WriteFile(filepath.Join(dir, "game_master.yaml"), []byte(custom), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	library, err := prompts.LoadLibrary(dir)
	if err != nil {
		t.Fatalf("LoadLibrary failed: %v", err)
	}

	var gmSystem string
	llm := services.NewMockLLM()
	llm.ChatFunc = func(ctx context.Context, messages []chat.Message) (*chat.Response, error) {
		if gmSystem == "" {
			gmSystem = messages[0].Content
		}
		return &chat.Response{Message: "A cautious step."}, nil
	}

	store := storage.NewMock()
	e := NewEngine(llm, store, library, "mock-model", discardLogger())
	ctx := context.Background()

	gs, err := e.CreateSession(ctx, "alice", map[string]string{prompts.RoleGameMaster: "Grim Game Master"})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := e.HumanTurn(ctx, gs.ID, "I advance.", nil); err != nil {
		t.Fatalf("HumanTurn failed: %v", err)
	}

	if !strings.Contains(gmSystem, "Grim Game Master presiding") {
		t.Error("selected game master template not rendered into system prompt")
	}

	history, err := store.GetHistory(ctx, gs.ID)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history.Conversations) == 0 {
		t.Fatal("expected a conversation record")
	}
	used := history.Conversations[0].Params.Prompts
	if used[prompts.RoleGameMaster] != "Grim Game Master" {
		t.Errorf("expected selected game master template in params, got %q", used[prompts.RoleGameMaster])
	}
	if used[prompts.RoleNarrator] != "Default Narrator" {
		t.Errorf("expected default narrator template in params, got %q", used[prompts.RoleNarrator])
	}
}

func TestCreateSession_UnknownTemplate(t *testing.T) {
	e, _ := newTestEngine(services.NewMockLLM())

	_, err := e.CreateSession(context.Background(), "alice",
		map[string]string{prompts.RoleNarrator: "No Such Narrator"})
	if !errors.Is(err, ErrUnknownTemplate) {
		t.Fatalf("expected ErrUnknownTemplate, got %v", err)
	}
}
