package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maduarte95/arena-test/internal/services"
	"github.com/maduarte95/arena-test/pkg/arena"
	"github.com/maduarte95/arena-test/pkg/chat"
	"github.com/maduarte95/arena-test/pkg/prompts"
)

// GameMaster adjudicates the human player's actions. It narrates the
// outcome in character and emits the state delta for the turn.
type GameMaster struct {
	llm     services.LLMService
	library *prompts.Library
	logger  *slog.Logger
}

func NewGameMaster(llm services.LLMService, library *prompts.Library, logger *slog.Logger) *GameMaster {
	return &GameMaster{
		llm:     llm,
		library: library,
		logger:  logger,
	}
}

// Produce runs one Game Master turn. When onChunk is non-nil the
// response is streamed and narrative fragments are forwarded as they
// arrive; the update payload is withheld from the stream. A transport
// error leaves the turn unapplied; a malformed update payload degrades
// to a zero delta so the narrative still lands.
func (g *GameMaster) Produce(ctx context.Context, gs *arena.GameState, playerMessage string, onChunk func(string)) (string, *arena.Delta, error) {
	tmpl, err := g.library.Resolve(prompts.RoleGameMaster, gs.PromptNames[prompts.RoleGameMaster])
	if err != nil {
		return "", nil, fmt.Errorf("failed to load game master template: %w", err)
	}

	system, err := tmpl.Render(prompts.GameMasterInput{
		PlayerName:          gs.PlayerA.Name,
		ConversationHistory: formatConversation(gs.Conversation),
		GameState:           formatState(gs),
		PlayerMessage:       playerMessage,
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to render game master prompt: %w", err)
	}
	system += prompts.UpdateProtocolPrompt

	messages := []chat.Message{
		{Role: chat.RoleSystem, Content: system},
		{Role: chat.RoleUser, Content: playerMessage},
	}

	var raw string
	if onChunk != nil {
		raw, err = g.stream(ctx, messages, onChunk)
	} else {
		var resp *chat.Response
		resp, err = g.llm.Chat(ctx, messages)
		if resp != nil {
			raw = resp.Message
		}
	}
	if err != nil {
		return "", nil, fmt.Errorf("game master request failed: %w", err)
	}

	narrative, delta, parseErr := arena.ParseAgentOutput(raw)
	if parseErr != nil {
		g.logger.Warn("Game master update payload unparseable, applying zero delta",
			"session_id", gs.ID, "error", parseErr)
	}
	return narrative, delta, nil
}

// stream drains the response channel, forwarding narrative text to
// onChunk while holding back enough of the tail to detect the update
// sentinel across chunk boundaries. Once the sentinel appears nothing
// further is forwarded.
func (g *GameMaster) stream(ctx context.Context, messages []chat.Message, onChunk func(string)) (string, error) {
	stream, err := g.llm.ChatStream(ctx, messages)
	if err != nil {
		return "", err
	}

	var raw strings.Builder
	emitted := 0
	holdback := len(arena.UpdateSentinel) - 1
	sentinelSeen := false

	for chunk := range stream {
		if chunk.Err != nil {
			return raw.String(), chunk.Err
		}
		raw.WriteString(chunk.Text)
		if sentinelSeen {
			continue
		}

		text := raw.String()
		safe := len(text) - holdback
		if idx := strings.Index(text, arena.UpdateSentinel); idx >= 0 {
			safe = idx
			sentinelSeen = true
		}
		if safe > emitted {
			onChunk(text[emitted:safe])
			emitted = safe
		}
	}

	// Flush the held-back tail when the response carried no updates.
	if !sentinelSeen && emitted < raw.Len() {
		onChunk(raw.String()[emitted:])
	}
	return raw.String(), nil
}

func formatConversation(turns []arena.ConversationTurn) string {
	if len(turns) == 0 {
		return "No previous conversation."
	}
	var b strings.Builder
	for _, turn := range turns {
		fmt.Fprintf(&b, "Player: %s\nGame Master: %s\n", turn.PlayerMessage, turn.GMResponse)
	}
	return b.String()
}

// formatState renders the combatant-visible slice of the game state as
// indented JSON for prompt interpolation.
func formatState(gs *arena.GameState) string {
	view := map[string]any{
		"turn_number": gs.TurnNumber,
		"player_a":    gs.PlayerA,
		"player_b":    gs.PlayerB,
	}
	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return fmt.Sprintf("turn %d", gs.TurnNumber)
	}
	return string(data)
}
