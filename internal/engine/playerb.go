package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maduarte95/arena-test/internal/services"
	"github.com/maduarte95/arena-test/pkg/arena"
	"github.com/maduarte95/arena-test/pkg/chat"
	"github.com/maduarte95/arena-test/pkg/prompts"
)

// PlayerB is the autonomous opponent. It acts once per cycle, reading
// the public action history and choosing a move of its own.
type PlayerB struct {
	llm     services.LLMService
	library *prompts.Library
	logger  *slog.Logger
}

func NewPlayerB(llm services.LLMService, library *prompts.Library, logger *slog.Logger) *PlayerB {
	return &PlayerB{
		llm:     llm,
		library: library,
		logger:  logger,
	}
}

// Produce generates Player B's move for the current cycle.
func (p *PlayerB) Produce(ctx context.Context, gs *arena.GameState) (string, *arena.Delta, error) {
	tmpl, err := p.library.Resolve(prompts.RolePlayerB, gs.PromptNames[prompts.RolePlayerB])
	if err != nil {
		return "", nil, fmt.Errorf("failed to load player B template: %w", err)
	}

	system, err := tmpl.Render(prompts.PlayerBInput{
		GameState:        formatState(gs),
		ActionSummary:    formatActions(gs.RecentActions()),
		NarrativeHistory: strings.Join(gs.ActionsBy(arena.PlayerB), "\n"),
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to render player B prompt: %w", err)
	}
	system += prompts.UpdateProtocolPrompt

	resp, err := p.llm.Chat(ctx, []chat.Message{
		{Role: chat.RoleSystem, Content: system},
		{Role: chat.RoleUser, Content: "It is your turn. Make your move."},
	})
	if err != nil {
		return "", nil, fmt.Errorf("player B request failed: %w", err)
	}

	narrative, delta, parseErr := arena.ParseAgentOutput(resp.Message)
	if parseErr != nil {
		p.logger.Warn("Player B update payload unparseable, applying zero delta",
			"session_id", gs.ID, "error", parseErr)
	}
	return narrative, delta, nil
}

func formatActions(actions []arena.ActionSummary) string {
	if len(actions) == 0 {
		return "No actions yet."
	}
	var b strings.Builder
	for _, a := range actions {
		fmt.Fprintf(&b, "Turn %d (%s): %s\n", a.TurnNumber, a.Player.Label(), a.Narrative)
	}
	return b.String()
}
