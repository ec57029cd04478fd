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
	"github.com/maduarte95/arena-test/pkg/textfilter"
)

// fallbackNarratorPrompt is used when the configured narrator template
// cannot be rendered. Summaries are decorative; a broken template must
// not fail the cycle.
const fallbackNarratorPrompt = `Summarize the recent events of this arena battle in a brief, engaging way.

Game state:
%s

Recent actions:
%s`

// Narrator produces the public end-of-cycle summary. Its output never
// mutates game state; any update payload it emits is discarded.
type Narrator struct {
	llm     services.LLMService
	library *prompts.Library
	filter  *textfilter.Filter
	logger  *slog.Logger
}

func NewNarrator(llm services.LLMService, library *prompts.Library, logger *slog.Logger) *Narrator {
	return &Narrator{
		llm:     llm,
		library: library,
		filter:  textfilter.New(),
		logger:  logger,
	}
}

// Produce generates a sanitized public summary of the cycle.
func (n *Narrator) Produce(ctx context.Context, gs *arena.GameState) (string, error) {
	system := n.buildPrompt(gs)

	resp, err := n.llm.Chat(ctx, []chat.Message{
		{Role: chat.RoleSystem, Content: system},
		{Role: chat.RoleUser, Content: "Narrate the events of this cycle."},
	})
	if err != nil {
		return "", fmt.Errorf("narrator request failed: %w", err)
	}

	summary, _, _ := arena.ParseAgentOutput(resp.Message)
	return n.filter.Sanitize(strings.TrimSpace(summary)), nil
}

func (n *Narrator) buildPrompt(gs *arena.GameState) string {
	tmpl, err := n.library.Resolve(prompts.RoleNarrator, gs.PromptNames[prompts.RoleNarrator])
	if err == nil {
		system, renderErr := tmpl.Render(prompts.NarratorInput{
			GameState:     formatState(gs),
			RecentActions: formatActions(gs.RecentActions()),
		})
		if renderErr == nil {
			return system
		}
		err = renderErr
	}

	n.logger.Warn("Narrator template unavailable, using fallback prompt", "error", err)
	return fmt.Sprintf(fallbackNarratorPrompt, formatState(gs), formatActions(gs.RecentActions()))
}
