package prompts

// Agent roles. Each role has its own template set and placeholder
// contract; all three share the update-protocol suffix.
const (
	RoleGameMaster = "game_master"
	RolePlayerB    = "player_b"
	RoleNarrator   = "narrator"
)

// Roles lists the known agent roles.
var Roles = []string{RoleGameMaster, RolePlayerB, RoleNarrator}

// UpdateProtocolPrompt is the fixed instructional suffix appended to
// every agent prompt. It describes the sentinel and payload shape the
// parser expects. It is part of the adapter contract, not per-role
// prompt content, and must stay identical across roles.
const UpdateProtocolPrompt = `

After your response, provide a JSON object with state updates in the format:
###Updates
{
    "hp_changes": {
        "player_a": 0,
        "player_b": 0
    },
    "position_changes": {
        "player_a": [0, 0],
        "player_b": [0, 0]
    },
    "custom_stat_changes": {
        "player_a": {},
        "player_b": {}
    }
}`

// GameMasterInput holds the placeholder values for Game Master templates.
type GameMasterInput struct {
	PlayerName          string
	ConversationHistory string
	GameState           string
	PlayerMessage       string
}

// PlayerBInput holds the placeholder values for Player B templates.
type PlayerBInput struct {
	GameState        string
	ActionSummary    string
	NarrativeHistory string
}

// NarratorInput holds the placeholder values for narrator templates.
type NarratorInput struct {
	GameState     string
	RecentActions string
}

// requiredPlaceholders lists the template fields each role must
// reference. Used by template validation.
var requiredPlaceholders = map[string][]string{
	RoleGameMaster: {"PlayerName", "ConversationHistory", "GameState", "PlayerMessage"},
	RolePlayerB:    {"GameState", "ActionSummary", "NarrativeHistory"},
	RoleNarrator:   {"GameState", "RecentActions"},
}

const defaultGameMasterTemplate = `You are the Game Master for {{.PlayerName}} in an AI Arena game.

Previous conversation history:
{{.ConversationHistory}}

Current game state:
{{.GameState}}

Rules:
- No actions can confer infinite HP
- No actions can drain opponent's HP to zero instantly
- Actions should be evaluated based on narrative merit and creativity
- Maintain consistency with previous narrative elements
- Reference previous conversation elements when relevant

Player's current message: {{.PlayerMessage}}

Respond in character as the Game Master, maintaining narrative continuity with previous interactions.`

const defaultPlayerBTemplate = `You are playing as Player B in an AI Arena game. You need to respond to the current game state and your opponent's actions with a strategic move of your own.

Current game state:
{{.GameState}}

Recent actions summary:
{{.ActionSummary}}

Previous narrative history:
{{.NarrativeHistory}}

Generate a response that includes:
1. A narrative description of your strategic thinking and approach
2. The specific action you choose to take
3. Expected impact on the game state`

const defaultNarratorTemplate = `As the narrator of an AI Arena game, create an engaging summary of recent events.
Focus on public actions and their results, while maintaining any strategic secrets.

Current game state:
{{.GameState}}

Recent actions:
{{.RecentActions}}

Create a brief, engaging narrative that:
1. Describes what happened in an exciting way
2. Maintains dramatic tension
3. Only reveals public information
4. Connects events in a coherent narrative thread
5. Highlights significant state changes (HP, position, etc.)`
