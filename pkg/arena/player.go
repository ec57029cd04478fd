package arena

// PlayerID identifies one of the two combatants. Deltas produced by
// agents key their changes by these values.
type PlayerID string

const (
	PlayerA PlayerID = "player_a"
	PlayerB PlayerID = "player_b"
)

// Valid reports whether the identifier names a real combatant.
// Agent output sometimes invents identifiers; those entries are skipped.
func (p PlayerID) Valid() bool {
	return p == PlayerA || p == PlayerB
}

// Opponent returns the other combatant.
func (p PlayerID) Opponent() PlayerID {
	if p == PlayerA {
		return PlayerB
	}
	return PlayerA
}

// Label returns the display name used in narration and final records.
func (p PlayerID) Label() string {
	switch p {
	case PlayerA:
		return "Player A"
	case PlayerB:
		return "Player B"
	}
	return string(p)
}

// Position is a board coordinate, serialized as [x, y].
// Both axes are clamped to [0, BoardSize-1] when deltas are applied.
type Position [2]int

// X returns the horizontal coordinate.
func (p Position) X() int { return p[0] }

// Y returns the vertical coordinate.
func (p Position) Y() int { return p[1] }

// PlayerState is one combatant's mutable state. It is owned by GameState
// and mutated only through GameState.Apply.
type PlayerState struct {
	Name        string         `json:"name"`
	HP          int            `json:"hp"`
	Position    Position       `json:"position"`
	CustomStats map[string]any `json:"custom_stats,omitempty"`
}
