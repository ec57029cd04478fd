package arena

// Delta is a compact description of the state changes for one turn,
// extracted from an agent's raw output. A Delta is much faster for the
// LLM to generate than a full game state. Any absent key means "no
// change" for that player and field.
type Delta struct {
	HPChanges         map[PlayerID]int            `json:"hp_changes,omitempty"`
	PositionChanges   map[PlayerID][2]int         `json:"position_changes,omitempty"`
	CustomStatChanges map[PlayerID]map[string]any `json:"custom_stat_changes,omitempty"`
}

// ZeroDelta returns a delta that changes nothing for either player.
// It is substituted when an update payload is missing or malformed, so
// the turn proceeds with narrative-only effect.
func ZeroDelta() *Delta {
	return &Delta{
		HPChanges: map[PlayerID]int{
			PlayerA: 0,
			PlayerB: 0,
		},
		PositionChanges: map[PlayerID][2]int{
			PlayerA: {0, 0},
			PlayerB: {0, 0},
		},
		CustomStatChanges: map[PlayerID]map[string]any{
			PlayerA: {},
			PlayerB: {},
		},
	}
}

// IsNoOp reports whether applying the delta would leave both players
// unchanged.
func (d *Delta) IsNoOp() bool {
	if d == nil {
		return true
	}
	for _, change := range d.HPChanges {
		if change != 0 {
			return false
		}
	}
	for _, move := range d.PositionChanges {
		if move[0] != 0 || move[1] != 0 {
			return false
		}
	}
	for _, stats := range d.CustomStatChanges {
		if len(stats) > 0 {
			return false
		}
	}
	return true
}
