package arena

import (
	"encoding/json"
	"fmt"
	"strings"
)

// UpdateSentinel separates narrative prose from the structured update
// payload in raw agent output. Everything before it is narrative;
// everything after is expected to be a single JSON object matching the
// Delta shape.
const UpdateSentinel = "###Updates"

// ParseAgentOutput splits raw agent output into its narrative segment
// and state-update delta.
//
// A missing sentinel is not an error: the whole text is narrative and a
// zero delta is returned. A present sentinel with an unparsable payload
// degrades to a zero delta and a non-nil error so the caller can log the
// failure; the turn still proceeds with narrative-only effect.
func ParseAgentOutput(raw string) (string, *Delta, error) {
	idx := strings.Index(raw, UpdateSentinel)
	if idx < 0 {
		return strings.TrimSpace(raw), ZeroDelta(), nil
	}

	narrative := strings.TrimSpace(raw[:idx])
	payload := stripCodeFences(strings.TrimSpace(raw[idx+len(UpdateSentinel):]))

	var delta Delta
	if err := json.Unmarshal([]byte(payload), &delta); err != nil {
		return narrative, ZeroDelta(), fmt.Errorf("malformed update payload: %w", err)
	}
	return narrative, &delta, nil
}

// stripCodeFences removes a markdown code fence wrapped around the
// payload. Models wrap the update JSON in fences despite instructions.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
