package session

// Turn is one role/content pair in a condition's conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// History keeps the per-condition conversation so repeated runs inside
// one session stay contextual, and the two conditions never see each
// other's turns. Append-only; each completed run adds exactly one user
// and one assistant turn.
type History struct {
	turns map[Condition][]Turn
}

func NewHistory() *History {
	return &History{turns: make(map[Condition][]Turn)}
}

// Read returns a snapshot of the condition's turns. Callers can hold the
// slice across an Append without seeing it change underneath them.
func (h *History) Read(c Condition) []Turn {
	src := h.turns[c]
	out := make([]Turn, len(src))
	copy(out, src)
	return out
}

// Append records one completed exchange for the condition.
func (h *History) Append(c Condition, userText, assistantText string) {
	h.turns[c] = append(h.turns[c],
		Turn{Role: "user", Content: userText},
		Turn{Role: "assistant", Content: assistantText},
	)
}

// Len returns the number of turns stored for the condition.
func (h *History) Len(c Condition) int {
	return len(h.turns[c])
}
