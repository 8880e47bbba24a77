package scenario

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/driverlab/persona-gateway/internal/lang"
)

// Scenario is one driving situation shown to participants. Text is the
// English wording, TextDE the German one; both address the driver in the
// second person as written.
type Scenario struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	TextDE string `json:"text_de,omitempty"`
}

// Store is a read-only scenario catalogue loaded once at startup.
type Store struct {
	byID  map[string]Scenario
	order []string
}

// Load reads the scenario catalogue from a JSON array file.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenarios: %w", err)
	}
	var items []Scenario
	if err = json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse scenarios: %w", err)
	}
	return NewStore(items), nil
}

// NewStore builds a catalogue from in-memory scenarios, preserving order.
func NewStore(items []Scenario) *Store {
	s := &Store{byID: make(map[string]Scenario, len(items))}
	for _, item := range items {
		if _, dup := s.byID[item.ID]; dup {
			continue
		}
		s.byID[item.ID] = item
		s.order = append(s.order, item.ID)
	}
	return s
}

// Has reports whether the catalogue contains the scenario id.
func (s *Store) Has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// List returns all scenarios in catalogue order.
func (s *Store) List() []Scenario {
	out := make([]Scenario, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Text returns the scenario wording for the given locale, falling back to
// the English text when no German variant exists. Unknown ids yield "".
func (s *Store) Text(id string, l lang.Lang) string {
	sc, ok := s.byID[id]
	if !ok {
		return ""
	}
	if l == lang.DE && sc.TextDE != "" {
		return sc.TextDE
	}
	return sc.Text
}
