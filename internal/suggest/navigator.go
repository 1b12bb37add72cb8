// Package suggest tracks the highlighted autocomplete suggestion while the
// user types and navigates with the keyboard.
package suggest

import (
	"strings"
	"time"

	"github.com/yangwenmai/storeops/internal/intent"
	"github.com/yangwenmai/storeops/internal/model"
)

// BlurGrace is how long the list stays open after the input loses focus,
// so a click on a suggestion can still land.
const BlurGrace = 200 * time.Millisecond

// Key is a navigation key.
type Key int

// Navigation keys
const (
	KeyDown Key = iota
	KeyUp
	KeyEnter
	KeyEscape
)

// Action is what the surface must do after a key press.
type Action int

// Actions
const (
	// ActionNone means the key only moved the highlight, or was ignored.
	ActionNone Action = iota
	// ActionCommit means the input was replaced with the selected suggestion.
	ActionCommit
	// ActionSubmit means the current input should be sent.
	ActionSubmit
)

// Outcome is the result of a key press.
type Outcome struct {
	Action Action
	Text   string
}

// State is the navigator's visible state.
type State int

// States
const (
	StateClosed State = iota
	StateOpenUnselected
	StateOpenSelected
)

func (s State) String() string {
	switch s {
	case StateOpenUnselected:
		return "open"
	case StateOpenSelected:
		return "selected"
	default:
		return "closed"
	}
}

// Navigator is the autocomplete state machine. It is not safe for
// concurrent use; it belongs to a single input surface.
type Navigator struct {
	catalog  []model.SuggestionEntry
	limit    int
	input    string
	filtered []model.SuggestionEntry
	open     bool
	selected int
}

// New creates a closed navigator over catalog.
func New(catalog []model.SuggestionEntry, limit int) *Navigator {
	if limit <= 0 {
		limit = intent.DefaultMaxSuggestions
	}
	return &Navigator{catalog: catalog, limit: limit, selected: -1}
}

// SetInput records a text change. Any change clears the selection; the
// list opens when the trimmed input is long enough and something matches.
func (n *Navigator) SetInput(text string) {
	n.input = text
	n.filtered = intent.FilterSuggestions(text, n.catalog, n.limit)
	n.open = len(strings.TrimSpace(text)) >= intent.MinSuggestionInput && len(n.filtered) > 0
	n.selected = -1
}

// Press handles a navigation key.
func (n *Navigator) Press(k Key) Outcome {
	if !n.open {
		if k == KeyEnter {
			return Outcome{Action: ActionSubmit, Text: n.input}
		}
		return Outcome{}
	}

	count := len(n.filtered)
	switch k {
	case KeyDown:
		n.selected = (n.selected + 1) % count
	case KeyUp:
		if n.selected <= 0 {
			n.selected = count - 1
		} else {
			n.selected--
		}
	case KeyEnter:
		if n.selected >= 0 {
			text := n.filtered[n.selected].Text
			n.input = text
			n.Close()
			return Outcome{Action: ActionCommit, Text: text}
		}
		n.Close()
		return Outcome{Action: ActionSubmit, Text: n.input}
	case KeyEscape:
		n.Close()
	}
	return Outcome{}
}

// Select commits the suggestion at index i, as a pointer click does.
func (n *Navigator) Select(i int) (string, bool) {
	if !n.open || i < 0 || i >= len(n.filtered) {
		return "", false
	}
	text := n.filtered[i].Text
	n.input = text
	n.Close()
	return text, true
}

// Close hides the list and clears the selection. Surfaces call it on blur
// after BlurGrace.
func (n *Navigator) Close() {
	n.open = false
	n.selected = -1
}

// State returns the current state.
func (n *Navigator) State() State {
	switch {
	case !n.open:
		return StateClosed
	case n.selected < 0:
		return StateOpenUnselected
	default:
		return StateOpenSelected
	}
}

// Selected returns the highlighted index, or -1.
func (n *Navigator) Selected() int { return n.selected }

// Input returns the current input text.
func (n *Navigator) Input() string { return n.input }

// Suggestions returns the visible suggestions, or nil when closed.
func (n *Navigator) Suggestions() []model.SuggestionEntry {
	if !n.open {
		return nil
	}
	return n.filtered
}
