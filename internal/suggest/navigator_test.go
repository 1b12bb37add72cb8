package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yangwenmai/storeops/internal/model"
)

var prompts = []model.SuggestionEntry{
	{Text: "Show inventory levels", Keywords: []string{"inventory", "stock"}},
	{Text: "Create restocking tasks", Keywords: []string{"restock", "tasks"}},
	{Text: "Check stock room", Keywords: []string{"room"}},
	{Text: "Monitor equipment status", Keywords: []string{"equipment"}},
}

// openWithFour opens the list on the four "st" matches.
func openWithFour(t *testing.T) *Navigator {
	t.Helper()
	n := New(prompts, 5)
	n.SetInput("st")
	require.Equal(t, StateOpenUnselected, n.State())
	require.Len(t, n.Suggestions(), 4)
	return n
}

func TestSetInputOpensAndCloses(t *testing.T) {
	n := New(prompts, 5)
	assert.Equal(t, StateClosed, n.State())

	n.SetInput("e")
	assert.Equal(t, StateClosed, n.State())

	n.SetInput("eq")
	assert.Equal(t, StateOpenUnselected, n.State())
	assert.Len(t, n.Suggestions(), 1)

	n.SetInput("zzz")
	assert.Equal(t, StateClosed, n.State())
	assert.Nil(t, n.Suggestions())
}

func TestDownWraps(t *testing.T) {
	n := openWithFour(t)

	for _, want := range []int{0, 1, 2, 3, 0} {
		assert.Equal(t, Outcome{}, n.Press(KeyDown))
		assert.Equal(t, want, n.Selected())
	}
	assert.Equal(t, StateOpenSelected, n.State())
}

func TestUpWraps(t *testing.T) {
	n := openWithFour(t)

	n.Press(KeyUp)
	assert.Equal(t, 3, n.Selected(), "up from unselected goes to last")

	n.Press(KeyUp)
	assert.Equal(t, 2, n.Selected())

	n.Press(KeyDown)
	n.Press(KeyDown)
	assert.Equal(t, 0, n.Selected())
	n.Press(KeyUp)
	assert.Equal(t, 3, n.Selected(), "up from first goes to last")
}

func TestEnterCommitsSelection(t *testing.T) {
	n := openWithFour(t)
	n.Press(KeyDown)
	n.Press(KeyDown)

	out := n.Press(KeyEnter)
	assert.Equal(t, Outcome{Action: ActionCommit, Text: "Create restocking tasks"}, out)
	assert.Equal(t, StateClosed, n.State())
	assert.Equal(t, "Create restocking tasks", n.Input())
	assert.Equal(t, -1, n.Selected())
}

func TestEnterWithoutSelectionSubmits(t *testing.T) {
	n := openWithFour(t)

	out := n.Press(KeyEnter)
	assert.Equal(t, Outcome{Action: ActionSubmit, Text: "st"}, out)
	assert.Equal(t, StateClosed, n.State())
}

func TestEnterWhileClosedSubmits(t *testing.T) {
	n := New(prompts, 5)
	n.SetInput("hello there")

	assert.Equal(t, Outcome{Action: ActionSubmit, Text: "hello there"}, n.Press(KeyEnter))
	assert.Equal(t, Outcome{}, n.Press(KeyDown))
	assert.Equal(t, -1, n.Selected())
}

func TestEscapeCloses(t *testing.T) {
	n := openWithFour(t)
	n.Press(KeyDown)

	assert.Equal(t, Outcome{}, n.Press(KeyEscape))
	assert.Equal(t, StateClosed, n.State())
	assert.Equal(t, -1, n.Selected())
	assert.Equal(t, "st", n.Input())
}

func TestTypingResetsSelection(t *testing.T) {
	n := openWithFour(t)
	n.Press(KeyDown)
	n.Press(KeyDown)

	n.SetInput("sto")
	assert.Equal(t, StateOpenUnselected, n.State())
	assert.Equal(t, -1, n.Selected())
}

func TestSelect(t *testing.T) {
	n := openWithFour(t)

	text, ok := n.Select(3)
	require.True(t, ok)
	assert.Equal(t, "Monitor equipment status", text)
	assert.Equal(t, StateClosed, n.State())

	_, ok = n.Select(0)
	assert.False(t, ok, "closed list cannot be selected")
}

func TestLimit(t *testing.T) {
	n := New(prompts, 2)
	n.SetInput("st")
	assert.Len(t, n.Suggestions(), 2)

	n.Press(KeyUp)
	assert.Equal(t, 1, n.Selected())
}
