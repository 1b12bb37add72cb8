package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/yangwenmai/storeops/internal/intent"
	"github.com/yangwenmai/storeops/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testMatcher = intent.NewMatcher([]intent.Rule{
	{Name: "inventory", Triggers: []string{"stock"}, Response: "inventory answer"},
	{Name: "equipment", Triggers: []string{"cooler"}, Response: "equipment answer"},
}, "fallback answer")

var fixedNow = func() time.Time { return time.Date(2026, 3, 14, 9, 7, 0, 0, time.UTC) }

func newSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithClock(fixedNow), WithReplyDelay(30*time.Millisecond, 0)}, opts...)
	s := NewSession(context.Background(), testMatcher, "welcome text", opts...)
	t.Cleanup(s.Close)
	return s
}

// next reads one turn from the session's channel.
func next(t *testing.T, s *Session) model.ConversationTurn {
	t.Helper()
	select {
	case turn, ok := <-s.Turns():
		require.True(t, ok, "turns channel closed")
		return turn
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for turn")
		return model.ConversationTurn{}
	}
}

func TestWelcomeTurn(t *testing.T) {
	s := newSession(t)

	turns := s.Transcript()
	require.Len(t, turns, 1)
	assert.Equal(t, model.ConversationTurn{ID: "welcome", Sender: model.SenderAI, Text: "welcome text", Timestamp: "09:07"}, turns[0])
	assert.Equal(t, turns[0], next(t, s))
	assert.NotEmpty(t, s.ID())
}

func TestSubmitAndReply(t *testing.T) {
	s := newSession(t)
	next(t, s)

	user, err := s.Submit("  how is the stock?  ")
	require.NoError(t, err)
	assert.Equal(t, model.SenderUser, user.Sender)
	assert.Equal(t, "how is the stock?", user.Text)
	assert.Equal(t, 1, s.Pending())

	assert.Equal(t, user, next(t, s))
	reply := next(t, s)
	assert.Equal(t, model.SenderAI, reply.Sender)
	assert.Equal(t, "inventory answer", reply.Text)
	assert.Equal(t, "inventory", reply.Topic)
	assert.Equal(t, 0, s.Pending())

	turns := s.Transcript()
	require.Len(t, turns, 3)
	assert.Equal(t, []model.Sender{model.SenderAI, model.SenderUser, model.SenderAI},
		[]model.Sender{turns[0].Sender, turns[1].Sender, turns[2].Sender})
	assert.NotEqual(t, turns[1].ID, turns[2].ID)
}

func TestSubmitFallback(t *testing.T) {
	s := newSession(t)
	next(t, s)

	_, err := s.Submit("hello")
	require.NoError(t, err)
	next(t, s)
	assert.Equal(t, "fallback answer", next(t, s).Text)
}

func TestSubmitEmpty(t *testing.T) {
	s := newSession(t)

	_, err := s.Submit("   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Len(t, s.Transcript(), 1)
}

func TestOverlappingSubmissionsAllowed(t *testing.T) {
	s := newSession(t)
	next(t, s)

	_, err := s.Submit("stock")
	require.NoError(t, err)
	_, err = s.Submit("cooler")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Pending())

	assert.Eventually(t, func() bool { return len(s.Transcript()) == 5 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, s.Pending())

	var replies []string
	for _, turn := range s.Transcript()[3:] {
		replies = append(replies, turn.Text)
	}
	assert.ElementsMatch(t, []string{"inventory answer", "equipment answer"}, replies)
}

func TestSerializedRejectsOverlap(t *testing.T) {
	s := newSession(t, WithSerialize(true))
	next(t, s)

	_, err := s.Submit("stock")
	require.NoError(t, err)
	_, err = s.Submit("cooler")
	assert.ErrorIs(t, err, ErrReplyPending)
	assert.Len(t, s.Transcript(), 2, "rejected message is not recorded")

	next(t, s)
	next(t, s)
	_, err = s.Submit("cooler")
	assert.NoError(t, err, "accepted once the reply has arrived")
}

func TestCloseCancelsPendingReply(t *testing.T) {
	s := NewSession(context.Background(), testMatcher, "welcome", WithReplyDelay(time.Hour, 0))

	_, err := s.Submit("stock")
	require.NoError(t, err)
	s.Close()

	assert.Len(t, s.Transcript(), 2, "no reply after close")
	assert.Equal(t, 0, s.Pending())

	_, err = s.Submit("stock")
	assert.ErrorIs(t, err, ErrClosed)

	var got int
	for range s.Turns() {
		got++
	}
	assert.Equal(t, 2, got, "buffered turns drain, then the channel is closed")

	s.Close()
}

func TestParentContextCancelsReplies(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewSession(ctx, testMatcher, "welcome", WithReplyDelay(time.Hour, 0))
	defer s.Close()

	_, err := s.Submit("stock")
	require.NoError(t, err)
	cancel()

	time.Sleep(20 * time.Millisecond)
	assert.Len(t, s.Transcript(), 2)
}

func TestReplyDelayJitter(t *testing.T) {
	s := &Session{delay: time.Second, jitter: time.Second}
	for range 50 {
		d := s.replyDelay()
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 2*time.Second)
	}

	s.jitter = 0
	assert.Equal(t, time.Second, s.replyDelay())
}
