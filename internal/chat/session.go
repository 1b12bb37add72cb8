// Package chat runs the assistant conversation: an append-only transcript
// where every user message is answered by the intent matcher after a short
// simulated thinking delay.
package chat

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yangwenmai/storeops/internal/intent"
	"github.com/yangwenmai/storeops/internal/logging"
	"github.com/yangwenmai/storeops/internal/model"
	"github.com/yangwenmai/storeops/internal/worker"
)

// Default reply timing: a fixed delay plus up to one second of jitter.
const (
	DefaultReplyDelay  = time.Second
	DefaultReplyJitter = time.Second
)

const welcomeTurnID = "welcome"

// turnBuffer bounds the Turns channel; turns beyond it are dropped for slow
// observers but always kept in the transcript.
const turnBuffer = 64

var (
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("chat session closed")

	// ErrReplyPending is returned by Submit in serialized mode while a reply
	// is still being prepared.
	ErrReplyPending = errors.New("reply pending")

	// ErrEmptyMessage is returned by Submit for blank input.
	ErrEmptyMessage = errors.New("empty message")
)

// Session is one conversation.
type Session struct {
	id        string
	matcher   *intent.Matcher
	delay     time.Duration
	jitter    time.Duration
	serialize bool
	now       func() time.Time
	log       zerolog.Logger
	sched     *worker.Scheduler

	mu       sync.Mutex
	turns    []model.ConversationTurn
	seq      int
	inflight int
	closed   bool
	out      chan model.ConversationTurn
}

// Option configures a Session.
type Option func(*Session)

// WithReplyDelay sets the fixed reply delay and the random jitter added to it.
func WithReplyDelay(delay, jitter time.Duration) Option {
	return func(s *Session) { s.delay, s.jitter = delay, jitter }
}

// WithSerialize rejects a new message while a reply is pending.
func WithSerialize(on bool) Option {
	return func(s *Session) { s.serialize = on }
}

// WithClock overrides the clock used for turn timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// NewSession starts a conversation seeded with the welcome turn. Pending
// replies are cancelled when ctx is cancelled or Close is called.
func NewSession(ctx context.Context, matcher *intent.Matcher, welcome string, opts ...Option) *Session {
	s := &Session{
		id:      uuid.NewString(),
		matcher: matcher,
		delay:   DefaultReplyDelay,
		jitter:  DefaultReplyJitter,
		now:     time.Now,
		log:     zerolog.Nop(),
		out:     make(chan model.ConversationTurn, turnBuffer),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "chat").Str(logging.ChatSessionKey, s.id).Logger()
	s.sched = worker.New(ctx, s.log)

	s.mu.Lock()
	s.appendLocked(model.ConversationTurn{ID: welcomeTurnID, Sender: model.SenderAI, Text: welcome})
	s.mu.Unlock()
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Submit appends the user's message and schedules the assistant reply.
func (s *Session) Submit(text string) (model.ConversationTurn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.ConversationTurn{}, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.ConversationTurn{}, ErrClosed
	}
	if s.serialize && s.inflight > 0 {
		return model.ConversationTurn{}, ErrReplyPending
	}

	s.seq++
	turn := s.appendLocked(model.ConversationTurn{ID: "user-" + strconv.Itoa(s.seq), Sender: model.SenderUser, Text: text})

	delay := s.replyDelay()
	if !s.sched.After(delay, func(ctx context.Context) { s.reply(ctx, text) }) {
		return turn, ErrClosed
	}
	s.inflight++
	s.log.Debug().Str("turn_id", turn.ID).Dur("delay", delay).Msg("reply scheduled")
	return turn, nil
}

func (s *Session) reply(ctx context.Context, text string) {
	response, ruleName := s.matcher.Fallback(), "fallback"
	if r, ok := s.matcher.MatchRule(text); ok {
		response, ruleName = r.Response, r.Name
	}
	topic := intent.ClassifyTopic(text)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || ctx.Err() != nil {
		return
	}
	s.inflight--
	s.seq++
	turn := s.appendLocked(model.ConversationTurn{
		ID:     "ai-" + strconv.Itoa(s.seq),
		Sender: model.SenderAI,
		Text:   response,
		Topic:  string(topic),
	})
	s.log.Debug().Str("turn_id", turn.ID).Str("rule", ruleName).Str("topic", string(topic)).Msg("reply appended")
}

// appendLocked stamps and records a turn. s.mu must be held.
func (s *Session) appendLocked(turn model.ConversationTurn) model.ConversationTurn {
	turn.Timestamp = s.now().Format(model.TimestampLayout)
	s.turns = append(s.turns, turn)
	select {
	case s.out <- turn:
	default:
		s.log.Warn().Str("turn_id", turn.ID).Msg("turn observer is behind, dropping notification")
	}
	return turn
}

func (s *Session) replyDelay() time.Duration {
	if s.jitter <= 0 {
		return s.delay
	}
	return s.delay + rand.N(s.jitter)
}

// Transcript returns a copy of every turn in order.
func (s *Session) Transcript() []model.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ConversationTurn(nil), s.turns...)
}

// Pending returns the number of replies still being prepared.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight
}

// Turns delivers every appended turn, starting with the welcome turn. The
// channel is closed by Close.
func (s *Session) Turns() <-chan model.ConversationTurn {
	return s.out
}

// Close cancels pending replies and waits for them to exit. No turn is
// appended after Close returns.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.inflight = 0
	s.mu.Unlock()

	s.sched.Stop()
	close(s.out)
	s.log.Debug().Msg("session closed")
}
