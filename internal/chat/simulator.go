// Package chat simulates a conversation with an assistant: every user
// message is answered with a canned reply after a fixed delay.
package chat

import (
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/assistant-studio/internal/domain"
	"github.com/ashureev/assistant-studio/internal/metrics"
	"github.com/ashureev/assistant-studio/internal/state"
	"github.com/ashureev/assistant-studio/internal/task"
)

// DefaultReplyDelay is how long the simulated assistant "types".
const DefaultReplyDelay = 1500 * time.Millisecond

var (
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrReplyPending is returned while the previous reply is still being typed.
	ErrReplyPending = errors.New("assistant is still replying")
)

// CannedReplies are the answers the simulator picks from.
var CannedReplies = []string{
	"Understood, what else can I help you with?",
	"That's an excellent question. Let me explain...",
	"Sure, I'd be glad to help you with that.",
	"Could you give me more details about your request?",
	"Perfect, I've recorded that information.",
	"I'm analyzing your request, give me a moment.",
	"Excellent! Let's move on to the next step.",
}

// Picker returns an index in [0, n).
type Picker func(n int) int

// Simulator appends user messages and canned replies to the state store.
type Simulator struct {
	store   *state.Store
	delay   time.Duration
	replies []string
	pick    Picker

	mu     sync.Mutex
	typing map[string]bool
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithReplyDelay overrides the typing delay.
func WithReplyDelay(d time.Duration) Option {
	return func(s *Simulator) { s.delay = d }
}

// WithReplies overrides the canned replies and how one is chosen.
func WithReplies(replies []string, pick Picker) Option {
	return func(s *Simulator) {
		if len(replies) > 0 {
			s.replies = replies
		}
		if pick != nil {
			s.pick = pick
		}
	}
}

// NewSimulator creates a simulator writing into store.
func NewSimulator(store *state.Store, opts ...Option) *Simulator {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var rngMu sync.Mutex
	s := &Simulator{
		store:   store,
		delay:   DefaultReplyDelay,
		replies: CannedReplies,
		pick: func(n int) int {
			rngMu.Lock()
			defer rngMu.Unlock()
			return rng.Intn(n)
		},
		typing: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send appends text as a user message and schedules the reply. The returned
// task resolves with the reply once it has been appended. Callers that follow
// the event stream may ignore it; the reply lands in the store either way.
func (s *Simulator) Send(assistantID, text string) (domain.Message, *task.Task[domain.Message], error) {
	if strings.TrimSpace(text) == "" {
		return domain.Message{}, nil, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.typing[assistantID] {
		s.mu.Unlock()
		return domain.Message{}, nil, ErrReplyPending
	}
	s.typing[assistantID] = true
	s.mu.Unlock()

	userMsg := domain.NewMessage(domain.SenderUser, text)
	s.store.AddChatMessage(assistantID, userMsg)
	metrics.ChatMessage(string(domain.SenderUser))

	reply := task.Go(func() (domain.Message, error) {
		time.Sleep(s.delay)
		msg := domain.NewMessage(domain.SenderAssistant, s.replies[s.pick(len(s.replies))])
		s.store.AddChatMessage(assistantID, msg)
		metrics.ChatMessage(string(domain.SenderAssistant))

		s.mu.Lock()
		delete(s.typing, assistantID)
		s.mu.Unlock()

		slog.Debug("Simulated reply sent", "assistant_id", assistantID)
		return msg, nil
	})
	return userMsg, reply, nil
}

// Typing reports whether a reply for assistantID is pending.
func (s *Simulator) Typing(assistantID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing[assistantID]
}

// History returns the messages exchanged with assistantID.
func (s *Simulator) History(assistantID string) []domain.Message {
	return s.store.History(assistantID)
}

// Clear empties the history of assistantID. A reply already being typed is
// still appended when it arrives.
func (s *Simulator) Clear(assistantID string) {
	s.store.ClearChat(assistantID)
}
