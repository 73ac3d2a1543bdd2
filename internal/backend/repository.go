// Package backend simulates the remote service behind the dashboard: every
// call resolves after an artificial latency, and deletes fail at random.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/assistant-studio/internal/domain"
	"github.com/google/uuid"
)

// ErrDeleteFailed is returned by Delete when a failure is injected.
var ErrDeleteFailed = errors.New("random error deleting the assistant, please try again")

// Repository is the asynchronous boundary the mutation orchestrator calls.
// It keeps no data of its own; callers apply results to the state store.
type Repository interface {
	// List returns local unchanged; the simulated backend holds no data set.
	List(ctx context.Context, local []domain.Assistant) ([]domain.Assistant, error)

	// Create returns the form fields plus a fresh id and empty rules.
	Create(ctx context.Context, form domain.AssistantForm) (domain.Assistant, error)

	// Update returns the patch with its id set. It does not merge with any
	// previously stored record.
	Update(ctx context.Context, id string, patch domain.AssistantPatch) (domain.AssistantPatch, error)

	// Delete removes nothing but may fail according to the failure policy.
	Delete(ctx context.Context, id string) error

	// SaveRules acknowledges a rules save without persisting it.
	SaveRules(ctx context.Context, id, rules string) error
}

// Latency holds the simulated duration of each operation.
type Latency struct {
	List      time.Duration
	Create    time.Duration
	Update    time.Duration
	Delete    time.Duration
	SaveRules time.Duration
}

// DefaultLatency matches the timings of the hosted mock service.
var DefaultLatency = Latency{
	List:      800 * time.Millisecond,
	Create:    1000 * time.Millisecond,
	Update:    800 * time.Millisecond,
	Delete:    600 * time.Millisecond,
	SaveRules: 1000 * time.Millisecond,
}

// DefaultDeleteFailureRate is the share of deletes that fail.
const DefaultDeleteFailureRate = 0.1

// Simulated implements Repository with sleeps and injected failures.
type Simulated struct {
	latency Latency
	failure FailurePolicy
	newID   func() string
}

// Option configures a Simulated repository.
type Option func(*Simulated)

// WithLatency overrides the per-operation latencies.
func WithLatency(l Latency) Option {
	return func(s *Simulated) { s.latency = l }
}

// WithFailurePolicy overrides the delete failure policy.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(s *Simulated) { s.failure = p }
}

// WithIDGenerator overrides how ids for created assistants are made.
func WithIDGenerator(fn func() string) Option {
	return func(s *Simulated) { s.newID = fn }
}

// NewSimulated returns a repository with the default latencies, a random
// 10% delete failure rate, and UUID ids.
func NewSimulated(opts ...Option) *Simulated {
	s := &Simulated{
		latency: DefaultLatency,
		failure: NewRandomFailure(DefaultDeleteFailureRate, 0),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Repository = (*Simulated)(nil)

// List returns local unchanged after the list latency.
func (s *Simulated) List(ctx context.Context, local []domain.Assistant) ([]domain.Assistant, error) {
	if err := sleep(ctx, s.latency.List); err != nil {
		return nil, fmt.Errorf("list assistants: %w", err)
	}
	return local, nil
}

// Create returns a new assistant built from form.
func (s *Simulated) Create(ctx context.Context, form domain.AssistantForm) (domain.Assistant, error) {
	if err := sleep(ctx, s.latency.Create); err != nil {
		return domain.Assistant{}, fmt.Errorf("create assistant: %w", err)
	}
	a := domain.Assistant{
		ID:             s.newID(),
		Name:           form.Name,
		Language:       form.Language,
		Tone:           form.Tone,
		ResponseLength: form.ResponseLength,
		AudioEnabled:   form.AudioEnabled,
		Rules:          "",
	}
	slog.Debug("Simulated backend created assistant", "assistant_id", a.ID)
	return a, nil
}

// Update echoes patch back with id set.
func (s *Simulated) Update(ctx context.Context, id string, patch domain.AssistantPatch) (domain.AssistantPatch, error) {
	if err := sleep(ctx, s.latency.Update); err != nil {
		return domain.AssistantPatch{}, fmt.Errorf("update assistant %s: %w", id, err)
	}
	patch.ID = id
	return patch, nil
}

// Delete fails with ErrDeleteFailed when the failure policy says so.
func (s *Simulated) Delete(ctx context.Context, id string) error {
	if err := sleep(ctx, s.latency.Delete); err != nil {
		return fmt.Errorf("delete assistant %s: %w", id, err)
	}
	if s.failure != nil && s.failure.ShouldFail() {
		slog.Debug("Simulated backend injected delete failure", "assistant_id", id)
		return ErrDeleteFailed
	}
	return nil
}

// SaveRules resolves after the save latency.
func (s *Simulated) SaveRules(ctx context.Context, id, _ string) error {
	if err := sleep(ctx, s.latency.SaveRules); err != nil {
		return fmt.Errorf("save rules for %s: %w", id, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
