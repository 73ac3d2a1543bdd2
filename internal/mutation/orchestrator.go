// Package mutation coordinates writes: it calls the backend, then reduces
// each completed call into the state store on a single loop.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/assistant-studio/internal/backend"
	"github.com/ashureev/assistant-studio/internal/domain"
	"github.com/ashureev/assistant-studio/internal/metrics"
	"github.com/ashureev/assistant-studio/internal/notify"
	"github.com/ashureev/assistant-studio/internal/state"
	"github.com/ashureev/assistant-studio/internal/task"
)

var (
	// ErrNotFound is returned when a mutation targets an assistant the store
	// does not hold.
	ErrNotFound = errors.New("assistant not found")
	// ErrClosed is returned for calls that complete after Close.
	ErrClosed = errors.New("orchestrator closed")
)

// Op names a kind of mutation.
type Op string

const (
	OpList      Op = "list"
	OpCreate    Op = "create"
	OpUpdate    Op = "update"
	OpDelete    Op = "delete"
	OpSaveRules Op = "save_rules"
)

// Result is the outcome of a mutation once it has been applied to the store.
type Result struct {
	Op Op `json:"op"`
	// Assistant is the record as committed to the store, for create, update
	// and save-rules.
	Assistant domain.Assistant `json:"assistant,omitempty"`
	// Assistants is the refreshed list for list.
	Assistants []domain.Assistant `json:"assistants,omitempty"`
}

// Notifier shows transient messages to the user.
type Notifier interface {
	Success(message string) notify.Notification
	Error(message string) notify.Notification
}

// Event is a completed backend call waiting to be reduced into the store.
type Event struct {
	Op          Op
	AssistantID string
	Created     domain.Assistant
	Patch       domain.AssistantPatch
	Listed      []domain.Assistant
	Rules       string
	CloseModal  bool
	Err         error

	task    *task.Task[Result]
	started time.Time
}

// Orchestrator runs mutations against a backend.Repository and applies
// their results to a state.Store in completion order.
type Orchestrator struct {
	repo   backend.Repository
	store  *state.Store
	notes  Notifier
	events chan Event
	done   chan struct{}
	exited chan struct{}
	once   sync.Once
}

// New creates an orchestrator and starts its reducer loop.
func New(repo backend.Repository, store *state.Store, notes Notifier) *Orchestrator {
	o := &Orchestrator{
		repo:   repo,
		store:  store,
		notes:  notes,
		events: make(chan Event),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go o.loop()
	return o
}

// Close stops the reducer loop. Backend calls still in flight run to
// completion, but their results are no longer applied.
func (o *Orchestrator) Close() {
	o.once.Do(func() { close(o.done) })
	<-o.exited
}

func (o *Orchestrator) loop() {
	defer close(o.exited)
	for {
		select {
		case <-o.done:
			return
		case ev := <-o.events:
			res, err := o.reduce(ev)
			result := metrics.ResultOK
			if err != nil {
				result = metrics.ResultError
			}
			metrics.ObserveMutation(string(ev.Op), result, time.Since(ev.started))
			ev.task.Complete(res, err)
		}
	}
}

// run calls the backend on its own goroutine and hands the outcome to the loop.
func (o *Orchestrator) run(op Op, id string, call func(ctx context.Context) Event) *task.Task[Result] {
	t := task.New[Result]()
	started := time.Now()
	go func() {
		// Calls are not cancelable once started.
		ev := call(context.Background())
		ev.Op = op
		ev.AssistantID = id
		ev.task = t
		ev.started = started
		select {
		case o.events <- ev:
		case <-o.done:
			slog.Debug("Dropping mutation result after close", "op", op, "assistant_id", id)
			metrics.ObserveMutation(string(op), metrics.ResultDropped, time.Since(started))
			t.Fail(ErrClosed)
		}
	}()
	return t
}

func failed(err error) *task.Task[Result] {
	t := task.New[Result]()
	t.Fail(err)
	return t
}

// Refresh fetches the assistant list and replaces the store's sequence with it.
func (o *Orchestrator) Refresh() *task.Task[Result] {
	local := o.store.Assistants()
	return o.run(OpList, "", func(ctx context.Context) Event {
		listed, err := o.repo.List(ctx, local)
		return Event{Listed: listed, Err: err}
	})
}

// Create validates form and creates a new assistant from it.
func (o *Orchestrator) Create(form domain.AssistantForm) *task.Task[Result] {
	return o.create(form, false)
}

func (o *Orchestrator) create(form domain.AssistantForm, closeModal bool) *task.Task[Result] {
	if err := form.Validate(); err != nil {
		return failed(err)
	}
	return o.run(OpCreate, "", func(ctx context.Context) Event {
		created, err := o.repo.Create(ctx, form)
		return Event{Created: created, CloseModal: closeModal, Err: err}
	})
}

// Update validates form and replaces the editable fields of assistant id.
func (o *Orchestrator) Update(id string, form domain.AssistantForm) *task.Task[Result] {
	return o.update(id, form, false)
}

func (o *Orchestrator) update(id string, form domain.AssistantForm, closeModal bool) *task.Task[Result] {
	if err := form.Validate(); err != nil {
		return failed(err)
	}
	if _, ok := o.store.Assistant(id); !ok {
		return failed(fmt.Errorf("update %s: %w", id, ErrNotFound))
	}
	return o.run(OpUpdate, id, func(ctx context.Context) Event {
		patch, err := o.repo.Update(ctx, id, form.Patch())
		return Event{Patch: patch, CloseModal: closeModal, Err: err}
	})
}

// Patch changes only the fields set in patch. The merged record must still
// be a valid form.
func (o *Orchestrator) Patch(id string, patch domain.AssistantPatch) *task.Task[Result] {
	cur, ok := o.store.Assistant(id)
	if !ok {
		return failed(fmt.Errorf("patch %s: %w", id, ErrNotFound))
	}
	if err := patch.ApplyTo(cur).Form().Validate(); err != nil {
		return failed(err)
	}
	return o.run(OpUpdate, id, func(ctx context.Context) Event {
		echoed, err := o.repo.Update(ctx, id, patch)
		return Event{Patch: echoed, Err: err}
	})
}

// Save submits the editor: it updates the assistant being edited, or
// creates a new one in create mode, and closes the editor on success.
func (o *Orchestrator) Save(form domain.AssistantForm) *task.Task[Result] {
	if id := o.store.Snapshot().EditingID; id != "" {
		return o.update(id, form, true)
	}
	return o.create(form, true)
}

// Delete removes assistant id once the backend confirms.
func (o *Orchestrator) Delete(id string) *task.Task[Result] {
	return o.run(OpDelete, id, func(ctx context.Context) Event {
		return Event{Err: o.repo.Delete(ctx, id)}
	})
}

// SaveRules stores a new training text for assistant id.
func (o *Orchestrator) SaveRules(id, rules string) *task.Task[Result] {
	return o.run(OpSaveRules, id, func(ctx context.Context) Event {
		return Event{Rules: rules, Err: o.repo.SaveRules(ctx, id, rules)}
	})
}
