// Package state holds the application state store: the single owner of the
// assistant list, chat histories, modal state and theme.
package state

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/ashureev/assistant-studio/internal/domain"
	"github.com/ashureev/assistant-studio/internal/pubsub"
)

// Slice names the part of the state a change touched.
type Slice string

const (
	SliceAssistants Slice = "assistants"
	SliceChat       Slice = "chat"
	SliceModal      Slice = "modal"
	SliceTheme      Slice = "theme"
)

// Change is published after every state transition.
type Change struct {
	Slice Slice `json:"slice"`
	// AssistantID is set for chat changes.
	AssistantID string    `json:"assistantId,omitempty"`
	Snapshot    *Snapshot `json:"state"`
}

// Snapshot is an immutable view of the application state. Consecutive
// snapshots share every slice that a transition did not touch, so callers
// must treat all fields as read-only.
type Snapshot struct {
	Version       uint64                      `json:"version"`
	Assistants    []domain.Assistant          `json:"assistants"`
	ChatHistories map[string][]domain.Message `json:"chatHistories"`
	ModalOpen     bool                        `json:"modalOpen"`
	// EditingID is empty when the modal is closed or in create mode.
	EditingID string       `json:"editingId,omitempty"`
	Theme     domain.Theme `json:"theme"`
}

// ThemePersister stores the theme preference outside the process.
type ThemePersister interface {
	SaveTheme(ctx context.Context, theme domain.Theme) error
}

const persistTimeout = 5 * time.Second

// Store owns the application state. All mutations go through its methods,
// each of which replaces the affected slice atomically.
type Store struct {
	mu  sync.Mutex
	cur *Snapshot
	// persistMu orders theme writes without holding mu during I/O.
	persistMu sync.Mutex
	themes  ThemePersister
	changes *pubsub.Broker[Change]
}

// New creates a store seeded with assistants and an initial theme.
// themes may be nil, in which case theme changes are not persisted.
func New(seed []domain.Assistant, theme domain.Theme, themes ThemePersister) *Store {
	return &Store{
		cur: &Snapshot{
			Assistants:    append([]domain.Assistant{}, seed...),
			ChatHistories: map[string][]domain.Message{},
			Theme:         theme,
		},
		themes:  themes,
		changes: pubsub.NewBroker[Change]("state", 64),
	}
}

// Subscribe returns a channel of changes and a func to stop receiving them.
func (s *Store) Subscribe() (<-chan Change, func()) {
	return s.changes.Subscribe()
}

// Close ends every subscription.
func (s *Store) Close() {
	s.changes.Close()
}

// Snapshot returns the current state.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Assistants returns the current assistant sequence.
func (s *Store) Assistants() []domain.Assistant {
	return s.Snapshot().Assistants
}

// Assistant looks up an assistant by id.
func (s *Store) Assistant(id string) (domain.Assistant, bool) {
	for _, a := range s.Snapshot().Assistants {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Assistant{}, false
}

// History returns the chat history of an assistant, nil when none exists.
func (s *Store) History(assistantID string) []domain.Message {
	return s.Snapshot().ChatHistories[assistantID]
}

// commit applies mutate to a shallow copy of the current snapshot. When
// mutate reports no change the state and version stay as they are.
func (s *Store) commit(slice Slice, assistantID string, mutate func(next *Snapshot) bool) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.cur
	if !mutate(&next) {
		return s.cur
	}
	next.Version++
	s.cur = &next
	s.changes.Publish(Change{Slice: slice, AssistantID: assistantID, Snapshot: s.cur})
	return s.cur
}

// SetAssistants replaces the whole assistant sequence.
func (s *Store) SetAssistants(list []domain.Assistant) {
	s.commit(SliceAssistants, "", func(next *Snapshot) bool {
		next.Assistants = append([]domain.Assistant{}, list...)
		return true
	})
}

// AddAssistant appends a record. Duplicate ids are not checked.
func (s *Store) AddAssistant(a domain.Assistant) {
	s.commit(SliceAssistants, "", func(next *Snapshot) bool {
		list := make([]domain.Assistant, len(next.Assistants), len(next.Assistants)+1)
		copy(list, next.Assistants)
		next.Assistants = append(list, a)
		return true
	})
}

// UpdateAssistant replaces the record with the same id. Unknown ids are ignored.
func (s *Store) UpdateAssistant(a domain.Assistant) {
	s.commit(SliceAssistants, "", func(next *Snapshot) bool {
		i := slices.IndexFunc(next.Assistants, func(x domain.Assistant) bool { return x.ID == a.ID })
		if i < 0 {
			return false
		}
		list := slices.Clone(next.Assistants)
		list[i] = a
		next.Assistants = list
		return true
	})
}

// DeleteAssistant removes the record with the given id, if any.
func (s *Store) DeleteAssistant(id string) {
	s.commit(SliceAssistants, "", func(next *Snapshot) bool {
		if !slices.ContainsFunc(next.Assistants, func(x domain.Assistant) bool { return x.ID == id }) {
			return false
		}
		list := make([]domain.Assistant, 0, len(next.Assistants)-1)
		for _, a := range next.Assistants {
			if a.ID != id {
				list = append(list, a)
			}
		}
		next.Assistants = list
		return true
	})
}

// OpenModal opens the editor. An empty id means create mode.
func (s *Store) OpenModal(id string) {
	s.commit(SliceModal, "", func(next *Snapshot) bool {
		next.ModalOpen = true
		next.EditingID = id
		return true
	})
}

// CloseModal closes the editor and clears the editing target.
func (s *Store) CloseModal() {
	s.commit(SliceModal, "", func(next *Snapshot) bool {
		next.ModalOpen = false
		next.EditingID = ""
		return true
	})
}

// AddChatMessage appends a message to the history of an assistant,
// creating the history on first use.
func (s *Store) AddChatMessage(assistantID string, msg domain.Message) {
	s.commit(SliceChat, assistantID, func(next *Snapshot) bool {
		prev := next.ChatHistories[assistantID]
		history := make([]domain.Message, len(prev), len(prev)+1)
		copy(history, prev)

		histories := maps.Clone(next.ChatHistories)
		histories[assistantID] = append(history, msg)
		next.ChatHistories = histories
		return true
	})
}

// ClearChat resets the history of an assistant to an empty sequence.
func (s *Store) ClearChat(assistantID string) {
	s.commit(SliceChat, assistantID, func(next *Snapshot) bool {
		histories := maps.Clone(next.ChatHistories)
		histories[assistantID] = []domain.Message{}
		next.ChatHistories = histories
		return true
	})
}

// ToggleTheme flips the theme and persists the new value. The in-memory
// theme changes even when persisting fails; the error is returned.
func (s *Store) ToggleTheme() (domain.Theme, error) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	snap := s.commit(SliceTheme, "", func(next *Snapshot) bool {
		next.Theme = next.Theme.Toggle()
		return true
	})
	theme := snap.Theme

	if s.themes == nil {
		return theme, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.themes.SaveTheme(ctx, theme); err != nil {
		slog.Error("Failed to persist theme", "theme", theme, "error", err)
		return theme, err
	}
	return theme, nil
}
