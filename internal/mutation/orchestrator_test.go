package mutation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/assistant-studio/internal/backend"
	"github.com/ashureev/assistant-studio/internal/domain"
	"github.com/ashureev/assistant-studio/internal/notify"
	"github.com/ashureev/assistant-studio/internal/state"
	"github.com/ashureev/assistant-studio/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRepo wraps a simulated backend, counts calls, and can hold
// individual update calls until released.
type countingRepo struct {
	backend.Repository

	mu      sync.Mutex
	calls   map[string]int
	holds   map[string]chan struct{}
	started chan string
}

func newCountingRepo(policy backend.FailurePolicy) *countingRepo {
	return &countingRepo{
		Repository: backend.NewSimulated(
			backend.WithLatency(backend.Latency{}),
			backend.WithFailurePolicy(policy),
		),
		calls:   make(map[string]int),
		holds:   make(map[string]chan struct{}),
		started: make(chan string, 16),
	}
}

func (r *countingRepo) count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

func (r *countingRepo) hit(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[op]++
}

// hold makes the next call whose key matches block until the returned func is called.
func (r *countingRepo) hold(key string) func() {
	ch := make(chan struct{})
	r.mu.Lock()
	r.holds[key] = ch
	r.mu.Unlock()
	return func() { close(ch) }
}

func (r *countingRepo) wait(key string) {
	r.mu.Lock()
	ch := r.holds[key]
	r.mu.Unlock()
	if ch != nil {
		r.started <- key
		<-ch
	}
}

func (r *countingRepo) List(ctx context.Context, local []domain.Assistant) ([]domain.Assistant, error) {
	r.hit("list")
	return r.Repository.List(ctx, local)
}

func (r *countingRepo) Create(ctx context.Context, form domain.AssistantForm) (domain.Assistant, error) {
	r.hit("create")
	return r.Repository.Create(ctx, form)
}

func (r *countingRepo) Update(ctx context.Context, id string, patch domain.AssistantPatch) (domain.AssistantPatch, error) {
	r.hit("update")
	if patch.Name != nil {
		r.wait(*patch.Name)
	}
	return r.Repository.Update(ctx, id, patch)
}

func (r *countingRepo) Delete(ctx context.Context, id string) error {
	r.hit("delete")
	r.wait("delete:" + id)
	return r.Repository.Delete(ctx, id)
}

func (r *countingRepo) SaveRules(ctx context.Context, id, rules string) error {
	r.hit("save_rules")
	return r.Repository.SaveRules(ctx, id, rules)
}

type fixture struct {
	repo  *countingRepo
	store *state.Store
	notes *notify.Center
	orch  *Orchestrator
}

func newFixture(t *testing.T, policy backend.FailurePolicy) *fixture {
	t.Helper()
	f := &fixture{
		repo:  newCountingRepo(policy),
		store: state.New(domain.SeedAssistants(), domain.ThemeLight, nil),
		notes: notify.New(time.Minute),
	}
	f.orch = New(f.repo, f.store, f.notes)
	t.Cleanup(func() {
		f.orch.Close()
		f.notes.Close()
	})
	return f
}

func wait(t *testing.T, tk *task.Task[Result]) (Result, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := tk.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded)
	return res, err
}

func botX() domain.AssistantForm {
	return domain.AssistantForm{
		Name:           "Bot X",
		Language:       domain.LanguageEnglish,
		Tone:           domain.ToneFormal,
		ResponseLength: domain.ResponseLength{Short: 40, Medium: 40, Long: 20},
		AudioEnabled:   false,
	}
}

func TestCreateAppendsToStore(t *testing.T) {
	f := newFixture(t, backend.Never)
	before := len(f.store.Assistants())

	res, err := wait(t, f.orch.Create(botX()))
	require.NoError(t, err)

	assert.Equal(t, OpCreate, res.Op)
	assert.NotEmpty(t, res.Assistant.ID)
	assert.Empty(t, res.Assistant.Rules)

	list := f.store.Assistants()
	require.Len(t, list, before+1)
	assert.Equal(t, res.Assistant, list[len(list)-1])

	n, ok := f.notes.Current()
	require.True(t, ok)
	assert.Equal(t, notify.KindSuccess, n.Kind)
}

func TestInvalidFormNeverReachesBackend(t *testing.T) {
	f := newFixture(t, backend.Never)
	before := f.store.Snapshot()

	bad := botX()
	bad.ResponseLength = domain.ResponseLength{Short: 40, Medium: 40, Long: 40}

	_, err := wait(t, f.orch.Create(bad))
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))

	_, err = wait(t, f.orch.Update("2", bad))
	assert.True(t, domain.IsValidationError(err))

	f.store.OpenModal("")
	_, err = wait(t, f.orch.Save(bad))
	assert.True(t, domain.IsValidationError(err))

	assert.Zero(t, f.repo.count("create"))
	assert.Zero(t, f.repo.count("update"))
	assert.Equal(t, before.Assistants, f.store.Assistants())
	_, shown := f.notes.Current()
	assert.False(t, shown)
}

func TestPatchMergesWithStoredRecord(t *testing.T) {
	f := newFixture(t, backend.Never)
	prev, _ := f.store.Assistant("2")
	name := "New Name"

	res, err := wait(t, f.orch.Patch("2", domain.AssistantPatch{Name: &name}))
	require.NoError(t, err)

	got, ok := f.store.Assistant("2")
	require.True(t, ok)
	assert.Equal(t, res.Assistant, got)
	assert.Equal(t, "New Name", got.Name)
	assert.Equal(t, prev.Language, got.Language)
	assert.Equal(t, prev.Tone, got.Tone)
	assert.Equal(t, prev.ResponseLength, got.ResponseLength)
	assert.Equal(t, prev.Rules, got.Rules)
}

func TestPatchValidatesMergedRecord(t *testing.T) {
	f := newFixture(t, backend.Never)
	short := "ab"

	_, err := wait(t, f.orch.Patch("2", domain.AssistantPatch{Name: &short}))
	assert.True(t, domain.IsValidationError(err))
	assert.Zero(t, f.repo.count("update"))
}

func TestUpdateUnknownAssistant(t *testing.T) {
	f := newFixture(t, backend.Never)
	_, err := wait(t, f.orch.Update("nope", botX()))
	require.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, f.repo.count("update"))
}

func TestUpdateKeepsRules(t *testing.T) {
	f := newFixture(t, backend.Never)
	prev, _ := f.store.Assistant("1")

	_, err := wait(t, f.orch.Update("1", botX()))
	require.NoError(t, err)

	got, _ := f.store.Assistant("1")
	assert.Equal(t, botX(), got.Form())
	assert.Equal(t, prev.Rules, got.Rules)
}

func TestDeleteFailureLeavesStoreUntouched(t *testing.T) {
	f := newFixture(t, backend.Always)
	before := f.store.Assistants()

	_, err := wait(t, f.orch.Delete("1"))
	require.ErrorIs(t, err, backend.ErrDeleteFailed)

	assert.Equal(t, before, f.store.Assistants())
	n, ok := f.notes.Current()
	require.True(t, ok)
	assert.Equal(t, notify.KindError, n.Kind)
	assert.Equal(t, backend.ErrDeleteFailed.Error(), n.Message)
}

func TestDeleteSuccessRemovesAssistant(t *testing.T) {
	f := newFixture(t, backend.Never)

	res, err := wait(t, f.orch.Delete("1"))
	require.NoError(t, err)
	assert.Equal(t, OpDelete, res.Op)

	_, ok := f.store.Assistant("1")
	assert.False(t, ok)
	assert.Len(t, f.store.Assistants(), 1)
}

func TestSaveRulesWritesDraftIntoStore(t *testing.T) {
	f := newFixture(t, backend.Never)

	res, err := wait(t, f.orch.SaveRules("2", "Answer in haiku."))
	require.NoError(t, err)
	assert.Equal(t, "Answer in haiku.", res.Assistant.Rules)

	got, _ := f.store.Assistant("2")
	assert.Equal(t, "Answer in haiku.", got.Rules)
	assert.Equal(t, 1, f.repo.count("save_rules"))
}

func TestSaveRulesForVanishedAssistant(t *testing.T) {
	f := newFixture(t, backend.Never)
	_, err := wait(t, f.orch.SaveRules("ghost", "x"))
	require.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, f.store.Assistants(), 2)
}

func TestSaveUsesEditingTarget(t *testing.T) {
	f := newFixture(t, backend.Never)

	f.store.OpenModal("2")
	res, err := wait(t, f.orch.Save(botX()))
	require.NoError(t, err)
	assert.Equal(t, OpUpdate, res.Op)
	assert.Equal(t, "2", res.Assistant.ID)
	assert.False(t, f.store.Snapshot().ModalOpen)
	assert.Len(t, f.store.Assistants(), 2)

	f.store.OpenModal("")
	res, err = wait(t, f.orch.Save(botX()))
	require.NoError(t, err)
	assert.Equal(t, OpCreate, res.Op)
	assert.False(t, f.store.Snapshot().ModalOpen)
	assert.Len(t, f.store.Assistants(), 3)
}

func TestRefreshReplacesList(t *testing.T) {
	f := newFixture(t, backend.Never)

	res, err := wait(t, f.orch.Refresh())
	require.NoError(t, err)
	assert.Equal(t, domain.SeedAssistants(), res.Assistants)
	assert.Equal(t, domain.SeedAssistants(), f.store.Assistants())
	assert.Equal(t, 1, f.repo.count("list"))
}

func TestResultsApplyInCompletionOrder(t *testing.T) {
	f := newFixture(t, backend.Never)

	first := botX()
	first.Name = "First"
	second := botX()
	second.Name = "Second"

	releaseFirst := f.repo.hold("First")
	releaseSecond := f.repo.hold("Second")

	t1 := f.orch.Update("2", first)
	<-f.repo.started
	t2 := f.orch.Update("2", second)
	<-f.repo.started

	releaseSecond()
	_, err := wait(t, t2)
	require.NoError(t, err)
	releaseFirst()
	_, err = wait(t, t1)
	require.NoError(t, err)

	got, _ := f.store.Assistant("2")
	assert.Equal(t, "First", got.Name, "last completion wins")
}

func TestLateCompletionAfterCloseIsNoop(t *testing.T) {
	f := newFixture(t, backend.Never)
	release := f.repo.hold("delete:1")

	tk := f.orch.Delete("1")
	<-f.repo.started
	f.orch.Close()
	release()

	_, err := wait(t, tk)
	require.ErrorIs(t, err, ErrClosed)
	_, ok := f.store.Assistant("1")
	assert.True(t, ok)
}

func TestConcurrentMutationsOnDifferentAssistants(t *testing.T) {
	f := newFixture(t, backend.Never)

	tasks := []*task.Task[Result]{
		f.orch.SaveRules("1", "one"),
		f.orch.SaveRules("2", "two"),
		f.orch.Create(botX()),
	}
	for _, tk := range tasks {
		_, err := wait(t, tk)
		require.NoError(t, err)
	}

	a1, _ := f.store.Assistant("1")
	a2, _ := f.store.Assistant("2")
	assert.Equal(t, "one", a1.Rules)
	assert.Equal(t, "two", a2.Rules)
	assert.Len(t, f.store.Assistants(), 3)
}
