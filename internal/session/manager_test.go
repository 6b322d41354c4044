package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodexForgeBR/module-loop/internal/workflow"
)

// fakeStore is an in-memory Store for manager tests. Records flagged in
// corrupt return a *CorruptError from LoadState, mimicking an
// unreadable row.
type fakeStore struct {
	states      map[string]*State
	metrics     map[string]*Metrics
	corrupt     map[string]string // id -> reason
	quarantined map[string]string
	latest      ID
	latestSet   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		states:      make(map[string]*State),
		metrics:     make(map[string]*Metrics),
		corrupt:     make(map[string]string),
		quarantined: make(map[string]string),
	}
}

func (f *fakeStore) SaveState(_ context.Context, s *State) error {
	cp := *s
	f.states[s.ID.String()] = &cp
	return nil
}

func (f *fakeStore) LoadState(_ context.Context, id ID) (*State, error) {
	if reason, ok := f.corrupt[id.String()]; ok {
		return nil, &CorruptError{ID: id, Reason: reason}
	}
	s, ok := f.states[id.String()]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) SaveMetrics(_ context.Context, m *Metrics) error {
	cp := *m
	f.metrics[m.SessionID.String()] = &cp
	return nil
}

func (f *fakeStore) LoadMetrics(_ context.Context, id ID) (*Metrics, error) {
	m, ok := f.metrics[id.String()]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeStore) List(_ context.Context) ([]ID, error) {
	var ids []ID
	for k := range f.states {
		id, err := ParseID(k)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	for k := range f.corrupt {
		id, err := ParseID(k)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	// Oldest first, matching the Store contract.
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[j].Date.Before(ids[i].Date) ||
				(ids[j].Date.Equal(ids[i].Date) && ids[j].Sequence < ids[i].Sequence) {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
	}
	return ids, nil
}

func (f *fakeStore) Delete(_ context.Context, id ID) error {
	delete(f.states, id.String())
	delete(f.metrics, id.String())
	return nil
}

func (f *fakeStore) Quarantine(_ context.Context, id ID, reason string) error {
	f.quarantined[id.String()] = reason
	delete(f.corrupt, id.String())
	delete(f.states, id.String())
	return nil
}

func (f *fakeStore) SetLatest(_ context.Context, id ID) error {
	f.latest = id
	f.latestSet = true
	return nil
}

func (f *fakeStore) Latest(_ context.Context) (ID, bool, error) {
	return f.latest, f.latestSet, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testDay = time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

func TestCreateInitialState(t *testing.T) {
	store := newFakeStore()
	mgr := NewManager(store).WithClock(fixedClock(testDay))

	st, err := mgr.Create(context.Background(), "fizzbuzz")
	require.NoError(t, err)

	assert.Equal(t, "fizzbuzz-20260830-1", st.ID.String())
	assert.Equal(t, workflow.StepDraftSpecification, st.Step)
	assert.Equal(t, workflow.PhaseRequirementGathering, st.Phase)
	assert.False(t, st.IsComplete)

	// Latest pointer follows creation.
	latest, ok, err := store.Latest(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, st.ID, latest)

	// Metrics start zeroed.
	m, err := store.LoadMetrics(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Zero(t, m.InputTokens)
	assert.Zero(t, m.Iterations)
}

func TestCreateSequencesSameDayRestarts(t *testing.T) {
	store := newFakeStore()
	mgr := NewManager(store).WithClock(fixedClock(testDay))

	first, err := mgr.Create(context.Background(), "fizzbuzz")
	require.NoError(t, err)
	second, err := mgr.Create(context.Background(), "fizzbuzz")
	require.NoError(t, err)
	other, err := mgr.Create(context.Background(), "unrelated")
	require.NoError(t, err)

	assert.Equal(t, 1, first.ID.Sequence)
	assert.Equal(t, 2, second.ID.Sequence)
	assert.Equal(t, 1, other.ID.Sequence, "sequence is per module+date")
}

func TestResolveExplicitID(t *testing.T) {
	store := newFakeStore()
	mgr := NewManager(store).WithClock(fixedClock(testDay))

	st, err := mgr.Create(context.Background(), "fizzbuzz")
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		got, created, err := mgr.Resolve(context.Background(), "fizzbuzz", st.ID.String())
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, st.ID, got.ID)
	})

	t.Run("malformed fails loudly", func(t *testing.T) {
		_, _, err := mgr.Resolve(context.Background(), "fizzbuzz", "not-valid-id")
		assert.Error(t, err)
	})

	t.Run("missing fails loudly", func(t *testing.T) {
		_, _, err := mgr.Resolve(context.Background(), "fizzbuzz", "fizzbuzz-20260830-99")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestResolveLatestIncomplete(t *testing.T) {
	store := newFakeStore()
	mgr := NewManager(store).WithClock(fixedClock(testDay))

	st, err := mgr.Create(context.Background(), "fizzbuzz")
	require.NoError(t, err)
	st.Step = workflow.StepBreakIntoTasks
	st.Phase = workflow.PhasePlanning
	require.NoError(t, store.SaveState(context.Background(), st))

	got, created, err := mgr.Resolve(context.Background(), "fizzbuzz", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, st.ID, got.ID)
	assert.Equal(t, workflow.StepBreakIntoTasks, got.Step)
}

func TestResolveSkipsCompleteLatest(t *testing.T) {
	store := newFakeStore()
	mgr := NewManager(store).WithClock(fixedClock(testDay))

	st, err := mgr.Create(context.Background(), "fizzbuzz")
	require.NoError(t, err)
	st.IsComplete = true
	require.NoError(t, store.SaveState(context.Background(), st))

	got, created, err := mgr.Resolve(context.Background(), "fizzbuzz", "")
	require.NoError(t, err)
	assert.True(t, created, "a complete session is never auto-resumed")
	assert.NotEqual(t, st.ID, got.ID)
	assert.Equal(t, 2, got.ID.Sequence)
}

func TestResolveQuarantinesCorruptLatest(t *testing.T) {
	store := newFakeStore()
	mgr := NewManager(store).WithClock(fixedClock(testDay))

	st, err := mgr.Create(context.Background(), "fizzbuzz")
	require.NoError(t, err)
	store.corrupt[st.ID.String()] = "undefined workflow step"

	got, created, err := mgr.Resolve(context.Background(), "fizzbuzz", "")
	require.NoError(t, err, "corruption must not crash the resume path")
	assert.True(t, created)
	assert.NotEqual(t, st.ID, got.ID)
	assert.Contains(t, store.quarantined, st.ID.String(), "corrupt session is preserved, not deleted")
}

func TestResolveCreatesWhenNoLatest(t *testing.T) {
	store := newFakeStore()
	mgr := NewManager(store).WithClock(fixedClock(testDay))

	got, created, err := mgr.Resolve(context.Background(), "fizzbuzz", "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, workflow.StepDraftSpecification, got.Step)
}

func TestPrune(t *testing.T) {
	store := newFakeStore()
	mgr := NewManager(store)

	mk := func(day time.Time, seq int, complete bool) ID {
		id := NewID("mod", day, seq)
		st := NewState(id, day)
		st.IsComplete = complete
		require.NoError(t, store.SaveState(context.Background(), st))
		return id
	}

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	oldest := mk(base, 1, true)
	mid := mk(base.AddDate(0, 0, 1), 1, true)
	newest := mk(base.AddDate(0, 0, 2), 1, true)
	active := mk(base.AddDate(0, 0, 3), 1, false)

	removed, err := mgr.Prune(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.LoadState(context.Background(), oldest)
	assert.ErrorIs(t, err, ErrNotFound, "oldest completed session is removed")
	for _, id := range []ID{mid, newest, active} {
		_, err := store.LoadState(context.Background(), id)
		assert.NoError(t, err, "session %s must survive pruning", id)
	}

	// Nothing left beyond the retention count.
	removed, err = mgr.Prune(context.Background(), 2)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestStateValidate(t *testing.T) {
	id := NewID("mod", testDay, 1)

	valid := NewState(id, testDay)
	assert.NoError(t, valid.Validate())

	badStep := NewState(id, testDay)
	badStep.Step = workflow.Step(99)
	assert.Error(t, badStep.Validate())

	badPhase := NewState(id, testDay)
	badPhase.Phase = workflow.Phase("deploying")
	assert.Error(t, badPhase.Validate())

	mismatched := NewState(id, testDay)
	mismatched.Module = "other"
	assert.Error(t, mismatched.Validate())
}
