package calendar

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Abbo0dio/taqweem/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2024, 1, 20, 13, 0, 0, 0, time.Local)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s := NewStore(zap.NewNop().Sugar(), nil, nil)
	s.now = func() time.Time { return testNow }

	return s
}

type fakeNotifier struct {
	added   []*model.Event
	updated []*model.Event
	deleted []*model.Event
}

func (f *fakeNotifier) EventAdded(e *model.Event)   { f.added = append(f.added, e) }
func (f *fakeNotifier) EventUpdated(e *model.Event) { f.updated = append(f.updated, e) }
func (f *fakeNotifier) EventDeleted(e *model.Event) { f.deleted = append(f.deleted, e) }

type fakePersister struct {
	scheduled int
}

func (f *fakePersister) Schedule() { f.scheduled++ }

// checkIndex verifies that every event is reachable from the date index
// under exactly its current date, with no orphaned or duplicate entries.
func checkIndex(t *testing.T, s *Store) {
	t.Helper()

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]struct{}{}
	for date, bucket := range s.index {
		require.NotEmpty(t, bucket, "empty bucket left behind for %s", date)
		for _, id := range bucket {
			e, ok := s.events[id]
			require.True(t, ok, "index references missing event %s", id)
			require.Equal(t, date, e.Date, "event %s indexed under wrong date", id)

			_, dup := seen[id]
			require.False(t, dup, "event %s indexed more than once", id)
			seen[id] = struct{}{}
		}
	}

	require.Len(t, seen, len(s.events), "every stored event must be indexed")
	require.Len(t, s.order, len(s.events), "insertion order must track the primary store")
}

func TestStore_CreateAndGet(t *testing.T) {
	s := newTestStore(t)

	created, err := s.Create(&model.EventCreate{
		Title: "Sync",
		Date:  "2024-01-20",
		Time:  "14:00",
		Type:  "meeting",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, testNow, created.CreatedAt)
	assert.Nil(t, created.UpdatedAt)
	assert.Equal(t, model.DefaultSchedule(), created.Notifications)

	got, err := s.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	checkIndex(t, s)
}

func TestStore_Create_KeepsProvidedSchedule(t *testing.T) {
	s := newTestStore(t)

	created, err := s.Create(&model.EventCreate{
		Title:         "Release",
		Date:          "2024-02-01",
		Type:          "deadline",
		Notifications: model.Schedule{"email": {60, 1440}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.Schedule{"email": {60, 1440}}, created.Notifications)
}

func TestStore_Create_Validation(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name  string
		info  model.EventCreate
		field string
	}{
		{"missing title", model.EventCreate{Date: "2024-01-20", Type: "meeting"}, "title"},
		{"missing date", model.EventCreate{Title: "x", Type: "meeting"}, "date"},
		{"missing type", model.EventCreate{Title: "x", Date: "2024-01-20"}, "type"},
		{"bad date", model.EventCreate{Title: "x", Date: "20.01.2024", Type: "meeting"}, "date"},
		{"bad time", model.EventCreate{Title: "x", Date: "2024-01-20", Time: "2pm", Type: "meeting"}, "time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(&tt.info)

			var validationErr *model.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Contains(t, validationErr.Fields, tt.field)
		})
	}

	page, err := s.List(model.EventsFilter{})
	require.NoError(t, err)
	assert.Zero(t, page.Total, "failed creates must not leave events behind")
}

func TestStore_Update_PartialMerge(t *testing.T) {
	s := newTestStore(t)

	created, err := s.Create(&model.EventCreate{
		Title:       "Sync",
		Date:        "2024-01-20",
		Time:        "14:00",
		Type:        "meeting",
		Description: "weekly",
	})
	require.NoError(t, err)

	title := "Sync v2"
	updated, err := s.Update(created.ID, &model.EventUpdate{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Sync v2", updated.Title)
	assert.Equal(t, "2024-01-20", updated.Date)
	assert.Equal(t, "14:00", updated.Time)
	assert.Equal(t, "weekly", updated.Description)
	require.NotNil(t, updated.UpdatedAt)
	assert.Equal(t, testNow, *updated.UpdatedAt)

	checkIndex(t, s)
}

func TestStore_Update_NotFound(t *testing.T) {
	s := newTestStore(t)

	title := "x"
	_, err := s.Update("missing", &model.EventUpdate{Title: &title})
	assert.ErrorIs(t, err, model.ErrNoRecord)
}

func TestStore_Update_DateMovesIndexBucket(t *testing.T) {
	s := newTestStore(t)

	created, err := s.Create(&model.EventCreate{Title: "x", Date: "2024-01-20", Type: "meeting"})
	require.NoError(t, err)

	date := "2024-01-25"
	_, err = s.Update(created.ID, &model.EventUpdate{Date: &date})
	require.NoError(t, err)

	s.mu.RLock()
	assert.NotContains(t, s.index, "2024-01-20")
	assert.Equal(t, []string{created.ID}, s.index["2024-01-25"])
	s.mu.RUnlock()

	// repeating the same date update must be idempotent for index membership
	_, err = s.Update(created.ID, &model.EventUpdate{Date: &date})
	require.NoError(t, err)

	s.mu.RLock()
	assert.Equal(t, []string{created.ID}, s.index["2024-01-25"])
	s.mu.RUnlock()

	checkIndex(t, s)
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t)

	created, err := s.Create(&model.EventCreate{Title: "x", Date: "2024-01-20", Type: "meeting"})
	require.NoError(t, err)

	assert.True(t, s.Delete(created.ID))
	checkIndex(t, s)

	_, err = s.Get(created.ID)
	assert.ErrorIs(t, err, model.ErrNoRecord)

	page, err := s.List(model.EventsFilter{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	assert.False(t, s.Delete(created.ID), "second delete fails silently")
}

func TestStore_IndexInvariantAcrossMutations(t *testing.T) {
	s := newTestStore(t)

	a, err := s.Create(&model.EventCreate{Title: "a", Date: "2024-01-20", Type: "meeting"})
	require.NoError(t, err)
	checkIndex(t, s)

	b, err := s.Create(&model.EventCreate{Title: "b", Date: "2024-01-20", Type: "meeting"})
	require.NoError(t, err)
	checkIndex(t, s)

	date := "2024-01-21"
	_, err = s.Update(a.ID, &model.EventUpdate{Date: &date})
	require.NoError(t, err)
	checkIndex(t, s)

	require.True(t, s.Delete(b.ID))
	checkIndex(t, s)

	_, err = s.Create(&model.EventCreate{Title: "c", Date: "2024-01-21", Type: "meeting"})
	require.NoError(t, err)
	checkIndex(t, s)
}

func TestStore_NotifiesAndSchedulesFlush(t *testing.T) {
	notifier := &fakeNotifier{}
	persister := &fakePersister{}

	s := NewStore(zap.NewNop().Sugar(), notifier, persister)
	s.now = func() time.Time { return testNow }

	created, err := s.Create(&model.EventCreate{Title: "x", Date: "2024-01-20", Type: "meeting"})
	require.NoError(t, err)

	title := "y"
	_, err = s.Update(created.ID, &model.EventUpdate{Title: &title})
	require.NoError(t, err)

	require.True(t, s.Delete(created.ID))

	require.Len(t, notifier.added, 1)
	require.Len(t, notifier.updated, 1)
	require.Len(t, notifier.deleted, 1)
	assert.Equal(t, created.ID, notifier.added[0].ID)
	assert.Equal(t, "y", notifier.updated[0].Title)
	assert.Equal(t, 3, persister.scheduled, "every mutation schedules a flush")

	// the notifier got copies, not aliases into the store
	notifier.added[0].Title = "mutated"
	_, err = s.Get(created.ID)
	assert.ErrorIs(t, err, model.ErrNoRecord)
}

// readingNotifier reads every field of the events it receives, so any alias
// into store-owned memory shows up under the race detector.
type readingNotifier struct {
	mu       sync.Mutex
	observed []string
}

func (n *readingNotifier) observe(e *model.Event) {
	title := e.Title
	date := e.Date
	_ = e.Notifications.Clone()

	n.mu.Lock()
	n.observed = append(n.observed, title+"@"+date)
	n.mu.Unlock()
}

func (n *readingNotifier) EventAdded(e *model.Event)   { n.observe(e) }
func (n *readingNotifier) EventUpdated(e *model.Event) { n.observe(e) }
func (n *readingNotifier) EventDeleted(e *model.Event) { n.observe(e) }

func TestStore_ConcurrentMutationsKeepInvariant(t *testing.T) {
	notifier := &readingNotifier{}
	s := NewStore(zap.NewNop().Sugar(), notifier, &fakePersister{})
	s.now = func() time.Time { return testNow }

	const n = 50
	ids := make(chan string, n)

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		defer close(ids)
		for i := 0; i < n; i++ {
			event, err := s.Create(&model.EventCreate{
				Title: fmt.Sprintf("event %d", i),
				Date:  fmt.Sprintf("2024-01-%02d", 1+i%28),
				Time:  "14:00",
				Type:  "meeting",
			})
			if assert.NoError(t, err) {
				ids <- event.ID
			}
		}
	}()

	go func() {
		defer wg.Done()
		i := 0
		for id := range ids {
			title := fmt.Sprintf("renamed %d", i)
			date := fmt.Sprintf("2024-02-%02d", 1+i%28)
			if _, err := s.Update(id, &model.EventUpdate{Title: &title, Date: &date}); err != nil {
				assert.ErrorIs(t, err, model.ErrNoRecord)
			}
			if i%3 == 0 {
				s.Delete(id)
			}
			i++
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			_, err := s.List(model.EventsFilter{})
			assert.NoError(t, err)
			s.Today()
			s.Upcoming(3)
			_, _ = s.Snapshot()
		}
	}()

	wg.Wait()

	checkIndex(t, s)
}

func TestStore_SnapshotLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Create(&model.EventCreate{Title: "a", Date: "2024-01-20", Time: "09:00", Type: "meeting"})
	require.NoError(t, err)
	_, err = s.Create(&model.EventCreate{Title: "b", Date: "2024-01-22", Type: "deadline", Location: "office"})
	require.NoError(t, err)

	events, modified := s.Snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, testNow, modified)

	restored := newTestStore(t)
	restored.Load(events, modified)

	reloaded, reloadedModified := restored.Snapshot()
	assert.Equal(t, events, reloaded)
	assert.Equal(t, modified, reloadedModified)
	checkIndex(t, restored)
}
