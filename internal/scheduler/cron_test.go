package scheduler

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/watchduo/internal/models"
	"github.com/amaumene/watchduo/internal/utils"
)

type fakeReloader struct {
	calls int
	err   error
}

func (f *fakeReloader) Reload() error {
	f.calls++
	return f.err
}

type fakeBacklog struct {
	items []*models.MediaItem
	err   error
}

func (f *fakeBacklog) GetUnenrichedItems() ([]*models.MediaItem, error) {
	return f.items, f.err
}

type fakeEnricher struct {
	mu       sync.Mutex
	inFlight map[string]bool
	enqueued []string
}

func (f *fakeEnricher) Enqueue(item *models.MediaItem) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight[item.ID] {
		return false
	}
	f.enqueued = append(f.enqueued, item.ID)
	return true
}

func (f *fakeEnricher) InFlight(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight[id]
}

func TestEnrichSweepSkipsInFlightItems(t *testing.T) {
	backlog := &fakeBacklog{items: []*models.MediaItem{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	enricher := &fakeEnricher{inFlight: map[string]bool{"b": true}}
	s := NewScheduler(&fakeReloader{}, backlog, enricher, "@every 1h", "@every 1h", utils.NewDiscardLogger())

	assert.Equal(t, 2, s.RunEnrichSweep())
	assert.Equal(t, []string{"a", "c"}, enricher.enqueued)
}

func TestEnrichSweepBacklogError(t *testing.T) {
	enricher := &fakeEnricher{}
	s := NewScheduler(&fakeReloader{}, &fakeBacklog{err: errors.New("closed")}, enricher, "@every 1h", "@every 1h", utils.NewDiscardLogger())

	assert.Equal(t, 0, s.RunEnrichSweep())
	assert.Empty(t, enricher.enqueued)
}

func TestEnrichSweepWithoutEnricher(t *testing.T) {
	s := NewScheduler(&fakeReloader{}, &fakeBacklog{items: []*models.MediaItem{{ID: "a"}}}, nil, "@every 1h", "@every 1h", utils.NewDiscardLogger())
	assert.Equal(t, 0, s.RunEnrichSweep())
	require.NoError(t, s.Start())
	s.Stop()
}

func TestReconcileCallsReload(t *testing.T) {
	reloader := &fakeReloader{err: errors.New("db closed")}
	s := NewScheduler(reloader, &fakeBacklog{}, nil, "@every 1h", "@every 1h", utils.NewDiscardLogger())
	s.runReconcile()
	assert.Equal(t, 1, reloader.calls)
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	s := NewScheduler(&fakeReloader{}, &fakeBacklog{}, nil, "not a schedule", "@every 1h", utils.NewDiscardLogger())
	assert.Error(t, s.Start())
}
