package collection

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/watchduo/internal/models"
	"github.com/amaumene/watchduo/internal/watchstatus"
)

func newClassifier(users ...string) *Classifier {
	return NewClassifier(watchstatus.NewModel(users))
}

func tenEpisodeSeries() *models.MediaItem {
	return &models.MediaItem{
		Type:       models.MediaTypeSeries,
		Title:      "Dark",
		Seasons:    []models.Season{{SeasonNumber: 1, EpisodeCount: 10}},
		UserStatus: map[string]models.WatchInfo{},
	}
}

func watchEpisodes(item *models.MediaItem, user string, n int) {
	info := item.UserStatus[user]
	for e := 1; e <= n; e++ {
		info = watchstatus.ToggleEpisode(info, 1, e)
	}
	item.UserStatus[user] = info
}

func TestDiscardedOverridesEverything(t *testing.T) {
	c := newClassifier("ana", "luis")
	item := tenEpisodeSeries()
	watchEpisodes(item, "ana", 10)
	watchEpisodes(item, "luis", 10)
	item.Rating = models.Discarded()

	assert.Equal(t, TabDiscarded, c.Classify(item))

	views := c.Partition([]*models.MediaItem{item}, Filter{})
	assert.Len(t, views[TabDiscarded], 1)
	assert.Empty(t, views[TabFinished])
	assert.Empty(t, views[TabPending])
	assert.Empty(t, views[TabInProgress])
}

func TestTwoUserSeriesScenario(t *testing.T) {
	c := newClassifier("ana", "luis")
	item := tenEpisodeSeries()

	assert.Equal(t, TabPending, c.Classify(item))

	watchEpisodes(item, "ana", 10)
	assert.Equal(t, TabInProgress, c.Classify(item))

	watchEpisodes(item, "luis", 10)
	assert.Equal(t, TabFinished, c.Classify(item))
}

func TestSeriesWithoutSeasonsIsNeverFinished(t *testing.T) {
	c := newClassifier("ana")
	item := &models.MediaItem{Type: models.MediaTypeSeries, UserStatus: map[string]models.WatchInfo{
		"ana": {WatchedEpisodes: []string{"S1_E1", "S1_E2"}},
	}}
	assert.Equal(t, TabInProgress, c.Classify(item))
}

func TestClassificationIsExhaustiveAndExclusive(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, userCount := range []int{1, 2, 5} {
		users := make([]string, userCount)
		for i := range users {
			users[i] = fmt.Sprintf("user%d", i)
		}
		c := newClassifier(users...)

		for i := 0; i < 500; i++ {
			item := randomItem(rng, users)
			tab := c.Classify(item)

			matched := 0
			for _, candidate := range Tabs {
				if holds(c, item, candidate, userCount) {
					matched++
					assert.Equal(t, candidate, tab)
				}
			}
			require.Equal(t, 1, matched, "item %d for %d users matched %d tabs", i, userCount, matched)
		}
	}
}

// holds evaluates each tab predicate independently of Classify's ordering
func holds(c *Classifier, item *models.MediaItem, tab Tab, userCount int) bool {
	summary := c.model.Summarize(item)
	discarded := item.Rating.IsDiscarded()
	switch tab {
	case TabDiscarded:
		return discarded
	case TabPending:
		return !discarded && summary.StartedCount == 0
	case TabFinished:
		return !discarded && summary.StartedCount > 0 && summary.FinishedCount == userCount
	case TabInProgress:
		return !discarded && summary.StartedCount > 0 && summary.FinishedCount < userCount
	}
	return false
}

func randomItem(rng *rand.Rand, users []string) *models.MediaItem {
	item := &models.MediaItem{UserStatus: map[string]models.WatchInfo{}}
	if rng.Intn(2) == 0 {
		item.Type = models.MediaTypeMovie
	} else {
		item.Type = models.MediaTypeSeries
		for s := 1; s <= rng.Intn(3); s++ {
			item.Seasons = append(item.Seasons, models.Season{SeasonNumber: s, EpisodeCount: rng.Intn(4)})
		}
	}
	switch rng.Intn(4) {
	case 0:
		item.Rating = models.Discarded()
	case 1:
		item.Rating, _ = models.Scored(rng.Intn(4) + 1)
	}
	for _, user := range append(users, "stranger") {
		info := models.WatchInfo{Watched: rng.Intn(2) == 0}
		for e := 0; e < rng.Intn(6); e++ {
			info = watchstatus.ToggleEpisode(info, 1+rng.Intn(2), 1+rng.Intn(4))
		}
		item.UserStatus[user] = info
	}
	return item
}

func TestUserFilter(t *testing.T) {
	c := newClassifier("ana", "luis")

	anaOnly := tenEpisodeSeries()
	watchEpisodes(anaOnly, "ana", 3)

	untouched := tenEpisodeSeries()

	items := []*models.MediaItem{anaOnly, untouched}

	assert.Len(t, c.View(items, TabInProgress, Filter{User: "ana"}), 1)
	assert.Empty(t, c.View(items, TabInProgress, Filter{User: "luis"}))
	// no-op on pending
	assert.Len(t, c.View(items, TabPending, Filter{User: "luis"}), 1)
}

func TestTypeFilterAndOrdering(t *testing.T) {
	c := newClassifier("ana")
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	oldMovie := &models.MediaItem{Type: models.MediaTypeMovie, Title: "Old", AddedAt: base}
	newMovie := &models.MediaItem{Type: models.MediaTypeMovie, Title: "New", AddedAt: base.Add(24 * time.Hour)}
	show := &models.MediaItem{Type: models.MediaTypeSeries, Title: "Show", AddedAt: base.Add(48 * time.Hour)}

	view := c.View([]*models.MediaItem{oldMovie, show, newMovie}, TabPending, Filter{Type: models.MediaTypeMovie})
	require.Len(t, view, 2)
	assert.Equal(t, "New", view[0].Title)
	assert.Equal(t, "Old", view[1].Title)
}

func TestCount(t *testing.T) {
	c := newClassifier("ana", "luis")

	finished := &models.MediaItem{Type: models.MediaTypeMovie, UserStatus: map[string]models.WatchInfo{
		"ana": {Watched: true}, "luis": {Watched: true},
	}}
	inProgress := &models.MediaItem{Type: models.MediaTypeMovie, UserStatus: map[string]models.WatchInfo{
		"ana": {Watched: true},
	}}
	pending := &models.MediaItem{Type: models.MediaTypeMovie}
	discarded := &models.MediaItem{Type: models.MediaTypeMovie, Rating: models.Discarded()}

	counts := c.Count([]*models.MediaItem{finished, inProgress, pending, discarded}, Filter{})
	assert.Equal(t, Counts{TabPending: 1, TabInProgress: 1, TabFinished: 1, TabDiscarded: 1}, counts)
}

func TestCollectionFor(t *testing.T) {
	c := newClassifier("ana", "luis")
	item := &models.MediaItem{Type: models.MediaTypeMovie}
	assert.Equal(t, models.CollectionWatchlist, c.CollectionFor(item))

	item.UserStatus = map[string]models.WatchInfo{"luis": {Watched: true}}
	assert.Equal(t, models.CollectionWatched, c.CollectionFor(item))
}

func TestParseTab(t *testing.T) {
	tab, err := ParseTab("inprogress")
	require.NoError(t, err)
	assert.Equal(t, TabInProgress, tab)

	_, err = ParseTab("archived")
	assert.Error(t, err)
}
