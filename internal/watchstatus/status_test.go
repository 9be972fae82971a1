package watchstatus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/watchduo/internal/models"
)

func series(seasons ...models.Season) *models.MediaItem {
	return &models.MediaItem{Type: models.MediaTypeSeries, Title: "Dark", Seasons: seasons, UserStatus: map[string]models.WatchInfo{}}
}

func episodes(season, from, to int) []string {
	var keys []string
	for e := from; e <= to; e++ {
		keys = append(keys, EpisodeKey(season, e))
	}
	return keys
}

func TestEpisodeKeyRoundTrip(t *testing.T) {
	assert.Equal(t, "S2_E10", EpisodeKey(2, 10))

	season, episode, err := ParseEpisodeKey("S2_E10")
	require.NoError(t, err)
	assert.Equal(t, 2, season)
	assert.Equal(t, 10, episode)

	for _, bad := range []string{"", "S1E1", "X1_E1", "S1_Ex"} {
		_, _, err := ParseEpisodeKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestMovieProgressIsBinary(t *testing.T) {
	item := &models.MediaItem{Type: models.MediaTypeMovie, UserStatus: map[string]models.WatchInfo{"ana": {Watched: true}}}

	ana := Progress(item, "ana")
	assert.True(t, ana.Started)
	assert.True(t, ana.Finished)
	assert.Equal(t, 100, ana.Percent)

	luis := Progress(item, "luis")
	assert.False(t, luis.Started)
	assert.False(t, luis.Finished)
	assert.Equal(t, 0, luis.Percent)
}

func TestSeriesWithoutSeasonsNeverFinishes(t *testing.T) {
	item := series()
	item.UserStatus["ana"] = models.WatchInfo{WatchedEpisodes: episodes(1, 1, 50)}

	summary := NewModel([]string{"ana", "luis"}).Summarize(item)
	assert.Equal(t, 0, summary.FinishedCount)
	assert.Equal(t, 1, summary.StartedCount)

	ana, ok := summary.ForUser("ana")
	require.True(t, ok)
	assert.Equal(t, 0, ana.Percent)
}

func TestSeriesProgressPercent(t *testing.T) {
	item := series(models.Season{SeasonNumber: 1, EpisodeCount: 10}, models.Season{SeasonNumber: 2, EpisodeCount: 10})
	item.UserStatus["ana"] = models.WatchInfo{WatchedEpisodes: episodes(1, 1, 5)}

	progress := Progress(item, "ana")
	assert.Equal(t, 20, progress.Total)
	assert.Equal(t, 5, progress.Watched)
	assert.Equal(t, 25, progress.Percent)
	assert.True(t, progress.Started)
	assert.False(t, progress.Finished)
}

func TestSummarizeIgnoresUnknownUsers(t *testing.T) {
	item := &models.MediaItem{Type: models.MediaTypeMovie, UserStatus: map[string]models.WatchInfo{
		"ana":   {Watched: true},
		"ghost": {Watched: true},
	}}

	summary := NewModel([]string{"ana", "luis"}).Summarize(item)
	assert.Equal(t, 1, summary.StartedCount)
	assert.Equal(t, 1, summary.FinishedCount)
	assert.Equal(t, 2, summary.UserCount)
	_, ok := summary.ForUser("ghost")
	assert.False(t, ok)
}

func TestToggleEpisodeTwiceIsNoOp(t *testing.T) {
	originals := []models.WatchInfo{
		{},
		{WatchedEpisodes: []string{"S1_E1", "S1_E3"}},
		{WatchedEpisodes: []string{"S1_E2"}},
	}
	for _, original := range originals {
		once := ToggleEpisode(original, 1, 2)
		twice := ToggleEpisode(once, 1, 2)
		assert.ElementsMatch(t, original.WatchedEpisodes, twice.WatchedEpisodes)
		assert.NotEqual(t, len(original.WatchedEpisodes), len(once.WatchedEpisodes))
	}
}

func TestToggleEpisodeToleratesStaleStructure(t *testing.T) {
	info := ToggleEpisode(models.WatchInfo{}, 7, 99)
	assert.Equal(t, []string{"S7_E99"}, info.WatchedEpisodes)
}

func TestToggleSeasonCollapsesWhenComplete(t *testing.T) {
	season1 := models.Season{SeasonNumber: 1, EpisodeCount: 3}
	info := models.WatchInfo{WatchedEpisodes: append(episodes(1, 1, 3), "S2_E1")}

	result := ToggleSeason(info, season1)
	assert.Equal(t, []string{"S2_E1"}, result.WatchedEpisodes)
}

func TestToggleSeasonUnionsWhenPartial(t *testing.T) {
	season1 := models.Season{SeasonNumber: 1, EpisodeCount: 3}
	info := models.WatchInfo{WatchedEpisodes: []string{"S1_E2", "S2_E4"}}

	result := ToggleSeason(info, season1)
	assert.ElementsMatch(t, []string{"S1_E1", "S1_E2", "S1_E3", "S2_E4"}, result.WatchedEpisodes)

	none := ToggleSeason(models.WatchInfo{}, season1)
	assert.Equal(t, []string{"S1_E1", "S1_E2", "S1_E3"}, none.WatchedEpisodes)
}

func TestToggleSeasonDoesNotMutateInput(t *testing.T) {
	info := models.WatchInfo{WatchedEpisodes: []string{"S1_E1"}}
	_ = ToggleSeason(info, models.Season{SeasonNumber: 1, EpisodeCount: 2})
	assert.Equal(t, []string{"S1_E1"}, info.WatchedEpisodes)
}

func TestToggleMovie(t *testing.T) {
	at := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)

	watched := ToggleMovie(models.WatchInfo{}, at)
	assert.True(t, watched.Watched)
	require.NotNil(t, watched.Date)
	assert.Equal(t, at, *watched.Date)

	unwatched := ToggleMovie(watched, at)
	assert.False(t, unwatched.Watched)
	assert.Nil(t, unwatched.Date)
}

func TestMarkAllWatched(t *testing.T) {
	at := time.Now()
	item := series(models.Season{SeasonNumber: 1, EpisodeCount: 2}, models.Season{SeasonNumber: 2, EpisodeCount: 1})

	info := MarkAllWatched(item, models.WatchInfo{WatchedEpisodes: []string{"S1_E1"}}, at)
	assert.Equal(t, []string{"S1_E1", "S1_E2", "S2_E1"}, info.WatchedEpisodes)
	assert.NotNil(t, info.Date)

	movie := &models.MediaItem{Type: models.MediaTypeMovie}
	assert.True(t, MarkAllWatched(movie, models.WatchInfo{}, at).Watched)
}
