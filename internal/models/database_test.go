package models

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndListOrdersByAddedAt(t *testing.T) {
	db := newTestDatabase(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	older := &MediaItem{Type: MediaTypeMovie, Title: "Alien", Year: "1979", AddedAt: base}
	newer := &MediaItem{Type: MediaTypeMovie, Title: "Dune", Year: "2021", AddedAt: base.Add(time.Hour)}
	require.NoError(t, db.CreateItem(older))
	require.NoError(t, db.CreateItem(newer))

	assert.NotEmpty(t, older.ID)
	assert.NotEqual(t, older.ID, newer.ID)

	items, err := db.ListItems()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Dune", items[0].Title)
	assert.Equal(t, "Alien", items[1].Title)
}

func TestUpdateItemOnlyTouchesNamedFields(t *testing.T) {
	db := newTestDatabase(t)
	item := &MediaItem{
		Type:        MediaTypeMovie,
		Title:       "Dune",
		Year:        "2021",
		Description: "Original",
		UserStatus:  map[string]WatchInfo{"ana": {Watched: true}},
	}
	require.NoError(t, db.CreateItem(item))

	updated, err := db.UpdateItem(item.ID, ItemPatch{TrailerURL: Ptr("https://www.youtube.com/watch?v=abcdefghijk")})
	require.NoError(t, err)

	assert.Equal(t, "Dune", updated.Title)
	assert.Equal(t, "Original", updated.Description)
	assert.Equal(t, "https://www.youtube.com/watch?v=abcdefghijk", updated.TrailerURL)
	assert.True(t, updated.UserStatus["ana"].Watched)
}

func TestUpdateItemMergesUserStatusPerUser(t *testing.T) {
	db := newTestDatabase(t)
	item := &MediaItem{
		Type:       MediaTypeSeries,
		Title:      "Dark",
		Year:       "2017",
		UserStatus: map[string]WatchInfo{"ana": {WatchedEpisodes: []string{"S1_E1"}}},
	}
	require.NoError(t, db.CreateItem(item))

	_, err := db.UpdateItem(item.ID, ItemPatch{UserStatus: map[string]WatchInfo{
		"luis": {WatchedEpisodes: []string{"S1_E2"}},
	}})
	require.NoError(t, err)

	stored, err := db.GetItemByID(item.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1_E1"}, stored.UserStatus["ana"].WatchedEpisodes)
	assert.Equal(t, []string{"S1_E2"}, stored.UserStatus["luis"].WatchedEpisodes)
}

func TestUpdateMissingItem(t *testing.T) {
	db := newTestDatabase(t)
	_, err := db.UpdateItem("missing", ItemPatch{Title: Ptr("x")})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestFindByTitleYearAndDelete(t *testing.T) {
	db := newTestDatabase(t)
	item := &MediaItem{Type: MediaTypeMovie, Title: "Dune", Year: "2021"}
	require.NoError(t, db.CreateItem(item))

	found, err := db.FindByTitleYear("Dune", "2021")
	require.NoError(t, err)
	assert.Equal(t, item.ID, found.ID)

	_, err = db.FindByTitleYear("Dune", "1984")
	assert.True(t, IsNotFound(err))

	require.NoError(t, db.DeleteItem(item.ID))
	_, err = db.GetItemByID(item.ID)
	assert.True(t, IsNotFound(err))
}

func TestGetUnenrichedItems(t *testing.T) {
	db := newTestDatabase(t)
	require.NoError(t, db.CreateItem(&MediaItem{Type: MediaTypeMovie, Title: "A", IsEnriched: true}))
	require.NoError(t, db.CreateItem(&MediaItem{Type: MediaTypeMovie, Title: "B"}))

	items, err := db.GetUnenrichedItems()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "B", items[0].Title)
}

func TestSubscribeReceivesChanges(t *testing.T) {
	db := newTestDatabase(t)
	changes, cancel := db.Subscribe()
	defer cancel()

	item := &MediaItem{Type: MediaTypeMovie, Title: "Dune", Year: "2021"}
	require.NoError(t, db.CreateItem(item))
	_, err := db.UpdateItem(item.ID, ItemPatch{IsEnriched: Ptr(true)})
	require.NoError(t, err)
	require.NoError(t, db.DeleteItem(item.ID))

	var got []ChangeType
	for i := 0; i < 3; i++ {
		select {
		case change := <-changes:
			assert.Equal(t, item.ID, change.ItemID)
			got = append(got, change.Type)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for change")
		}
	}
	assert.Equal(t, []ChangeType{ChangeInsert, ChangeUpdate, ChangeDelete}, got)
}

func TestBrokerCancelClosesChannel(t *testing.T) {
	broker := NewBroker()
	ch, cancel := broker.Subscribe(1)
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	broker.Publish(Change{Type: ChangeInsert, ItemID: "x"})
}

func TestRatingVariant(t *testing.T) {
	var zero Rating
	assert.Equal(t, Unrated(), zero)
	assert.Equal(t, 0, zero.Code())

	rated, err := Scored(ScoreGreat)
	require.NoError(t, err)
	assert.Equal(t, "great", rated.Label())

	_, err = Scored(5)
	assert.Error(t, err)

	discarded, err := RatingFromCode(9)
	require.NoError(t, err)
	assert.True(t, discarded.IsDiscarded())

	encoded, err := json.Marshal(struct {
		Rating Rating `json:"rating"`
	}{Rating: discarded})
	require.NoError(t, err)
	assert.JSONEq(t, `{"rating":9}`, string(encoded))

	var decoded struct {
		Rating Rating `json:"rating"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"rating":4}`), &decoded))
	assert.Equal(t, ScoreMasterpiece, decoded.Rating.Score)
	assert.Error(t, json.Unmarshal([]byte(`{"rating":7}`), &decoded))
}

func TestUniquePlatformsAndClone(t *testing.T) {
	assert.Equal(t, []string{"Netflix", "Max"}, UniquePlatforms([]string{"Netflix", "", "Max", "Netflix"}))

	item := &MediaItem{
		Platforms:  []string{"Netflix"},
		UserStatus: map[string]WatchInfo{"ana": {WatchedEpisodes: []string{"S1_E1"}}},
	}
	clone := item.Clone()
	clone.Platforms[0] = "Max"
	info := clone.UserStatus["ana"]
	info.WatchedEpisodes[0] = "S9_E9"

	assert.Equal(t, "Netflix", item.Platforms[0])
	assert.Equal(t, "S1_E1", item.UserStatus["ana"].WatchedEpisodes[0])
}
