// Package watchstatus aggregates per-user watch records into started/finished
// state and implements the episode and season toggles.
package watchstatus

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/amaumene/watchduo/internal/models"
)

// EpisodeKey builds the composite key "S<season>_E<episode>"
func EpisodeKey(season, episode int) string {
	return fmt.Sprintf("S%d_E%d", season, episode)
}

// ParseEpisodeKey splits a key built by EpisodeKey
func ParseEpisodeKey(key string) (season, episode int, err error) {
	seasonPart, episodePart, ok := strings.Cut(key, "_")
	if !ok || !strings.HasPrefix(seasonPart, "S") || !strings.HasPrefix(episodePart, "E") {
		return 0, 0, fmt.Errorf("malformed episode key %q", key)
	}
	if season, err = strconv.Atoi(seasonPart[1:]); err != nil {
		return 0, 0, fmt.Errorf("malformed season in %q: %w", key, err)
	}
	if episode, err = strconv.Atoi(episodePart[1:]); err != nil {
		return 0, 0, fmt.Errorf("malformed episode in %q: %w", key, err)
	}
	return season, episode, nil
}

// TotalEpisodes sums episodeCount over the seasons, 0 when unknown
func TotalEpisodes(seasons []models.Season) int {
	total := 0
	for _, season := range seasons {
		if season.EpisodeCount > 0 {
			total += season.EpisodeCount
		}
	}
	return total
}

// SeasonKeys returns every episode key of one season
func SeasonKeys(season models.Season) []string {
	keys := make([]string, 0, season.EpisodeCount)
	for episode := 1; episode <= season.EpisodeCount; episode++ {
		keys = append(keys, EpisodeKey(season.SeasonNumber, episode))
	}
	return keys
}

// AllKeys returns every episode key derived from the seasons
func AllKeys(seasons []models.Season) []string {
	var keys []string
	for _, season := range seasons {
		keys = append(keys, SeasonKeys(season)...)
	}
	return keys
}

// UserProgress is one user's aggregated state on one item
type UserProgress struct {
	User     string `json:"user"`
	Started  bool   `json:"started"`
	Finished bool   `json:"finished"`
	Watched  int    `json:"watched"` // episodes for series, 0/1 for movies
	Total    int    `json:"total"`   // episodes for series (0 when unknown), 1 for movies
	Percent  int    `json:"percent"`
}

// Summary aggregates progress over the configured user set
type Summary struct {
	Users         []UserProgress `json:"users"`
	StartedCount  int            `json:"startedCount"`
	FinishedCount int            `json:"finishedCount"`
	UserCount     int            `json:"userCount"`
}

// ForUser returns the progress entry of one user
func (s Summary) ForUser(user string) (UserProgress, bool) {
	for _, progress := range s.Users {
		if progress.User == user {
			return progress, true
		}
	}
	return UserProgress{}, false
}

// Progress computes started/finished for one user
func Progress(item *models.MediaItem, user string) UserProgress {
	info := item.StatusFor(user)
	progress := UserProgress{User: user}

	if item.Type == models.MediaTypeMovie {
		progress.Started = info.Watched
		progress.Finished = info.Watched
		progress.Total = 1
		if info.Watched {
			progress.Watched = 1
			progress.Percent = 100
		}
		return progress
	}

	total := TotalEpisodes(item.Seasons)
	watched := len(info.WatchedEpisodes)
	progress.Total = total
	progress.Watched = watched
	progress.Started = watched > 0
	// Unknown structure (total 0) can never count as finished
	progress.Finished = total > 0 && watched >= total
	if total > 0 {
		progress.Percent = watched * 100 / total
		if progress.Percent > 100 {
			progress.Percent = 100
		}
	}
	return progress
}

// Model aggregates watch state for a fixed, injected user set.
// userStatus keys outside that set are ignored.
type Model struct {
	users []string
}

// NewModel creates a model over the given users
func NewModel(users []string) *Model {
	return &Model{users: append([]string(nil), users...)}
}

// Users returns the configured user set
func (m *Model) Users() []string {
	return append([]string(nil), m.users...)
}

// IsUser reports whether name belongs to the configured user set
func (m *Model) IsUser(name string) bool {
	for _, user := range m.users {
		if user == name {
			return true
		}
	}
	return false
}

// Summarize computes per-user progress and the started/finished counts
func (m *Model) Summarize(item *models.MediaItem) Summary {
	summary := Summary{UserCount: len(m.users)}
	for _, user := range m.users {
		progress := Progress(item, user)
		if progress.Started {
			summary.StartedCount++
		}
		if progress.Finished {
			summary.FinishedCount++
		}
		summary.Users = append(summary.Users, progress)
	}
	return summary
}

// ToggleEpisode flips membership of one episode key. The key is not checked
// against the item's seasons so stale structure is tolerated.
func ToggleEpisode(info models.WatchInfo, season, episode int) models.WatchInfo {
	key := EpisodeKey(season, episode)
	result := info.Clone()
	if containsKey(result.WatchedEpisodes, key) {
		result.WatchedEpisodes = removeKeys(result.WatchedEpisodes, []string{key})
	} else {
		result.WatchedEpisodes = addKeys(result.WatchedEpisodes, []string{key})
	}
	return result
}

// ToggleSeason removes every key of the season when all are present, otherwise
// adds the full season. Keys of other seasons are left untouched.
func ToggleSeason(info models.WatchInfo, season models.Season) models.WatchInfo {
	keys := SeasonKeys(season)
	result := info.Clone()
	if len(keys) == 0 {
		return result
	}

	allWatched := true
	for _, key := range keys {
		if !containsKey(result.WatchedEpisodes, key) {
			allWatched = false
			break
		}
	}

	if allWatched {
		result.WatchedEpisodes = removeKeys(result.WatchedEpisodes, keys)
	} else {
		result.WatchedEpisodes = addKeys(result.WatchedEpisodes, keys)
	}
	return result
}

// ToggleMovie flips the watched flag, stamping or clearing the date
func ToggleMovie(info models.WatchInfo, at time.Time) models.WatchInfo {
	result := info.Clone()
	result.Watched = !result.Watched
	if result.Watched {
		result.Date = &at
	} else {
		result.Date = nil
	}
	return result
}

// MarkAllWatched marks a movie watched or unions every episode of a series
func MarkAllWatched(item *models.MediaItem, info models.WatchInfo, at time.Time) models.WatchInfo {
	result := info.Clone()
	if item.Type == models.MediaTypeMovie {
		result.Watched = true
	} else {
		result.WatchedEpisodes = addKeys(result.WatchedEpisodes, AllKeys(item.Seasons))
	}
	result.Date = &at
	return result
}

func containsKey(keys []string, key string) bool {
	for _, existing := range keys {
		if existing == key {
			return true
		}
	}
	return false
}

func addKeys(keys []string, add []string) []string {
	result := append([]string(nil), keys...)
	for _, key := range add {
		if !containsKey(result, key) {
			result = append(result, key)
		}
	}
	sortKeys(result)
	return result
}

func removeKeys(keys []string, remove []string) []string {
	result := make([]string, 0, len(keys))
	for _, key := range keys {
		if !containsKey(remove, key) {
			result = append(result, key)
		}
	}
	return result
}

// sortKeys orders keys by season then episode; malformed keys go last in string order
func sortKeys(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		si, ei, errI := ParseEpisodeKey(keys[i])
		sj, ej, errJ := ParseEpisodeKey(keys[j])
		switch {
		case errI != nil && errJ != nil:
			return keys[i] < keys[j]
		case errI != nil:
			return false
		case errJ != nil:
			return true
		case si != sj:
			return si < sj
		default:
			return ei < ej
		}
	})
}
