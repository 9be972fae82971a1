package models

import "time"

// MediaItem represents a watchable title shared by the configured users
type MediaItem struct {
	ID   string    `json:"id" boltholdKey:"ID"`
	Type MediaType `json:"type"`

	// Presentation
	Title           string   `json:"title" boltholdIndex:"Title"`
	OriginalTitle   string   `json:"originalTitle,omitempty"`
	Description     string   `json:"description"`
	Year            string   `json:"year"`
	PosterURL       string   `json:"posterUrl"`
	BackupPosterURL string   `json:"backupPosterUrl,omitempty"`
	ReleaseDate     string   `json:"releaseDate,omitempty"` // ISO date
	Platforms       []string `json:"platforms"`

	// Episode structure, series only; empty when the breakdown is unknown
	Seasons []Season `json:"seasons,omitempty"`

	Rating Rating `json:"rating"`

	// Filled by the enrichment pipeline
	TrailerURL string `json:"trailerUrl,omitempty"`
	IsEnriched bool   `json:"isEnriched" boltholdIndex:"IsEnriched"`

	AddedAt      time.Time            `json:"addedAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
	CollectionID CollectionID         `json:"collectionId"`
	UserStatus   map[string]WatchInfo `json:"userStatus"`
}

// Season is one season of a series and how many episodes it has
type Season struct {
	SeasonNumber int `json:"seasonNumber"`
	EpisodeCount int `json:"episodeCount"`
}

// WatchInfo is a single user's relationship to a single item
type WatchInfo struct {
	Watched         bool       `json:"watched"` // movies only
	Date            *time.Time `json:"date,omitempty"`
	WatchedEpisodes []string   `json:"watchedEpisodes,omitempty"` // series only, "S<season>_E<episode>"
}

// Clone returns a deep copy so callers can mutate without touching shared state
func (m *MediaItem) Clone() *MediaItem {
	if m == nil {
		return nil
	}
	clone := *m
	clone.Platforms = append([]string(nil), m.Platforms...)
	clone.Seasons = append([]Season(nil), m.Seasons...)
	if m.UserStatus != nil {
		clone.UserStatus = make(map[string]WatchInfo, len(m.UserStatus))
		for user, info := range m.UserStatus {
			clone.UserStatus[user] = info.Clone()
		}
	}
	return &clone
}

// Clone returns a deep copy of the watch info
func (w WatchInfo) Clone() WatchInfo {
	clone := w
	if w.Date != nil {
		date := *w.Date
		clone.Date = &date
	}
	clone.WatchedEpisodes = append([]string(nil), w.WatchedEpisodes...)
	return clone
}

// StatusFor returns the watch info for a user, zero value when absent
func (m *MediaItem) StatusFor(user string) WatchInfo {
	if m.UserStatus == nil {
		return WatchInfo{}
	}
	return m.UserStatus[user]
}

// HasActivity reports whether a user has any watch activity on the item
func (w WatchInfo) HasActivity() bool {
	return w.Watched || len(w.WatchedEpisodes) > 0
}
