package models

// SearchResult is an ephemeral candidate returned by the search aggregator.
// It becomes the seed of a MediaItem only when the user selects it.
type SearchResult struct {
	Source     Source    `json:"source"`
	ProviderID string    `json:"providerId"` // numeric for tmdb/tvmaze, IMDB-style for omdb
	Type       MediaType `json:"type"`

	Title           string   `json:"title"`
	Year            string   `json:"year"`
	Description     string   `json:"description"`
	PosterURL       string   `json:"posterUrl"`
	BackupPosterURL string   `json:"backupPosterUrl,omitempty"`
	ReleaseDate     string   `json:"releaseDate,omitempty"`
	Seasons         []Season `json:"seasons,omitempty"`

	// Display ordering only, never used for de-duplication
	Score int `json:"score"`
}

// ToMediaItem seeds a new item from the candidate (no id, timestamps or status yet)
func (r SearchResult) ToMediaItem() *MediaItem {
	return &MediaItem{
		Type:            r.Type,
		Title:           r.Title,
		Description:     r.Description,
		Year:            r.Year,
		PosterURL:       r.PosterURL,
		BackupPosterURL: r.BackupPosterURL,
		ReleaseDate:     r.ReleaseDate,
		Seasons:         append([]Season(nil), r.Seasons...),
		Platforms:       []string{},
		UserStatus:      map[string]WatchInfo{},
	}
}
