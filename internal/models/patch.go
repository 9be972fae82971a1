package models

import "time"

// ItemPatch names the fields an update touches. Nil fields are left untouched.
type ItemPatch struct {
	Title           *string
	OriginalTitle   *string
	Description     *string
	Year            *string
	PosterURL       *string
	BackupPosterURL *string
	ReleaseDate     *string
	Platforms       *[]string
	Seasons         *[]Season
	Rating          *Rating
	TrailerURL      *string
	IsEnriched      *bool
	CollectionID    *CollectionID

	// UserStatus replaces the watch info of the named users only; other users are untouched
	UserStatus map[string]WatchInfo
}

// Ptr returns a pointer to v, handy for building patches
func Ptr[T any](v T) *T {
	return &v
}

// IsEmpty reports whether the patch would change nothing
func (p ItemPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Fields lists the names of the fields the patch sets, for logging
func (p ItemPatch) Fields() []string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(p.Title != nil, "title")
	add(p.OriginalTitle != nil, "originalTitle")
	add(p.Description != nil, "description")
	add(p.Year != nil, "year")
	add(p.PosterURL != nil, "posterUrl")
	add(p.BackupPosterURL != nil, "backupPosterUrl")
	add(p.ReleaseDate != nil, "releaseDate")
	add(p.Platforms != nil, "platforms")
	add(p.Seasons != nil, "seasons")
	add(p.Rating != nil, "rating")
	add(p.TrailerURL != nil, "trailerUrl")
	add(p.IsEnriched != nil, "isEnriched")
	add(p.CollectionID != nil, "collectionId")
	add(len(p.UserStatus) > 0, "userStatus")
	return fields
}

// Apply writes the named fields onto item
func (p ItemPatch) Apply(item *MediaItem) {
	if p.Title != nil {
		item.Title = *p.Title
	}
	if p.OriginalTitle != nil {
		item.OriginalTitle = *p.OriginalTitle
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Year != nil {
		item.Year = *p.Year
	}
	if p.PosterURL != nil {
		item.PosterURL = *p.PosterURL
	}
	if p.BackupPosterURL != nil {
		item.BackupPosterURL = *p.BackupPosterURL
	}
	if p.ReleaseDate != nil {
		item.ReleaseDate = *p.ReleaseDate
	}
	if p.Platforms != nil {
		item.Platforms = UniquePlatforms(*p.Platforms)
	}
	if p.Seasons != nil {
		item.Seasons = append([]Season(nil), (*p.Seasons)...)
	}
	if p.Rating != nil {
		item.Rating = *p.Rating
	}
	if p.TrailerURL != nil {
		item.TrailerURL = *p.TrailerURL
	}
	if p.IsEnriched != nil {
		item.IsEnriched = *p.IsEnriched
	}
	if p.CollectionID != nil {
		item.CollectionID = *p.CollectionID
	}
	if len(p.UserStatus) > 0 {
		if item.UserStatus == nil {
			item.UserStatus = make(map[string]WatchInfo, len(p.UserStatus))
		}
		for user, info := range p.UserStatus {
			item.UserStatus[user] = info.Clone()
		}
	}
	item.UpdatedAt = time.Now()
}

// UniquePlatforms drops blanks and repeats while keeping first-seen order
func UniquePlatforms(platforms []string) []string {
	seen := make(map[string]bool, len(platforms))
	result := make([]string, 0, len(platforms))
	for _, platform := range platforms {
		if platform == "" || seen[platform] {
			continue
		}
		seen[platform] = true
		result = append(result, platform)
	}
	return result
}
