package models

import (
	"encoding/json"
	"fmt"
)

// MediaType represents the type of media (movie or series)
type MediaType string

const (
	MediaTypeMovie  MediaType = "movie"
	MediaTypeSeries MediaType = "series"
)

// Valid reports whether t is a known media type
func (t MediaType) Valid() bool {
	return t == MediaTypeMovie || t == MediaTypeSeries
}

// CollectionID is the denormalized watchlist/watched flag kept on each item.
// Tab placement is always recomputed from per-user status, never read from here.
type CollectionID string

const (
	CollectionWatchlist CollectionID = "watchlist"
	CollectionWatched   CollectionID = "watched"
)

// Source identifies where a search candidate came from
type Source string

const (
	SourceTMDB   Source = "tmdb"
	SourceTVMaze Source = "tvmaze"
	SourceOMDB   Source = "omdb"
	SourceManual Source = "manual"
)

// RatingKind tags the Rating variant
type RatingKind string

const (
	RatingUnrated   RatingKind = ""
	RatingScored    RatingKind = "scored"
	RatingDiscarded RatingKind = "discarded"
)

// Score values for a scored rating
const (
	ScoreBad         = 1
	ScoreGood        = 2
	ScoreGreat       = 3
	ScoreMasterpiece = 4
)

// discardedCode is the wire value that marks an item as discarded
const discardedCode = 9

// Rating is either unrated, scored 1..4, or discarded. The zero value is unrated.
type Rating struct {
	Kind  RatingKind
	Score int // only meaningful when Kind == RatingScored
}

// Unrated returns the empty rating
func Unrated() Rating {
	return Rating{Kind: RatingUnrated}
}

// Discarded returns the terminal discarded rating
func Discarded() Rating {
	return Rating{Kind: RatingDiscarded}
}

// Scored returns a 1..4 rating
func Scored(score int) (Rating, error) {
	if score < ScoreBad || score > ScoreMasterpiece {
		return Rating{}, fmt.Errorf("rating score %d out of range 1..4", score)
	}
	return Rating{Kind: RatingScored, Score: score}, nil
}

// RatingFromCode converts the stored wire code (0, 1..4, 9) into a Rating
func RatingFromCode(code int) (Rating, error) {
	switch {
	case code == 0:
		return Unrated(), nil
	case code == discardedCode:
		return Discarded(), nil
	default:
		return Scored(code)
	}
}

// Code returns the wire code for the rating
func (r Rating) Code() int {
	switch r.Kind {
	case RatingScored:
		return r.Score
	case RatingDiscarded:
		return discardedCode
	default:
		return 0
	}
}

// IsDiscarded reports whether the item was explicitly excluded from tracking
func (r Rating) IsDiscarded() bool {
	return r.Kind == RatingDiscarded
}

// Label returns a human readable name for the rating
func (r Rating) Label() string {
	switch r.Kind {
	case RatingDiscarded:
		return "discarded"
	case RatingScored:
		switch r.Score {
		case ScoreBad:
			return "bad"
		case ScoreGood:
			return "good"
		case ScoreGreat:
			return "great"
		case ScoreMasterpiece:
			return "masterpiece"
		}
	}
	return "unrated"
}

// MarshalJSON encodes the rating as its wire code, 0 for unrated
func (r Rating) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Code())
}

// UnmarshalJSON decodes a wire code
func (r *Rating) UnmarshalJSON(data []byte) error {
	var code *int
	if err := json.Unmarshal(data, &code); err != nil {
		return fmt.Errorf("rating must be an integer code: %w", err)
	}
	if code == nil {
		*r = Unrated()
		return nil
	}
	parsed, err := RatingFromCode(*code)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
