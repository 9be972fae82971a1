package search

import "github.com/amaumene/watchduo/internal/models"

var sourcePriority = map[models.Source]int{
	models.SourceTMDB:   30,
	models.SourceTVMaze: 20,
	models.SourceOMDB:   10,
	models.SourceManual: 0,
}

// Score ranks a candidate for display: source priority, then artwork, description and year
func Score(result models.SearchResult) int {
	score := sourcePriority[result.Source]
	if result.PosterURL != "" {
		score += 2
	}
	if result.BackupPosterURL != "" {
		score++
	}
	score += min(len(result.Description)/100, 3)
	if result.Year != "" {
		score++
	}
	return score
}

// ScoreAll fills the Score of every candidate in place
func ScoreAll(results []models.SearchResult) {
	for i := range results {
		results[i].Score = Score(results[i])
	}
}
