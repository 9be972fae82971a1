package enrichment

import (
	"context"
	"fmt"
	"strings"

	"github.com/amaumene/watchduo/internal/models"
	"github.com/amaumene/watchduo/internal/services/youtube"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// maxTrailerAttempts bounds the AI fallback; there is no wall-clock limit
const maxTrailerAttempts = 3

// FindTrailer returns a trailer URL for the item, "" when every source failed.
// The direct video search is trusted as is; AI candidates must pass validation.
func (p *Pipeline) FindTrailer(ctx context.Context, item *models.MediaItem) string {
	title := sourceTitle(item)
	log := p.logger.WithFields(logrus.Fields{"id": item.ID, "title": title})

	if p.searcher != nil {
		videoURL, err := p.searcher.SearchVideo(ctx, strings.TrimSpace(fmt.Sprintf("%s %s trailer", title, item.Year)))
		if err != nil {
			log.WithError(err).Warn("Direct trailer search failed")
		} else if videoURL != "" {
			return videoURL
		}
	}

	if p.completer == nil || p.validator == nil {
		return ""
	}

	for attempt, prompt := range p.trailerPrompts(item) {
		if attempt >= maxTrailerAttempts {
			break
		}
		text, err := p.completer.SearchGrounded(ctx, prompt)
		if err != nil {
			log.WithError(err).WithField("attempt", attempt+1).Warn("AI trailer search failed")
			continue
		}

		candidates := youtube.ExtractVideoURLs(text)
		log.WithFields(logrus.Fields{
			"attempt":    attempt + 1,
			"candidates": len(candidates),
		}).Debug("AI trailer candidates extracted")

		for _, candidate := range candidates {
			if p.validator.Validate(ctx, candidate) {
				return candidate
			}
		}
	}
	return ""
}

// trailerPrompts returns the queries in order: localized exact title, English, generic
func (p *Pipeline) trailerPrompts(item *models.MediaItem) []string {
	title := sourceTitle(item)
	kind := "movie"
	if item.Type == models.MediaTypeSeries {
		kind = "TV series"
	}
	yearSuffix := ""
	if item.Year != "" {
		yearSuffix = " (" + item.Year + ")"
	}
	const answerRule = "Answer only with the YouTube URLs you found, one per line."

	return []string{
		fmt.Sprintf(`Search YouTube for the official trailer of the %s "%s"%s in %s. %s`,
			kind, title, yearSuffix, languageName(p.language), answerRule),
		fmt.Sprintf(`Search YouTube for the official English trailer of the %s "%s"%s. %s`,
			kind, title, yearSuffix, answerRule),
		fmt.Sprintf(`%s%s %s trailer youtube. %s`, title, yearSuffix, kind, answerRule),
	}
}

// sourceTitle prefers the untranslated title when one was preserved
func sourceTitle(item *models.MediaItem) string {
	if strings.TrimSpace(item.OriginalTitle) != "" {
		return item.OriginalTitle
	}
	return item.Title
}

func languageName(tag language.Tag) string {
	if tag == language.Und {
		return "English"
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return tag.String()
}
