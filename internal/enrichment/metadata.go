package enrichment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amaumene/watchduo/internal/models"
	"github.com/sirupsen/logrus"
)

type localizedMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// LocalizedPatch asks the completion service for a translated title and synopsis
// and returns the patch to apply. The current title is kept when the translation
// is identical or rejected; the pre-translation title is preserved in originalTitle.
func (p *Pipeline) LocalizedPatch(ctx context.Context, item *models.MediaItem) (models.ItemPatch, error) {
	if p.completer == nil {
		return models.ItemPatch{}, errors.New("completion service not configured")
	}

	var reply localizedMetadata
	if err := p.completer.GenerateJSON(ctx, p.metadataPrompt(item), &reply); err != nil {
		return models.ItemPatch{}, fmt.Errorf("failed to generate localized metadata: %w", err)
	}

	var patch models.ItemPatch
	title := strings.TrimSpace(reply.Title)
	if title != "" && !strings.EqualFold(title, strings.TrimSpace(item.Title)) {
		if rejected, term := p.filter.IsRejected(title); rejected {
			p.logger.WithFields(logrus.Fields{
				"id":    item.ID,
				"title": title,
				"term":  term,
			}).Debug("Rejected translated title")
		} else {
			patch.Title = models.Ptr(title)
			if strings.TrimSpace(item.OriginalTitle) == "" {
				patch.OriginalTitle = models.Ptr(item.Title)
			}
		}
	}

	if description := strings.TrimSpace(reply.Description); description != "" {
		patch.Description = models.Ptr(description)
	}
	return patch, nil
}

func (p *Pipeline) metadataPrompt(item *models.MediaItem) string {
	kind := "movie"
	if item.Type == models.MediaTypeSeries {
		kind = "TV series"
	}
	year := item.Year
	if year == "" {
		year = "unknown year"
	}

	return fmt.Sprintf(`You localize catalog metadata. For the %s "%s" (%s), give the official title and a synopsis in %s.

Rules:
- If the official %s title is the same as the original, return the original title unchanged. Never invent an alternate title.
- Never return a title containing the word "trailer".
- The synopsis must be concise: at most three sentences, no spoilers.

Respond with ONLY a JSON object: {"title": "...", "description": "..."}`,
		kind, sourceTitle(item), year, languageName(p.language), languageName(p.language))
}
