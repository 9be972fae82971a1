package collection

import (
	"fmt"

	"github.com/amaumene/watchduo/internal/models"
	"github.com/amaumene/watchduo/internal/watchstatus"
)

// Tab is one of the four disjoint views an item is sorted into
type Tab string

const (
	TabPending    Tab = "pending"
	TabInProgress Tab = "inprogress"
	TabFinished   Tab = "finished"
	TabDiscarded  Tab = "discarded"
)

// Tabs lists every tab in display order
var Tabs = []Tab{TabPending, TabInProgress, TabFinished, TabDiscarded}

// ParseTab validates a tab name
func ParseTab(value string) (Tab, error) {
	for _, tab := range Tabs {
		if string(tab) == value {
			return tab, nil
		}
	}
	return "", fmt.Errorf("unknown tab %q", value)
}

// Filter narrows a tab after classification. Zero values mean "no filter".
type Filter struct {
	Type models.MediaType
	User string
}

// Counts holds the number of items per tab
type Counts map[Tab]int

// Classifier partitions items into tabs for a fixed user set
type Classifier struct {
	model *watchstatus.Model
}

// NewClassifier creates a classifier over the configured users
func NewClassifier(model *watchstatus.Model) *Classifier {
	return &Classifier{model: model}
}

// Classify returns the single tab an item belongs to. Predicates are evaluated
// in priority order: discarded, pending, finished, inprogress.
func (c *Classifier) Classify(item *models.MediaItem) Tab {
	if item.Rating.IsDiscarded() {
		return TabDiscarded
	}

	summary := c.model.Summarize(item)
	switch {
	case summary.StartedCount == 0:
		return TabPending
	case summary.FinishedCount == summary.UserCount:
		return TabFinished
	default:
		return TabInProgress
	}
}

// CollectionFor derives the denormalized collection flag: any activity moves an
// item out of the watchlist.
func (c *Classifier) CollectionFor(item *models.MediaItem) models.CollectionID {
	if c.model.Summarize(item).StartedCount > 0 {
		return models.CollectionWatched
	}
	return models.CollectionWatchlist
}

// Matches reports whether an item in tab passes the secondary filter
func (c *Classifier) Matches(item *models.MediaItem, tab Tab, filter Filter) bool {
	if filter.Type != "" && item.Type != filter.Type {
		return false
	}
	// Pending means nobody started, so the user filter has nothing to narrow there
	if filter.User != "" && tab != TabPending {
		if !watchstatus.Progress(item, filter.User).Started {
			return false
		}
	}
	return true
}

// View returns the items of one tab after filtering, most recently added first
func (c *Classifier) View(items []*models.MediaItem, tab Tab, filter Filter) []*models.MediaItem {
	var result []*models.MediaItem
	for _, item := range items {
		if c.Classify(item) != tab {
			continue
		}
		if !c.Matches(item, tab, filter) {
			continue
		}
		result = append(result, item)
	}
	models.SortByAddedAt(result)
	return result
}

// Partition sorts every item into its tab, applying the filter
func (c *Classifier) Partition(items []*models.MediaItem, filter Filter) map[Tab][]*models.MediaItem {
	views := make(map[Tab][]*models.MediaItem, len(Tabs))
	for _, tab := range Tabs {
		views[tab] = []*models.MediaItem{}
	}
	for _, item := range items {
		tab := c.Classify(item)
		if c.Matches(item, tab, filter) {
			views[tab] = append(views[tab], item)
		}
	}
	for _, tab := range Tabs {
		models.SortByAddedAt(views[tab])
	}
	return views
}

// Count returns the per-tab counts after filtering
func (c *Classifier) Count(items []*models.MediaItem, filter Filter) Counts {
	counts := make(Counts, len(Tabs))
	for _, tab := range Tabs {
		counts[tab] = 0
	}
	for _, item := range items {
		tab := c.Classify(item)
		if c.Matches(item, tab, filter) {
			counts[tab]++
		}
	}
	return counts
}
