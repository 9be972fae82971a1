package controllers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/amaumene/watchduo/internal/collection"
	"github.com/amaumene/watchduo/internal/metrics"
	"github.com/amaumene/watchduo/internal/models"
	"github.com/amaumene/watchduo/internal/watchstatus"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrUnknownUser is returned when a mutation names a user outside the configured set
	ErrUnknownUser = errors.New("unknown user")
	// ErrUnknownSeason is returned when a season toggle names a season the item does not have
	ErrUnknownSeason = errors.New("unknown season")
	// ErrWrongType is returned when a movie-only or series-only operation hits the other type
	ErrWrongType = errors.New("operation does not apply to this media type")
)

// ItemStore is the persistence collaborator of the library
type ItemStore interface {
	CreateItem(item *models.MediaItem) error
	UpdateItem(id string, patch models.ItemPatch) (*models.MediaItem, error)
	DeleteItem(id string) error
	ListItems() ([]*models.MediaItem, error)
}

// Enricher starts background enrichment for a newly persisted item
type Enricher interface {
	Enqueue(item *models.MediaItem) bool
}

// Detailer completes a selected search candidate before it is persisted
type Detailer interface {
	Details(ctx context.Context, result models.SearchResult) models.SearchResult
}

// LibraryController owns the local view of the collection. Mutations are applied
// to the view synchronously and written to the store in the background; the view
// is replaced wholesale whenever the store reports a change.
type LibraryController struct {
	store      ItemStore
	enricher   Enricher
	detailer   Detailer
	model      *watchstatus.Model
	classifier *collection.Classifier
	logger     *logrus.Logger
	now        func() time.Time

	mu         sync.RWMutex
	items      []*models.MediaItem
	selectedID string

	// adds in flight by (title, year); closed when the add settles
	adding map[string]chan struct{}

	persisting sync.WaitGroup
}

// NewLibraryController creates a library controller. enricher and detailer may be nil.
func NewLibraryController(store ItemStore, enricher Enricher, detailer Detailer, model *watchstatus.Model, logger *logrus.Logger) *LibraryController {
	return &LibraryController{
		store:      store,
		enricher:   enricher,
		detailer:   detailer,
		model:      model,
		classifier: collection.NewClassifier(model),
		logger:     logger,
		now:        time.Now,
		adding:     make(map[string]chan struct{}),
	}
}

// Users returns the configured user set
func (c *LibraryController) Users() []string {
	return c.model.Users()
}

// Reload replaces the local view with the store's current snapshot. The selected
// item is re-resolved by id against the new snapshot.
func (c *LibraryController) Reload() error {
	items, err := c.store.ListItems()
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
	if c.selectedID != "" && c.indexOf(c.selectedID) < 0 {
		c.logger.WithField("id", c.selectedID).Debug("Selected item no longer exists")
		c.selectedID = ""
	}
	return nil
}

// Watch reloads the view on every change notification until ctx is done or the
// channel is closed. Bursts of notifications collapse into one reload.
func (c *LibraryController) Watch(ctx context.Context, changes <-chan models.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			drained := drain(changes)
			c.logger.WithFields(logrus.Fields{
				"type":    change.Type,
				"id":      change.ItemID,
				"pending": drained,
			}).Debug("Change received, reloading")
			if err := c.Reload(); err != nil {
				c.logger.WithError(err).Error("Failed to reload after change")
			}
		}
	}
}

func drain(changes <-chan models.Change) int {
	count := 0
	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return count
			}
			count++
		default:
			return count
		}
	}
}

// Items returns a copy of every item, most recently added first
func (c *LibraryController) Items() []*models.MediaItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneItems(c.items)
}

// Get returns a copy of one item
func (c *LibraryController) Get(id string) (*models.MediaItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	index := c.indexOf(id)
	if index < 0 {
		return nil, models.ErrNotFound
	}
	return c.items[index].Clone(), nil
}

// Select marks an item as the open detail view
func (c *LibraryController) Select(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOf(id) < 0 {
		return models.ErrNotFound
	}
	c.selectedID = id
	return nil
}

// Selected returns the open detail item from the current snapshot
func (c *LibraryController) Selected() (*models.MediaItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	index := c.indexOf(c.selectedID)
	if index < 0 {
		return nil, false
	}
	return c.items[index].Clone(), true
}

// Tab returns the items of one tab after filtering
func (c *LibraryController) Tab(tab collection.Tab, filter collection.Filter) []*models.MediaItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneItems(c.classifier.View(c.items, tab, filter))
}

// Filter returns the items of every tab passing the filter, most recently added first
func (c *LibraryController) Filter(filter collection.Filter) []*models.MediaItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var result []*models.MediaItem
	for _, item := range c.items {
		if c.classifier.Matches(item, c.classifier.Classify(item), filter) {
			result = append(result, item)
		}
	}
	result = cloneItems(result)
	models.SortByAddedAt(result)
	return result
}

// Counts returns the number of items per tab after filtering
func (c *LibraryController) Counts(filter collection.Filter) collection.Counts {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.classifier.Count(c.items, filter)
}

// Classify returns the tab an item currently belongs to
func (c *LibraryController) Classify(item *models.MediaItem) collection.Tab {
	return c.classifier.Classify(item)
}

// Progress summarizes every user's progress on one item
func (c *LibraryController) Progress(id string) (watchstatus.Summary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	index := c.indexOf(id)
	if index < 0 {
		return watchstatus.Summary{}, models.ErrNotFound
	}
	return c.model.Summarize(c.items[index]), nil
}

// FindByTitle returns the first item whose title matches exactly, ignoring case
func (c *LibraryController) FindByTitle(title string) (*models.MediaItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	wanted := strings.TrimSpace(title)
	for _, item := range c.items {
		if strings.EqualFold(strings.TrimSpace(item.Title), wanted) {
			return item.Clone(), true
		}
	}
	return nil, false
}

// AddItem persists a selected candidate. A candidate whose (title, year) matches an
// existing item is ignored and the existing item is returned with created=false.
func (c *LibraryController) AddItem(ctx context.Context, result models.SearchResult) (*models.MediaItem, bool, error) {
	return c.addItem(ctx, result, nil)
}

// AddItemWatched persists a candidate with the given users already marked as watched
func (c *LibraryController) AddItemWatched(ctx context.Context, result models.SearchResult, users []string) (*models.MediaItem, bool, error) {
	for _, user := range users {
		if !c.model.IsUser(user) {
			return nil, false, fmt.Errorf("%w: %s", ErrUnknownUser, user)
		}
	}
	return c.addItem(ctx, result, users)
}

func (c *LibraryController) addItem(ctx context.Context, result models.SearchResult, watchedBy []string) (*models.MediaItem, bool, error) {
	if strings.TrimSpace(result.Title) == "" {
		return nil, false, fmt.Errorf("title is required")
	}
	if !result.Type.Valid() {
		return nil, false, fmt.Errorf("invalid media type %q", result.Type)
	}

	existing, release, err := c.reserveAdd(ctx, result.Title, result.Year)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		c.logger.WithFields(logrus.Fields{
			"id":    existing.ID,
			"title": existing.Title,
			"year":  existing.Year,
		}).Info("Item already in library, ignoring add")
		return existing, false, nil
	}
	defer release()

	// selected -> detailed
	if c.detailer != nil {
		result = c.detailer.Details(ctx, result)
	}

	now := c.now()
	item := result.ToMediaItem()
	item.ID = uuid.NewString()
	item.AddedAt = now
	item.UpdatedAt = now
	for _, user := range watchedBy {
		item.UserStatus[user] = watchstatus.MarkAllWatched(item, item.StatusFor(user), now)
	}
	item.CollectionID = c.classifier.CollectionFor(item)

	// Optimistic insert, undone if the store rejects the write
	c.mu.Lock()
	c.items = append([]*models.MediaItem{item.Clone()}, c.items...)
	c.mu.Unlock()

	if err := c.store.CreateItem(item.Clone()); err != nil {
		c.mu.Lock()
		c.removeLocked(item.ID)
		c.mu.Unlock()
		metrics.PersistenceFailures.WithLabelValues("create").Inc()
		c.logger.WithError(err).WithField("title", item.Title).Error("Failed to persist new item, rolled back")
		return nil, false, fmt.Errorf("failed to create item: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"id":    item.ID,
		"title": item.Title,
		"type":  item.Type,
	}).Info("Item added")

	// persisted -> enrichment-pending
	if c.enricher != nil {
		c.enricher.Enqueue(item.Clone())
	}
	return item.Clone(), true, nil
}

// ToggleEpisode flips one episode for one user
func (c *LibraryController) ToggleEpisode(id, user string, season, episode int) (*models.MediaItem, error) {
	return c.mutateStatus(id, user, "toggle_episode", func(item *models.MediaItem, info models.WatchInfo) (models.WatchInfo, error) {
		if item.Type != models.MediaTypeSeries {
			return info, ErrWrongType
		}
		if season <= 0 || episode <= 0 {
			return info, fmt.Errorf("invalid episode S%d_E%d", season, episode)
		}
		return watchstatus.ToggleEpisode(info, season, episode), nil
	})
}

// ToggleSeason adds or removes a whole season for one user
func (c *LibraryController) ToggleSeason(id, user string, seasonNumber int) (*models.MediaItem, error) {
	return c.mutateStatus(id, user, "toggle_season", func(item *models.MediaItem, info models.WatchInfo) (models.WatchInfo, error) {
		if item.Type != models.MediaTypeSeries {
			return info, ErrWrongType
		}
		for _, season := range item.Seasons {
			if season.SeasonNumber == seasonNumber {
				return watchstatus.ToggleSeason(info, season), nil
			}
		}
		return info, fmt.Errorf("%w: %d", ErrUnknownSeason, seasonNumber)
	})
}

// ToggleMovie flips the watched flag of a movie for one user
func (c *LibraryController) ToggleMovie(id, user string) (*models.MediaItem, error) {
	return c.mutateStatus(id, user, "toggle_movie", func(item *models.MediaItem, info models.WatchInfo) (models.WatchInfo, error) {
		if item.Type != models.MediaTypeMovie {
			return info, ErrWrongType
		}
		return watchstatus.ToggleMovie(info, c.now()), nil
	})
}

// SetWatchDate overrides the date a user watched the item; nil clears it
func (c *LibraryController) SetWatchDate(id, user string, date *time.Time) (*models.MediaItem, error) {
	return c.mutateStatus(id, user, "watch_date", func(item *models.MediaItem, info models.WatchInfo) (models.WatchInfo, error) {
		result := info.Clone()
		if date == nil {
			result.Date = nil
		} else {
			at := *date
			result.Date = &at
		}
		return result, nil
	})
}

// MarkWatched marks the whole item as watched for each user
func (c *LibraryController) MarkWatched(id string, users []string) (*models.MediaItem, error) {
	for _, user := range users {
		if !c.model.IsUser(user) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownUser, user)
		}
	}
	now := c.now()

	c.mu.Lock()
	index := c.indexOf(id)
	if index < 0 {
		c.mu.Unlock()
		return nil, models.ErrNotFound
	}
	item := c.items[index].Clone()
	patch := models.ItemPatch{UserStatus: make(map[string]models.WatchInfo, len(users))}
	wasUntouched := c.classifier.CollectionFor(item) == models.CollectionWatchlist
	for _, user := range users {
		info := watchstatus.MarkAllWatched(item, item.StatusFor(user), now)
		if item.UserStatus == nil {
			item.UserStatus = map[string]models.WatchInfo{}
		}
		item.UserStatus[user] = info
		patch.UserStatus[user] = info
	}
	c.applyCollectionLocked(item, wasUntouched, &patch)
	item.UpdatedAt = now
	c.items[index] = item
	c.mu.Unlock()

	c.persistUpdate("mark_watched", id, patch)
	return item.Clone(), nil
}

// SetRating changes the rating of an item
func (c *LibraryController) SetRating(id string, rating models.Rating) (*models.MediaItem, error) {
	return c.mutateItem(id, "rating", models.ItemPatch{Rating: &rating})
}

// SetPlatforms replaces the platforms of an item, dropping repeats
func (c *LibraryController) SetPlatforms(id string, platforms []string) (*models.MediaItem, error) {
	unique := models.UniquePlatforms(platforms)
	return c.mutateItem(id, "platforms", models.ItemPatch{Platforms: &unique})
}

// SetReleaseDate changes the release date of an item ("" clears it)
func (c *LibraryController) SetReleaseDate(id, releaseDate string) (*models.MediaItem, error) {
	if releaseDate != "" {
		if _, err := time.Parse("2006-01-02", releaseDate); err != nil {
			return nil, fmt.Errorf("invalid release date %q: %w", releaseDate, err)
		}
	}
	return c.mutateItem(id, "release_date", models.ItemPatch{ReleaseDate: &releaseDate})
}

// DeleteItem removes an item from the view and, in the background, from the store.
// A failed delete is logged; the item reappears on the next reload.
func (c *LibraryController) DeleteItem(id string) error {
	c.mu.Lock()
	if !c.removeLocked(id) {
		c.mu.Unlock()
		return models.ErrNotFound
	}
	if c.selectedID == id {
		c.selectedID = ""
	}
	c.mu.Unlock()

	c.persisting.Add(1)
	go func() {
		defer c.persisting.Done()
		if err := c.store.DeleteItem(id); err != nil {
			metrics.PersistenceFailures.WithLabelValues("delete").Inc()
			c.logger.WithError(err).WithField("id", id).Error("Failed to delete item")
		}
	}()
	return nil
}

// WaitForPersistence blocks until every background write has returned
func (c *LibraryController) WaitForPersistence() {
	c.persisting.Wait()
}

// mutateStatus applies fn to one user's watch info in the view and persists only
// that user's entry, so concurrent writes for other users are not clobbered
func (c *LibraryController) mutateStatus(id, user, op string, fn func(*models.MediaItem, models.WatchInfo) (models.WatchInfo, error)) (*models.MediaItem, error) {
	if !c.model.IsUser(user) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, user)
	}

	c.mu.Lock()
	index := c.indexOf(id)
	if index < 0 {
		c.mu.Unlock()
		return nil, models.ErrNotFound
	}
	item := c.items[index].Clone()
	info, err := fn(item, item.StatusFor(user))
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	wasUntouched := c.classifier.CollectionFor(item) == models.CollectionWatchlist
	if item.UserStatus == nil {
		item.UserStatus = map[string]models.WatchInfo{}
	}
	item.UserStatus[user] = info
	patch := models.ItemPatch{UserStatus: map[string]models.WatchInfo{user: info}}
	c.applyCollectionLocked(item, wasUntouched, &patch)
	item.UpdatedAt = c.now()
	c.items[index] = item
	c.mu.Unlock()

	c.persistUpdate(op, id, patch)
	return item.Clone(), nil
}

// applyCollectionLocked moves the denormalized collection flag when the item
// leaves the untouched state
func (c *LibraryController) applyCollectionLocked(item *models.MediaItem, wasUntouched bool, patch *models.ItemPatch) {
	if !wasUntouched {
		return
	}
	if collectionID := c.classifier.CollectionFor(item); collectionID != item.CollectionID {
		item.CollectionID = collectionID
		patch.CollectionID = &collectionID
	}
}

func (c *LibraryController) mutateItem(id, op string, patch models.ItemPatch) (*models.MediaItem, error) {
	c.mu.Lock()
	index := c.indexOf(id)
	if index < 0 {
		c.mu.Unlock()
		return nil, models.ErrNotFound
	}
	item := c.items[index].Clone()
	patch.Apply(item)
	c.items[index] = item
	c.mu.Unlock()

	c.persistUpdate(op, id, patch)
	return item.Clone(), nil
}

// persistUpdate writes a patch in the background. Failures are not rolled back.
func (c *LibraryController) persistUpdate(op, id string, patch models.ItemPatch) {
	c.persisting.Add(1)
	go func() {
		defer c.persisting.Done()
		if _, err := c.store.UpdateItem(id, patch); err != nil {
			metrics.PersistenceFailures.WithLabelValues(op).Inc()
			c.logger.WithError(err).WithFields(logrus.Fields{
				"id":     id,
				"op":     op,
				"fields": patch.Fields(),
			}).Error("Failed to persist update")
		}
	}()
}

// reserveAdd returns the existing item for (title, year), or claims the key until
// release is called. Concurrent adds of the same key wait for the first to settle.
func (c *LibraryController) reserveAdd(ctx context.Context, title, year string) (*models.MediaItem, func(), error) {
	key := title + "\x00" + year
	for {
		c.mu.Lock()
		if existing, ok := c.findByTitleYearLocked(title, year); ok {
			c.mu.Unlock()
			return existing, nil, nil
		}
		pending, busy := c.adding[key]
		if !busy {
			done := make(chan struct{})
			c.adding[key] = done
			c.mu.Unlock()
			return nil, func() {
				c.mu.Lock()
				delete(c.adding, key)
				c.mu.Unlock()
				close(done)
			}, nil
		}
		c.mu.Unlock()

		select {
		case <-pending:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
}

// findByTitleYearLocked matches the current or the pre-localization title
func (c *LibraryController) findByTitleYearLocked(title, year string) (*models.MediaItem, bool) {
	for _, item := range c.items {
		if item.Year != year {
			continue
		}
		if item.Title == title || (item.OriginalTitle != "" && item.OriginalTitle == title) {
			return item.Clone(), true
		}
	}
	return nil, false
}

func (c *LibraryController) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, item := range c.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (c *LibraryController) removeLocked(id string) bool {
	index := c.indexOf(id)
	if index < 0 {
		return false
	}
	c.items = append(c.items[:index:index], c.items[index+1:]...)
	return true
}

func cloneItems(items []*models.MediaItem) []*models.MediaItem {
	clones := make([]*models.MediaItem, len(items))
	for i, item := range items {
		clones[i] = item.Clone()
	}
	return clones
}
