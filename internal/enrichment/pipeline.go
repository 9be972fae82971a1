// Package enrichment backfills trailer links and localized metadata after an item
// is added. Both jobs are best effort; whatever happens, the item ends enriched.
package enrichment

import (
	"context"
	"sync"

	"github.com/amaumene/watchduo/internal/metrics"
	"github.com/amaumene/watchduo/internal/models"
	"github.com/amaumene/watchduo/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/language"
)

// VideoSearcher returns the best video URL for a query, "" when nothing matched
type VideoSearcher interface {
	SearchVideo(ctx context.Context, query string) (string, error)
}

// VideoValidator confirms a canonical video URL resolves to a live video
type VideoValidator interface {
	Validate(ctx context.Context, videoURL string) bool
}

// Completer is the AI completion service
type Completer interface {
	SearchGrounded(ctx context.Context, prompt string) (string, error)
	GenerateJSON(ctx context.Context, prompt string, v interface{}) error
}

// ItemUpdater applies partial updates to stored items
type ItemUpdater interface {
	UpdateItem(id string, patch models.ItemPatch) (*models.MediaItem, error)
}

// Pipeline runs enrichment for newly added items
type Pipeline struct {
	searcher  VideoSearcher
	validator VideoValidator
	completer Completer
	store     ItemUpdater
	filter    *utils.TitleFilter
	language  language.Tag
	logger    *logrus.Logger

	mu       sync.Mutex
	inFlight map[string]bool
	running  sync.WaitGroup
}

// NewPipeline creates a pipeline. searcher and completer may be nil when the
// corresponding service is not configured; that step then finds nothing.
func NewPipeline(
	searcher VideoSearcher,
	validator VideoValidator,
	completer Completer,
	store ItemUpdater,
	filter *utils.TitleFilter,
	lang language.Tag,
	logger *logrus.Logger,
) *Pipeline {
	if filter == nil {
		filter = utils.NewTitleFilter()
	}
	return &Pipeline{
		searcher:  searcher,
		validator: validator,
		completer: completer,
		store:     store,
		filter:    filter,
		language:  lang,
		logger:    logger,
		inFlight:  make(map[string]bool),
	}
}

// Enqueue starts enrichment in the background unless the item is already enriched
// or a run for it is in flight. It reports whether a run was started.
func (p *Pipeline) Enqueue(item *models.MediaItem) bool {
	if item == nil || item.IsEnriched || !p.claim(item.ID) {
		return false
	}

	snapshot := item.Clone()
	p.running.Add(1)
	go func() {
		defer p.running.Done()
		defer p.release(snapshot.ID)
		p.run(context.Background(), snapshot)
	}()
	return true
}

// Run enriches an item synchronously. It never fails: subtask errors are logged.
func (p *Pipeline) Run(ctx context.Context, item *models.MediaItem) bool {
	if item == nil || item.IsEnriched || !p.claim(item.ID) {
		return false
	}
	defer p.release(item.ID)
	p.run(ctx, item.Clone())
	return true
}

// InFlight reports whether a run for the id has not settled yet
func (p *Pipeline) InFlight(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight[id]
}

// Wait blocks until every background run has settled
func (p *Pipeline) Wait() {
	p.running.Wait()
}

func (p *Pipeline) claim(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight[id] {
		return false
	}
	p.inFlight[id] = true
	return true
}

func (p *Pipeline) release(id string) {
	p.mu.Lock()
	delete(p.inFlight, id)
	p.mu.Unlock()
}

func (p *Pipeline) run(ctx context.Context, item *models.MediaItem) {
	ctx, span := otel.Tracer("watchduo/enrichment").Start(ctx, "enrichment.Run")
	defer span.End()
	span.SetAttributes(attribute.String("item.id", item.ID), attribute.String("item.title", item.Title))

	log := p.logger.WithFields(logrus.Fields{
		"id":    item.ID,
		"title": item.Title,
	})
	log.Info("Starting enrichment")

	// Each job writes its own result as soon as it has one; the barrier only
	// decides when the latch may close.
	var wg conc.WaitGroup
	wg.Go(func() { p.enrichTrailer(ctx, item) })
	wg.Go(func() { p.enrichMetadata(ctx, item) })
	if recovered := wg.WaitAndRecover(); recovered != nil {
		log.WithField("panic", recovered.Value).Error("Enrichment job panicked")
	}

	if _, err := p.store.UpdateItem(item.ID, models.ItemPatch{IsEnriched: models.Ptr(true)}); err != nil {
		metrics.PersistenceFailures.WithLabelValues("enrich_latch").Inc()
		log.WithError(err).Error("Failed to mark item as enriched")
		return
	}
	log.Info("Enrichment completed")
}

func (p *Pipeline) enrichTrailer(ctx context.Context, item *models.MediaItem) {
	log := p.logger.WithField("id", item.ID)

	trailerURL := p.FindTrailer(ctx, item)
	if trailerURL == "" {
		metrics.EnrichmentSteps.WithLabelValues("trailer", "none").Inc()
		log.Info("No trailer found")
		return
	}

	if _, err := p.store.UpdateItem(item.ID, models.ItemPatch{TrailerURL: models.Ptr(trailerURL)}); err != nil {
		metrics.EnrichmentSteps.WithLabelValues("trailer", "failed").Inc()
		log.WithError(err).Error("Failed to save trailer")
		return
	}
	metrics.EnrichmentSteps.WithLabelValues("trailer", "applied").Inc()
	log.WithField("trailer", trailerURL).Info("Trailer saved")
}

func (p *Pipeline) enrichMetadata(ctx context.Context, item *models.MediaItem) {
	log := p.logger.WithField("id", item.ID)

	patch, err := p.LocalizedPatch(ctx, item)
	if err != nil {
		metrics.EnrichmentSteps.WithLabelValues("metadata", "failed").Inc()
		log.WithError(err).Warn("Localized metadata unavailable")
		return
	}
	if patch.IsEmpty() {
		metrics.EnrichmentSteps.WithLabelValues("metadata", "none").Inc()
		return
	}

	if _, err := p.store.UpdateItem(item.ID, patch); err != nil {
		metrics.EnrichmentSteps.WithLabelValues("metadata", "failed").Inc()
		log.WithError(err).Error("Failed to save localized metadata")
		return
	}
	metrics.EnrichmentSteps.WithLabelValues("metadata", "applied").Inc()
	log.WithField("fields", patch.Fields()).Info("Localized metadata saved")
}
