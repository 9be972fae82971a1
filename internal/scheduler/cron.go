package scheduler

import (
	"fmt"

	"github.com/amaumene/watchduo/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Reloader rebuilds the in-memory library from the store
type Reloader interface {
	Reload() error
}

// Backlog lists items whose enrichment never completed
type Backlog interface {
	GetUnenrichedItems() ([]*models.MediaItem, error)
}

// Enricher runs the enrichment pipeline in the background
type Enricher interface {
	Enqueue(item *models.MediaItem) bool
	InFlight(id string) bool
}

// Scheduler manages scheduled tasks
type Scheduler struct {
	cron              *cron.Cron
	library           Reloader
	backlog           Backlog
	enricher          Enricher
	reconcileSchedule string
	enrichSchedule    string
	logger            *logrus.Logger
}

// NewScheduler creates a new scheduler. enricher may be nil, which disables the sweep.
func NewScheduler(library Reloader, backlog Backlog, enricher Enricher, reconcileSchedule, enrichSchedule string, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:              cron.New(),
		library:           library,
		backlog:           backlog,
		enricher:          enricher,
		reconcileSchedule: reconcileSchedule,
		enrichSchedule:    enrichSchedule,
		logger:            logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	// Full reload: brings the view back in line after a failed background write
	if _, err := s.cron.AddFunc(s.reconcileSchedule, s.runReconcile); err != nil {
		return fmt.Errorf("failed to add reconcile job: %w", err)
	}

	if s.enricher != nil {
		if _, err := s.cron.AddFunc(s.enrichSchedule, func() { s.RunEnrichSweep() }); err != nil {
			return fmt.Errorf("failed to add enrichment job: %w", err)
		}
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")

	// Pick up items left unenriched by a previous run
	if s.enricher != nil {
		go s.RunEnrichSweep()
	}

	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runReconcile() {
	s.logger.Debug("Running scheduled reconcile")
	if err := s.library.Reload(); err != nil {
		s.logger.WithError(err).Error("Reconcile job failed")
	}
}

// RunEnrichSweep enqueues every unenriched item not already being processed
// and returns how many were enqueued
func (s *Scheduler) RunEnrichSweep() int {
	if s.enricher == nil {
		return 0
	}

	items, err := s.backlog.GetUnenrichedItems()
	if err != nil {
		s.logger.WithError(err).Error("Failed to get unenriched items")
		return 0
	}

	if len(items) == 0 {
		s.logger.Debug("No unenriched items to process")
		return 0
	}

	enqueued := 0
	for _, item := range items {
		if s.enricher.InFlight(item.ID) {
			continue
		}
		if s.enricher.Enqueue(item) {
			enqueued++
		}
	}

	s.logger.WithFields(logrus.Fields{
		"backlog":  len(items),
		"enqueued": enqueued,
	}).Info("Enrichment sweep completed")
	return enqueued
}
