// Package scheduler periodically refreshes weather for configured
// locations so the daily cache and weather chunks stay warm.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/agrisage/agrisage/internal/config"
	"github.com/agrisage/agrisage/internal/models"
	"github.com/agrisage/agrisage/internal/weather"
)

// Scheduler runs the periodic weather refresh job.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *weather.Service
	locations []string
	interval  time.Duration
	onRefresh func()
	logger    *zap.Logger
}

// New creates a Scheduler. onRefresh is invoked after each completed run,
// typically to mark the retrieval index stale. logger may be nil.
func New(locations []string, interval time.Duration, service *weather.Service, onRefresh func(), logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		locations: locations,
		interval:  interval,
		onRefresh: onRefresh,
		logger:    logger,
	}
}

// Start schedules the refresh job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 {
		s.logger.Info("scheduler: no locations configured, nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 30
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(s.refreshAll)
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	s.logger.Info("scheduler started",
		zap.Int("interval_minutes", minutes),
		zap.Strings("locations", s.locations))
	return nil
}

// refreshAll fetches a comprehensive series for every location. The
// series fetch rewrites the daily cache as a side effect.
func (s *Scheduler) refreshAll() {
	s.logger.Info("scheduler: running weather refresh")
	tl := models.Timeline{
		Days:         config.DefaultMaxTimelineDays,
		Source:       models.TimelineAgriculturalDefault,
		Agricultural: true,
	}

	var wg sync.WaitGroup
	for _, loc := range s.locations {
		loc := loc
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			if _, err := s.service.Series(ctx, loc, tl); err != nil {
				s.logger.Warn("scheduler: refresh failed",
					zap.String("location", loc), zap.Error(err))
			}
		}()
	}
	wg.Wait()

	if s.onRefresh != nil {
		s.onRefresh()
	}
	s.logger.Info("scheduler: weather refresh complete")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
