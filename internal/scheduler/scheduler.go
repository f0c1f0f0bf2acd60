package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/wxarchive/internal/importer"
)

// Importer is the part of the import service the scheduler drives.
type Importer interface {
	CatchUp(ctx context.Context, source string) (importer.Summary, error)
}

// Scheduler periodically imports new observations from one source.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Importer
	source    string
	interval  time.Duration
	cron      string

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler. A non-empty cron expression takes precedence
// over interval.
func New(service Importer, source string, interval time.Duration, cron string) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	// A slow import must not overlap the next run.
	s.SingletonModeAll()
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: s,
		service:   service,
		source:    source,
		interval:  interval,
		cron:      cron,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.source == "" {
		logrus.Info("scheduler: no source configured; nothing to schedule")
		return nil
	}

	var err error
	if s.cron != "" {
		_, err = s.scheduler.Cron(s.cron).Do(s.run)
	} else {
		minutes := int(s.interval.Minutes())
		if minutes <= 0 {
			minutes = 15
		}
		_, err = s.scheduler.Every(minutes).Minutes().Do(s.run)
	}
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	logrus.WithFields(logrus.Fields{
		"source":   s.source,
		"interval": s.interval,
		"cron":     s.cron,
	}).Info("scheduler started")
	return nil
}

func (s *Scheduler) run() {
	log := logrus.WithField("source", s.source)
	log.Info("scheduler: running catch-up import")

	summary, err := s.service.CatchUp(s.ctx, s.source)
	if err != nil {
		log.WithError(err).Error("scheduler: import failed")
		return
	}
	log.WithFields(logrus.Fields{
		"imported": summary.Imported,
		"existing": summary.Existing,
		"last":     summary.Last,
	}).Info("scheduler: completed catch-up import")
}

// Stop cancels a running import and stops future runs.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
