package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/wxarchive/internal/units"
	"github.com/i474232898/wxarchive/internal/weather"
)

// ErrJobNotFound is returned for unknown job ids.
var ErrJobNotFound = errors.New("import job not found")

// SourceFactory builds a configured source and its import options by name.
type SourceFactory func(ctx context.Context, name string) (weather.Source, Options, error)

// Request describes one import.
type Request struct {
	Source string
	From   time.Time
	To     time.Time
	DryRun bool
	Update bool
}

// JobState is the lifecycle state of an asynchronous import.
type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

// Job is an asynchronous import tracked by the Service.
type Job struct {
	ID       string     `json:"id"`
	Source   string     `json:"source"`
	State    JobState   `json:"state"`
	Created  time.Time  `json:"created"`
	Started  *time.Time `json:"started,omitempty"`
	Finished *time.Time `json:"finished,omitempty"`
	Summary  *Summary   `json:"summary,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// Service orchestrates imports into the archive and answers archive queries.
// Imports are serialised: only one runs at a time.
type Service struct {
	store         weather.Store
	factory       SourceFactory
	defaultSource string
	maxJobs       int

	runMu sync.Mutex

	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a new Service. maxJobs caps how many finished jobs are
// remembered (0 = unlimited).
func NewService(store weather.Store, factory SourceFactory, defaultSource string, maxJobs int) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		store:         store,
		factory:       factory,
		defaultSource: defaultSource,
		maxJobs:       maxJobs,
		jobs:          make(map[string]*Job),
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (s *Service) prepare(ctx context.Context, req Request) (weather.Source, Options, error) {
	if s.factory == nil {
		return nil, Options{}, &ConfigError{Err: errors.New("no import sources configured")}
	}
	name := req.Source
	if name == "" {
		name = s.defaultSource
	}
	if name == "" {
		return nil, Options{}, &ConfigError{Err: errors.New("no import source given")}
	}
	src, opts, err := s.factory(ctx, name)
	if err != nil {
		return nil, Options{}, err
	}
	opts.From, opts.To = req.From, req.To
	opts.DryRun, opts.Update = req.DryRun, req.Update
	if err := opts.normalize(); err != nil {
		return nil, Options{}, err
	}
	return src, opts, nil
}

// Run imports synchronously.
func (s *Service) Run(ctx context.Context, req Request) (Summary, error) {
	src, opts, err := s.prepare(ctx, req)
	if err != nil {
		return Summary{}, err
	}
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return Import(ctx, src, s.store, opts)
}

// CatchUp imports source from the newest archive record onwards. With an empty
// archive the source picks its own default range.
func (s *Service) CatchUp(ctx context.Context, source string) (Summary, error) {
	req := Request{Source: source}
	latest, err := s.store.Latest()
	switch {
	case err == nil:
		req.From = latest.DateTime
	case !errors.Is(err, weather.ErrNotFound):
		return Summary{}, err
	}
	return s.Run(ctx, req)
}

// Start validates req and runs it asynchronously as a Job.
func (s *Service) Start(ctx context.Context, req Request) (Job, error) {
	src, opts, err := s.prepare(ctx, req)
	if err != nil {
		return Job{}, err
	}

	job := &Job{
		ID:      uuid.NewString(),
		Source:  src.Name(),
		State:   JobPending,
		Created: time.Now().UTC(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	s.pruneLocked()
	snapshot := *job
	s.mu.Unlock()

	log := logrus.WithFields(logrus.Fields{"job": job.ID, "source": job.Source})
	log.Info("import job queued")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.runMu.Lock()
		defer s.runMu.Unlock()

		s.update(job.ID, func(j *Job) {
			now := time.Now().UTC()
			j.State = JobRunning
			j.Started = &now
		})

		summary, err := Import(s.ctx, src, s.store, opts)

		s.update(job.ID, func(j *Job) {
			now := time.Now().UTC()
			j.Finished = &now
			j.Summary = &summary
			if err != nil {
				j.State = JobFailed
				j.Error = err.Error()
				return
			}
			j.State = JobSucceeded
		})
		if err != nil {
			log.WithError(err).Error("import job failed")
			return
		}
		log.WithField("imported", summary.Imported).Info("import job finished")
	}()

	return snapshot, nil
}

func (s *Service) update(id string, fn func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		fn(j)
	}
}

// pruneLocked drops the oldest finished jobs beyond maxJobs.
func (s *Service) pruneLocked() {
	if s.maxJobs <= 0 || len(s.order) <= s.maxJobs {
		return
	}
	over := len(s.order) - s.maxJobs
	kept := s.order[:0]
	for _, id := range s.order {
		j := s.jobs[id]
		if over > 0 && (j.State == JobSucceeded || j.State == JobFailed) {
			delete(s.jobs, id)
			over--
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}

// Job returns a snapshot of the job with id.
func (s *Service) Job(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return *j, nil
}

// Jobs returns snapshots of all remembered jobs, newest first.
func (s *Service) Jobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Created.After(out[k].Created) })
	return out
}

// Wait blocks until all started jobs have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close cancels running jobs and waits for them.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest() (weather.Record, error) {
	return s.store.Latest()
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(from, to time.Time) ([]weather.Record, error) {
	return s.store.Range(from, to)
}

// GetDaySummary summarises the archive day containing date, in the day's time
// zone. A zero system keeps the archive's units.
func (s *Service) GetDaySummary(date time.Time, system units.System) (weather.DaySummary, error) {
	start, end := weather.DayBounds(date)
	records, err := s.store.Range(start.Add(time.Nanosecond), end)
	if err != nil {
		return weather.DaySummary{}, err
	}
	if system != 0 {
		for i, r := range records {
			if records[i], err = r.ConvertTo(system); err != nil {
				return weather.DaySummary{}, err
			}
		}
	}
	return weather.SummarizeDay(date, records), nil
}
