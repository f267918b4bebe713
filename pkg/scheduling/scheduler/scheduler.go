package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ghdlab/mapflow/pkg/logger"
	"github.com/ghdlab/mapflow/pkg/metrics"
)

// Job is the work run on every tick of a schedule. The context is canceled
// when the scheduler stops.
type Job func(ctx context.Context) error

// Entry describes a scheduled job.
type Entry struct {
	ID       string
	Spec     string
	Next     time.Time
	Prev     time.Time
	Created  time.Time
	Runs     int64
	Failures int64
}

// Scheduler runs jobs on cron schedules. A job that is still running when
// its next tick arrives is skipped for that tick.
type Scheduler interface {
	// Schedule registers job under id. spec is a cron expression with an
	// optional leading seconds field, or a descriptor such as "@hourly" or
	// "@every 10m".
	Schedule(id string, spec string, job Job) error

	// Remove unregisters a job. It reports whether id was scheduled.
	Remove(id string) bool

	// Next returns the next activation time of a job.
	Next(id string) (time.Time, bool)

	// Entries lists scheduled jobs ordered by id.
	Entries() []Entry

	// Start begins running jobs in the background. It is a no-op when
	// already running.
	Start()

	// Stop halts scheduling, cancels running jobs' contexts and returns a
	// channel closed once they have returned.
	Stop() <-chan struct{}
}

// Config holds scheduler configuration.
type Config struct {
	// Location is the time zone schedules are evaluated in. Defaults to time.Local.
	Location *time.Location

	// Logger receives job failures and skipped ticks. Defaults to the process-wide logger.
	Logger *logger.Logger

	// Metrics records job runs. Nil disables metrics.
	Metrics *metrics.Registry
}

type job struct {
	id       string
	spec     string
	entryID  cron.EntryID
	created  time.Time
	runs     int64
	failures int64
}

type scheduler struct {
	cron    *cron.Cron
	parser  cron.Parser
	log     *logger.Logger
	metrics *metrics.Registry

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.RWMutex
	jobs map[string]*job
}

// Parser accepts five-field cron expressions, six-field ones with leading
// seconds, and descriptors.
var Parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New creates a scheduler with default configuration.
func New() Scheduler {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a scheduler with custom configuration.
func NewWithConfig(cfg Config) Scheduler {
	location := cfg.Location
	if location == nil {
		location = time.Local
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	log = log.WithComponent("scheduler")

	cronLog := cronLogger{log: log}
	ctx, cancel := context.WithCancel(context.Background())

	return &scheduler{
		cron: cron.New(
			cron.WithLocation(location),
			cron.WithParser(Parser),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		parser:  Parser,
		log:     log,
		metrics: cfg.Metrics,
		ctx:     ctx,
		cancel:  cancel,
		jobs:    make(map[string]*job),
	}
}

// Validate reports whether spec is a valid schedule.
func Validate(spec string) error {
	if _, err := Parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

func (s *scheduler) Schedule(id string, spec string, fn Job) error {
	if id == "" {
		return fmt.Errorf("job ID cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("job cannot be nil")
	}
	schedule, err := s.parser.Parse(spec)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		return fmt.Errorf("job with ID %q already exists, remove it first", id)
	}

	j := &job{id: id, spec: spec, created: time.Now()}
	j.entryID = s.cron.Schedule(schedule, cron.FuncJob(func() { s.run(j, fn) }))
	s.jobs[id] = j
	return nil
}

// run executes one tick of a job.
func (s *scheduler) run(j *job, fn Job) {
	start := time.Now()
	err := fn(s.ctx)

	s.mu.Lock()
	j.runs++
	if err != nil {
		j.failures++
	}
	s.mu.Unlock()

	status := "ok"
	if err != nil {
		status = "error"
		s.log.Error("scheduled job failed", logger.Fields(
			"job", j.id,
			logger.FieldError, err,
			logger.FieldDuration, time.Since(start).Milliseconds(),
		))
	} else {
		s.log.Debug("scheduled job finished", logger.Fields(
			"job", j.id,
			logger.FieldDuration, time.Since(start).Milliseconds(),
		))
	}

	if s.metrics != nil {
		s.metrics.ScheduledRuns.WithLabelValues(j.id, status).Inc()
	}
}

func (s *scheduler) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, exists := s.jobs[id]
	if !exists {
		return false
	}
	s.cron.Remove(j.entryID)
	delete(s.jobs, id)
	return true
}

func (s *scheduler) Next(id string) (time.Time, bool) {
	s.mu.RLock()
	j, exists := s.jobs[id]
	s.mu.RUnlock()
	if !exists {
		return time.Time{}, false
	}

	entry := s.cron.Entry(j.entryID)
	if !entry.Valid() {
		return time.Time{}, false
	}
	if entry.Next.IsZero() {
		// Not started yet: compute from now.
		return entry.Schedule.Next(time.Now()), true
	}
	return entry.Next, true
}

func (s *scheduler) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, len(s.jobs))
	for _, j := range s.jobs {
		ce := s.cron.Entry(j.entryID)
		entries = append(entries, Entry{
			ID:       j.id,
			Spec:     j.spec,
			Next:     ce.Next,
			Prev:     ce.Prev,
			Created:  j.created,
			Runs:     j.runs,
			Failures: j.failures,
		})
	}

	sort.Slice(entries, func(i, k int) bool { return entries[i].ID < entries[k].ID })
	return entries
}

func (s *scheduler) Start() {
	s.cron.Start()
	s.log.Debug("scheduler started", logger.Fields("jobs", len(s.Entries())))
}

func (s *scheduler) Stop() <-chan struct{} {
	s.cancel()
	done := make(chan struct{})
	stopped := s.cron.Stop()
	go func() {
		<-stopped.Done()
		close(done)
	}()
	return done
}
