// Package scheduler posts configured announcements on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"termibot/pkg/actions"
	"termibot/pkg/logger"
)

// DefaultTimeout bounds a single announcement post.
const DefaultTimeout = 30 * time.Second

// Announcement is a message posted to a channel on a schedule.
type Announcement struct {
	Name     string `mapstructure:"name" json:"name"`
	Schedule string `mapstructure:"schedule" json:"schedule"` // standard 5-field cron or @descriptor
	Channel  string `mapstructure:"channel" json:"channel"`
	Message  string `mapstructure:"message" json:"message"`
}

// Validate checks the announcement without scheduling it.
func (a Announcement) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("announcement name cannot be empty")
	}
	if a.Channel == "" {
		return fmt.Errorf("announcement %s: channel cannot be empty", a.Name)
	}
	if a.Message == "" {
		return fmt.Errorf("announcement %s: message cannot be empty", a.Name)
	}
	if _, err := cron.ParseStandard(a.Schedule); err != nil {
		return fmt.Errorf("announcement %s: invalid cron schedule %q: %w", a.Name, a.Schedule, err)
	}
	return nil
}

// ActionHandler resolves actions. *actions.Handler implements it.
type ActionHandler interface {
	Handle(ctx context.Context, action actions.Action) error
}

// Entry reports a scheduled announcement.
type Entry struct {
	Name     string
	Schedule string
	Next     time.Time
	Prev     time.Time
}

// Scheduler runs announcements.
type Scheduler struct {
	log     *logger.Logger
	handler ActionHandler
	timeout time.Duration

	cron    *cron.Cron
	mu      sync.RWMutex
	jobs    map[string]Announcement
	entries map[string]cron.EntryID

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler resolving announcements through handler.
func New(log *logger.Logger, handler ActionHandler) *Scheduler {
	log = log.Named("scheduler")
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		log:     log,
		handler: handler,
		timeout: DefaultTimeout,
		cron:    cron.New(cron.WithChain(cron.Recover(cronLogger{log}))),
		jobs:    make(map[string]Announcement),
		entries: make(map[string]cron.EntryID),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add schedules an announcement. Names must be unique.
func (s *Scheduler) Add(a Announcement) error {
	if err := a.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[a.Name]; exists {
		return fmt.Errorf("announcement %s already scheduled", a.Name)
	}

	id, err := s.cron.AddFunc(a.Schedule, func() { s.fire(a) })
	if err != nil {
		return fmt.Errorf("scheduling announcement %s: %w", a.Name, err)
	}
	s.jobs[a.Name] = a
	s.entries[a.Name] = id

	s.log.Info("Scheduled announcement",
		zap.String("name", a.Name),
		zap.String("schedule", a.Schedule),
		zap.String("channel", a.Channel))
	return nil
}

// Remove unschedules an announcement.
func (s *Scheduler) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, exists := s.entries[name]
	if !exists {
		return fmt.Errorf("announcement not found: %s", name)
	}
	s.cron.Remove(id)
	delete(s.entries, name)
	delete(s.jobs, name)

	s.log.Info("Removed announcement", zap.String("name", name))
	return nil
}

// Reconcile makes the scheduled set match want: announcements missing from
// want are removed, changed ones are rescheduled and new ones added.
// Unchanged announcements keep their cron entry.
func (s *Scheduler) Reconcile(want []Announcement) error {
	desired := make(map[string]Announcement, len(want))
	for _, a := range want {
		desired[a.Name] = a
	}

	s.mu.RLock()
	var stale []string
	for name, current := range s.jobs {
		if a, ok := desired[name]; !ok || a != current {
			stale = append(stale, name)
		}
	}
	s.mu.RUnlock()

	var errs []error
	for _, name := range stale {
		if err := s.Remove(name); err != nil {
			errs = append(errs, err)
		}
	}

	for _, a := range want {
		s.mu.RLock()
		_, scheduled := s.jobs[a.Name]
		s.mu.RUnlock()
		if scheduled {
			continue
		}
		if err := s.Add(a); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Entries returns the scheduled announcements sorted by name.
func (s *Scheduler) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.entries))
	for name, id := range s.entries {
		e := s.cron.Entry(id)
		out = append(out, Entry{
			Name:     name,
			Schedule: s.jobs[name].Schedule,
			Next:     e.Next,
			Prev:     e.Prev,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Start starts running announcements in the background.
func (s *Scheduler) Start() {
	s.log.Info("Starting scheduler", zap.Int("announcements", len(s.Entries())))
	s.cron.Start()
}

// Stop stops the scheduler and waits for running announcements, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.log.Info("Stopping scheduler")

	done := s.cron.Stop()
	s.cancel()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) fire(a Announcement) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	action := actions.MessageChannel{Channel: a.Channel, Message: a.Message}
	if err := s.handler.Handle(ctx, action); err != nil {
		s.log.Error("Announcement failed",
			zap.String("name", a.Name),
			zap.String("channel", a.Channel),
			zap.Error(err))
		return
	}
	s.log.Debug("Announcement posted", zap.String("name", a.Name))
}

// cronLogger adapts the logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
