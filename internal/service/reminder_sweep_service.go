package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/training-crm-console/internal/dto"
	"github.com/noah-isme/training-crm-console/internal/models"
	"github.com/noah-isme/training-crm-console/pkg/upstream"
)

type dueTodoLister interface {
	ListTodos(ctx context.Context, status models.TodoStatus, dueBefore time.Time) ([]models.Todo, error)
}

type dueReminderGauge interface {
	SetDueReminders(count int)
}

// ReminderSweepService periodically collects pending reminders that are due and keeps the latest
// snapshot for the console bell.
type ReminderSweepService struct {
	upstream     dueTodoLister
	metrics      dueReminderGauge
	schedule     string
	serviceToken string
	logger       *zap.Logger
	now          func() time.Time

	mu       sync.RWMutex
	snapshot dto.DueReminders
	cron     *cron.Cron
}

// NewReminderSweepService constructs the sweep. metrics may be nil.
func NewReminderSweepService(upstream dueTodoLister, metrics dueReminderGauge, schedule, serviceToken string, logger *zap.Logger) *ReminderSweepService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == "" {
		schedule = "*/5 * * * *"
	}
	return &ReminderSweepService{
		upstream:     upstream,
		metrics:      metrics,
		schedule:     schedule,
		serviceToken: serviceToken,
		logger:       logger,
		now:          time.Now,
		snapshot:     dto.DueReminders{Todos: []models.Todo{}},
	}
}

// Start registers the sweep on its cron schedule and runs it once immediately.
func (s *ReminderSweepService) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Warn("reminder sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("register reminder sweep %q: %w", s.schedule, err)
	}

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()

	go func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Warn("initial reminder sweep failed", zap.Error(err))
		}
	}()
	c.Start()
	s.logger.Info("reminder sweep scheduled", zap.String("cron", s.schedule))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *ReminderSweepService) Stop() {
	s.mu.RLock()
	c := s.cron
	s.mu.RUnlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}

// Sweep fetches pending reminders due by now, newest reminder time last.
func (s *ReminderSweepService) Sweep(ctx context.Context) (dto.DueReminders, error) {
	if s.serviceToken != "" {
		ctx = upstream.WithToken(ctx, s.serviceToken)
	}
	now := s.now()
	todos, err := s.upstream.ListTodos(ctx, models.TodoPending, now)
	if err != nil {
		return dto.DueReminders{}, err
	}

	due := make([]models.Todo, 0, len(todos))
	for _, todo := range todos {
		if !todo.Status.Open() {
			continue
		}
		at, ok := todo.DueAt(now.Location())
		if !ok || at.After(now) {
			continue
		}
		due = append(due, todo)
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].SortKey() < due[j].SortKey()
	})

	snapshot := dto.DueReminders{Count: len(due), Todos: due, CheckedAt: now.UTC()}
	s.mu.Lock()
	s.snapshot = snapshot
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.SetDueReminders(snapshot.Count)
	}
	s.logger.Debug("reminder sweep finished", zap.Int("due", snapshot.Count))
	return snapshot, nil
}

// Due returns the latest sweep snapshot.
func (s *ReminderSweepService) Due() dto.DueReminders {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snapshot
	out.Todos = append([]models.Todo(nil), s.snapshot.Todos...)
	if out.Todos == nil {
		out.Todos = []models.Todo{}
	}
	return out
}
