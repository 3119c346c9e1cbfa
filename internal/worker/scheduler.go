package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"rbudget/internal/amqp"
	"rbudget/internal/core"
	applog "rbudget/internal/log"
)

// Scheduler publishes projections of fixed scenarios on a cron schedule,
// as if someone had requested them.
type Scheduler struct {
	cron   *cron.Cron
	worker *ProjectionWorker
	logger *applog.Logger
}

func NewScheduler(worker *ProjectionWorker, logger *applog.Logger) *Scheduler {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Scheduler{
		cron:   cron.New(),
		worker: worker,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// AddProjection registers a job projecting scenario for days days from the
// day it runs. Standard five-field specs and descriptors such as "@daily"
// are accepted.
func (s *Scheduler) AddProjection(ctx context.Context, spec, scenario string, days int) error {
	_, err := s.cron.AddFunc(spec, func() {
		req := amqp.NewProjectionRequest(scenario, core.DateOf(time.Now().UTC()), days)
		if err := s.worker.HandleRequest(ctx, req); err != nil {
			s.logger.ErrorContext(ctx, "Scheduled projection failed",
				applog.FieldScenario, scenario,
				applog.FieldError, err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	s.logger.Info("Projection scheduled", "schedule", spec, applog.FieldScenario, scenario, applog.FieldDays, days)
	return nil
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
