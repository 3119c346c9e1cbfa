package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rbudget/internal/amqp"
	"rbudget/internal/core"
	applog "rbudget/internal/log"
	"rbudget/internal/services"
)

// Projector runs a projection. *services.ProjectionService implements it.
type Projector interface {
	Project(ctx context.Context, name string, start core.Date, days int) (*services.Projection, error)
}

// ResultPublisher delivers results. *amqp.Client implements it.
type ResultPublisher interface {
	PublishResult(ctx context.Context, replyTo string, res *amqp.ProjectionResult) error
}

// ProjectionWorker answers projection requests.
type ProjectionWorker struct {
	projector   Projector
	publisher   ResultPublisher
	defaultDays int
	logger      *applog.Logger
	now         func() time.Time
}

func NewProjectionWorker(projector Projector, publisher ResultPublisher, defaultDays int, logger *applog.Logger) *ProjectionWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &ProjectionWorker{
		projector:   projector,
		publisher:   publisher,
		defaultDays: defaultDays,
		logger:      logger.WithComponent(applog.ComponentWorker),
		now:         time.Now,
	}
}

// HandleRequest projects the requested scenario and publishes the outcome.
// Requests that cannot succeed are answered with an error result and
// acknowledged. Only a failed publish or a cancelled context is returned,
// so the request is redelivered.
func (w *ProjectionWorker) HandleRequest(ctx context.Context, req *amqp.ProjectionRequest) error {
	logger := w.logger.With(applog.FieldRequestID, req.ID, applog.FieldScenario, req.Scenario)
	ctx = applog.NewContext(ctx, logger)

	res, err := w.project(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		logger.WarnContext(ctx, "Projection request failed", applog.FieldError, err)
		res = amqp.NewErrorResult(req, err)
	}

	if err := w.publisher.PublishResult(ctx, req.ReplyTo, res); err != nil {
		return fmt.Errorf("publish result: %w", err)
	}
	logger.InfoContext(ctx, "Projection request answered", "failed", res.Error != "")
	return nil
}

func (w *ProjectionWorker) project(ctx context.Context, req *amqp.ProjectionRequest) (*amqp.ProjectionResult, error) {
	start := core.DateOf(w.now().UTC())
	if req.Start != "" {
		var err error
		if start, err = core.ParseDate(req.Start); err != nil {
			return nil, err
		}
	}
	days := req.Days
	if days == 0 {
		days = w.defaultDays
	}

	p, err := w.projector.Project(ctx, req.Scenario, start, days)
	if err != nil {
		return nil, err
	}
	return amqp.NewProjectionResult(req.ID, req.Scenario, p.Start, p.Accounts, p.Days), nil
}
