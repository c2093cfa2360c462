package cases

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"beacon/internal/notify"
	"beacon/internal/timeline"
	"beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
)

// UpdateStatus moves a case along the lifecycle graph. Transitions outside
// the adjacency map are rejected, en_route stamps its own timestamp, and
// reaching on_scene derives response time from that timestamp rather than
// from updated_at.
func (s *Service) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (Case, error) {
	ctx, span := s.tracer.Start(ctx, "cases.UpdateStatus")
	defer span.End()

	target, err := domain.ParseCaseStatus(req.Status)
	if err != nil {
		return Case{}, err
	}
	if req.Actor.IsZero() {
		return Case{}, dErrors.New(dErrors.CodeInvalidInput, "status update requires an actor")
	}

	c, err := s.getCase(ctx, req.CaseID)
	if err != nil {
		return Case{}, err
	}
	if !c.Status.CanTransitionTo(target) {
		return Case{}, dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("invalid transition from %s to %s", c.Status, target))
	}

	now := s.now().UTC()
	previous := c.Status
	expectedVersion := c.Version

	c.Status = target
	c.UpdatedAt = now
	switch target {
	case domain.StatusEnRoute:
		c.EnRouteAt = &now
	case domain.StatusOnScene:
		if c.EnRouteAt != nil {
			seconds := int64(now.Sub(*c.EnRouteAt).Seconds())
			c.ResponseTimeSeconds = &seconds
		}
	}
	if target.IsTerminal() {
		c.ClosedAt = &now
	}

	err = s.transact(ctx, func(ctx context.Context) error {
		if err := s.updateCase(ctx, c, expectedVersion); err != nil {
			return err
		}

		entry := timeline.Entry{
			CaseID:      c.ID,
			Actor:       req.Actor,
			Action:      timeline.ActionStatusUpdate,
			Description: req.Notes,
			OldValue:    string(previous),
			NewValue:    string(target),
		}
		if err := s.timeline.Emit(ctx, entry); err != nil {
			return err
		}

		event := notify.NewEvent(notify.EventStatusChanged, c.ID, c.CaseUID)
		event.OldStatus = string(previous)
		event.NewStatus = string(target)
		return s.dispatcher.Notify(ctx, event)
	})
	if err != nil {
		return Case{}, err
	}
	c.Version = expectedVersion + 1

	caseTransitions.WithLabelValues(string(previous), string(target)).Inc()
	span.SetAttributes(
		attribute.String("case.uid", c.CaseUID.String()),
		attribute.String("case.status.from", string(previous)),
		attribute.String("case.status.to", string(target)),
	)
	s.logger.InfoContext(ctx, "case status changed",
		slog.String("case_uid", c.CaseUID.String()),
		slog.String("from", string(previous)),
		slog.String("to", string(target)),
	)
	return s.unsealCase(c)
}
