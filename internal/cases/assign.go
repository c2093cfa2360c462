package cases

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"beacon/internal/notify"
	"beacon/internal/timeline"
	"beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
	"beacon/pkg/platform/sentinel"
)

// Assign puts a responder on a case. A case that already has a responder is
// only reassigned when the request sets AllowReassign; both the original
// and the replacement assignment stay visible in the timeline.
func (s *Service) Assign(ctx context.Context, req AssignRequest) (Case, error) {
	ctx, span := s.tracer.Start(ctx, "cases.Assign")
	defer span.End()

	if req.AssignedBy.IsZero() {
		return Case{}, dErrors.New(dErrors.CodeInvalidInput, "assignment requires an actor")
	}

	c, err := s.getCase(ctx, req.CaseID)
	if err != nil {
		return Case{}, err
	}
	if c.Status.IsTerminal() {
		return Case{}, dErrors.New(dErrors.CodeInvalidInput, "cannot assign a closed case")
	}

	responder, err := s.responders.FindByID(ctx, req.ResponderID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Case{}, dErrors.New(dErrors.CodeNotFound, "responder not found")
	}
	if err != nil {
		return Case{}, dErrors.Wrap(err, dErrors.CodeInternal, "load responder")
	}
	if !responder.Assignable() {
		// Inactive or non-responder rows read the same as absent ones so a
		// probing caller cannot tell them apart.
		return Case{}, dErrors.New(dErrors.CodeNotFound, "responder not found")
	}

	var previous string
	if c.AssignedResponderID != nil {
		if *c.AssignedResponderID == responder.ID {
			return Case{}, dErrors.New(dErrors.CodeConflict, "responder already assigned to this case")
		}
		if !req.AllowReassign {
			return Case{}, dErrors.New(dErrors.CodeConflict, "case already has a responder; set allow_reassign to replace")
		}
		previous = c.AssignedResponderID.String()
	}

	expectedVersion := c.Version
	c.AssignedResponderID = &responder.ID
	c.AssignedAgencyID = &responder.AgencyID
	c.AssignedStationID = &responder.StationID
	if c.Status == domain.StatusPending {
		c.Status = domain.StatusAssigned
	}
	c.UpdatedAt = s.now().UTC()

	err = s.transact(ctx, func(ctx context.Context) error {
		if err := s.updateCase(ctx, c, expectedVersion); err != nil {
			return err
		}

		description := "responder assigned"
		if previous != "" {
			description = "responder reassigned"
		}
		entry := timeline.Entry{
			CaseID:      c.ID,
			Actor:       req.AssignedBy,
			Action:      timeline.ActionAssigned,
			Description: description,
			OldValue:    previous,
			NewValue:    responder.ID.String(),
		}
		if err := s.timeline.Emit(ctx, entry); err != nil {
			return err
		}

		event := notify.NewEvent(notify.EventResponderAssigned, c.ID, c.CaseUID)
		event.ResponderID = responder.ID.String()
		return s.dispatcher.Notify(ctx, event)
	})
	if err != nil {
		return Case{}, err
	}
	c.Version = expectedVersion + 1

	span.SetAttributes(attribute.String("case.uid", c.CaseUID.String()))
	s.logger.InfoContext(ctx, "responder assigned",
		slog.String("case_uid", c.CaseUID.String()),
		slog.String("responder_id", responder.ID.String()),
		slog.Bool("reassigned", previous != ""),
	)
	return s.unsealCase(c)
}

// getCase loads a case and maps store sentinels onto coded errors.
func (s *Service) getCase(ctx context.Context, id domain.CaseID) (Case, error) {
	if id.IsNil() {
		return Case{}, dErrors.New(dErrors.CodeInvalidInput, "case id cannot be empty")
	}
	c, err := s.store.Get(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Case{}, dErrors.New(dErrors.CodeNotFound, "case not found")
	}
	if err != nil {
		return Case{}, dErrors.Wrap(err, dErrors.CodeInternal, "load case")
	}
	return c, nil
}

// updateCase performs the conditional write and maps a lost race onto
// CodeConflict so transports can tell the caller to retry on fresh state.
func (s *Service) updateCase(ctx context.Context, c Case, expectedVersion int) error {
	err := s.store.Update(ctx, c, expectedVersion)
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.New(dErrors.CodeConflict, "case was modified concurrently; retry with fresh state")
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "case not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "update case")
	}
	return nil
}
