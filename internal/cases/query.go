package cases

import (
	"context"

	"beacon/internal/timeline"
	"beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
)

// visibleTo is the access predicate over cases. Reporters see their own
// cases, responders see cases assigned to them, dispatchers and admins see
// everything. Anonymous cases are visible to staff only.
func visibleTo(viewer Viewer, c Case) bool {
	switch viewer.Role {
	case domain.RoleDispatcher, domain.RoleAdmin:
		return true
	case domain.RoleReporter:
		return c.ReporterID != nil && *c.ReporterID == viewer.UserID
	case domain.RoleResponder:
		return viewer.ResponderID != nil &&
			c.AssignedResponderID != nil &&
			*c.AssignedResponderID == *viewer.ResponderID
	default:
		return false
	}
}

// Get returns one case the viewer is allowed to see. A case outside the
// viewer's scope reads as not found so existence does not leak.
func (s *Service) Get(ctx context.Context, viewer Viewer, id domain.CaseID) (Case, error) {
	c, err := s.getCase(ctx, id)
	if err != nil {
		return Case{}, err
	}
	if !visibleTo(viewer, c) {
		return Case{}, dErrors.New(dErrors.CodeNotFound, "case not found")
	}
	return s.unsealCase(c)
}

// ListQuery narrows List results within the viewer's scope.
type ListQuery struct {
	Status string
	Limit  int
}

// List returns the cases in the viewer's scope, newest first. The scope is
// pushed into the store filter rather than applied after the fact, so a
// reporter's query never pulls other reporters' rows.
func (s *Service) List(ctx context.Context, viewer Viewer, q ListQuery) ([]Case, error) {
	filter := Filter{Limit: q.Limit}

	switch viewer.Role {
	case domain.RoleReporter:
		uid := viewer.UserID
		filter.ReporterID = &uid
	case domain.RoleResponder:
		if viewer.ResponderID == nil {
			return nil, dErrors.New(dErrors.CodeForbidden, "responder identity required")
		}
		filter.ResponderID = viewer.ResponderID
	case domain.RoleDispatcher, domain.RoleAdmin:
		// Unscoped.
	default:
		return nil, dErrors.New(dErrors.CodeForbidden, "unknown role")
	}

	if q.Status != "" {
		status, err := domain.ParseCaseStatus(q.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}

	cases, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list cases")
	}
	for i := range cases {
		unsealed, err := s.unsealCase(cases[i])
		if err != nil {
			return nil, err
		}
		cases[i] = unsealed
	}
	return cases, nil
}

// Timeline returns the append-only history of a case the viewer can see.
func (s *Service) Timeline(ctx context.Context, viewer Viewer, id domain.CaseID) ([]timeline.Entry, error) {
	if _, err := s.Get(ctx, viewer, id); err != nil {
		return nil, err
	}
	entries, err := s.timeline.ListByCase(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list timeline")
	}
	return entries, nil
}

// Verifications returns the successful identity checks recorded on a case.
func (s *Service) Verifications(ctx context.Context, viewer Viewer, id domain.CaseID) ([]ResponderVerification, error) {
	if _, err := s.Get(ctx, viewer, id); err != nil {
		return nil, err
	}
	records, err := s.verifications.ListByCase(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list verifications")
	}
	return records, nil
}
