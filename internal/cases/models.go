// Package cases implements the emergency case lifecycle: creation,
// assignment, status transitions, on-scene responder verification, and the
// read projections over them.
package cases

import (
	"time"

	"beacon/pkg/domain"
)

// Case is one emergency case.
//
// Invariants: Status is always a member of the lifecycle enum; ClosedAt is
// set iff Status is terminal; ResponseTimeSeconds is set iff the case
// reached on_scene; EnRouteAt records the en_route transition so response
// time never leans on UpdatedAt.
type Case struct {
	ID      domain.CaseID
	CaseUID domain.CaseUID

	// ReporterID is nil for anonymous reports.
	ReporterID *domain.UserID
	Anonymous  bool
	DeviceID   string

	IncidentType domain.IncidentType
	Priority     domain.Priority
	Status       domain.CaseStatus

	Title       string
	Description string

	AssignedResponderID *domain.ResponderID
	AssignedAgencyID    *domain.AgencyID
	AssignedStationID   *domain.StationID

	InitialLocation *domain.Location

	// EnRouteAt is stamped on the assigned -> en_route transition;
	// ResponseTimeSeconds on en_route -> on_scene, derived from EnRouteAt.
	EnRouteAt           *time.Time
	ResponseTimeSeconds *int64

	// Version guards every mutation with a conditional update.
	Version int

	CreatedAt time.Time
	UpdatedAt time.Time
	ClosedAt  *time.Time
}

// ResponderVerification records one successful on-scene identity check.
// Failed attempts are never persisted here.
type VerificationMethod string

// Supported verification methods.
const (
	MethodQR     VerificationMethod = "qr"
	MethodCode   VerificationMethod = "code"
	MethodManual VerificationMethod = "manual"
)

var validMethods = map[VerificationMethod]bool{
	MethodQR:     true,
	MethodCode:   true,
	MethodManual: true,
}

// IsValid checks if the method is one of the supported enum values.
func (m VerificationMethod) IsValid() bool { return validMethods[m] }

// ResponderVerification is the persisted record of a successful check.
type ResponderVerification struct {
	CaseID      domain.CaseID
	ResponderID domain.ResponderID
	Method      VerificationMethod
	RawCode     string
	QRPayload   string
	VerifierID  domain.UserID
	Location    *domain.Location
	VerifiedAt  time.Time
}

// CreateCaseRequest is the inbound shape for case creation.
type CreateCaseRequest struct {
	IncidentType string
	Lat          *float64
	Lng          *float64
	Accuracy     *float64
	Title        string
	Description  string
	Anonymous    bool
	DeviceID     string
	ReporterID   *domain.UserID
}

// AssignRequest assigns (or explicitly reassigns) a responder.
type AssignRequest struct {
	CaseID      domain.CaseID
	ResponderID domain.ResponderID
	AssignedBy  domain.Actor
	// AllowReassign must be set to replace an existing assignment;
	// without it, assigning an already-assigned case is rejected.
	AllowReassign bool
}

// UpdateStatusRequest moves a case along the lifecycle graph.
type UpdateStatusRequest struct {
	CaseID domain.CaseID
	Status string
	Actor  domain.Actor
	Notes  string
}

// VerifyRequest checks a responder's identity on scene.
type VerifyRequest struct {
	CaseID      domain.CaseID
	ResponderID domain.ResponderID
	Method      VerificationMethod
	Code        string
	QRToken     string
	VerifierID  domain.UserID
	Location    *domain.Location
}

// Viewer scopes read operations: role decides the visibility predicate.
type Viewer struct {
	UserID      domain.UserID
	Role        domain.Role
	ResponderID *domain.ResponderID
}
