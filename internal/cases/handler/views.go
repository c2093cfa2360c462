package handler

import (
	"time"

	"beacon/internal/cases"
	"beacon/internal/timeline"
)

type locationBody struct {
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	Accuracy *float64 `json:"accuracy,omitempty"`
}

type createCaseBody struct {
	IncidentType string        `json:"incident_type"`
	Location     *locationBody `json:"location,omitempty"`
	Title        string        `json:"title,omitempty"`
	Description  string        `json:"description,omitempty"`
	Anonymous    bool          `json:"anonymous,omitempty"`
	DeviceID     string        `json:"device_id,omitempty"`
}

type assignBody struct {
	ResponderID   string `json:"responder_id"`
	AllowReassign bool   `json:"allow_reassign,omitempty"`
}

type updateStatusBody struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

type verifyBody struct {
	ResponderID string        `json:"responder_id"`
	Method      string        `json:"method"`
	Code        string        `json:"code,omitempty"`
	QRToken     string        `json:"qr_token,omitempty"`
	Location    *locationBody `json:"location,omitempty"`
}

type caseView struct {
	ID                  string        `json:"id"`
	CaseUID             string        `json:"case_uid"`
	IncidentType        string        `json:"incident_type"`
	Priority            string        `json:"priority"`
	Status              string        `json:"status"`
	Title               string        `json:"title,omitempty"`
	Description         string        `json:"description,omitempty"`
	Anonymous           bool          `json:"anonymous"`
	ReporterID          string        `json:"reporter_id,omitempty"`
	AssignedResponderID string        `json:"assigned_responder_id,omitempty"`
	AssignedAgencyID    string        `json:"assigned_agency_id,omitempty"`
	AssignedStationID   string        `json:"assigned_station_id,omitempty"`
	Location            *locationBody `json:"location,omitempty"`
	EnRouteAt           *time.Time    `json:"en_route_at,omitempty"`
	ResponseTimeSeconds *int64        `json:"response_time_seconds,omitempty"`
	Version             int           `json:"version"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
	ClosedAt            *time.Time    `json:"closed_at,omitempty"`
}

func toCaseView(c cases.Case) caseView {
	v := caseView{
		ID:                  c.ID.String(),
		CaseUID:             c.CaseUID.String(),
		IncidentType:        c.IncidentType.String(),
		Priority:            c.Priority.String(),
		Status:              string(c.Status),
		Title:               c.Title,
		Description:         c.Description,
		Anonymous:           c.Anonymous,
		EnRouteAt:           c.EnRouteAt,
		ResponseTimeSeconds: c.ResponseTimeSeconds,
		Version:             c.Version,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
		ClosedAt:            c.ClosedAt,
	}
	if c.ReporterID != nil {
		v.ReporterID = c.ReporterID.String()
	}
	if c.AssignedResponderID != nil {
		v.AssignedResponderID = c.AssignedResponderID.String()
	}
	if c.AssignedAgencyID != nil {
		v.AssignedAgencyID = c.AssignedAgencyID.String()
	}
	if c.AssignedStationID != nil {
		v.AssignedStationID = c.AssignedStationID.String()
	}
	if c.InitialLocation != nil {
		v.Location = &locationBody{
			Lat:      c.InitialLocation.Lat,
			Lng:      c.InitialLocation.Lng,
			Accuracy: c.InitialLocation.Accuracy,
		}
	}
	return v
}

type timelineEntryView struct {
	Actor       string            `json:"actor"`
	Action      string            `json:"action"`
	Description string            `json:"description,omitempty"`
	OldValue    string            `json:"old_value,omitempty"`
	NewValue    string            `json:"new_value,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

func toTimelineEntryView(e timeline.Entry) timelineEntryView {
	return timelineEntryView{
		Actor:       e.Actor.String(),
		Action:      string(e.Action),
		Description: e.Description,
		OldValue:    e.OldValue,
		NewValue:    e.NewValue,
		Metadata:    e.Metadata,
		CreatedAt:   e.CreatedAt,
	}
}

type verificationView struct {
	CaseID      string        `json:"case_id"`
	ResponderID string        `json:"responder_id"`
	Method      string        `json:"method"`
	VerifierID  string        `json:"verifier_id"`
	Location    *locationBody `json:"location,omitempty"`
	VerifiedAt  time.Time     `json:"verified_at"`
}

func toVerificationView(v cases.ResponderVerification) verificationView {
	view := verificationView{
		CaseID:      v.CaseID.String(),
		ResponderID: v.ResponderID.String(),
		Method:      string(v.Method),
		VerifierID:  v.VerifierID.String(),
		VerifiedAt:  v.VerifiedAt,
	}
	if v.Location != nil {
		view.Location = &locationBody{
			Lat:      v.Location.Lat,
			Lng:      v.Location.Lng,
			Accuracy: v.Location.Accuracy,
		}
	}
	return view
}
