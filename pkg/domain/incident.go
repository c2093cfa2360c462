package domain

import (
	"strings"

	dErrors "beacon/pkg/domain-errors"
)

// IncidentType classifies an emergency case and drives responder matching
// and the type-based priority tier.
type IncidentType string

// Supported incident types.
const (
	IncidentPolice  IncidentType = "police"
	IncidentFire    IncidentType = "fire"
	IncidentMedical IncidentType = "medical"
	IncidentGeneral IncidentType = "general"
)

var validIncidentTypes = map[IncidentType]bool{
	IncidentPolice:  true,
	IncidentFire:    true,
	IncidentMedical: true,
	IncidentGeneral: true,
}

// ParseIncidentType constructs an IncidentType from external input.
func ParseIncidentType(s string) (IncidentType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "incident type cannot be empty")
	}
	it := IncidentType(s)
	if !validIncidentTypes[it] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid incident type: "+s)
	}
	return it, nil
}

// IsValid checks if the incident type is one of the supported enum values.
func (t IncidentType) IsValid() bool { return validIncidentTypes[t] }

// String returns the string representation of the incident type.
func (t IncidentType) String() string { return string(t) }

// Priority ranks a case for dispatch ordering.
type Priority string

// Supported priorities, lowest to highest.
const (
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var validPriorities = map[Priority]bool{
	PriorityNormal:   true,
	PriorityHigh:     true,
	PriorityCritical: true,
}

// ParsePriority constructs a Priority from external input.
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !validPriorities[p] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid priority: "+s)
	}
	return p, nil
}

// criticalKeywords escalate a case to critical regardless of type. Matching
// is case-insensitive substring search over the description.
var criticalKeywords = []string{
	"chest pain",
	"fire",
	"shooting",
	"explosion",
	"unconscious",
	"not breathing",
	"severe bleeding",
}

// ComputePriority applies the two-tier rule: medical and fire incidents rank
// high; a critical keyword in the description overrides everything to
// critical.
func ComputePriority(incidentType IncidentType, description string) Priority {
	priority := PriorityNormal
	if incidentType == IncidentMedical || incidentType == IncidentFire {
		priority = PriorityHigh
	}
	lowered := strings.ToLower(description)
	for _, kw := range criticalKeywords {
		if strings.Contains(lowered, kw) {
			return PriorityCritical
		}
	}
	return priority
}

// String returns the string representation of the priority.
func (p Priority) String() string { return string(p) }
