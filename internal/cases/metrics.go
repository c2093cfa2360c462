package cases

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	casesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_cases_created_total",
		Help: "Cases created, by computed priority",
	}, []string{"priority"})

	caseTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_case_transitions_total",
		Help: "Case status transitions, by from and to state",
	}, []string{"from", "to"})

	caseVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_case_verifications_total",
		Help: "Responder verification attempts, by method and outcome",
	}, []string{"method", "outcome"})

	autoAssignOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_case_auto_assign_total",
		Help: "Auto-assignment outcomes at case creation",
	}, []string{"outcome"})
)
