package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Authorization metrics
var (
	// PermissionChecksTotal tracks permission checks by outcome
	PermissionChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "permission_checks_total",
			Help: "Total number of permission checks by role and outcome",
		},
		[]string{"role", "outcome"}, // outcome: "allowed", "denied"
	)

	// PermissionCheckDuration tracks permission resolution latency
	PermissionCheckDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "permission_check_duration_seconds",
			Help:    "Permission check duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)

	// PermissionCacheHits tracks permission set cache lookups
	PermissionCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "permission_cache_lookups_total",
			Help: "Total permission set cache lookups by result",
		},
		[]string{"result"}, // result: "hit", "miss"
	)
)

// Onboarding metrics
var (
	// OnboardingStepsTotal tracks step completions and un-completions
	OnboardingStepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_steps_total",
			Help: "Total onboarding step updates by step and action",
		},
		[]string{"step", "action"}, // action: "completed", "uncompleted"
	)

	// OnboardingCompletedTotal tracks finished onboardings
	OnboardingCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_completed_total",
			Help: "Total completed onboardings by path",
		},
		[]string{"path"}, // path: "steps", "skip"
	)

	// OnboardingRemindersSent tracks reminder emails enqueued by the sweep
	OnboardingRemindersSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "onboarding_reminders_sent_total",
			Help: "Total onboarding reminder emails enqueued",
		},
	)
)

// Plan generation metrics
var (
	// PlanGenerationsTotal tracks plan generation requests by status
	PlanGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plan_generations_total",
			Help: "Total number of plan generations by status",
		},
		[]string{"model", "status"}, // status: "completed", "failed"
	)

	// PlanGenerationDuration tracks end-to-end generation latency
	PlanGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plan_generation_duration_seconds",
			Help:    "Plan generation duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"model"},
	)

	// PlanGenerationsInProgress tracks in-flight generations
	PlanGenerationsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "plan_generations_in_progress",
			Help: "Number of plan generations currently in progress",
		},
	)

	// PlanTokensUsed tracks LLM token consumption
	PlanTokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plan_tokens_used_total",
			Help: "Total LLM tokens consumed by direction",
		},
		[]string{"model", "direction"}, // direction: "input", "output"
	)

	// PlanExportsTotal tracks plan exports to object storage
	PlanExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plan_exports_total",
			Help: "Total plan exports by format and status",
		},
		[]string{"format", "status"},
	)
)

// User metrics
var (
	// UsersRegisteredTotal tracks account registrations
	UsersRegisteredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "users_registered_total",
			Help: "Total number of registered users",
		},
	)

	// LoginsTotal tracks login attempts by outcome
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logins_total",
			Help: "Total login attempts by outcome",
		},
		[]string{"outcome"}, // outcome: "success", "failure", "locked"
	)

	// ResourceSharesTotal tracks resource shares between users
	ResourceSharesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resource_shares_total",
			Help: "Total resources shared by resource type",
		},
		[]string{"resource_type"},
	)
)

// Job metrics
var (
	// JobsProcessedTotal tracks background jobs by type and status
	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_processed_total",
			Help: "Total background jobs processed by type and status",
		},
		[]string{"type", "status"},
	)

	// JobDuration tracks job handler duration
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Background job duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"type"},
	)
)
