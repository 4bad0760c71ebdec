package resilience

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// StepCriticality determines how the workflow handles a step that failed
// after its retries were exhausted.
type StepCriticality int

const (
	// Critical steps fail the workflow and mark the ticket as errored.
	Critical StepCriticality = iota

	// BestEffort steps are logged and skipped. Ticket status is unaffected.
	BestEffort
)

// String returns a human-readable name for the criticality level.
func (c StepCriticality) String() string {
	switch c {
	case Critical:
		return "critical"
	case BestEffort:
		return "best-effort"
	default:
		return "unknown"
	}
}

// Triage step names. They double as the stage reported by the progress query.
const (
	StepLoadTicket            = "load_ticket"
	StepClassify              = "classify"
	StepPersistClassification = "persist_classification"
	StepAssign                = "assign"
	StepPersistAssignment     = "persist_assignment"
	StepNotify                = "notify"
	StepPublish               = "publish"
	StepMarkError             = "mark_error"
	StepLoadUser              = "load_user"
	StepSendWelcome           = "send_welcome"
)

// StepConfig holds the timeout, retry, and criticality settings of one workflow step.
type StepConfig struct {
	// Name is the step identifier.
	Name string

	// Criticality determines behaviour when retries are exhausted.
	Criticality StepCriticality

	// MaxAttempts bounds total executions, first try included.
	MaxAttempts int32

	// StartToCloseTimeout bounds a single attempt.
	StartToCloseTimeout time.Duration

	// InitialInterval is the delay before the first retry.
	InitialInterval time.Duration

	// BackoffCoefficient controls exponential growth of the retry interval.
	BackoffCoefficient float64

	// MaxInterval caps the retry interval.
	MaxInterval time.Duration
}

// RetryPolicy builds the Temporal retry policy for the step.
func (s StepConfig) RetryPolicy() *temporal.RetryPolicy {
	return &temporal.RetryPolicy{
		InitialInterval:        s.InitialInterval,
		BackoffCoefficient:     s.BackoffCoefficient,
		MaximumInterval:        s.MaxInterval,
		MaximumAttempts:        s.MaxAttempts,
		NonRetryableErrorTypes: NonRetryableErrorTypes,
	}
}

// ActivityOptions builds the activity options for the step.
func (s StepConfig) ActivityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: s.StartToCloseTimeout,
		RetryPolicy:         s.RetryPolicy(),
	}
}

// StepSettings are the tunables that feed DefaultStepConfigs.
type StepSettings struct {
	MaxAttempts     int32
	StepTimeout     time.Duration
	ClassifyTimeout time.Duration
}

// withDefaults fills zero-valued settings.
func (s StepSettings) withDefaults() StepSettings {
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = 3
	}
	if s.StepTimeout <= 0 {
		s.StepTimeout = 30 * time.Second
	}
	if s.ClassifyTimeout <= 0 {
		s.ClassifyTimeout = 2 * time.Minute
	}
	return s
}

// DefaultStepConfigs returns the step configurations for the triage and
// welcome workflows.
func DefaultStepConfigs(settings StepSettings) map[string]StepConfig {
	s := settings.withDefaults()

	critical := func(name string, timeout time.Duration) StepConfig {
		return StepConfig{
			Name:                name,
			Criticality:         Critical,
			MaxAttempts:         s.MaxAttempts,
			StartToCloseTimeout: timeout,
			InitialInterval:     time.Second,
			BackoffCoefficient:  2.0,
			MaxInterval:         30 * time.Second,
		}
	}
	bestEffort := func(name string) StepConfig {
		return StepConfig{
			Name:                name,
			Criticality:         BestEffort,
			MaxAttempts:         s.MaxAttempts,
			StartToCloseTimeout: s.StepTimeout,
			InitialInterval:     time.Second,
			BackoffCoefficient:  2.0,
			MaxInterval:         10 * time.Second,
		}
	}

	configs := map[string]StepConfig{
		StepLoadTicket:            critical(StepLoadTicket, s.StepTimeout),
		StepClassify:              critical(StepClassify, s.ClassifyTimeout),
		StepPersistClassification: critical(StepPersistClassification, s.StepTimeout),
		StepAssign:                critical(StepAssign, s.StepTimeout),
		StepPersistAssignment:     critical(StepPersistAssignment, s.StepTimeout),
		StepNotify:                bestEffort(StepNotify),
		StepPublish:               bestEffort(StepPublish),
		StepLoadUser:              critical(StepLoadUser, s.StepTimeout),
		StepSendWelcome:           critical(StepSendWelcome, s.StepTimeout),
	}

	// Error marking runs after a failure and gets its own short, bounded policy.
	configs[StepMarkError] = StepConfig{
		Name:                StepMarkError,
		Criticality:         BestEffort,
		MaxAttempts:         5,
		StartToCloseTimeout: 10 * time.Second,
		InitialInterval:     500 * time.Millisecond,
		BackoffCoefficient:  2.0,
		MaxInterval:         5 * time.Second,
	}

	// An activity-level classify failure (timeout, lost worker) degrades to the
	// fallback classification instead of failing the ticket.
	cls := configs[StepClassify]
	cls.Criticality = BestEffort
	configs[StepClassify] = cls

	return configs
}
