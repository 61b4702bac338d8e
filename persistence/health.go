package persistence

import "github.com/sirupsen/logrus"

// Observability event names (spec section 4.9), stable strings logged with
// every transition.
const (
	EventInitStarted            = "persistence.init.started"
	EventInitLoaded             = "persistence.init.loaded"
	EventInitEmptyStore         = "persistence.init.empty_store"
	EventInitFailure            = "persistence.init.failure"
	EventCheckpointAttempt      = "persistence.checkpoint.attempt"
	EventCheckpointSuccess      = "persistence.checkpoint.success"
	EventCheckpointFailure      = "persistence.checkpoint.failure"
	EventBudgetThreshold        = "persistence.budget.threshold"
	EventLegacyArtifactDetected = "persistence.legacy_artifact.detected"
	EventDegradedTransition     = "persistence.health.degraded_transition"
)

// State is the persistence orchestrator's health state machine.
type State int

const (
	StateStartingUp State = iota
	StateReady
	StateDegraded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStartingUp:
		return "starting_up"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RecoveryOutcome records the result of a startup recovery attempt.
type RecoveryOutcome int

const (
	RecoveryNone RecoveryOutcome = iota
	RecoveryLoadedSnapshot
	RecoveryEmptyStore
	RecoveryDegradedFallback
	RecoveryStrictInitFailure
	RecoveryUnsupportedLegacyEncryptedArtifact
)

// BudgetPressure is the storage-budget pressure level (spec section 4.9).
type BudgetPressure int

const (
	BudgetNormal BudgetPressure = iota
	BudgetWarning
	BudgetCritical
	BudgetAtCapacity
)

func (p BudgetPressure) String() string {
	switch p {
	case BudgetNormal:
		return "normal"
	case BudgetWarning:
		return "warning"
	case BudgetCritical:
		return "critical"
	case BudgetAtCapacity:
		return "at_capacity"
	default:
		return "unknown"
	}
}

// ErrorCode is the stable public error-code string surfaced to callers
// (spec section 4.9 — these strings are part of the public contract).
type ErrorCode string

const (
	CodeStartupLoadFailure               ErrorCode = "startup_load_failure"
	CodeStrictInitializationFailure      ErrorCode = "strict_initialization_failure"
	CodeCheckpointFailure                ErrorCode = "checkpoint_failure"
	CodeUnsupportedLegacyEncryptedArtifact ErrorCode = "unsupported_legacy_encrypted_artifact"
	CodeBudgetWarning                    ErrorCode = "budget_warning"
	CodeBudgetCritical                   ErrorCode = "budget_critical"
	CodeBudgetAtCapacity                 ErrorCode = "budget_at_capacity"
)

// ErrorInfo is the {code, message, remediation} triple surfaced to callers.
type ErrorInfo struct {
	Code        ErrorCode
	Message     string
	Remediation string
}

// BudgetDecision is the outcome of evaluating storage usage against a
// RetentionPolicy's warning/critical thresholds and mode.
type BudgetDecision int

const (
	BudgetBelowWarning BudgetDecision = iota
	BudgetDecisionWarning
	BudgetDecisionCritical
	BudgetDecisionStrictFailAtCapacity
	BudgetDecisionDegradedSkipAtCapacity
)

// EvaluateBudget classifies usedBytes against retention's thresholds and
// storage budget, returning the appropriate BudgetDecision for mode.
func EvaluateBudget(usedBytes uint64, retention RetentionPolicy, mode Mode) BudgetDecision {
	if retention.StorageBudgetBytes == 0 {
		return BudgetBelowWarning
	}
	pct := (usedBytes * 100) / retention.StorageBudgetBytes
	switch {
	case usedBytes >= retention.StorageBudgetBytes:
		if mode == ModeStrict {
			return BudgetDecisionStrictFailAtCapacity
		}
		return BudgetDecisionDegradedSkipAtCapacity
	case pct >= uint64(retention.CriticalThresholdPercent):
		return BudgetDecisionCritical
	case pct >= uint64(retention.WarningThresholdPercent):
		return BudgetDecisionWarning
	default:
		return BudgetBelowWarning
	}
}

// Health is the persistence orchestrator's observable health surface.
type Health struct {
	Mode                Mode
	State               State
	Degraded            bool
	LastRecoveryOutcome RecoveryOutcome
	LastError           *ErrorInfo
	BudgetPressure       BudgetPressure

	log *logrus.Entry
}

// NewHealth returns a fresh health surface in StateStartingUp.
func NewHealth(mode Mode) *Health {
	return &Health{
		Mode:  mode,
		State: StateStartingUp,
		log:   logrus.WithField("component", "persistence.health"),
	}
}

func (h *Health) entry() *logrus.Entry {
	if h.log == nil {
		h.log = logrus.WithField("component", "persistence.health")
	}
	return h.log
}

// StartupLoadedSnapshot transitions to Ready after a successful snapshot load.
func (h *Health) StartupLoadedSnapshot() {
	h.State = StateReady
	h.Degraded = false
	h.LastRecoveryOutcome = RecoveryLoadedSnapshot
	h.LastError = nil
	h.entry().WithFields(logrus.Fields{
		"event": EventInitLoaded, "mode": h.Mode.String(), "state": h.State.String(), "degraded": h.Degraded,
	}).Info("persistence recovered from snapshot")
}

// StartupEmptyStore transitions to Ready with no prior snapshot to load.
func (h *Health) StartupEmptyStore() {
	h.State = StateReady
	h.Degraded = false
	h.LastRecoveryOutcome = RecoveryEmptyStore
	h.LastError = nil
	h.entry().WithFields(logrus.Fields{
		"event": EventInitEmptyStore, "mode": h.Mode.String(), "state": h.State.String(), "degraded": h.Degraded,
	}).Info("persistence starting from empty store")
}

// StartupFallback transitions to Degraded after a non-fatal recovery
// failure in degraded mode. legacy indicates the failure was a legacy
// encrypted artifact.
func (h *Health) StartupFallback(err error, legacy bool) {
	h.State = StateDegraded
	h.Degraded = true
	code := CodeStartupLoadFailure
	remediation := "Inspect persistence backend/storage path and recover from latest valid snapshot."
	outcome := RecoveryDegradedFallback
	if legacy {
		code = CodeUnsupportedLegacyEncryptedArtifact
		remediation = "Remove legacy encrypted snapshots or migrate to plaintext snapshot format."
		outcome = RecoveryUnsupportedLegacyEncryptedArtifact
	}
	h.LastRecoveryOutcome = outcome
	h.LastError = &ErrorInfo{Code: code, Message: err.Error(), Remediation: remediation}
	h.entry().WithFields(logrus.Fields{
		"event": EventDegradedTransition, "mode": h.Mode.String(), "state": h.State.String(),
		"degraded": h.Degraded, "error_code": string(code), "error": err.Error(),
	}).Warn("persistence degraded on startup")
}

// StrictInitFailure transitions to Failed (strict mode only, terminal).
func (h *Health) StrictInitFailure(message string) {
	h.State = StateFailed
	h.Degraded = true
	h.LastRecoveryOutcome = RecoveryStrictInitFailure
	h.LastError = &ErrorInfo{
		Code:        CodeStrictInitializationFailure,
		Message:     message,
		Remediation: "Fix strict initialization prerequisites (manifest/store) and restart.",
	}
	h.entry().WithFields(logrus.Fields{
		"event": EventInitFailure, "mode": h.Mode.String(), "state": h.State.String(),
		"degraded": h.Degraded, "error_code": string(CodeStrictInitializationFailure), "error": message,
	}).Error("persistence strict initialization failed")
}

// CheckpointSucceeded self-heals Degraded -> Ready, or stays Ready.
func (h *Health) CheckpointSucceeded() {
	if h.State == StateDegraded && h.Degraded {
		h.entry().WithFields(logrus.Fields{
			"event": EventDegradedTransition, "mode": h.Mode.String(), "reason": "checkpoint_self_healed",
			"from": "degraded", "to": "ready",
		}).Info("persistence self-healed after successful checkpoint")
		h.State = StateReady
		h.Degraded = false
		h.LastError = nil
	} else if !h.Degraded {
		h.State = StateReady
		h.LastError = nil
	}
	h.entry().WithFields(logrus.Fields{
		"event": EventCheckpointSuccess, "mode": h.Mode.String(), "state": h.State.String(), "degraded": h.Degraded,
	}).Info("checkpoint succeeded")
}

// CheckpointFailed records a checkpoint failure: terminal Failed in strict
// mode, Degraded in degraded mode.
func (h *Health) CheckpointFailed(err error, strictMode bool) {
	h.LastError = &ErrorInfo{
		Code:        CodeCheckpointFailure,
		Message:     err.Error(),
		Remediation: "Retry checkpoint and inspect backend I/O/log output for root cause.",
	}
	if strictMode {
		h.State = StateFailed
		h.Degraded = true
		h.entry().WithFields(logrus.Fields{
			"event": EventCheckpointFailure, "mode": h.Mode.String(), "state": h.State.String(),
			"degraded": h.Degraded, "error_code": string(CodeCheckpointFailure), "error": err.Error(),
		}).Error("checkpoint failed in strict mode")
	} else {
		h.State = StateDegraded
		h.Degraded = true
		h.entry().WithFields(logrus.Fields{
			"event": EventCheckpointFailure, "mode": h.Mode.String(), "state": h.State.String(),
			"degraded": h.Degraded, "error_code": string(CodeCheckpointFailure), "error": err.Error(),
		}).Warn("checkpoint failed in degraded mode")
	}
}

// ApplyBudgetDecision updates BudgetPressure (and LastError, where
// applicable) in response to a BudgetDecision from EvaluateBudget.
func (h *Health) ApplyBudgetDecision(decision BudgetDecision) {
	previous := h.BudgetPressure
	switch decision {
	case BudgetBelowWarning:
		h.BudgetPressure = BudgetNormal
	case BudgetDecisionWarning:
		h.BudgetPressure = BudgetWarning
		h.LastError = &ErrorInfo{
			Code:        CodeBudgetWarning,
			Message:     "persistence storage crossed warning threshold",
			Remediation: "Review retention/checkpoint policy to reduce snapshot churn.",
		}
	case BudgetDecisionCritical:
		h.BudgetPressure = BudgetCritical
		h.LastError = &ErrorInfo{
			Code:        CodeBudgetCritical,
			Message:     "persistence storage crossed critical threshold",
			Remediation: "Delete stale snapshots or increase storage budget before capacity is hit.",
		}
	case BudgetDecisionStrictFailAtCapacity, BudgetDecisionDegradedSkipAtCapacity:
		h.BudgetPressure = BudgetAtCapacity
		h.LastError = &ErrorInfo{
			Code:        CodeBudgetAtCapacity,
			Message:     "persistence storage budget exhausted",
			Remediation: "Free storage or adjust retention budget/checkpoint frequency immediately.",
		}
	}
	if previous != h.BudgetPressure {
		h.entry().WithFields(logrus.Fields{
			"event": EventBudgetThreshold, "mode": h.Mode.String(), "state": h.State.String(),
			"degraded": h.Degraded, "budget_pressure": h.BudgetPressure.String(),
		}).Warn("budget pressure changed")
	}
}
