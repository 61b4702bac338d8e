package persistence

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var (
	checkpointsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "x0x",
		Subsystem: "persistence",
		Name:      "checkpoints_total",
		Help:      "Total checkpoint attempts by outcome.",
	}, []string{"entity_id", "outcome"})

	orchestratorState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "x0x",
		Subsystem: "persistence",
		Name:      "health_state",
		Help:      "Current persistence health state (0=starting_up,1=ready,2=degraded,3=failed).",
	}, []string{"entity_id"})
)

func init() {
	prometheus.MustRegister(checkpointsTotal, orchestratorState)
}

// Backend is the storage contract the orchestrator drives (C8).
type Backend interface {
	Checkpoint(request CheckpointRequest, envelope SnapshotEnvelope) error
	LoadLatest(entityId string) (SnapshotEnvelope, error)
	DeleteEntity(entityId string) error
}

// Orchestrator ties together the scheduler, backend, and health surface
// for a single entity's durable storage (spec section 4.9).
type Orchestrator struct {
	backend   Backend
	policy    Policy
	entityId  string
	storeRoot string
	scheduler *CheckpointScheduler
	Health    *Health
	log       *logrus.Entry
}

// NewOrchestrator constructs an orchestrator for entityId, without
// performing recovery — call Recover to do that.
func NewOrchestrator(backend Backend, policy Policy, storeRoot, entityId string) *Orchestrator {
	return &Orchestrator{
		backend:   backend,
		policy:    policy,
		entityId:  entityId,
		storeRoot: storeRoot,
		scheduler: NewCheckpointScheduler(policy.Checkpoint),
		Health:    NewHealth(policy.Mode),
		log:       logrus.WithField("component", "persistence.orchestrator").WithField("entity_id", entityId),
	}
}

// Recover performs startup recovery per spec section 4.9 and returns the
// decoded snapshot payload, or emptyValue if the store is empty/degraded.
func (o *Orchestrator) Recover(emptyValue []byte) ([]byte, error) {
	o.log.WithField("event", EventInitStarted).Info("persistence recovery started")

	if o.policy.Mode == ModeStrict {
		if err := EnsureManifest(o.storeRoot, o.policy.StrictInitialization.InitializeIfMissing); err != nil {
			o.Health.StrictInitFailure(err.Error())
			return nil, err
		}
	}

	envelope, err := o.backend.LoadLatest(o.entityId)
	switch {
	case err == nil:
		o.Health.StartupLoadedSnapshot()
		return envelope.Payload, nil
	case errors.Is(err, ErrSnapshotNotFound), errors.Is(err, ErrNoLoadableSnapshot):
		o.Health.StartupEmptyStore()
		return emptyValue, nil
	default:
		if o.policy.Mode == ModeStrict {
			o.Health.StrictInitFailure(err.Error())
			return nil, err
		}
		o.Health.StartupFallback(err, IsLegacyArtifactError(err))
		return emptyValue, nil
	}
}

// MaybeCheckpoint evaluates the scheduler for a mutation observed at now
// and persists payload if the decision is Persist. Returns the Action
// taken regardless of whether a checkpoint was written.
func (o *Orchestrator) MaybeCheckpoint(now time.Time, payload []byte) (Action, error) {
	action := o.scheduler.OnMutation(now)
	if action.Kind != ActionPersist {
		return action, nil
	}
	return action, o.checkpoint(action.Reason, payload)
}

// MaybeCheckpointOnTick evaluates the scheduler's timer-tick trigger.
func (o *Orchestrator) MaybeCheckpointOnTick(now time.Time, payload []byte) (Action, error) {
	action := o.scheduler.OnTimerTick(now)
	if action.Kind != ActionPersist {
		return action, nil
	}
	return action, o.checkpoint(action.Reason, payload)
}

func (o *Orchestrator) checkpoint(reason CheckpointReason, payload []byte) error {
	o.log.WithFields(logrus.Fields{"event": EventCheckpointAttempt, "reason": reason.String()}).Debug("checkpoint attempt")
	envelope := NewSnapshotEnvelope(payload)
	err := o.backend.Checkpoint(CheckpointRequest{EntityId: o.entityId, Reason: reason}, envelope)
	if err != nil {
		checkpointsTotal.WithLabelValues(o.entityId, "failure").Inc()
		o.Health.CheckpointFailed(err, o.policy.Mode == ModeStrict)
		orchestratorState.WithLabelValues(o.entityId).Set(float64(o.Health.State))
		return err
	}
	checkpointsTotal.WithLabelValues(o.entityId, "success").Inc()
	o.scheduler.OnPersistSucceeded(time.Now())
	o.Health.CheckpointSucceeded()
	orchestratorState.WithLabelValues(o.entityId).Set(float64(o.Health.State))
	return nil
}

// GracefulShutdown attempts one final checkpoint iff the scheduler reports
// dirty state. In strict mode a failure propagates; in degraded mode it is
// absorbed into the health surface and the shutdown proceeds.
func (o *Orchestrator) GracefulShutdown(payload []byte) error {
	if !o.scheduler.Dirty() {
		return nil
	}
	err := o.checkpoint(ReasonGracefulShutdown, payload)
	if err != nil && o.policy.Mode == ModeStrict {
		return err
	}
	return nil
}

// ExplicitCheckpoint forces a checkpoint outside the scheduler's normal
// triggers (spec's ExplicitRequest reason).
func (o *Orchestrator) ExplicitCheckpoint(payload []byte) error {
	return o.checkpoint(ReasonExplicitRequest, payload)
}
