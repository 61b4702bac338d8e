// Package policyconfig loads PersistencePolicy and PolicyEnvelope from a
// YAML config file and environment overrides, the way pkg/config.Load
// loads broader node config — but scoped to exactly these two structs
// rather than growing into a general daemon config loader.
package policyconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"x0x/persistence"
)

// fileCheckpointPolicy / fileRetentionPolicy / fileStrictInit mirror
// persistence.Policy's shape with mapstructure tags and second-granularity
// durations, the way viper config structs are written throughout the
// example pack.
type fileCheckpointPolicy struct {
	MutationThreshold uint32 `mapstructure:"mutation_threshold"`
	DirtyTimeFloorSec int64  `mapstructure:"dirty_time_floor_seconds"`
	DebounceFloorSec  int64  `mapstructure:"debounce_floor_seconds"`
}

type fileRetentionPolicy struct {
	CheckpointsToKeep        uint8  `mapstructure:"checkpoints_to_keep"`
	StorageBudgetBytes       uint64 `mapstructure:"storage_budget_bytes"`
	WarningThresholdPercent  uint8  `mapstructure:"warning_threshold_percent"`
	CriticalThresholdPercent uint8  `mapstructure:"critical_threshold_percent"`
}

type fileStrictInit struct {
	InitializeIfMissing bool `mapstructure:"initialize_if_missing"`
}

type filePolicy struct {
	Enabled              bool                 `mapstructure:"enabled"`
	Mode                 string               `mapstructure:"mode"`
	Checkpoint           fileCheckpointPolicy `mapstructure:"checkpoint"`
	Retention            fileRetentionPolicy  `mapstructure:"retention"`
	StrictInitialization fileStrictInit       `mapstructure:"strict_initialization"`
}

type fileEnvelope struct {
	AllowRuntimeCheckpointFrequencyAdjustment bool   `mapstructure:"allow_runtime_checkpoint_frequency_adjustment"`
	MinMutationThreshold                      uint32 `mapstructure:"min_mutation_threshold"`
	MaxMutationThreshold                      uint32 `mapstructure:"max_mutation_threshold"`
	MinDirtyTimeFloorSec                      uint64 `mapstructure:"min_dirty_time_floor_seconds"`
	MaxDirtyTimeFloorSec                      uint64 `mapstructure:"max_dirty_time_floor_seconds"`
	MinDebounceFloorSec                       uint64 `mapstructure:"min_debounce_floor_seconds"`
	MaxDebounceFloorSec                       uint64 `mapstructure:"max_debounce_floor_seconds"`
}

type fileConfig struct {
	Persistence filePolicy   `mapstructure:"persistence"`
	HostEnvelope fileEnvelope `mapstructure:"host_envelope"`
}

// Loaded bundles a resolved, validated Policy with its host PolicyEnvelope.
type Loaded struct {
	Policy   persistence.Policy
	Envelope persistence.PolicyEnvelope
}

// Load reads configPath (YAML) plus X0X_PERSISTENCE_* environment overrides,
// validates the result, and returns the resolved policy/envelope pair.
func Load(configPath string) (Loaded, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("X0X")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Loaded{}, fmt.Errorf("load persistence config: %w", err)
	}

	var cfg fileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return Loaded{}, fmt.Errorf("decode persistence config: %w", err)
	}

	policy, err := toPolicy(cfg.Persistence)
	if err != nil {
		return Loaded{}, err
	}
	if err := policy.Validate(); err != nil {
		return Loaded{}, err
	}

	envelope := toEnvelope(cfg.HostEnvelope)
	if err := persistence.ValidateHostEnvelope(envelope); err != nil {
		return Loaded{}, err
	}
	if err := persistence.EnsurePolicyWithinEnvelope(policy, envelope); err != nil {
		return Loaded{}, err
	}

	return Loaded{Policy: policy, Envelope: envelope}, nil
}

func setDefaults(v *viper.Viper) {
	def := persistence.DefaultPolicy()
	v.SetDefault("persistence.enabled", def.Enabled)
	v.SetDefault("persistence.mode", def.Mode.String())
	v.SetDefault("persistence.checkpoint.mutation_threshold", def.Checkpoint.MutationThreshold)
	v.SetDefault("persistence.checkpoint.dirty_time_floor_seconds", int64(def.Checkpoint.DirtyTimeFloor.Seconds()))
	v.SetDefault("persistence.checkpoint.debounce_floor_seconds", int64(def.Checkpoint.DebounceFloor.Seconds()))
	v.SetDefault("persistence.retention.checkpoints_to_keep", def.Retention.CheckpointsToKeep)
	v.SetDefault("persistence.retention.storage_budget_bytes", def.Retention.StorageBudgetBytes)
	v.SetDefault("persistence.retention.warning_threshold_percent", def.Retention.WarningThresholdPercent)
	v.SetDefault("persistence.retention.critical_threshold_percent", def.Retention.CriticalThresholdPercent)
	v.SetDefault("persistence.strict_initialization.initialize_if_missing", false)

	v.SetDefault("host_envelope.allow_runtime_checkpoint_frequency_adjustment", true)
	v.SetDefault("host_envelope.min_mutation_threshold", 1)
	v.SetDefault("host_envelope.max_mutation_threshold", 10000)
	v.SetDefault("host_envelope.min_dirty_time_floor_seconds", 1)
	v.SetDefault("host_envelope.max_dirty_time_floor_seconds", 86400)
	v.SetDefault("host_envelope.min_debounce_floor_seconds", 1)
	v.SetDefault("host_envelope.max_debounce_floor_seconds", 3600)
}

func toPolicy(f filePolicy) (persistence.Policy, error) {
	mode, err := persistence.ParseMode(f.Mode)
	if err != nil {
		return persistence.Policy{}, err
	}
	return persistence.Policy{
		Enabled: f.Enabled,
		Mode:    mode,
		Checkpoint: persistence.CheckpointPolicy{
			MutationThreshold: f.Checkpoint.MutationThreshold,
			DirtyTimeFloor:    time.Duration(f.Checkpoint.DirtyTimeFloorSec) * time.Second,
			DebounceFloor:     time.Duration(f.Checkpoint.DebounceFloorSec) * time.Second,
		},
		Retention: persistence.RetentionPolicy{
			CheckpointsToKeep:        f.Retention.CheckpointsToKeep,
			StorageBudgetBytes:       f.Retention.StorageBudgetBytes,
			WarningThresholdPercent:  f.Retention.WarningThresholdPercent,
			CriticalThresholdPercent: f.Retention.CriticalThresholdPercent,
		},
		StrictInitialization: persistence.StrictInitializationPolicy{
			InitializeIfMissing: f.StrictInitialization.InitializeIfMissing,
		},
	}, nil
}

func toEnvelope(f fileEnvelope) persistence.PolicyEnvelope {
	return persistence.PolicyEnvelope{
		AllowRuntimeCheckpointFrequencyAdjustment: f.AllowRuntimeCheckpointFrequencyAdjustment,
		MinMutationThreshold:                      f.MinMutationThreshold,
		MaxMutationThreshold:                      f.MaxMutationThreshold,
		MinDirtyTimeFloorSecs:                     f.MinDirtyTimeFloorSec,
		MaxDirtyTimeFloorSecs:                     f.MaxDirtyTimeFloorSec,
		MinDebounceFloorSecs:                      f.MinDebounceFloorSec,
		MaxDebounceFloorSecs:                      f.MaxDebounceFloorSec,
	}
}
