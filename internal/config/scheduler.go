package config

import "time"

// SchedulerConfig tunes the lifecycle reconciliation tasks.  Interval is
// the cadence of all three tasks; HoldTTL is how long an unpaid PENDING
// reservation blocks its slot before ReleaseExpiredHolds cancels it.
type SchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
	HoldTTL  time.Duration
}

// LoadSchedulerConfig reads environment variables to build a
// SchedulerConfig.  Defaults: tasks every minute, holds live 15 minutes.
func LoadSchedulerConfig() SchedulerConfig {
	cfg := SchedulerConfig{
		Enabled:  envBool("SCHEDULER_ENABLED", true),
		Interval: envDur("SCHEDULER_INTERVAL", time.Minute),
		HoldTTL:  envDur("HOLD_TTL", 15*time.Minute),
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = 15 * time.Minute
	}
	return cfg
}
