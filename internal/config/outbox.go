package config

import "time"

// OutboxConfig controls the background side-effect machinery: the outbox
// relay, the re-drive consumer and the stale refund reconciler.
type OutboxConfig struct {
	Enabled     bool
	RelaySpec   string        // cron spec of the relay sweep
	Grace       time.Duration // minimum age before the relay picks an event
	MaxAttempts int           // dispatches before an event is parked as dead
	BatchSize   int
	Queue       string
	Prefetch    int
	LockTTL     time.Duration // per-event re-drive lock in Redis
	LockPrefix  string

	ReconcileSpec    string        // cron spec of the stale refund sweep
	RefundStaleAfter time.Duration // pending refunds older than this are resumed
}

// LoadOutboxConfig reads the OUTBOX_*, RECONCILE_SPEC and
// REFUND_STALE_AFTER variables.
func LoadOutboxConfig() OutboxConfig {
	c := OutboxConfig{
		Enabled:     envBool("OUTBOX_ENABLED", true),
		RelaySpec:   envStr("OUTBOX_RELAY_SPEC", "@every 30s"),
		Grace:       envDur("OUTBOX_GRACE", time.Minute),
		MaxAttempts: envInt("OUTBOX_MAX_ATTEMPTS", 10),
		BatchSize:   envInt("OUTBOX_BATCH_SIZE", 100),
		Queue:       envStr("OUTBOX_QUEUE", "booking.side_effects"),
		Prefetch:    envInt("OUTBOX_PREFETCH", 20),
		LockTTL:     envDur("OUTBOX_LOCK_TTL", 2*time.Minute),
		LockPrefix:  envStr("OUTBOX_LOCK_PREFIX", "outbox:redrive"),

		ReconcileSpec:    envStr("RECONCILE_SPEC", "@every 5m"),
		RefundStaleAfter: envDur("REFUND_STALE_AFTER", 15*time.Minute),
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.BatchSize < 1 {
		c.BatchSize = 1
	}
	if c.Prefetch < 1 {
		c.Prefetch = 1
	}
	if c.Grace < 0 {
		c.Grace = 0
	}
	return c
}

// FitRefundTimeout raises Grace and LockTTL to at least twice the refund
// call timeout, so neither the relay nor an expired lock hands an event to a
// worker while its request may still be waiting on the processor. It
// reports whether a value was raised.
func (c *OutboxConfig) FitRefundTimeout(refundTimeout time.Duration) bool {
	floor := 2 * refundTimeout
	raised := false
	if c.Grace < floor {
		c.Grace = floor
		raised = true
	}
	if c.LockTTL < floor {
		c.LockTTL = floor
		raised = true
	}
	return raised
}
