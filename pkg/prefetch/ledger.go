package prefetch

import (
	"sync"
	"time"
)

// failureRecord tracks consecutive failures for one resource.
type failureRecord struct {
	attempts      int
	lastReason    FailureReason
	lastFailedAt  time.Time
	cooldownUntil time.Time
}

// FailureLedger tracks per-resource consecutive failure counts and
// cooldown expiry. A resource reaching the attempt budget enters cooldown;
// expired records are dropped lazily on the next lookup, which resets the
// failure count.
type FailureLedger struct {
	mu      sync.Mutex
	records map[ResourceKey]*failureRecord

	maxAttempts int
	cooldown    time.Duration

	// now is injectable for tests.
	now func() time.Time
}

// NewFailureLedger creates a ledger with the given attempt budget and
// cooldown window.
func NewFailureLedger(maxAttempts int, cooldown time.Duration) *FailureLedger {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldownWindow
	}
	return &FailureLedger{
		records:     make(map[ResourceKey]*failureRecord),
		maxAttempts: maxAttempts,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// SetLimits updates the attempt budget and cooldown window for future
// failures. Existing cooldowns keep their original expiry.
func (l *FailureLedger) SetLimits(maxAttempts int, cooldown time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if maxAttempts >= 1 {
		l.maxAttempts = maxAttempts
	}
	if cooldown > 0 {
		l.cooldown = cooldown
	}
}

// RecordFailure records one failed attempt and returns the updated
// consecutive count. Reaching the attempt budget stamps the cooldown.
func (l *FailureLedger) RecordFailure(key ResourceKey, reason FailureReason) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.records[key]
	if rec == nil {
		rec = &failureRecord{}
		l.records[key] = rec
	}
	rec.attempts++
	rec.lastReason = reason
	rec.lastFailedAt = l.now()
	if rec.attempts >= l.maxAttempts {
		rec.cooldownUntil = rec.lastFailedAt.Add(l.cooldown)
	}
	return rec.attempts
}

// RecordSuccess clears the failure record for a resource.
func (l *FailureLedger) RecordSuccess(key ResourceKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, key)
}

// Attempts returns the current consecutive failure count.
func (l *FailureLedger) Attempts(key ResourceKey) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.lookupLocked(key)
	if rec == nil {
		return 0
	}
	return rec.attempts
}

// LastReason returns the most recent failure classification.
func (l *FailureLedger) LastReason(key ResourceKey) FailureReason {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.lookupLocked(key)
	if rec == nil {
		return ReasonNone
	}
	return rec.lastReason
}

// InCooldown reports whether the resource is currently excluded from
// prefetching. An expired cooldown clears the record, so the next attempt
// starts with a fresh budget.
func (l *FailureLedger) InCooldown(key ResourceKey) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lookupLocked(key) != nil && l.records[key].cooldownUntil.After(l.now())
}

// lookupLocked returns the live record for key, dropping it when its
// cooldown has expired.
func (l *FailureLedger) lookupLocked(key ResourceKey) *failureRecord {
	rec := l.records[key]
	if rec == nil {
		return nil
	}
	if !rec.cooldownUntil.IsZero() && !rec.cooldownUntil.After(l.now()) {
		delete(l.records, key)
		return nil
	}
	return rec
}

// ClearAll drops every failure record and cooldown.
func (l *FailureLedger) ClearAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = make(map[ResourceKey]*failureRecord)
}

// Size returns the number of tracked resources.
func (l *FailureLedger) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
