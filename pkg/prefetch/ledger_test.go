package prefetch

import (
	"testing"
	"time"
)

func ledgerAt(maxAttempts int, cooldown time.Duration) (*FailureLedger, *time.Time) {
	now := time.Now()
	l := NewFailureLedger(maxAttempts, cooldown)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLedgerCooldownAfterBudget(t *testing.T) {
	l, _ := ledgerAt(3, time.Minute)

	key := ResourceKey("bundle/step2")
	for i := 1; i <= 2; i++ {
		if got := l.RecordFailure(key, ReasonTimeout); got != i {
			t.Fatalf("expected %d attempts, got %d", i, got)
		}
		if l.InCooldown(key) {
			t.Fatalf("unexpected cooldown after %d attempts", i)
		}
	}

	l.RecordFailure(key, ReasonNetwork)
	if !l.InCooldown(key) {
		t.Fatal("expected cooldown after third failure")
	}
	if got := l.LastReason(key); got != ReasonNetwork {
		t.Fatalf("expected last reason network_error, got %v", got)
	}
}

func TestLedgerCooldownExpiryResetsCount(t *testing.T) {
	l, now := ledgerAt(3, time.Minute)

	key := ResourceKey("bundle/step3")
	for i := 0; i < 3; i++ {
		l.RecordFailure(key, ReasonTimeout)
	}
	if !l.InCooldown(key) {
		t.Fatal("expected cooldown")
	}

	*now = now.Add(61 * time.Second)
	if l.InCooldown(key) {
		t.Fatal("expected cooldown to expire")
	}
	// Expiry drops the record, so the budget starts fresh.
	if got := l.Attempts(key); got != 0 {
		t.Fatalf("expected attempts reset to 0, got %d", got)
	}
}

func TestLedgerSuccessClearsRecord(t *testing.T) {
	l, _ := ledgerAt(3, time.Minute)

	key := ResourceKey("bundle/step4")
	l.RecordFailure(key, ReasonResource)
	l.RecordFailure(key, ReasonResource)
	l.RecordSuccess(key)

	if got := l.Attempts(key); got != 0 {
		t.Fatalf("expected attempts cleared, got %d", got)
	}
}

func TestLedgerClearAll(t *testing.T) {
	l, _ := ledgerAt(1, time.Minute)

	l.RecordFailure("a", ReasonTimeout)
	l.RecordFailure("b", ReasonModule)
	if got := l.Size(); got != 2 {
		t.Fatalf("expected 2 records, got %d", got)
	}

	l.ClearAll()
	if got := l.Size(); got != 0 {
		t.Fatalf("expected empty ledger, got %d", got)
	}
	if l.InCooldown("a") {
		t.Fatal("expected cooldown cleared")
	}
}
