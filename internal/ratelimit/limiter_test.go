package ratelimit

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestCheckAdmitsUnderLimit(t *testing.T) {
	l := New(zerolog.Nop())
	policy := Policy{MaxRequests: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		d := l.Check("client-a", policy)
		if !d.Allowed {
			t.Fatalf("request %d should be admitted, got denied", i)
		}
	}
}

func TestCheckDeniesOverLimit(t *testing.T) {
	l := New(zerolog.Nop())
	policy := Policy{MaxRequests: 2, Window: time.Minute}

	l.Check("client-b", policy)
	l.Check("client-b", policy)
	d := l.Check("client-b", policy)

	if d.Allowed {
		t.Fatal("third request should be denied under (2, window) policy")
	}
	if d.Remaining != 0 {
		t.Fatalf("Remaining = %d, want 0", d.Remaining)
	}
	if d.ResetIn <= 0 || d.ResetIn > policy.Window {
		t.Fatalf("ResetIn = %v, want within (0, window]", d.ResetIn)
	}
}

func TestCheckRemainingDecreases(t *testing.T) {
	l := New(zerolog.Nop())
	policy := Policy{MaxRequests: 5, Window: time.Minute}

	d1 := l.Check("client-c", policy)
	d2 := l.Check("client-c", policy)

	if d1.Remaining != 4 {
		t.Fatalf("first Remaining = %d, want 4", d1.Remaining)
	}
	if d2.Remaining != 3 {
		t.Fatalf("second Remaining = %d, want 3", d2.Remaining)
	}
}

func TestCheckResetInIsWindowOnAdmission(t *testing.T) {
	l := New(zerolog.Nop())
	policy := Policy{MaxRequests: 5, Window: 30 * time.Second}

	d := l.Check("client-d", policy)
	if d.ResetIn != policy.Window {
		t.Fatalf("ResetIn on admission = %v, want %v", d.ResetIn, policy.Window)
	}
}

func TestCheckWindowExpiryReadmits(t *testing.T) {
	l := New(zerolog.Nop())
	policy := Policy{MaxRequests: 1, Window: 20 * time.Millisecond}

	d1 := l.Check("client-e", policy)
	if !d1.Allowed {
		t.Fatal("first request should be admitted")
	}
	d2 := l.Check("client-e", policy)
	if d2.Allowed {
		t.Fatal("second immediate request should be denied")
	}

	time.Sleep(30 * time.Millisecond)

	d3 := l.Check("client-e", policy)
	if !d3.Allowed {
		t.Fatal("request after window expiry should be admitted")
	}
}

func TestLedgerNeverExceedsMaxRequests(t *testing.T) {
	l := New(zerolog.Nop())
	policy := Policy{MaxRequests: 3, Window: time.Minute}

	for i := 0; i < 10; i++ {
		l.Check("client-f", policy)
	}

	ledger := l.ledgers["client-f"]
	if len(ledger.Timestamps) > policy.MaxRequests {
		t.Fatalf("ledger length %d exceeds MaxRequests %d", len(ledger.Timestamps), policy.MaxRequests)
	}
}

func TestSeparateIdentifiersHaveIndependentLedgers(t *testing.T) {
	l := New(zerolog.Nop())
	policy := Policy{MaxRequests: 1, Window: time.Minute}

	d1 := l.Check("client-g", policy)
	d2 := l.Check("client-h", policy)

	if !d1.Allowed || !d2.Allowed {
		t.Fatal("distinct identifiers should not share admission state")
	}
}

func TestDropExpiredKeepsOnlyTimestampsAfterCutoff(t *testing.T) {
	now := time.Now()
	timestamps := []time.Time{
		now.Add(-3 * time.Second),
		now.Add(-1 * time.Second),
		now,
	}
	got := dropExpired(timestamps, now.Add(-2*time.Second))
	if len(got) != 2 {
		t.Fatalf("dropExpired kept %d timestamps, want 2", len(got))
	}
}

func TestFirstCheckOnFreshProcessDoesNotPanic(t *testing.T) {
	l := New(zerolog.Nop())
	policy := Policy{MaxRequests: 60, Window: time.Minute}
	d := l.Check("first-ever", policy)
	if !d.Allowed {
		t.Fatal("first-ever check should be admitted")
	}
}
