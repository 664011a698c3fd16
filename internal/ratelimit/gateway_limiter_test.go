package ratelimit

import "testing"

func TestGatewayLimiter_DeniesWhenGlobalExhausted(t *testing.T) {
	l := NewGatewayLimiter(60, 6000, 6000) // 1/s global
	if !l.Allow("u1", "m1", 1) {
		t.Fatal("expected first request to be admitted")
	}
	if l.Allow("u1", "m1", 1) {
		t.Fatal("expected second immediate request to exhaust the global bucket")
	}
}

func TestGatewayLimiter_TierMultiplierScalesUserBucket(t *testing.T) {
	l := NewGatewayLimiter(6000, 60, 6000) // 1/s per-user baseline
	if !l.Allow("u1", "m1", 3) {
		t.Fatal("expected first request admitted")
	}
	if !l.Allow("u1", "m1", 3) {
		t.Fatal("expected tier multiplier to grant extra burst capacity")
	}
}

func TestGatewayLimiter_PerModelIndependentOfUser(t *testing.T) {
	l := NewGatewayLimiter(6000, 6000, 60) // 1/s per-model
	if !l.Allow("u1", "shared-model", 1) {
		t.Fatal("expected first request admitted")
	}
	if l.Allow("u2", "shared-model", 1) {
		t.Fatal("expected per-model bucket to deny a second user hitting the same model immediately")
	}
}
