package audio

import (
	"errors"
	"testing"
)

func TestValidateRate(t *testing.T) {
	tests := []struct {
		rate    float64
		wantErr bool
	}{
		{0.5, false},
		{1.0, false},
		{2.0, false},
		{0.49, true},
		{2.01, true},
		{0, true},
		{-1, true},
	}

	for _, tt := range tests {
		err := ValidateRate(tt.rate)
		if tt.wantErr && !errors.Is(err, ErrRateOutOfRange) {
			t.Errorf("ValidateRate(%v) = %v, want ErrRateOutOfRange", tt.rate, err)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("ValidateRate(%v) unexpected error: %v", tt.rate, err)
		}
	}
}

func TestRateControl(t *testing.T) {
	rc := NewRateControl()

	if rc.Rate() != DefaultRate {
		t.Errorf("initial rate = %v, want %v", rc.Rate(), DefaultRate)
	}
	if got := rc.Increase(); got != 1.25 {
		t.Errorf("Increase() = %v, want 1.25", got)
	}
	if got := rc.String(); got != "1.25x" {
		t.Errorf("String() = %q, want 1.25x", got)
	}

	for i := 0; i < 10; i++ {
		rc.Increase()
	}
	if rc.Rate() != MaxRate {
		t.Errorf("rate should stop at %v, got %v", MaxRate, rc.Rate())
	}

	for i := 0; i < 10; i++ {
		rc.Decrease()
	}
	if rc.Rate() != MinRate {
		t.Errorf("rate should stop at %v, got %v", MinRate, rc.Rate())
	}

	// Off-step rates snap to the next step.
	if err := rc.Set(1.1); err != nil {
		t.Fatalf("Set(1.1) failed: %v", err)
	}
	if got := rc.Increase(); got != 1.25 {
		t.Errorf("Increase() from 1.1 = %v, want 1.25", got)
	}
	if err := rc.Set(3); err == nil {
		t.Error("Set(3) should fail")
	}
	if rc.Rate() != 1.25 {
		t.Errorf("failed Set should keep the rate, got %v", rc.Rate())
	}
}
