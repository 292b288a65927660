package utils

import "testing"

func TestClamp(t *testing.T) {
	tests := []struct{ in, want float64 }{{-1, 0.1}, {0.1, 0.1}, {7, 7}, {90, 50}}
	for _, tt := range tests {
		if got := Clamp(tt.in, 0.1, 50); got != tt.want {
			t.Fatalf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if got := ClampInt(5000, 1, 1000); got != 1000 {
		t.Fatalf("ClampInt = %d", got)
	}
	if got := ClampInt(-3, 1, 1000); got != 1 {
		t.Fatalf("ClampInt = %d", got)
	}
}

func TestRoundTo(t *testing.T) {
	if got := RoundTo(12305.3149, 2); got != 12305.31 {
		t.Fatalf("RoundTo = %v", got)
	}
	if got := RoundTo(2.5, 0); got != 3 {
		t.Fatalf("RoundTo = %v", got)
	}
}
