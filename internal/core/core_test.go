package core

import "testing"

func TestClampUnit(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"below range", -0.5, 0},
		{"at zero", 0, 0},
		{"in range", 0.42, 0.42},
		{"at one", 1, 1},
		{"above range", 1.7, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampUnit(tt.in); got != tt.want {
				t.Errorf("ClampUnit(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestClampSigned(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"below range", -2.5, -1},
		{"negative in range", -0.7, -0.7},
		{"zero", 0, 0},
		{"positive in range", 0.9, 0.9},
		{"above range", 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampSigned(tt.in); got != tt.want {
				t.Errorf("ClampSigned(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRecencyFactor(t *testing.T) {
	tests := []struct {
		name    string
		ageDays int
		want    float64
	}{
		{"today", 0, 1.0},
		{"within full-credit window", 60, 1.0},
		{"just past window", 120, 0.5},
		{"at horizon", 180, 0.0},
		{"beyond horizon", 365, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RecencyFactor(tt.ageDays); got != tt.want {
				t.Errorf("RecencyFactor(%d) = %v, want %v", tt.ageDays, got, tt.want)
			}
		})
	}
}

func TestRecencyFactorMonotonic(t *testing.T) {
	prev := RecencyFactor(0)
	for age := 1; age <= 200; age++ {
		cur := RecencyFactor(age)
		if cur > prev {
			t.Fatalf("recency factor increased from %v to %v at age %d", prev, cur, age)
		}
		prev = cur
	}
}
