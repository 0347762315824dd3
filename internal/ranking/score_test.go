package ranking

import (
	"errors"
	"math"
	"testing"
)

func TestLocationMatches(t *testing.T) {
	tests := []struct {
		user, posting string
		want          bool
	}{
		{"pune", "pune", true},
		{"delhi", "remote", true},
		{"remote", "bangalore", true},
		{"new delhi", "delhi ncr", true},
		{"navi mumbai", "mumbai", true},
		{"chennai", "kolkata", false},
		{"", "remote", false},
		{"remote", "", false},
	}
	for _, tt := range tests {
		if got := locationMatches(tt.user, tt.posting); got != tt.want {
			t.Fatalf("locationMatches(%q, %q) = %v, want %v", tt.user, tt.posting, got, tt.want)
		}
	}
}

func TestEducationMatches(t *testing.T) {
	tests := []struct {
		user, required string
		want           bool
	}{
		{"b.tech", "b.tech", true},
		{"b.tech in computer science", "b.tech", true},
		{"mba", "mba or pgdm", true},
		{"bca", "b.tech", false},
		{"", "b.tech", false},
	}
	for _, tt := range tests {
		if got := educationMatches(tt.user, tt.required); got != tt.want {
			t.Fatalf("educationMatches(%q, %q) = %v, want %v", tt.user, tt.required, got, tt.want)
		}
	}
}

func TestCosine(t *testing.T) {
	sim, err := cosine([]float32{3, 4}, []float32{4, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(sim-0.96) > 1e-9 {
		t.Fatalf("expected 0.96, got %v", sim)
	}

	if _, err := cosine([]float32{1, 0}, []float32{1, 0, 0}); !errors.Is(err, errLengthMismatch) {
		t.Fatalf("expected a length mismatch, got %v", err)
	}
	if _, err := cosine([]float32{0, 0}, []float32{1, 0}); !errors.Is(err, errZeroNorm) {
		t.Fatalf("expected a zero norm error, got %v", err)
	}
}

func TestSimilarityOrZero(t *testing.T) {
	query := []float32{1, 0}
	for name, doc := range map[string][]float32{
		"no vector":       nil,
		"wrong dimension": {1, 0, 0},
		"zero vector":     {0, 0},
	} {
		if got := similarityOrZero(query, doc); got != 0 {
			t.Fatalf("%s: expected 0, got %v", name, got)
		}
	}
}
