package model

import "testing"

func TestDeriveTopic(t *testing.T) {
	tests := []struct {
		name string
		repo string
		want string
	}{
		{"numbered prefix", "12-backend-service", "backend"},
		{"no numeric prefix", "frontend-app", MiscellaneousTopic},
		{"two segments", "7-x", "x"},
		{"single segment", "monolith", MiscellaneousTopic},
		{"number only", "42", MiscellaneousTopic},
		{"empty topic segment", "3--thing", MiscellaneousTopic},
		{"negative number still an integer", "-1-ops", MiscellaneousTopic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTopic(tt.repo); got != tt.want {
				t.Errorf("DeriveTopic(%q) = %q, want %q", tt.repo, got, tt.want)
			}
		})
	}
}
