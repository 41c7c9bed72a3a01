// ABOUTME: Tests for Channel and SessionKind types
// ABOUTME: Verifies channel predicates and session kind validation

package models

import "testing"

func TestSessionKind_IsValid(t *testing.T) {
	tests := []struct {
		name string
		kind SessionKind
		want bool
	}{
		{"new", SessionNew, true},
		{"continuation", SessionContinuation, true},
		{"automation", SessionAutomation, true},
		{"empty string", SessionKind(""), false},
		{"close but wrong", SessionKind("continue"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.kind.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChannel_Predicates(t *testing.T) {
	if !ChannelInteractive.IsInteractive() || ChannelInteractive.IsAutomation() {
		t.Error("interactive channel predicates wrong")
	}
	if !ChannelAutomation.IsAutomation() || ChannelAutomation.IsInteractive() {
		t.Error("automation channel predicates wrong")
	}
	other := Channel("webhook")
	if other.IsInteractive() || other.IsAutomation() {
		t.Error("other channels are neither interactive nor automation")
	}
}
