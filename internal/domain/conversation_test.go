package domain

import (
	"testing"
)

func TestNormalizePair(t *testing.T) {
	tests := []struct {
		name  string
		id1   string
		id2   string
		wantA string
		wantB string
	}{
		{"already ordered", "alice", "bob", "alice", "bob"},
		{"reversed", "bob", "alice", "alice", "bob"},
		{"numeric ids", "2", "10", "10", "2"}, // lexicographic, not numeric
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := NormalizePair(tt.id1, tt.id2)
			if a != tt.wantA || b != tt.wantB {
				t.Errorf("NormalizePair(%q, %q) = (%q, %q), want (%q, %q)",
					tt.id1, tt.id2, a, b, tt.wantA, tt.wantB)
			}
		})
	}
}

func TestConversationParticipants(t *testing.T) {
	conv := &Conversation{ParticipantA: "alice", ParticipantB: "bob"}

	if !conv.HasParticipant("alice") || !conv.HasParticipant("bob") {
		t.Error("expected both participants to be members")
	}
	if conv.HasParticipant("carol") {
		t.Error("carol must not be a participant")
	}

	if got := conv.OtherParticipant("alice"); got != "bob" {
		t.Errorf("OtherParticipant(alice) = %q, want bob", got)
	}
	if got := conv.OtherParticipant("bob"); got != "alice" {
		t.Errorf("OtherParticipant(bob) = %q, want alice", got)
	}
}

func TestConversationSummary(t *testing.T) {
	conv := &Conversation{ID: "c1", ParticipantA: "alice", ParticipantB: "bob"}
	sum := conv.Summary()

	if sum.ID != "c1" {
		t.Errorf("summary id = %q, want c1", sum.ID)
	}
	if len(sum.Participants) != 2 || sum.Participants[0] != "alice" || sum.Participants[1] != "bob" {
		t.Errorf("summary participants = %v", sum.Participants)
	}
}
