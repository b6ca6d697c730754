package events

import (
	"testing"

	"github.com/osintscope/eventsearch/internal/model"
)

func TestNormalizeEventType(t *testing.T) {
	cases := []struct {
		in   string
		want model.EventType
	}{
		// Exact members pass through.
		{"bombing", model.EventTypeBombing},
		{"  Meeting ", model.EventTypeMeeting},
		{"terrorist_activity", model.EventTypeTerroristActivity},

		// Diplomatic family keywords.
		{"state visit", model.EventTypeMeeting},
		{"diplomatic talks", model.EventTypeMeeting},
		{"bilateral talks", model.EventTypeSummit},
		{"emergency summit", model.EventTypeSummit},
		{"press conference", model.EventTypeConference},

		// Substring containment, longest candidate wins.
		{"suicide bombing attack", model.EventTypeBombing},
		{"armed attack", model.EventTypeAttack},
		{"cyber-attack", model.EventTypeCyberAttack},
		{"natural disaster response", model.EventTypeNaturalDisaster},

		// Reverse containment: input is a fragment of a member.
		{"bomb", model.EventTypeBombing},

		// Word overlap.
		{"political campaign rally", model.EventTypePolitical},

		// Unknown falls back to other.
		{"", model.EventTypeOther},
		{"quarterly earnings report", model.EventTypeOther},
	}
	for _, tc := range cases {
		if got := NormalizeEventType(tc.in); got != tc.want {
			t.Errorf("NormalizeEventType(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizePerpetratorType(t *testing.T) {
	cases := []struct {
		in   string
		want model.PerpetratorType
	}{
		{"", ""},
		{"state_actor", model.PerpetratorStateActor},
		{"Terrorist Group", model.PerpetratorTerroristGroup},
		{"terrorist organization", model.PerpetratorTerroristGroup},
		{"militant faction", model.PerpetratorTerroristGroup},
		{"state-sponsored", model.PerpetratorStateActor},
		{"government forces", model.PerpetratorStateActor},
		{"drug cartel", model.PerpetratorCriminalOrganization},
		{"lone individual", model.PerpetratorIndividual},
		{"multiple actors", model.PerpetratorMultipleParties},
		{"unidentified assailants", model.PerpetratorUnknown},
		{"rebels", model.PerpetratorUnknown},
	}
	for _, tc := range cases {
		if got := NormalizePerpetratorType(tc.in); got != tc.want {
			t.Errorf("NormalizePerpetratorType(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
