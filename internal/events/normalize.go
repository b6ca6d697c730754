package events

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/osintscope/eventsearch/internal/model"
)

// fillerWords never decide a type on their own.
var fillerWords = map[string]struct{}{
	"event": {}, "type": {}, "other": {}, "a": {}, "an": {}, "the": {},
}

func despace(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	return strings.ReplaceAll(s, "-", " ")
}

func meaningfulWords(s string) []string {
	var out []string
	for _, w := range strings.Fields(s) {
		if _, filler := fillerWords[w]; !filler {
			out = append(out, w)
		}
	}
	return out
}

// NormalizeEventType coerces free-form model output onto the closed event
// type set: exact match, then keyword heuristics for the diplomatic family,
// then substring containment preferring the longest candidate, then word
// overlap. Unmatched input becomes EventTypeOther.
func NormalizeEventType(s string) model.EventType {
	t := strings.ToLower(strings.TrimSpace(s))
	if t == "" {
		return model.EventTypeOther
	}
	if et := model.EventType(t); et.Valid() {
		return et
	}

	spaced := despace(t)
	switch {
	case strings.Contains(spaced, "visit") || strings.Contains(spaced, "diplomatic"):
		return model.EventTypeMeeting
	case strings.Contains(spaced, "summit") || strings.Contains(spaced, "bilateral"):
		return model.EventTypeSummit
	case strings.Contains(spaced, "conference"):
		return model.EventTypeConference
	}

	var best model.EventType
	bestLen := 0
	for _, et := range model.EventTypes {
		v := despace(string(et))
		if strings.Contains(spaced, v) && len(v) > bestLen {
			best, bestLen = et, len(v)
		}
	}
	if bestLen > 0 {
		return best
	}

	for _, et := range model.EventTypes {
		if strings.Contains(despace(string(et)), spaced) {
			return et
		}
	}

	words := meaningfulWords(spaced)
	for _, et := range model.EventTypes {
		for _, ew := range meaningfulWords(despace(string(et))) {
			for _, w := range words {
				if w == ew {
					return et
				}
			}
		}
	}

	log.Warn().Str("event_type", s).Msg("unknown event type, defaulting to other")
	return model.EventTypeOther
}

// NormalizePerpetratorType coerces free-form perpetrator classifications.
// Empty input stays empty (no perpetrator named); anything recognisably
// actor-like maps onto the closed set, the rest becomes unknown.
func NormalizePerpetratorType(s string) model.PerpetratorType {
	t := strings.ToLower(strings.TrimSpace(s))
	if t == "" {
		return ""
	}
	if pt := model.PerpetratorType(t); pt.Valid() {
		return pt
	}

	spaced := despace(t)
	for _, pt := range model.PerpetratorTypes {
		v := despace(string(pt))
		if strings.Contains(spaced, v) || strings.Contains(v, spaced) {
			return pt
		}
	}

	switch {
	case strings.Contains(spaced, "terror") || strings.Contains(spaced, "militant"):
		return model.PerpetratorTerroristGroup
	case strings.Contains(spaced, "state") || strings.Contains(spaced, "government") || strings.Contains(spaced, "military"):
		return model.PerpetratorStateActor
	case strings.Contains(spaced, "criminal") || strings.Contains(spaced, "gang") || strings.Contains(spaced, "cartel"):
		return model.PerpetratorCriminalOrganization
	case strings.Contains(spaced, "person") || strings.Contains(spaced, "individual") || strings.Contains(spaced, "man") || strings.Contains(spaced, "woman"):
		return model.PerpetratorIndividual
	case strings.Contains(spaced, "multiple") || strings.Contains(spaced, "several"):
		return model.PerpetratorMultipleParties
	case strings.Contains(spaced, "unidentified"):
		return model.PerpetratorUnknown
	}

	log.Warn().Str("perpetrator_type", s).Msg("unknown perpetrator type, defaulting to unknown")
	return model.PerpetratorUnknown
}
