package events

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Models asked for bare JSON still wrap it in fences, hedge values with
// "X or null", leave trailing commas, or annotate lines with comments.
// parseResponse works through those in order and gives up only when the
// result still is not an object.

var (
	trailingCommaObj = regexp.MustCompile(`,\s*}`)
	trailingCommaArr = regexp.MustCompile(`,\s*]`)
	quotedOrNull     = regexp.MustCompile(`"[^"]*"\s+or\s+null`)
	nullOrQuoted     = regexp.MustCompile(`null\s+or\s+"[^"]*"`)
	bareOrNull       = regexp.MustCompile(`:\s*\w+\s+or\s+null`)
)

// flexString decodes string-ish JSON values: strings, numbers, null, or
// lists of strings which collapse to a "/"-joined value (cross-border
// locations come back as lists). Anything else decodes to empty.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*f = flexString(str)
		return nil
	}
	var list []any
	if err := json.Unmarshal(b, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, v := range list {
			if sv, ok := v.(string); ok && sv != "" {
				parts = append(parts, sv)
			}
		}
		*f = flexString(strings.Join(parts, "/"))
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexString(strconv.FormatFloat(n, 'f', -1, 64))
		return nil
	}
	*f = ""
	return nil
}

// flexStrings accepts a list, a bare string, or null.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	if strings.TrimSpace(string(b)) == "null" {
		*f = nil
		return nil
	}
	var list []any
	if err := json.Unmarshal(b, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, v := range list {
			if s, ok := v.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		*f = flexStrings(out)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil && s != "" {
		*f = flexStrings{s}
		return nil
	}
	*f = nil
	return nil
}

// flexInt accepts a number, a digit string, or null.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	if strings.TrimSpace(string(b)) == "null" {
		*f = 0
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && v >= 0 {
			*f = flexInt(v)
		}
		return nil
	}
	*f = 0
	return nil
}

type rawLocation struct {
	City    flexString `json:"city"`
	Region  flexString `json:"region"`
	State   flexString `json:"state"`
	Country flexString `json:"country"`
}

type rawCasualties struct {
	Killed  flexInt `json:"killed"`
	Injured flexInt `json:"injured"`
}

type rawEvent struct {
	EventType       flexString      `json:"event_type"`
	EventSubType    flexString      `json:"event_sub_type"`
	Summary         flexString      `json:"summary"`
	Description     flexString      `json:"description"`
	Perpetrator     flexString      `json:"perpetrator"`
	PerpetratorType flexString      `json:"perpetrator_type"`
	Location        json.RawMessage `json:"location"`
	EventDate       flexString      `json:"event_date"`
	EventTime       flexString      `json:"event_time"`
	Individuals     flexStrings     `json:"individuals"`
	Organizations   flexStrings     `json:"organizations"`
	Casualties      json.RawMessage `json:"casualties"`
	Confidence      *float64        `json:"confidence"`
	Error           flexString      `json:"error"`
	NoEvent         bool            `json:"no_event"`
}

// location decodes the location object, tolerating null or a non-object.
func (r *rawEvent) location() rawLocation {
	var loc rawLocation
	if len(r.Location) > 0 {
		_ = json.Unmarshal(r.Location, &loc)
	}
	return loc
}

// casualties decodes the casualties object, nil when absent or malformed.
func (r *rawEvent) casualties() *rawCasualties {
	if len(r.Casualties) == 0 || strings.TrimSpace(string(r.Casualties)) == "null" {
		return nil
	}
	var c rawCasualties
	if err := json.Unmarshal(r.Casualties, &c); err != nil {
		return nil
	}
	return &c
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	for _, fence := range []string{"```json", "```"} {
		if rest, ok := strings.CutPrefix(s, fence); ok {
			if body, _, found := strings.Cut(rest, "```"); found {
				return strings.TrimSpace(body)
			}
			return strings.TrimSpace(rest)
		}
	}
	return s
}

// extractObject trims prose around the outermost {...}.
func extractObject(s string) string {
	if strings.HasPrefix(s, "{") {
		return s
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return s
	}
	return s[start : end+1]
}

func repairCommon(s string) string {
	s = trailingCommaObj.ReplaceAllString(s, "}")
	s = trailingCommaArr.ReplaceAllString(s, "]")
	s = quotedOrNull.ReplaceAllString(s, "null")
	s = nullOrQuoted.ReplaceAllString(s, "null")
	s = bareOrNull.ReplaceAllString(s, ": null")
	return s
}

// stripLineComments cuts each line at the first "//". This can damage URLs
// inside string values, so it only runs after a clean parse has failed.
func stripLineComments(s string) string {
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		if idx := strings.Index(ln, "//"); idx != -1 {
			lines[i] = ln[:idx]
		}
	}
	return strings.Join(lines, "\n")
}

func parseResponse(resp string) (*rawEvent, bool) {
	s := repairCommon(extractObject(stripFences(resp)))

	var raw rawEvent
	if err := json.Unmarshal([]byte(s), &raw); err == nil {
		return &raw, true
	}

	var salvaged rawEvent
	if err := json.Unmarshal([]byte(stripLineComments(s)), &salvaged); err == nil {
		log.Debug().Msg("parsed extraction JSON after stripping comments")
		return &salvaged, true
	}
	return nil, false
}
