package events

import (
	"encoding/json"
	"testing"
)

func TestParseResponseVariants(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"bare object", `{"event_type": "protest", "confidence": 0.5}`},
		{"json fence", "```json\n{\"event_type\": \"protest\", \"confidence\": 0.5}\n```"},
		{"plain fence", "```\n{\"event_type\": \"protest\", \"confidence\": 0.5}\n```"},
		{"surrounding prose", "Here is the extraction:\n{\"event_type\": \"protest\", \"confidence\": 0.5}\nHope that helps!"},
		{"trailing commas", `{"event_type": "protest", "individuals": ["A", "B",], "confidence": 0.5,}`},
		{"line comments", "{\n\"event_type\": \"protest\", // main type\n\"confidence\": 0.5\n}"},
	}
	for _, tc := range cases {
		raw, ok := parseResponse(tc.in)
		if !ok {
			t.Errorf("%s: parse failed", tc.name)
			continue
		}
		if string(raw.EventType) != "protest" {
			t.Errorf("%s: event_type = %q", tc.name, raw.EventType)
		}
		if raw.Confidence == nil || *raw.Confidence != 0.5 {
			t.Errorf("%s: confidence = %v", tc.name, raw.Confidence)
		}
	}
}

func TestParseResponseOrNullHedges(t *testing.T) {
	in := `{
		"event_type": "meeting",
		"event_date": "2025-01-02" or null,
		"event_time": null or "14:00",
		"perpetrator": unknown or null,
		"confidence": 0.6
	}`
	raw, ok := parseResponse(in)
	if !ok {
		t.Fatal("parse failed")
	}
	if raw.EventDate != "" || raw.EventTime != "" || raw.Perpetrator != "" {
		t.Errorf("hedged fields not nulled: date=%q time=%q perp=%q",
			raw.EventDate, raw.EventTime, raw.Perpetrator)
	}
}

func TestParseResponseRejectsNonObjects(t *testing.T) {
	for _, in := range []string{"", "no json here", "[1, 2, 3]", "null"} {
		if raw, ok := parseResponse(in); ok && raw != nil {
			// A bare array or null may decode to an empty object; the
			// pipeline still drops those via the confidence gate. Only a
			// non-nil result with fields set would be wrong.
			if raw.EventType != "" {
				t.Errorf("parseResponse(%q) produced %+v", in, raw)
			}
		}
	}
}

func TestFlexStringForms(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`"Mumbai"`, "Mumbai"},
		{`null`, ""},
		{`["India", "Pakistan"]`, "India/Pakistan"},
		{`42`, "42"},
		{`{"nested": true}`, ""},
	}
	for _, tc := range cases {
		var f flexString
		if err := json.Unmarshal([]byte(tc.in), &f); err != nil {
			t.Errorf("flexString(%s): %v", tc.in, err)
			continue
		}
		if string(f) != tc.want {
			t.Errorf("flexString(%s) = %q, want %q", tc.in, f, tc.want)
		}
	}
}

func TestFlexStringsForms(t *testing.T) {
	var f flexStrings
	if err := json.Unmarshal([]byte(`"solo"`), &f); err != nil || len(f) != 1 || f[0] != "solo" {
		t.Errorf("bare string: %v %v", f, err)
	}
	if err := json.Unmarshal([]byte(`["a", 1, "b"]`), &f); err != nil || len(f) != 2 {
		t.Errorf("mixed list: %v %v", f, err)
	}
	if err := json.Unmarshal([]byte(`null`), &f); err != nil || f != nil {
		t.Errorf("null: %v %v", f, err)
	}
}

func TestFlexIntForms(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{`7`, 7},
		{`"12"`, 12},
		{`null`, 0},
		{`"several"`, 0},
		{`3.9`, 3},
	}
	for _, tc := range cases {
		var f flexInt
		if err := json.Unmarshal([]byte(tc.in), &f); err != nil {
			t.Errorf("flexInt(%s): %v", tc.in, err)
			continue
		}
		if int(f) != tc.want {
			t.Errorf("flexInt(%s) = %d, want %d", tc.in, f, tc.want)
		}
	}
}

func TestRawEventLocationAndCasualties(t *testing.T) {
	raw, ok := parseResponse(`{
		"location": {"city": ["Erbil", "Mosul"], "country": "Iraq"},
		"casualties": {"killed": "2", "injured": null}
	}`)
	if !ok {
		t.Fatal("parse failed")
	}
	loc := raw.location()
	if string(loc.City) != "Erbil/Mosul" || string(loc.Country) != "Iraq" {
		t.Errorf("location = %+v", loc)
	}
	cas := raw.casualties()
	if cas == nil || int(cas.Killed) != 2 || int(cas.Injured) != 0 {
		t.Errorf("casualties = %+v", cas)
	}

	raw, ok = parseResponse(`{"location": null, "casualties": null}`)
	if !ok {
		t.Fatal("parse failed")
	}
	if got := raw.location(); got != (rawLocation{}) {
		t.Errorf("null location = %+v", got)
	}
	if raw.casualties() != nil {
		t.Error("null casualties should decode to nil")
	}
}
