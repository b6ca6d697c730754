package entities

import (
	"testing"

	"github.com/osintscope/eventsearch/internal/model"
)

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func TestExtractPersonsFromHonorifics(t *testing.T) {
	var e Extractor
	b := e.Extract("President Emmanuel Macron met Chancellor Olaf Scholz on Tuesday. Dr. Amina Hassan attended.")
	for _, want := range []string{"Emmanuel Macron", "Olaf Scholz", "Amina Hassan"} {
		if !contains(b.Persons, want) {
			t.Errorf("Persons missing %q: %v", want, b.Persons)
		}
	}
}

func TestExtractOrganizations(t *testing.T) {
	var e Extractor
	b := e.Extract("The World Bank and the Interior Ministry both responded. NATO issued a statement.")
	for _, want := range []string{"World Bank", "Interior Ministry", "NATO"} {
		if !contains(b.Organizations, want) {
			t.Errorf("Organizations missing %q: %v", want, b.Organizations)
		}
	}
}

func TestExtractLocations(t *testing.T) {
	var e Extractor
	b := e.Extract("Protesters gathered in Khartoum while officials from France watched. The blast hit Kabul.")
	for _, want := range []string{"Khartoum", "France", "Kabul"} {
		if !contains(b.Locations, want) {
			t.Errorf("Locations missing %q: %v", want, b.Locations)
		}
	}
}

func TestExtractDates(t *testing.T) {
	var e Extractor
	b := e.Extract("The attack happened on January 14, 2026 and a second one on 2026-02-01. Talks resume 3 March 2026.")
	if len(b.Dates) != 3 {
		t.Fatalf("Dates = %v, want 3 entries", b.Dates)
	}
	if !contains(b.Dates, "January 14, 2026") {
		t.Errorf("Dates missing month-name form: %v", b.Dates)
	}
	if !contains(b.Dates, "2026-02-01") {
		t.Errorf("Dates missing ISO form: %v", b.Dates)
	}
}

func TestExtractEvents(t *testing.T) {
	var e Extractor
	b := e.Extract("Leaders arrived for the Munich Security Conference ahead of the Paris Summit.")
	for _, want := range []string{"Munich Security Conference", "Paris Summit"} {
		if !contains(b.Events, want) {
			t.Errorf("Events missing %q: %v", want, b.Events)
		}
	}
}

func TestExtractSkipsSentenceInitialSingletons(t *testing.T) {
	var e Extractor
	b := e.Extract("Yesterday the market fell. Trading resumed later.")
	if Count(b) != 0 {
		t.Errorf("expected no entities from plain prose, got %+v", b)
	}
}

func TestExtractEmptyText(t *testing.T) {
	var e Extractor
	b := e.Extract("   ")
	if Count(b) != 0 {
		t.Errorf("expected empty bundle, got %+v", b)
	}
	if b.Persons == nil || b.Products == nil {
		t.Errorf("lists must be empty, not nil")
	}
}

func TestExtractDeduplicatesCaseInsensitively(t *testing.T) {
	var e Extractor
	b := e.Extract("Officials in Kabul spoke. More unrest in KABUL followed. Then in kabul again.")
	count := 0
	for _, l := range b.Locations {
		if l == "Kabul" || l == "KABUL" || l == "kabul" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Kabul appears %d times, want 1: %v", count, b.Locations)
	}
}

func TestFromArticleCombinesTitleAndBody(t *testing.T) {
	var e Extractor
	b := e.FromArticle("Bombing in Mogadishu", "General Ahmed Warsame confirmed the attack.")
	if !contains(b.Locations, "Mogadishu") {
		t.Errorf("Locations missing Mogadishu: %v", b.Locations)
	}
	if !contains(b.Persons, "Ahmed Warsame") {
		t.Errorf("Persons missing Ahmed Warsame: %v", b.Persons)
	}
}

func TestMerge(t *testing.T) {
	a := model.EntityBundle{Persons: []string{"Jane Doe"}, Locations: []string{"Paris"}}
	b := model.EntityBundle{Persons: []string{"jane doe", "John Roe"}, Locations: []string{"Lyon"}}
	got := Merge(a, b)
	if len(got.Persons) != 2 {
		t.Errorf("merged Persons = %v, want 2 entries", got.Persons)
	}
	if len(got.Locations) != 2 {
		t.Errorf("merged Locations = %v, want 2 entries", got.Locations)
	}
}

func TestTop(t *testing.T) {
	b := model.EntityBundle{Persons: []string{"a1", "b2", "c3", "d4"}}
	got := Top(b, 2)
	if len(got.Persons) != 2 {
		t.Errorf("Top(2) Persons = %v", got.Persons)
	}
	if got.Persons[0] != "a1" || got.Persons[1] != "b2" {
		t.Errorf("Top should keep leading entries: %v", got.Persons)
	}
}

func TestCount(t *testing.T) {
	b := model.EntityBundle{
		Persons:       []string{"a1"},
		Organizations: []string{"b2", "c3"},
		Dates:         []string{"2026-01-01"},
	}
	if got := Count(b); got != 4 {
		t.Errorf("Count = %d, want 4", got)
	}
}
