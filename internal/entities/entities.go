// Package entities detects named entities in article text with deterministic
// heuristics: capitalised token runs classified by cue words (honorifics,
// organisation suffixes, location prepositions) plus month-name and numeric
// date patterns. Coverage is narrower than a trained NER model; the pipeline
// only needs a handful of high-precision hints to enrich the extraction
// prompt.
package entities

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/osintscope/eventsearch/internal/model"
)

const defaultMaxTextLen = 1_000_000

// Extractor scans text for entities. The zero value is ready to use.
type Extractor struct {
	// MaxTextLen caps how much text is scanned. Zero means 1,000,000 runes.
	MaxTextLen int
}

func (e *Extractor) maxLen() int {
	if e.MaxTextLen > 0 {
		return e.MaxTextLen
	}
	return defaultMaxTextLen
}

var honorifics = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "sir": {}, "professor": {},
	"president": {}, "minister": {}, "chancellor": {}, "senator": {},
	"governor": {}, "mayor": {}, "ambassador": {}, "secretary": {},
	"general": {}, "colonel": {}, "captain": {}, "commander": {},
	"king": {}, "queen": {}, "prince": {}, "princess": {}, "sheikh": {},
	"spokesman": {}, "spokeswoman": {}, "spokesperson": {},
}

var orgSuffixes = map[string]struct{}{
	"inc": {}, "corp": {}, "ltd": {}, "llc": {}, "group": {}, "agency": {},
	"ministry": {}, "police": {}, "army": {}, "council": {}, "committee": {},
	"university": {}, "organization": {}, "organisation": {},
	"association": {}, "authority": {}, "department": {}, "bureau": {},
	"party": {}, "union": {}, "bank": {}, "news": {}, "times": {},
	"post": {}, "forces": {}, "command": {}, "administration": {},
	"parliament": {}, "court": {}, "commission": {},
}

var eventKeywords = map[string]struct{}{
	"summit": {}, "conference": {}, "olympics": {}, "cup": {},
	"war": {}, "festival": {}, "election": {}, "games": {},
}

var locationCues = map[string]struct{}{
	"in": {}, "at": {}, "near": {}, "from": {}, "outside": {},
	"across": {}, "toward": {}, "towards": {}, "into": {},
}

// placeLexicon covers countries and a few major cities that show up
// constantly in event reporting. Anything else relies on preposition cues.
var placeLexicon = map[string]struct{}{
	"afghanistan": {}, "algeria": {}, "argentina": {}, "australia": {},
	"austria": {}, "baghdad": {}, "bangladesh": {}, "beijing": {},
	"belgium": {}, "berlin": {}, "brazil": {}, "cairo": {}, "canada": {},
	"chile": {}, "china": {}, "colombia": {}, "damascus": {}, "delhi": {},
	"egypt": {}, "ethiopia": {}, "france": {}, "germany": {}, "greece": {},
	"india": {}, "indonesia": {}, "iran": {}, "iraq": {}, "israel": {},
	"istanbul": {}, "italy": {}, "jakarta": {}, "japan": {}, "jerusalem": {},
	"jordan": {}, "kabul": {}, "kenya": {}, "kyiv": {}, "lagos": {},
	"lebanon": {}, "libya": {}, "london": {}, "madrid": {}, "mexico": {},
	"moscow": {}, "mumbai": {}, "nigeria": {}, "pakistan": {}, "paris": {},
	"philippines": {}, "poland": {}, "russia": {}, "somalia": {},
	"spain": {}, "sudan": {}, "sweden": {}, "syria": {}, "taiwan": {},
	"tehran": {}, "thailand": {}, "tokyo": {}, "turkey": {}, "ukraine": {},
	"venezuela": {}, "vietnam": {}, "washington": {}, "yemen": {},
	"mogadishu": {}, "nairobi": {}, "beirut": {}, "gaza": {},
}

// connectors may appear inside a capitalised run without breaking it, as in
// "Bank of England" or "Osama bin Laden".
var connectors = map[string]struct{}{
	"of": {}, "the": {}, "al": {}, "bin": {}, "van": {}, "der": {},
	"de": {}, "la": {}, "el": {}, "and": {},
}

var datePattern = regexp.MustCompile(
	`\b(?:(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2}(?:st|nd|rd|th)?(?:,?\s*\d{4})?` +
		`|\d{1,2}\s+(?:January|February|March|April|May|June|July|August|September|October|November|December)(?:\s+\d{4})?` +
		`|(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{4}` +
		`|\d{4}-\d{2}-\d{2}` +
		`|\d{1,2}/\d{1,2}/\d{2,4})\b`)

type token struct {
	text      string
	sentStart bool
}

func tokenize(text string) []token {
	var out []token
	sentStart := true
	for _, field := range strings.Fields(text) {
		word := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if word == "" {
			continue
		}
		out = append(out, token{text: word, sentStart: sentStart})
		last := field[len(field)-1]
		end := last == '.' || last == '!' || last == '?' || last == ':' || last == ';'
		if last == '.' {
			// Honorific abbreviations and initials do not end a sentence.
			if _, abbr := honorifics[strings.ToLower(word)]; abbr || len([]rune(word)) == 1 {
				end = false
			}
		}
		sentStart = end
	}
	return out
}

func isCapitalized(w string) bool {
	r := []rune(w)
	return len(r) > 0 && unicode.IsUpper(r[0])
}

func isAcronym(w string) bool {
	if len(w) < 2 || len(w) > 6 {
		return false
	}
	for _, r := range w {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

// Extract scans text and returns the detected entities, deduplicated
// case-insensitively and sorted. The Products list is always empty: nothing
// in this heuristic set identifies products reliably enough to emit.
func (e *Extractor) Extract(text string) model.EntityBundle {
	if strings.TrimSpace(text) == "" {
		return emptyBundle()
	}
	runes := []rune(text)
	if len(runes) > e.maxLen() {
		text = string(runes[:e.maxLen()])
	}

	var persons, orgs, locations, events []string
	toks := tokenize(text)

	i := 0
	for i < len(toks) {
		if !isCapitalized(toks[i].text) {
			i++
			continue
		}
		// Assemble the capitalised run, letting connectors through when a
		// capitalised token follows.
		run := []string{toks[i].text}
		j := i + 1
		for j < len(toks) && len(run) < 6 {
			w := toks[j].text
			if isCapitalized(w) && !toks[j].sentStart {
				run = append(run, w)
				j++
				continue
			}
			if _, conn := connectors[strings.ToLower(w)]; conn &&
				j+1 < len(toks) && isCapitalized(toks[j+1].text) && !toks[j+1].sentStart {
				run = append(run, w, toks[j+1].text)
				j += 2
				continue
			}
			break
		}

		var prev string
		if i > 0 {
			prev = strings.ToLower(strings.TrimSuffix(toks[i-1].text, "."))
		}
		// Leading articles are not part of the name: "The World Bank".
		if len(run) > 1 {
			switch strings.ToLower(run[0]) {
			case "the", "a", "an":
				run = run[1:]
			}
		}
		name := strings.Join(run, " ")
		first := strings.ToLower(strings.TrimSuffix(run[0], "."))

		switch {
		// Titles are capitalised, so they land inside the run rather than
		// before it: "President Emmanuel Macron". The name is the remainder.
		case hasHonorific(first) && len(run) >= 2:
			persons = append(persons, strings.Join(run[1:], " "))
		case containsKeyword(run, eventKeywords):
			events = append(events, name)
		case hasHonorific(prev):
			persons = append(persons, name)
		case containsKeyword(run, orgSuffixes) && len(run) > 1:
			orgs = append(orgs, name)
		case placeRun(run):
			locations = append(locations, name)
		case len(run) == 1 && isAcronym(run[0]):
			orgs = append(orgs, name)
		case hasLocationCue(prev):
			locations = append(locations, name)
		case len(run) >= 2:
			// Uncued multi-word capitalised runs in news prose are most
			// often people.
			persons = append(persons, name)
		}
		i = j
	}

	dates := datePattern.FindAllString(text, -1)

	return model.EntityBundle{
		Persons:       dedupeSorted(persons),
		Organizations: dedupeSorted(orgs),
		Locations:     dedupeSorted(locations),
		Dates:         dedupeSorted(dates),
		Events:        dedupeSorted(events),
		Products:      []string{},
	}
}

// FromArticle extracts entities from a title and body as one text.
func (e *Extractor) FromArticle(title, content string) model.EntityBundle {
	return e.Extract(title + "\n\n" + content)
}

func hasHonorific(prev string) bool {
	_, ok := honorifics[prev]
	return ok
}

func hasLocationCue(prev string) bool {
	_, ok := locationCues[prev]
	return ok
}

func containsKeyword(run []string, lex map[string]struct{}) bool {
	for _, w := range run {
		if _, ok := lex[strings.ToLower(w)]; ok {
			return true
		}
	}
	return false
}

// placeRun reports whether every substantive token of the run is a known
// place. At least one lexicon hit is required so connector-only runs never
// qualify.
func placeRun(run []string) bool {
	found := false
	for _, w := range run {
		lw := strings.ToLower(w)
		if _, conn := connectors[lw]; conn {
			continue
		}
		if _, ok := placeLexicon[lw]; !ok {
			return false
		}
		found = true
	}
	return found
}

func dedupeSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if len(s) < 2 {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i]), strings.ToLower(out[j])
		if a == b {
			return out[i] < out[j]
		}
		return a < b
	})
	return out
}

func emptyBundle() model.EntityBundle {
	return model.EntityBundle{
		Persons:       []string{},
		Organizations: []string{},
		Locations:     []string{},
		Dates:         []string{},
		Events:        []string{},
		Products:      []string{},
	}
}

// Merge unions any number of bundles into one deduplicated bundle.
func Merge(bundles ...model.EntityBundle) model.EntityBundle {
	var persons, orgs, locations, dates, events, products []string
	for _, b := range bundles {
		persons = append(persons, b.Persons...)
		orgs = append(orgs, b.Organizations...)
		locations = append(locations, b.Locations...)
		dates = append(dates, b.Dates...)
		events = append(events, b.Events...)
		products = append(products, b.Products...)
	}
	return model.EntityBundle{
		Persons:       dedupeSorted(persons),
		Organizations: dedupeSorted(orgs),
		Locations:     dedupeSorted(locations),
		Dates:         dedupeSorted(dates),
		Events:        dedupeSorted(events),
		Products:      dedupeSorted(products),
	}
}

// Top truncates each list to at most k entries.
func Top(b model.EntityBundle, k int) model.EntityBundle {
	return model.EntityBundle{
		Persons:       head(b.Persons, k),
		Organizations: head(b.Organizations, k),
		Locations:     head(b.Locations, k),
		Dates:         head(b.Dates, k),
		Events:        head(b.Events, k),
		Products:      head(b.Products, k),
	}
}

func head(in []string, k int) []string {
	if k < 0 {
		k = 0
	}
	if len(in) <= k {
		return in
	}
	return in[:k]
}

// Count totals the entities across every list.
func Count(b model.EntityBundle) int {
	return len(b.Persons) + len(b.Organizations) + len(b.Locations) +
		len(b.Dates) + len(b.Events) + len(b.Products)
}
