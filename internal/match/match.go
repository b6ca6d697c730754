// Package match scores extracted events against the caller's query and
// filters out the irrelevant ones. Scoring blends text similarity, location,
// date proximity and event type under fixed weights, then discounts by the
// extraction confidence.
package match

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/osintscope/eventsearch/internal/model"
)

// Weights distributes the relevance score across the four signals. The
// components must sum to 1.0.
type Weights struct {
	Text     float64
	Location float64
	Date     float64
	Type     float64
}

// DefaultWeights is the standard split: text dominates, location next, then
// date proximity, then type.
var DefaultWeights = Weights{Text: 0.40, Location: 0.25, Date: 0.20, Type: 0.15}

// Scored pairs an event with its relevance to the query.
type Scored struct {
	Event     model.Event `json:"event"`
	Relevance float64     `json:"relevance_score"`
}

// Matcher scores and ranks events. Construct with New so the weight
// invariant holds for the matcher's lifetime.
type Matcher struct {
	weights Weights
}

// New validates that the weights sum to 1.0 and returns a matcher.
func New(w Weights) (*Matcher, error) {
	sum := w.Text + w.Location + w.Date + w.Type
	if math.Abs(sum-1.0) > 1e-9 {
		return nil, fmt.Errorf("relevance weights sum to %v, want 1.0", sum)
	}
	return &Matcher{weights: w}, nil
}

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"from": {}, "as": {}, "is": {}, "was": {}, "are": {}, "were": {},
	"been": {}, "be": {}, "have": {}, "has": {}, "had": {}, "do": {},
	"does": {}, "did": {}, "will": {}, "would": {}, "should": {},
	"could": {}, "may": {}, "might": {}, "can": {}, "this": {}, "that": {},
	"these": {}, "those": {}, "it": {}, "its": {}, "they": {}, "them": {},
	"their": {},
}

var spaceRe = regexp.MustCompile(`\s+`)

func normalize(text string) string {
	return spaceRe.ReplaceAllString(strings.TrimSpace(strings.ToLower(text)), " ")
}

// keywords tokenises normalised text, dropping stop words and tokens of
// one or two characters.
func keywords(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(normalize(text)) {
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// similarity is a normalised longest-common-subsequence ratio over runes:
// 2·LCS(a,b) / (len(a)+len(b)). 1.0 means identical, 0.0 means disjoint.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	// Single-row DP keeps memory at O(min(len a, len b)).
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	lcs := prev[len(rb)]
	return 2 * float64(lcs) / float64(len(ra)+len(rb))
}

// TextScore measures how well the event's title and summary cover the query
// phrase: keyword Jaccard weighted 0.7 plus sequence similarity weighted 0.3.
func (m *Matcher) TextScore(queryText string, ev model.Event) float64 {
	if strings.TrimSpace(queryText) == "" {
		return 0
	}
	eventText := strings.ToLower(ev.Title + " " + ev.Summary)
	queryText = strings.ToLower(queryText)

	qk := keywords(queryText)
	if len(qk) == 0 {
		return 0
	}
	ek := keywords(eventText)

	score := jaccard(qk, ek)*0.7 + similarity(queryText, eventText)*0.3
	return math.Min(1.0, score)
}

// LocationScore compares the query's free-text location against each event
// location component and keeps the best. Containment either way counts as a
// full match; otherwise sequence similarity.
func (m *Matcher) LocationScore(queryLocation string, loc *model.Location) float64 {
	if strings.TrimSpace(queryLocation) == "" || loc == nil || loc.Empty() {
		return 0
	}
	q := normalize(queryLocation)
	best := 0.0
	for _, component := range []string{loc.City, loc.Country, loc.Region} {
		if component == "" {
			continue
		}
		c := normalize(component)
		var s float64
		if strings.Contains(q, c) || strings.Contains(c, q) {
			s = 1.0
		} else {
			s = similarity(q, c)
		}
		if s > best {
			best = s
		}
	}
	return best
}

// DateScore scores the event date against the query's range. No range gives
// the neutral 0.5; a range with no parseable event date gives 0.3; inside
// the range gives 1.0; outside decays linearly to zero over 30 days.
func (m *Matcher) DateScore(q model.SearchQuery, ev model.Event) float64 {
	if q.DateFrom == nil && q.DateTo == nil {
		return 0.5
	}
	eventDate, err := time.Parse("2006-01-02", ev.EventDate)
	if ev.EventDate == "" || err != nil {
		return 0.3
	}
	if q.DateFrom != nil && eventDate.Before(*q.DateFrom) {
		days := int(q.DateFrom.Sub(eventDate).Hours() / 24)
		if days > 30 {
			return 0
		}
		return 1.0 - float64(days)/30.0
	}
	if q.DateTo != nil && eventDate.After(*q.DateTo) {
		days := int(eventDate.Sub(*q.DateTo).Hours() / 24)
		if days > 30 {
			return 0
		}
		return 1.0 - float64(days)/30.0
	}
	return 1.0
}

// TypeScore is exact-match: 1.0 on equality, 0.0 on mismatch, neutral 0.5
// when the query names no type.
func (m *Matcher) TypeScore(queryType model.EventType, eventType model.EventType) float64 {
	if queryType == "" {
		return 0.5
	}
	if queryType == eventType {
		return 1.0
	}
	return 0
}

// Score computes the final relevance for one event: the weighted signal sum
// discounted by the extraction confidence.
func (m *Matcher) Score(q model.SearchQuery, ev model.Event) float64 {
	weighted := m.TextScore(q.QueryText, ev)*m.weights.Text +
		m.LocationScore(q.Location, ev.Location)*m.weights.Location +
		m.DateScore(q, ev)*m.weights.Date +
		m.TypeScore(q.EventType, ev.EventType)*m.weights.Type
	return weighted * ev.Confidence
}

// Match scores events against the query, keeps those at or above minScore
// and returns them ordered by descending relevance. Ties keep input order.
func (m *Matcher) Match(events []model.Event, q model.SearchQuery, minScore float64) []Scored {
	out := make([]Scored, 0, len(events))
	for _, ev := range events {
		s := m.Score(q, ev)
		if s >= minScore {
			out = append(out, Scored{Event: ev, Relevance: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Relevance > out[j].Relevance })
	return out
}
