// Package model holds the data types shared across the pipeline: source
// configurations, fetched articles, extracted events, social content records
// and search queries. Components accept and return these types; behaviour
// lives in the packages that own each pipeline stage.
package model

import (
	"strings"
	"time"
)

// EventType classifies an extracted event. The set is closed; extraction
// normalises free-form model output onto it, defaulting to EventOther.
type EventType string

const (
	EventTypeProtest           EventType = "protest"
	EventTypeDemonstration     EventType = "demonstration"
	EventTypeAttack            EventType = "attack"
	EventTypeExplosion         EventType = "explosion"
	EventTypeBombing           EventType = "bombing"
	EventTypeShooting          EventType = "shooting"
	EventTypeTheft             EventType = "theft"
	EventTypeKidnapping        EventType = "kidnapping"
	EventTypeMilitaryOperation EventType = "military_operation"
	EventTypeCyberAttack       EventType = "cyber_attack"
	EventTypeCyberIncident     EventType = "cyber_incident"
	EventTypeDataBreach        EventType = "data_breach"
	EventTypeConference        EventType = "conference"
	EventTypeMeeting           EventType = "meeting"
	EventTypeSummit            EventType = "summit"
	EventTypeAccident          EventType = "accident"
	EventTypeNaturalDisaster   EventType = "natural_disaster"
	EventTypeElection          EventType = "election"
	EventTypePolitical         EventType = "political_event"
	EventTypeTerroristActivity EventType = "terrorist_activity"
	EventTypeOther             EventType = "other"
)

// EventTypes lists every valid event type in declaration order.
var EventTypes = []EventType{
	EventTypeProtest, EventTypeDemonstration, EventTypeAttack,
	EventTypeExplosion, EventTypeBombing, EventTypeShooting,
	EventTypeTheft, EventTypeKidnapping, EventTypeMilitaryOperation,
	EventTypeCyberAttack, EventTypeCyberIncident, EventTypeDataBreach,
	EventTypeConference, EventTypeMeeting, EventTypeSummit,
	EventTypeAccident, EventTypeNaturalDisaster, EventTypeElection,
	EventTypePolitical, EventTypeTerroristActivity, EventTypeOther,
}

// Valid reports whether t is a member of the closed event-type set.
func (t EventType) Valid() bool {
	for _, v := range EventTypes {
		if t == v {
			return true
		}
	}
	return false
}

// PerpetratorType classifies the actor behind an event when one is named.
type PerpetratorType string

const (
	PerpetratorTerroristGroup       PerpetratorType = "terrorist_group"
	PerpetratorStateActor           PerpetratorType = "state_actor"
	PerpetratorCriminalOrganization PerpetratorType = "criminal_organization"
	PerpetratorIndividual           PerpetratorType = "individual"
	PerpetratorMultipleParties      PerpetratorType = "multiple_parties"
	PerpetratorUnknown              PerpetratorType = "unknown"
	PerpetratorNotApplicable        PerpetratorType = "not_applicable"
	PerpetratorOther                PerpetratorType = "other"
)

// PerpetratorTypes lists every valid perpetrator type.
var PerpetratorTypes = []PerpetratorType{
	PerpetratorTerroristGroup, PerpetratorStateActor,
	PerpetratorCriminalOrganization, PerpetratorIndividual,
	PerpetratorMultipleParties, PerpetratorUnknown,
	PerpetratorNotApplicable, PerpetratorOther,
}

// Valid reports whether p is a member of the closed perpetrator-type set.
func (p PerpetratorType) Valid() bool {
	for _, v := range PerpetratorTypes {
		if p == v {
			return true
		}
	}
	return false
}

// Location places an event. Each field may be empty, a single value, or a
// "/"-joined list when the source named several.
type Location struct {
	City    string `json:"city,omitempty" yaml:"city,omitempty"`
	Region  string `json:"region,omitempty" yaml:"region,omitempty"`
	Country string `json:"country,omitempty" yaml:"country,omitempty"`
}

// Empty reports whether no location component is set.
func (l Location) Empty() bool {
	return l.City == "" && l.Region == "" && l.Country == ""
}

// Casualties carries kill/injury counts. A nil *Casualties means none
// reported; a populated struct always has at least one non-zero count.
type Casualties struct {
	Killed  int `json:"killed"`
	Injured int `json:"injured"`
}

// Event is the structured output unit of the pipeline.
type Event struct {
	EventType       EventType       `json:"event_type"`
	EventSubType    string          `json:"event_sub_type,omitempty"`
	Title           string          `json:"title"`
	Summary         string          `json:"summary"`
	Perpetrator     string          `json:"perpetrator,omitempty"`
	PerpetratorType PerpetratorType `json:"perpetrator_type,omitempty"`
	Location        *Location       `json:"location,omitempty"`

	// EventDate is date-only, normalised to YYYY-MM-DD. EventTime keeps
	// whatever textual time the source stated.
	EventDate string `json:"event_date,omitempty"`
	EventTime string `json:"event_time,omitempty"`

	Participants  []string    `json:"participants"`
	Organizations []string    `json:"organizations"`
	Casualties    *Casualties `json:"casualties,omitempty"`

	SourceName           string    `json:"source_name,omitempty"`
	SourceURL            string    `json:"source_url,omitempty"`
	ArticlePublishedDate string    `json:"article_published_date,omitempty"`
	CollectionTimestamp  time.Time `json:"collection_timestamp"`

	Confidence  float64 `json:"confidence"`
	FullContent string  `json:"full_content,omitempty"`
}

// EnsureLists replaces nil list fields with empty slices so JSON encodes
// them as [] rather than null.
func (e *Event) EnsureLists() {
	if e.Participants == nil {
		e.Participants = []string{}
	}
	if e.Organizations == nil {
		e.Organizations = []string{}
	}
}

// Article is a fetched, text-extracted news page plus metadata. Articles are
// transient within one pipeline run.
type Article struct {
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	PublishedDate string    `json:"published_date,omitempty"`
	Author        string    `json:"author,omitempty"`
	SourceName    string    `json:"source_name"`
	ScrapedAt     time.Time `json:"scraped_at"`
}

// EntityBundle groups named entities detected in article text. Each list is
// sorted and deduplicated case-insensitively.
type EntityBundle struct {
	Persons       []string `json:"persons"`
	Organizations []string `json:"organizations"`
	Locations     []string `json:"locations"`
	Dates         []string `json:"dates"`
	Events        []string `json:"events"`
	Products      []string `json:"products"`
}

// Empty reports whether the bundle carries no entities at all.
func (b EntityBundle) Empty() bool {
	return len(b.Persons) == 0 && len(b.Organizations) == 0 &&
		len(b.Locations) == 0 && len(b.Dates) == 0 &&
		len(b.Events) == 0 && len(b.Products) == 0
}

// SearchQuery is the caller's request: a free-text phrase plus optional
// filters that the matcher scores against.
type SearchQuery struct {
	QueryText  string     `json:"query_text"`
	Location   string     `json:"location,omitempty"`
	EventType  EventType  `json:"event_type,omitempty"`
	DateFrom   *time.Time `json:"date_from,omitempty"`
	DateTo     *time.Time `json:"date_to,omitempty"`
	MaxResults int        `json:"max_results,omitempty"`
}

// SearchStatus is the terminal state of a batch search.
type SearchStatus string

const (
	SearchStatusSuccess    SearchStatus = "success"
	SearchStatusNoSources  SearchStatus = "no_sources"
	SearchStatusNoArticles SearchStatus = "no_articles"
	SearchStatusNoEvents   SearchStatus = "no_events"
	SearchStatusError      SearchStatus = "error"
	SearchStatusCancelled  SearchStatus = "cancelled"
)

// SessionStatus tracks a session's lifecycle. It is distinct from
// SearchStatus, which classifies the outcome of one batch search.
type SessionStatus string

const (
	SessionPending    SessionStatus = "pending"
	SessionProcessing SessionStatus = "processing"
	SessionCompleted  SessionStatus = "completed"
	SessionCancelled  SessionStatus = "cancelled"
	SessionError      SessionStatus = "error"
)

// SearchResponse materialises a finished session for batch callers.
type SearchResponse struct {
	SessionID       string       `json:"session_id"`
	Events          []Event      `json:"events"`
	Query           SearchQuery  `json:"query"`
	TotalEvents     int          `json:"total_events"`
	ProcessingTime  float64      `json:"processing_time"`
	ArticlesScraped int          `json:"articles_scraped"`
	SourcesScraped  int          `json:"sources_scraped"`
	Status          SearchStatus `json:"status"`
	Message         string       `json:"message"`
}

// Selectors maps article fields to CSS selectors. Each value may be a
// comma-separated ordered list of fallbacks tried in turn.
type Selectors struct {
	ArticleLinks string `yaml:"article_links" json:"article_links"`
	Title        string `yaml:"title" json:"title"`
	Content      string `yaml:"content" json:"content"`
	Date         string `yaml:"date" json:"date"`
	Author       string `yaml:"author" json:"author"`
}

// SourceConfig describes one configured upstream: its search endpoint and
// the extraction recipe for pages it links to. Loaded once at startup and
// immutable afterwards.
type SourceConfig struct {
	Name                 string            `yaml:"name" json:"name"`
	BaseURL              string            `yaml:"base_url" json:"base_url"`
	Enabled              bool              `yaml:"enabled" json:"enabled"`
	APIBased             bool              `yaml:"api_based" json:"api_based"`
	SearchURLTemplate    string            `yaml:"search_url_template" json:"search_url_template"`
	RateLimit            float64           `yaml:"rate_limit" json:"rate_limit"`
	RequestMethod        string            `yaml:"request_method" json:"request_method"`
	RequestData          map[string]string `yaml:"request_data,omitempty" json:"request_data,omitempty"`
	MaxSearchResults     int               `yaml:"max_search_results,omitempty" json:"max_search_results,omitempty"`
	MaxArticlesToProcess int               `yaml:"max_articles_to_process,omitempty" json:"max_articles_to_process,omitempty"`
	Selectors            Selectors         `yaml:"selectors" json:"selectors"`
	Headers              map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// MinInterval converts the configured rate limit (seconds) to a duration.
func (s SourceConfig) MinInterval() time.Duration {
	if s.RateLimit <= 0 {
		return 0
	}
	return time.Duration(s.RateLimit * float64(time.Second))
}

// Method returns the configured HTTP method, defaulting to GET.
func (s SourceConfig) Method() string {
	m := strings.ToUpper(strings.TrimSpace(s.RequestMethod))
	if m == "" {
		return "GET"
	}
	return m
}
