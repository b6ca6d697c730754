package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/osintscope/eventsearch/internal/model"
)

// csvHeader lists the exported columns in order.
var csvHeader = []string{
	"Event Title",
	"Summary",
	"Event Type",
	"Perpetrator",
	"Location (Full Text)",
	"City",
	"Region/State",
	"Country",
	"Event Date",
	"Event Time",
	"Individuals Involved",
	"Organizations Involved",
	"Casualties (Killed)",
	"Casualties (Injured)",
	"Source Name",
	"Source URL",
	"Article Publication Date",
	"Extraction Confidence",
}

// WriteCSV writes a header row followed by one row per event.
func WriteCSV(w io.Writer, events []model.Event) error {
	if len(events) == 0 {
		return ErrNoEvents
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, ev := range events {
		if err := cw.Write(csvRow(ev)); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(ev model.Event) []string {
	var city, region, country string
	if ev.Location != nil {
		city, region, country = ev.Location.City, ev.Location.Region, ev.Location.Country
	}
	var killed, injured string
	if ev.Casualties != nil {
		killed = strconv.Itoa(ev.Casualties.Killed)
		injured = strconv.Itoa(ev.Casualties.Injured)
	}
	return []string{
		ev.Title,
		ev.Summary,
		displayType(ev.EventType),
		ev.Perpetrator,
		locationText(ev.Location),
		city,
		region,
		country,
		ev.EventDate,
		ev.EventTime,
		strings.Join(ev.Participants, ", "),
		strings.Join(ev.Organizations, ", "),
		killed,
		injured,
		ev.SourceName,
		ev.SourceURL,
		stripTimezone(ev.ArticlePublishedDate),
		fmt.Sprintf("%.0f%%", ev.Confidence*100),
	}
}
