package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/osintscope/eventsearch/internal/model"
)

// WritePDF renders the report to w: a summary header with the query,
// filters and a per-type tally, then one section per event in rank order.
func WritePDF(w io.Writer, rep Report) error {
	if len(rep.Events) == 0 {
		return ErrNoEvents
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "Event Search Report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)

	field(pdf, "Query", rep.Query.QueryText)
	if rep.Query.Location != "" {
		field(pdf, "Location filter", rep.Query.Location)
	}
	if rep.Query.EventType != "" {
		field(pdf, "Type filter", displayType(rep.Query.EventType))
	}
	if !rep.GeneratedAt.IsZero() {
		field(pdf, "Generated", rep.GeneratedAt.Format("2006-01-02 15:04:05"))
	}
	field(pdf, "Total events", strconv.Itoa(len(rep.Events)))
	for _, tc := range typeBreakdown(rep.Events) {
		field(pdf, "  "+displayType(tc.Type), strconv.Itoa(tc.Count))
	}
	pdf.Ln(4)

	for i, ev := range rep.Events {
		section(pdf, i+1, ev)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("rendering pdf: %w", err)
	}
	return nil
}

// field writes one "Label: value" line, skipping empty values.
func field(pdf *gofpdf.Fpdf, label, value string) {
	if value == "" {
		return
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Write(5, label+": ")
	pdf.SetFont("Helvetica", "", 11)
	pdf.Write(5, value)
	pdf.Ln(5)
}

func section(pdf *gofpdf.Fpdf, n int, ev model.Event) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, fmt.Sprintf("%d. %s", n, ev.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	if ev.Summary != "" {
		pdf.MultiCell(0, 5, ev.Summary, "", "L", false)
	}

	field(pdf, "Type", displayType(ev.EventType))
	when := ev.EventDate
	if ev.EventTime != "" {
		when = strings.TrimSpace(when + " " + ev.EventTime)
	}
	field(pdf, "When", when)
	field(pdf, "Where", locationText(ev.Location))
	field(pdf, "Perpetrator", ev.Perpetrator)
	field(pdf, "Participants", strings.Join(ev.Participants, ", "))
	field(pdf, "Organizations", strings.Join(ev.Organizations, ", "))
	if ev.Casualties != nil {
		field(pdf, "Casualties", fmt.Sprintf("%d killed, %d injured", ev.Casualties.Killed, ev.Casualties.Injured))
	}
	field(pdf, "Confidence", fmt.Sprintf("%.0f%%", ev.Confidence*100))

	if ev.SourceURL != "" {
		label := ev.SourceName
		if label == "" {
			label = ev.SourceURL
		}
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Write(5, "Source: ")
		pdf.SetFont("Helvetica", "", 11)
		pdf.WriteLinkString(5, label, ev.SourceURL)
		pdf.Ln(5)
	} else if ev.SourceName != "" {
		field(pdf, "Source", ev.SourceName)
	}
	pdf.Ln(3)
}
