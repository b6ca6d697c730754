package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/osintscope/eventsearch/internal/model"
)

// Document holds the article fields pulled from one page.
type Document struct {
	Title   string
	Content string
	Date    string
	Author  string
}

// Block-like nodes considered when walking a configured content container.
const blockSelector = "p, div, li, h1, h2, h3, h4, h5, h6"

// minBlockLen filters out stray labels and button captions.
const minBlockLen = 20

// Generic per-field fallbacks, tried in order, for pages without a
// configured selector set.
var (
	genericTitle   = []string{"h1", "title", ".article-title", ".headline"}
	genericContent = []string{"article", "main", ".article-body", ".content", "[role=main]"}
	genericDate    = []string{"time", ".published-date", ".date", "[datetime]"}
	genericAuthor  = []string{".author", "[rel=author]", ".byline", ".author-name"}
)

// FromHTML extracts article fields from page HTML. Each field with a
// configured selector tries its comma-separated fallbacks in order; fields
// without one, or whose selectors match nothing, fall back to generic
// news-page heuristics. Title, content, and author come back cleaned; the
// date string is left as found for downstream parsing.
func FromHTML(htmlText string, sel model.Selectors) Document {
	doc := parse(htmlText)
	if doc == nil {
		return Document{}
	}
	return Document{
		Title:   CleanText(fieldOrGeneric(doc, sel.Title, firstMatchText(genericTitle))),
		Content: CleanText(contentOrGeneric(doc, sel.Content)),
		Date:    strings.TrimSpace(dateOrGeneric(doc, sel.Date)),
		Author:  CleanText(fieldOrGeneric(doc, sel.Author, firstMatchText(genericAuthor))),
	}
}

func parse(htmlText string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil
	}
	return doc
}

// splitSelectors turns "h1.title, .headline" into its ordered fallbacks.
func splitSelectors(spec string) []string {
	var out []string
	for _, part := range strings.Split(spec, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func fieldOrGeneric(doc *goquery.Document, selSpec string, generic func(*goquery.Document) string) string {
	if v := fieldText(doc, selSpec); v != "" {
		return v
	}
	return generic(doc)
}

// fieldText tries each fallback selector in order and returns the texts of
// every element matched by the first selector that yields anything, joined
// with single spaces.
func fieldText(doc *goquery.Document, selSpec string) string {
	for _, one := range splitSelectors(selSpec) {
		var parts []string
		doc.Find(one).Each(func(_ int, s *goquery.Selection) {
			if t := strings.TrimSpace(s.Text()); t != "" {
				parts = append(parts, t)
			}
		})
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}
	return ""
}

// firstMatchText returns a generic extractor that takes the first non-empty
// element among the given selectors.
func firstMatchText(selectors []string) func(*goquery.Document) string {
	return func(doc *goquery.Document) string {
		for _, one := range selectors {
			if t := strings.TrimSpace(doc.Find(one).First().Text()); t != "" {
				return t
			}
		}
		return ""
	}
}

func contentOrGeneric(doc *goquery.Document, selSpec string) string {
	if v := contentBlocks(doc, selSpec); v != "" {
		return v
	}
	return genericContentText(doc)
}

// contentBlocks walks the block-like descendants of the elements matched by
// the configured content selector, keeping segments of at least minBlockLen
// characters and dropping repeats. Nested containers restate their children's
// text, and list pages repeat teasers, so the dedupe works on a
// whitespace-normalised form.
func contentBlocks(doc *goquery.Document, selSpec string) string {
	for _, one := range splitSelectors(selSpec) {
		matches := doc.Find(one)
		if matches.Length() == 0 {
			continue
		}
		seen := make(map[string]struct{})
		var blocks []string
		matches.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
			t := strings.TrimSpace(s.Text())
			if len(t) < minBlockLen {
				return
			}
			key := collapseSpaces(t)
			if _, dup := seen[key]; dup {
				return
			}
			seen[key] = struct{}{}
			blocks = append(blocks, t)
		})
		if len(blocks) == 0 {
			// The selector pointed straight at the text node.
			if t := strings.TrimSpace(matches.First().Text()); len(t) >= minBlockLen {
				blocks = append(blocks, t)
			}
		}
		if len(blocks) > 0 {
			return strings.Join(blocks, "\n\n")
		}
	}
	return ""
}

// genericContentText finds the first recognisable article container and joins
// its paragraphs; pages without one contribute every <p> on the page.
func genericContentText(doc *goquery.Document) string {
	for _, one := range genericContent {
		container := doc.Find(one).First()
		if container.Length() == 0 {
			continue
		}
		if text := joinParagraphs(container.Find("p")); text != "" {
			return text
		}
	}
	return joinParagraphs(doc.Find("p"))
}

func joinParagraphs(sel *goquery.Selection) string {
	var parts []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, "\n\n")
}

func dateOrGeneric(doc *goquery.Document, selSpec string) string {
	if v := dateText(doc, splitSelectors(selSpec)); v != "" {
		return v
	}
	return dateText(doc, genericDate)
}

// dateText prefers a machine-readable datetime attribute over the element
// text wherever one is present.
func dateText(doc *goquery.Document, selectors []string) string {
	for _, one := range selectors {
		el := doc.Find(one).First()
		if el.Length() == 0 {
			continue
		}
		if v, ok := el.Attr("datetime"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		if t := strings.TrimSpace(el.Text()); t != "" {
			return t
		}
	}
	return ""
}
