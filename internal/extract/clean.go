package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// minContentLen is the shortest article body worth sending to extraction.
const minContentLen = 100

// dirtyRatio flags bodies that are mostly symbols or markup residue.
const dirtyRatio = 0.40

// bracketArtefact matches the [+18 photos], [advertisement], [1] style
// markers news pages leave in body text.
var bracketArtefact = regexp.MustCompile(`\[[^\]\n]*\]`)

// keptPunct is the punctuation allowed through the cleaner, beyond letters,
// digits, and whitespace.
const keptPunct = `.,;:!?'"()-%&/@+#$` + "‘’“”–—…"

// CleanText scrubs extracted page text for downstream processing: bracket
// artefacts go, control characters and symbols outside a small punctuation
// whitelist go, whitespace runs collapse, and at most one blank line survives
// between paragraphs.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = bracketArtefact.ReplaceAllString(s, " ")
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return r
		case r == '\n':
			return '\n'
		case unicode.IsSpace(r):
			return ' '
		case strings.ContainsRune(keptPunct, r):
			return r
		default:
			return -1
		}
	}, s)
	return normalizeWhitespace(s)
}

// ValidContent reports whether an extracted body is long enough to process.
// Suspiciously symbol-heavy bodies pass with a warning; short ones fail.
func ValidContent(content, pageURL string) bool {
	if utf8.RuneCountInString(content) < minContentLen {
		return false
	}
	if r := readableRatio(content); r < dirtyRatio {
		log.Warn().Str("url", pageURL).Float64("readable_ratio", r).Msg("extracted content looks degraded")
	}
	return true
}

// readableRatio is the share of letters, digits, whitespace, and common
// punctuation in the text.
func readableRatio(s string) float64 {
	if s == "" {
		return 0
	}
	total, readable := 0, 0
	for _, r := range s {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) ||
			unicode.IsPunct(r) {
			readable++
		}
	}
	return float64(readable) / float64(total)
}

// normalizeWhitespace collapses space runs inside lines and squeezes blank
// line runs down to a single separator.
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(out) > 0 && out[len(out)-1] == "" {
				continue
			}
			if len(out) == 0 {
				continue
			}
			out = append(out, "")
			continue
		}
		out = append(out, collapseSpaces(trimmed))
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}
