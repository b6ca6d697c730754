package fetch

import (
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// encodingLadder lists the charsets tried, in order, when the declared
// charset produces garbage. Legacy news sites routinely mislabel these.
var encodingLadder = []string{"utf-8", "iso-8859-1", "windows-1252", "latin-1", "cp1252"}

const (
	ratioAccept = 0.85
	ratioBinary = 0.30
	ratioDirty  = 0.60
	ratioWindow = 1000
)

// decodeBody turns raw response bytes into text, recovering from wrong or
// missing charset declarations. It returns "" when every decoding attempt
// still looks binary.
func decodeBody(raw []byte, contentType, pageURL string) string {
	if len(raw) == 0 {
		return ""
	}

	declared := charsetFromContentType(contentType)
	best := decodeAs(raw, declared)
	bestRatio := printableRatio(best, ratioWindow)
	if bestRatio >= ratioAccept {
		return best
	}

	// The declared charset produced garbage. BOMs and in-document meta
	// declarations are authoritative when present, then the statistical
	// detector, then the fixed ladder; keep whichever decodes cleanest.
	if enc, name, certain := charset.DetermineEncoding(raw, contentType); certain && !strings.EqualFold(name, declared) {
		if out, err := enc.NewDecoder().Bytes(raw); err == nil {
			if r := printableRatio(string(out), ratioWindow); r > bestRatio {
				best, bestRatio = string(out), r
			}
		}
	}
	if name := detectCharset(raw); name != "" && !strings.EqualFold(name, declared) {
		if text := decodeAs(raw, name); text != "" {
			if r := printableRatio(text, ratioWindow); r > bestRatio {
				best, bestRatio = text, r
			}
		}
	}
	for _, name := range encodingLadder {
		if strings.EqualFold(name, declared) {
			continue
		}
		text := decodeAs(raw, name)
		if text == "" {
			continue
		}
		if r := printableRatio(text, ratioWindow); r > bestRatio {
			best, bestRatio = text, r
		}
		if bestRatio >= ratioAccept {
			break
		}
	}

	if bestRatio < ratioBinary {
		log.Debug().Str("url", pageURL).Float64("printable_ratio", bestRatio).Msg("content unreadable after encoding recovery")
		return ""
	}
	if bestRatio < ratioDirty {
		best = stripUnreadable(best)
	}
	return best
}

// decodeAs decodes raw with the named charset, or as UTF-8 when the name is
// empty or unknown.
func decodeAs(raw []byte, name string) string {
	enc := encodingFor(name)
	if enc == nil {
		return string(raw)
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return ""
	}
	return string(out)
}

func encodingFor(name string) encoding.Encoding {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8", "ascii", "us-ascii":
		return nil
	case "iso-8859-1", "latin-1", "latin1":
		return charmap.ISO8859_1
	case "windows-1252", "cp1252":
		return charmap.Windows1252
	default:
		if e, err := htmlindex.Get(name); err == nil {
			return e
		}
		return nil
	}
}

func detectCharset(raw []byte) string {
	res, err := chardet.NewHtmlDetector().DetectBest(raw)
	if err != nil || res == nil {
		return ""
	}
	return res.Charset
}

func charsetFromContentType(ct string) string {
	for _, part := range strings.Split(ct, ";") {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(strings.ToLower(part), "charset="); ok {
			return strings.Trim(v, `"'`)
		}
	}
	return ""
}

// printableRatio measures the share of printable runes over the first
// window runes. NULs and replacement characters count as unprintable; they
// are exactly what a wrong decode leaves behind. Empty input counts as fully
// printable; callers treat empty bodies separately.
func printableRatio(s string, window int) float64 {
	if s == "" {
		return 1.0
	}
	total, printable := 0, 0
	for _, r := range s {
		if total >= window {
			break
		}
		total++
		if r == 0 || r == unicode.ReplacementChar {
			continue
		}
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	if total == 0 {
		return 1.0
	}
	return float64(printable) / float64(total)
}

// stripUnreadable drops NULs and replacement characters left behind by a
// partially wrong decode.
func stripUnreadable(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, s)
}
