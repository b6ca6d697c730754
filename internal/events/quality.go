package events

import (
	"strings"
	"unicode"
)

const qualitySampleLen = 1000

const readablePunct = `.,!?;:()-"'`

// readableRatio measures how much of the first kilobyte of text looks like
// prose. Binary junk, encoding wrecks and minified markup score low.
func readableRatio(content string) float64 {
	sample := []rune(content)
	if len(sample) > qualitySampleLen {
		sample = sample[:qualitySampleLen]
	}
	if len(sample) == 0 {
		return 0
	}
	readable := 0
	for _, c := range sample {
		if unicode.IsLetter(c) || unicode.IsDigit(c) || unicode.IsSpace(c) || strings.ContainsRune(readablePunct, c) {
			readable++
		}
	}
	return float64(readable) / float64(len(sample))
}

// aggressiveClean strips everything that is neither printable nor
// whitespace: null bytes, control characters, replacement-char runs.
func aggressiveClean(content string) string {
	return strings.Map(func(c rune) rune {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			return c
		}
		return -1
	}, content)
}
