package utils

import (
	"unicode"

	"github.com/aryann/difflib"
)

// WordDelta is one token of a word-level diff. Op is -1 for removed, 0 for
// unchanged, +1 for added.
type WordDelta struct {
	Op   int    `json:"op"`
	Text string `json:"text"`
}

// DiffWords diffs two texts at word granularity, keeping whitespace and
// punctuation runs as their own tokens so the result can be re-joined
// verbatim.
func DiffWords(a, b string) []WordDelta {
	at := tokenizeWords(a)
	bt := tokenizeWords(b)
	recs := difflib.Diff(at, bt)
	out := make([]WordDelta, 0, len(recs))
	for _, r := range recs {
		switch r.Delta {
		case difflib.Common:
			out = append(out, WordDelta{Op: 0, Text: r.Payload})
		case difflib.LeftOnly:
			out = append(out, WordDelta{Op: -1, Text: r.Payload})
		case difflib.RightOnly:
			out = append(out, WordDelta{Op: +1, Text: r.Payload})
		}
	}
	return out
}

func tokenizeWords(s string) []string {
	var out []string
	var cur []rune
	kind := -1 // 0=space, 1=word, 2=punct
	flush := func() {
		if len(cur) == 0 {
			return
		}
		out = append(out, string(cur))
		cur = cur[:0]
	}
	for _, r := range s {
		k := 2
		switch {
		case unicode.IsSpace(r):
			k = 0
		case unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' || r == '-' || r == '\'':
			k = 1
		}
		if kind == -1 {
			kind = k
		}
		if k != kind {
			flush()
			kind = k
		}
		cur = append(cur, r)
	}
	flush()
	return out
}
