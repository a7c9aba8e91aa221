package tagging

import (
	"sort"
	"unicode"
	"unicode/utf8"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
)

// dictionary is a case-insensitive, whole-word, longest-first multi-pattern
// matcher backed by an Aho-Corasick automaton.
type dictionary struct {
	ac       ahocorasick.AhoCorasick
	patterns []string       // ASCII lower-cased
	index    map[string]int // pattern -> position in patterns
	lengths  []int          // distinct pattern byte lengths, longest first
}

// hit is an accepted whole-word dictionary match
type hit struct {
	start   int
	end     int
	pattern string
}

// newDictionary returns nil when there is nothing to match
func newDictionary(patterns []string) *dictionary {
	d := &dictionary{index: make(map[string]int, len(patterns))}
	seenLen := make(map[int]struct{})

	for _, p := range patterns {
		p = asciiLower(p)
		if p == "" {
			continue
		}
		if _, ok := d.index[p]; ok {
			continue
		}
		d.index[p] = len(d.patterns)
		d.patterns = append(d.patterns, p)
		if _, ok := seenLen[len(p)]; !ok {
			seenLen[len(p)] = struct{}{}
			d.lengths = append(d.lengths, len(p))
		}
	}

	if len(d.patterns) == 0 {
		return nil
	}

	sort.Sort(sort.Reverse(sort.IntSlice(d.lengths)))

	// Longest first so the automaton and the fallback agree on preference.
	sort.SliceStable(d.patterns, func(i, j int) bool {
		return len(d.patterns[i]) > len(d.patterns[j])
	})
	for i, p := range d.patterns {
		d.index[p] = i
	}

	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  false,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
	})
	d.ac = builder.Build(d.patterns)

	return d
}

// scan returns all whole-word hits in text, left to right, non-overlapping.
// When the leftmost-longest candidate is not a whole word, shorter patterns
// starting at the same offset are tried; failing that, scanning resumes
// after the word the candidate started in, so a rejected candidate never
// hides a later overlapping match.
func (d *dictionary) scan(text string) []hit {
	if d == nil || text == "" {
		return nil
	}

	var hits []hit
	for pos := 0; pos < len(text); {
		next := len(text)
		for _, m := range d.ac.FindAll(text[pos:]) {
			start, end := pos+m.Start(), pos+m.End()
			if isWholeWord(text, start, end) {
				hits = append(hits, hit{start: start, end: end, pattern: d.patterns[m.Pattern()]})
				continue
			}
			if h, ok := d.shorterAt(text, start, end-start); ok {
				hits = append(hits, h)
				next = h.end
			} else {
				next = skipWord(text, start)
			}
			break
		}
		pos = next
	}
	return hits
}

func (d *dictionary) shorterAt(text string, start, longest int) (hit, bool) {
	for _, l := range d.lengths {
		if l >= longest {
			continue
		}
		end := start + l
		if end > len(text) {
			continue
		}
		candidate := asciiLower(text[start:end])
		if _, ok := d.index[candidate]; !ok {
			continue
		}
		if isWholeWord(text, start, end) {
			return hit{start: start, end: end, pattern: candidate}, true
		}
	}
	return hit{}, false
}

// isWholeWord reports whether text[start:end] is not glued to a word
// character on either side.
func isWholeWord(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

// skipWord returns the offset just past the word containing text[i]
func skipWord(text string, i int) int {
	_, size := utf8.DecodeRuneInString(text[i:])
	i += size
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isWordRune(r) {
			break
		}
		i += size
	}
	return i
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// asciiLower lower-cases ASCII letters only, keeping byte offsets stable
func asciiLower(s string) string {
	b := []byte(s)
	changed := false
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(b)
}
