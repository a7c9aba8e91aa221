package tagging

import (
	"strings"
	"unicode/utf8"
)

// contextWindow returns up to window characters either side of
// text[start:end], with runs of whitespace collapsed to single spaces.
func contextWindow(text string, start, end, window int) string {
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}

	from := start
	for i := 0; i < window && from > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:from])
		from -= size
	}

	to := end
	for i := 0; i < window && to < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[to:])
		to += size
	}

	return strings.Join(strings.Fields(text[from:to]), " ")
}
