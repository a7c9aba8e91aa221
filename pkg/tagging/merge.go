package tagging

import (
	"sort"
	"unicode/utf8"

	"github.com/TomMcIver/Stock-Port/pkg/lexicon"
	"github.com/TomMcIver/Stock-Port/pkg/models"
)

type group struct {
	symbol      string
	spans       []models.Span
	contexts    []string
	confidences []float64
	method      models.MatchMethod
	companyName string
}

// Merge collapses mentions into one result per symbol, ordered by final
// confidence descending then symbol. No threshold is applied.
func Merge(mentions []models.Mention, scorer *Scorer, lex *lexicon.Lexicon, maxContexts int) []models.TaggedResult {
	if len(mentions) == 0 {
		return []models.TaggedResult{}
	}

	groups := make(map[string]*group)
	order := make([]string, 0)

	for _, m := range mentions {
		if lex != nil && lex.IsBlacklisted(m.Symbol) {
			continue
		}

		g, ok := groups[m.Symbol]
		if !ok {
			g = &group{symbol: m.Symbol, method: m.Method}
			groups[m.Symbol] = g
			order = append(order, m.Symbol)
		}

		g.spans = append(g.spans, m.Span)
		if m.Context != "" && len(g.contexts) < maxContexts {
			g.contexts = append(g.contexts, m.Context)
		}
		g.confidences = append(g.confidences, m.Confidence)
		if m.Method.Outranks(g.method) {
			g.method = m.Method
		}
		if utf8.RuneCountInString(m.CompanyName) > utf8.RuneCountInString(g.companyName) {
			g.companyName = m.CompanyName
		}
	}

	results := make([]models.TaggedResult, 0, len(groups))
	for _, symbol := range order {
		g := groups[symbol]
		results = append(results, models.TaggedResult{
			Symbol:          g.symbol,
			BestCompanyName: g.companyName,
			Spans:           distinctSpans(g.spans),
			TopContexts:     g.contexts,
			MentionCount:    len(g.confidences),
			FinalConfidence: scorer.MergeScore(g.confidences),
			DominantMethod:  g.method,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FinalConfidence != results[j].FinalConfidence {
			return results[i].FinalConfidence > results[j].FinalConfidence
		}
		return results[i].Symbol < results[j].Symbol
	})

	return results
}

// distinctSpans orders spans by position and drops exact duplicates reported
// by more than one strategy.
func distinctSpans(spans []models.Span) []models.Span {
	sorted := make([]models.Span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	out := make([]models.Span, 0, len(sorted))
	for _, sp := range sorted {
		if n := len(out); n > 0 && out[n-1] == sp {
			continue
		}
		out = append(out, sp)
	}
	return out
}
