package tagging

import (
	"strings"

	"github.com/TomMcIver/Stock-Port/pkg/models"
)

// Match runs every strategy over text and returns the raw mentions. The
// strategies are independent, so one occurrence may be reported several
// times under different methods; Merge reconciles them.
func (s *Snapshot) Match(text string) []models.Mention {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var mentions []models.Mention
	mentions = append(mentions, s.matchKnownSymbols(text)...)
	mentions = append(mentions, s.matchCompanyNames(text)...)
	mentions = append(mentions, s.matchPatterns(text)...)
	mentions = append(mentions, s.matchContextual(text)...)
	return mentions
}

func (s *Snapshot) matchKnownSymbols(text string) []models.Mention {
	var mentions []models.Mention
	for _, h := range s.symbols.scan(text) {
		symbol := strings.ToUpper(h.pattern)
		if s.lexicon.IsBlacklisted(symbol) {
			continue
		}

		sec, ok := s.reference.Lookup(symbol)
		if !ok {
			continue
		}

		mentions = append(mentions, models.Mention{
			Symbol:      sec.Symbol,
			CompanyName: sec.Name,
			Span:        models.Span{Start: h.start, End: h.end},
			Context:     contextWindow(text, h.start, h.end, s.config.PatternWindow),
			Confidence:  s.config.Weights.KnownSymbolBase,
			Method:      models.MatchMethodKnownSymbol,
		})
	}
	return mentions
}

func (s *Snapshot) matchCompanyNames(text string) []models.Mention {
	var mentions []models.Mention
	for _, h := range s.names.scan(text) {
		sec, ok := s.reference.LookupName(h.pattern)
		if !ok || s.lexicon.IsBlacklisted(sec.Symbol) {
			continue
		}

		mentions = append(mentions, models.Mention{
			Symbol:      sec.Symbol,
			CompanyName: sec.Name,
			Span:        models.Span{Start: h.start, End: h.end},
			Context:     contextWindow(text, h.start, h.end, s.config.PatternWindow),
			Confidence:  s.config.Weights.CompanyNameBase,
			Method:      models.MatchMethodCompanyName,
		})
	}
	return mentions
}

// token is one bare-symbol occurrence
type token struct {
	symbol     string
	start, end int
}

func (s *Snapshot) matchPatterns(text string) []models.Mention {
	var tokens []token
	occurrences := make(map[string]int)
	dollar := make(map[string]bool)

	for _, m := range bareSymbolPattern.FindAllStringSubmatchIndex(text, -1) {
		if !isWholeWord(text, m[4], m[5]) {
			continue
		}
		symbol := text[m[4]:m[5]]
		occurrences[symbol]++
		if m[3] > m[2] {
			dollar[symbol] = true
		}
		tokens = append(tokens, token{symbol: symbol, start: m[4], end: m[5]})
	}

	var mentions []models.Mention
	for _, t := range tokens {
		if _, known := s.reference.Lookup(t.symbol); known {
			continue
		}
		if s.lexicon.IsBlacklisted(t.symbol) {
			continue
		}

		window := contextWindow(text, t.start, t.end, s.config.PatternWindow)
		confidence := s.scorer.PatternScore(PatternInput{
			Symbol:         t.symbol,
			Window:         window,
			FinancialTerms: s.lexicon.FinancialTerms(),
			DollarPrefixed: dollar[t.symbol],
			Occurrences:    occurrences[t.symbol],
			CommonWord:     s.lexicon.IsCommonWord(t.symbol),
		})
		if confidence <= s.config.PatternThreshold {
			continue
		}

		mentions = append(mentions, models.Mention{
			Symbol:     t.symbol,
			Span:       models.Span{Start: t.start, End: t.end},
			Context:    window,
			Confidence: confidence,
			Method:     models.MatchMethodPattern,
		})
	}
	return mentions
}

func (s *Snapshot) matchContextual(text string) []models.Mention {
	var mentions []models.Mention
	for _, tmpl := range contextualTemplates {
		for _, m := range tmpl.pattern.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[2*tmpl.symbol], m[2*tmpl.symbol+1]
			if !isWholeWord(text, start, end) {
				continue
			}
			symbol := text[start:end]
			if s.lexicon.IsBlacklisted(symbol) {
				continue
			}

			phrase := text[m[0]:m[1]]
			confidence := s.scorer.ContextualScore(phrase, s.lexicon.ContextualTerms())
			if confidence <= s.config.ContextualThreshold {
				continue
			}

			company := ""
			if tmpl.company > 0 && m[2*tmpl.company] >= 0 {
				company = text[m[2*tmpl.company]:m[2*tmpl.company+1]]
			}
			if sec, ok := s.reference.Lookup(symbol); ok && sec.Name != "" {
				company = sec.Name
			}

			mentions = append(mentions, models.Mention{
				Symbol:      symbol,
				CompanyName: company,
				Span:        models.Span{Start: m[0], End: m[1]},
				Context:     contextWindow(text, m[0], m[1], s.config.ContextualWindow),
				Confidence:  confidence,
				Method:      models.MatchMethodContextual,
			})
		}
	}
	return mentions
}

// Candidates returns the distinct non-blacklisted bare symbols in text, in
// first-seen order, without consulting the reference set or scoring.
func (s *Snapshot) Candidates(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range bareSymbolPattern.FindAllStringSubmatchIndex(text, -1) {
		if !isWholeWord(text, m[4], m[5]) {
			continue
		}
		symbol := text[m[4]:m[5]]
		if s.lexicon.IsBlacklisted(symbol) {
			continue
		}
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		out = append(out, symbol)
	}
	return out
}
