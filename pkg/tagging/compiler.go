package tagging

import (
	"regexp"
	"time"

	"github.com/TomMcIver/Stock-Port/pkg/lexicon"
)

// minNameLength excludes short generic fragments from the name matcher
const minNameLength = 3

// Config contains the tunables of one engine
type Config struct {
	PatternThreshold    float64 // Pattern mentions must score above this
	ContextualThreshold float64 // Contextual mentions must score above this
	PatternWindow       int     // Context characters each side of a reference or pattern hit
	ContextualWindow    int     // Context characters each side of a template hit
	MaxTopContexts      int     // Contexts kept per merged result
	Weights             Weights
}

// DefaultConfig returns default engine configuration
func DefaultConfig() Config {
	return Config{
		PatternThreshold:    0.3,
		ContextualThreshold: 0.5,
		PatternWindow:       50,
		ContextualWindow:    100,
		MaxTopContexts:      5,
		Weights:             DefaultWeights(),
	}
}

// bareSymbolPattern finds 1-5 uppercase letters, optionally $-prefixed.
// RE2 \b is ASCII-only, so matchers recheck hits with isWholeWord.
var bareSymbolPattern = regexp.MustCompile(`(\$?)\b([A-Z]{1,5})\b`)

// contextualTemplate is a phrase shape that strongly implies a ticker
type contextualTemplate struct {
	name    string
	pattern *regexp.Regexp
	// company is the submatch index of a company name, 0 when absent
	company int
	// symbol is the submatch index of the ticker
	symbol int
}

// Keywords are case-insensitive; the ticker capture is always uppercase.
var contextualTemplates = []contextualTemplate{
	{
		name:    "company_parenthetical",
		pattern: regexp.MustCompile(`([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)\s*\(\s*([A-Z]{1,5})\s*\)`),
		company: 1,
		symbol:  2,
	},
	{
		name:    "symbol_security_noun",
		pattern: regexp.MustCompile(`\b([A-Z]{1,5})\s+(?i:stock|shares|equity)`),
		symbol:  1,
	},
	{
		name:    "trades_as",
		pattern: regexp.MustCompile(`(?i:\b(?:trades|trading|listed)\s+as)\s+([A-Z]{1,5})\b`),
		symbol:  1,
	},
	{
		name:    "ticker_symbol",
		pattern: regexp.MustCompile(`(?i:\bticker\s+(?:symbol\s+)?)([A-Z]{1,5})\b`),
		symbol:  1,
	},
	{
		name:    "dollar_symbol",
		pattern: regexp.MustCompile(`\$([A-Z]{1,5})\b`),
		symbol:  1,
	},
}

// Snapshot is an immutable reference set plus everything compiled from it.
// It is safe for concurrent use and is replaced, never modified, on reload.
type Snapshot struct {
	reference  *Reference
	lexicon    *lexicon.Lexicon
	config     Config
	scorer     *Scorer
	symbols    *dictionary // nil when the reference set is empty
	names      *dictionary // nil when no name is long enough
	compiledAt time.Time
}

// Compile builds the matchers for a reference set. An empty reference set
// disables the symbol and name matchers; the reference-independent matchers
// always run.
func Compile(ref *Reference, lex *lexicon.Lexicon, cfg Config) *Snapshot {
	if ref == nil {
		ref = NewReference(nil)
	}
	if lex == nil {
		lex = lexicon.Default()
	}

	s := &Snapshot{
		reference:  ref,
		lexicon:    lex,
		config:     cfg,
		scorer:     NewScorer(cfg.Weights),
		compiledAt: time.Now().UTC(),
	}

	if !ref.Empty() {
		s.symbols = newDictionary(ref.symbolPatterns())
		s.names = newDictionary(ref.namePatterns(minNameLength))
	}

	return s
}

// Reference returns the reference set the snapshot was compiled from
func (s *Snapshot) Reference() *Reference {
	return s.reference
}

// Stats describes a snapshot
type Stats struct {
	Symbols       int       `json:"symbols"`
	Names         int       `json:"names"`
	Aliases       int       `json:"aliases"`
	SymbolMatcher bool      `json:"symbol_matcher"`
	NameMatcher   bool      `json:"name_matcher"`
	Degraded      bool      `json:"degraded"`
	ReferenceAt   time.Time `json:"reference_loaded_at"`
	CompiledAt    time.Time `json:"compiled_at"`
}

// Stats returns counts and flags for observability
func (s *Snapshot) Stats() Stats {
	symbols, names, aliases := s.reference.Counts()
	return Stats{
		Symbols:       symbols,
		Names:         names,
		Aliases:       aliases,
		SymbolMatcher: s.symbols != nil,
		NameMatcher:   s.names != nil,
		Degraded:      s.reference.Degraded,
		ReferenceAt:   s.reference.LoadedAt,
		CompiledAt:    s.compiledAt,
	}
}
