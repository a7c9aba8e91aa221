package models

// MatchMethod identifies the strategy that produced a mention
type MatchMethod string

const (
	MatchMethodKnownSymbol MatchMethod = "known_symbol" // Exact hit on a reference symbol
	MatchMethodCompanyName MatchMethod = "company_name" // Hit on a canonical name or alias
	MatchMethodContextual  MatchMethod = "contextual"   // Template such as "Company (TICKER)"
	MatchMethodPattern     MatchMethod = "pattern"      // Bare uppercase token heuristic
)

// Priority orders methods for dominant-method selection and tie-breaks.
// Higher wins. Unknown methods rank 0.
func (m MatchMethod) Priority() int {
	switch m {
	case MatchMethodKnownSymbol:
		return 4
	case MatchMethodCompanyName:
		return 3
	case MatchMethodContextual:
		return 2
	case MatchMethodPattern:
		return 1
	default:
		return 0
	}
}

// Outranks reports whether m has a strictly higher priority than other
func (m MatchMethod) Outranks(other MatchMethod) bool {
	return m.Priority() > other.Priority()
}

// Span is a byte offset pair into the tagged text
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Mention is one raw occurrence of a candidate symbol found by one strategy
type Mention struct {
	Symbol      string      `json:"symbol"`
	CompanyName string      `json:"company_name,omitempty"`
	Span        Span        `json:"span"`
	Context     string      `json:"context"`
	Confidence  float64     `json:"confidence"`
	Method      MatchMethod `json:"method"`
}

// TaggedResult is the merged outcome for one symbol in one document
type TaggedResult struct {
	Symbol          string      `json:"symbol"`
	BestCompanyName string      `json:"best_company_name,omitempty"`
	Spans           []Span      `json:"spans"`
	TopContexts     []string    `json:"top_contexts"`
	MentionCount    int         `json:"mention_count"`
	FinalConfidence float64     `json:"final_confidence"`
	DominantMethod  MatchMethod `json:"dominant_method"`
}

// FirstContext returns the first stored context or ""
func (r TaggedResult) FirstContext() string {
	if len(r.TopContexts) == 0 {
		return ""
	}
	return r.TopContexts[0]
}
