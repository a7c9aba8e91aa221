package tagging

import (
	"sort"
	"strings"
)

// Weights holds every tunable constant of the scoring model
type Weights struct {
	KnownSymbolBase float64 // Base confidence of a reference symbol hit
	CompanyNameBase float64 // Base confidence of a name or alias hit

	PatternBase       float64 // Starting score of a bare token
	PatternTermBonus  float64 // Per financial term found in the window
	DollarPrefixBonus float64 // When $SYMBOL appears anywhere in the text
	RepetitionBonus   float64 // Per extra whole-word occurrence
	RepetitionCap     float64 // Ceiling of the repetition bonus
	CommonWordFactor  float64 // Multiplier for ultra-common words

	ContextualBase      float64 // Starting score of a template hit
	ParentheticalBonus  float64 // When the phrase has a "(...)" form
	ContextualTermBonus float64 // Per keyword inside the phrase

	MaxWeight    float64 // Weight of the strongest mention in a merge
	MeanWeight   float64 // Weight of the mean mention in a merge
	MentionBoost float64 // Per-mention multiplier step when a symbol repeats
}

// DefaultWeights returns the stock scoring model
func DefaultWeights() Weights {
	return Weights{
		KnownSymbolBase: 0.9,
		CompanyNameBase: 0.8,

		PatternBase:       0.5,
		PatternTermBonus:  0.1,
		DollarPrefixBonus: 0.2,
		RepetitionBonus:   0.05,
		RepetitionCap:     0.2,
		CommonWordFactor:  0.1,

		ContextualBase:      0.7,
		ParentheticalBonus:  0.2,
		ContextualTermBonus: 0.1,

		MaxWeight:    0.7,
		MeanWeight:   0.3,
		MentionBoost: 0.05,
	}
}

// Scorer computes mention and merge confidences
type Scorer struct {
	weights Weights
}

// NewScorer creates a new Scorer
func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// PatternInput carries the signals scored for a bare-token mention
type PatternInput struct {
	Symbol         string
	Window         string   // Whitespace-normalized context window
	FinancialTerms []string // Lower-cased vocabulary
	DollarPrefixed bool     // $SYMBOL appears somewhere in the document
	Occurrences    int      // Whole-word occurrences of Symbol in the document
	CommonWord     bool
}

// PatternScore scores a bare uppercase token
func (s *Scorer) PatternScore(in PatternInput) float64 {
	score := s.weights.PatternBase
	score += s.TermBonus(in.Window, in.FinancialTerms, s.weights.PatternTermBonus)

	if in.DollarPrefixed {
		score += s.weights.DollarPrefixBonus
	}

	score += s.RepetitionScore(in.Occurrences)

	if in.CommonWord {
		score *= s.weights.CommonWordFactor
	}

	return clamp01(score)
}

// RepetitionScore is the capped bonus for occurrences beyond the first
func (s *Scorer) RepetitionScore(occurrences int) float64 {
	extra := occurrences - 1
	if extra <= 0 {
		return 0
	}
	return min(float64(extra)*s.weights.RepetitionBonus, s.weights.RepetitionCap)
}

// ContextualScore scores a template hit from the literal matched phrase
func (s *Scorer) ContextualScore(phrase string, terms []string) float64 {
	score := s.weights.ContextualBase
	if strings.Contains(phrase, "(") && strings.Contains(phrase, ")") {
		score += s.weights.ParentheticalBonus
	}
	score += s.TermBonus(phrase, terms, s.weights.ContextualTermBonus)
	return clamp01(score)
}

// TermBonus adds bonus once per term found as a substring of text, case-insensitively
func (s *Scorer) TermBonus(text string, terms []string, bonus float64) float64 {
	if text == "" || len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	total := 0.0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			total += bonus
		}
	}
	return total
}

// Blend is the weighted max/mean of a group of confidences
func (s *Scorer) Blend(confidences []float64) float64 {
	if len(confidences) == 0 {
		return 0
	}
	maxConf, sum := confidences[0], 0.0
	for _, c := range confidences {
		maxConf = max(maxConf, c)
		sum += c
	}
	mean := sum / float64(len(confidences))
	return maxConf*s.weights.MaxWeight + mean*s.weights.MeanWeight
}

// Boost applies the repeated-mention multiplier for a group of n mentions
func (s *Scorer) Boost(score float64, n int) float64 {
	if n > 1 {
		score *= 1 + float64(n)*s.weights.MentionBoost
	}
	return clamp01(score)
}

// GroupScore is Boost(Blend(confidences)) for one set of mentions, the
// formula taken literally. Adding a weak mention can lower it; MergeScore is
// the monotone form results use.
func (s *Scorer) GroupScore(confidences []float64) float64 {
	return s.Boost(s.Blend(confidences), len(confidences))
}

// MergeScore is the final confidence of a symbol. It is the best GroupScore
// over the k strongest mentions for every k, so one more mention can never
// lower it.
func (s *Scorer) MergeScore(confidences []float64) float64 {
	if len(confidences) == 0 {
		return 0
	}

	sorted := make([]float64, len(confidences))
	copy(sorted, confidences)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	best := 0.0
	for k := 1; k <= len(sorted); k++ {
		best = max(best, s.GroupScore(sorted[:k]))
	}
	return best
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
