// Package lexicon holds the word lists that drive symbol tagging: tokens that
// must never be tagged and the vocabulary used to score candidates.
package lexicon

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the on-disk YAML layout. Omitted lists fall back to the defaults.
type File struct {
	Blacklist       []string `yaml:"blacklist"`
	FinancialTerms  []string `yaml:"financial_terms"`
	ContextualTerms []string `yaml:"contextual_terms"`
	CommonWords     []string `yaml:"common_words"`
}

// Lexicon is the immutable, normalized form of File
type Lexicon struct {
	blacklist       map[string]struct{}
	commonWords     map[string]struct{}
	financialTerms  []string
	contextualTerms []string
}

// Default returns the built-in news/finance lexicon
func Default() *Lexicon {
	return New(File{
		Blacklist:       DefaultBlacklist,
		FinancialTerms:  DefaultFinancialTerms,
		ContextualTerms: DefaultContextualTerms,
		CommonWords:     DefaultCommonWords,
	})
}

// New normalizes a File. Symbol-like lists are upper-cased, vocabulary is lower-cased.
func New(f File) *Lexicon {
	l := &Lexicon{
		blacklist:       toUpperSet(f.Blacklist),
		commonWords:     toUpperSet(f.CommonWords),
		financialTerms:  toLowerList(f.FinancialTerms),
		contextualTerms: toLowerList(f.ContextualTerms),
	}
	return l
}

// Load reads a YAML lexicon. An empty path returns the defaults.
func Load(path string) (*Lexicon, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes YAML lexicon bytes, filling omitted lists from the defaults
func Parse(data []byte) (*Lexicon, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}

	if f.Blacklist == nil {
		f.Blacklist = DefaultBlacklist
	}
	if f.FinancialTerms == nil {
		f.FinancialTerms = DefaultFinancialTerms
	}
	if f.ContextualTerms == nil {
		f.ContextualTerms = DefaultContextualTerms
	}
	if f.CommonWords == nil {
		f.CommonWords = DefaultCommonWords
	}

	return New(f), nil
}

// IsBlacklisted reports whether symbol may never be tagged
func (l *Lexicon) IsBlacklisted(symbol string) bool {
	_, ok := l.blacklist[strings.ToUpper(symbol)]
	return ok
}

// IsCommonWord reports whether symbol is an ultra-common false positive
func (l *Lexicon) IsCommonWord(symbol string) bool {
	_, ok := l.commonWords[strings.ToUpper(symbol)]
	return ok
}

// FinancialTerms returns the lower-cased vocabulary scored in pattern windows
func (l *Lexicon) FinancialTerms() []string {
	return l.financialTerms
}

// ContextualTerms returns the lower-cased keywords scored inside template hits
func (l *Lexicon) ContextualTerms() []string {
	return l.contextualTerms
}

// Blacklist returns the blacklisted tokens in no particular order
func (l *Lexicon) Blacklist() []string {
	out := make([]string, 0, len(l.blacklist))
	for k := range l.blacklist {
		out = append(out, k)
	}
	return out
}

func toUpperSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.ToUpper(strings.TrimSpace(item))
		if item != "" {
			set[item] = struct{}{}
		}
	}
	return set
}

func toLowerList(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
