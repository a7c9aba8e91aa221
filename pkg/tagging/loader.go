package tagging

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Gobusters/ectologger"

	"github.com/TomMcIver/Stock-Port/pkg/models"
	"github.com/TomMcIver/Stock-Port/pkg/tracing"
)

// ReferenceSource yields the active known-security records
type ReferenceSource interface {
	ListActive(ctx context.Context) ([]models.SecurityRecord, error)
}

// Security is a reference entry after alias parsing
type Security struct {
	ID      string
	Symbol  string
	Name    string
	Aliases []string
	Sector  string
}

// Reference is the loaded reference set and its three lookup indexes
type Reference struct {
	bySymbol map[string]*Security
	byName   map[string]*Security // lower-cased canonical name
	byAlias  map[string]*Security // lower-cased alias

	// Degraded is set when the source could not be read at all
	Degraded bool
	LoadedAt time.Time
}

// NewReference indexes already-parsed securities. Later entries win on key collisions.
func NewReference(securities []Security) *Reference {
	ref := &Reference{
		bySymbol: make(map[string]*Security, len(securities)),
		byName:   make(map[string]*Security, len(securities)),
		byAlias:  make(map[string]*Security),
		LoadedAt: time.Now().UTC(),
	}

	for i := range securities {
		sec := &securities[i]
		ref.bySymbol[sec.Symbol] = sec
		if sec.Name != "" {
			ref.byName[strings.ToLower(sec.Name)] = sec
		}
		for _, alias := range sec.Aliases {
			alias = strings.TrimSpace(alias)
			if alias != "" {
				ref.byAlias[strings.ToLower(alias)] = sec
			}
		}
	}

	return ref
}

// LoadReference reads the source and builds a Reference. It never fails: a
// source error yields an empty degraded reference and a malformed alias
// payload loads that record without aliases.
func LoadReference(ctx context.Context, source ReferenceSource, logger ectologger.Logger) *Reference {
	ctx, span := tracing.StartSpan(ctx, "tagging.LoadReference")
	defer span.End()

	if source == nil {
		return NewReference(nil)
	}

	records, err := source.ListActive(ctx)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Warn("Reference set unavailable, running with reference-independent matchers only")
		ref := NewReference(nil)
		ref.Degraded = true
		return ref
	}

	securities := make([]Security, 0, len(records))
	for _, rec := range records {
		if !rec.Active {
			continue
		}

		symbol := models.NormalizeSymbol(rec.Symbol)
		if !models.IsValidSymbol(symbol) {
			logger.WithContext(ctx).WithFields(map[string]any{"symbol": rec.Symbol, "id": rec.ID}).Warn("Skipping reference record with invalid symbol")
			continue
		}

		aliases := rec.Aliases
		if len(aliases) == 0 && rec.AliasesJSON != "" {
			parsed, err := rec.ParseAliases()
			if err != nil {
				logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"symbol": symbol}).Warn("Malformed alias payload, loading record without aliases")
			}
			aliases = parsed
		}

		securities = append(securities, Security{
			ID:      rec.ID,
			Symbol:  symbol,
			Name:    strings.TrimSpace(rec.CanonicalName),
			Aliases: aliases,
			Sector:  rec.Sector,
		})
	}

	ref := NewReference(securities)
	logger.WithContext(ctx).WithFields(map[string]any{
		"symbols": len(ref.bySymbol),
		"names":   len(ref.byName),
		"aliases": len(ref.byAlias),
	}).Info("Loaded reference set")

	return ref
}

// Lookup returns the security for an upper-cased symbol
func (r *Reference) Lookup(symbol string) (*Security, bool) {
	sec, ok := r.bySymbol[symbol]
	return sec, ok
}

// LookupName resolves a lower-cased name, canonical names first then aliases
func (r *Reference) LookupName(name string) (*Security, bool) {
	if sec, ok := r.byName[name]; ok {
		return sec, true
	}
	sec, ok := r.byAlias[name]
	return sec, ok
}

// Empty reports whether no symbols are loaded
func (r *Reference) Empty() bool {
	return len(r.bySymbol) == 0
}

// Counts returns the sizes of the symbol, name and alias indexes
func (r *Reference) Counts() (symbols, names, aliases int) {
	return len(r.bySymbol), len(r.byName), len(r.byAlias)
}

func (r *Reference) symbolPatterns() []string {
	out := make([]string, 0, len(r.bySymbol))
	for symbol := range r.bySymbol {
		out = append(out, symbol)
	}
	return out
}

// namePatterns returns canonical names and aliases longer than minLen runes
func (r *Reference) namePatterns(minLen int) []string {
	out := make([]string, 0, len(r.byName)+len(r.byAlias))
	for name := range r.byName {
		if utf8.RuneCountInString(name) > minLen {
			out = append(out, name)
		}
	}
	for alias := range r.byAlias {
		if _, dup := r.byName[alias]; dup {
			continue
		}
		if utf8.RuneCountInString(alias) > minLen {
			out = append(out, alias)
		}
	}
	return out
}
