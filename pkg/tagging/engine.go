package tagging

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/TomMcIver/Stock-Port/pkg/lexicon"
	"github.com/TomMcIver/Stock-Port/pkg/metrics"
	"github.com/TomMcIver/Stock-Port/pkg/models"
	"github.com/TomMcIver/Stock-Port/pkg/tracing"
)

// ReloadGuard serializes reloads across processes. fn runs only when the
// guard is obtained; an error means it was not.
type ReloadGuard interface {
	Guard(ctx context.Context, fn func(ctx context.Context) error) error
}

// Engine tags documents against the current snapshot
type Engine struct {
	logger   ectologger.Logger
	source   ReferenceSource
	lexicon  *lexicon.Lexicon
	config   Config
	guard    ReloadGuard
	snapshot atomic.Pointer[Snapshot]
	reloadMu sync.Mutex
}

// Option configures an Engine
type Option func(*Engine)

// WithReloadGuard makes Reload obtain guard before reading the source
func WithReloadGuard(guard ReloadGuard) Option {
	return func(e *Engine) {
		e.guard = guard
	}
}

// NewEngine creates an engine with an empty snapshot. Call Reload to load
// the reference set.
func NewEngine(logger ectologger.Logger, source ReferenceSource, lex *lexicon.Lexicon, cfg Config, opts ...Option) *Engine {
	if lex == nil {
		lex = lexicon.Default()
	}

	e := &Engine{
		logger:  logger,
		source:  source,
		lexicon: lex,
		config:  cfg,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.snapshot.Store(Compile(NewReference(nil), lex, cfg))
	return e
}

// Snapshot returns the snapshot currently in use
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Lexicon returns the engine's lexicon
func (e *Engine) Lexicon() *lexicon.Lexicon {
	return e.lexicon
}

// TagDocument finds the securities mentioned in a document. Title and body
// are joined with a single space. Whitespace-only input yields no results.
func (e *Engine) TagDocument(ctx context.Context, title, body, documentID string) []models.TaggedResult {
	ctx, span := tracing.StartSpan(ctx, "tagging.Engine.TagDocument")
	defer span.End()

	started := time.Now()
	snap := e.snapshot.Load()

	mentions := snap.Match(JoinText(title, body))
	results := Merge(mentions, snap.scorer, snap.lexicon, snap.config.MaxTopContexts)

	byMethod := make(map[string]int)
	for _, m := range mentions {
		byMethod[string(m.Method)]++
	}
	metrics.RecordMentions(byMethod)
	for _, r := range results {
		metrics.RecordResult(string(r.DominantMethod))
	}
	metrics.RecordDocumentTagged(len(results), time.Since(started).Seconds())

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"document_id": documentID,
		"mentions":    len(mentions),
		"results":     len(results),
	}).Debug("Tagged document")

	return results
}

// Candidates returns the quick reference-free candidate symbols for text
func (e *Engine) Candidates(title, body string) []string {
	return e.snapshot.Load().Candidates(JoinText(title, body))
}

// Stats describes the current snapshot
func (e *Engine) Stats() Stats {
	return e.snapshot.Load().Stats()
}

// Reload rebuilds the snapshot from the source and swaps it in. Source
// failures produce a degraded snapshot rather than an error; an error is
// returned only when the reload guard could not be obtained, in which case
// the current snapshot stays in place.
func (e *Engine) Reload(ctx context.Context) (Stats, error) {
	ctx, span := tracing.StartSpan(ctx, "tagging.Engine.Reload")
	defer span.End()

	if e.guard == nil {
		return e.Refresh(ctx), nil
	}

	var stats Stats
	err := e.guard.Guard(ctx, func(ctx context.Context) error {
		stats = e.Refresh(ctx)
		return nil
	})
	if err != nil {
		metrics.RecordReload("locked", 0, 0, 0)
		e.logger.WithContext(ctx).WithError(err).Warn("Reload skipped, another instance holds the reload guard")
		return e.Stats(), err
	}
	return stats, nil
}

// Refresh rebuilds the snapshot from the source in this process only,
// bypassing the reload guard.
func (e *Engine) Refresh(ctx context.Context) Stats {
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	ref := LoadReference(ctx, e.source, e.logger)
	snap := Compile(ref, e.lexicon, e.config)
	e.snapshot.Store(snap)

	stats := snap.Stats()
	outcome := "ok"
	if stats.Degraded {
		outcome = "degraded"
	}
	metrics.RecordReload(outcome, stats.Symbols, stats.Names, stats.Aliases)

	return stats
}

// JoinText builds the tagged text from a title and body
func JoinText(title, body string) string {
	if strings.TrimSpace(title) == "" {
		return body
	}
	if body == "" {
		return title
	}
	return title + " " + body
}
