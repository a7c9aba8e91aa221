package tagging

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TomMcIver/Stock-Port/pkg/lexicon"
	"github.com/TomMcIver/Stock-Port/pkg/models"
)

type fakeSource struct {
	mu      sync.Mutex
	records []models.SecurityRecord
	err     error
	calls   int
}

func (f *fakeSource) ListActive(_ context.Context) ([]models.SecurityRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeSource) set(records ...models.SecurityRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func security(symbol, name string, aliases ...string) models.SecurityRecord {
	return models.SecurityRecord{
		ID:            "sec-" + symbol,
		Symbol:        symbol,
		CanonicalName: name,
		Aliases:       aliases,
		Active:        true,
	}
}

func newLoadedEngine(t *testing.T, records ...models.SecurityRecord) *Engine {
	t.Helper()
	engine := NewEngine(testLogger(), &fakeSource{records: records}, lexicon.Default(), DefaultConfig())
	_, err := engine.Reload(context.Background())
	require.NoError(t, err)
	return engine
}

func findResult(results []models.TaggedResult, symbol string) (models.TaggedResult, bool) {
	for _, r := range results {
		if r.Symbol == symbol {
			return r, true
		}
	}
	return models.TaggedResult{}, false
}

func TestEngine_KnownSymbolScenario(t *testing.T) {
	engine := newLoadedEngine(t, security("AAPL", "Apple"))

	results := engine.TagDocument(context.Background(), "",
		"Apple (AAPL) shares rose after strong earnings; $AAPL best performer.", "doc-1")

	require.Len(t, results, 1)
	aapl := results[0]
	assert.Equal(t, "AAPL", aapl.Symbol)
	assert.GreaterOrEqual(t, aapl.FinalConfidence, 0.95)
	assert.Equal(t, "Apple", aapl.BestCompanyName)
	assert.Equal(t, models.MatchMethodKnownSymbol, aapl.DominantMethod)
	assert.GreaterOrEqual(t, len(aapl.Spans), 2)
	assert.LessOrEqual(t, len(aapl.TopContexts), 5)
}

func TestEngine_BlacklistOnlyScenario(t *testing.T) {
	engine := NewEngine(testLogger(), nil, nil, DefaultConfig())

	results := engine.TagDocument(context.Background(), "", "The CEO said the USA market was strong", "doc-2")

	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestEngine_ContextualUnknownScenario(t *testing.T) {
	engine := NewEngine(testLogger(), nil, nil, DefaultConfig())

	results := engine.TagDocument(context.Background(), "", "trades as ZYXQ on NASDAQ", "doc-3")

	require.Len(t, results, 1)
	zyxq := results[0]
	assert.Equal(t, "ZYXQ", zyxq.Symbol)
	assert.Equal(t, models.MatchMethodContextual, zyxq.DominantMethod)
	assert.GreaterOrEqual(t, zyxq.FinalConfidence, 0.5)
	assert.InDelta(t, 0.8305, zyxq.FinalConfidence, 1e-9)
	assert.Equal(t, 2, zyxq.MentionCount)
}

func TestEngine_KnownSymbolFloor(t *testing.T) {
	engine := newLoadedEngine(t, security("MSFT", "Microsoft Corporation", "Microsoft"))

	texts := []string{
		"MSFT",
		"msft closed flat",
		"Analysts like MSFT. Others prefer cash.",
		"MSFT, MSFT, MSFT",
	}
	for _, text := range texts {
		t.Run(text, func(t *testing.T) {
			results := engine.TagDocument(context.Background(), "", text, "")
			r, ok := findResult(results, "MSFT")
			require.True(t, ok)
			assert.GreaterOrEqual(t, r.FinalConfidence, 0.9)
			assert.Equal(t, models.MatchMethodKnownSymbol, r.DominantMethod)
		})
	}
}

func TestEngine_BlacklistedSymbolsNeverTagged(t *testing.T) {
	// CEO is in the reference set but blacklisted; it must still be dropped
	engine := newLoadedEngine(t, security("CEO", "Chief Holdings"), security("IBM", "International Business Machines"))

	texts := []string{
		"The CEO of IBM (CEO) spoke. $CEO CEO stock trades as CEO",
		"ticker symbol USA and FDA shares",
	}
	for _, text := range texts {
		results := engine.TagDocument(context.Background(), "", text, "")
		for _, r := range results {
			assert.False(t, engine.Lexicon().IsBlacklisted(r.Symbol), "tagged blacklisted %s", r.Symbol)
		}
	}
}

func TestEngine_EmptyInput(t *testing.T) {
	engine := newLoadedEngine(t, security("AAPL", "Apple"))

	for _, text := range []string{"", "   ", "\n\t"} {
		results := engine.TagDocument(context.Background(), " ", text, "")
		assert.Empty(t, results)
	}
}

func TestEngine_TitleIsTagged(t *testing.T) {
	engine := newLoadedEngine(t, security("NVDA", "NVIDIA Corporation", "Nvidia"))

	results := engine.TagDocument(context.Background(), "Nvidia beats estimates", "Chip demand stays high.", "doc-4")

	r, ok := findResult(results, "NVDA")
	require.True(t, ok)
	assert.Equal(t, models.MatchMethodCompanyName, r.DominantMethod)
	assert.Equal(t, []models.Span{{Start: 0, End: 6}}, r.Spans)
	assert.Equal(t, "NVIDIA Corporation", r.BestCompanyName)
}

func TestEngine_ResultsOrdered(t *testing.T) {
	engine := newLoadedEngine(t, security("AAPL", "Apple"), security("MSFT", "Microsoft"))

	results := engine.TagDocument(context.Background(), "", "MSFT and AAPL both moved; XYZW was quiet", "")

	require.Len(t, results, 3)
	assert.Equal(t, "AAPL", results[0].Symbol)
	assert.Equal(t, "MSFT", results[1].Symbol)
	assert.Equal(t, "XYZW", results[2].Symbol)
	assert.Equal(t, models.MatchMethodPattern, results[2].DominantMethod)
}

func TestEngine_DegradedSource(t *testing.T) {
	source := &fakeSource{err: errors.New("connection refused")}
	engine := NewEngine(testLogger(), source, nil, DefaultConfig())

	stats, err := engine.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, stats.Degraded)
	assert.Zero(t, stats.Symbols)
	assert.False(t, stats.SymbolMatcher)

	results := engine.TagDocument(context.Background(), "", "trades as ZYXQ on NASDAQ", "")
	require.Len(t, results, 1)
	assert.Equal(t, "ZYXQ", results[0].Symbol)
}

func TestEngine_MalformedAliases(t *testing.T) {
	bad := models.SecurityRecord{ID: "1", Symbol: "TSLA", CanonicalName: "Tesla, Inc.", AliasesJSON: "{not json", Active: true}
	good := models.SecurityRecord{ID: "2", Symbol: "AMZN", CanonicalName: "Amazon.com, Inc.", AliasesJSON: `["Amazon"]`, Active: true}
	engine := newLoadedEngine(t, bad, good)

	stats := engine.Stats()
	assert.Equal(t, 2, stats.Symbols)
	assert.Equal(t, 1, stats.Aliases)

	results := engine.TagDocument(context.Background(), "", "Amazon and TSLA", "")
	_, ok := findResult(results, "AMZN")
	assert.True(t, ok)
	_, ok = findResult(results, "TSLA")
	assert.True(t, ok)
}

func TestEngine_SkipsInactiveAndInvalid(t *testing.T) {
	inactive := security("GME", "GameStop")
	inactive.Active = false
	engine := newLoadedEngine(t, inactive, security("TOOLONG", "Too Long"), security("brk", "Berkshire Hathaway"))

	stats := engine.Stats()
	assert.Equal(t, 1, stats.Symbols)
	_, ok := engine.Snapshot().Reference().Lookup("BRK")
	assert.True(t, ok)
}

func TestEngine_ReloadSwapsSnapshot(t *testing.T) {
	source := &fakeSource{}
	engine := NewEngine(testLogger(), source, nil, DefaultConfig())

	before := engine.Snapshot()
	assert.True(t, before.Reference().Empty())

	source.set(security("AMD", "Advanced Micro Devices"))
	stats, err := engine.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Symbols)

	// The old snapshot is untouched by the swap
	assert.True(t, before.Reference().Empty())
	assert.NotSame(t, before, engine.Snapshot())

	results := engine.TagDocument(context.Background(), "", "Advanced Micro Devices rallied", "")
	r, ok := findResult(results, "AMD")
	require.True(t, ok)
	assert.Equal(t, models.MatchMethodCompanyName, r.DominantMethod)
}

func TestEngine_ConcurrentTagAndReload(t *testing.T) {
	source := &fakeSource{records: []models.SecurityRecord{security("AAPL", "Apple")}}
	engine := NewEngine(testLogger(), source, nil, DefaultConfig())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				results := engine.TagDocument(context.Background(), "", "AAPL stock", "")
				for _, r := range results {
					assert.Equal(t, "AAPL", r.Symbol)
				}
			}
		}()
		go func() {
			defer wg.Done()
			_, err := engine.Reload(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, source.calls)
}

type denyGuard struct{ err error }

func (g denyGuard) Guard(_ context.Context, _ func(ctx context.Context) error) error {
	return g.err
}

type passGuard struct{ calls int }

func (g *passGuard) Guard(ctx context.Context, fn func(ctx context.Context) error) error {
	g.calls++
	return fn(ctx)
}

func TestEngine_ReloadGuard(t *testing.T) {
	t.Run("denied keeps current snapshot", func(t *testing.T) {
		source := &fakeSource{records: []models.SecurityRecord{security("AAPL", "Apple")}}
		engine := NewEngine(testLogger(), source, nil, DefaultConfig(), WithReloadGuard(denyGuard{err: errors.New("lock held")}))
		before := engine.Snapshot()

		_, err := engine.Reload(context.Background())
		assert.Error(t, err)
		assert.Same(t, before, engine.Snapshot())
		assert.Zero(t, source.calls)

		// Refresh bypasses the guard
		stats := engine.Refresh(context.Background())
		assert.Equal(t, 1, stats.Symbols)
	})

	t.Run("granted reloads", func(t *testing.T) {
		guard := &passGuard{}
		source := &fakeSource{records: []models.SecurityRecord{security("AAPL", "Apple")}}
		engine := NewEngine(testLogger(), source, nil, DefaultConfig(), WithReloadGuard(guard))

		stats, err := engine.Reload(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Symbols)
		assert.Equal(t, 1, guard.calls)
	})
}

func TestEngine_Candidates(t *testing.T) {
	engine := NewEngine(testLogger(), nil, nil, DefaultConfig())

	got := engine.Candidates("Markets", "The CEO said AAPL and $TSLA beat, AAPL again")
	assert.Equal(t, []string{"AAPL", "TSLA"}, got)
}

func TestEngine_AccentedWordFragments(t *testing.T) {
	engine := NewEngine(testLogger(), nil, nil, DefaultConfig())

	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "trailing accent", text: "Lunch at the CAFÉ downtown", want: []string{}},
		{name: "inner accent", text: "ZÜRICH markets opened", want: []string{}},
		{name: "template capture", text: "ZÜRICH shares rallied after $CAFÉ opened", want: []string{}},
		{name: "standalone word after accented name", text: "Nestlé SA", want: []string{"SA"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := engine.TagDocument(context.Background(), "", tt.text, "")
			got := make([]string, 0, len(results))
			for _, r := range results {
				got = append(got, r.Symbol)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, append([]string{}, engine.Candidates("", tt.text)...))
		})
	}
}

func TestJoinText(t *testing.T) {
	assert.Equal(t, "body", JoinText("", "body"))
	assert.Equal(t, "body", JoinText("  ", "body"))
	assert.Equal(t, "title body", JoinText("title", "body"))
	assert.Equal(t, "title", JoinText("title", ""))
}
