package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TomMcIver/Stock-Port/internal/repositories"
	"github.com/TomMcIver/Stock-Port/internal/repositories/memory"
	"github.com/TomMcIver/Stock-Port/pkg/models"
	"github.com/TomMcIver/Stock-Port/pkg/tagging"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func result(symbol string, confidence float64, method models.MatchMethod) models.TaggedResult {
	return models.TaggedResult{
		Symbol:          symbol,
		Spans:           []models.Span{{Start: 0, End: len(symbol)}},
		TopContexts:     []string{"about " + symbol},
		MentionCount:    1,
		FinalConfidence: confidence,
		DominantMethod:  method,
	}
}

type recordingProjector struct {
	projected []string
	err       error
}

func (p *recordingProjector) Project(_ context.Context, a *models.Association) error {
	p.projected = append(p.projected, a.DocumentID+"/"+a.Symbol)
	return p.err
}

func TestAdapter_UnknownSymbolCreatesSecurity(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	engine := tagging.NewEngine(testLogger(), store, nil, tagging.DefaultConfig())
	adapter := NewAdapter(testLogger(), store, store.Associations())

	results := engine.TagDocument(ctx, "", "trades as ZYXQ on NASDAQ", "doc-3")
	report := adapter.Persist(ctx, "doc-3", results)

	assert.Equal(t, 1, report.SecuritiesCreated)
	assert.Equal(t, 1, report.Associated)
	assert.Zero(t, report.Failed)

	sec, err := store.GetBySymbol(ctx, "ZYXQ")
	require.NoError(t, err)
	assert.True(t, sec.Active)

	associations, err := store.Associations().ListByDocument(ctx, "doc-3")
	require.NoError(t, err)
	require.Len(t, associations, 1)
	assert.Equal(t, sec.ID, associations[0].SecurityID)
	assert.Equal(t, models.MatchMethodContextual, associations[0].Method)
	assert.Equal(t, 2, associations[0].MentionCount)
	assert.InDelta(t, 0.8305, associations[0].Confidence, 1e-9)
}

func TestAdapter_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	_, err := store.Create(ctx, models.CreateSecurityRequest{Symbol: "AAPL", CanonicalName: "Apple Inc."})
	require.NoError(t, err)
	adapter := NewAdapter(testLogger(), store, store.Associations())

	results := []models.TaggedResult{
		result("AAPL", 0.97, models.MatchMethodKnownSymbol),
		result("XYZW", 0.5, models.MatchMethodPattern),
	}

	first := adapter.Persist(ctx, "doc-1", results)
	assert.Equal(t, 1, first.SecuritiesCreated)
	assert.Equal(t, 2, first.Associated)

	second := adapter.Persist(ctx, "doc-1", results)
	assert.Zero(t, second.SecuritiesCreated)
	assert.Zero(t, second.Associated)
	assert.Equal(t, 2, second.AlreadyAssociated)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	associations, err := store.Associations().ListByDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Len(t, associations, 2)
}

func TestAdapter_MinConfidence(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	adapter := NewAdapter(testLogger(), store, store.Associations(), WithMinConfidence(0.6))

	report := adapter.Persist(ctx, "doc-1", []models.TaggedResult{
		result("AAPL", 0.9, models.MatchMethodKnownSymbol),
		result("XYZW", 0.5, models.MatchMethodPattern),
	})

	assert.Equal(t, 1, report.Associated)
	assert.Equal(t, 1, report.BelowThreshold)
	_, err := store.GetBySymbol(ctx, "XYZW")
	assert.Error(t, err)
}

type flakySecurities struct {
	repositories.SecurityRepo
	fail string
}

func (f flakySecurities) GetOrCreate(ctx context.Context, req models.CreateSecurityRequest) (*models.SecurityRecord, bool, error) {
	if req.Symbol == f.fail {
		return nil, false, errors.New("connection reset")
	}
	return f.SecurityRepo.GetOrCreate(ctx, req)
}

func TestAdapter_FailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	adapter := NewAdapter(testLogger(), flakySecurities{SecurityRepo: store, fail: "MSFT"}, store.Associations())

	report := adapter.Persist(ctx, "doc-1", []models.TaggedResult{
		result("AAPL", 0.9, models.MatchMethodKnownSymbol),
		result("MSFT", 0.9, models.MatchMethodKnownSymbol),
		result("TSLA", 0.9, models.MatchMethodKnownSymbol),
	})

	assert.Equal(t, 2, report.Associated)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"MSFT"}, report.FailedSymbols)
}

func TestAdapter_HooksAndProjection(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	projector := &recordingProjector{err: errors.New("graph down")}

	var hookCalls [][]string
	adapter := NewAdapter(testLogger(), store, store.Associations(),
		WithProjector(projector),
		OnSecuritiesCreated(func(_ context.Context, symbols []string) {
			hookCalls = append(hookCalls, symbols)
		}),
	)

	results := []models.TaggedResult{result("ZYXQ", 0.83, models.MatchMethodContextual)}
	report := adapter.Persist(ctx, "doc-9", results)
	assert.Equal(t, 1, report.Associated)
	assert.Zero(t, report.Failed)

	adapter.Persist(ctx, "doc-9", results)

	assert.Equal(t, [][]string{{"ZYXQ"}}, hookCalls)
	assert.Equal(t, []string{"doc-9/ZYXQ"}, projector.projected)
}

func TestAdapter_NewSecurityJoinsReference(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	engine := tagging.NewEngine(testLogger(), store, nil, tagging.DefaultConfig())
	adapter := NewAdapter(testLogger(), store, store.Associations(),
		OnSecuritiesCreated(func(ctx context.Context, _ []string) {
			engine.Refresh(ctx)
		}),
	)

	adapter.Persist(ctx, "doc-1", engine.TagDocument(ctx, "", "trades as ZYXQ on NASDAQ", "doc-1"))

	results := engine.TagDocument(ctx, "", "zyxq moved", "doc-2")
	require.Len(t, results, 1)
	assert.Equal(t, "ZYXQ", results[0].Symbol)
	assert.Equal(t, models.MatchMethodKnownSymbol, results[0].DominantMethod)
}
