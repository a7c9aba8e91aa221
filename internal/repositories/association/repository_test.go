package association_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TomMcIver/Stock-Port/internal/repositories/association"
	"github.com/TomMcIver/Stock-Port/internal/repositories/security"
	"github.com/TomMcIver/Stock-Port/internal/testutil"
	"github.com/TomMcIver/Stock-Port/pkg/models"
)

func TestAssociationRepository_Postgres(t *testing.T) {
	db := testutil.Postgres(t)
	logger := testutil.Logger()
	securities := security.NewRepository(db, logger)
	repo := association.NewRepository(db, logger)
	ctx := context.Background()

	aapl, _, err := securities.GetOrCreate(ctx, models.CreateSecurityRequest{Symbol: "AAPL"})
	require.NoError(t, err)
	msft, _, err := securities.GetOrCreate(ctx, models.CreateSecurityRequest{Symbol: "MSFT"})
	require.NoError(t, err)

	first := &models.Association{
		DocumentID:     "doc-1",
		SecurityID:     aapl.ID,
		Confidence:     0.97,
		Method:         models.MatchMethodKnownSymbol,
		ContextSnippet: "Apple (AAPL) shares rose",
		Contexts:       []string{"Apple (AAPL) shares rose", "$AAPL best performer"},
		MentionCount:   4,
	}
	inserted, err := repo.InsertIgnore(ctx, first)
	require.NoError(t, err)
	assert.True(t, inserted)

	dup := *first
	dup.ID = ""
	dup.Confidence = 0.1
	inserted, err = repo.InsertIgnore(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	_, err = repo.InsertIgnore(ctx, &models.Association{DocumentID: "doc-1", SecurityID: msft.ID, Confidence: 0.9, Method: models.MatchMethodKnownSymbol})
	require.NoError(t, err)

	byDoc, err := repo.ListByDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, byDoc, 2)
	assert.Equal(t, "AAPL", byDoc[0].Symbol)
	assert.InDelta(t, 0.97, byDoc[0].Confidence, 1e-9)
	assert.Equal(t, first.Contexts, byDoc[0].Contexts)
	assert.Equal(t, 4, byDoc[0].MentionCount)
	assert.Empty(t, byDoc[1].Contexts)

	bySymbol, err := repo.ListBySymbol(ctx, "MSFT", 10)
	require.NoError(t, err)
	require.Len(t, bySymbol, 1)
	assert.Equal(t, "doc-1", bySymbol[0].DocumentID)
}
