package app

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/TomMcIver/Stock-Port/internal/repositories"
	"github.com/TomMcIver/Stock-Port/pkg/lexicon"
)

// SeedReport counts what a seed run did
type SeedReport struct {
	Created       int `json:"created"`
	Existing      int `json:"existing"`
	AliasesMerged int `json:"aliases_merged"`
}

// SeedSecurities adds seeds to repo. Existing symbols are kept and only gain
// the seed's aliases, so a seed file can be re-applied safely.
func SeedSecurities(ctx context.Context, logger ectologger.Logger, repo repositories.SecurityRepo, seeds []lexicon.SecuritySeed) (SeedReport, error) {
	var report SeedReport
	for _, seed := range seeds {
		record, created, err := repo.GetOrCreate(ctx, seed.ToCreateRequest())
		if err != nil {
			return report, fmt.Errorf("failed to seed %s: %w", seed.Symbol, err)
		}
		if created {
			report.Created++
			continue
		}

		report.Existing++
		if len(seed.Aliases) == 0 {
			continue
		}
		before := len(record.Aliases)
		updated, err := repo.AddAliases(ctx, record.Symbol, seed.Aliases)
		if err != nil {
			return report, fmt.Errorf("failed to merge aliases for %s: %w", seed.Symbol, err)
		}
		report.AliasesMerged += len(updated.Aliases) - before
	}

	logger.WithContext(ctx).WithFields(map[string]any{
		"created":        report.Created,
		"existing":       report.Existing,
		"aliases_merged": report.AliasesMerged,
	}).Info("Seeded securities")
	return report, nil
}
