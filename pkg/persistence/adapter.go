// Package persistence stores tagged results as security records and
// document associations.
package persistence

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/TomMcIver/Stock-Port/internal/repositories"
	"github.com/TomMcIver/Stock-Port/pkg/metrics"
	"github.com/TomMcIver/Stock-Port/pkg/models"
	"github.com/TomMcIver/Stock-Port/pkg/tracing"
)

// Projector mirrors stored associations into a secondary store
type Projector interface {
	Project(ctx context.Context, association *models.Association) error
}

// Adapter persists tagged results. Each result is handled on its own; a
// failure is logged and counted without stopping the rest.
type Adapter struct {
	logger        ectologger.Logger
	securities    repositories.SecurityRepo
	associations  repositories.AssociationRepo
	minConfidence float64
	projector     Projector
	onCreated     func(ctx context.Context, symbols []string)
}

// Option configures an Adapter
type Option func(*Adapter)

// WithMinConfidence drops results scored below min
func WithMinConfidence(min float64) Option {
	return func(a *Adapter) {
		a.minConfidence = min
	}
}

// WithProjector mirrors new associations through p
func WithProjector(p Projector) Option {
	return func(a *Adapter) {
		a.projector = p
	}
}

// OnSecuritiesCreated registers fn to run after a Persist call that created
// at least one security.
func OnSecuritiesCreated(fn func(ctx context.Context, symbols []string)) Option {
	return func(a *Adapter) {
		a.onCreated = fn
	}
}

// NewAdapter creates an adapter over the given repositories
func NewAdapter(logger ectologger.Logger, securities repositories.SecurityRepo, associations repositories.AssociationRepo, opts ...Option) *Adapter {
	a := &Adapter{
		logger:       logger,
		securities:   securities,
		associations: associations,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Persist records results for documentID. Re-persisting the same results is
// a no-op: securities are get-or-create and associations ignore duplicates.
func (a *Adapter) Persist(ctx context.Context, documentID string, results []models.TaggedResult) models.PersistReport {
	ctx, span := tracing.StartSpan(ctx, "persistence.Adapter.Persist")
	defer span.End()

	report := models.PersistReport{DocumentID: documentID}
	var created []string

	for _, result := range results {
		if result.FinalConfidence < a.minConfidence {
			report.BelowThreshold++
			metrics.RecordAssociation("below_threshold")
			continue
		}

		wasCreated, inserted, err := a.persistOne(ctx, documentID, result)
		if err != nil {
			a.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"document_id": documentID,
				"symbol":      result.Symbol,
			}).Error("Failed to persist tagged result")
			report.Failed++
			report.FailedSymbols = append(report.FailedSymbols, result.Symbol)
			metrics.RecordAssociation("failed")
			continue
		}

		if wasCreated {
			report.SecuritiesCreated++
			created = append(created, result.Symbol)
			metrics.RecordSecurityCreated()
		}
		if inserted {
			report.Associated++
			metrics.RecordAssociation("inserted")
		} else {
			report.AlreadyAssociated++
			metrics.RecordAssociation("duplicate")
		}
	}

	a.logger.WithContext(ctx).WithFields(map[string]any{
		"document_id":        documentID,
		"securities_created": report.SecuritiesCreated,
		"associated":         report.Associated,
		"already_associated": report.AlreadyAssociated,
		"below_threshold":    report.BelowThreshold,
		"failed":             report.Failed,
	}).Debug("Persisted tagged results")

	if len(created) > 0 && a.onCreated != nil {
		a.onCreated(ctx, created)
	}

	return report
}

func (a *Adapter) persistOne(ctx context.Context, documentID string, result models.TaggedResult) (created, inserted bool, err error) {
	security, created, err := a.securities.GetOrCreate(ctx, models.CreateSecurityRequest{
		Symbol:        result.Symbol,
		CanonicalName: result.BestCompanyName,
	})
	if err != nil {
		return false, false, err
	}

	association := models.NewAssociation(documentID, security, result)
	inserted, err = a.associations.InsertIgnore(ctx, association)
	if err != nil {
		return created, false, err
	}

	if inserted && a.projector != nil {
		// The association row is the source of truth; a failed projection
		// only logs.
		_ = a.projector.Project(ctx, association)
	}
	return created, inserted, nil
}
