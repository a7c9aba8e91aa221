package association

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/TomMcIver/Stock-Port/internal/repositories"
	"github.com/TomMcIver/Stock-Port/pkg/database"
	"github.com/TomMcIver/Stock-Port/pkg/models"
	"github.com/TomMcIver/Stock-Port/pkg/tracing"
)

// Repository implements repositories.AssociationRepo on Postgres
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

var _ repositories.AssociationRepo = (*Repository)(nil)

// NewRepository creates a new association repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// InsertIgnore writes the association unless (document_id, security_id) exists
func (r *Repository) InsertIgnore(ctx context.Context, a *models.Association) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "AssociationRepository.InsertIgnore")
	defer span.End()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	ib := associationStruct.InsertInto(associationsTable, FromAssociation(a))
	ib.OnConflictDoNothing("document_id", "security_id")

	query, args := ib.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"document_id": a.DocumentID,
			"security_id": a.SecurityID,
		}).Error("Failed to insert association")
		return false, repositories.Internal("failed to insert association")
	}

	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

func (r *Repository) selectJoined() *database.SelectBuilder {
	sb := database.NewSelectBuilder()
	sb.Select(
		"a.id", "a.document_id", "a.security_id", "a.confidence", "a.method",
		"a.context_snippet", "a.contexts", "a.mention_count", "a.created_at", "s.symbol",
	).
		From(sb.As(associationsTable, "a")).
		Join(sb.As(securitiesTable, "s"), "s.id = a.security_id")
	return sb
}

func (r *Repository) list(ctx context.Context, sb *database.SelectBuilder) ([]models.Association, error) {
	query, args := sb.Build()
	var rows []associationListRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	out := make([]models.Association, 0, len(rows))
	for i := range rows {
		out = append(out, ToAssociation(&rows[i].AssociationRow, rows[i].Symbol.String))
	}
	return out, nil
}

// ListByDocument returns a document's associations, strongest first
func (r *Repository) ListByDocument(ctx context.Context, documentID string) ([]models.Association, error) {
	ctx, span := tracing.StartSpan(ctx, "AssociationRepository.ListByDocument")
	defer span.End()

	sb := r.selectJoined()
	sb.Where(sb.Equal("a.document_id", documentID))
	sb.OrderBy("a.confidence").Desc()

	out, err := r.list(ctx, sb)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"document_id": documentID}).Error("Failed to list associations by document")
		return nil, repositories.Internal("failed to list associations")
	}
	return out, nil
}

// ListBySymbol returns the most confident associations of one security
func (r *Repository) ListBySymbol(ctx context.Context, symbol string, limit int) ([]models.Association, error) {
	ctx, span := tracing.StartSpan(ctx, "AssociationRepository.ListBySymbol")
	defer span.End()

	symbol, err := repositories.ValidateSymbol(symbol)
	if err != nil {
		return nil, err
	}

	sb := r.selectJoined()
	sb.Where(sb.Equal("s.symbol", symbol))
	sb.OrderBy("a.confidence").Desc()
	sb.Limit(repositories.Limit(limit))

	out, err := r.list(ctx, sb)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"symbol": symbol}).Error("Failed to list associations by symbol")
		return nil, repositories.Internal("failed to list associations")
	}
	return out, nil
}
