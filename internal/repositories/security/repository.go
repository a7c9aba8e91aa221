package security

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/TomMcIver/Stock-Port/internal/repositories"
	"github.com/TomMcIver/Stock-Port/pkg/database"
	"github.com/TomMcIver/Stock-Port/pkg/models"
	"github.com/TomMcIver/Stock-Port/pkg/tracing"
)

// Repository implements repositories.SecurityRepo on Postgres
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

var _ repositories.SecurityRepo = (*Repository)(nil)

// NewRepository creates a new security repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ListActive returns every active security. It is the reference set source.
func (r *Repository) ListActive(ctx context.Context) ([]models.SecurityRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "SecurityRepository.ListActive")
	defer span.End()

	sb := securityStruct.SelectFrom(securitiesTable)
	sb.Where(sb.Equal("active", true))
	sb.OrderBy("symbol")

	query, args := sb.Build()
	var rows []SecurityRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list active securities")
		return nil, repositories.Internal("failed to list active securities")
	}

	return ToSecurities(rows), nil
}

// List returns every security, active or not
func (r *Repository) List(ctx context.Context) ([]models.SecurityRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "SecurityRepository.List")
	defer span.End()

	sb := securityStruct.SelectFrom(securitiesTable)
	sb.OrderBy("symbol")

	query, args := sb.Build()
	var rows []SecurityRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list securities")
		return nil, repositories.Internal("failed to list securities")
	}

	return ToSecurities(rows), nil
}

// GetBySymbol retrieves a security by symbol
func (r *Repository) GetBySymbol(ctx context.Context, symbol string) (*models.SecurityRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "SecurityRepository.GetBySymbol")
	defer span.End()

	symbol, err := repositories.ValidateSymbol(symbol)
	if err != nil {
		return nil, err
	}

	row, err := r.getBySymbol(ctx, r.db, symbol, false)
	if err != nil {
		return nil, err
	}
	return ToSecurity(row), nil
}

type getter interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

func (r *Repository) getBySymbol(ctx context.Context, q getter, symbol string, forUpdate bool) (*SecurityRow, error) {
	sb := securityStruct.SelectFrom(securitiesTable)
	sb.Where(sb.Equal("symbol", symbol))
	if forUpdate {
		sb.ForUpdate()
	}

	query, args := sb.Build()
	var row SecurityRow
	err := q.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.NotFound("security %s does not exist", symbol)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"symbol": symbol}).Error("Failed to get security")
		return nil, repositories.Internal("failed to get security")
	}
	return &row, nil
}

// GetOrCreate inserts with ON CONFLICT (symbol) DO NOTHING and re-reads, so
// concurrent writers of the same symbol converge on one row.
func (r *Repository) GetOrCreate(ctx context.Context, req models.CreateSecurityRequest) (*models.SecurityRecord, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "SecurityRepository.GetOrCreate")
	defer span.End()

	rec, created, err := r.insert(ctx, req)
	if err != nil {
		return nil, false, err
	}
	return rec, created, nil
}

// Create inserts a new security and fails with 409 when the symbol exists
func (r *Repository) Create(ctx context.Context, req models.CreateSecurityRequest) (*models.SecurityRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "SecurityRepository.Create")
	defer span.End()

	rec, created, err := r.insert(ctx, req)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, repositories.Conflict("security %s already exists", rec.Symbol)
	}
	return rec, nil
}

func (r *Repository) insert(ctx context.Context, req models.CreateSecurityRequest) (*models.SecurityRecord, bool, error) {
	if _, err := repositories.ValidateSymbol(req.Symbol); err != nil {
		return nil, false, err
	}

	rec := models.NewSecurityRecord(req)
	rec.ID = uuid.New().String()
	now := Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	ib := securityStruct.InsertInto(securitiesTable, FromSecurity(rec))
	ib.OnConflictDoNothing("symbol")

	query, args := ib.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"symbol": rec.Symbol}).Error("Failed to insert security")
		return nil, false, repositories.Internal("failed to create security")
	}
	affected, _ := result.RowsAffected()

	row, err := r.getBySymbol(ctx, r.db, rec.Symbol, false)
	if err != nil {
		return nil, false, err
	}

	if affected > 0 {
		r.logger.WithContext(ctx).WithFields(map[string]any{"symbol": rec.Symbol, "id": row.ID.String}).Info("Created security")
	}
	return ToSecurity(row), affected > 0, nil
}

// AddAliases merges aliases into the stored list under a row lock
func (r *Repository) AddAliases(ctx context.Context, symbol string, aliases []string) (*models.SecurityRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "SecurityRepository.AddAliases")
	defer span.End()

	symbol, err := repositories.ValidateSymbol(symbol)
	if err != nil {
		return nil, err
	}

	var out *models.SecurityRecord
	err = database.WithTx(ctx, r.db, func(ctx context.Context, tx database.Tx) error {
		row, err := r.getBySymbol(ctx, tx, symbol, true)
		if err != nil {
			return err
		}

		rec := ToSecurity(row)
		rec.Aliases = models.MergeAliases(rec.Aliases, aliases)

		ub := database.NewUpdateBuilder()
		ub.Update(securitiesTable).
			Set(
				ub.Assign("aliases", models.EncodeAliases(rec.Aliases)),
				ub.Assign("updated_at", sqlbuilder.Raw("NOW()")),
			).
			Where(ub.Equal("id", rec.ID))

		query, args := ub.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"symbol": symbol}).Error("Failed to update aliases")
			return repositories.Internal("failed to add aliases")
		}

		updated, err := r.getBySymbol(ctx, tx, symbol, false)
		if err != nil {
			return err
		}
		out = ToSecurity(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetActive toggles whether the security is part of the reference set
func (r *Repository) SetActive(ctx context.Context, symbol string, active bool) (*models.SecurityRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "SecurityRepository.SetActive")
	defer span.End()

	symbol, err := repositories.ValidateSymbol(symbol)
	if err != nil {
		return nil, err
	}

	ub := database.NewUpdateBuilder()
	ub.Update(securitiesTable).
		Set(
			ub.Assign("active", active),
			ub.Assign("updated_at", sqlbuilder.Raw("NOW()")),
		).
		Where(ub.Equal("symbol", symbol))

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"symbol": symbol}).Error("Failed to set active")
		return nil, repositories.Internal("failed to update security")
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return nil, repositories.NotFound("security %s does not exist", symbol)
	}

	return r.GetBySymbol(ctx, symbol)
}
