// Package sqlite implements the repository contracts on a local SQLite file
// through gorm, for single-node and CLI use.
package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/TomMcIver/Stock-Port/internal/repositories"
	"github.com/TomMcIver/Stock-Port/pkg/models"
	"github.com/TomMcIver/Stock-Port/pkg/tracing"
)

// Store holds the gorm handle shared by both repositories
type Store struct {
	db     *gorm.DB
	logger ectologger.Logger
}

var (
	_ repositories.SecurityRepo    = (*Store)(nil)
	_ repositories.AssociationRepo = (*AssociationRepository)(nil)
)

// Open opens (creating if needed) the SQLite database at path and migrates
// the schema.
func Open(path string, logger ectologger.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	if err := db.AutoMigrate(&Security{}, &Association{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}

	logger.WithFields(map[string]any{"path": path}).Info("Opened sqlite store")
	return &Store{db: db, logger: logger}, nil
}

// AsStore exposes s through the repository bundle
func (s *Store) AsStore() repositories.Store {
	return repositories.Store{
		Securities:   s,
		Associations: s.Associations(),
		Close:        s.Close,
	}
}

// Associations returns the association repository on the same database
func (s *Store) Associations() *AssociationRepository {
	return &AssociationRepository{store: s}
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) ListActive(ctx context.Context) ([]models.SecurityRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "sqlite.Store.ListActive")
	defer span.End()
	return s.list(ctx, true)
}

func (s *Store) List(ctx context.Context) ([]models.SecurityRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "sqlite.Store.List")
	defer span.End()
	return s.list(ctx, false)
}

func (s *Store) list(ctx context.Context, activeOnly bool) ([]models.SecurityRecord, error) {
	query := s.db.WithContext(ctx).Order("symbol")
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	var rows []Security
	if err := query.Find(&rows).Error; err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to list securities")
		return nil, repositories.Internal("failed to list securities")
	}

	out := make([]models.SecurityRecord, len(rows))
	for i := range rows {
		out[i] = *toRecord(&rows[i])
	}
	return out, nil
}

func (s *Store) GetBySymbol(ctx context.Context, symbol string) (*models.SecurityRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "sqlite.Store.GetBySymbol")
	defer span.End()

	symbol, err := repositories.ValidateSymbol(symbol)
	if err != nil {
		return nil, err
	}
	row, err := s.get(s.db.WithContext(ctx), symbol)
	if err != nil {
		return nil, err
	}
	return toRecord(row), nil
}

func (s *Store) get(db *gorm.DB, symbol string) (*Security, error) {
	var row Security
	err := db.Where("symbol = ?", symbol).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repositories.NotFound("security %s does not exist", symbol)
	}
	if err != nil {
		s.logger.WithError(err).WithFields(map[string]any{"symbol": symbol}).Error("Failed to get security")
		return nil, repositories.Internal("failed to get security")
	}
	return &row, nil
}

func (s *Store) GetOrCreate(ctx context.Context, req models.CreateSecurityRequest) (*models.SecurityRecord, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "sqlite.Store.GetOrCreate")
	defer span.End()
	return s.insert(ctx, req)
}

func (s *Store) Create(ctx context.Context, req models.CreateSecurityRequest) (*models.SecurityRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "sqlite.Store.Create")
	defer span.End()

	rec, created, err := s.insert(ctx, req)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, repositories.Conflict("security %s already exists", rec.Symbol)
	}
	return rec, nil
}

func (s *Store) insert(ctx context.Context, req models.CreateSecurityRequest) (*models.SecurityRecord, bool, error) {
	if _, err := repositories.ValidateSymbol(req.Symbol); err != nil {
		return nil, false, err
	}

	rec := models.NewSecurityRecord(req)
	rec.ID = uuid.New().String()
	row := fromRecord(rec)

	db := s.db.WithContext(ctx)
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		DoNothing: true,
	}).Create(row)
	if result.Error != nil {
		s.logger.WithContext(ctx).WithError(result.Error).WithFields(map[string]any{"symbol": rec.Symbol}).Error("Failed to insert security")
		return nil, false, repositories.Internal("failed to create security")
	}

	stored, err := s.get(db, rec.Symbol)
	if err != nil {
		return nil, false, err
	}
	return toRecord(stored), result.RowsAffected > 0, nil
}

func (s *Store) AddAliases(ctx context.Context, symbol string, aliases []string) (*models.SecurityRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "sqlite.Store.AddAliases")
	defer span.End()

	symbol, err := repositories.ValidateSymbol(symbol)
	if err != nil {
		return nil, err
	}

	var out *models.SecurityRecord
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.get(tx, symbol)
		if err != nil {
			return err
		}
		rec := toRecord(row)
		merged := models.EncodeAliases(models.MergeAliases(rec.Aliases, aliases))
		if err := tx.Model(row).Update("aliases", merged).Error; err != nil {
			return repositories.Internal("failed to add aliases")
		}
		row.AliasesJSON = merged
		out = toRecord(row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SetActive(ctx context.Context, symbol string, active bool) (*models.SecurityRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "sqlite.Store.SetActive")
	defer span.End()

	symbol, err := repositories.ValidateSymbol(symbol)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	row, err := s.get(db, symbol)
	if err != nil {
		return nil, err
	}
	if err := db.Model(row).Update("active", active).Error; err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"symbol": symbol}).Error("Failed to set active")
		return nil, repositories.Internal("failed to update security")
	}
	row.Active = active
	return toRecord(row), nil
}

// AssociationRepository implements repositories.AssociationRepo on SQLite
type AssociationRepository struct {
	store *Store
}

func (r *AssociationRepository) InsertIgnore(ctx context.Context, a *models.Association) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "sqlite.AssociationRepository.InsertIgnore")
	defer span.End()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	row := fromAssociation(a)

	result := r.store.db.WithContext(ctx).Omit("Security").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_id"}, {Name: "security_id"}},
		DoNothing: true,
	}).Create(row)
	if result.Error != nil {
		r.store.logger.WithContext(ctx).WithError(result.Error).WithFields(map[string]any{
			"document_id": a.DocumentID,
			"security_id": a.SecurityID,
		}).Error("Failed to insert association")
		return false, repositories.Internal("failed to insert association")
	}
	a.CreatedAt = row.CreatedAt
	return result.RowsAffected > 0, nil
}

func (r *AssociationRepository) ListByDocument(ctx context.Context, documentID string) ([]models.Association, error) {
	ctx, span := tracing.StartSpan(ctx, "sqlite.AssociationRepository.ListByDocument")
	defer span.End()

	var rows []Association
	err := r.store.db.WithContext(ctx).
		Preload("Security").
		Where("document_id = ?", documentID).
		Order("confidence DESC").
		Find(&rows).Error
	if err != nil {
		r.store.logger.WithContext(ctx).WithError(err).Error("Failed to list associations by document")
		return nil, repositories.Internal("failed to list associations")
	}
	return toAssociations(rows), nil
}

func (r *AssociationRepository) ListBySymbol(ctx context.Context, symbol string, limit int) ([]models.Association, error) {
	ctx, span := tracing.StartSpan(ctx, "sqlite.AssociationRepository.ListBySymbol")
	defer span.End()

	symbol, err := repositories.ValidateSymbol(symbol)
	if err != nil {
		return nil, err
	}

	var rows []Association
	err = r.store.db.WithContext(ctx).
		Preload("Security").
		Joins("JOIN securities ON securities.id = document_symbol_associations.security_id").
		Where("securities.symbol = ?", symbol).
		Order("document_symbol_associations.confidence DESC").
		Limit(repositories.Limit(limit)).
		Find(&rows).Error
	if err != nil {
		r.store.logger.WithContext(ctx).WithError(err).Error("Failed to list associations by symbol")
		return nil, repositories.Internal("failed to list associations")
	}
	return toAssociations(rows), nil
}

func toAssociations(rows []Association) []models.Association {
	out := make([]models.Association, len(rows))
	for i := range rows {
		out[i] = toAssociation(&rows[i])
	}
	return out
}
