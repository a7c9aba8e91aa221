package security

import (
	"database/sql"
	"time"

	"github.com/TomMcIver/Stock-Port/pkg/database"
	"github.com/TomMcIver/Stock-Port/pkg/models"
)

const securitiesTable = "securities"

// SecurityRow represents the database row for a security. Aliases stay raw
// so a malformed payload reaches the reference loader intact.
type SecurityRow struct {
	ID            sql.NullString `db:"id"`
	Symbol        sql.NullString `db:"symbol"`
	CanonicalName sql.NullString `db:"canonical_name"`
	Aliases       sql.NullString `db:"aliases"`
	Sector        sql.NullString `db:"sector"`
	MarketCapTier sql.NullString `db:"market_cap_tier"`
	Active        sql.NullBool   `db:"active"`
	CreatedAt     sql.NullTime   `db:"created_at"`
	UpdatedAt     sql.NullTime   `db:"updated_at"`
}

var securityStruct = database.NewStruct(new(SecurityRow))

// FromSecurity converts a domain model to a database row
func FromSecurity(s *models.SecurityRecord) *SecurityRow {
	aliases := s.AliasesJSON
	if aliases == "" || len(s.Aliases) > 0 {
		aliases = models.EncodeAliases(s.Aliases)
	}
	return &SecurityRow{
		ID:            sql.NullString{String: s.ID, Valid: s.ID != ""},
		Symbol:        sql.NullString{String: s.Symbol, Valid: s.Symbol != ""},
		CanonicalName: sql.NullString{String: s.CanonicalName, Valid: s.CanonicalName != ""},
		Aliases:       sql.NullString{String: aliases, Valid: true},
		Sector:        sql.NullString{String: s.Sector, Valid: s.Sector != ""},
		MarketCapTier: sql.NullString{String: string(s.MarketCapTier), Valid: s.MarketCapTier != ""},
		Active:        sql.NullBool{Bool: s.Active, Valid: true},
		CreatedAt:     sql.NullTime{Time: s.CreatedAt, Valid: !s.CreatedAt.IsZero()},
		UpdatedAt:     sql.NullTime{Time: s.UpdatedAt, Valid: !s.UpdatedAt.IsZero()},
	}
}

// ToSecurity converts a database row to a domain model. Aliases is left
// empty when the stored payload does not parse.
func ToSecurity(row *SecurityRow) *models.SecurityRecord {
	rec := &models.SecurityRecord{
		ID:            row.ID.String,
		Symbol:        row.Symbol.String,
		CanonicalName: row.CanonicalName.String,
		AliasesJSON:   row.Aliases.String,
		Sector:        row.Sector.String,
		MarketCapTier: models.MarketCapTier(row.MarketCapTier.String),
		Active:        row.Active.Bool,
		CreatedAt:     row.CreatedAt.Time,
		UpdatedAt:     row.UpdatedAt.Time,
	}
	if aliases, err := rec.ParseAliases(); err == nil {
		rec.Aliases = aliases
	}
	return rec
}

// ToSecurities converts a slice of database rows to domain models
func ToSecurities(rows []SecurityRow) []models.SecurityRecord {
	out := make([]models.SecurityRecord, len(rows))
	for i := range rows {
		out[i] = *ToSecurity(&rows[i])
	}
	return out
}

// Now returns the current time in UTC
func Now() time.Time {
	return time.Now().UTC()
}
