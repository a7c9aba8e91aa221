package association

import (
	"database/sql"

	"github.com/TomMcIver/Stock-Port/pkg/database"
	"github.com/TomMcIver/Stock-Port/pkg/models"
)

const (
	associationsTable = "document_symbol_associations"
	securitiesTable   = "securities"
)

// AssociationRow represents the database row for a document/security link
type AssociationRow struct {
	ID             sql.NullString           `db:"id"`
	DocumentID     sql.NullString           `db:"document_id"`
	SecurityID     sql.NullString           `db:"security_id"`
	Confidence     sql.NullFloat64          `db:"confidence"`
	Method         sql.NullString           `db:"method"`
	ContextSnippet sql.NullString           `db:"context_snippet"`
	Contexts       database.JSONB[[]string] `db:"contexts"`
	MentionCount   sql.NullInt64            `db:"mention_count"`
	CreatedAt      sql.NullTime             `db:"created_at"`
}

// associationListRow adds the joined security symbol
type associationListRow struct {
	AssociationRow
	Symbol sql.NullString `db:"symbol"`
}

var associationStruct = database.NewStruct(new(AssociationRow))

// FromAssociation converts a domain model to a database row
func FromAssociation(a *models.Association) *AssociationRow {
	contexts := a.Contexts
	if contexts == nil {
		contexts = []string{}
	}
	return &AssociationRow{
		ID:             sql.NullString{String: a.ID, Valid: a.ID != ""},
		DocumentID:     sql.NullString{String: a.DocumentID, Valid: a.DocumentID != ""},
		SecurityID:     sql.NullString{String: a.SecurityID, Valid: a.SecurityID != ""},
		Confidence:     sql.NullFloat64{Float64: a.Confidence, Valid: true},
		Method:         sql.NullString{String: string(a.Method), Valid: a.Method != ""},
		ContextSnippet: sql.NullString{String: a.ContextSnippet, Valid: true},
		Contexts:       database.JSONB[[]string]{Data: contexts},
		MentionCount:   sql.NullInt64{Int64: int64(a.MentionCount), Valid: true},
		CreatedAt:      sql.NullTime{Time: a.CreatedAt, Valid: !a.CreatedAt.IsZero()},
	}
}

// ToAssociation converts a database row to a domain model
func ToAssociation(row *AssociationRow, symbol string) models.Association {
	return models.Association{
		ID:             row.ID.String,
		DocumentID:     row.DocumentID.String,
		SecurityID:     row.SecurityID.String,
		Symbol:         symbol,
		Confidence:     row.Confidence.Float64,
		Method:         models.MatchMethod(row.Method.String),
		ContextSnippet: row.ContextSnippet.String,
		Contexts:       row.Contexts.Data,
		MentionCount:   int(row.MentionCount.Int64),
		CreatedAt:      row.CreatedAt.Time,
	}
}
