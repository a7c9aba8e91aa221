package sqlite

import (
	"encoding/json"
	"time"

	"github.com/TomMcIver/Stock-Port/pkg/models"
)

// Security is the gorm model of a reference-set entry
type Security struct {
	ID            string `gorm:"primaryKey"`
	Symbol        string `gorm:"uniqueIndex;size:5;not null"`
	CanonicalName string
	AliasesJSON   string `gorm:"column:aliases;not null;default:'[]'"`
	Sector        string
	MarketCapTier string `gorm:"size:8"`
	Active        bool   `gorm:"not null;default:true;index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Security) TableName() string { return "securities" }

// Association is the gorm model of a document/security link
type Association struct {
	ID             string  `gorm:"primaryKey"`
	DocumentID     string  `gorm:"uniqueIndex:idx_document_security;not null"`
	SecurityID     string  `gorm:"uniqueIndex:idx_document_security;not null;index"`
	Confidence     float64 `gorm:"not null"`
	Method         string  `gorm:"size:16;not null"`
	ContextSnippet string
	ContextsJSON   string `gorm:"column:contexts;not null;default:'[]'"`
	MentionCount   int    `gorm:"not null;default:1"`
	CreatedAt      time.Time

	Security Security `gorm:"foreignKey:SecurityID"`
}

func (Association) TableName() string { return "document_symbol_associations" }

func toRecord(s *Security) *models.SecurityRecord {
	rec := &models.SecurityRecord{
		ID:            s.ID,
		Symbol:        s.Symbol,
		CanonicalName: s.CanonicalName,
		AliasesJSON:   s.AliasesJSON,
		Sector:        s.Sector,
		MarketCapTier: models.MarketCapTier(s.MarketCapTier),
		Active:        s.Active,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if aliases, err := rec.ParseAliases(); err == nil {
		rec.Aliases = aliases
	}
	return rec
}

func fromRecord(rec *models.SecurityRecord) *Security {
	return &Security{
		ID:            rec.ID,
		Symbol:        rec.Symbol,
		CanonicalName: rec.CanonicalName,
		AliasesJSON:   models.EncodeAliases(rec.Aliases),
		Sector:        rec.Sector,
		MarketCapTier: string(rec.MarketCapTier),
		Active:        rec.Active,
	}
}

func toAssociation(a *Association) models.Association {
	var contexts []string
	_ = json.Unmarshal([]byte(a.ContextsJSON), &contexts)
	return models.Association{
		ID:             a.ID,
		DocumentID:     a.DocumentID,
		SecurityID:     a.SecurityID,
		Symbol:         a.Security.Symbol,
		Confidence:     a.Confidence,
		Method:         models.MatchMethod(a.Method),
		ContextSnippet: a.ContextSnippet,
		Contexts:       contexts,
		MentionCount:   a.MentionCount,
		CreatedAt:      a.CreatedAt,
	}
}

func fromAssociation(a *models.Association) *Association {
	contexts := a.Contexts
	if contexts == nil {
		contexts = []string{}
	}
	b, _ := json.Marshal(contexts)
	return &Association{
		ID:             a.ID,
		DocumentID:     a.DocumentID,
		SecurityID:     a.SecurityID,
		Confidence:     a.Confidence,
		Method:         string(a.Method),
		ContextSnippet: a.ContextSnippet,
		ContextsJSON:   string(b),
		MentionCount:   a.MentionCount,
	}
}
