package models

import "time"

// Association links a document to a security with the evidence that produced it
type Association struct {
	ID             string      `json:"id"`
	DocumentID     string      `json:"document_id"`
	SecurityID     string      `json:"security_id"`
	Symbol         string      `json:"symbol,omitempty"`
	Confidence     float64     `json:"confidence"`
	Method         MatchMethod `json:"method"`
	ContextSnippet string      `json:"context_snippet"`
	Contexts       []string    `json:"contexts"`
	MentionCount   int         `json:"mention_count"`
	CreatedAt      time.Time   `json:"created_at"`
}

// NewAssociation builds the association row for a merged result
func NewAssociation(documentID string, security *SecurityRecord, result TaggedResult) *Association {
	return &Association{
		DocumentID:     documentID,
		SecurityID:     security.ID,
		Symbol:         security.Symbol,
		Confidence:     result.FinalConfidence,
		Method:         result.DominantMethod,
		ContextSnippet: result.FirstContext(),
		Contexts:       result.TopContexts,
		MentionCount:   result.MentionCount,
	}
}

// PersistReport counts what a persist call did
type PersistReport struct {
	DocumentID        string   `json:"document_id"`
	SecuritiesCreated int      `json:"securities_created"`
	Associated        int      `json:"associated"`
	AlreadyAssociated int      `json:"already_associated"`
	BelowThreshold    int      `json:"below_threshold"`
	Failed            int      `json:"failed"`
	FailedSymbols     []string `json:"failed_symbols,omitempty"`
}
