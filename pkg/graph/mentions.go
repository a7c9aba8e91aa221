package graph

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/TomMcIver/Stock-Port/pkg/models"
	"github.com/TomMcIver/Stock-Port/pkg/tracing"
)

const mentionsCypher = `
	MERGE (d:Document {id: $document_id})
	MERGE (s:Security {symbol: $symbol})
	ON CREATE SET s.id = $security_id
	MERGE (d)-[r:MENTIONS]->(s)
	ON CREATE SET r.confidence = $confidence, r.method = $method, r.mention_count = $mention_count
	RETURN r
`

// Writer runs a write transaction. *Client satisfies it.
type Writer interface {
	ExecuteWrite(ctx context.Context, work func(tx neo4j.ManagedTransaction) (any, error)) (any, error)
}

// MentionProjector writes (:Document)-[:MENTIONS]->(:Security) edges.
// Edges are merged, so projecting the same association twice keeps the
// first properties, matching the association table.
type MentionProjector struct {
	writer Writer
	logger ectologger.Logger
}

// NewMentionProjector creates a projector over writer
func NewMentionProjector(writer Writer, logger ectologger.Logger) *MentionProjector {
	return &MentionProjector{
		writer: writer,
		logger: logger,
	}
}

// MentionParams returns the query parameters for an association
func MentionParams(a *models.Association) map[string]any {
	return map[string]any{
		"document_id":   a.DocumentID,
		"security_id":   a.SecurityID,
		"symbol":        a.Symbol,
		"confidence":    a.Confidence,
		"method":        string(a.Method),
		"mention_count": int64(a.MentionCount),
	}
}

// Project merges the edge for one association
func (p *MentionProjector) Project(ctx context.Context, a *models.Association) error {
	ctx, span := tracing.StartSpan(ctx, "graph.MentionProjector.Project")
	defer span.End()

	_, err := p.writer.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, mentionsCypher, MentionParams(a))
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"document_id": a.DocumentID,
			"symbol":      a.Symbol,
		}).Error("Failed to project mention")
		return fmt.Errorf("failed to project mention %s -> %s: %w", a.DocumentID, a.Symbol, err)
	}
	return nil
}
