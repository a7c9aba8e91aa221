package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	appctx "github.com/TomMcIver/Stock-Port/pkg/context"
	"github.com/TomMcIver/Stock-Port/pkg/models"
	"github.com/TomMcIver/Stock-Port/pkg/tracing"
)

// Tagger tags one document
type Tagger interface {
	TagDocument(ctx context.Context, title, body, documentID string) []models.TaggedResult
}

// Persister stores tagged results for a document
type Persister interface {
	Persist(ctx context.Context, documentID string, results []models.TaggedResult) models.PersistReport
}

// Publisher publishes tag events
type Publisher interface {
	PublishTagged(ctx context.Context, event SymbolsTaggedEvent) error
}

// ArticleProcessor tags, persists and publishes incoming articles.
// Persister and Publisher are optional.
type ArticleProcessor struct {
	logger    ectologger.Logger
	parser    *ArticleParser
	tagger    Tagger
	persister Persister
	publisher Publisher
}

// NewArticleProcessor creates a processor. persister and publisher may be nil.
func NewArticleProcessor(logger ectologger.Logger, parser *ArticleParser, tagger Tagger, persister Persister, publisher Publisher) *ArticleProcessor {
	return &ArticleProcessor{
		logger:    logger,
		parser:    parser,
		tagger:    tagger,
		persister: persister,
		publisher: publisher,
	}
}

// Handle is a MessageHandler. Messages that cannot be parsed are reported as
// ErrUnprocessable; only a failed publish is retried.
func (p *ArticleProcessor) Handle(ctx context.Context, msg kafka.Message) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.ArticleProcessor.Handle")
	defer span.End()

	article, err := p.parser.Parse(msg.Value)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnprocessable, err)
	}
	if article.ID == "" {
		article.ID = string(msg.Key)
	}
	if article.ID == "" {
		article.ID = fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
	}
	ctx = appctx.SetDocumentID(ctx, article.ID)

	results := p.tagger.TagDocument(ctx, article.Title, article.Body, article.ID)

	event := SymbolsTaggedEvent{
		DocumentID: article.ID,
		Results:    results,
		TaggedAt:   time.Now().UTC(),
	}
	if p.persister != nil {
		report := p.persister.Persist(ctx, article.ID, results)
		event.Persist = &report
	}

	if p.publisher != nil {
		if err := p.publisher.PublishTagged(ctx, event); err != nil {
			return err
		}
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"document_id": article.ID,
		"results":     len(results),
	}).Debug("Processed article")
	return nil
}
