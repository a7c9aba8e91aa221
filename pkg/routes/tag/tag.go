package tag

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	appctx "github.com/TomMcIver/Stock-Port/pkg/context"
	"github.com/TomMcIver/Stock-Port/pkg/models"
	"github.com/TomMcIver/Stock-Port/pkg/persistence"
	"github.com/TomMcIver/Stock-Port/pkg/routes/bind"
	"github.com/TomMcIver/Stock-Port/pkg/tagging"
)

// MaxBatchSize caps the documents accepted by one batch request
const MaxBatchSize = 100

// Settings tunes the tagging routes
type Settings struct {
	Workers int // batch concurrency
}

// Register registers tag routes
func Register(g *echo.Group) {
	g.POST("", Tag)
	g.POST("/batch", Batch)
}

// Request is one document to tag
type Request struct {
	DocumentID string `json:"document_id" validate:"required_if=Persist true,max=256"`
	Title      string `json:"title"`
	Body       string `json:"body" validate:"required_without=Title"`
	Persist    bool   `json:"persist"`
}

// Response is the tagging outcome for one document
type Response struct {
	DocumentID string                `json:"document_id,omitempty"`
	Results    []models.TaggedResult `json:"results"`
	Persist    *models.PersistReport `json:"persist,omitempty"`
}

// BatchRequest tags several documents in one call
type BatchRequest struct {
	Documents []Request `json:"documents" validate:"required,min=1,max=100,dive"`
}

// BatchResponse holds responses in request order
type BatchResponse struct {
	Documents []Response `json:"documents"`
}

// Tag tags a single document
func Tag(c echo.Context) error {
	req, err := bind.Body[Request](c)
	if err != nil {
		return err
	}

	ctx, t, err := resolve(c.Request().Context(), req.Persist)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, t.tag(ctx, req))
}

// Batch tags up to MaxBatchSize documents across the worker pool
func Batch(c echo.Context) error {
	req, err := bind.Body[BatchRequest](c)
	if err != nil {
		return err
	}

	persist := false
	for _, doc := range req.Documents {
		persist = persist || doc.Persist
	}
	ctx, t, err := resolve(c.Request().Context(), persist)
	if err != nil {
		return err
	}

	workers := 1
	if _, settings, err := ectoinject.GetContext[Settings](ctx); err == nil && settings.Workers > 0 {
		workers = settings.Workers
	}

	responses := make([]Response, len(req.Documents))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, doc := range req.Documents {
		g.Go(func() error {
			responses[i] = t.tag(ctx, doc)
			return nil
		})
	}
	_ = g.Wait()

	return c.JSON(http.StatusOK, BatchResponse{Documents: responses})
}

type tagger struct {
	engine  *tagging.Engine
	adapter *persistence.Adapter
}

// resolve fetches the engine, and the persistence adapter when persist is set
func resolve(ctx context.Context, persist bool) (context.Context, tagger, error) {
	ctx, engine, err := ectoinject.GetContext[*tagging.Engine](ctx)
	if err != nil {
		return ctx, tagger{}, httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	t := tagger{engine: engine}
	if !persist {
		return ctx, t, nil
	}

	ctx, adapter, err := ectoinject.GetContext[*persistence.Adapter](ctx)
	if err != nil || adapter == nil {
		return ctx, t, httperror.NewHTTPError(http.StatusServiceUnavailable, "persistence is not configured")
	}
	t.adapter = adapter
	return ctx, t, nil
}

func (t tagger) tag(ctx context.Context, req Request) Response {
	if req.DocumentID != "" {
		ctx = appctx.SetDocumentID(ctx, req.DocumentID)
	}

	resp := Response{
		DocumentID: req.DocumentID,
		Results:    t.engine.TagDocument(ctx, req.Title, req.Body, req.DocumentID),
	}
	if req.Persist {
		report := t.adapter.Persist(ctx, req.DocumentID, resp.Results)
		resp.Persist = &report
	}
	return resp
}
