package securities

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/TomMcIver/Stock-Port/internal/repositories"
	"github.com/TomMcIver/Stock-Port/pkg/models"
	"github.com/TomMcIver/Stock-Port/pkg/routes/bind"
)

// ChangeHook runs after every mutation of the reference set so the engine
// can pick it up
type ChangeHook func(ctx context.Context)

// Register registers security routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.POST("", Create)
	g.GET("/:symbol", Get)
	g.POST("/:symbol/aliases", AddAliases)
	g.PUT("/:symbol/active", SetActive)
	g.GET("/:symbol/associations", Associations)
}

// List returns every security, or only active ones with ?active=true
func List(c echo.Context) error {
	ctx, repo, err := ectoinject.GetContext[repositories.SecurityRepo](c.Request().Context())
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	var records []models.SecurityRecord
	if active, _ := strconv.ParseBool(c.QueryParam("active")); active {
		records, err = repo.ListActive(ctx)
	} else {
		records, err = repo.List(ctx)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, records)
}

// Get returns one security by symbol
func Get(c echo.Context) error {
	ctx, repo, err := ectoinject.GetContext[repositories.SecurityRepo](c.Request().Context())
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	record, err := repo.GetBySymbol(ctx, c.Param("symbol"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, record)
}

// Create adds a security to the reference set
func Create(c echo.Context) error {
	req, err := bind.Body[models.CreateSecurityRequest](c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[repositories.SecurityRepo](c.Request().Context())
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	record, err := repo.Create(ctx, req)
	if err != nil {
		return err
	}

	ctx, logger, err := ectoinject.GetContext[ectologger.Logger](ctx)
	if err == nil {
		logger.WithContext(ctx).WithFields(map[string]any{"symbol": record.Symbol}).Info("Created security")
	}
	changed(ctx)
	return c.JSON(http.StatusCreated, record)
}

// AddAliases merges aliases into a security
func AddAliases(c echo.Context) error {
	req, err := bind.Body[models.AddAliasesRequest](c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[repositories.SecurityRepo](c.Request().Context())
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	record, err := repo.AddAliases(ctx, c.Param("symbol"), req.Aliases)
	if err != nil {
		return err
	}

	changed(ctx)
	return c.JSON(http.StatusOK, record)
}

// SetActive adds a security to or removes it from the active reference set
func SetActive(c echo.Context) error {
	req, err := bind.Body[models.SetActiveRequest](c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[repositories.SecurityRepo](c.Request().Context())
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	record, err := repo.SetActive(ctx, c.Param("symbol"), *req.Active)
	if err != nil {
		return err
	}

	ctx, logger, err := ectoinject.GetContext[ectologger.Logger](ctx)
	if err == nil {
		logger.WithContext(ctx).WithFields(map[string]any{
			"symbol": record.Symbol,
			"active": record.Active,
		}).Info("Updated security")
	}
	changed(ctx)
	return c.JSON(http.StatusOK, record)
}

// Associations lists the documents associated with a security, highest
// confidence first
func Associations(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return httperror.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		limit = parsed
	}

	ctx, repo, err := ectoinject.GetContext[repositories.AssociationRepo](c.Request().Context())
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	associations, err := repo.ListBySymbol(ctx, c.Param("symbol"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, associations)
}

// changed runs the registered ChangeHook; none is registered offline
func changed(ctx context.Context) {
	ctx, hook, err := ectoinject.GetContext[ChangeHook](ctx)
	if err != nil || hook == nil {
		return
	}
	hook(ctx)
}
