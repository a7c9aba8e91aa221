// Package repositories defines the storage contracts for the reference set
// and document associations. Implementations live in subpackages: security
// and association (Postgres), sqlite (gorm) and memory.
package repositories

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/TomMcIver/Stock-Port/pkg/models"
)

// SecurityRepo defines the interface for security repository operations
type SecurityRepo interface {
	ListActive(ctx context.Context) ([]models.SecurityRecord, error)
	List(ctx context.Context) ([]models.SecurityRecord, error)
	GetBySymbol(ctx context.Context, symbol string) (*models.SecurityRecord, error)
	// GetOrCreate inserts the security unless the symbol exists, then reads
	// it back. created reports whether this call inserted it.
	GetOrCreate(ctx context.Context, req models.CreateSecurityRequest) (record *models.SecurityRecord, created bool, err error)
	// Create fails with 409 when the symbol exists
	Create(ctx context.Context, req models.CreateSecurityRequest) (*models.SecurityRecord, error)
	AddAliases(ctx context.Context, symbol string, aliases []string) (*models.SecurityRecord, error)
	SetActive(ctx context.Context, symbol string, active bool) (*models.SecurityRecord, error)
}

// AssociationRepo defines the interface for association repository operations
type AssociationRepo interface {
	// InsertIgnore stores the association unless the (document, security)
	// pair exists. inserted reports whether a row was written.
	InsertIgnore(ctx context.Context, association *models.Association) (inserted bool, err error)
	ListByDocument(ctx context.Context, documentID string) ([]models.Association, error)
	ListBySymbol(ctx context.Context, symbol string, limit int) ([]models.Association, error)
}

// Store bundles one backend's repositories
type Store struct {
	Securities   SecurityRepo
	Associations AssociationRepo
	Close        func() error
}

// NotFound returns a 404 HTTP error with a descriptive message
func NotFound(format string, args ...any) error {
	return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf(format, args...))
}

// Conflict returns a 409 HTTP error with a descriptive message
func Conflict(format string, args ...any) error {
	return httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf(format, args...))
}

// BadRequest returns a 400 HTTP error
func BadRequest(format string, args ...any) error {
	return httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf(format, args...))
}

// Internal returns a 500 HTTP error
func Internal(message string) error {
	return httperror.NewHTTPError(http.StatusInternalServerError, message)
}

// ValidateSymbol normalizes symbol and rejects anything that is not 1-5 letters
func ValidateSymbol(symbol string) (string, error) {
	normalized := models.NormalizeSymbol(symbol)
	if !models.IsValidSymbol(normalized) {
		return "", BadRequest("invalid symbol '%s': expected 1-5 letters", symbol)
	}
	return normalized, nil
}

// DefaultListLimit caps association listings when no limit is given
const DefaultListLimit = 100

// Limit returns limit, or DefaultListLimit when limit is not positive
func Limit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
