// Package catalog supplies product snapshots to the cart.
package catalog

import (
	"context"

	"github.com/hasan-mia/techstore-ui/internal/domain"
)

// Provider looks up products by id. A missing product yields an error that
// matches apperrors.ErrNotFound.
type Provider interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}
