package repository

import (
	"context"

	"github.com/ConnorDW-SA/marketplace/internal/domain"
	"github.com/ConnorDW-SA/marketplace/internal/query"
)

// ProductRepository defines product persistence, including the reviews
// embedded in each product document. Ids that are not well formed for the
// store are reported as not found.
type ProductRepository interface {
	// List returns the page of products matching q and the total number of
	// matches ignoring the window.
	List(ctx context.Context, q query.Query) ([]domain.Product, int, error)

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// Create inserts the product and assigns its ID.
	Create(ctx context.Context, product *domain.Product) error

	// Update merges patch into the stored product, validates the result and
	// returns it.
	Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error)

	// Delete removes a product and its reviews.
	Delete(ctx context.Context, id string) error

	// AddReview appends the review, assigning its ID, and returns the updated
	// product.
	AddReview(ctx context.Context, productID string, review *domain.Review) (*domain.Product, error)

	// UpdateReview applies patch to the review in place. The update only
	// takes effect if the review still exists at write time.
	UpdateReview(ctx context.Context, productID, reviewID string, patch domain.ReviewPatch) (*domain.Product, error)

	// RemoveReview pulls the review from the product's review list.
	RemoveReview(ctx context.Context, productID, reviewID string) (*domain.Product, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// Resource names used in not-found errors.
const (
	ResourceProduct = "Product"
	ResourceReview  = "Review"
)
