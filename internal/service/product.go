package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ConnorDW-SA/marketplace/internal/domain"
	"github.com/ConnorDW-SA/marketplace/internal/event"
	"github.com/ConnorDW-SA/marketplace/internal/query"
	"github.com/ConnorDW-SA/marketplace/internal/repository"
	"github.com/ConnorDW-SA/marketplace/pkg/pagination"
)

// ProductService implements the business logic for product operations.
type ProductService struct {
	repo     repository.ProductRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(repo repository.ProductRepository, producer *event.Producer, logger *slog.Logger) *ProductService {
	return &ProductService{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name        string
	Description string
	Brand       string
	ImageURL    string
	Price       float64
	Category    string
	Reviews     []CreateReviewInput
}

// ProductListResult is one page of a product listing.
type ProductListResult struct {
	Products []domain.Product
	Total    int
	Window   pagination.Window
}

// TotalPages returns the page count for the result's window.
func (r *ProductListResult) TotalPages() int {
	return pagination.TotalPages(r.Total, r.Window.Limit)
}

// ListProducts returns the page of products matching q and the total match
// count.
func (s *ProductService) ListProducts(ctx context.Context, q query.Query) (*ProductListResult, error) {
	products, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return &ProductListResult{Products: products, Total: total, Window: q.Window}, nil
}

// FilterProducts returns every product matching a category and price range
// query, without pagination.
func (s *ProductService) FilterProducts(ctx context.Context, q query.Query) ([]domain.Product, error) {
	q.Window = pagination.Window{}
	products, _, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("filter products: %w", err)
	}
	return products, nil
}

// GetProduct retrieves a product by its ID.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return product, nil
}

// CreateProduct validates and stores a new product.
func (s *ProductService) CreateProduct(ctx context.Context, input *CreateProductInput) (*domain.Product, error) {
	now := time.Now().UTC()
	product := &domain.Product{
		Name:        input.Name,
		Description: input.Description,
		Brand:       input.Brand,
		ImageURL:    input.ImageURL,
		Price:       input.Price,
		Category:    input.Category,
		Reviews:     make([]domain.Review, 0, len(input.Reviews)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, r := range input.Reviews {
		product.Reviews = append(product.Reviews, *r.review(now))
	}

	if err := product.Validate().Err("product validation failed"); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	if err := s.producer.PublishProductCreated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.created event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.Int("reviews", len(product.Reviews)),
	)

	return product, nil
}

// UpdateProduct replaces the fields set in patch. An empty patch changes
// nothing and returns the stored product.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	if patch.Empty() {
		return s.GetProduct(ctx, id)
	}

	product, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	if err := s.producer.PublishProductUpdated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.updated event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", product.ID),
	)

	return product, nil
}

// DeleteProduct removes a product and its reviews.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if err := s.producer.PublishProductDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.deleted event",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("product_id", id),
	)

	return nil
}
