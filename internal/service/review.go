package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ConnorDW-SA/marketplace/internal/domain"
	"github.com/ConnorDW-SA/marketplace/internal/event"
	"github.com/ConnorDW-SA/marketplace/internal/repository"
	apperrors "github.com/ConnorDW-SA/marketplace/pkg/errors"
)

// CreateReviewInput holds the parameters for creating a review.
type CreateReviewInput struct {
	Comment string
	Rate    float64
}

func (in CreateReviewInput) review(now time.Time) *domain.Review {
	return &domain.Review{
		Comment:   in.Comment,
		Rate:      in.Rate,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ReviewService manages the reviews embedded in products. Every review is
// addressed by its product id and its own id.
type ReviewService struct {
	repo     repository.ProductRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(repo repository.ProductRepository, producer *event.Producer, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// CreateReview appends a review to the product and returns the updated
// product.
func (s *ReviewService) CreateReview(ctx context.Context, productID string, input *CreateReviewInput) (*domain.Product, error) {
	review := input.review(time.Now().UTC())
	if err := review.Validate().Err("review validation failed"); err != nil {
		return nil, err
	}

	product, err := s.repo.AddReview(ctx, productID, review)
	if err != nil {
		return nil, fmt.Errorf("add review: %w", err)
	}

	if err := s.producer.PublishReviewAdded(ctx, productID, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.review.added event",
			slog.String("product_id", productID),
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("product_id", productID),
		slog.String("review_id", review.ID),
		slog.Float64("rate", review.Rate),
	)

	return product, nil
}

// ListReviews returns the product's reviews in insertion order.
func (s *ReviewService) ListReviews(ctx context.Context, productID string) ([]domain.Review, error) {
	product, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product for reviews: %w", err)
	}
	if product.Reviews == nil {
		return []domain.Review{}, nil
	}
	return product.Reviews, nil
}

// GetReview returns one review of the product.
func (s *ReviewService) GetReview(ctx context.Context, productID, reviewID string) (*domain.Review, error) {
	product, i, err := s.locate(ctx, productID, reviewID)
	if err != nil {
		return nil, err
	}
	return &product.Reviews[i], nil
}

// UpdateReview changes the comment and rate of a review in place and
// returns the updated product.
func (s *ReviewService) UpdateReview(ctx context.Context, productID, reviewID string, patch domain.ReviewPatch) (*domain.Product, error) {
	product, i, err := s.locate(ctx, productID, reviewID)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return product, nil
	}

	merged := product.Reviews[i]
	patch.Apply(&merged)
	if err := merged.Validate().Err("review validation failed"); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateReview(ctx, productID, reviewID, patch)
	if err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	if j := updated.FindReview(reviewID); j >= 0 {
		if err := s.producer.PublishReviewUpdated(ctx, productID, &updated.Reviews[j]); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish product.review.updated event",
				slog.String("product_id", productID),
				slog.String("review_id", reviewID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "review updated",
		slog.String("product_id", productID),
		slog.String("review_id", reviewID),
	)

	return updated, nil
}

// DeleteReview removes a review and returns the updated product.
func (s *ReviewService) DeleteReview(ctx context.Context, productID, reviewID string) (*domain.Product, error) {
	if _, _, err := s.locate(ctx, productID, reviewID); err != nil {
		return nil, err
	}

	updated, err := s.repo.RemoveReview(ctx, productID, reviewID)
	if err != nil {
		return nil, fmt.Errorf("remove review: %w", err)
	}

	if err := s.producer.PublishReviewRemoved(ctx, productID, reviewID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.review.removed event",
			slog.String("product_id", productID),
			slog.String("review_id", reviewID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("product_id", productID),
		slog.String("review_id", reviewID),
	)

	return updated, nil
}

// locate loads the product and finds the review's index in it.
func (s *ReviewService) locate(ctx context.Context, productID, reviewID string) (*domain.Product, int, error) {
	product, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, -1, fmt.Errorf("get product for review: %w", err)
	}
	i := product.FindReview(reviewID)
	if i < 0 {
		return nil, -1, apperrors.NotFound(repository.ResourceReview, reviewID)
	}
	return product, i, nil
}
