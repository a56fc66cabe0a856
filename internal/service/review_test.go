package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ConnorDW-SA/marketplace/internal/domain"
	"github.com/ConnorDW-SA/marketplace/internal/event"
	apperrors "github.com/ConnorDW-SA/marketplace/pkg/errors"
)

func newTestReviewService(repo *mockProductRepository, pub *mockPublisher) *ReviewService {
	logger := newTestLogger()
	var producer *event.Producer
	if pub != nil {
		producer = event.NewProducer(pub, logger)
	} else {
		producer = event.NewProducer(nil, logger)
	}
	return NewReviewService(repo, producer, logger)
}

func productWithReviews() *domain.Product {
	return &domain.Product{
		ID:   "p1",
		Name: "Desk Lamp",
		Reviews: []domain.Review{
			{ID: "r1", Comment: "good", Rate: 4},
			{ID: "r2", Comment: "meh", Rate: 2},
		},
	}
}

func notFoundMessage(t *testing.T, err error) string {
	t.Helper()
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	return appErr.Message
}

func TestCreateReview_Success(t *testing.T) {
	repo := new(mockProductRepository)
	pub := new(mockPublisher)
	svc := newTestReviewService(repo, pub)

	updated := productWithReviews()
	repo.On("AddReview", mock.Anything, "p1", mock.MatchedBy(func(r *domain.Review) bool {
		return r.Comment == "solid" && r.Rate == 5 && !r.CreatedAt.IsZero()
	})).Return(updated, nil)
	pub.On("Publish", mock.Anything, event.TopicReviewAdded, mock.Anything).Return(nil)

	product, err := svc.CreateReview(context.Background(), "p1", &CreateReviewInput{Comment: "solid", Rate: 5})
	require.NoError(t, err)
	assert.Equal(t, updated, product)
	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestCreateReview_NegativeRateAllowed(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestReviewService(repo, nil)

	repo.On("AddReview", mock.Anything, "p1", mock.Anything).Return(productWithReviews(), nil)

	_, err := svc.CreateReview(context.Background(), "p1", &CreateReviewInput{Comment: "awful", Rate: -3})
	assert.NoError(t, err)
}

func TestCreateReview_ValidationError(t *testing.T) {
	tests := []struct {
		name  string
		input CreateReviewInput
		field string
	}{
		{"rate above maximum", CreateReviewInput{Comment: "wow", Rate: 6}, "rate"},
		{"blank comment", CreateReviewInput{Comment: " ", Rate: 3}, "comment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockProductRepository)
			svc := newTestReviewService(repo, nil)

			_, err := svc.CreateReview(context.Background(), "p1", &tt.input)
			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Contains(t, appErr.Fields, tt.field)
			repo.AssertNotCalled(t, "AddReview", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCreateReview_ProductNotFound(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestReviewService(repo, nil)

	repo.On("AddReview", mock.Anything, "missing", mock.Anything).
		Return(nil, apperrors.NotFound("Product", "missing"))

	_, err := svc.CreateReview(context.Background(), "missing", &CreateReviewInput{Comment: "x", Rate: 1})
	assert.Equal(t, "Product with id missing not found", notFoundMessage(t, err))
}

func TestListReviews(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestReviewService(repo, nil)

	repo.On("GetByID", mock.Anything, "p1").Return(productWithReviews(), nil)
	repo.On("GetByID", mock.Anything, "bare").Return(&domain.Product{ID: "bare"}, nil)

	reviews, err := svc.ListReviews(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "r1", reviews[0].ID)
	assert.Equal(t, "r2", reviews[1].ID)

	reviews, err = svc.ListReviews(context.Background(), "bare")
	require.NoError(t, err)
	assert.NotNil(t, reviews)
	assert.Empty(t, reviews)
}

func TestGetReview(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestReviewService(repo, nil)

	repo.On("GetByID", mock.Anything, "p1").Return(productWithReviews(), nil)
	repo.On("GetByID", mock.Anything, "missing").Return(nil, apperrors.NotFound("Product", "missing"))

	review, err := svc.GetReview(context.Background(), "p1", "r2")
	require.NoError(t, err)
	assert.Equal(t, "meh", review.Comment)

	_, err = svc.GetReview(context.Background(), "p1", "r9")
	assert.Equal(t, "Review with id r9 not found", notFoundMessage(t, err))

	_, err = svc.GetReview(context.Background(), "missing", "r1")
	assert.Equal(t, "Product with id missing not found", notFoundMessage(t, err))
}

func TestUpdateReview_Success(t *testing.T) {
	repo := new(mockProductRepository)
	pub := new(mockPublisher)
	svc := newTestReviewService(repo, pub)

	patch := domain.ReviewPatch{Rate: floatPtr(5)}
	updated := productWithReviews()
	updated.Reviews[0].Rate = 5

	repo.On("GetByID", mock.Anything, "p1").Return(productWithReviews(), nil)
	repo.On("UpdateReview", mock.Anything, "p1", "r1", patch).Return(updated, nil)
	pub.On("Publish", mock.Anything, event.TopicReviewUpdated, mock.Anything).Return(nil)

	product, err := svc.UpdateReview(context.Background(), "p1", "r1", patch)
	require.NoError(t, err)
	assert.Equal(t, 5.0, product.Reviews[0].Rate)
	assert.Equal(t, "good", product.Reviews[0].Comment)
	pub.AssertExpectations(t)
}

func TestUpdateReview_RateAboveMaximumRejected(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestReviewService(repo, nil)

	repo.On("GetByID", mock.Anything, "p1").Return(productWithReviews(), nil)

	_, err := svc.UpdateReview(context.Background(), "p1", "r1", domain.ReviewPatch{Rate: floatPtr(6)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	repo.AssertNotCalled(t, "UpdateReview", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateReview_NotFound(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestReviewService(repo, nil)

	repo.On("GetByID", mock.Anything, "p1").Return(productWithReviews(), nil)
	repo.On("GetByID", mock.Anything, "missing").Return(nil, apperrors.NotFound("Product", "missing"))

	_, err := svc.UpdateReview(context.Background(), "missing", "r1", domain.ReviewPatch{Comment: strPtr("x")})
	assert.Equal(t, "Product with id missing not found", notFoundMessage(t, err))

	_, err = svc.UpdateReview(context.Background(), "p1", "r9", domain.ReviewPatch{Comment: strPtr("x")})
	assert.Equal(t, "Review with id r9 not found", notFoundMessage(t, err))
}

func TestUpdateReview_RemovedConcurrently(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestReviewService(repo, nil)

	patch := domain.ReviewPatch{Comment: strPtr("late edit")}
	repo.On("GetByID", mock.Anything, "p1").Return(productWithReviews(), nil)
	repo.On("UpdateReview", mock.Anything, "p1", "r1", patch).Return(nil, apperrors.NotFound("Review", "r1"))

	_, err := svc.UpdateReview(context.Background(), "p1", "r1", patch)
	assert.Equal(t, "Review with id r1 not found", notFoundMessage(t, err))
}

func TestUpdateReview_EmptyPatch(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestReviewService(repo, nil)

	repo.On("GetByID", mock.Anything, "p1").Return(productWithReviews(), nil)

	product, err := svc.UpdateReview(context.Background(), "p1", "r1", domain.ReviewPatch{})
	require.NoError(t, err)
	assert.Equal(t, productWithReviews(), product)
	repo.AssertNotCalled(t, "UpdateReview", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteReview(t *testing.T) {
	repo := new(mockProductRepository)
	pub := new(mockPublisher)
	svc := newTestReviewService(repo, pub)

	after := productWithReviews()
	after.Reviews = after.Reviews[1:]

	repo.On("GetByID", mock.Anything, "p1").Return(productWithReviews(), nil)
	repo.On("RemoveReview", mock.Anything, "p1", "r1").Return(after, nil)
	pub.On("Publish", mock.Anything, event.TopicReviewRemoved, mock.Anything).Return(nil)

	product, err := svc.DeleteReview(context.Background(), "p1", "r1")
	require.NoError(t, err)
	require.Len(t, product.Reviews, 1)
	assert.Equal(t, "r2", product.Reviews[0].ID)

	_, err = svc.DeleteReview(context.Background(), "p1", "r9")
	assert.Equal(t, "Review with id r9 not found", notFoundMessage(t, err))
	repo.AssertNumberOfCalls(t, "RemoveReview", 1)
}
