package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ConnorDW-SA/marketplace/internal/domain"
	"github.com/ConnorDW-SA/marketplace/internal/event"
	"github.com/ConnorDW-SA/marketplace/internal/repository/memory"
)

// These tests run both services against the in-memory store.

func newMemoryServices() (*ProductService, *ReviewService) {
	repo := memory.NewProductRepository()
	logger := newTestLogger()
	producer := event.NewProducer(nil, logger)
	return NewProductService(repo, producer, logger), NewReviewService(repo, producer, logger)
}

func TestCreateThenGet_Memory(t *testing.T) {
	products, _ := newMemoryServices()
	ctx := context.Background()

	created, err := products.CreateProduct(ctx, validInput())
	require.NoError(t, err)

	got, err := products.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, created.Price, got.Price)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
}

func TestSequentialReviewUpdatesPersist_Memory(t *testing.T) {
	products, reviews := newMemoryServices()
	ctx := context.Background()

	created, err := products.CreateProduct(ctx, validInput())
	require.NoError(t, err)

	withReview, err := reviews.CreateReview(ctx, created.ID, &CreateReviewInput{Comment: "first", Rate: 1})
	require.NoError(t, err)
	require.Len(t, withReview.Reviews, 1)
	reviewID := withReview.Reviews[0].ID

	list, err := reviews.ListReviews(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "first", list[0].Comment)

	for i, rate := range []float64{2, 3, 4} {
		_, err := reviews.UpdateReview(ctx, created.ID, reviewID, domain.ReviewPatch{Rate: floatPtr(rate)})
		require.NoError(t, err, "update %d", i)

		got, err := reviews.GetReview(ctx, created.ID, reviewID)
		require.NoError(t, err)
		assert.Equal(t, rate, got.Rate)
		assert.Equal(t, "first", got.Comment)
	}

	_, err = reviews.UpdateReview(ctx, created.ID, reviewID, domain.ReviewPatch{Rate: floatPtr(6)})
	require.Error(t, err)

	got, err := reviews.GetReview(ctx, created.ID, reviewID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, got.Rate)
}

func TestDeleteProductCascadesReviews_Memory(t *testing.T) {
	products, reviews := newMemoryServices()
	ctx := context.Background()

	created, err := products.CreateProduct(ctx, validInput())
	require.NoError(t, err)
	withReview, err := reviews.CreateReview(ctx, created.ID, &CreateReviewInput{Comment: "gone soon", Rate: 3})
	require.NoError(t, err)

	require.NoError(t, products.DeleteProduct(ctx, created.ID))

	_, err = reviews.GetReview(ctx, created.ID, withReview.Reviews[0].ID)
	assert.Equal(t, "Product with id "+created.ID+" not found", notFoundMessage(t, err))
}
