package memory

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ConnorDW-SA/marketplace/internal/domain"
	"github.com/ConnorDW-SA/marketplace/internal/query"
	apperrors "github.com/ConnorDW-SA/marketplace/pkg/errors"
	"github.com/ConnorDW-SA/marketplace/pkg/pagination"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func seed(t *testing.T, repo *ProductRepository, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		p := &domain.Product{
			Name:        fmt.Sprintf("Product %02d", i),
			Description: "d",
			Brand:       []string{"Lumen", "Arc"}[i%2],
			ImageURL:    "u",
			Price:       float64(10 * (i%5 + 1)),
			Category:    []string{"desk", "floor", "wall"}[i%3],
			// Pairs share a timestamp so the id tiebreaker matters.
			CreatedAt: base.Add(time.Duration(i/2) * time.Hour),
		}
		require.NoError(t, repo.Create(context.Background(), p))
		ids = append(ids, p.ID)
	}
	return ids
}

func parse(t *testing.T, raw string) query.Query {
	t.Helper()
	values, err := url.ParseQuery(raw)
	require.NoError(t, err)
	q, err := query.NewParser(pagination.DefaultLimits()).Parse(values)
	require.NoError(t, err)
	return q
}

func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string     { return &s }

func TestCreateThenGet(t *testing.T) {
	repo := NewProductRepository()
	p := &domain.Product{Name: "Lamp", Description: "d", Brand: "b", ImageURL: "u", Price: 3}
	require.NoError(t, repo.Create(context.Background(), p))

	got, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestGetByID_ReturnsCopy(t *testing.T) {
	repo := NewProductRepository()
	ids := seed(t, repo, 1)

	got, err := repo.GetByID(context.Background(), ids[0])
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := repo.GetByID(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Product 00", again.Name)
}

func TestDeleteThenGet(t *testing.T) {
	repo := NewProductRepository()
	ids := seed(t, repo, 2)

	require.NoError(t, repo.Delete(context.Background(), ids[0]))

	_, err := repo.GetByID(context.Background(), ids[0])
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.True(t, errors.Is(repo.Delete(context.Background(), ids[0]), apperrors.ErrNotFound))

	_, err = repo.GetByID(context.Background(), ids[1])
	assert.NoError(t, err)
}

func TestList_PagesConcatenateWithoutGaps(t *testing.T) {
	repo := NewProductRepository()
	ids := seed(t, repo, 23)

	seen := map[string]int{}
	for skip := 0; skip < 23; skip += 5 {
		products, total, err := repo.List(context.Background(), parse(t, fmt.Sprintf("skip=%d&limit=5", skip)))
		require.NoError(t, err)
		assert.Equal(t, 23, total)
		for _, p := range products {
			seen[p.ID]++
		}
	}

	assert.Len(t, seen, len(ids))
	for id, n := range seen {
		assert.Equal(t, 1, n, "product %s returned %d times", id, n)
	}
}

func TestList_SkipPastEnd(t *testing.T) {
	repo := NewProductRepository()
	seed(t, repo, 3)

	products, total, err := repo.List(context.Background(), parse(t, "skip=10"))
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Empty(t, products)
}

func TestList_Filters(t *testing.T) {
	repo := NewProductRepository()
	seed(t, repo, 12)

	tests := []struct {
		raw   string
		check func(p domain.Product) bool
	}{
		{"brand=Lumen", func(p domain.Product) bool { return p.Brand == "Lumen" }},
		{"brand!=Lumen", func(p domain.Product) bool { return p.Brand != "Lumen" }},
		{"price>=30", func(p domain.Product) bool { return p.Price >= 30 }},
		{"price<30", func(p domain.Product) bool { return p.Price < 30 }},
		{"category=desk,wall", func(p domain.Product) bool { return p.Category == "desk" || p.Category == "wall" }},
		{"category!=desk,wall", func(p domain.Product) bool { return p.Category == "floor" }},
		{"createdAt>=2024-01-01T03:00:00Z", func(p domain.Product) bool { return !p.CreatedAt.Before(base.Add(3 * time.Hour)) }},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			products, total, err := repo.List(context.Background(), parse(t, tt.raw+"&limit=100"))
			require.NoError(t, err)
			require.NotEmpty(t, products)
			assert.Equal(t, len(products), total)
			for _, p := range products {
				assert.True(t, tt.check(p), "%s should not match %s", p.Name, tt.raw)
			}
		})
	}
}

func TestList_SortDescendingWithTiebreaker(t *testing.T) {
	repo := NewProductRepository()
	seed(t, repo, 10)

	products, _, err := repo.List(context.Background(), parse(t, "sort=-price&limit=100"))
	require.NoError(t, err)

	for i := 1; i < len(products); i++ {
		prev, cur := products[i-1], products[i]
		require.GreaterOrEqual(t, prev.Price, cur.Price)
		if prev.Price == cur.Price {
			assert.Less(t, prev.ID, cur.ID)
		}
	}
}

func TestList_PriceRange(t *testing.T) {
	repo := NewProductRepository()
	seed(t, repo, 10)

	values := url.Values{"minPrice": {"20"}, "maxPrice": {"40"}, "category": {"desk"}}
	q, err := query.NewParser(pagination.DefaultLimits()).ParseRange(values)
	require.NoError(t, err)

	products, total, err := repo.List(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, len(products), total)
	require.NotEmpty(t, products)
	for _, p := range products {
		assert.Equal(t, "desk", p.Category)
		assert.GreaterOrEqual(t, p.Price, 20.0)
		assert.LessOrEqual(t, p.Price, 40.0)
	}
}

func TestUpdate_MergesAndValidates(t *testing.T) {
	repo := NewProductRepository()
	ids := seed(t, repo, 1)

	p, err := repo.Update(context.Background(), ids[0], domain.ProductPatch{Price: floatPtr(99)})
	require.NoError(t, err)
	assert.Equal(t, 99.0, p.Price)
	assert.Equal(t, "Product 00", p.Name)

	_, err = repo.Update(context.Background(), ids[0], domain.ProductPatch{Name: strPtr("")})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	stored, err := repo.GetByID(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Product 00", stored.Name, "failed update must not be stored")

	_, err = repo.Update(context.Background(), "missing", domain.ProductPatch{Name: strPtr("x")})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestReviewLifecycle(t *testing.T) {
	repo := NewProductRepository()
	ids := seed(t, repo, 1)
	ctx := context.Background()

	var reviewIDs []string
	for i, c := range []string{"first", "second", "third"} {
		r := &domain.Review{Comment: c, Rate: float64(i + 1)}
		p, err := repo.AddReview(ctx, ids[0], r)
		require.NoError(t, err)
		require.Len(t, p.Reviews, i+1)
		reviewIDs = append(reviewIDs, r.ID)
	}

	p, err := repo.UpdateReview(ctx, ids[0], reviewIDs[1], domain.ReviewPatch{Comment: strPtr("edited")})
	require.NoError(t, err)
	assert.Equal(t, "edited", p.Reviews[1].Comment)
	assert.Equal(t, 2.0, p.Reviews[1].Rate)

	p, err = repo.UpdateReview(ctx, ids[0], reviewIDs[1], domain.ReviewPatch{Rate: floatPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, "edited", p.Reviews[1].Comment)
	assert.Equal(t, 4.0, p.Reviews[1].Rate)

	_, err = repo.UpdateReview(ctx, ids[0], reviewIDs[1], domain.ReviewPatch{Rate: floatPtr(6)})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	p, err = repo.RemoveReview(ctx, ids[0], reviewIDs[0])
	require.NoError(t, err)
	require.Len(t, p.Reviews, 2)
	assert.Equal(t, []string{reviewIDs[1], reviewIDs[2]}, []string{p.Reviews[0].ID, p.Reviews[1].ID})

	_, err = repo.RemoveReview(ctx, ids[0], reviewIDs[0])
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "Review with id "+reviewIDs[0]+" not found", appErr.Message)

	_, err = repo.AddReview(ctx, "missing", &domain.Review{Comment: "x"})
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "Product with id missing not found", appErr.Message)
}

func TestConcurrentReviewAdds(t *testing.T) {
	repo := NewProductRepository()
	ids := seed(t, repo, 1)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AddReview(context.Background(), ids[0], &domain.Review{Comment: "c", Rate: 1})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p, err := repo.GetByID(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Len(t, p.Reviews, 50)
}
