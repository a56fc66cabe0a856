package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ConnorDW-SA/marketplace/internal/domain"
	"github.com/ConnorDW-SA/marketplace/internal/query"
	"github.com/ConnorDW-SA/marketplace/internal/repository"
	"github.com/ConnorDW-SA/marketplace/pkg/database"
	apperrors "github.com/ConnorDW-SA/marketplace/pkg/errors"
)

// ProductRepository keeps products in process memory. Every operation holds
// the store lock for its whole duration, so each call is atomic.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository creates an empty in-memory product repository.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: make(map[string]*domain.Product)}
}

// List filters, sorts and windows a snapshot of the stored products.
func (r *ProductRepository) List(ctx context.Context, q query.Query) (_ []domain.Product, _ int, err error) {
	_, end := database.TraceQuery(ctx, database.SystemMemory, "products.list", "")
	defer func() { end(err) }()

	r.mu.RLock()
	matched := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		if matches(p, q.Filter) {
			matched = append(matched, *p.Clone())
		}
	}
	r.mu.RUnlock()

	sorts := q.Sort
	if len(sorts) == 0 {
		sorts = query.DefaultSort()
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return less(&matched[i], &matched[j], sorts)
	})

	total := len(matched)
	start := min(q.Window.Skip, total)
	stop := total
	if q.Window.Limit > 0 {
		stop = min(start+q.Window.Limit, total)
	}
	return matched[start:stop], total, nil
}

// GetByID returns a copy of the stored product.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, apperrors.NotFound(repository.ResourceProduct, id)
	}
	return p.Clone(), nil
}

// Create stores a copy of the product under a new UUID.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	p.ID = uuid.New().String()
	if p.Reviews == nil {
		p.Reviews = []domain.Review{}
	}
	for i := range p.Reviews {
		if p.Reviews[i].ID == "" {
			p.Reviews[i].ID = uuid.New().String()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p.Clone()
	return nil
}

// Update merges and validates the patch before replacing the stored copy.
func (r *ProductRepository) Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	return r.mutate(id, func(p *domain.Product) error {
		patch.Apply(p)
		return p.Validate().Err("product validation failed")
	})
}

// Delete removes the product.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return apperrors.NotFound(repository.ResourceProduct, id)
	}
	delete(r.products, id)
	return nil
}

// AddReview appends the review under a new UUID.
func (r *ProductRepository) AddReview(ctx context.Context, productID string, review *domain.Review) (*domain.Product, error) {
	return r.mutate(productID, func(p *domain.Product) error {
		review.ID = uuid.New().String()
		p.Reviews = append(p.Reviews, *review)
		return nil
	})
}

// UpdateReview applies the patch to the review in place.
func (r *ProductRepository) UpdateReview(ctx context.Context, productID, reviewID string, patch domain.ReviewPatch) (*domain.Product, error) {
	return r.mutate(productID, func(p *domain.Product) error {
		i := p.FindReview(reviewID)
		if i < 0 {
			return apperrors.NotFound(repository.ResourceReview, reviewID)
		}
		patch.Apply(&p.Reviews[i])
		return p.Reviews[i].Validate().Err("review validation failed")
	})
}

// RemoveReview deletes the review, keeping the order of the others.
func (r *ProductRepository) RemoveReview(ctx context.Context, productID, reviewID string) (*domain.Product, error) {
	return r.mutate(productID, func(p *domain.Product) error {
		i := p.FindReview(reviewID)
		if i < 0 {
			return apperrors.NotFound(repository.ResourceReview, reviewID)
		}
		p.Reviews = append(p.Reviews[:i], p.Reviews[i+1:]...)
		return nil
	})
}

// Ping always succeeds.
func (r *ProductRepository) Ping(context.Context) error {
	return nil
}

// mutate applies fn to a copy and stores it only if fn succeeds.
func (r *ProductRepository) mutate(id string, fn func(*domain.Product) error) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.products[id]
	if !ok {
		return nil, apperrors.NotFound(repository.ResourceProduct, id)
	}

	next := stored.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	r.products[id] = next
	return next.Clone(), nil
}

func fieldValue(p *domain.Product, field string) any {
	switch field {
	case domain.FieldID:
		return p.ID
	case domain.FieldName:
		return p.Name
	case domain.FieldDescription:
		return p.Description
	case domain.FieldBrand:
		return p.Brand
	case domain.FieldImageURL:
		return p.ImageURL
	case domain.FieldCategory:
		return p.Category
	case domain.FieldPrice:
		return p.Price
	case domain.FieldCreatedAt:
		return p.CreatedAt
	case domain.FieldUpdatedAt:
		return p.UpdatedAt
	}
	return nil
}

// compare orders two values of the same field kind.
func compare(a, b any) int {
	switch av := a.(type) {
	case float64:
		bv, _ := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case time.Time:
		bv, _ := b.(time.Time)
		return av.Compare(bv)
	case string:
		bv, _ := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	}
	return 0
}

func matches(p *domain.Product, conds []query.Condition) bool {
	for _, c := range conds {
		v := fieldValue(p, c.Field)
		ok := false
		switch c.Op {
		case query.OpEq:
			ok = compare(v, c.Value()) == 0
		case query.OpNe:
			ok = compare(v, c.Value()) != 0
		case query.OpGt:
			ok = compare(v, c.Value()) > 0
		case query.OpGte:
			ok = compare(v, c.Value()) >= 0
		case query.OpLt:
			ok = compare(v, c.Value()) < 0
		case query.OpLte:
			ok = compare(v, c.Value()) <= 0
		case query.OpIn, query.OpNin:
			in := false
			for _, want := range c.Values {
				if compare(v, want) == 0 {
					in = true
					break
				}
			}
			ok = in == (c.Op == query.OpIn)
		}
		if !ok {
			return false
		}
	}
	return true
}

func less(a, b *domain.Product, sorts []query.Sort) bool {
	for _, s := range sorts {
		c := compare(fieldValue(a, s.Field), fieldValue(b, s.Field))
		if c == 0 {
			continue
		}
		if s.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}
