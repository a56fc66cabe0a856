package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ConnorDW-SA/marketplace/internal/domain"
	"github.com/ConnorDW-SA/marketplace/internal/query"
	"github.com/ConnorDW-SA/marketplace/internal/repository"
	"github.com/ConnorDW-SA/marketplace/pkg/database"
	apperrors "github.com/ConnorDW-SA/marketplace/pkg/errors"
)

// ProductRepository implements repository.ProductRepository on a PostgreSQL
// table holding one JSONB document per product.
type ProductRepository struct {
	db database.DBTX
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// List returns the products matching q with the total count.
func (r *ProductRepository) List(ctx context.Context, q query.Query) (_ []domain.Product, _ int, err error) {
	where, args := whereClause(q.Filter)

	countSQL := "SELECT count(*) FROM products " + where
	ctx, end := database.TraceQuery(ctx, database.SystemPostgreSQL, "products.list", countSQL)
	defer func() { end(err) }()

	var total int
	if err = r.db.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	listSQL := "SELECT doc FROM products " + where + " " + orderClause(q.Sort)
	if q.Window.Limit > 0 {
		listSQL += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, q.Window.Limit, q.Window.Skip)
	}

	rows, err := r.db.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var raw []byte
		if err = rows.Scan(&raw); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		p, err := decode(raw)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, total, nil
}

// GetByID retrieves a product by its UUID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (_ *domain.Product, err error) {
	if _, perr := uuid.Parse(id); perr != nil {
		return nil, apperrors.NotFound(repository.ResourceProduct, id)
	}

	const q = `SELECT doc FROM products WHERE id = $1`
	ctx, end := database.TraceQuery(ctx, database.SystemPostgreSQL, "products.get", q)
	defer func() { end(err) }()

	var raw []byte
	if err = r.db.QueryRow(ctx, q, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound(repository.ResourceProduct, id)
		}
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return decode(raw)
}

// Create inserts the product under a new UUID.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	p.ID = uuid.New().String()
	if p.Reviews == nil {
		p.Reviews = []domain.Review{}
	}
	for i := range p.Reviews {
		if p.Reviews[i].ID == "" {
			p.Reviews[i].ID = uuid.New().String()
		}
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}

	const q = `INSERT INTO products (id, doc, created_at) VALUES ($1, $2, $3)`
	ctx, end := database.TraceQuery(ctx, database.SystemPostgreSQL, "products.insert", q)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, q, p.ID, raw, p.CreatedAt); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// Update merges patch under a row lock and validates the merged document
// before writing it back.
func (r *ProductRepository) Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	return r.mutate(ctx, "products.update", id, func(p *domain.Product) error {
		patch.Apply(p)
		return p.Validate().Err("product validation failed")
	})
}

// Delete removes a product and its embedded reviews.
func (r *ProductRepository) Delete(ctx context.Context, id string) (err error) {
	if _, perr := uuid.Parse(id); perr != nil {
		return apperrors.NotFound(repository.ResourceProduct, id)
	}

	const q = `DELETE FROM products WHERE id = $1`
	ctx, end := database.TraceQuery(ctx, database.SystemPostgreSQL, "products.delete", q)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound(repository.ResourceProduct, id)
	}
	return nil
}

// AddReview appends the review to the document's reviews array in a single
// statement.
func (r *ProductRepository) AddReview(ctx context.Context, productID string, review *domain.Review) (_ *domain.Product, err error) {
	if _, perr := uuid.Parse(productID); perr != nil {
		return nil, apperrors.NotFound(repository.ResourceProduct, productID)
	}
	review.ID = uuid.New().String()

	raw, err := json.Marshal(review)
	if err != nil {
		return nil, fmt.Errorf("marshal review: %w", err)
	}

	const q = `
		UPDATE products
		SET doc = jsonb_set(doc, '{reviews}', COALESCE(doc->'reviews', '[]'::jsonb) || jsonb_build_array($2::jsonb))
		WHERE id = $1
		RETURNING doc`
	ctx, end := database.TraceQuery(ctx, database.SystemPostgreSQL, "products.addReview", q)
	defer func() { end(err) }()

	var doc []byte
	if err = r.db.QueryRow(ctx, q, productID, raw).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound(repository.ResourceProduct, productID)
		}
		return nil, fmt.Errorf("add review to product %s: %w", productID, err)
	}
	return decode(doc)
}

// UpdateReview edits the review in place under a row lock.
func (r *ProductRepository) UpdateReview(ctx context.Context, productID, reviewID string, patch domain.ReviewPatch) (*domain.Product, error) {
	return r.mutate(ctx, "products.updateReview", productID, func(p *domain.Product) error {
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
	return r.mutate(ctx, "products.removeReview", productID, func(p *domain.Product) error {
		i := p.FindReview(reviewID)
		if i < 0 {
			return apperrors.NotFound(repository.ResourceReview, reviewID)
		}
		p.Reviews = append(p.Reviews[:i], p.Reviews[i+1:]...)
		return nil
	})
}

// Ping checks the database connection.
func (r *ProductRepository) Ping(ctx context.Context) error {
	if p, ok := r.db.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	_, err := r.db.Exec(ctx, "SELECT 1")
	return err
}

// mutate loads the document with SELECT ... FOR UPDATE, applies fn and
// writes the result back in the same transaction. An error from fn rolls the
// transaction back and is returned unchanged.
func (r *ProductRepository) mutate(ctx context.Context, op, id string, fn func(*domain.Product) error) (_ *domain.Product, err error) {
	if _, perr := uuid.Parse(id); perr != nil {
		return nil, apperrors.NotFound(repository.ResourceProduct, id)
	}

	const selectSQL = `SELECT doc FROM products WHERE id = $1 FOR UPDATE`
	const updateSQL = `UPDATE products SET doc = $1 WHERE id = $2`
	ctx, end := database.TraceQuery(ctx, database.SystemPostgreSQL, op, updateSQL)
	defer func() { end(err) }()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin %s: %w", op, err)
	}

	var raw []byte
	if err = tx.QueryRow(ctx, selectSQL, id).Scan(&raw); err != nil {
		_ = tx.Rollback(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound(repository.ResourceProduct, id)
		}
		return nil, fmt.Errorf("lock product %s: %w", id, err)
	}

	p, err := decode(raw)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}

	if err = fn(p); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}

	updated, err := json.Marshal(p)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("marshal product %s: %w", id, err)
	}

	if _, err = tx.Exec(ctx, updateSQL, updated, id); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("write product %s: %w", id, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit %s: %w", op, err)
	}
	return p, nil
}

func decode(raw []byte) (*domain.Product, error) {
	var p domain.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode product document: %w", err)
	}
	if p.Reviews == nil {
		p.Reviews = []domain.Review{}
	}
	return &p, nil
}
