package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ConnorDW-SA/marketplace/internal/domain"
	"github.com/ConnorDW-SA/marketplace/internal/query"
	"github.com/ConnorDW-SA/marketplace/internal/repository"
	"github.com/ConnorDW-SA/marketplace/pkg/database"
	apperrors "github.com/ConnorDW-SA/marketplace/pkg/errors"
)

// ProductRepository implements repository.ProductRepository on a MongoDB
// collection. Reviews are stored as an embedded array on each product.
type ProductRepository struct {
	coll *mongo.Collection
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository creates a MongoDB-backed product repository.
func NewProductRepository(coll *mongo.Collection) *ProductRepository {
	return &ProductRepository{coll: coll}
}

// EnsureIndexes creates the secondary indexes used by list and filter
// queries. Creating an existing index is a no-op on the server.
func (r *ProductRepository) EnsureIndexes(ctx context.Context) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongoDB, "products.createIndexes", "")
	defer func() { end(err) }()

	_, err = r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: domain.FieldCategory, Value: 1}}},
		{Keys: bson.D{{Key: domain.FieldPrice, Value: 1}}},
		{Keys: bson.D{{Key: domain.FieldCreatedAt, Value: 1}, {Key: "_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create product indexes: %w", err)
	}
	return nil
}

// List returns the products matching q and the total match count.
func (r *ProductRepository) List(ctx context.Context, q query.Query) (_ []domain.Product, _ int, err error) {
	filter := buildFilter(q.Filter)
	ctx, end := database.TraceQuery(ctx, database.SystemMongoDB, "products.find", statement(filter))
	defer func() { end(err) }()

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	opts := options.Find().SetSort(buildSort(q.Sort))
	if q.Window.Skip > 0 {
		opts.SetSkip(int64(q.Window.Skip))
	}
	if q.Window.Limit > 0 {
		opts.SetLimit(int64(q.Window.Limit))
	}
	if proj := buildProjection(q.Fields); proj != nil {
		opts.SetProjection(proj)
	}

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find products: %w", err)
	}
	defer cur.Close(ctx)

	products := make([]domain.Product, 0, q.Window.Limit)
	for cur.Next(ctx) {
		var doc productDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, 0, fmt.Errorf("decode product: %w", err)
		}
		products = append(products, *doc.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}

	return products, int(total), nil
}

// GetByID retrieves a product by its hex ObjectID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (_ *domain.Product, err error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, apperrors.NotFound(repository.ResourceProduct, id)
	}

	filter := bson.D{{Key: "_id", Value: oid}}
	ctx, end := database.TraceQuery(ctx, database.SystemMongoDB, "products.findOne", statement(filter))
	defer func() { end(err) }()

	var doc productDocument
	if err = r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound(repository.ResourceProduct, id)
		}
		return nil, fmt.Errorf("find product %s: %w", id, err)
	}
	return doc.toDomain(), nil
}

// Create inserts the product with a new ObjectID.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongoDB, "products.insertOne", "")
	defer func() { end(err) }()

	doc := toProductDocument(p)
	doc.ID = primitive.NewObjectID()

	if _, err = r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	p.ID = doc.ID.Hex()
	if p.Reviews == nil {
		p.Reviews = []domain.Review{}
	}
	return nil
}

// Update validates the merged document before writing the patched fields.
// Concurrent updates are last-write-wins.
func (r *ProductRepository) Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(current)
	if err := current.Validate().Err("product validation failed"); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return current, nil
	}

	oid, _ := objectID(id)
	filter := bson.D{{Key: "_id", Value: oid}}
	update := bson.D{{Key: "$set", Value: bson.M(patch.Set())}}

	return r.findOneAndUpdate(ctx, "products.update", filter, update, func() error {
		return apperrors.NotFound(repository.ResourceProduct, id)
	})
}

// Delete removes the product document and with it every embedded review.
func (r *ProductRepository) Delete(ctx context.Context, id string) (err error) {
	oid, ok := objectID(id)
	if !ok {
		return apperrors.NotFound(repository.ResourceProduct, id)
	}

	filter := bson.D{{Key: "_id", Value: oid}}
	ctx, end := database.TraceQuery(ctx, database.SystemMongoDB, "products.deleteOne", statement(filter))
	defer func() { end(err) }()

	res, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound(repository.ResourceProduct, id)
	}
	return nil
}

// AddReview pushes the review onto the product's review array.
func (r *ProductRepository) AddReview(ctx context.Context, productID string, review *domain.Review) (*domain.Product, error) {
	oid, ok := objectID(productID)
	if !ok {
		return nil, apperrors.NotFound(repository.ResourceProduct, productID)
	}

	doc := toReviewDocument(review)
	filter := bson.D{{Key: "_id", Value: oid}}
	update := bson.D{{Key: "$push", Value: bson.D{{Key: domain.FieldReviews, Value: doc}}}}

	return r.findOneAndUpdate(ctx, "products.addReview", filter, update, func() error {
		return apperrors.NotFound(repository.ResourceProduct, productID)
	})
}

// UpdateReview sets the patched review fields through the positional
// operator. The filter matches on both ids, so a review removed since it was
// read is reported as not found.
func (r *ProductRepository) UpdateReview(ctx context.Context, productID, reviewID string, patch domain.ReviewPatch) (*domain.Product, error) {
	oid, ok := objectID(productID)
	if !ok {
		return nil, apperrors.NotFound(repository.ResourceProduct, productID)
	}
	rid, ok := objectID(reviewID)
	if !ok {
		return nil, r.missing(ctx, oid, productID, reviewID)
	}

	set := bson.D{}
	if patch.Comment != nil {
		set = append(set, bson.E{Key: "reviews.$.comment", Value: *patch.Comment})
	}
	if patch.Rate != nil {
		set = append(set, bson.E{Key: "reviews.$.rate", Value: *patch.Rate})
	}
	if len(set) == 0 {
		return r.GetByID(ctx, productID)
	}

	filter := bson.D{{Key: "_id", Value: oid}, {Key: "reviews._id", Value: rid}}
	update := bson.D{{Key: "$set", Value: set}}

	return r.findOneAndUpdate(ctx, "products.updateReview", filter, update, func() error {
		return r.missing(ctx, oid, productID, reviewID)
	})
}

// RemoveReview pulls the review from the array, keeping the order of the
// remaining reviews.
func (r *ProductRepository) RemoveReview(ctx context.Context, productID, reviewID string) (*domain.Product, error) {
	oid, ok := objectID(productID)
	if !ok {
		return nil, apperrors.NotFound(repository.ResourceProduct, productID)
	}
	rid, ok := objectID(reviewID)
	if !ok {
		return nil, r.missing(ctx, oid, productID, reviewID)
	}

	filter := bson.D{{Key: "_id", Value: oid}, {Key: "reviews._id", Value: rid}}
	update := bson.D{{Key: "$pull", Value: bson.D{
		{Key: domain.FieldReviews, Value: bson.D{{Key: "_id", Value: rid}}},
	}}}

	return r.findOneAndUpdate(ctx, "products.removeReview", filter, update, func() error {
		return r.missing(ctx, oid, productID, reviewID)
	})
}

// Ping checks the primary is reachable.
func (r *ProductRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, readpref.Primary())
}

func (r *ProductRepository) findOneAndUpdate(ctx context.Context, op string, filter, update bson.D, notFound func() error) (_ *domain.Product, err error) {
	tctx, end := database.TraceQuery(ctx, database.SystemMongoDB, op, statement(filter))
	defer func() { end(err) }()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc productDocument
	if err = r.coll.FindOneAndUpdate(tctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound()
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toDomain(), nil
}

// missing tells apart a missing product from a missing review after a
// conditional update matched nothing.
func (r *ProductRepository) missing(ctx context.Context, oid primitive.ObjectID, productID, reviewID string) error {
	n, err := r.coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: oid}}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("count product %s: %w", productID, err)
	}
	if n == 0 {
		return apperrors.NotFound(repository.ResourceProduct, productID)
	}
	return apperrors.NotFound(repository.ResourceReview, reviewID)
}

func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	return oid, err == nil
}

func statement(v bson.D) string {
	b, err := bson.MarshalExtJSON(v, false, false)
	if err != nil {
		return ""
	}
	return string(b)
}
