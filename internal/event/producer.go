package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ConnorDW-SA/marketplace/internal/domain"
	pkgkafka "github.com/ConnorDW-SA/marketplace/pkg/kafka"
	"github.com/ConnorDW-SA/marketplace/pkg/logger"
)

// Aggregate type constant.
const AggregateTypeProduct = "product"

// Source identifier for events originating from the catalog service.
const SourceCatalogService = "catalog-service"

// Event actions on the product aggregate.
const (
	ActionProductCreated = "created"
	ActionProductUpdated = "updated"
	ActionProductDeleted = "deleted"
	ActionReviewAdded    = "review.added"
	ActionReviewUpdated  = "review.updated"
	ActionReviewRemoved  = "review.removed"
)

// Kafka topics for product domain events.
var (
	TopicProductCreated = pkgkafka.Topic(AggregateTypeProduct, ActionProductCreated)
	TopicProductUpdated = pkgkafka.Topic(AggregateTypeProduct, ActionProductUpdated)
	TopicProductDeleted = pkgkafka.Topic(AggregateTypeProduct, ActionProductDeleted)
	TopicReviewAdded    = pkgkafka.Topic(AggregateTypeProduct, ActionReviewAdded)
	TopicReviewUpdated  = pkgkafka.Topic(AggregateTypeProduct, ActionReviewUpdated)
	TopicReviewRemoved  = pkgkafka.Topic(AggregateTypeProduct, ActionReviewRemoved)
)

// ProductData is the payload for product.created and product.updated events.
type ProductData struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Brand       string  `json:"brand"`
	ImageURL    string  `json:"imageUrl"`
	Price       float64 `json:"price"`
	Category    string  `json:"category,omitempty"`
	ReviewCount int     `json:"reviewCount"`
}

// ProductDeletedData is the payload for a product.deleted event.
type ProductDeletedData struct {
	ID string `json:"id"`
}

// ReviewData is the payload for review events. Comment and Rate are empty
// for removals.
type ReviewData struct {
	ProductID string   `json:"productId"`
	ReviewID  string   `json:"reviewId"`
	Comment   string   `json:"comment,omitempty"`
	Rate      *float64 `json:"rate,omitempty"`
}

// Publisher is the subset of the Kafka producer used to send events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes product domain events. A Producer with a nil
// publisher drops every event, which is how disabled Kafka is modeled.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer for the catalog service.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

// Enabled reports whether events are actually sent.
func (p *Producer) Enabled() bool {
	return p != nil && p.publisher != nil
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductCreated, product.ID, newProductData(product))
}

// PublishProductUpdated publishes a product.updated event.
func (p *Producer) PublishProductUpdated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductUpdated, product.ID, newProductData(product))
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, id string) error {
	return p.publish(ctx, TopicProductDeleted, id, ProductDeletedData{ID: id})
}

// PublishReviewAdded publishes a product.review.added event.
func (p *Producer) PublishReviewAdded(ctx context.Context, productID string, review *domain.Review) error {
	return p.publish(ctx, TopicReviewAdded, productID, newReviewData(productID, review))
}

// PublishReviewUpdated publishes a product.review.updated event.
func (p *Producer) PublishReviewUpdated(ctx context.Context, productID string, review *domain.Review) error {
	return p.publish(ctx, TopicReviewUpdated, productID, newReviewData(productID, review))
}

// PublishReviewRemoved publishes a product.review.removed event.
func (p *Producer) PublishReviewRemoved(ctx context.Context, productID, reviewID string) error {
	return p.publish(ctx, TopicReviewRemoved, productID, ReviewData{ProductID: productID, ReviewID: reviewID})
}

func (p *Producer) publish(ctx context.Context, topic, productID string, data any) error {
	if !p.Enabled() {
		return nil
	}

	event, err := pkgkafka.NewEvent(topic, productID, AggregateTypeProduct, SourceCatalogService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published product event",
		slog.String("topic", topic),
		slog.String("product_id", productID),
	)
	return nil
}

func newProductData(p *domain.Product) ProductData {
	return ProductData{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Brand:       p.Brand,
		ImageURL:    p.ImageURL,
		Price:       p.Price,
		Category:    p.Category,
		ReviewCount: len(p.Reviews),
	}
}

func newReviewData(productID string, r *domain.Review) ReviewData {
	rate := r.Rate
	return ReviewData{
		ProductID: productID,
		ReviewID:  r.ID,
		Comment:   r.Comment,
		Rate:      &rate,
	}
}
