package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ConnorDW-SA/marketplace/internal/domain"
)

type productDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description"`
	Brand       string             `bson:"brand"`
	ImageURL    string             `bson:"imageUrl"`
	Price       float64            `bson:"price"`
	Category    string             `bson:"category,omitempty"`
	Reviews     []reviewDocument   `bson:"reviews"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

type reviewDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Comment   string             `bson:"comment"`
	Rate      float64            `bson:"rate"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func toProductDocument(p *domain.Product) productDocument {
	doc := productDocument{
		Name:        p.Name,
		Description: p.Description,
		Brand:       p.Brand,
		ImageURL:    p.ImageURL,
		Price:       p.Price,
		Category:    p.Category,
		Reviews:     make([]reviewDocument, 0, len(p.Reviews)),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if oid, err := primitive.ObjectIDFromHex(p.ID); err == nil {
		doc.ID = oid
	}
	for i := range p.Reviews {
		doc.Reviews = append(doc.Reviews, toReviewDocument(&p.Reviews[i]))
	}
	return doc
}

// toReviewDocument assigns a fresh ObjectID when the review has none.
func toReviewDocument(r *domain.Review) reviewDocument {
	oid, err := primitive.ObjectIDFromHex(r.ID)
	if err != nil {
		oid = primitive.NewObjectID()
		r.ID = oid.Hex()
	}
	return reviewDocument{
		ID:        oid,
		Comment:   r.Comment,
		Rate:      r.Rate,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (d *productDocument) toDomain() *domain.Product {
	p := &domain.Product{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Brand:       d.Brand,
		ImageURL:    d.ImageURL,
		Price:       d.Price,
		Category:    d.Category,
		Reviews:     make([]domain.Review, 0, len(d.Reviews)),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	for _, r := range d.Reviews {
		p.Reviews = append(p.Reviews, domain.Review{
			ID:        r.ID.Hex(),
			Comment:   r.Comment,
			Rate:      r.Rate,
			CreatedAt: r.CreatedAt.UTC(),
			UpdatedAt: r.UpdatedAt.UTC(),
		})
	}
	return p
}
