package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Product is a catalog entry. Reviews are embedded in the product document
// and kept in insertion order.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Brand       string    `json:"brand"`
	ImageURL    string    `json:"imageUrl"`
	Price       float64   `json:"price"`
	Category    string    `json:"category,omitempty"`
	Reviews     []Review  `json:"reviews"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Validate checks the required product fields and every embedded review.
func (p *Product) Validate() Violations {
	var v Violations
	v.requireText("name", p.Name)
	v.requireText("description", p.Description)
	v.requireText("brand", p.Brand)
	v.requireText("imageUrl", p.ImageURL)

	for i := range p.Reviews {
		for _, rv := range p.Reviews[i].Validate() {
			v.add(fmt.Sprintf("reviews[%d].%s", i, rv.Field), rv.Message)
		}
	}
	return v
}

// FindReview returns the index of the review with the given id, or -1.
func (p *Product) FindReview(reviewID string) int {
	for i := range p.Reviews {
		if p.Reviews[i].ID == reviewID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the product.
func (p *Product) Clone() *Product {
	c := *p
	if p.Reviews != nil {
		c.Reviews = make([]Review, len(p.Reviews))
		copy(c.Reviews, p.Reviews)
	}
	return &c
}

// Project renders the product as a JSON object holding only the requested
// fields. The id is always included. An empty field list keeps everything.
func (p *Product) Project(fields []string) (map[string]any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal product %s: %w", p.ID, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal product %s: %w", p.ID, err)
	}
	if len(fields) == 0 {
		return doc, nil
	}

	out := make(map[string]any, len(fields)+1)
	out[FieldID] = doc[FieldID]
	for _, f := range fields {
		if val, ok := doc[f]; ok {
			out[f] = val
		}
	}
	return out, nil
}

// ProductPatch carries the fields of an update. Nil fields are left as
// stored.
type ProductPatch struct {
	Name        *string
	Description *string
	Brand       *string
	ImageURL    *string
	Price       *float64
	Category    *string
}

// Empty reports whether the patch changes nothing.
func (pp ProductPatch) Empty() bool {
	return pp.Name == nil && pp.Description == nil && pp.Brand == nil &&
		pp.ImageURL == nil && pp.Price == nil && pp.Category == nil
}

// Apply merges the patch into p.
func (pp ProductPatch) Apply(p *Product) {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.Brand != nil {
		p.Brand = *pp.Brand
	}
	if pp.ImageURL != nil {
		p.ImageURL = *pp.ImageURL
	}
	if pp.Price != nil {
		p.Price = *pp.Price
	}
	if pp.Category != nil {
		p.Category = *pp.Category
	}
}

// Set returns the patched fields keyed by their document names.
func (pp ProductPatch) Set() map[string]any {
	set := make(map[string]any, 6)
	if pp.Name != nil {
		set[FieldName] = *pp.Name
	}
	if pp.Description != nil {
		set[FieldDescription] = *pp.Description
	}
	if pp.Brand != nil {
		set[FieldBrand] = *pp.Brand
	}
	if pp.ImageURL != nil {
		set[FieldImageURL] = *pp.ImageURL
	}
	if pp.Price != nil {
		set[FieldPrice] = *pp.Price
	}
	if pp.Category != nil {
		set[FieldCategory] = *pp.Category
	}
	return set
}

func (v *Violations) requireText(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.add(field, "is required")
	}
}
