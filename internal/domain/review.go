package domain

import (
	"strings"
	"time"
)

// MaxRate is the highest rate a review may carry. There is no lower bound.
const MaxRate = 5

// Review is a comment and rate left on a single product.
type Review struct {
	ID        string    `json:"id"`
	Comment   string    `json:"comment"`
	Rate      float64   `json:"rate"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the review's comment and rate.
func (r *Review) Validate() Violations {
	var v Violations
	if strings.TrimSpace(r.Comment) == "" {
		v.add("comment", "is required")
	}
	if r.Rate > MaxRate {
		v.add("rate", "must be less than or equal to 5")
	}
	return v
}

// ReviewPatch carries the editable review fields. Nil fields are unchanged.
type ReviewPatch struct {
	Comment *string
	Rate    *float64
}

// Empty reports whether the patch changes nothing.
func (rp ReviewPatch) Empty() bool {
	return rp.Comment == nil && rp.Rate == nil
}

// Apply merges the patch into r.
func (rp ReviewPatch) Apply(r *Review) {
	if rp.Comment != nil {
		r.Comment = *rp.Comment
	}
	if rp.Rate != nil {
		r.Rate = *rp.Rate
	}
}
