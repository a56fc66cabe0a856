package domain

import (
	apperrors "github.com/ConnorDW-SA/marketplace/pkg/errors"
)

// Violation is a single failed field rule.
type Violation struct {
	Field   string
	Message string
}

// Violations collects every rule a document breaks.
type Violations []Violation

func (v *Violations) add(field, message string) {
	*v = append(*v, Violation{Field: field, Message: message})
}

// Err converts the violations to a 400 validation error, or nil when there
// are none.
func (v Violations) Err(message string) error {
	if len(v) == 0 {
		return nil
	}
	fields := make(map[string]string, len(v))
	for _, viol := range v {
		fields[viol.Field] = viol.Message
	}
	return apperrors.Validation(message, fields)
}
