package domain

// Document field names as they appear in JSON and in stored documents.
const (
	FieldID          = "id"
	FieldName        = "name"
	FieldDescription = "description"
	FieldBrand       = "brand"
	FieldImageURL    = "imageUrl"
	FieldPrice       = "price"
	FieldCategory    = "category"
	FieldReviews     = "reviews"
	FieldCreatedAt   = "createdAt"
	FieldUpdatedAt   = "updatedAt"
)

// FieldKind is the value type of a queryable field.
type FieldKind int

const (
	KindText FieldKind = iota
	KindNumber
	KindTime
)

// ProductFields lists the product fields that may be filtered and sorted on.
var ProductFields = map[string]FieldKind{
	FieldName:        KindText,
	FieldDescription: KindText,
	FieldBrand:       KindText,
	FieldImageURL:    KindText,
	FieldCategory:    KindText,
	FieldPrice:       KindNumber,
	FieldCreatedAt:   KindTime,
	FieldUpdatedAt:   KindTime,
}

// Projectable reports whether a field may be requested in a projection.
func Projectable(field string) bool {
	if field == FieldID || field == FieldReviews {
		return true
	}
	_, ok := ProductFields[field]
	return ok
}
