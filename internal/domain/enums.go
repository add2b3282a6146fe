package domain

// AmountType is the semantic role assigned to an extracted numeric token.
type AmountType string

const (
	AmountTypeTotalBill       AmountType = "total_bill"
	AmountTypePaid            AmountType = "paid"
	AmountTypeDue             AmountType = "due"
	AmountTypeTax             AmountType = "tax"
	AmountTypeDiscountPct     AmountType = "discount_pct"
	AmountTypeChange          AmountType = "change"
	AmountTypeOther           AmountType = "other"
	AmountTypeValidationError AmountType = "validation_error"
)

// ValidationStatus is the outcome of the arithmetic cross-check between
// total, paid and due amounts.
type ValidationStatus string

const (
	ValidationOK           ValidationStatus = "validation_ok"
	ValidationPartial      ValidationStatus = "validation_partial"
	ValidationInconsistent ValidationStatus = "validation_inconsistent"
)

// InputKind records how the text for an extraction was obtained.
type InputKind string

const (
	InputKindText  InputKind = "text"
	InputKindImage InputKind = "image"
)

// AllowedFileTypes maps upload extensions (without dot) to their MIME content type.
var AllowedFileTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"pdf":  "application/pdf",
}

// AllowedContentTypes is the set of MIME types accepted from magic-byte detection.
var AllowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}
