package port

import "context"

// RecognizeInput carries the image bytes handed to an OCR engine.
type RecognizeInput struct {
	FileBytes   []byte
	ContentType string
}

// RecognizeOutput contains the plain-text transcript produced by an engine.
type RecognizeOutput struct {
	Text      string
	ModelUsed string
}

// OCREngine abstracts the external image-to-text collaborator. The pipeline
// core never calls it; the service layer feeds its output string into the
// pipeline like any directly supplied text.
type OCREngine interface {
	Recognize(ctx context.Context, input RecognizeInput) (*RecognizeOutput, error)
}
