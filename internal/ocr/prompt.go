package ocr

// TranscriptionPrompt instructs a vision model to act as a plain OCR engine.
// The downstream pipeline does its own normalization and classification, so
// the model is asked for a verbatim transcript, not interpretation.
const TranscriptionPrompt = `Transcribe all visible text from this receipt or bill image exactly as it appears, line by line. Preserve the original line breaks, column separators and spacing. Do not correct spelling, do not interpret or summarize, do not add any commentary. Output the raw text only.`
