package domain

// Document is the extracted text of one uploaded file. It is consumed by
// ingestion immediately and not retained.
type Document struct {
	Text string
}

// Chunk is one unit of text with its embedding, ready to be stored. The
// current ingestion policy stores one chunk per document.
type Chunk struct {
	ID     string
	Text   string
	Vector []float32
}

// Passage is a retrieved chunk with its similarity score, higher is closer.
type Passage struct {
	Text  string
	Score float64
}
