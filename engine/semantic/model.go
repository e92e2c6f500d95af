package semantic

import "github.com/coursebot/coursebot/engine/domain"

// Record is the atomic unit of storage: a stable string id, the embedding
// vector, the embedding input text, and the display metadata.
type Record struct {
	ID       string
	Vector   []float32
	Document string
	Meta     domain.CourseMeta
}

// Hit is one nearest-neighbor result. Distance is 1 − cosine similarity;
// lower means more similar.
type Hit struct {
	ID       string
	Distance float64
	Document string
	Meta     domain.CourseMeta
}
