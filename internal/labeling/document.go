package labeling

// Abstain is the sentinel vote meaning the function has no opinion on the
// document. It is shared by every labeling function and consumed downstream
// when the label matrix is assembled. Callers must not use -1 as a class label.
const Abstain = -1

// Entity is a single recognized span in a document. Tag values come from the
// annotator's vocabulary (e.g. "ORG", "PERSON", "GPE").
type Entity struct {
	Text string
	Tag  string
}

// Document is the unit every labeling function is evaluated against. Entities
// are in document order. A Document is immutable once constructed.
type Document struct {
	Text     string
	Entities []Entity
}

// SentimentScore holds the two sentiment axes used by threshold functions.
// Polarity is in [-1, 1], Subjectivity in [0, 1].
type SentimentScore struct {
	Polarity     float64
	Subjectivity float64
}

// SentimentScorer computes sentiment scores for raw text.
type SentimentScorer interface {
	Score(text string) (SentimentScore, error)
}

// FuzzyScorer computes a token-order-insensitive similarity in [0, 100]
// between two strings.
type FuzzyScorer interface {
	Similarity(a, b string) int
}

// LabelingFunction is a named, stateless predicate over one document. Label
// returns either the function's configured class label or Abstain. Functions
// are safe to invoke concurrently on distinct documents.
type LabelingFunction interface {
	Name() string
	Label(doc *Document) (int, error)
}
