package nlp

import (
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"labeling-backend/internal/labeling"
)

// TokenSortScorer scores string similarity with the token-sort ratio: tokens
// are sorted before comparison, so word order does not affect the score.
// Identical strings score 100.
type TokenSortScorer struct{}

var _ labeling.FuzzyScorer = TokenSortScorer{}

func NewTokenSortScorer() TokenSortScorer {
	return TokenSortScorer{}
}

func (TokenSortScorer) Similarity(a, b string) int {
	return fuzzy.TokenSortRatio(a, b)
}
