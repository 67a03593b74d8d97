package nlp

import (
	"fmt"

	"labeling-backend/internal/labeling"

	prose "github.com/tsawler/prose/v3"
)

// ProseSentimentScorer scores text with the lexicon-based analyzer. Polarity
// is in [-1, 1], subjectivity in [0, 1], matching the ranges threshold
// functions expect.
type ProseSentimentScorer struct {
	analyzer *prose.SentimentAnalyzer
}

var _ labeling.SentimentScorer = (*ProseSentimentScorer)(nil)

func NewProseSentimentScorer() *ProseSentimentScorer {
	return &ProseSentimentScorer{
		analyzer: prose.NewSentimentAnalyzer(prose.English, prose.DefaultSentimentConfig()),
	}
}

func (s *ProseSentimentScorer) Score(text string) (labeling.SentimentScore, error) {
	doc, err := prose.NewDocument(text, prose.WithTagging(true))
	if err != nil {
		return labeling.SentimentScore{}, fmt.Errorf("error scoring sentiment: %w", err)
	}

	score := s.analyzer.AnalyzeDocument(doc)
	return labeling.SentimentScore{
		Polarity:     score.Polarity,
		Subjectivity: score.Subjectivity,
	}, nil
}
