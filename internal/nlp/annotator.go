package nlp

import (
	"fmt"

	"labeling-backend/internal/labeling"

	prose "github.com/tsawler/prose/v3"
)

// Annotator parses raw text into the document form labeling functions
// consume: the text plus its recognized entities, in document order.
type Annotator interface {
	Annotate(text string) (*labeling.Document, error)
}

type ProseAnnotator struct{}

func NewProseAnnotator() *ProseAnnotator {
	return &ProseAnnotator{}
}

func (a *ProseAnnotator) Annotate(text string) (*labeling.Document, error) {
	doc, err := prose.NewDocument(text, prose.WithExtraction(true))
	if err != nil {
		return nil, fmt.Errorf("error annotating document: %w", err)
	}

	ents := doc.Entities()
	entities := make([]labeling.Entity, 0, len(ents))
	for _, ent := range ents {
		entities = append(entities, labeling.Entity{Text: ent.Text, Tag: ent.Label})
	}

	return &labeling.Document{Text: text, Entities: entities}, nil
}
