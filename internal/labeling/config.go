package labeling

import (
	"fmt"
)

type Kind string

const (
	KindEntityPresence  Kind = "entity_presence"
	KindEntityAbsence   Kind = "entity_absence"
	KindSentiment       Kind = "sentiment"
	KindKeywordPresence Kind = "keyword_presence"
	KindKeywordAbsence  Kind = "keyword_absence"
	KindEntityFuzzy     Kind = "entity_fuzzy"
)

// Config describes one labeling function. Name and ReturnLabel are common to
// every kind; the remaining fields are per kind. Required fields use pointers
// so that an omitted value is distinguishable from a zero value and fails at
// construction, not at evaluation.
type Config struct {
	Name        string `json:"name"`
	Kind        Kind   `json:"kind"`
	ReturnLabel *int   `json:"return_label"`

	// KindEntityPresence, KindEntityAbsence, KindEntityFuzzy
	NERTag string `json:"ner_tag,omitempty"`

	// KindSentiment. All four bounds are required and exclusive. No ordering
	// check is done: lower >= upper yields a function that always abstains.
	PolarityLower     *float64 `json:"polarity_lower,omitempty"`
	PolarityUpper     *float64 `json:"polarity_upper,omitempty"`
	SubjectivityLower *float64 `json:"subjectivity_lower,omitempty"`
	SubjectivityUpper *float64 `json:"subjectivity_upper,omitempty"`

	// KindKeywordPresence, KindKeywordAbsence: keywords must be lowercase, the
	// matcher lowercases text only. KindEntityFuzzy: the gazetteer.
	Keywords []string `json:"keywords,omitempty"`

	// KindEntityFuzzy. Similarity cutoff in [0, 100]; values above 100 are
	// unreachable and make the function always abstain.
	FuzzyMatchThreshold *int `json:"fuzzy_match_threshold,omitempty"`
}

func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("labeling function config: name is required")
	}
	if c.ReturnLabel == nil {
		return fmt.Errorf("labeling function '%s': return_label is required", c.Name)
	}
	if *c.ReturnLabel == Abstain {
		return fmt.Errorf("labeling function '%s': return_label %d is reserved for abstain", c.Name, Abstain)
	}

	switch c.Kind {
	case KindEntityPresence, KindEntityAbsence:
		if c.NERTag == "" {
			return fmt.Errorf("labeling function '%s': ner_tag is required for kind %s", c.Name, c.Kind)
		}
	case KindSentiment:
		for field, value := range map[string]*float64{
			"polarity_lower":     c.PolarityLower,
			"polarity_upper":     c.PolarityUpper,
			"subjectivity_lower": c.SubjectivityLower,
			"subjectivity_upper": c.SubjectivityUpper,
		} {
			if value == nil {
				return fmt.Errorf("labeling function '%s': %s is required for kind %s", c.Name, field, c.Kind)
			}
		}
	case KindKeywordPresence, KindKeywordAbsence:
		if len(c.Keywords) == 0 {
			return fmt.Errorf("labeling function '%s': keywords are required for kind %s", c.Name, c.Kind)
		}
	case KindEntityFuzzy:
		if len(c.Keywords) == 0 {
			return fmt.Errorf("labeling function '%s': keywords are required for kind %s", c.Name, c.Kind)
		}
		if c.NERTag == "" {
			return fmt.Errorf("labeling function '%s': ner_tag is required for kind %s", c.Name, c.Kind)
		}
		if c.FuzzyMatchThreshold == nil {
			return fmt.Errorf("labeling function '%s': fuzzy_match_threshold is required for kind %s", c.Name, c.Kind)
		}
	default:
		return fmt.Errorf("labeling function '%s': unknown kind '%s'", c.Name, c.Kind)
	}

	return nil
}
