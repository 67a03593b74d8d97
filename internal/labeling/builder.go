package labeling

import (
	"fmt"
)

// Builder turns validated configs into labeling functions. It holds the two
// collaborators the functions need; the functions themselves capture only
// read-only configuration and are safe for concurrent use.
type Builder struct {
	sentiment SentimentScorer
	fuzzy     FuzzyScorer
}

func NewBuilder(sentiment SentimentScorer, fuzzy FuzzyScorer) *Builder {
	return &Builder{sentiment: sentiment, fuzzy: fuzzy}
}

// Build validates the config and constructs the function for its kind. All
// configuration errors surface here, before any document is processed.
func (b *Builder) Build(cfg Config) (LabelingFunction, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case KindEntityPresence:
		return &entityPresence{name: cfg.Name, tag: cfg.NERTag, label: *cfg.ReturnLabel}, nil

	case KindEntityAbsence:
		return &entityAbsence{name: cfg.Name, tag: cfg.NERTag, label: *cfg.ReturnLabel}, nil

	case KindSentiment:
		if b.sentiment == nil {
			return nil, fmt.Errorf("labeling function '%s': no sentiment scorer configured", cfg.Name)
		}
		return &sentimentThreshold{
			name:   cfg.Name,
			label:  *cfg.ReturnLabel,
			scorer: b.sentiment,
			polLo:  *cfg.PolarityLower,
			polHi:  *cfg.PolarityUpper,
			subjLo: *cfg.SubjectivityLower,
			subjHi: *cfg.SubjectivityUpper,
		}, nil

	case KindKeywordPresence:
		matcher, err := newKeywordMatcher(cfg.Keywords)
		if err != nil {
			return nil, fmt.Errorf("labeling function '%s': %w", cfg.Name, err)
		}
		return &keywordPresence{name: cfg.Name, label: *cfg.ReturnLabel, matcher: matcher}, nil

	case KindKeywordAbsence:
		matcher, err := newKeywordMatcher(cfg.Keywords)
		if err != nil {
			return nil, fmt.Errorf("labeling function '%s': %w", cfg.Name, err)
		}
		return &keywordAbsence{name: cfg.Name, label: *cfg.ReturnLabel, matcher: matcher}, nil

	case KindEntityFuzzy:
		if b.fuzzy == nil {
			return nil, fmt.Errorf("labeling function '%s': no fuzzy scorer configured", cfg.Name)
		}
		return &entityFuzzy{
			name:      cfg.Name,
			tag:       cfg.NERTag,
			label:     *cfg.ReturnLabel,
			scorer:    b.fuzzy,
			gazetteer: dedupeKeywords(cfg.Keywords),
			threshold: *cfg.FuzzyMatchThreshold,
		}, nil

	default:
		return nil, fmt.Errorf("labeling function '%s': unknown kind '%s'", cfg.Name, cfg.Kind)
	}
}

// BuildAll builds every config in order, failing on the first invalid one.
func (b *Builder) BuildAll(cfgs []Config) ([]LabelingFunction, error) {
	funcs := make([]LabelingFunction, 0, len(cfgs))
	for _, cfg := range cfgs {
		fn, err := b.Build(cfg)
		if err != nil {
			return nil, err
		}
		funcs = append(funcs, fn)
	}
	return funcs, nil
}
