package labeling

import (
	"regexp"
	"strings"
)

type entityPresence struct {
	name  string
	tag   string
	label int
}

func (f *entityPresence) Name() string { return f.name }

func (f *entityPresence) Label(doc *Document) (int, error) {
	for _, ent := range doc.Entities {
		if ent.Tag == f.tag {
			return f.label, nil
		}
	}
	return Abstain, nil
}

type entityAbsence struct {
	name  string
	tag   string
	label int
}

func (f *entityAbsence) Name() string { return f.name }

func (f *entityAbsence) Label(doc *Document) (int, error) {
	for _, ent := range doc.Entities {
		if ent.Tag == f.tag {
			return Abstain, nil
		}
	}
	return f.label, nil
}

type sentimentThreshold struct {
	name   string
	label  int
	scorer SentimentScorer
	polLo  float64
	polHi  float64
	subjLo float64
	subjHi float64
}

func (f *sentimentThreshold) Name() string { return f.name }

// Label scores the full document text on every call; nothing is cached across
// calls. All four bounds are exclusive, so a score exactly on a bound abstains.
func (f *sentimentThreshold) Label(doc *Document) (int, error) {
	score, err := f.scorer.Score(doc.Text)
	if err != nil {
		return Abstain, err
	}

	if score.Polarity > f.polLo && score.Polarity < f.polHi &&
		score.Subjectivity > f.subjLo && score.Subjectivity < f.subjHi {
		return f.label, nil
	}
	return Abstain, nil
}

// keywordMatcher tests keywords against lowercased text with a hand-built word
// boundary: the keyword must be enclosed by non-alphanumeric characters on
// BOTH sides. A keyword at the very start or end of the text therefore never
// matches; this strictness is intentional and relied upon by existing labeler
// definitions, so it is kept rather than fixed.
type keywordMatcher struct {
	patterns []*regexp.Regexp
}

func newKeywordMatcher(keywords []string) (*keywordMatcher, error) {
	patterns := make([]*regexp.Regexp, 0, len(keywords))
	for _, kw := range keywords {
		re, err := regexp.Compile(`[^a-z0-9]` + regexp.QuoteMeta(kw) + `[^a-z0-9]`)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, re)
	}
	return &keywordMatcher{patterns: patterns}, nil
}

// matches reports whether any keyword, in list order, occurs in the text.
func (m *keywordMatcher) matches(text string) bool {
	lowered := strings.ToLower(text)
	for _, re := range m.patterns {
		if re.MatchString(lowered) {
			return true
		}
	}
	return false
}

type keywordPresence struct {
	name    string
	label   int
	matcher *keywordMatcher
}

func (f *keywordPresence) Name() string { return f.name }

func (f *keywordPresence) Label(doc *Document) (int, error) {
	if f.matcher.matches(doc.Text) {
		return f.label, nil
	}
	return Abstain, nil
}

type keywordAbsence struct {
	name    string
	label   int
	matcher *keywordMatcher
}

func (f *keywordAbsence) Name() string { return f.name }

func (f *keywordAbsence) Label(doc *Document) (int, error) {
	if f.matcher.matches(doc.Text) {
		return Abstain, nil
	}
	return f.label, nil
}

type entityFuzzy struct {
	name      string
	tag       string
	label     int
	scorer    FuzzyScorer
	gazetteer []string
	threshold int
}

func (f *entityFuzzy) Name() string { return f.name }

// Label scans entities in document order and returns the label for the first
// entity of the target tag whose best gazetteer similarity reaches the
// threshold. It does not look for the globally best match across the document.
func (f *entityFuzzy) Label(doc *Document) (int, error) {
	for _, ent := range doc.Entities {
		if ent.Tag != f.tag {
			continue
		}

		entText := strings.ToLower(ent.Text)
		maxRatio := 0
		for _, name := range f.gazetteer {
			if ratio := f.scorer.Similarity(entText, strings.ToLower(name)); ratio > maxRatio {
				maxRatio = ratio
			}
		}

		if maxRatio >= f.threshold {
			return f.label, nil
		}
	}
	return Abstain, nil
}

// dedupeKeywords removes duplicates keeping the first occurrence, so that ties
// between equally similar gazetteer entries resolve deterministically to the
// earliest entry in the configured list.
func dedupeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}
