package labeling_test

import (
	"errors"
	"testing"

	"labeling-backend/internal/labeling"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSentiment struct {
	score labeling.SentimentScore
	err   error
}

func (s stubSentiment) Score(text string) (labeling.SentimentScore, error) {
	return s.score, s.err
}

// stubFuzzy returns 100 for equal strings (ignoring case handled by the
// caller) and a fixed partial score otherwise.
type stubFuzzy struct {
	partial int
}

func (s stubFuzzy) Similarity(a, b string) int {
	if a == b {
		return 100
	}
	return s.partial
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func newTestBuilder() *labeling.Builder {
	return labeling.NewBuilder(stubSentiment{}, stubFuzzy{partial: 40})
}

func TestFunctionNameMatchesConfigName(t *testing.T) {
	builder := labeling.NewBuilder(stubSentiment{}, stubFuzzy{})

	configs := []labeling.Config{
		{Name: "lf_a", Kind: labeling.KindEntityPresence, NERTag: "ORG", ReturnLabel: intPtr(1)},
		{Name: "lf_b", Kind: labeling.KindEntityAbsence, NERTag: "ORG", ReturnLabel: intPtr(1)},
		{Name: "lf_c", Kind: labeling.KindSentiment, ReturnLabel: intPtr(1), PolarityLower: floatPtr(-1), PolarityUpper: floatPtr(1), SubjectivityLower: floatPtr(0), SubjectivityUpper: floatPtr(1)},
		{Name: "lf_d", Kind: labeling.KindKeywordPresence, Keywords: []string{"x"}, ReturnLabel: intPtr(1)},
		{Name: "lf_e", Kind: labeling.KindKeywordAbsence, Keywords: []string{"x"}, ReturnLabel: intPtr(1)},
		{Name: "lf_f", Kind: labeling.KindEntityFuzzy, Keywords: []string{"x"}, NERTag: "ORG", FuzzyMatchThreshold: intPtr(90), ReturnLabel: intPtr(1)},
	}

	for _, cfg := range configs {
		fn, err := builder.Build(cfg)
		require.NoError(t, err)
		assert.Equal(t, cfg.Name, fn.Name())
	}
}

func TestEntityPresence(t *testing.T) {
	fn, err := newTestBuilder().Build(labeling.Config{
		Name: "LF_org", Kind: labeling.KindEntityPresence, NERTag: "ORG", ReturnLabel: intPtr(1),
	})
	require.NoError(t, err)

	vote, err := fn.Label(&labeling.Document{Text: "Acme Corp filed.", Entities: []labeling.Entity{{Text: "Acme Corp", Tag: "ORG"}}})
	require.NoError(t, err)
	assert.Equal(t, 1, vote)

	vote, err = fn.Label(&labeling.Document{Text: "Jane called.", Entities: []labeling.Entity{{Text: "Jane", Tag: "PERSON"}}})
	require.NoError(t, err)
	assert.Equal(t, labeling.Abstain, vote)

	vote, err = fn.Label(&labeling.Document{Text: "no entities here"})
	require.NoError(t, err)
	assert.Equal(t, labeling.Abstain, vote)
}

func TestEntityPresenceAbsenceAreComplementary(t *testing.T) {
	builder := newTestBuilder()

	presence, err := builder.Build(labeling.Config{
		Name: "present", Kind: labeling.KindEntityPresence, NERTag: "ORG", ReturnLabel: intPtr(1),
	})
	require.NoError(t, err)
	absence, err := builder.Build(labeling.Config{
		Name: "absent", Kind: labeling.KindEntityAbsence, NERTag: "ORG", ReturnLabel: intPtr(1),
	})
	require.NoError(t, err)

	docs := []*labeling.Document{
		{Text: "a", Entities: []labeling.Entity{{Text: "Acme", Tag: "ORG"}}},
		{Text: "b", Entities: []labeling.Entity{{Text: "Jane", Tag: "PERSON"}}},
		{Text: "c", Entities: []labeling.Entity{{Text: "Jane", Tag: "PERSON"}, {Text: "Acme", Tag: "ORG"}}},
		{Text: "d"},
	}

	for _, doc := range docs {
		p, err := presence.Label(doc)
		require.NoError(t, err)
		a, err := absence.Label(doc)
		require.NoError(t, err)

		if p == 1 {
			assert.Equal(t, labeling.Abstain, a)
		} else {
			assert.Equal(t, labeling.Abstain, p)
			assert.Equal(t, 1, a)
		}
	}
}

func TestSentimentThresholdsAreExclusive(t *testing.T) {
	cfg := labeling.Config{
		Name: "lf_pos", Kind: labeling.KindSentiment, ReturnLabel: intPtr(3),
		PolarityLower: floatPtr(0.3), PolarityUpper: floatPtr(1.0),
		SubjectivityLower: floatPtr(0.4), SubjectivityUpper: floatPtr(1.0),
	}

	tests := []struct {
		polarity     float64
		subjectivity float64
		want         int
	}{
		{0.5, 0.6, 3},
		{0.3, 0.6, labeling.Abstain},  // exactly on polarity lower bound
		{1.0, 0.6, labeling.Abstain},  // exactly on polarity upper bound
		{0.5, 0.4, labeling.Abstain},  // exactly on subjectivity lower bound
		{0.5, 1.0, labeling.Abstain},  // exactly on subjectivity upper bound
		{0.2, 0.6, labeling.Abstain},
		{0.5, 0.2, labeling.Abstain},
	}

	for _, test := range tests {
		builder := labeling.NewBuilder(stubSentiment{score: labeling.SentimentScore{Polarity: test.polarity, Subjectivity: test.subjectivity}}, nil)
		fn, err := builder.Build(cfg)
		require.NoError(t, err)

		vote, err := fn.Label(&labeling.Document{Text: "some text"})
		require.NoError(t, err)
		assert.Equal(t, test.want, vote, "polarity=%v subjectivity=%v", test.polarity, test.subjectivity)
	}
}

func TestSentimentInvertedBoundsAlwaysAbstain(t *testing.T) {
	builder := labeling.NewBuilder(stubSentiment{score: labeling.SentimentScore{Polarity: 0.5, Subjectivity: 0.5}}, nil)
	fn, err := builder.Build(labeling.Config{
		Name: "lf_inverted", Kind: labeling.KindSentiment, ReturnLabel: intPtr(1),
		PolarityLower: floatPtr(0.8), PolarityUpper: floatPtr(0.2),
		SubjectivityLower: floatPtr(0), SubjectivityUpper: floatPtr(1),
	})
	require.NoError(t, err)

	vote, err := fn.Label(&labeling.Document{Text: "whatever"})
	require.NoError(t, err)
	assert.Equal(t, labeling.Abstain, vote)
}

func TestSentimentScorerErrorPropagates(t *testing.T) {
	scorerErr := errors.New("scorer unavailable")
	builder := labeling.NewBuilder(stubSentiment{err: scorerErr}, nil)
	fn, err := builder.Build(labeling.Config{
		Name: "lf_err", Kind: labeling.KindSentiment, ReturnLabel: intPtr(1),
		PolarityLower: floatPtr(-1), PolarityUpper: floatPtr(1),
		SubjectivityLower: floatPtr(0), SubjectivityUpper: floatPtr(1),
	})
	require.NoError(t, err)

	_, err = fn.Label(&labeling.Document{Text: "text"})
	assert.ErrorIs(t, err, scorerErr)
}

func TestKeywordPresence(t *testing.T) {
	fn, err := newTestBuilder().Build(labeling.Config{
		Name: "lf_fraud", Kind: labeling.KindKeywordPresence, Keywords: []string{"fraud"}, ReturnLabel: intPtr(2),
	})
	require.NoError(t, err)

	vote, err := fn.Label(&labeling.Document{Text: "we detected fraud here"})
	require.NoError(t, err)
	assert.Equal(t, 2, vote)

	// "fraudulent" contains "fraud" but not as a bounded token.
	vote, err = fn.Label(&labeling.Document{Text: "fraudulent activity"})
	require.NoError(t, err)
	assert.Equal(t, labeling.Abstain, vote)

	// Matching is case-insensitive on the text side only.
	vote, err = fn.Label(&labeling.Document{Text: "we detected FRAUD here"})
	require.NoError(t, err)
	assert.Equal(t, 2, vote)
}

func TestKeywordBoundaryStrictness(t *testing.T) {
	// A keyword needs a non-alphanumeric character on both sides, so a keyword
	// touching the start or end of the text never matches.
	fn, err := newTestBuilder().Build(labeling.Config{
		Name: "lf_apple", Kind: labeling.KindKeywordPresence, Keywords: []string{"apple"}, ReturnLabel: intPtr(1),
	})
	require.NoError(t, err)

	vote, err := fn.Label(&labeling.Document{Text: "apple pie"})
	require.NoError(t, err)
	assert.Equal(t, labeling.Abstain, vote)

	vote, err = fn.Label(&labeling.Document{Text: "pie with apple"})
	require.NoError(t, err)
	assert.Equal(t, labeling.Abstain, vote)

	vote, err = fn.Label(&labeling.Document{Text: " apple pie "})
	require.NoError(t, err)
	assert.Equal(t, 1, vote)
}

func TestKeywordPresenceAbsenceAreComplementary(t *testing.T) {
	builder := newTestBuilder()
	keywords := []string{"fraud", "scam"}

	presence, err := builder.Build(labeling.Config{
		Name: "present", Kind: labeling.KindKeywordPresence, Keywords: keywords, ReturnLabel: intPtr(2),
	})
	require.NoError(t, err)
	absence, err := builder.Build(labeling.Config{
		Name: "absent", Kind: labeling.KindKeywordAbsence, Keywords: keywords, ReturnLabel: intPtr(0),
	})
	require.NoError(t, err)

	texts := []string{
		"we detected fraud here",
		"that is a scam, obviously",
		"nothing suspicious at all",
		"fraudulent activity",
		"",
	}

	for _, text := range texts {
		doc := &labeling.Document{Text: text}
		p, err := presence.Label(doc)
		require.NoError(t, err)
		a, err := absence.Label(doc)
		require.NoError(t, err)

		if p == 2 {
			assert.Equal(t, labeling.Abstain, a, "text: %q", text)
		} else {
			assert.Equal(t, labeling.Abstain, p, "text: %q", text)
			assert.Equal(t, 0, a, "text: %q", text)
		}
	}
}

func TestEntityFuzzyMatch(t *testing.T) {
	fn, err := newTestBuilder().Build(labeling.Config{
		Name: "lf_gazetteer", Kind: labeling.KindEntityFuzzy, NERTag: "ORG",
		Keywords: []string{"acme corp", "globex"}, FuzzyMatchThreshold: intPtr(90), ReturnLabel: intPtr(1),
	})
	require.NoError(t, err)

	// Identical entity text (modulo case) scores 100 and clears any threshold <= 100.
	vote, err := fn.Label(&labeling.Document{Text: "x", Entities: []labeling.Entity{{Text: "Acme Corp", Tag: "ORG"}}})
	require.NoError(t, err)
	assert.Equal(t, 1, vote)

	// Entities of other tags are ignored even when their text matches.
	vote, err = fn.Label(&labeling.Document{Text: "x", Entities: []labeling.Entity{{Text: "Acme Corp", Tag: "PERSON"}}})
	require.NoError(t, err)
	assert.Equal(t, labeling.Abstain, vote)

	// Partial similarity below the threshold abstains.
	vote, err = fn.Label(&labeling.Document{Text: "x", Entities: []labeling.Entity{{Text: "Initech", Tag: "ORG"}}})
	require.NoError(t, err)
	assert.Equal(t, labeling.Abstain, vote)
}

func TestEntityFuzzyUnreachableThresholdAlwaysAbstains(t *testing.T) {
	fn, err := newTestBuilder().Build(labeling.Config{
		Name: "lf_unreachable", Kind: labeling.KindEntityFuzzy, NERTag: "ORG",
		Keywords: []string{"acme corp"}, FuzzyMatchThreshold: intPtr(101), ReturnLabel: intPtr(1),
	})
	require.NoError(t, err)

	vote, err := fn.Label(&labeling.Document{Text: "x", Entities: []labeling.Entity{{Text: "acme corp", Tag: "ORG"}}})
	require.NoError(t, err)
	assert.Equal(t, labeling.Abstain, vote)
}
