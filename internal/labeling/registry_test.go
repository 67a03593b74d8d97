package labeling_test

import (
	"testing"

	"labeling-backend/internal/labeling"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	builder := newTestBuilder()
	reg := labeling.NewRegistry()

	fn, err := builder.Build(labeling.Config{Name: "lf_org", Kind: labeling.KindEntityPresence, NERTag: "ORG", ReturnLabel: intPtr(1)})
	require.NoError(t, err)
	require.NoError(t, reg.Register(fn))

	dup, err := builder.Build(labeling.Config{Name: "lf_org", Kind: labeling.KindEntityAbsence, NERTag: "GPE", ReturnLabel: intPtr(2)})
	require.NoError(t, err)
	assert.Error(t, reg.Register(dup))

	assert.Equal(t, 1, reg.Len())
}

func TestRegistryPreservesRegistrationOrder(t *testing.T) {
	cfgs := []labeling.Config{
		{Name: "lf_c", Kind: labeling.KindEntityPresence, NERTag: "ORG", ReturnLabel: intPtr(1)},
		{Name: "lf_a", Kind: labeling.KindKeywordPresence, Keywords: []string{"fraud"}, ReturnLabel: intPtr(2)},
		{Name: "lf_b", Kind: labeling.KindEntityAbsence, NERTag: "PERSON", ReturnLabel: intPtr(0)},
	}

	reg, err := labeling.NewRegistryFromConfigs(newTestBuilder(), cfgs)
	require.NoError(t, err)

	assert.Equal(t, []string{"lf_c", "lf_a", "lf_b"}, reg.Names())

	fn, ok := reg.Get("lf_a")
	require.True(t, ok)
	assert.Equal(t, "lf_a", fn.Name())

	_, ok = reg.Get("lf_missing")
	assert.False(t, ok)
}

func TestRegistryApply(t *testing.T) {
	cfgs := []labeling.Config{
		{Name: "lf_org", Kind: labeling.KindEntityPresence, NERTag: "ORG", ReturnLabel: intPtr(1)},
		{Name: "lf_fraud", Kind: labeling.KindKeywordPresence, Keywords: []string{"fraud"}, ReturnLabel: intPtr(2)},
	}

	reg, err := labeling.NewRegistryFromConfigs(newTestBuilder(), cfgs)
	require.NoError(t, err)

	votes, err := reg.Apply(&labeling.Document{
		Text:     "they found fraud at the company",
		Entities: []labeling.Entity{{Text: "Acme", Tag: "ORG"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, votes)

	votes, err = reg.Apply(&labeling.Document{Text: "nothing to see"})
	require.NoError(t, err)
	assert.Equal(t, []int{labeling.Abstain, labeling.Abstain}, votes)
}

func TestBuildMatrix(t *testing.T) {
	cfgs := []labeling.Config{
		{Name: "lf_org", Kind: labeling.KindEntityPresence, NERTag: "ORG", ReturnLabel: intPtr(1)},
		{Name: "lf_no_person", Kind: labeling.KindEntityAbsence, NERTag: "PERSON", ReturnLabel: intPtr(0)},
		{Name: "lf_fraud", Kind: labeling.KindKeywordPresence, Keywords: []string{"fraud"}, ReturnLabel: intPtr(2)},
	}

	reg, err := labeling.NewRegistryFromConfigs(newTestBuilder(), cfgs)
	require.NoError(t, err)

	docs := []*labeling.Document{
		{Text: "we detected fraud here", Entities: []labeling.Entity{{Text: "Acme", Tag: "ORG"}}},
		{Text: "Jane wrote a report", Entities: []labeling.Entity{{Text: "Jane", Tag: "PERSON"}}},
		{Text: ""},
	}

	matrix, err := labeling.BuildMatrix(reg, docs)
	require.NoError(t, err)

	assert.Equal(t, []string{"lf_org", "lf_no_person", "lf_fraud"}, matrix.Functions)
	require.Len(t, matrix.Rows, 3)
	assert.Equal(t, []int{1, 0, 2}, matrix.Rows[0])
	assert.Equal(t, []int{labeling.Abstain, labeling.Abstain, labeling.Abstain}, matrix.Rows[1])
	assert.Equal(t, []int{labeling.Abstain, 0, labeling.Abstain}, matrix.Rows[2])
}

func TestBuiltinConfigsBuildIntoRegistry(t *testing.T) {
	cfgs, err := labeling.BuiltinConfigs()
	require.NoError(t, err)

	reg, err := labeling.NewRegistryFromConfigs(newTestBuilder(), cfgs)
	require.NoError(t, err)

	assert.Equal(t, len(cfgs), reg.Len())
	assert.Contains(t, reg.Names(), "lf_org_present")
	assert.Contains(t, reg.Names(), "lf_risk_keywords")
}
