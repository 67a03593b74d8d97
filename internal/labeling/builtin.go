package labeling

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v2"
)

//go:embed builtin.yaml
var builtinYAML []byte

type rawConfig struct {
	Name                string   `yaml:"name"`
	Kind                string   `yaml:"kind"`
	ReturnLabel         *int     `yaml:"return_label"`
	NERTag              string   `yaml:"ner_tag"`
	PolarityLower       *float64 `yaml:"polarity_lower"`
	PolarityUpper       *float64 `yaml:"polarity_upper"`
	SubjectivityLower   *float64 `yaml:"subjectivity_lower"`
	SubjectivityUpper   *float64 `yaml:"subjectivity_upper"`
	Keywords            []string `yaml:"keywords"`
	FuzzyMatchThreshold *int     `yaml:"fuzzy_match_threshold"`
}

func (r rawConfig) toConfig() Config {
	return Config{
		Name:                r.Name,
		Kind:                Kind(r.Kind),
		ReturnLabel:         r.ReturnLabel,
		NERTag:              r.NERTag,
		PolarityLower:       r.PolarityLower,
		PolarityUpper:       r.PolarityUpper,
		SubjectivityLower:   r.SubjectivityLower,
		SubjectivityUpper:   r.SubjectivityUpper,
		Keywords:            r.Keywords,
		FuzzyMatchThreshold: r.FuzzyMatchThreshold,
	}
}

// BuiltinConfigs returns the embedded default function set, validated.
func BuiltinConfigs() ([]Config, error) {
	raw := struct {
		Functions []rawConfig `yaml:"functions"`
	}{}

	if err := yaml.Unmarshal(builtinYAML, &raw); err != nil {
		return nil, fmt.Errorf("error parsing builtin labeling functions: %w", err)
	}

	cfgs := make([]Config, 0, len(raw.Functions))
	for _, r := range raw.Functions {
		cfg := r.toConfig()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid builtin labeling function: %w", err)
		}
		cfgs = append(cfgs, cfg)
	}
	return cfgs, nil
}
