package suggest

import (
	"encoding/json"
	"fmt"
	"strings"

	"labeling-backend/internal/labeling"
)

// Suggester asks an LLM to propose labeling function configs for a
// classification task, given class descriptions and sample documents. Every
// returned config is validated; the suggestions are a starting point for a
// labeler, not a finished one.
type Suggester struct {
	llm LLM
}

func NewSuggester(llm LLM) *Suggester {
	return &Suggester{llm: llm}
}

func (s *Suggester) SuggestFunctions(labels map[int]string, samples []string) ([]labeling.Config, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("at least one class label is required")
	}

	var prompt strings.Builder
	if err := suggestPromptTmpl.Execute(&prompt, suggestPromptFields{Labels: labels, Samples: samples}); err != nil {
		return nil, fmt.Errorf("error rendering suggestion prompt: %w", err)
	}

	response, err := s.llm.Generate(suggestSystemPrompt, prompt.String())
	if err != nil {
		return nil, fmt.Errorf("error generating suggestions: %w", err)
	}

	cfgs, err := parseSuggestions(response)
	if err != nil {
		return nil, err
	}

	for _, cfg := range cfgs {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("llm suggested an invalid labeling function: %w", err)
		}
		if _, ok := labels[*cfg.ReturnLabel]; !ok {
			return nil, fmt.Errorf("llm suggested labeling function '%s' with unknown label %d", cfg.Name, *cfg.ReturnLabel)
		}
	}

	return cfgs, nil
}

// parseSuggestions tolerates markdown fences around the JSON array since
// models add them despite instructions.
func parseSuggestions(response string) ([]labeling.Config, error) {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var cfgs []labeling.Config
	if err := json.Unmarshal([]byte(cleaned), &cfgs); err != nil {
		return nil, fmt.Errorf("error parsing llm suggestions: %w", err)
	}
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("llm returned no labeling function suggestions")
	}
	return cfgs, nil
}
