package suggest

import (
	"text/template"
)

const suggestSystemPrompt = `You are an expert at weak supervision. You design labeling functions: small heuristics that vote on the class of a text document or abstain when unsure.`

type suggestPromptFields struct {
	Labels  map[int]string
	Samples []string
}

const suggestPrompt = `The goal is to build labeling functions for a text classification task.

Classes with their label and description:
{{ range $label, $desc := .Labels }}
Label: {{ $label }}
Description: {{ $desc }}
{{ end }}

Here are some sample documents:
{{ range .Samples }}
---
{{ . }}
{{ end }}
---

Propose labeling functions as a JSON array. Each element must follow this schema:
{"name": string, "kind": string, "return_label": int, ...}

Supported kinds and their extra fields:
- "entity_presence", "entity_absence": "ner_tag" (one of PERSON, ORG, GPE)
- "sentiment": "polarity_lower", "polarity_upper", "subjectivity_lower", "subjectivity_upper" (floats, exclusive bounds)
- "keyword_presence", "keyword_absence": "keywords" (lowercase strings)
- "entity_fuzzy": "ner_tag", "keywords" (the gazetteer), "fuzzy_match_threshold" (int in [0, 100])

Key Requirements:
- Function names must be unique, lowercase, and use only letters, digits, and underscores.
- "return_label" must be one of the labels listed above, never -1.
- Keywords must be single lowercase words or short lowercase phrases that appear verbatim in documents of that class.

Output format:
- Respond with ONLY the JSON array, no prose, no markdown fences.`

var suggestPromptTmpl = template.Must(template.New("suggestPrompt").Parse(suggestPrompt))
