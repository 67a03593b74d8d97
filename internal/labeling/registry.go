package labeling

import (
	"fmt"
)

// Registry holds labeling functions keyed by name, preserving registration
// order. Column order in the label matrix is registration order.
type Registry struct {
	order []string
	funcs map[string]LabelingFunction
}

func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]LabelingFunction)}
}

// NewRegistryFromConfigs builds every config with the given builder and
// registers the results in config order.
func NewRegistryFromConfigs(builder *Builder, cfgs []Config) (*Registry, error) {
	reg := NewRegistry()
	for _, cfg := range cfgs {
		fn, err := builder.Build(cfg)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(fn); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Register adds a function under its own name. Duplicate names are an error;
// silently replacing a function would corrupt matrix columns downstream.
func (r *Registry) Register(fn LabelingFunction) error {
	name := fn.Name()
	if _, ok := r.funcs[name]; ok {
		return fmt.Errorf("labeling function '%s' is already registered", name)
	}
	r.order = append(r.order, name)
	r.funcs[name] = fn
	return nil
}

func (r *Registry) Get(name string) (LabelingFunction, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

func (r *Registry) Len() int { return len(r.order) }

// Names returns function names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Apply evaluates every registered function against the document and returns
// one vote per function, in registration order. The first collaborator error
// aborts the row; a failed document never affects other documents since the
// functions hold no state.
func (r *Registry) Apply(doc *Document) ([]int, error) {
	votes := make([]int, 0, len(r.order))
	for _, name := range r.order {
		vote, err := r.funcs[name].Label(doc)
		if err != nil {
			return nil, fmt.Errorf("labeling function '%s': %w", name, err)
		}
		votes = append(votes, vote)
	}
	return votes, nil
}

// LabelMatrix is the output consumed by the downstream label model: one row
// per document, one column per labeling function, cells are class labels or
// Abstain.
type LabelMatrix struct {
	Functions []string
	Rows      [][]int
}

// BuildMatrix applies the full registry to each document in order.
func BuildMatrix(reg *Registry, docs []*Document) (*LabelMatrix, error) {
	matrix := &LabelMatrix{Functions: reg.Names(), Rows: make([][]int, 0, len(docs))}
	for i, doc := range docs {
		votes, err := reg.Apply(doc)
		if err != nil {
			return nil, fmt.Errorf("error labeling document %d: %w", i, err)
		}
		matrix.Rows = append(matrix.Rows, votes)
	}
	return matrix, nil
}
