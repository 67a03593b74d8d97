package core

import (
	"labeling-backend/internal/labeling"
)

// Votes maps a labeling function name to its vote on one object. Functions
// missing from the map are treated as abstaining.
type Votes map[string]int

// Get returns the function's vote, or Abstain if the function is absent.
func (v Votes) Get(function string) int {
	if vote, ok := v[function]; ok {
		return vote
	}
	return labeling.Abstain
}

type Filter interface {
	Matches(votes Votes) bool
}

type AndFilter struct {
	filters []Filter
}

func (f *AndFilter) Matches(votes Votes) bool {
	for _, filter := range f.filters {
		if !filter.Matches(votes) {
			return false
		}
	}
	return true
}

type OrFilter struct {
	filters []Filter
}

func (f *OrFilter) Matches(votes Votes) bool {
	for _, filter := range f.filters {
		if filter.Matches(votes) {
			return true
		}
	}
	return false
}

type NotFilter struct {
	filter Filter
}

func (f *NotFilter) Matches(votes Votes) bool {
	return !f.filter.Matches(votes)
}

type VoteEqFilter struct {
	function string
	label    int
}

func (f *VoteEqFilter) Matches(votes Votes) bool {
	return votes.Get(f.function) == f.label
}

type VoteNeqFilter struct {
	function string
	label    int
}

func (f *VoteNeqFilter) Matches(votes Votes) bool {
	return votes.Get(f.function) != f.label
}

type VoteLtFilter struct {
	function string
	label    int
}

func (f *VoteLtFilter) Matches(votes Votes) bool {
	return votes.Get(f.function) < f.label
}

type VoteGtFilter struct {
	function string
	label    int
}

func (f *VoteGtFilter) Matches(votes Votes) bool {
	return votes.Get(f.function) > f.label
}
