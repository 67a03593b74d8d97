package api

import (
	"time"

	"github.com/google/uuid"
)

// Abstain is the vote a labeling function casts when it has no opinion on a
// document.
const Abstain = -1

const (
	KindEntityPresence  = "entity_presence"
	KindEntityAbsence   = "entity_absence"
	KindSentiment       = "sentiment"
	KindKeywordPresence = "keyword_presence"
	KindKeywordAbsence  = "keyword_absence"
	KindEntityFuzzy     = "entity_fuzzy"
)

// LabelingFunction is the wire form of one labeling function config. Name and
// ReturnLabel are required for every kind; the remaining fields depend on Kind.
type LabelingFunction struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	ReturnLabel *int   `json:"return_label"`

	NERTag string `json:"ner_tag,omitempty"`

	PolarityLower     *float64 `json:"polarity_lower,omitempty"`
	PolarityUpper     *float64 `json:"polarity_upper,omitempty"`
	SubjectivityLower *float64 `json:"subjectivity_lower,omitempty"`
	SubjectivityUpper *float64 `json:"subjectivity_upper,omitempty"`

	Keywords []string `json:"keywords,omitempty"`

	FuzzyMatchThreshold *int `json:"fuzzy_match_threshold,omitempty"`
}

type Labeler struct {
	Id   uuid.UUID
	Name string

	CreationTime time.Time

	Functions []LabelingFunction
}

type CreateLabelerRequest struct {
	Name      string
	Functions []LabelingFunction
}

type CreateLabelerResponse struct {
	LabelerId uuid.UUID
}

type Slice struct {
	Id    uuid.UUID
	Name  string
	Query string

	Objects []string `json:"Objects,omitempty"`
}

type TaskStatusCategory struct {
	TotalTasks int
	TotalSize  int
}

type Run struct {
	Id      uuid.UUID
	RunName string

	Labeler Labeler

	StorageType string

	CreationTime time.Time

	Stopped bool

	SucceededFileCount int
	FailedFileCount    int
	TotalFileCount     int

	// FunctionCounts maps a labeling function name to the number of objects it
	// voted on, i.e. its coverage.
	FunctionCounts map[string]uint64 `json:"FunctionCounts,omitempty"`

	Slices []Slice

	ShardDataTaskStatus    string                        `json:"ShardDataTaskStatus,omitempty"`
	EvaluationTaskStatuses map[string]TaskStatusCategory `json:"EvaluationTaskStatuses,omitempty"`

	Errors []string `json:"Errors,omitempty"`
}

type CreateRunRequest struct {
	LabelerId uuid.UUID
	RunName   string

	// Exactly one source must be set: an upload id, an s3 location, or a local
	// directory on the worker host.
	UploadId       uuid.UUID
	S3Endpoint     string
	S3Region       string
	SourceS3Bucket string
	SourceS3Prefix string
	SourceLocalDir string

	Slices map[string]string

	ChunkTargetBytes int64
}

type CreateRunResponse struct {
	RunId uuid.UUID
}

// Vote is one cell of a run's label matrix.
type Vote struct {
	Object   string
	Function string
	Label    int
}

// LabelMatrix is the label matrix of a run: one row per object, one column
// per labeling function, in function registration order.
type LabelMatrix struct {
	Functions []string
	Objects   []string
	Rows      [][]int
}

type SearchResponse struct {
	Objects []string
}

type UploadResponse struct {
	Id uuid.UUID
}

// SuggestFunctionsRequest asks an LLM to propose labeling functions. Labels
// maps each class label to a short description of the class.
type SuggestFunctionsRequest struct {
	Labels  map[int]string
	Samples []string
}

type SuggestFunctionsResponse struct {
	Functions []LabelingFunction
}
