package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	JobQueued    string = "QUEUED"
	JobRunning   string = "RUNNING"
	JobCompleted string = "COMPLETED"
	JobFailed    string = "FAILED"
)

// Labeler is a named, ordered set of labeling function definitions. The
// function configs are validated before the row is created, so every stored
// labeler is buildable.
type Labeler struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Name         string `gorm:"not null"`
	CreationTime time.Time

	Functions []LabelerFunction `gorm:"foreignKey:LabelerId;constraint:OnDelete:CASCADE"`
}

// LabelerFunction holds one function config. Position is the registration
// order, which is also the column order of the run's label matrix.
type LabelerFunction struct {
	LabelerId uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"primaryKey"`

	Position int            `gorm:"not null"`
	Config   datatypes.JSON `gorm:"not null"`
}

// Run is one evaluation of a labeler over a document collection.
type Run struct {
	Id      uuid.UUID `gorm:"type:uuid;primaryKey"`
	RunName string    `gorm:"not null"`

	LabelerId uuid.UUID `gorm:"type:uuid"`
	Labeler   *Labeler  `gorm:"foreignKey:LabelerId"`

	Deleted bool `gorm:"default:false"`
	Stopped bool `gorm:"default:false"`

	StorageType   string
	StorageParams datatypes.JSON

	CreationTime       time.Time
	SucceededFileCount int `gorm:"default:0"`
	FailedFileCount    int `gorm:"default:0"`
	TotalFileCount     int `gorm:"default:0"`

	FunctionCounts []FunctionCount `gorm:"foreignKey:RunId;constraint:OnDelete:CASCADE"`

	Slices []Slice `gorm:"foreignKey:RunId;constraint:OnDelete:CASCADE"`

	ShardDataTask   *ShardDataTask   `gorm:"foreignKey:RunId;constraint:OnDelete:CASCADE"`
	EvaluationTasks []EvaluationTask `gorm:"foreignKey:RunId;constraint:OnDelete:CASCADE"`

	Errors []RunError `gorm:"foreignKey:RunId;constraint:OnDelete:CASCADE"`
}

// FunctionCount tallies non-abstain votes per labeling function, i.e. the
// function's coverage over the run.
type FunctionCount struct {
	RunId    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Function string    `gorm:"primaryKey"`
	Count    uint64    `gorm:"default:0"`
}

type ShardDataTask struct {
	RunId uuid.UUID `gorm:"type:uuid;primaryKey"`
	Run   *Run      `gorm:"foreignKey:RunId;constraint:OnDelete:CASCADE"`

	Status         string `gorm:"size:20;not null"`
	CreationTime   time.Time
	CompletionTime sql.NullTime

	ChunkTargetBytes int64
}

type EvaluationTask struct {
	RunId  uuid.UUID `gorm:"type:uuid;primaryKey"`
	TaskId int       `gorm:"primaryKey"`
	Run    *Run      `gorm:"foreignKey:RunId;constraint:OnDelete:CASCADE"`

	Status         string `gorm:"size:20;not null"`
	CreationTime   time.Time
	StartTime      sql.NullTime
	CompletionTime sql.NullTime

	StorageParams datatypes.JSON
	TotalSize     int64
	CompletedSize int64 `gorm:"not null;default:0"`
}

// ObjectVote is one cell of the label matrix: the vote of one labeling
// function on one object. Abstains are stored too so matrix rows are complete
// without joining against the function list.
type ObjectVote struct {
	RunId    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Object   string    `gorm:"primaryKey"`
	Function string    `gorm:"primaryKey"`
	Label    int       `gorm:"not null"`
}

// Slice is a saved vote query over a run, e.g. `lf_org = 1 AND lf_risk != 2`.
type Slice struct {
	Id    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name  string
	RunId uuid.UUID `gorm:"type:uuid"`
	Query string

	Objects []ObjectSlice `gorm:"foreignKey:SliceId;constraint:OnDelete:CASCADE"`
}

type ObjectSlice struct {
	RunId   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Object  string    `gorm:"primaryKey"`
	SliceId uuid.UUID `gorm:"type:uuid;primaryKey"`
}

type RunError struct {
	RunId     uuid.UUID `gorm:"type:uuid;primaryKey"`
	ErrorId   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Error     string
	Timestamp time.Time
}

// Upload tracks a batch of user-uploaded documents; its id is the object
// store prefix the files live under.
type Upload struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreationTime time.Time
}
