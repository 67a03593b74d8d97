package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EvaluationQueue = "evaluation_queue"
	ShardDataQueue  = "shard_data_queue"
	RetryDelay      = 5 * time.Second
	MaxConnectRetry = 5
)

type Task interface {
	Type() string

	Payload() []byte

	Ack() error

	Nack() error

	Reject() error
}

type ShardDataPayload struct {
	RunId uuid.UUID
}

type EvaluationTaskPayload struct {
	RunId  uuid.UUID
	TaskId int
}

type Publisher interface {
	PublishShardDataTask(ctx context.Context, payload ShardDataPayload) error

	PublishEvaluationTask(ctx context.Context, payload EvaluationTaskPayload) error

	Close()
}

type Reciever interface {
	Tasks() <-chan Task

	Close()
}
