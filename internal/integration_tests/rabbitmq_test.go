package integrationtests

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"labeling-backend/internal/messaging"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRabbitMQ(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	publisher, reciever := setupRabbitMQContainer(t, ctx)

	t.Run("Publish and Receive ShardDataTask", func(t *testing.T) {
		payload := messaging.ShardDataPayload{RunId: uuid.New()}
		err := publisher.PublishShardDataTask(ctx, payload)
		require.NoError(t, err)

		select {
		case task := <-reciever.Tasks():
			assert.Equal(t, messaging.ShardDataQueue, task.Type())

			var receivedPayload messaging.ShardDataPayload
			err := json.Unmarshal(task.Payload(), &receivedPayload)
			require.NoError(t, err)
			assert.Equal(t, payload, receivedPayload)

			err = task.Ack()
			require.NoError(t, err)
		case <-time.After(4 * time.Second):
			t.Fatal("Timed out waiting for task")
		}
	})

	t.Run("Publish and Receive EvaluationTask", func(t *testing.T) {
		payload := messaging.EvaluationTaskPayload{RunId: uuid.New(), TaskId: 10}
		err := publisher.PublishEvaluationTask(ctx, payload)
		require.NoError(t, err)

		select {
		case task := <-reciever.Tasks():
			assert.Equal(t, messaging.EvaluationQueue, task.Type())

			var receivedPayload messaging.EvaluationTaskPayload
			err := json.Unmarshal(task.Payload(), &receivedPayload)
			require.NoError(t, err)
			assert.Equal(t, payload, receivedPayload)

			err = task.Ack()
			require.NoError(t, err)
		case <-time.After(4 * time.Second):
			t.Fatal("Timed out waiting for task")
		}
	})
}
