package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"labeling-backend/internal/database"
	"labeling-backend/internal/labeling"
	"labeling-backend/internal/messaging"
	"labeling-backend/internal/nlp"
	"labeling-backend/internal/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskProcessor struct {
	db        *gorm.DB
	storage   storage.ObjectStore
	publisher messaging.Publisher
	reciever  messaging.Reciever

	annotator nlp.Annotator
	builder   *labeling.Builder

	uploadBucket string
}

const bytesPerMB = 1024 * 1024

func NewTaskProcessor(db *gorm.DB, storage storage.ObjectStore, publisher messaging.Publisher, reciever messaging.Reciever, annotator nlp.Annotator, builder *labeling.Builder, uploadBucket string) *TaskProcessor {
	return &TaskProcessor{
		db:           db,
		storage:      storage,
		publisher:    publisher,
		reciever:     reciever,
		annotator:    annotator,
		builder:      builder,
		uploadBucket: uploadBucket,
	}
}

func (proc *TaskProcessor) Start() {
	slog.Info("starting task processor")

	for task := range proc.reciever.Tasks() {
		proc.ProcessTask(task)
	}
}

func (proc *TaskProcessor) Stop() {
	slog.Info("stopping task processor")

	proc.publisher.Close()
	proc.reciever.Close()
}

func (proc *TaskProcessor) ProcessTask(task messaging.Task) {
	ctx := context.Background()

	var err error
	switch task.Type() {

	case messaging.EvaluationQueue:
		var payload messaging.EvaluationTaskPayload
		if err = json.Unmarshal(task.Payload(), &payload); err != nil {
			slog.Error("error unmarshalling evaluation task", "error", err)
			if err := task.Reject(); err != nil { // Discard malformed message
				slog.Error("error rejecting message from queue", "error", err)
			}
			return
		}
		err = proc.processEvaluationTask(ctx, payload)

	case messaging.ShardDataQueue:
		var payload messaging.ShardDataPayload
		if err = json.Unmarshal(task.Payload(), &payload); err != nil {
			slog.Error("error unmarshalling shard data task", "error", err)
			if err := task.Reject(); err != nil { // Discard malformed message
				slog.Error("error rejecting message from queue", "error", err)
			}
			return
		}
		err = proc.processShardDataTask(ctx, payload)

	default:
		slog.Error("received unknown task type", "queue", task.Type())
		if err := task.Reject(); err != nil { // reject unknown message type
			slog.Error("error rejecting message from queue", "error", err)
		}
		return
	}

	if err != nil {
		slog.Error("error processing task", "queue", task.Type(), "error", err)
		if err := task.Nack(); err != nil {
			slog.Error("error reporting processing failure on message from queue", "error", err)
		}
	} else {
		slog.Info("successfully processed task", "queue", task.Type())
		if err := task.Ack(); err != nil {
			slog.Error("error acknowledging message from queue", "error", err)
		}
	}
}

func (proc *TaskProcessor) updateFileCount(runId uuid.UUID, success bool) error {
	var column string
	if success {
		column = "succeeded_file_count"
	} else {
		column = "failed_file_count"
	}

	if err := proc.db.
		Model(&database.Run{}).
		Where("id = ?", runId).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1)).
		Error; err != nil {
		slog.Error("could not increment file count", "run_id", runId, "column", column, "error", err)
		return fmt.Errorf("could not increment file count: %w", err)
	}

	return nil
}

func (proc *TaskProcessor) getConnector(ctx context.Context, run database.Run) (storage.Connector, error) {
	// Custom connector initialization logic for uploads. It is a special case because it has to be consistent with
	// the storage used by the backend service.
	if run.StorageType == string(storage.UploadType) {
		var uploadParams storage.UploadParams
		if err := json.Unmarshal(run.StorageParams, &uploadParams); err != nil {
			return nil, fmt.Errorf("error unmarshalling storage params: %w", err)
		}
		slog.Info("Get upload connector", "upload bucket", proc.uploadBucket)
		return proc.storage.GetUploadConnector(ctx, proc.uploadBucket, uploadParams)
	}
	connectorType, err := storage.ToStorageType(run.StorageType)
	if err != nil {
		return nil, fmt.Errorf("invalid storage type: %v", err)
	}
	return storage.NewConnector(ctx, connectorType, run.StorageParams)
}

func (proc *TaskProcessor) processEvaluationTask(ctx context.Context, payload messaging.EvaluationTaskPayload) error {
	runId := payload.RunId
	taskId := payload.TaskId

	slog.Info("processing evaluation task", "run_id", runId, "task_id", taskId)

	var task database.EvaluationTask
	if err := proc.db.Preload("Run").Preload("Run.Slices").First(&task, "run_id = ? AND task_id = ?", runId, taskId).Error; err != nil {
		slog.Error("error fetching evaluation task", "run_id", runId, "task_id", taskId, "error", err)
		return fmt.Errorf("error getting evaluation task: %w", err)
	}

	if task.Run.Stopped || task.Run.Deleted {
		slog.Info("run stopped, skipping evaluation task", "run_id", runId, "task_id", taskId)
		return nil
	}

	if err := database.UpdateEvaluationTaskStatus(ctx, proc.db, runId, taskId, database.JobRunning); err != nil {
		slog.Error("error marking task as running", "error", err)
	}

	cfgs, err := database.GetLabelerConfigs(ctx, proc.db, task.Run.LabelerId)
	if err != nil {
		database.UpdateEvaluationTaskStatus(ctx, proc.db, runId, taskId, database.JobFailed) //nolint:errcheck
		database.SaveRunError(ctx, proc.db, runId, err.Error())
		return fmt.Errorf("error loading labeling function configs: %w", err)
	}

	registry, err := labeling.NewRegistryFromConfigs(proc.builder, cfgs)
	if err != nil {
		database.UpdateEvaluationTaskStatus(ctx, proc.db, runId, taskId, database.JobFailed) //nolint:errcheck
		database.SaveRunError(ctx, proc.db, runId, err.Error())
		return fmt.Errorf("error building labeling functions: %w", err)
	}

	sliceToQuery := map[uuid.UUID]string{}
	for _, slice := range task.Run.Slices {
		sliceToQuery[slice.Id] = slice.Query
	}

	connector, err := proc.getConnector(ctx, *task.Run)
	if err != nil {
		return fmt.Errorf("error initializing connector for evaluation task: %w", err)
	}

	workerErr := proc.runEvaluationOnBucket(ctx, taskId, runId, connector, task.StorageParams, registry, sliceToQuery)

	if workerErr != nil {
		slog.Error("error running evaluation task", "run_id", runId, "task_id", taskId, "error", workerErr)
		database.UpdateEvaluationTaskStatus(ctx, proc.db, runId, taskId, database.JobFailed) //nolint:errcheck
		database.SaveRunError(ctx, proc.db, runId, workerErr.Error())
		return fmt.Errorf("error running evaluation task: %w", workerErr)
	}

	if err := database.UpdateEvaluationTaskStatus(ctx, proc.db, runId, taskId, database.JobCompleted); err != nil {
		return fmt.Errorf("error updating evaluation task status to complete: %w", err)
	}

	slog.Info("evaluation task completed successfully", "run_id", runId, "task_id", taskId)

	return nil
}

func (proc *TaskProcessor) updateFunctionCounts(runId uuid.UUID, counts map[string]uint64) error {
	for function, count := range counts {
		if err := proc.db.Model(&database.FunctionCount{}).Where("run_id = ? AND function = ?", runId, function).Update("count", gorm.Expr("count + ?", count)).Error; err != nil {
			slog.Error("error updating function count", "run_id", runId, "function", function, "error", err)
			return fmt.Errorf("error updating function count: %w", err)
		}
	}

	return nil
}

func (proc *TaskProcessor) runEvaluationOnBucket(
	ctx context.Context,
	taskId int,
	runId uuid.UUID,
	connector storage.Connector,
	taskParams []byte,
	registry *labeling.Registry,
	sliceToQuery map[uuid.UUID]string,
) error {
	sliceToFilter := make(map[uuid.UUID]Filter)
	for sliceId, query := range sliceToQuery {
		filter, err := ParseQuery(query)
		if err != nil {
			return fmt.Errorf("error parsing slice query: %w", err)
		}
		sliceToFilter[sliceId] = filter
	}

	queue, err := connector.IterTaskChunks(ctx, taskParams)
	if err != nil {
		slog.Error("error iterating over task chunks", "error", err)
		return err
	}

	objectErrorCnt := 0
	totalObjectCnt := 0

	for object := range queue {
		if object.Error != nil {
			slog.Error("error getting object stream", "object", object.Name, "error", object.Error, "task_params", string(taskParams))
			objectErrorCnt++
			if err := proc.updateFileCount(runId, false); err != nil {
				return err
			}
			continue
		}

		result, err := proc.runEvaluationOnObject(runId, object.Chunks, registry, sliceToFilter, object.Name)
		if err != nil {
			slog.Error("error processing object", "object", object.Name, "error", err)
			objectErrorCnt++
			if err := proc.updateFileCount(runId, false); err != nil {
				return err
			}
			continue
		}

		if err := proc.db.CreateInBatches(&result.Votes, 100).Error; err != nil {
			slog.Error("error saving votes to database", "object", object.Name, "error", err)
			objectErrorCnt++
			if err := proc.updateFileCount(runId, false); err != nil {
				return err
			}
			continue
		}

		if err := proc.db.CreateInBatches(result.Slices, 100).Error; err != nil {
			slog.Error("error saving slice memberships to database", "object", object.Name, "error", err)
			objectErrorCnt++
			if err := proc.updateFileCount(runId, false); err != nil {
				return err
			}
			continue
		}

		if err := proc.updateFunctionCounts(runId, result.FunctionCount); err != nil {
			slog.Error("error updating function counts", "object", object.Name, "error", err)
			objectErrorCnt++
			if err := proc.updateFileCount(runId, false); err != nil {
				return err
			}
			continue
		}

		if err := proc.updateFileCount(runId, true); err != nil {
			return err
		}

		if err := proc.db.Model(&database.EvaluationTask{}).
			Where("run_id = ? AND task_id = ?", runId, taskId).
			Update("completed_size", gorm.Expr("completed_size + ?", result.TotalSize)).Error; err != nil {
			slog.Error("could not update completed size in EvaluationTask", "error", err)
			return err
		}

		totalObjectCnt++
	}

	if objectErrorCnt > 0 {
		return fmt.Errorf("errors while processing %d/%d objects", objectErrorCnt, totalObjectCnt)
	}

	return nil
}

type EvaluationResult struct {
	TotalSize     int64
	Votes         []database.ObjectVote
	Slices        []database.ObjectSlice
	FunctionCount map[string]uint64
}

func (proc *TaskProcessor) runEvaluationOnObject(
	runId uuid.UUID,
	chunks <-chan storage.Chunk,
	registry *labeling.Registry,
	sliceFilter map[uuid.UUID]Filter,
	object string,
) (EvaluationResult, error) {
	result := EvaluationResult{
		FunctionCount: make(map[string]uint64),
	}

	var text strings.Builder
	for chunk := range chunks {
		if chunk.Error != nil {
			return result, fmt.Errorf("error parsing document: %w", chunk.Error)
		}

		result.TotalSize += chunk.RawSize
		text.WriteString(chunk.Text)
	}

	start := time.Now()
	doc, err := proc.annotator.Annotate(text.String())
	if err != nil {
		return result, fmt.Errorf("error annotating document: %w", err)
	}

	votes, err := registry.Apply(doc)
	if err != nil {
		return result, fmt.Errorf("error applying labeling functions: %w", err)
	}

	duration := time.Since(start)
	sizeMB := float64(result.TotalSize) / float64(bytesPerMB)
	slog.Info("evaluated object",
		"object_size_mb", fmt.Sprintf("%.2f", sizeMB),
		"duration", duration,
	)

	names := registry.Names()
	voteMap := make(Votes, len(names))

	allVotes := make([]database.ObjectVote, len(names))
	for i, name := range names {
		allVotes[i] = database.ObjectVote{
			RunId:    runId,
			Object:   object,
			Function: name,
			Label:    votes[i],
		}
		voteMap[name] = votes[i]

		if votes[i] != labeling.Abstain {
			result.FunctionCount[name]++
		}
	}

	slices := make([]database.ObjectSlice, 0)
	for sliceId, filter := range sliceFilter {
		if filter.Matches(voteMap) {
			slices = append(slices, database.ObjectSlice{
				RunId:   runId,
				Object:  object,
				SliceId: sliceId,
			})
		}
	}

	result.Votes = allVotes
	result.Slices = slices

	return result, nil
}

func (proc *TaskProcessor) processShardDataTask(ctx context.Context, payload messaging.ShardDataPayload) error {
	runId := payload.RunId

	slog.Info("processing shard data task", "run_id", runId)

	var task database.ShardDataTask
	if err := proc.db.Preload("Run").First(&task, "run_id = ?", runId).Error; err != nil {
		slog.Error("error fetching shard data task", "run_id", runId, "error", err)
		return fmt.Errorf("error getting shard data task: %w", err)
	}

	if task.Run.Stopped || task.Run.Deleted {
		slog.Info("run stopped, skipping shard data task", "run_id", runId)
		return nil
	}

	database.UpdateShardDataTaskStatus(ctx, proc.db, runId, database.JobRunning) //nolint:errcheck

	slog.Info("Handling generate tasks", "jobId", task.RunId, "storageParams", string(task.Run.StorageParams))

	targetBytes := task.ChunkTargetBytes
	if targetBytes <= 0 {
		targetBytes = 10 * 1024 * 1024 * 1024 // Default 10GB if not set or invalid
		slog.Info("Using default chunk target size", "targetBytes", targetBytes, "jobId", runId)
	}

	createEvaluationTask := func(ctx context.Context, taskId int, taskMetadata storage.EvaluationTask) error {
		slog.Info("Creating evaluation task", "run_id", runId, "task_id", taskId, "chunk_size", taskMetadata.TotalSize)

		task := database.EvaluationTask{
			RunId:         runId,
			TaskId:        taskId,
			Status:        database.JobQueued,
			CreationTime:  time.Now().UTC(),
			StorageParams: taskMetadata.Params,
			TotalSize:     taskMetadata.TotalSize,
		}

		evaluationPayload := messaging.EvaluationTaskPayload{
			RunId: task.RunId, TaskId: task.TaskId,
		}

		if err := proc.db.WithContext(ctx).Create(&task).Error; err != nil {
			slog.Error("error saving evaluation task to db", "run_id", task.RunId, "task_id", task.TaskId, "error", err)
			database.UpdateShardDataTaskStatus(ctx, proc.db, runId, database.JobFailed) //nolint:errcheck
			return fmt.Errorf("error saving evaluation task to db: %w", err)
		}

		if err := proc.publisher.PublishEvaluationTask(ctx, evaluationPayload); err != nil {
			slog.Error("Handler: Failed to publish evaluation task", "run_id", runId, "task_id", taskId, "error", err)
			database.UpdateShardDataTaskStatus(ctx, proc.db, runId, database.JobFailed) //nolint:errcheck
			return fmt.Errorf("failed to publish evaluation task %d: %w", taskId, err)
		}

		slog.Info("Created evaluation task", "run_id", runId, "task_id", taskId, "chunk_size", taskMetadata.TotalSize)

		return nil
	}

	connector, err := proc.getConnector(ctx, *task.Run)
	if err != nil {
		return fmt.Errorf("error initializing connector for evaluation task: %w", err)
	}

	evaluationTasks, totalObjects, err := connector.CreateEvaluationTasks(ctx, targetBytes)
	if err != nil {
		return fmt.Errorf("error creating evaluation tasks: %w", err)
	}

	taskId := 0
	for _, task := range evaluationTasks {
		if err := createEvaluationTask(ctx, taskId, task); err != nil {
			return err
		}
		taskId++
	}

	if err := proc.db.
		Model(&database.Run{}).
		Where("id = ?", runId).
		UpdateColumn("total_file_count", totalObjects).
		Error; err != nil {
		slog.Warn("failed to update total_file_count", "run_id", runId, "totalObjects", totalObjects, "error", err)
	}

	if err := database.UpdateShardDataTaskStatus(ctx, proc.db, runId, database.JobCompleted); err != nil {
		return fmt.Errorf("failed to update job final status: %w", err)
	}

	slog.Info("Finished generating evaluation task chunks", "n_tasks", taskId, "run_id", runId)

	return nil
}
