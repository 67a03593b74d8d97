package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"labeling-backend/internal/labeling"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func UpdateRunStatus(ctx context.Context, txn *gorm.DB, runId uuid.UUID, updates map[string]any) error {
	if err := txn.WithContext(ctx).Model(&Run{Id: runId}).Updates(updates).Error; err != nil {
		slog.Error("error updating run", "run_id", runId, "error", err)
		return err
	}
	return nil
}

func UpdateEvaluationTaskStatus(ctx context.Context, txn *gorm.DB, runId uuid.UUID, taskId int, status string) error {
	updates := map[string]any{"status": status}
	if status == JobRunning {
		updates["start_time"] = time.Now().UTC()
	}
	if status == JobCompleted || status == JobFailed {
		updates["completion_time"] = time.Now().UTC()
	}

	if err := txn.WithContext(ctx).Model(&EvaluationTask{RunId: runId, TaskId: taskId}).Updates(updates).Error; err != nil {
		slog.Error("error updating evaluation task status", "run_id", runId, "task_id", taskId, "status", status, "error", err)
		return err
	}
	return nil
}

func UpdateShardDataTaskStatus(ctx context.Context, txn *gorm.DB, runId uuid.UUID, status string) error {
	updates := map[string]any{"status": status}
	if status == JobCompleted || status == JobFailed {
		updates["completion_time"] = time.Now().UTC()
	}

	if err := txn.WithContext(ctx).Model(&ShardDataTask{RunId: runId}).Updates(updates).Error; err != nil {
		slog.Error("error updating shard data task status", "run_id", runId, "status", status, "error", err)
		return err
	}
	return nil
}

func SaveRunError(ctx context.Context, txn *gorm.DB, runId uuid.UUID, errorMessage string) {
	runError := RunError{
		RunId:     runId,
		ErrorId:   uuid.New(),
		Error:     errorMessage,
		Timestamp: time.Now().UTC(),
	}

	if err := txn.WithContext(ctx).Create(&runError).Error; err != nil {
		slog.Error("error saving run error", "run_id", runId, "error", err)
	}
}

// SetLabelerFunctions replaces a labeler's function rows with the given
// configs, preserving config order as matrix column order.
func SetLabelerFunctions(ctx context.Context, db *gorm.DB, labelerId uuid.UUID, cfgs []labeling.Config) error {
	rows := make([]LabelerFunction, 0, len(cfgs))
	for i, cfg := range cfgs {
		data, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("could not marshal labeling function config: %w", err)
		}
		rows = append(rows, LabelerFunction{
			LabelerId: labelerId,
			Name:      cfg.Name,
			Position:  i,
			Config:    data,
		})
	}

	if err := db.WithContext(ctx).
		Where("labeler_id = ?", labelerId).
		Delete(&LabelerFunction{}).
		Error; err != nil {
		return fmt.Errorf("could not clear old labeling functions: %w", err)
	}

	if len(rows) > 0 {
		if err := db.WithContext(ctx).Create(&rows).Error; err != nil {
			return fmt.Errorf("could not add new labeling functions: %w", err)
		}
	}
	return nil
}

// GetLabelerConfigs loads a labeler's function configs in position order.
func GetLabelerConfigs(ctx context.Context, db *gorm.DB, labelerId uuid.UUID) ([]labeling.Config, error) {
	var rows []LabelerFunction
	if err := db.WithContext(ctx).Where("labeler_id = ?", labelerId).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("could not query labeling functions: %w", err)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Position < rows[j].Position })

	cfgs := make([]labeling.Config, 0, len(rows))
	for _, row := range rows {
		var cfg labeling.Config
		if err := json.Unmarshal(row.Config, &cfg); err != nil {
			return nil, fmt.Errorf("invalid labeling function config for '%s': %w", row.Name, err)
		}
		cfgs = append(cfgs, cfg)
	}
	return cfgs, nil
}
