package api

import (
	"encoding/json"
	"fmt"

	"labeling-backend/internal/database"
	"labeling-backend/internal/labeling"
	"labeling-backend/pkg/api"
)

func toLabelingConfig(fn api.LabelingFunction) labeling.Config {
	return labeling.Config{
		Name:                fn.Name,
		Kind:                labeling.Kind(fn.Kind),
		ReturnLabel:         fn.ReturnLabel,
		NERTag:              fn.NERTag,
		PolarityLower:       fn.PolarityLower,
		PolarityUpper:       fn.PolarityUpper,
		SubjectivityLower:   fn.SubjectivityLower,
		SubjectivityUpper:   fn.SubjectivityUpper,
		Keywords:            fn.Keywords,
		FuzzyMatchThreshold: fn.FuzzyMatchThreshold,
	}
}

func toLabelingConfigs(fns []api.LabelingFunction) []labeling.Config {
	cfgs := make([]labeling.Config, 0, len(fns))
	for _, fn := range fns {
		cfgs = append(cfgs, toLabelingConfig(fn))
	}
	return cfgs
}

func fromLabelingConfig(cfg labeling.Config) api.LabelingFunction {
	return api.LabelingFunction{
		Name:                cfg.Name,
		Kind:                string(cfg.Kind),
		ReturnLabel:         cfg.ReturnLabel,
		NERTag:              cfg.NERTag,
		PolarityLower:       cfg.PolarityLower,
		PolarityUpper:       cfg.PolarityUpper,
		SubjectivityLower:   cfg.SubjectivityLower,
		SubjectivityUpper:   cfg.SubjectivityUpper,
		Keywords:            cfg.Keywords,
		FuzzyMatchThreshold: cfg.FuzzyMatchThreshold,
	}
}

func fromLabelingConfigs(cfgs []labeling.Config) []api.LabelingFunction {
	fns := make([]api.LabelingFunction, 0, len(cfgs))
	for _, cfg := range cfgs {
		fns = append(fns, fromLabelingConfig(cfg))
	}
	return fns
}

func convertLabeler(l database.Labeler) (api.Labeler, error) {
	fns := make([]api.LabelingFunction, len(l.Functions))
	for _, row := range l.Functions {
		var cfg labeling.Config
		if err := json.Unmarshal(row.Config, &cfg); err != nil {
			return api.Labeler{}, fmt.Errorf("invalid stored config for labeling function '%s': %w", row.Name, err)
		}
		if row.Position < 0 || row.Position >= len(fns) {
			return api.Labeler{}, fmt.Errorf("invalid position %d for labeling function '%s'", row.Position, row.Name)
		}
		fns[row.Position] = fromLabelingConfig(cfg)
	}

	return api.Labeler{
		Id:           l.Id,
		Name:         l.Name,
		CreationTime: l.CreationTime,
		Functions:    fns,
	}, nil
}

func convertLabelers(ls []database.Labeler) ([]api.Labeler, error) {
	labelers := make([]api.Labeler, 0, len(ls))
	for _, l := range ls {
		labeler, err := convertLabeler(l)
		if err != nil {
			return nil, err
		}
		labelers = append(labelers, labeler)
	}
	return labelers, nil
}

func convertSlice(s database.Slice) api.Slice {
	var objects []string
	for _, obj := range s.Objects {
		objects = append(objects, obj.Object)
	}
	return api.Slice{
		Id:      s.Id,
		Name:    s.Name,
		Query:   s.Query,
		Objects: objects,
	}
}

func convertSlices(ss []database.Slice) []api.Slice {
	var slices []api.Slice
	for _, s := range ss {
		slices = append(slices, convertSlice(s))
	}
	return slices
}

func convertRun(r database.Run) (api.Run, error) {
	var labeler api.Labeler
	if r.Labeler != nil {
		var err error
		labeler, err = convertLabeler(*r.Labeler)
		if err != nil {
			return api.Run{}, err
		}
	}

	run := api.Run{
		Id:                 r.Id,
		RunName:            r.RunName,
		Labeler:            labeler,
		StorageType:        r.StorageType,
		CreationTime:       r.CreationTime,
		Stopped:            r.Stopped,
		SucceededFileCount: r.SucceededFileCount,
		FailedFileCount:    r.FailedFileCount,
		TotalFileCount:     r.TotalFileCount,
		Slices:             convertSlices(r.Slices),
	}

	if len(r.FunctionCounts) > 0 {
		run.FunctionCounts = make(map[string]uint64, len(r.FunctionCounts))
		for _, count := range r.FunctionCounts {
			run.FunctionCounts[count.Function] = count.Count
		}
	}

	if r.ShardDataTask != nil {
		run.ShardDataTaskStatus = r.ShardDataTask.Status
	}

	if len(r.EvaluationTasks) > 0 {
		run.EvaluationTaskStatuses = make(map[string]api.TaskStatusCategory)
		for _, task := range r.EvaluationTasks {
			category := run.EvaluationTaskStatuses[task.Status]
			category.TotalTasks++
			category.TotalSize += int(task.TotalSize)
			run.EvaluationTaskStatuses[task.Status] = category
		}
	}

	for _, runErr := range r.Errors {
		run.Errors = append(run.Errors, runErr.Error)
	}

	return run, nil
}

func convertRuns(rs []database.Run) ([]api.Run, error) {
	runs := make([]api.Run, 0, len(rs))
	for _, r := range rs {
		run, err := convertRun(r)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func convertVote(v database.ObjectVote) api.Vote {
	return api.Vote{
		Object:   v.Object,
		Function: v.Function,
		Label:    v.Label,
	}
}

func convertVotes(vs []database.ObjectVote) []api.Vote {
	var votes []api.Vote
	for _, v := range vs {
		votes = append(votes, convertVote(v))
	}
	return votes
}
