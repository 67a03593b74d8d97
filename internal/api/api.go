package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"time"

	"labeling-backend/internal/core"
	"labeling-backend/internal/database"
	"labeling-backend/internal/labeling"
	"labeling-backend/internal/messaging"
	"labeling-backend/internal/storage"
	"labeling-backend/internal/suggest"
	"labeling-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxUploadSize = 100 << 20

type BackendService struct {
	db        *gorm.DB
	storage   storage.ObjectStore
	publisher messaging.Publisher
	builder   *labeling.Builder

	suggester *suggest.Suggester

	uploadBucket     string
	chunkTargetBytes int64
}

// SetSuggester enables the labeling function suggestion endpoint. Without it
// the endpoint reports that no LLM is configured.
func (s *BackendService) SetSuggester(suggester *suggest.Suggester) {
	s.suggester = suggester
}

func NewBackendService(db *gorm.DB, store storage.ObjectStore, pub messaging.Publisher, builder *labeling.Builder, uploadBucket string, chunkTargetBytes int64) *BackendService {
	return &BackendService{
		db:               db,
		storage:          store,
		publisher:        pub,
		builder:          builder,
		uploadBucket:     uploadBucket,
		chunkTargetBytes: chunkTargetBytes,
	}
}

func (s *BackendService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))
	r.Route("/labelers", func(r chi.Router) {
		r.Post("/", RestHandler(s.CreateLabeler))
		r.Get("/", RestHandler(s.ListLabelers))
		r.Get("/builtin", RestHandler(s.GetBuiltinFunctions))
		r.Post("/suggest", RestHandler(s.SuggestFunctions))
		r.Get("/{labeler_id}", RestHandler(s.GetLabeler))
	})
	r.Route("/runs", func(r chi.Router) {
		r.Post("/", RestHandler(s.CreateRun))
		r.Get("/", RestHandler(s.ListRuns))
		r.Get("/{run_id}", RestHandler(s.GetRun))
		r.Delete("/{run_id}", RestHandler(s.DeleteRun))
		r.Post("/{run_id}/stop", RestHandler(s.StopRun))
		r.Get("/{run_id}/votes", RestHandler(s.GetRunVotes))
		r.Get("/{run_id}/matrix", RestHandler(s.GetRunMatrix))
		r.Get("/{run_id}/search", RestHandler(s.SearchRun))
		r.Get("/{run_id}/slices/{slice_id}", RestHandler(s.GetRunSlice))
	})
	r.Route("/uploads", func(r chi.Router) {
		r.Post("/", RestHandler(s.UploadFiles))
	})
}

func (s *BackendService) CreateLabeler(r *http.Request) (any, error) {
	req, err := ParseRequest[api.CreateLabelerRequest](r)
	if err != nil {
		return nil, err
	}

	if err := validateName(req.Name); err != nil {
		return nil, err
	}

	if len(req.Functions) == 0 {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "at least one labeling function is required")
	}

	cfgs := toLabelingConfigs(req.Functions)

	// Building the full registry up front surfaces bad configs and duplicate
	// names now, instead of when the first run is evaluated.
	if _, err := labeling.NewRegistryFromConfigs(s.builder, cfgs); err != nil {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "invalid labeling functions: %v", err)
	}

	ctx := r.Context()

	labeler := database.Labeler{
		Id:           uuid.New(),
		Name:         req.Name,
		CreationTime: time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(&labeler).Error; err != nil {
		slog.Error("error creating labeler", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to create labeler entry")
	}

	if err := database.SetLabelerFunctions(ctx, s.db, labeler.Id, cfgs); err != nil {
		slog.Error("error saving labeling functions", "labeler_id", labeler.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to save labeling functions")
	}

	slog.Info("created labeler", "labeler_id", labeler.Id, "n_functions", len(cfgs))
	return api.CreateLabelerResponse{LabelerId: labeler.Id}, nil
}

func (s *BackendService) ListLabelers(r *http.Request) (any, error) {
	ctx := r.Context()

	var labelers []database.Labeler
	if err := s.db.WithContext(ctx).Preload("Functions").Find(&labelers).Error; err != nil {
		slog.Error("error listing labelers", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving labeler records")
	}

	converted, err := convertLabelers(labelers)
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, err)
	}
	return converted, nil
}

func (s *BackendService) GetLabeler(r *http.Request) (any, error) {
	labelerId, err := URLParamUUID(r, "labeler_id")
	if err != nil {
		return nil, err
	}

	ctx := r.Context()

	var labeler database.Labeler
	if err := s.db.WithContext(ctx).Preload("Functions").First(&labeler, "id = ?", labelerId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "labeler not found")
		}
		slog.Error("error getting labeler", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving labeler record")
	}

	return convertLabeler(labeler)
}

func (s *BackendService) GetBuiltinFunctions(r *http.Request) (any, error) {
	cfgs, err := labeling.BuiltinConfigs()
	if err != nil {
		slog.Error("error loading builtin labeling functions", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error loading builtin labeling functions")
	}
	return fromLabelingConfigs(cfgs), nil
}

func (s *BackendService) SuggestFunctions(r *http.Request) (any, error) {
	if s.suggester == nil {
		return nil, CodedErrorf(http.StatusServiceUnavailable, "no llm configured for labeling function suggestions")
	}

	req, err := ParseRequest[api.SuggestFunctionsRequest](r)
	if err != nil {
		return nil, err
	}

	cfgs, err := s.suggester.SuggestFunctions(req.Labels, req.Samples)
	if err != nil {
		slog.Error("error suggesting labeling functions", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to suggest labeling functions: %v", err)
	}

	return api.SuggestFunctionsResponse{Functions: fromLabelingConfigs(cfgs)}, nil
}

func (s *BackendService) resolveStorage(r *http.Request, req api.CreateRunRequest) (storage.StorageType, []byte, error) {
	if req.UploadId != uuid.Nil {
		var upload database.Upload
		if err := s.db.WithContext(r.Context()).First(&upload, "id = ?", req.UploadId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", nil, CodedErrorf(http.StatusNotFound, "upload not found")
			}
			return "", nil, CodedErrorf(http.StatusInternalServerError, "error retrieving upload record")
		}

		params, err := json.Marshal(storage.UploadParams{UploadId: req.UploadId})
		if err != nil {
			return "", nil, CodedErrorf(http.StatusInternalServerError, "error serializing storage params")
		}
		return storage.UploadType, params, nil
	}

	if req.SourceS3Bucket != "" {
		params, err := json.Marshal(storage.S3ConnectorParams{
			Endpoint: req.S3Endpoint,
			Region:   req.S3Region,
			Bucket:   req.SourceS3Bucket,
			Prefix:   req.SourceS3Prefix,
		})
		if err != nil {
			return "", nil, CodedErrorf(http.StatusInternalServerError, "error serializing storage params")
		}
		return storage.S3Type, params, nil
	}

	if req.SourceLocalDir != "" {
		params, err := json.Marshal(storage.LocalConnectorParams{BaseDir: req.SourceLocalDir})
		if err != nil {
			return "", nil, CodedErrorf(http.StatusInternalServerError, "error serializing storage params")
		}
		return storage.LocalType, params, nil
	}

	return "", nil, CodedErrorf(http.StatusUnprocessableEntity, "one of upload_id, source_s3_bucket, or source_local_dir is required")
}

func (s *BackendService) CreateRun(r *http.Request) (any, error) {
	req, err := ParseRequest[api.CreateRunRequest](r)
	if err != nil {
		return nil, err
	}

	if err := validateName(req.RunName); err != nil {
		return nil, err
	}

	ctx := r.Context()

	cfgs, err := database.GetLabelerConfigs(ctx, s.db, req.LabelerId)
	if err != nil {
		slog.Error("error loading labeler configs", "labeler_id", req.LabelerId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving labeler record")
	}
	if len(cfgs) == 0 {
		return nil, CodedErrorf(http.StatusNotFound, "labeler not found or has no labeling functions")
	}

	storageType, storageParams, err := s.resolveStorage(r, req)
	if err != nil {
		return nil, err
	}

	for name, query := range req.Slices {
		if err := validateName(name); err != nil {
			return nil, err
		}
		if _, err := core.ParseQuery(query); err != nil {
			return nil, CodedErrorf(http.StatusUnprocessableEntity, "invalid slice query '%s': %v", query, err)
		}
	}

	chunkTargetBytes := req.ChunkTargetBytes
	if chunkTargetBytes <= 0 {
		chunkTargetBytes = s.chunkTargetBytes
	}

	runId := uuid.New()

	run := database.Run{
		Id:            runId,
		RunName:       req.RunName,
		LabelerId:     req.LabelerId,
		StorageType:   string(storageType),
		StorageParams: storageParams,
		CreationTime:  time.Now().UTC(),
		ShardDataTask: &database.ShardDataTask{
			RunId:            runId,
			Status:           database.JobQueued,
			CreationTime:     time.Now().UTC(),
			ChunkTargetBytes: chunkTargetBytes,
		},
	}

	for _, cfg := range cfgs {
		run.FunctionCounts = append(run.FunctionCounts, database.FunctionCount{
			RunId:    runId,
			Function: cfg.Name,
		})
	}

	for name, query := range req.Slices {
		run.Slices = append(run.Slices, database.Slice{
			Id:    uuid.New(),
			Name:  name,
			RunId: runId,
			Query: query,
		})
	}

	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		slog.Error("error creating run", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to create run entry")
	}

	if err := s.publisher.PublishShardDataTask(ctx, messaging.ShardDataPayload{RunId: runId}); err != nil {
		slog.Error("error publishing shard data task", "run_id", runId, "error", err)
		database.UpdateShardDataTaskStatus(ctx, s.db, runId, database.JobFailed) //nolint:errcheck
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to queue run")
	}

	slog.Info("created run", "run_id", runId, "labeler_id", req.LabelerId, "storage_type", storageType)
	return api.CreateRunResponse{RunId: runId}, nil
}

func (s *BackendService) ListRuns(r *http.Request) (any, error) {
	ctx := r.Context()

	var runs []database.Run
	if err := s.db.WithContext(ctx).
		Preload("Labeler").Preload("Labeler.Functions").Preload("ShardDataTask").
		Find(&runs, "deleted = ?", false).Error; err != nil {
		slog.Error("error listing runs", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving run records")
	}

	converted, err := convertRuns(runs)
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, err)
	}
	return converted, nil
}

func (s *BackendService) getRun(r *http.Request, preloads ...string) (database.Run, error) {
	runId, err := URLParamUUID(r, "run_id")
	if err != nil {
		return database.Run{}, err
	}

	query := s.db.WithContext(r.Context())
	for _, preload := range preloads {
		query = query.Preload(preload)
	}

	var run database.Run
	if err := query.First(&run, "id = ? AND deleted = ?", runId, false).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return database.Run{}, CodedErrorf(http.StatusNotFound, "run not found")
		}
		slog.Error("error getting run", "run_id", runId, "error", err)
		return database.Run{}, CodedErrorf(http.StatusInternalServerError, "error retrieving run record")
	}

	return run, nil
}

func (s *BackendService) GetRun(r *http.Request) (any, error) {
	run, err := s.getRun(r, "Labeler", "Labeler.Functions", "Slices", "ShardDataTask", "EvaluationTasks", "FunctionCounts", "Errors")
	if err != nil {
		return nil, err
	}

	return convertRun(run)
}

func (s *BackendService) StopRun(r *http.Request) (any, error) {
	run, err := s.getRun(r)
	if err != nil {
		return nil, err
	}

	if err := database.UpdateRunStatus(r.Context(), s.db, run.Id, map[string]any{"stopped": true}); err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to stop run")
	}

	return nil, nil
}

func (s *BackendService) DeleteRun(r *http.Request) (any, error) {
	run, err := s.getRun(r)
	if err != nil {
		return nil, err
	}

	ctx := r.Context()

	if err := database.UpdateRunStatus(ctx, s.db, run.Id, map[string]any{"deleted": true, "stopped": true}); err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to delete run")
	}

	if err := s.db.WithContext(ctx).Delete(&database.ObjectVote{}, "run_id = ?", run.Id).Error; err != nil {
		slog.Error("error deleting run votes", "run_id", run.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to delete run votes")
	}

	if err := s.db.WithContext(ctx).Delete(&database.ObjectSlice{}, "run_id = ?", run.Id).Error; err != nil {
		slog.Error("error deleting run slice memberships", "run_id", run.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to delete run slice memberships")
	}

	return nil, nil
}

type getVotesParams struct {
	Object   string `schema:"object"`
	Function string `schema:"function"`
	Limit    int    `schema:"limit"`
	Offset   int    `schema:"offset"`
}

func (s *BackendService) GetRunVotes(r *http.Request) (any, error) {
	run, err := s.getRun(r)
	if err != nil {
		return nil, err
	}

	params, err := ParseRequestQueryParams[getVotesParams](r)
	if err != nil {
		return nil, err
	}
	if params.Limit <= 0 {
		params.Limit = 1000
	}

	query := s.db.WithContext(r.Context()).Where("run_id = ?", run.Id)
	if params.Object != "" {
		query = query.Where("object = ?", params.Object)
	}
	if params.Function != "" {
		query = query.Where("function = ?", params.Function)
	}

	var votes []database.ObjectVote
	if err := query.Order("object").Order("function").
		Limit(params.Limit).Offset(params.Offset).
		Find(&votes).Error; err != nil {
		slog.Error("error getting run votes", "run_id", run.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving votes")
	}

	return convertVotes(votes), nil
}

// loadVotesByObject returns each object's votes keyed by function name.
func (s *BackendService) loadVotesByObject(r *http.Request, runId uuid.UUID) (map[string]core.Votes, error) {
	var votes []database.ObjectVote
	if err := s.db.WithContext(r.Context()).Find(&votes, "run_id = ?", runId).Error; err != nil {
		slog.Error("error getting run votes", "run_id", runId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving votes")
	}

	byObject := make(map[string]core.Votes)
	for _, vote := range votes {
		if byObject[vote.Object] == nil {
			byObject[vote.Object] = make(core.Votes)
		}
		byObject[vote.Object][vote.Function] = vote.Label
	}
	return byObject, nil
}

func (s *BackendService) GetRunMatrix(r *http.Request) (any, error) {
	run, err := s.getRun(r)
	if err != nil {
		return nil, err
	}

	cfgs, err := database.GetLabelerConfigs(r.Context(), s.db, run.LabelerId)
	if err != nil {
		slog.Error("error loading labeler configs", "labeler_id", run.LabelerId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving labeler record")
	}

	functions := make([]string, len(cfgs))
	for i, cfg := range cfgs {
		functions[i] = cfg.Name
	}

	byObject, err := s.loadVotesByObject(r, run.Id)
	if err != nil {
		return nil, err
	}

	objects := make([]string, 0, len(byObject))
	for object := range byObject {
		objects = append(objects, object)
	}
	sort.Strings(objects)

	rows := make([][]int, len(objects))
	for i, object := range objects {
		row := make([]int, len(functions))
		for j, function := range functions {
			row[j] = byObject[object].Get(function)
		}
		rows[i] = row
	}

	return api.LabelMatrix{Functions: functions, Objects: objects, Rows: rows}, nil
}

type searchParams struct {
	Query string `schema:"query"`
}

func (s *BackendService) SearchRun(r *http.Request) (any, error) {
	run, err := s.getRun(r)
	if err != nil {
		return nil, err
	}

	params, err := ParseRequestQueryParams[searchParams](r)
	if err != nil {
		return nil, err
	}

	filter, err := core.ParseQuery(params.Query)
	if err != nil {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "invalid query '%s': %v", params.Query, err)
	}

	byObject, err := s.loadVotesByObject(r, run.Id)
	if err != nil {
		return nil, err
	}

	var objects []string
	for object, votes := range byObject {
		if filter.Matches(votes) {
			objects = append(objects, object)
		}
	}
	sort.Strings(objects)

	return api.SearchResponse{Objects: objects}, nil
}

func (s *BackendService) GetRunSlice(r *http.Request) (any, error) {
	run, err := s.getRun(r)
	if err != nil {
		return nil, err
	}

	sliceId, err := URLParamUUID(r, "slice_id")
	if err != nil {
		return nil, err
	}

	var slice database.Slice
	if err := s.db.WithContext(r.Context()).Preload("Objects").
		First(&slice, "id = ? AND run_id = ?", sliceId, run.Id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "slice not found")
		}
		slog.Error("error getting slice", "slice_id", sliceId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving slice record")
	}

	return convertSlice(slice), nil
}

func (s *BackendService) UploadFiles(r *http.Request) (any, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "unable to parse multipart form: %v", err)
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "no files provided")
	}

	ctx := r.Context()
	uploadId := uuid.New()

	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			return nil, CodedErrorf(http.StatusBadRequest, "unable to open uploaded file '%s': %v", header.Filename, err)
		}

		key := filepath.Join(uploadId.String(), filepath.Base(header.Filename))
		err = s.storage.PutObject(ctx, s.uploadBucket, key, file)
		file.Close()
		if err != nil {
			slog.Error("error storing uploaded file", "upload_id", uploadId, "file", header.Filename, "error", err)
			return nil, CodedErrorf(http.StatusInternalServerError, "failed to store uploaded file '%s'", header.Filename)
		}
	}

	upload := database.Upload{Id: uploadId, CreationTime: time.Now().UTC()}
	if err := s.db.WithContext(ctx).Create(&upload).Error; err != nil {
		slog.Error("error creating upload record", "upload_id", uploadId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to create upload entry")
	}

	slog.Info("stored upload", "upload_id", uploadId, "n_files", len(files))
	return api.UploadResponse{Id: uploadId}, nil
}
