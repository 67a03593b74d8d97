package integrationtests

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	backend "labeling-backend/internal/api"
	"labeling-backend/internal/core"
	"labeling-backend/internal/labeling"
	"labeling-backend/internal/messaging"
	"labeling-backend/internal/nlp"
	"labeling-backend/internal/storage"
	"labeling-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dataBucket = "test-data"

func label(v int) *int { return &v }

func createData(t *testing.T, objectStore *storage.S3ObjectStore) {
	require.NoError(t, objectStore.CreateBucket(context.Background(), dataBucket))

	for i := 0; i < 10; i++ {
		flaggedPath := fmt.Sprintf("flagged-%d.txt", i)
		flaggedData := fmt.Sprintf("filing %d mentions an ongoing fraud investigation", i)

		require.NoError(t, objectStore.PutObject(context.Background(), dataBucket, flaggedPath, strings.NewReader(flaggedData)))

		cleanPath := fmt.Sprintf("clean-%d.txt", i)
		cleanData := fmt.Sprintf("filing %d reports ordinary quarterly results", i)

		require.NoError(t, objectStore.PutObject(context.Background(), dataBucket, cleanPath, strings.NewReader(cleanData)))
	}
}

func createLabeler(t *testing.T, router http.Handler) uuid.UUID {
	var res api.CreateLabelerResponse
	err := httpRequest(router, "POST", "/labelers", api.CreateLabelerRequest{
		Name: "workflow-labeler",
		Functions: []api.LabelingFunction{
			{Name: "lf_fraud", Kind: api.KindKeywordPresence, ReturnLabel: label(1), Keywords: []string{"fraud"}},
			{Name: "lf_clean", Kind: api.KindKeywordAbsence, ReturnLabel: label(0), Keywords: []string{"fraud"}},
		},
	}, &res)
	require.NoError(t, err)
	return res.LabelerId
}

func createRun(t *testing.T, router http.Handler, req api.CreateRunRequest) uuid.UUID {
	var res api.CreateRunResponse
	err := httpRequest(router, "POST", "/runs", req, &res)
	require.NoError(t, err)
	return res.RunId
}

func runIsComplete(run api.Run) bool {
	if run.ShardDataTaskStatus != "COMPLETED" {
		return false
	}
	if len(run.EvaluationTaskStatuses) == 0 {
		return false
	}
	for status := range run.EvaluationTaskStatuses {
		if status != "COMPLETED" {
			return false
		}
	}
	return true
}

func waitForRun(t *testing.T, router http.Handler, runId uuid.UUID) api.Run {
	var run api.Run

	for i := 0; i < 40; i++ {
		time.Sleep(500 * time.Millisecond)
		err := httpRequest(router, "GET", fmt.Sprintf("/runs/%s", runId), nil, &run)
		require.NoError(t, err)

		if runIsComplete(run) {
			return run
		}
	}

	t.Fatal("timeout reached before run completed")
	return run
}

func TestEvaluationWorkflow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	minioUrl := setupMinioContainer(t, ctx)

	t.Setenv("AWS_ACCESS_KEY_ID", minioUsername)
	t.Setenv("AWS_SECRET_ACCESS_KEY", minioPassword)

	objectStore, err := storage.NewS3ObjectStore(storage.S3ClientConfig{
		Endpoint:        minioUrl,
		AccessKeyID:     minioUsername,
		SecretAccessKey: minioPassword,
	})
	require.NoError(t, err)

	db := createDB(t, ctx)

	queue := messaging.NewInMemoryQueue()

	builder := labeling.NewBuilder(nlp.NewProseSentimentScorer(), nlp.NewTokenSortScorer())

	service := backend.NewBackendService(db, objectStore, queue, builder, "uploads", 120)
	router := chi.NewRouter()
	service.AddRoutes(router)

	worker := core.NewTaskProcessor(db, objectStore, queue, queue, nlp.NewProseAnnotator(), builder, "uploads")

	go worker.Start()
	defer worker.Stop()

	createData(t, objectStore)

	labelerId := createLabeler(t, router)

	runId := createRun(t, router, api.CreateRunRequest{
		LabelerId:      labelerId,
		RunName:        "workflow-run",
		S3Endpoint:     minioUrl,
		SourceS3Bucket: dataBucket,

		Slices: map[string]string{
			"flagged": `lf_fraud = 1`,
			"clean":   `lf_clean = 0`,
		},
	})

	run := waitForRun(t, router, runId)

	assert.Equal(t, labelerId, run.Labeler.Id)
	assert.Equal(t, 20, run.TotalFileCount)
	assert.Equal(t, 20, run.SucceededFileCount)
	assert.Equal(t, 0, run.FailedFileCount)
	assert.Equal(t, uint64(10), run.FunctionCounts["lf_fraud"])
	assert.Equal(t, uint64(10), run.FunctionCounts["lf_clean"])
	assert.Equal(t, 2, len(run.Slices))

	var votes []api.Vote
	require.NoError(t, httpRequest(router, "GET", fmt.Sprintf("/runs/%s/votes?limit=100", runId), nil, &votes))
	assert.Equal(t, 40, len(votes))

	for _, slice := range run.Slices {
		var full api.Slice
		require.NoError(t, httpRequest(router, "GET", fmt.Sprintf("/runs/%s/slices/%s", runId, slice.Id), nil, &full))
		assert.Equal(t, 10, len(full.Objects))
	}

	var matrix api.LabelMatrix
	require.NoError(t, httpRequest(router, "GET", fmt.Sprintf("/runs/%s/matrix", runId), nil, &matrix))
	assert.Equal(t, []string{"lf_fraud", "lf_clean"}, matrix.Functions)
	assert.Equal(t, 20, len(matrix.Objects))
	for i, object := range matrix.Objects {
		if strings.HasPrefix(object, "flagged-") {
			assert.Equal(t, []int{1, api.Abstain}, matrix.Rows[i])
		} else {
			assert.Equal(t, []int{api.Abstain, 0}, matrix.Rows[i])
		}
	}

	var search api.SearchResponse
	query := url.QueryEscape(`lf_fraud = 1 AND lf_clean = ABSTAIN`)
	require.NoError(t, httpRequest(router, "GET", fmt.Sprintf("/runs/%s/search?query=%s", runId, query), nil, &search))
	assert.Equal(t, 10, len(search.Objects))
}
