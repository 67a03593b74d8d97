package client_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	backend "labeling-backend/internal/api"
	"labeling-backend/internal/database"
	"labeling-backend/internal/labeling"
	"labeling-backend/internal/messaging"
	"labeling-backend/internal/storage"
	"labeling-backend/pkg/api"
	"labeling-backend/pkg/client"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func startServer(t *testing.T) *client.Client {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.GetMigrator(db).Migrate())

	store, err := storage.NewLocalObjectStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.CreateBucket(context.Background(), "uploads"))

	service := backend.NewBackendService(db, store, messaging.NewInMemoryQueue(), labeling.NewBuilder(nil, nil), "uploads", 1024)
	router := chi.NewRouter()
	service.AddRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return client.New(server.URL)
}

func label(v int) *int { return &v }

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := startServer(t)

	require.NoError(t, c.Health(ctx))

	functions := []api.LabelingFunction{
		{Name: "lf_org_present", Kind: api.KindEntityPresence, ReturnLabel: label(1), NERTag: "ORG"},
	}

	labelerId, err := c.CreateLabeler(ctx, api.CreateLabelerRequest{Name: "client-labeler", Functions: functions})
	require.NoError(t, err)

	labeler, err := c.GetLabeler(ctx, labelerId)
	require.NoError(t, err)
	assert.Equal(t, "client-labeler", labeler.Name)
	assert.Equal(t, functions, labeler.Functions)

	builtin, err := c.GetBuiltinFunctions(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, builtin)

	docPath := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(docPath, []byte("Acme Corp quarterly filing."), 0644))

	uploadId, err := c.UploadFiles(ctx, []string{docPath})
	require.NoError(t, err)

	runId, err := c.CreateRun(ctx, api.CreateRunRequest{
		LabelerId: labelerId,
		RunName:   "client-run",
		UploadId:  uploadId,
	})
	require.NoError(t, err)

	run, err := c.GetRun(ctx, runId)
	require.NoError(t, err)
	assert.Equal(t, "client-run", run.RunName)
	assert.Equal(t, database.JobQueued, run.ShardDataTaskStatus)

	matrix, err := c.GetRunMatrix(ctx, runId)
	require.NoError(t, err)
	assert.Equal(t, []string{"lf_org_present"}, matrix.Functions)
	assert.Empty(t, matrix.Objects)

	require.NoError(t, c.StopRun(ctx, runId))
	require.NoError(t, c.DeleteRun(ctx, runId))

	_, err = c.GetRun(ctx, runId)
	assert.Error(t, err)
}
