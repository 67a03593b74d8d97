package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"labeling-backend/cmd"
	"labeling-backend/internal/api"
	"labeling-backend/internal/core"
	"labeling-backend/internal/database"
	"labeling-backend/internal/labeling"
	"labeling-backend/internal/messaging"
	"labeling-backend/internal/nlp"
	"labeling-backend/internal/storage"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type Config struct {
	Root              string  `env:"ROOT" envDefault:"./labeling-backend"`
	Port              int     `env:"PORT" envDefault:"3001"`
	UploadBucket      string  `env:"UPLOAD_BUCKET" envDefault:"uploads"`
	OpenAIModel       string  `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
	OpenAITemperature float64 `env:"OPENAI_TEMPERATURE" envDefault:"0.7"`
}

const (
	chunkTargetBytes = 200 * 1024 * 1024 // 200MB
)

func createDatabase(root string) *gorm.DB {
	path := filepath.Join(root, "db", "labeling-backend.db")
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.GetMigrator(db).Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	return db
}

// createQueue re-publishes any tasks that were still queued when the process
// last exited, so restarts pick up where they left off.
func createQueue(db *gorm.DB) *messaging.InMemoryQueue {
	var shardTasks []database.ShardDataTask
	if err := db.Where("status = ?", database.JobQueued).Find(&shardTasks).Error; err != nil {
		log.Fatalf("Failed to fetch tasks from database: %v", err)
	}

	var evaluationTasks []database.EvaluationTask
	if err := db.Where("status = ?", database.JobQueued).Find(&evaluationTasks).Error; err != nil {
		log.Fatalf("Failed to fetch tasks from database: %v", err)
	}

	queue := messaging.NewInMemoryQueue()

	for _, task := range shardTasks {
		if err := queue.PublishShardDataTask(context.Background(), messaging.ShardDataPayload{
			RunId: task.RunId,
		}); err != nil {
			log.Fatalf("Failed to publish shard task: %v", err)
		}
	}

	for _, task := range evaluationTasks {
		if err := queue.PublishEvaluationTask(context.Background(), messaging.EvaluationTaskPayload{
			RunId:  task.RunId,
			TaskId: task.TaskId,
		}); err != nil {
			log.Fatalf("Failed to publish evaluation task: %v", err)
		}
	}

	return queue
}

func createServer(db *gorm.DB, store storage.ObjectStore, queue messaging.Publisher, builder *labeling.Builder, cfg Config) *http.Server {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"}, // TODO: make this an env var
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	apiHandler := api.NewBackendService(db, store, queue, builder, cfg.UploadBucket, chunkTargetBytes)
	if suggester := cmd.CreateSuggester(cfg.OpenAIModel, cfg.OpenAITemperature); suggester != nil {
		apiHandler.SetSuggester(suggester)
	}

	r.Route("/api/v1", func(r chi.Router) {
		apiHandler.AddRoutes(r)
	})

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}
}

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := os.MkdirAll(cfg.Root, os.ModePerm); err != nil {
		log.Fatalf("error creating directory for log file: %v", err)
	}

	f, err := os.OpenFile(filepath.Join(cfg.Root, "backend.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	log.SetOutput(io.MultiWriter(f, os.Stderr))

	slog.Info("starting backend", "root", cfg.Root, "port", cfg.Port)

	db := createDatabase(cfg.Root)

	store, err := storage.NewLocalObjectStore(filepath.Join(cfg.Root, "storage"))
	if err != nil {
		log.Fatalf("Failed to create storage client: %v", err)
	}

	if err := store.CreateBucket(context.Background(), cfg.UploadBucket); err != nil {
		log.Fatalf("Failed to create upload bucket: %v", err)
	}

	if err := cmd.InitializeBuiltinLabeler(db); err != nil {
		log.Fatalf("Failed to initialize builtin labeler: %v", err)
	}

	queue := createQueue(db)

	builder := labeling.NewBuilder(nlp.NewProseSentimentScorer(), nlp.NewTokenSortScorer())

	worker := core.NewTaskProcessor(db, store, queue, queue, nlp.NewProseAnnotator(), builder, cfg.UploadBucket)

	server := createServer(db, store, queue, builder, cfg)

	slog.Info("starting worker")
	go worker.Start()

	// Goroutine for graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}

		slog.Info("shutting down worker")
		worker.Stop()
	}()

	slog.Info("server started", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %d: %v\n", cfg.Port, err)
	}

	slog.Info("server stopped")
}
