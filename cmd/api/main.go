package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"labeling-backend/cmd"
	"labeling-backend/internal/api"
	"labeling-backend/internal/database"
	"labeling-backend/internal/labeling"
	"labeling-backend/internal/messaging"
	"labeling-backend/internal/nlp"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type APIConfig struct {
	DatabaseURL       string  `env:"DATABASE_URL,notEmpty,required"`
	RabbitMQURL       string  `env:"RABBITMQ_URL,notEmpty,required"`
	S3EndpointURL     string  `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string  `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string  `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string  `env:"AWS_REGION"`
	LocalStorageDir   string  `env:"LOCAL_STORAGE_DIR" envDefault:"./storage"`
	UploadBucket      string  `env:"UPLOAD_BUCKET" envDefault:"uploads"`
	APIPort           string  `env:"API_PORT" envDefault:"8001"`
	ChunkTargetBytes  int64   `env:"CHUNK_TARGET_BYTES" envDefault:"10737418240"`
	OpenAIModel       string  `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
	OpenAITemperature float64 `env:"OPENAI_TEMPERATURE" envDefault:"0.7"`
}

func main() {
	log.Println("Starting API Server...")

	cmd.LoadEnvFile()

	var cfg APIConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	store, err := cmd.CreateObjectStore(cfg.LocalStorageDir, cfg.S3EndpointURL, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretAccessKey)
	if err != nil {
		log.Fatalf("Failed to create object store: %v", err)
	}

	if err := store.CreateBucket(context.Background(), cfg.UploadBucket); err != nil {
		log.Fatalf("Failed to create upload bucket: %v", err)
	}

	if err := cmd.InitializeBuiltinLabeler(db); err != nil {
		log.Fatalf("Failed to initialize builtin labeler: %v", err)
	}

	publisher, err := messaging.NewRabbitMQPublisher(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer publisher.Close()

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	builder := labeling.NewBuilder(nlp.NewProseSentimentScorer(), nlp.NewTokenSortScorer())

	apiHandler := api.NewBackendService(db, store, publisher, builder, cfg.UploadBucket, cfg.ChunkTargetBytes)
	if suggester := cmd.CreateSuggester(cfg.OpenAIModel, cfg.OpenAITemperature); suggester != nil {
		apiHandler.SetSuggester(suggester)
	}

	apiHandler.AddRoutes(r)

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: r,
	}

	// Goroutine for graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("API server listening on port %s", cfg.APIPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
	}

	log.Println("Server stopped.")
}
