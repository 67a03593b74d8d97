package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"labeling-backend/cmd"
	"labeling-backend/internal/core"
	"labeling-backend/internal/database"
	"labeling-backend/internal/labeling"
	"labeling-backend/internal/messaging"
	"labeling-backend/internal/nlp"

	"github.com/caarlos0/env/v11"
)

type WorkerConfig struct {
	DatabaseURL       string `env:"DATABASE_URL,notEmpty,required"`
	RabbitMQURL       string `env:"RABBITMQ_URL,notEmpty,required"`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION"`
	LocalStorageDir   string `env:"LOCAL_STORAGE_DIR" envDefault:"./storage"`
	UploadBucket      string `env:"UPLOAD_BUCKET" envDefault:"uploads"`
}

func main() {
	log.Println("Starting Worker Process...")

	cmd.LoadEnvFile()

	var cfg WorkerConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	store, err := cmd.CreateObjectStore(cfg.LocalStorageDir, cfg.S3EndpointURL, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretAccessKey)
	if err != nil {
		log.Fatalf("Worker: Failed to create object store: %v", err)
	}

	publisher, err := messaging.NewRabbitMQPublisher(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}

	reciever, err := messaging.NewRabbitMQReceiver(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}

	builder := labeling.NewBuilder(nlp.NewProseSentimentScorer(), nlp.NewTokenSortScorer())

	processor := core.NewTaskProcessor(db, store, publisher, reciever, nlp.NewProseAnnotator(), builder, cfg.UploadBucket)
	go processor.Start()

	log.Println("Worker started. Waiting for tasks. Press Ctrl+C to exit.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutdown signal received, waiting for workers to finish...")
	processor.Stop()

	log.Println("Worker process stopped.")
}
