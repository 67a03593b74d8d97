package cmd

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"labeling-backend/internal/database"
	"labeling-backend/internal/labeling"
	"labeling-backend/internal/storage"
	"labeling-backend/internal/suggest"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	err := godotenv.Load(configPath)
	if err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

// InitializeBuiltinLabeler creates the "builtin" labeler from the embedded
// default labeling functions if it does not exist yet.
func InitializeBuiltinLabeler(db *gorm.DB) error {
	var labeler database.Labeler
	err := db.Where("name = ?", "builtin").First(&labeler).Error

	isNew := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !isNew {
		return err
	}
	if !isNew {
		return nil
	}

	cfgs, err := labeling.BuiltinConfigs()
	if err != nil {
		return err
	}

	labeler = database.Labeler{
		Id:           uuid.New(),
		Name:         "builtin",
		CreationTime: time.Now().UTC(),
	}
	if err := db.Create(&labeler).Error; err != nil {
		return err
	}

	return database.SetLabelerFunctions(context.Background(), db, labeler.Id, cfgs)
}

// CreateObjectStore builds an S3-backed store when an endpoint or region is
// configured, and falls back to a directory on disk otherwise.
func CreateObjectStore(localDir, s3Endpoint, s3Region, s3AccessKeyID, s3SecretAccessKey string) (storage.ObjectStore, error) {
	if s3Endpoint != "" || s3Region != "" {
		return storage.NewS3ObjectStore(storage.S3ClientConfig{
			Endpoint:        s3Endpoint,
			Region:          s3Region,
			AccessKeyID:     s3AccessKeyID,
			SecretAccessKey: s3SecretAccessKey,
		})
	}
	return storage.NewLocalObjectStore(localDir)
}

// CreateSuggester returns nil when no OpenAI key is configured; the suggest
// endpoint then reports itself unavailable instead of failing per request.
func CreateSuggester(model string, temp float64) *suggest.Suggester {
	if os.Getenv("OPENAI_API_KEY") == "" {
		slog.Warn("OPENAI_API_KEY not set, labeling function suggestions are disabled")
		return nil
	}
	return suggest.NewSuggester(suggest.NewOpenAI(model, temp))
}
