package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"labeling-backend/internal/database"
	"labeling-backend/pkg/api"
	"labeling-backend/pkg/client"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
)

// Command line tool to create a labeling run from local files and watch its
// progress. Expects a backend started with cmd/local or cmd/api.
func main() {
	var (
		baseURL   string
		labelerId string
		runName   string
		files     string
		s3Bucket  string
		s3Prefix  string
	)

	flag.StringVar(&baseURL, "url", "http://localhost:3001/api/v1", "base url of the backend api")
	flag.StringVar(&labelerId, "labeler", "", "labeler id, defaults to the builtin labeler")
	flag.StringVar(&runName, "name", "cli-run", "name of the run")
	flag.StringVar(&files, "files", "", "comma separated local files to upload and label")
	flag.StringVar(&s3Bucket, "s3-bucket", "", "s3 bucket to read documents from instead of uploading")
	flag.StringVar(&s3Prefix, "s3-prefix", "", "s3 prefix within -s3-bucket")
	flag.Parse()

	ctx := context.Background()
	c := client.New(baseURL)

	if err := c.Health(ctx); err != nil {
		log.Fatalf("backend is not reachable at %s: %v", baseURL, err)
	}

	var target uuid.UUID
	if labelerId != "" {
		id, err := uuid.Parse(labelerId)
		if err != nil {
			log.Fatalf("invalid labeler id %q: %v", labelerId, err)
		}
		target = id
	} else {
		labelers, err := c.ListLabelers(ctx)
		if err != nil {
			log.Fatalf("error listing labelers: %v", err)
		}
		for _, labeler := range labelers {
			if labeler.Name == "builtin" {
				target = labeler.Id
			}
		}
		if target == uuid.Nil {
			log.Fatalf("no builtin labeler found, pass -labeler")
		}
	}

	req := api.CreateRunRequest{LabelerId: target, RunName: runName}

	switch {
	case files != "":
		uploadId, err := c.UploadFiles(ctx, strings.Split(files, ","))
		if err != nil {
			log.Fatalf("error uploading files: %v", err)
		}
		req.UploadId = uploadId
	case s3Bucket != "":
		req.SourceS3Bucket = s3Bucket
		req.SourceS3Prefix = s3Prefix
	default:
		log.Fatalf("either -files or -s3-bucket must be set")
	}

	runId, err := c.CreateRun(ctx, req)
	if err != nil {
		log.Fatalf("error creating run: %v", err)
	}

	fmt.Printf("created run %s\n", runId)

	run, err := watchRun(ctx, c, runId)
	if err != nil {
		log.Fatalf("error watching run: %v", err)
	}

	fmt.Printf("run %s finished: %d succeeded, %d failed\n", runId, run.SucceededFileCount, run.FailedFileCount)
	for name, count := range run.FunctionCounts {
		fmt.Printf("  %-30s voted on %d objects\n", name, count)
	}
}

func watchRun(ctx context.Context, c *client.Client, runId uuid.UUID) (api.Run, error) {
	bar := progressbar.NewOptions(1,
		progressbar.OptionSetDescription("⏳ labeling"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)

	for {
		run, err := c.GetRun(ctx, runId)
		if err != nil {
			return api.Run{}, err
		}

		if run.TotalFileCount > 0 {
			bar.ChangeMax(run.TotalFileCount)
			if err := bar.Set(run.SucceededFileCount + run.FailedFileCount); err != nil {
				return api.Run{}, err
			}
		}

		done := run.ShardDataTaskStatus == database.JobCompleted || run.ShardDataTaskStatus == database.JobFailed
		if done && run.SucceededFileCount+run.FailedFileCount >= run.TotalFileCount {
			_ = bar.Finish()
			return run, nil
		}

		time.Sleep(2 * time.Second)
	}
}
