package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

type Object struct {
	Name string
	Size int64
}

type EvaluationTask struct {
	Params    []byte
	TotalSize int64
}

type Chunk struct {
	Text    string
	Offset  int
	RawSize int64
	Error   error
}

type ObjectChunkStream struct {
	Name   string
	Chunks <-chan Chunk
	Error  error
}

type Connector interface {
	CreateEvaluationTasks(ctx context.Context, targetBytes int64) ([]EvaluationTask, int64, error)

	IterTaskChunks(ctx context.Context, params []byte) (<-chan ObjectChunkStream, error)
}

type StorageType string

const (
	LocalType  StorageType = "local"
	S3Type     StorageType = "s3"
	UploadType StorageType = "upload"
)

func ToStorageType(typeString string) (StorageType, error) {
	switch typeString {
	case string(LocalType):
		return LocalType, nil
	case string(S3Type):
		return S3Type, nil
	case string(UploadType):
		return UploadType, nil
	}
	return "", fmt.Errorf("unknown storage type: %s", typeString)
}

func NewConnector(ctx context.Context, storageType StorageType, params []byte) (Connector, error) {
	switch storageType {
	case LocalType:
		var localConnectorParams LocalConnectorParams
		if err := json.Unmarshal(params, &localConnectorParams); err != nil {
			return nil, err
		}
		return NewLocalConnector(localConnectorParams), nil

	case S3Type:
		var s3ConnectorParams S3ConnectorParams
		if err := json.Unmarshal(params, &s3ConnectorParams); err != nil {
			return nil, err
		}
		return NewS3Connector(ctx, s3ConnectorParams)

	default:
		// Uploads are resolved through the backend's own object store, see
		// ObjectStore.GetUploadConnector.
		return nil, fmt.Errorf("unknown storage type: %s", storageType)
	}
}
