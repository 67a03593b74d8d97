package client

import (
	"context"
	"fmt"

	"labeling-backend/pkg/api"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// Client is a thin HTTP client for the labeling backend API.
type Client struct {
	http *resty.Client
}

func New(baseURL string) *Client {
	return &Client{http: resty.New().SetBaseURL(baseURL)}
}

func checkResponse(res *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("request failed with status %d: %s", res.StatusCode(), res.String())
	}
	return nil
}

func (c *Client) Health(ctx context.Context) error {
	res, err := c.http.R().SetContext(ctx).Get("/health")
	return checkResponse(res, err)
}

func (c *Client) CreateLabeler(ctx context.Context, req api.CreateLabelerRequest) (uuid.UUID, error) {
	var out api.CreateLabelerResponse
	res, err := c.http.R().SetContext(ctx).SetBody(req).SetResult(&out).Post("/labelers")
	if err := checkResponse(res, err); err != nil {
		return uuid.Nil, err
	}
	return out.LabelerId, nil
}

func (c *Client) ListLabelers(ctx context.Context) ([]api.Labeler, error) {
	var out []api.Labeler
	res, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/labelers")
	if err := checkResponse(res, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetLabeler(ctx context.Context, labelerId uuid.UUID) (api.Labeler, error) {
	var out api.Labeler
	res, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/labelers/" + labelerId.String())
	if err := checkResponse(res, err); err != nil {
		return api.Labeler{}, err
	}
	return out, nil
}

func (c *Client) GetBuiltinFunctions(ctx context.Context) ([]api.LabelingFunction, error) {
	var out []api.LabelingFunction
	res, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/labelers/builtin")
	if err := checkResponse(res, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SuggestFunctions(ctx context.Context, req api.SuggestFunctionsRequest) ([]api.LabelingFunction, error) {
	var out api.SuggestFunctionsResponse
	res, err := c.http.R().SetContext(ctx).SetBody(req).SetResult(&out).Post("/labelers/suggest")
	if err := checkResponse(res, err); err != nil {
		return nil, err
	}
	return out.Functions, nil
}

func (c *Client) CreateRun(ctx context.Context, req api.CreateRunRequest) (uuid.UUID, error) {
	var out api.CreateRunResponse
	res, err := c.http.R().SetContext(ctx).SetBody(req).SetResult(&out).Post("/runs")
	if err := checkResponse(res, err); err != nil {
		return uuid.Nil, err
	}
	return out.RunId, nil
}

func (c *Client) ListRuns(ctx context.Context) ([]api.Run, error) {
	var out []api.Run
	res, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/runs")
	if err := checkResponse(res, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetRun(ctx context.Context, runId uuid.UUID) (api.Run, error) {
	var out api.Run
	res, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/runs/" + runId.String())
	if err := checkResponse(res, err); err != nil {
		return api.Run{}, err
	}
	return out, nil
}

func (c *Client) StopRun(ctx context.Context, runId uuid.UUID) error {
	res, err := c.http.R().SetContext(ctx).Post("/runs/" + runId.String() + "/stop")
	return checkResponse(res, err)
}

func (c *Client) DeleteRun(ctx context.Context, runId uuid.UUID) error {
	res, err := c.http.R().SetContext(ctx).Delete("/runs/" + runId.String())
	return checkResponse(res, err)
}

func (c *Client) GetRunVotes(ctx context.Context, runId uuid.UUID, limit, offset int) ([]api.Vote, error) {
	var out []api.Vote
	res, err := c.http.R().SetContext(ctx).
		SetQueryParam("limit", fmt.Sprint(limit)).
		SetQueryParam("offset", fmt.Sprint(offset)).
		SetResult(&out).
		Get("/runs/" + runId.String() + "/votes")
	if err := checkResponse(res, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetRunMatrix(ctx context.Context, runId uuid.UUID) (api.LabelMatrix, error) {
	var out api.LabelMatrix
	res, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/runs/" + runId.String() + "/matrix")
	if err := checkResponse(res, err); err != nil {
		return api.LabelMatrix{}, err
	}
	return out, nil
}

func (c *Client) SearchRun(ctx context.Context, runId uuid.UUID, query string) ([]string, error) {
	var out api.SearchResponse
	res, err := c.http.R().SetContext(ctx).
		SetQueryParam("query", query).
		SetResult(&out).
		Get("/runs/" + runId.String() + "/search")
	if err := checkResponse(res, err); err != nil {
		return nil, err
	}
	return out.Objects, nil
}

func (c *Client) GetRunSlice(ctx context.Context, runId, sliceId uuid.UUID) (api.Slice, error) {
	var out api.Slice
	res, err := c.http.R().SetContext(ctx).SetResult(&out).
		Get("/runs/" + runId.String() + "/slices/" + sliceId.String())
	if err := checkResponse(res, err); err != nil {
		return api.Slice{}, err
	}
	return out, nil
}

// UploadFiles uploads the given local files and returns the upload id to use
// in CreateRunRequest.UploadId.
func (c *Client) UploadFiles(ctx context.Context, paths []string) (uuid.UUID, error) {
	req := c.http.R().SetContext(ctx)
	for _, path := range paths {
		req.SetFile("files", path)
	}

	var out api.UploadResponse
	res, err := req.SetResult(&out).Post("/uploads")
	if err := checkResponse(res, err); err != nil {
		return uuid.Nil, err
	}
	return out.Id, nil
}
