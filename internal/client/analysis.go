package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	api "github.com/riskcanvas/analysis-client/api/v1alpha1"
	"github.com/riskcanvas/analysis-client/pkg/requestid"
)

var _ Analysis = (*analysis)(nil)

var (
	// ErrJobNotFound is returned when the server does not know the job,
	// typically because it expired. Persisted references to the job id
	// should be discarded.
	ErrJobNotFound = errors.New("job not found")
	// ErrResultNotReady is returned when the final result is not flushed
	// yet. Transient; callers retry.
	ErrResultNotReady = errors.New("result not ready")
	ErrEmptyResponse  = errors.New("empty response")
)

// Analysis is the client interface to the risk analysis service.
//
//go:generate moq -fmt=goimports -out zz_generated_analysis.go . Analysis
type Analysis interface {
	// CreateJob registers a new analysis job and returns its identifier.
	CreateJob(ctx context.Context, params api.JobCreate) (*api.JobCreated, error)
	// StartStage asks the server to begin executing the job's stages.
	StartStage(ctx context.Context, jobID string, params api.StageStart) error
	// AdvanceStage resumes a job paused after pre-organization.
	AdvanceStage(ctx context.Context, jobID string, params api.StageAdvance) error
	// RestoreState returns the server-authoritative checkpoint for the job.
	RestoreState(ctx context.Context, jobID string) (*api.RestoreResponse, error)
	// FetchResult retrieves the final result of a completed job.
	FetchResult(ctx context.Context, jobID string) (*api.FinalResult, error)
	// SendHeartbeat reports client liveness for the job. Best effort.
	SendHeartbeat(ctx context.Context, params api.Heartbeat) error
}

// NewAnalysis returns an Analysis backed by the HTTP API at the configured
// server address.
func NewAnalysis(config *Config) (Analysis, error) {
	httpClient, err := NewHTTPClientFromConfig(config)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP client: %w", err)
	}
	return &analysis{
		client: httpClient,
		server: config.Service.Server,
	}, nil
}

type analysis struct {
	client *http.Client
	server string
}

func (a *analysis) CreateJob(ctx context.Context, params api.JobCreate) (*api.JobCreated, error) {
	var created api.JobCreated
	if err := a.do(ctx, http.MethodPost, a.url("/api/v1/jobs"), params, &created); err != nil {
		return nil, err
	}
	if created.JobID == "" {
		return nil, ErrEmptyResponse
	}
	return &created, nil
}

func (a *analysis) StartStage(ctx context.Context, jobID string, params api.StageStart) error {
	return a.do(ctx, http.MethodPost, a.url("/api/v1/jobs/%s/start", jobID), params, nil)
}

func (a *analysis) AdvanceStage(ctx context.Context, jobID string, params api.StageAdvance) error {
	return a.do(ctx, http.MethodPost, a.url("/api/v1/jobs/%s/advance", jobID), params, nil)
}

func (a *analysis) RestoreState(ctx context.Context, jobID string) (*api.RestoreResponse, error) {
	var resp api.RestoreResponse
	if err := a.do(ctx, http.MethodGet, a.url("/api/v1/jobs/%s/state", jobID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *analysis) FetchResult(ctx context.Context, jobID string) (*api.FinalResult, error) {
	var result api.FinalResult
	if err := a.do(ctx, http.MethodGet, a.url("/api/v1/jobs/%s/result", jobID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (a *analysis) SendHeartbeat(ctx context.Context, params api.Heartbeat) error {
	if params.RequestID == "" {
		params.RequestID = requestid.Generate()
	}
	return a.do(ctx, http.MethodPost, a.url("/api/v1/jobs/%s/heartbeat", params.JobID), params, nil)
}

func (a *analysis) url(format string, args ...any) string {
	return a.server + fmt.Sprintf(format, args...)
}

func (a *analysis) do(ctx context.Context, method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if reqID := requestid.FromContext(ctx); reqID != "" {
		req.Header.Set(requestid.Header, reqID)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrJobNotFound
	case resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusConflict:
		return ErrResultNotReady
	case resp.StatusCode >= 300:
		return fmt.Errorf("%s %s failed: %s", method, url, resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
