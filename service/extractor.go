package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sbcesar/contractguardian/config"
)

// ErrEmptyDocument means extraction produced too little text, which usually
// indicates a scanned image or an empty file.
var ErrEmptyDocument = errors.New("document appears to be empty or image-only")

// ExtractorService is the client of the external text-extraction collaborator.
// The collaborator accepts a document URL, runs extraction asynchronously and
// exposes the task state for polling.
type ExtractorService struct {
	config     *config.ExtractorConfig
	httpClient *http.Client
}

// ExtractTaskRequest creates an extraction task
type ExtractTaskRequest struct {
	URL    string `json:"url"`
	DataID string `json:"data_id,omitempty"`
}

// ExtractTaskResponse is the task-creation reply
type ExtractTaskResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		TaskID string `json:"task_id"`
	} `json:"data"`
}

// ExtractStatusResponse is the task status reply; Text is set once the task
// is done
type ExtractStatusResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		TaskID   string `json:"task_id"`
		State    string `json:"state"` // pending, running, done, failed
		Text     string `json:"text,omitempty"`
		ErrorMsg string `json:"err_msg,omitempty"`
	} `json:"data"`
}

func NewExtractorService(cfg *config.ExtractorConfig) *ExtractorService {
	return &ExtractorService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// CreateTask submits a document URL for extraction
func (s *ExtractorService) CreateTask(ctx context.Context, docURL, dataID string) (*ExtractTaskResponse, error) {
	reqBody := ExtractTaskRequest{URL: docURL, DataID: dataID}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.APIURL+"/extract/task", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result ExtractTaskResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
	}

	if result.Code != 0 {
		return nil, fmt.Errorf("extractor API error: %s", result.Message)
	}

	return &result, nil
}

// GetTaskStatus queries the state of an extraction task
func (s *ExtractorService) GetTaskStatus(ctx context.Context, taskID string) (*ExtractStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/extract/task/%s", s.config.APIURL, taskID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result ExtractStatusResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Code != 0 {
		return nil, fmt.Errorf("extractor API error: %s", result.Message)
	}

	return &result, nil
}

// ExtractText submits the document and polls until the collaborator finishes,
// returning the full extracted text. Extraction results below the configured
// minimum length are treated as a failed extraction.
func (s *ExtractorService) ExtractText(ctx context.Context, docURL string) (string, error) {
	task, err := s.CreateTask(ctx, docURL, "")
	if err != nil {
		return "", err
	}

	interval := time.Duration(s.config.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 2 * time.Second
	}
	deadline := time.Now().Add(time.Duration(s.config.TimeoutSeconds) * time.Second)

	for {
		status, err := s.GetTaskStatus(ctx, task.Data.TaskID)
		if err != nil {
			return "", err
		}

		switch status.Data.State {
		case "done":
			text := status.Data.Text
			if len(text) < s.config.MinTextLength {
				return "", ErrEmptyDocument
			}
			return text, nil
		case "failed":
			return "", fmt.Errorf("extraction failed: %s", status.Data.ErrorMsg)
		}

		if time.Now().After(deadline) {
			return "", fmt.Errorf("extraction timed out after %ds", s.config.TimeoutSeconds)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
		}
	}
}
