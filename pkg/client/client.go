// Package client is a small HTTP client for the report API.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Report statuses returned by the API
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
	StatusNotFound  = "NOT_FOUND"
)

// ErrReportFailed is returned by Wait when the report ends FAILED
var ErrReportFailed = errors.New("report failed")

// Report is the API view of a report job
type Report struct {
	ReportID        string   `json:"report_id"`
	Status          string   `json:"status"`
	ArtifactURL     string   `json:"artifact_url,omitempty"`
	FailedLocations []string `json:"failed_locations,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// Client talks to the report API
type Client struct {
	http *resty.Client
}

// New creates a client for baseURL
func New(baseURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30 * time.Second).
			SetRetryCount(3).
			SetRetryWaitTime(500 * time.Millisecond).
			SetRetryMaxWaitTime(5 * time.Second).
			SetHeader("Accept", "application/json"),
	}
}

// Trigger starts a report; maxLocations <= 0 uses the server default
func (c *Client) Trigger(ctx context.Context, maxLocations int) (*Report, error) {
	var out Report
	body := map[string]int{}
	if maxLocations > 0 {
		body["max_locations"] = maxLocations
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post("/reports")
	if err != nil {
		return nil, fmt.Errorf("trigger report: %w", err)
	}
	if resp.StatusCode() != http.StatusAccepted {
		return nil, fmt.Errorf("trigger report: unexpected status %d: %s", resp.StatusCode(), out.Error)
	}
	return &out, nil
}

// Get fetches the report status. Unknown ids come back with status NOT_FOUND.
func (c *Client) Get(ctx context.Context, id string) (*Report, error) {
	var out Report
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&out).
		SetError(&out).
		Get("/reports/{id}")
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	switch resp.StatusCode() {
	case http.StatusOK, http.StatusNotFound:
		return &out, nil
	default:
		return nil, fmt.Errorf("get report: unexpected status %d", resp.StatusCode())
	}
}

// Wait polls until the report leaves PENDING
func (c *Client) Wait(ctx context.Context, id string, interval time.Duration) (*Report, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		rep, err := c.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		switch rep.Status {
		case StatusCompleted:
			return rep, nil
		case StatusFailed:
			return rep, fmt.Errorf("%w: %s", ErrReportFailed, rep.Error)
		case StatusNotFound:
			return rep, fmt.Errorf("report %s not found", id)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Download returns the artifact bytes of a completed report
func (c *Client) Download(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetHeader("Accept", "*/*").
		Get("/reports/{id}/download")
	if err != nil {
		return nil, fmt.Errorf("download report: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("download report: unexpected status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}
