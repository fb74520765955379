// Package moodle is a minimal client for the Moodle web service REST API (feedback activities).
package moodle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const restPath = "/webservice/rest/server.php"

// Web service functions.
const (
	FunctionResponsesAnalysis = "mod_feedback_get_responses_analysis"
	FunctionItems             = "mod_feedback_get_items"
)

// ErrMissingFeedbackID is returned when no feedback id is given.
var ErrMissingFeedbackID = errors.New("moodle: feedback id is required")

// APIError is a web service exception reported in the response body.
type APIError struct {
	Function  string
	ErrorCode string
	Message   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("moodle %s failed: %s (%s)", e.Function, e.Message, e.ErrorCode)
}

// ClientOptions configures the Moodle client
type ClientOptions struct {
	// Domain is the site root, e.g. "https://campus.example.org"
	Domain string
	// Token is the web service token
	Token string
	// RetryMax is the maximum number of retries (default: 3)
	RetryMax int
	// Timeout is the HTTP client timeout (default: 30 seconds)
	Timeout time.Duration
}

// Client is the Moodle web service client
type Client struct {
	endpoint   string
	token      string
	httpClient *retryablehttp.Client
}

// NewClient creates a client with default settings
func NewClient(domain, token string) *Client {
	return NewClientWithOptions(ClientOptions{Domain: domain, Token: token})
}

// NewClientWithOptions creates a client with custom options
func NewClientWithOptions(opts ClientOptions) *Client {
	domain := strings.TrimSuffix(opts.Domain, "/")
	domain = strings.TrimSuffix(domain, restPath)

	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	if opts.RetryMax == 0 {
		opts.RetryMax = 3
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.HTTPClient.Timeout = opts.Timeout
	retryClient.Logger = nil

	return &Client{
		endpoint:   domain + restPath,
		token:      opts.Token,
		httpClient: retryClient,
	}
}

// GetResponsesAnalysis returns every attempt of a feedback activity with its responses.
func (c *Client) GetResponsesAnalysis(ctx context.Context, feedbackID string) (*ResponsesAnalysis, error) {
	var out ResponsesAnalysis
	if err := c.call(ctx, FunctionResponsesAnalysis, feedbackID, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// GetItems returns the questions of a feedback activity.
func (c *Client) GetItems(ctx context.Context, feedbackID string) (*ItemsResponse, error) {
	var out ItemsResponse
	if err := c.call(ctx, FunctionItems, feedbackID, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// ItemNames maps item id to question text.
func (r *ItemsResponse) ItemNames() map[string]string {
	names := make(map[string]string, len(r.Items))
	for _, it := range r.Items {
		names[strconv.FormatInt(it.ID, 10)] = it.Name
	}

	return names
}

func (c *Client) call(ctx context.Context, function, feedbackID string, out any) error {
	feedbackID = strings.TrimSpace(feedbackID)
	if feedbackID == "" {
		return ErrMissingFeedbackID
	}

	params := url.Values{}
	params.Set("wstoken", c.token)
	params.Set("wsfunction", function)
	params.Set("feedbackid", feedbackID)
	params.Set("moodlewsrestformat", "json")

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("Failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var exc exceptionResponse
	if err := json.Unmarshal(body, &exc); err == nil && exc.Exception != "" {
		return &APIError{Function: function, ErrorCode: exc.ErrorCode, Message: exc.Message}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s response: %w", function, err)
	}

	return nil
}
