package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tavere/legendgame-go/internal/model"
)

// RESTClient is an HTTP client for the account and leaderboard API
type RESTClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRESTClient creates a new API client
func NewRESTClient(baseURL string) *RESTClient {
	return &RESTClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an API error
type ErrorResponse struct {
	Error APIError `json:"error"`
}

func (e *APIError) String() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// PlayerSummary identifies a player in auth responses
type PlayerSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// AuthResult is returned by Register and Login
type AuthResult struct {
	Token     string          `json:"token"`
	Player    PlayerSummary   `json:"player"`
	GameState model.GameState `json:"gameState,omitempty"`
}

// RankingsResult is returned by GetRankings
type RankingsResult struct {
	Success  bool              `json:"success"`
	Rankings []model.RankEntry `json:"rankings"`
	Total    int               `json:"total"`
}

// Register creates a new account and returns its token
func (c *RESTClient) Register(username, password string) (*AuthResult, error) {
	var result AuthResult
	body := map[string]string{"username": username, "password": password}
	if err := c.do(http.MethodPost, "/api/register", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Login authenticates an existing account
func (c *RESTClient) Login(username, password string) (*AuthResult, error) {
	var result AuthResult
	body := map[string]string{"username": username, "password": password}
	if err := c.do(http.MethodPost, "/api/login", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRankings fetches the leaderboard for one metric. Zero limit uses the
// server default.
func (c *RESTClient) GetRankings(metric string, limit int) (*RankingsResult, error) {
	q := url.Values{}
	if metric != "" {
		q.Set("type", metric)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/rankings"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var result RankingsResult
	if err := c.do(http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health checks server availability
func (c *RESTClient) Health() error {
	return c.do(http.MethodGet, "/api/health", nil, nil)
}

func (c *RESTClient) do(method, path string, body, result any) error {
	reqURL := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Code != "" {
			return fmt.Errorf("%s", errResp.Error.String())
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}
