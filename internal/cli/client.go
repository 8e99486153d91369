package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charliek/logan/internal/api"
	"github.com/charliek/logan/internal/domain"
)

// Client is an HTTP client for the logan API
type Client struct {
	baseURL    string
	httpClient *http.Client
	// streamClient has no overall timeout; follow streams are ended by
	// cancelling the request context.
	streamClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		streamClient: &http.Client{},
	}
}

// APIError is a non-2xx response from the API
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// GetStatus gets server status
func (c *Client) GetStatus() (*api.StatusResponse, error) {
	var resp api.StatusResponse
	if err := c.get("/api/v1/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetFiles gets all registered files
func (c *Client) GetFiles() (*api.FileListResponse, error) {
	var resp api.FileListResponse
	if err := c.get("/api/v1/files", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetWindow reads the head or tail of a registered file. A lines value of
// 0 uses the server default.
func (c *Client) GetWindow(ownerID string, mode domain.WindowMode, lines int) (*api.WindowResponse, error) {
	path := "/api/v1/files/" + url.PathEscape(ownerID) + "/" + mode.String()
	if lines > 0 {
		path += "?lines=" + strconv.Itoa(lines)
	}

	var resp api.WindowResponse
	if err := c.get(path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchParams contains parameters for a search. Nil context sizes use the
// server defaults.
type SearchParams struct {
	Expression string
	Before     *int
	After      *int
}

// Search runs a search across all registered files
func (c *Client) Search(params SearchParams) (*api.SearchResponse, error) {
	body := map[string]interface{}{
		"expression": params.Expression,
	}
	if params.Before != nil {
		body["before"] = *params.Before
	}
	if params.After != nil {
		body["after"] = *params.After
	}

	var resp api.SearchResponse
	if err := c.post("/api/v1/search", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Discover asks the server to rediscover log files
func (c *Client) Discover() (*api.DiscoverResponse, error) {
	var resp api.DiscoverResponse
	if err := c.post("/api/v1/discover", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FollowFile streams lines appended to a registered file and calls the
// callback for each one until ctx is cancelled or the server ends the stream.
func (c *Client) FollowFile(ctx context.Context, ownerID string, callback func(api.FollowLineResponse)) error {
	stream, err := c.OpenFollow(ctx, ownerID)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer stream.Close()
	return stream.Each(callback)
}

// FollowStream is an open follow subscription. The server fixes the start
// of the stream when it is opened, so lines appended after OpenFollow
// returns are delivered even if Each is called later.
type FollowStream struct {
	ctx    context.Context
	body   io.ReadCloser
	reader *bufio.Reader
}

// OpenFollow subscribes to a registered file without reading any events yet
func (c *Client) OpenFollow(ctx context.Context, ownerID string) (*FollowStream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/files/"+url.PathEscape(ownerID)+"/follow", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}

	return &FollowStream{ctx: ctx, body: resp.Body, reader: bufio.NewReader(resp.Body)}, nil
}

// Each calls callback for every line event until the stream ends or its
// context is cancelled
func (s *FollowStream) Each(callback func(api.FollowLineResponse)) error {
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF || s.ctx.Err() != nil {
				return nil
			}
			return err
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "data: ") {
			data := strings.TrimPrefix(line, "data: ")
			var event api.FollowLineResponse
			if err := json.Unmarshal([]byte(data), &event); err == nil {
				callback(event)
			}
		}
	}
}

// Close ends the subscription
func (s *FollowStream) Close() error {
	return s.body.Close()
}

func (c *Client) get(path string, v interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, v)
}

func (c *Client) post(path string, body, v interface{}) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, v)
}

func (c *Client) do(req *http.Request, v interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var errResp api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
		apiErr.Code = errResp.Code
		apiErr.Message = errResp.Error
	}
	return apiErr
}
