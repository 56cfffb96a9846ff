// Package client implements the board's client side: an API client, the
// list controller with optimistic voting, and the locally persisted
// voted-story set.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/storywall/storywall"
)

const DefaultBaseURL = "http://localhost:8080"

// Client calls the board's HTTP API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{},
	}
}

// APIError is a non-2xx answer from the server, carrying the server's error
// message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

// ListResponse is one page of stories plus its pagination metadata.
type ListResponse struct {
	Stories    []storywall.Story `json:"stories"`
	Count      int               `json:"count"`
	HasMore    bool              `json:"hasMore"`
	Offset     int               `json:"offset"`
	NextOffset int               `json:"nextOffset"`
}

// StatsResponse carries the board's aggregate counts.
type StatsResponse struct {
	TotalStories    int `json:"totalStories"`
	StoriesThisWeek int `json:"storiesThisWeek"`
}

// ListStories fetches one page of stories for the given sort order.
func (c *Client) ListStories(ctx context.Context, sort string, limit int, offset int) (*ListResponse, error) {
	query := url.Values{}
	query.Set("sort", sort)
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	var page ListResponse
	if err := c.get(ctx, "/stories?"+query.Encode(), &page); err != nil {
		return nil, err
	}

	return &page, nil
}

// SubmitStory submits a new story and returns the stored record.
func (c *Client) SubmitStory(ctx context.Context, sub storywall.StorySubmission) (*storywall.Story, error) {
	var out struct {
		Message string          `json:"message"`
		Story   storywall.Story `json:"story"`
	}
	if err := c.post(ctx, "/submit", sub, &out); err != nil {
		return nil, err
	}

	return &out.Story, nil
}

// Vote upvotes a story and returns the authoritative new count.
func (c *Client) Vote(ctx context.Context, storyID int64) (int, error) {
	var out struct {
		Success bool   `json:"success"`
		Votes   int    `json:"votes"`
		Message string `json:"message"`
	}
	if err := c.post(ctx, "/vote", map[string]int64{"storyId": storyID}, &out); err != nil {
		return 0, err
	}

	return out.Votes, nil
}

// Stats fetches the board's aggregate counts.
func (c *Client) Stats(ctx context.Context) (*StatsResponse, error) {
	var stats StatsResponse
	if err := c.get(ctx, "/stats", &stats); err != nil {
		return nil, err
	}

	return &stats, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}

	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var body struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(res.Body).Decode(&body); err != nil || body.Error == "" {
			body.Error = http.StatusText(res.StatusCode)
		}
		return &APIError{Status: res.StatusCode, Message: body.Error}
	}

	return json.NewDecoder(res.Body).Decode(out)
}
