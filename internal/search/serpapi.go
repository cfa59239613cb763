package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const serpAPIURL = "https://serpapi.com/search"

type serpResponse struct {
	OrganicResults []Result `json:"organic_results"`
	Error          string   `json:"error"`
}

type SerpAPI struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

func NewSerpAPI(apiKey string, timeout time.Duration) *SerpAPI {
	return &SerpAPI{
		APIKey:  apiKey,
		BaseURL: serpAPIURL,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *SerpAPI) Name() string { return "serpapi" }

func (c *SerpAPI) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", c.APIKey)
	params.Set("num", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("api error: %s (status: %d)", string(body), resp.StatusCode)
	}

	var parsed serpResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if parsed.Error != "" && len(parsed.OrganicResults) == 0 {
		// SerpAPI reports "no results" in the error field with a 200.
		return nil, nil
	}

	out := make([]Result, 0, limit)
	for _, r := range parsed.OrganicResults {
		if r.Title == "" && r.Link == "" {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
