package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type SerpAPIProvider struct {
	BaseURL  string
	APIKey   string
	Language string
	Country  string
	client   *http.Client
}

// NewSerpAPIProvider creates a Google search provider backed by SerpAPI. A nil
// client gets a default one with a 20 second timeout.
func NewSerpAPIProvider(baseURL, apiKey, language, country string, client *http.Client) *SerpAPIProvider {
	if baseURL == "" {
		baseURL = "https://serpapi.com/search.json"
	}
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &SerpAPIProvider{
		BaseURL:  baseURL,
		APIKey:   apiKey,
		Language: language,
		Country:  country,
		client:   client,
	}
}

func (p *SerpAPIProvider) Name() string {
	return "serpapi"
}

func (p *SerpAPIProvider) Search(ctx context.Context, query string, n int) ([]Result, error) {
	if p.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", BuildQuery(query))
	params.Set("api_key", p.APIKey)
	params.Set("num", strconv.Itoa(n))
	if p.Language != "" {
		params.Set("hl", p.Language)
	}
	if p.Country != "" {
		params.Set("gl", p.Country)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi returned status: %d", resp.StatusCode)
	}

	var result struct {
		Error          string   `json:"error"`
		OrganicResults []Result `json:"organic_results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode serpapi response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("serpapi error: %s", result.Error)
	}

	if n > 0 && len(result.OrganicResults) > n {
		result.OrganicResults = result.OrganicResults[:n]
	}
	return result.OrganicResults, nil
}
