package openrouter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httputil"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/user/ai-spend-tracker/internal/provider"
)

var baseURL = "https://openrouter.ai"

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

func (c *Client) logRequest(req *http.Request) {
	if !log.IsLevelEnabled(log.DebugLevel) {
		return
	}
	dump, _ := httputil.DumpRequestOut(req, false)
	log.Debugf("openrouter request:\n%s", dump)
}

func (c *Client) logResponse(resp *http.Response, body []byte) {
	if !log.IsLevelEnabled(log.DebugLevel) {
		return
	}
	log.Debugf("openrouter response: %s\n%s", resp.Status, body)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("HTTP-Referer", "https://openrouter.ai")
}

func (c *Client) doRequest(ctx context.Context, method, urlStr string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, urlStr, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	c.logRequest(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.Transport(providerID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.Transport(providerID, err)
	}
	c.logResponse(resp, body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, provider.FromStatus(providerID, resp.StatusCode, body)
	}

	return body, nil
}

// GetCredits fetches purchased credits and lifetime usage for the key.
func (c *Client) GetCredits(ctx context.Context) (*creditsResponse, error) {
	body, err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/api/v1/credits")
	if err != nil {
		return nil, err
	}

	var result creditsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
