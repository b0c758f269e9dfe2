package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/user/ai-spend-tracker/internal/provider"
)

var baseURL = "https://api.openai.com"

type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	organization string
}

func NewClient(apiKey, organization string) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		baseURL:      baseURL,
		apiKey:       apiKey,
		organization: organization,
	}
}

func (c *Client) logRequest(req *http.Request) {
	if !log.IsLevelEnabled(log.DebugLevel) {
		return
	}
	dump, _ := httputil.DumpRequestOut(req, false)
	log.Debugf("openai request:\n%s", dump)
}

func (c *Client) logResponse(resp *http.Response, body []byte) {
	if !log.IsLevelEnabled(log.DebugLevel) {
		return
	}
	log.Debugf("openai response: %s\n%s", resp.Status, body)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if c.organization != "" {
		req.Header.Set("OpenAI-Organization", c.organization)
	}
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

// GetCosts fetches daily cost buckets for the organization between start and end.
func (c *Client) GetCosts(ctx context.Context, start, end time.Time) (*costsResponse, error) {
	u, _ := url.Parse(c.baseURL + "/v1/organization/costs")
	q := u.Query()
	q.Set("start_time", strconv.FormatInt(start.Unix(), 10))
	q.Set("end_time", strconv.FormatInt(end.Unix(), 10))
	u.RawQuery = q.Encode()

	body, err := c.doRequest(ctx, http.MethodGet, u.String())
	if err != nil {
		return nil, err
	}

	var result costsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
