package anthropic

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/user/ai-spend-tracker/internal/provider"
)

var baseURL = "https://api.anthropic.com"

const apiVersion = "2023-06-01"

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
	log.Debugf("anthropic request:\n%s", dump)
}

func (c *Client) logResponse(resp *http.Response, body []byte) {
	if !log.IsLevelEnabled(log.DebugLevel) {
		return
	}
	log.Debugf("anthropic response: %s\n%s", resp.Status, body)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Accept", "application/json")
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

	// The cost report endpoint only exists for admin keys. A regular API key
	// gets a 404 rather than a 403.
	if resp.StatusCode == http.StatusNotFound {
		return nil, provider.NewError(providerID, provider.KindUnsupported, errors.New("cost report endpoint not available for this key"))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, provider.FromStatus(providerID, resp.StatusCode, body)
	}

	return body, nil
}

// GetCostReport fetches one page of the organization cost report. Amounts
// come back as decimal strings, so the caller parses with gjson instead of
// typed structs.
func (c *Client) GetCostReport(ctx context.Context, start, end time.Time, page string) (gjson.Result, error) {
	u, _ := url.Parse(c.baseURL + "/v1/organizations/cost_report")
	q := u.Query()
	q.Set("starting_at", start.Format(time.RFC3339))
	q.Set("ending_at", end.Format(time.RFC3339))
	if page != "" {
		q.Set("page", page)
	}
	u.RawQuery = q.Encode()

	body, err := c.doRequest(ctx, http.MethodGet, u.String())
	if err != nil {
		return gjson.Result{}, err
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, provider.NewError(providerID, provider.KindUnexpected, errors.New("cost report response is not valid JSON"))
	}
	return gjson.ParseBytes(body), nil
}
