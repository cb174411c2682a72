package teamleader

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/viaacode/teamleader2db/internal/logger"
	"github.com/viaacode/teamleader2db/internal/metrics"
)

// updatedSinceLayout is ISO-8601 with seconds precision, no microseconds.
// The offset is appended literally; timestamps are normalized to UTC first.
// Example: 2021-03-29T16:44:33+00:00. The API rejects fractional seconds.
const updatedSinceLayout = "2006-01-02T15:04:05"

// tokenProvider is the slice of AuthManager the client needs: the current
// bearer token and a way to refresh it after a 401.
type tokenProvider interface {
	AccessToken() string
	RefreshAccessToken(ctx context.Context) error
}

// Summary is the abbreviated record a list endpoint returns per entity.
// Only the id is of interest; the full document comes from the detail call.
type Summary struct {
	ID string `json:"id"`
}

// Client issues authenticated, rate-limited GETs against the Teamleader
// API. It knows nothing about individual resources; per-resource quirks
// live in the registry and the synchronizer.
//
// API errors degrade to empty results instead of propagating: a failing
// page stops that resource's pagination loop early, which is conservative
// but never corrupts the watermark. A 401 triggers exactly one
// refresh-and-retry cycle per call.
type Client struct {
	apiURI  string
	auth    tokenProvider
	httpc   *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new Client. minInterval is the mandatory spacing
// between any two upstream calls; zero disables the limiter (tests).
func NewClient(apiURI string, auth tokenProvider, minInterval time.Duration) *Client {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Client{
		apiURI:  apiURI,
		auth:    auth,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// FetchPage fetches one page of summary records from a list endpoint.
// Pagination and filter parameters are optional: zero page/pageSize and a
// nil updatedSince are omitted from the request.
func (c *Client) FetchPage(ctx context.Context, path string, page, pageSize int, updatedSince *time.Time) []Summary {
	params := url.Values{}
	if page > 0 {
		params.Set("page[number]", strconv.Itoa(page))
	}
	if pageSize > 0 {
		params.Set("page[size]", strconv.Itoa(pageSize))
	}
	if updatedSince != nil {
		params.Set("filter[updated_since]", updatedSince.UTC().Truncate(time.Second).Format(updatedSinceLayout)+"+00:00")
	}

	body, ok := c.call(ctx, path, params)
	if !ok {
		return nil
	}

	var payload struct {
		Data []Summary `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		logger.FromContext(ctx).Error("Failed to decode list response", "path", path, "error", err)
		return nil
	}
	return payload.Data
}

// FetchItem fetches the full document of a single entity from a detail
// endpoint. Returns nil when the call fails.
func (c *Client) FetchItem(ctx context.Context, path, id string) json.RawMessage {
	params := url.Values{}
	params.Set("id", id)

	body, ok := c.call(ctx, path, params)
	if !ok {
		return nil
	}

	var payload struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		logger.FromContext(ctx).Error("Failed to decode detail response", "path", path, "id", id, "error", err)
		return nil
	}
	return payload.Data
}

// CurrentUser fetches the authenticated user, used as a smoke check after
// a token exchange.
func (c *Client) CurrentUser(ctx context.Context) json.RawMessage {
	body, ok := c.call(ctx, "/users.me", url.Values{})
	if !ok {
		return nil
	}
	var payload struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	return payload.Data
}

// call performs one authenticated GET with the 401-refresh-retry-once
// policy. The boolean result is false for any non-2xx outcome; those are
// logged with full context and absorbed here.
func (c *Client) call(ctx context.Context, path string, params url.Values) ([]byte, bool) {
	log := logger.FromContext(ctx)

	status, body, err := c.get(ctx, path, params)
	if err != nil {
		log.Error("API call failed", "path", path, "params", params.Encode(), "error", err)
		return nil, false
	}

	if status == http.StatusUnauthorized {
		// One refresh-and-retry cycle; if the refresh fails too, the retry
		// below surfaces another 401 and falls through to the error path.
		_ = c.auth.RefreshAccessToken(ctx)
		status, body, err = c.get(ctx, path, params)
		if err != nil {
			log.Error("API call failed after token refresh", "path", path, "params", params.Encode(), "error", err)
			return nil, false
		}
	}

	if status < 200 || status >= 300 {
		log.Error("API call returned error status",
			"path", path, "status", status, "body", string(body), "params", params.Encode())
		return nil, false
	}
	return body, true
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (int, []byte, error) {
	// Mandatory spacing before every upstream call, retries included.
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, err
	}

	reqURL := c.apiURI + path
	if encoded := params.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.auth.AccessToken())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	metrics.APICallsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}
