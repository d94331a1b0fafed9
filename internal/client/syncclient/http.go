package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/syncproto"
)

// SchemaVersion is the local schema version sent with every pull.
const SchemaVersion = 1

// HTTPClient is the JSON-over-HTTP transport to the sync endpoints.
type HTTPClient struct {
	baseURL     string
	accessToken string
	http        *http.Client
}

// NewHTTPClient builds a client for the server at baseURL. An empty
// accessToken sends no Authorization header.
func NewHTTPClient(baseURL, accessToken string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		http:        &http.Client{Timeout: timeout},
	}
}

// Pull fetches everything changed since lastPulledAt (nil for a bootstrap).
func (c *HTTPClient) Pull(ctx context.Context, lastPulledAt *int64) (*syncproto.PulledChanges, error) {
	q := url.Values{}
	q.Set("schema_version", strconv.Itoa(SchemaVersion))
	if lastPulledAt != nil {
		q.Set("last_pulled_at", strconv.FormatInt(*lastPulledAt, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/sync/pull?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var out syncproto.PulledChanges
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("pull: %w", err)
	}
	return &out, nil
}

// Push sends local changes. The whole request is rejected on conflict.
func (c *HTTPClient) Push(ctx context.Context, push *syncproto.PushRequest) error {
	body, err := json.Marshal(push)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sync/push", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("push: %w", err)
	}
	return nil
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	if c.accessToken != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+c.accessToken)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	return statusError(resp)
}

func statusError(resp *http.Response) error {
	var body syncproto.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil || body.Error == "" {
		body.Error = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusConflict:
		return &common.ConflictError{Table: body.Table, StableID: body.ID}
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, body.Error)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", common.ErrorValidation, body.Error)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s", ErrUnavailable, body.Error)
	default:
		return errors.New("server error: " + body.Error)
	}
}
