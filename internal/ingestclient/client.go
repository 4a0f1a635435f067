// Package ingestclient talks to the remote ingestion API that collection
// files get uploaded to (§6 "Ingestion API client (consumed)").
package ingestclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/internal/agenthttp"
	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/logger"
	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/version"
)

// Config is configuration for the ingestion API client.
type Config struct {
	// Endpoint for API requests. The URL should always be specified with a
	// trailing slash.
	Endpoint string

	// The API key/token to authenticate with, if any.
	Token string

	// If true, only HTTP/1.1 is used.
	DisableHTTP2 bool

	// If true, failed responses are dumped to the logger.
	DebugHTTP bool

	// HTTP client timeout; zero to use the agenthttp default.
	Timeout time.Duration

	// optional TLS configuration, primarily used for testing.
	TLSConfig *tls.Config

	// The http client used, leave nil for the default.
	HTTPClient *http.Client
}

// Client manages communication with the ingestion API.
type Client struct {
	conf   Config
	client *http.Client
	logger logger.Logger
}

// NewClient returns a new ingestion API client.
func NewClient(l logger.Logger, conf Config) *Client {
	if conf.HTTPClient != nil {
		return &Client{conf: conf, client: conf.HTTPClient, logger: l}
	}

	opts := []agenthttp.ClientOption{
		agenthttp.WithAuthBearer(conf.Token),
		agenthttp.WithAllowHTTP2(!conf.DisableHTTP2),
		agenthttp.WithTLSConfig(conf.TLSConfig),
	}
	if conf.Timeout != 0 {
		opts = append(opts, agenthttp.WithTimeout(conf.Timeout))
	}

	return &Client{
		conf:   conf,
		client: agenthttp.NewClient(opts...),
		logger: l,
	}
}

// CollectionMetadata is returned by a successful upload or update.
type CollectionMetadata struct {
	CollectionID string `json:"collection_id"`
	Timestamp    string `json:"timestamp"`
}

// Ping checks ingestion API reachability at startup. Failure maps to a
// ConnectError and a non-zero startup exit (§6 exit codes).
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "ping", nil)
	if err != nil {
		return &ConnectError{Err: err}
	}

	resp, err := c.do(req)
	if err != nil {
		return &ConnectError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return &ConnectError{Err: fmt.Errorf("unexpected ping status %d", resp.StatusCode)}
	}
	return nil
}

// UploadCollection uploads body, the JSON content of one collection file
// with the given logical timestamp, as a new collection (§4.5 uploadOne).
func (c *Client) UploadCollection(ctx context.Context, timestamp string, body []byte) (*CollectionMetadata, error) {
	return c.postOrPut(ctx, http.MethodPost, "collections", timestamp, body)
}

// UpdateCollection replaces an existing collection identified by timestamp,
// used only in the optional update mode (§4.5.1).
func (c *Client) UpdateCollection(ctx context.Context, timestamp string, body []byte) (*CollectionMetadata, error) {
	return c.postOrPut(ctx, http.MethodPut, fmt.Sprintf("collections/%s", timestamp), timestamp, body)
}

func (c *Client) postOrPut(ctx context.Context, method, urlPath, timestamp string, body []byte) (*CollectionMetadata, error) {
	req, err := c.newRequest(ctx, method, urlPath, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		if IsRetryableError(err) {
			return nil, err
		}
		return nil, &ApiError{Message: err.Error()}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var meta CollectionMetadata
		if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
			return nil, &ApiError{StatusCode: resp.StatusCode, Message: err.Error()}
		}
		return &meta, nil
	case http.StatusConflict:
		if method == http.MethodPut {
			return nil, &ConflictError{Timestamp: timestamp}
		}
		return nil, &NonUniqueTimestampError{Timestamp: timestamp}
	default:
		return nil, &ApiError{StatusCode: resp.StatusCode, Message: resp.Status}
	}
}

func (c *Client) newRequest(ctx context.Context, method, urlPath string, body []byte) (*http.Request, error) {
	u := c.conf.Endpoint + urlPath

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, u, bytes.NewReader(body))
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u, nil)
	}
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if deadline, ok := ctx.Deadline(); ok {
		if ms := time.Until(deadline).Milliseconds(); ms > 0 {
			req.Header.Set("X-Timeout-Milliseconds", fmt.Sprintf("%d", ms))
		}
	}

	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if c.conf.DebugHTTP && resp.StatusCode/100 != 2 {
		dump, err := httputil.DumpResponse(resp, true)
		if err != nil {
			c.logger.Debug("ingestclient: %s %s -> %s (could not dump response: %v)", req.Method, req.URL, resp.Status, err)
		} else {
			c.logger.Debug("ingestclient: %s %s -> %s\n%s", req.Method, req.URL, resp.Status, dump)
		}
	}
	return resp, nil
}
