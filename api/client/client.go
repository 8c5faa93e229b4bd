// Package client is a typed HTTP client of the davinci-dao API. Requests to
// the mutating endpoints are signed with the key of the client.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/vocdoni/davinci-dao/api"
	"github.com/vocdoni/davinci-dao/log"
)

const (
	// DefaultRetries is the number of attempts of a request whose
	// connection fails. Requests answered by the server are never retried.
	DefaultRetries = 3
	// DefaultTimeout is the default timeout for the HTTP client
	DefaultTimeout = 10 * time.Second

	retryDelay = 500 * time.Millisecond
)

// HTTPclient is the davinci-dao API HTTP client.
type HTTPclient struct {
	c       *http.Client
	host    *url.URL
	retries int
}

// New returns a client of the API served at host. It pings the host to
// check it is reachable.
func New(ctx context.Context, host string) (*HTTPclient, error) {
	hostURL, err := url.Parse(host)
	if err != nil {
		return nil, err
	}
	c := &HTTPclient{
		c: &http.Client{
			Transport: &http.Transport{IdleConnTimeout: DefaultTimeout},
			Timeout:   DefaultTimeout,
		},
		host:    hostURL,
		retries: DefaultRetries,
	}
	log.Debugw("http client created", "host", hostURL.String())
	if err := c.Ping(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// SetRetries configures the number of attempts of a request.
func (c *HTTPclient) SetRetries(n int) {
	c.retries = max(n, 1)
}

// SetTimeout configures the timeout for the HTTP client.
func (c *HTTPclient) SetTimeout(d time.Duration) {
	c.c.Timeout = d
}

// Request performs a raw request with an optional JSON body to the endpoint
// made of the joined urlPath segments. It returns the response body and
// status code.
func (c *HTTPclient) Request(ctx context.Context, method string, jsonBody any, urlPath ...string) ([]byte, int, error) {
	var body []byte
	if jsonBody != nil {
		var err error
		if body, err = json.Marshal(jsonBody); err != nil {
			return nil, 0, fmt.Errorf("failed to marshal JSON: %w", err)
		}
	}
	u := *c.host
	u.Path = path.Join(u.Path, path.Join(urlPath...))

	log.Debugw("http client request", "type", method, "url", u.String(), "bodySize", len(body))

	var (
		resp *http.Response
		err  error
	)
	for i := 1; i <= c.retries; i++ {
		req, rerr := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
		if rerr != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", rerr)
		}
		if jsonBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err = c.c.Do(req)
		if err == nil {
			break
		}
		log.Warnw("http request failed", "error", err.Error(), "attempt", i, "retries", c.retries)
		if i == c.retries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	if err != nil {
		return nil, 0, fmt.Errorf("http request ultimately failed after retries: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warnw("failed to close response body", "error", err)
		}
	}()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, resp.StatusCode, nil
}

// call performs a request and decodes a successful JSON response into out,
// which may be nil. Error responses are returned as api.Error values, so
// callers can match them with errors.Is against the api error definitions.
func (c *HTTPclient) call(ctx context.Context, method string, in, out any, urlPath string) error {
	data, status, err := c.Request(ctx, method, in, urlPath)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return decodeError(data, status)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}
	return nil
}

func decodeError(data []byte, status int) error {
	var body struct {
		Err  string `json:"error"`
		Code int    `json:"code"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Code == 0 {
		return fmt.Errorf("API error: %d (%s)", status, bytes.TrimSpace(data))
	}
	return api.Error{Err: errors.New(body.Err), Code: body.Code, HTTPstatus: status}
}

// Ping checks the API is up.
func (c *HTTPclient) Ping(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, nil, nil, api.PingEndpoint)
}

// Info returns the verifier configuration and limits of the node.
func (c *HTTPclient) Info(ctx context.Context) (*api.InfoResponse, error) {
	info := &api.InfoResponse{}
	if err := c.call(ctx, http.MethodGet, nil, info, api.InfoEndpoint); err != nil {
		return nil, err
	}
	return info, nil
}
