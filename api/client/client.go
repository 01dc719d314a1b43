// Package client is a typed HTTP client for the pool API, used by wallets
// and tests.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"go.vocdoni.io/dvote/log"

	"github.com/zknote/shieldpool/api"
	"github.com/zknote/shieldpool/ledger"
)

const (
	// HTTPGET is the method string used for calling Request()
	HTTPGET = http.MethodGet
	// HTTPPOST is the method string used for calling Request()
	HTTPPOST = http.MethodPost

	errCodeNot200 = "API error"

	// DefaultRetries this enables Request() to handle the situation where the server connection fails
	DefaultRetries = 3
	// DefaultTimeout is the default timeout for the HTTP client
	DefaultTimeout = 10 * time.Second
)

// HTTPclient is the pool API HTTP client.
type HTTPclient struct {
	c       *http.Client
	host    *url.URL
	retries int
}

// New connects to the API host and returns the handle.
func New(host string) (*HTTPclient, error) {
	hostURL, err := url.Parse(host)
	if err != nil {
		return nil, err
	}

	tr := &http.Transport{
		IdleConnTimeout:    DefaultTimeout,
		DisableCompression: false,
		WriteBufferSize:    1 * 1024 * 1024, // 1 MiB
		ReadBufferSize:     1 * 1024 * 1024, // 1 MiB
	}
	c := &HTTPclient{
		c:       &http.Client{Transport: tr, Timeout: DefaultTimeout},
		host:    hostURL,
		retries: DefaultRetries,
	}
	log.Debugw("http client created", "host", hostURL.String())
	data, status, err := c.Request(HTTPGET, nil, nil, api.PingEndpoint)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	return c, nil
}

// SetRetries configures the number of retries for the HTTP client.
func (c *HTTPclient) SetRetries(n int) {
	c.retries = n
}

// SetTimeout configures the timeout for the HTTP client.
func (c *HTTPclient) SetTimeout(d time.Duration) {
	c.c.Timeout = d
	if c.c.Transport != nil {
		if tr, ok := c.c.Transport.(*http.Transport); ok {
			tr.ResponseHeaderTimeout = d
		}
	}
}

// Root fetches the current accumulator root and leaf count.
func (c *HTTPclient) Root() (*api.RootResponse, error) {
	resp := &api.RootResponse{}
	if err := c.requestJSON(HTTPGET, nil, nil, resp, api.RootEndpoint); err != nil {
		return nil, err
	}
	return resp, nil
}

// IsKnownRoot reports whether the root (decimal string) is a valid anchor.
func (c *HTTPclient) IsKnownRoot(root string) (bool, error) {
	resp := &api.KnownRootResponse{}
	if err := c.requestJSON(HTTPGET, nil, nil, resp, "/roots", root); err != nil {
		return false, err
	}
	return resp.Known, nil
}

// NullifierSpent reports whether the nullifier (decimal string) is recorded.
func (c *HTTPclient) NullifierSpent(nullifier string) (bool, error) {
	resp := &api.NullifierResponse{}
	if err := c.requestJSON(HTTPGET, nil, nil, resp, "/nullifiers", nullifier); err != nil {
		return false, err
	}
	return resp.Spent, nil
}

// SubmitTransfer posts a transfer submission.
func (c *HTTPclient) SubmitTransfer(sub *ledger.TransferSubmission) (*ledger.Receipt, error) {
	receipt := &ledger.Receipt{}
	if err := c.requestJSON(HTTPPOST, sub, nil, receipt, api.TransfersEndpoint); err != nil {
		return nil, err
	}
	return receipt, nil
}

// SubmitWithdraw posts a withdraw submission.
func (c *HTTPclient) SubmitWithdraw(sub *ledger.WithdrawSubmission) (*ledger.Receipt, error) {
	receipt := &ledger.Receipt{}
	if err := c.requestJSON(HTTPPOST, sub, nil, receipt, api.WithdrawalsEndpoint); err != nil {
		return nil, err
	}
	return receipt, nil
}

// Events fetches the insertion feed starting at leaf index from.
func (c *HTTPclient) Events(from uint64) ([]*ledger.Event, error) {
	resp := &api.EventsResponse{}
	params := []string{"from", strconv.FormatUint(from, 10)}
	if err := c.requestJSON(HTTPGET, nil, params, resp, api.EventsEndpoint); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// requestJSON performs a request and decodes a 200 response into out.
func (c *HTTPclient) requestJSON(method string, jsonBody any, params []string, out any, urlPath ...string) error {
	data, status, err := c.Request(method, jsonBody, params, urlPath...)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	return json.Unmarshal(data, out)
}

// Request performs a `method` type raw request to the endpoint specified in urlPath parameter.
// Method is either GET or POST. If POST, a JSON struct should be attached. Returns the response,
// the status code and an error.
//
// Supports query parameters via `params` slice. If the slice is not empty, it should contain pairs of strings;
// the first element of each pair is the key, and the second element is the value.
func (c *HTTPclient) Request(method string, jsonBody any, params []string, urlPath ...string) ([]byte, int, error) {
	var (
		body []byte
		err  error
	)

	if jsonBody != nil {
		body, err = json.Marshal(jsonBody)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal JSON: %w", err)
		}
	}

	u, err := url.Parse(c.host.String())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse host URL: %w", err)
	}
	u.Path = path.Join(u.Path, path.Join(urlPath...))

	// Expecting even-length slice: [key1, val1, key2, val2, ...]
	if len(params) > 0 {
		values := url.Values{}
		for i := 0; i < len(params)-1; i += 2 {
			values.Set(params[i], params[i+1])
		}
		u.RawQuery = values.Encode()
	}

	headers := http.Header{}
	if jsonBody != nil {
		headers.Set("Content-Type", "application/json")
		headers.Set("Accept", "application/json")
	}

	log.Debugw("http client request",
		"type", method,
		"url", u.String(),
		"body", func() string {
			if len(body) > 512 {
				return string(body[:512]) + "..."
			}
			return string(body)
		}(),
	)

	var resp *http.Response
	for i := 1; i <= c.retries; i++ {
		var reqBody io.ReadCloser
		if body != nil {
			reqBody = io.NopCloser(bytes.NewReader(body))
		}
		req, reqErr := http.NewRequest(method, u.String(), reqBody)
		if reqErr != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", reqErr)
		}
		req.Header = headers

		resp, err = c.c.Do(req)
		if err != nil {
			log.Warnw("http request failed", "error", err.Error(), "attempt", i, "retries", c.retries)
			time.Sleep(500 * time.Millisecond)
			continue
		}
		break
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
