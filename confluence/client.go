// Package confluence is a small client for the Confluence Cloud REST API
// covering what the editor relay needs: permission checks, attachment
// metadata, download links, attachment uploads and user lookups.
package confluence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/onlyoffice-confluence/internal/errors"
	"github.com/jrsteele09/onlyoffice-confluence/internal/retry"
)

const maxErrorBody = 64 << 10

// Client calls one tenant's Confluence. Authentication is done by the
// transport of the underlying http.Client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	noRedirect *http.Client
	policy     retry.Policy
}

// New creates a client for baseURL (the tenant base ending in /wiki).
func New(baseURL string, httpClient *http.Client, policy retry.Policy) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	noRedirect := *httpClient
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		noRedirect: &noRedirect,
		policy:     policy,
	}
}

// BaseURL is the tenant base the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

type apiCall struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	headers     map[string]string
	noRedirect  bool
}

// do runs one REST call under the retry policy. The response body is closed
// unless the caller takes ownership through handle.
func (c *Client) do(ctx context.Context, name string, call apiCall, handle func(*http.Response) error) error {
	target := c.baseURL + call.path
	if len(call.query) > 0 {
		target += "?" + call.query.Encode()
	}
	client := c.httpClient
	if call.noRedirect {
		client = c.noRedirect
	}

	return c.policy.Do(ctx, func(ctx context.Context) error {
		var body io.Reader
		if call.body != nil {
			body = bytes.NewReader(call.body)
		}
		req, err := http.NewRequestWithContext(ctx, call.method, target, body)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if call.contentType != "" {
			req.Header.Set("Content-Type", call.contentType)
		}
		for k, v := range call.headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if !successful(resp.StatusCode) && !(call.noRedirect && redirected(resp.StatusCode)) {
			return upstreamError(name, resp)
		}
		if handle == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		return handle(resp)
	})
}

func (c *Client) getJSON(ctx context.Context, name, path string, query url.Values, out any) error {
	return c.do(ctx, name, apiCall{method: http.MethodGet, path: path, query: query}, decodeInto(name, out))
}

func (c *Client) postJSON(ctx context.Context, name, path string, in, out any, headers map[string]string) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	call := apiCall{
		method:      http.MethodPost,
		path:        path,
		body:        body,
		contentType: "application/json",
		headers:     headers,
	}
	return c.do(ctx, name, call, decodeInto(name, out))
}

func decodeInto(name string, out any) func(*http.Response) error {
	return func(resp *http.Response) error {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: decoding response: %w", name, err)
		}
		return nil
	}
}

// successful mirrors the host API convention: any 2xx, plus 303.
func successful(code int) bool {
	return (code >= 200 && code < 300) || code == http.StatusSeeOther
}

func redirected(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func upstreamError(name string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Message string `json:"message"`
	}
	message := ""
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		message = body.Message
	}
	return &errors.UpstreamError{
		Method:  name,
		Code:    resp.StatusCode,
		Status:  http.StatusText(resp.StatusCode),
		Message: message,
	}
}

func escape(id string) string { return url.PathEscape(id) }
