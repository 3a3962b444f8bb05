package printful

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ynnoj/gatsby-source-printful/pkg/auth"
	"github.com/ynnoj/gatsby-source-printful/pkg/config"
	"github.com/ynnoj/gatsby-source-printful/pkg/errors"
	"github.com/ynnoj/gatsby-source-printful/pkg/transport/rest"
)

// maxErrorBody bounds how much of an error response is kept
const maxErrorBody = 64 << 10

// Client is a read-only accessor for the Printful REST API. It holds no
// mutable state and is safe for concurrent use.
type Client struct {
	httpClient rest.HTTPDoer
	baseURL    string
	auth       auth.Handler
	headers    map[string]string
}

// ClientOption defines config for Client
type ClientOption func(*Client)

// WithHTTPDoer replaces the HTTP client, mostly for tests
func WithHTTPDoer(doer rest.HTTPDoer) ClientOption {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithHeader adds a header to all requests
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// NewClient creates a Client for the configured source
func NewClient(src config.Source, options ...ClientOption) (*Client, error) {
	h, err := auth.CreateHandler(src)
	if err != nil {
		return nil, err
	}

	client := &Client{
		httpClient: rest.NewHTTPClient(src),
		baseURL:    src.BaseURL,
		auth:       h,
		headers:    map[string]string{"Accept": "application/json"},
	}

	for _, option := range options {
		option(client)
	}

	return client, nil
}

// Get performs a GET request and decodes the response envelope. A non-2xx
// status fails with *errors.APIError carrying the raw body.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	resp, err := rest.RequestHelper(ctx, c.httpClient, http.MethodGet, c.baseURL, path, c.headers, c.auth)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrHTTPRequest, "GET "+path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &errors.APIError{
			StatusCode: resp.StatusCode,
			Path:       path,
			Body:       string(bytes.TrimSpace(body)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrHTTPResponse, "read body of "+path)
	}

	var envelope Response
	if err := Decode(body, &envelope); err != nil {
		return nil, errors.WrapError(err, errors.ErrHTTPResponse, "decode envelope of "+path)
	}

	return &envelope, nil
}

// GetResult performs a GET and decodes the envelope's result into target
func (c *Client) GetResult(ctx context.Context, path string, target interface{}) error {
	envelope, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return errors.WrapError(
			fmt.Errorf("response has no result"),
			errors.ErrExtraction,
			"GET "+path,
		)
	}
	if err := Decode(envelope.Result, target); err != nil {
		return errors.WrapError(err, errors.ErrExtraction, "decode result of "+path)
	}
	return nil
}

// Decode unmarshals JSON keeping numbers as json.Number
func Decode(data []byte, target interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(target)
}
