package squarecloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BaseURL is the versioned base of the Square Cloud REST API.
const BaseURL = "https://api.squarecloud.app/v2"

// Some routes take a long time to respond, uploads in particular.
const requestTimeout = 60 * time.Second

// Route describes a single API endpoint. Path placeholders use the
// {name} syntax and are filled from Params with percent-encoding.
type Route struct {
	Method string
	Path   string
	Params map[string]string
}

// URL resolves the route against base.
func (r Route) URL(base string) string {
	path := r.Path
	for name, value := range r.Params {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}
	return base + path
}

// HTTPClient sends requests to the Square Cloud API and maps responses
// to typed errors. A single HTTPClient is safe for concurrent use; the
// underlying connection pool is created on first request.
type HTTPClient struct {
	apiKey string
	base   string
	log    *zap.Logger

	once   sync.Once
	client *http.Client
}

// NewHTTPClient creates a transport. An empty apiKey is valid and
// restricts the client to public routes.
func NewHTTPClient(apiKey string) *HTTPClient {
	return &HTTPClient{
		apiKey: apiKey,
		base:   BaseURL,
		log:    zap.NewNop(),
	}
}

func (c *HTTPClient) httpClient() *http.Client {
	c.once.Do(func() {
		if c.client == nil {
			c.client = &http.Client{Timeout: requestTimeout}
		}
	})
	return c.client
}

// envelope is the {status, code, response} wrapper most endpoints use
// around the actual payload.
type envelope struct {
	Status   string          `json:"status"`
	Code     string          `json:"code"`
	Response json.RawMessage `json:"response"`
}

// Request sends an API request and returns the unwrapped JSON payload.
// Responses with a 2xx status but an embedded "error" status are
// reported as failures just like non-2xx responses.
func (c *HTTPClient) Request(ctx context.Context, route Route, body io.Reader, contentType string) (json.RawMessage, error) {
	u := route.URL(c.base)

	req, err := http.NewRequestWithContext(ctx, route.Method, u, body)
	if err != nil {
		return nil, err
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	c.log.Debug("api request",
		zap.String("method", route.Method),
		zap.String("url", u),
		zap.Int("status", resp.StatusCode),
	)

	var env envelope
	jsonBody := json.Unmarshal(raw, &env) == nil

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && (!jsonBody || env.Status != "error") {
		if env.Response != nil {
			return env.Response, nil
		}
		return raw, nil
	}

	code := UnknownCode
	if jsonBody && env.Code != "" {
		code = env.Code
	}

	httpErr := HTTPError{Status: resp.StatusCode, Code: code}
	c.log.Error("api request failed",
		zap.String("method", route.Method),
		zap.String("url", u),
		zap.Int("status", resp.StatusCode),
		zap.String("code", code),
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized, code == "ACCESS_DENIED":
		return nil, &AuthenticationError{httpErr}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &NotFoundError{httpErr}
	default:
		return nil, &httpErr
	}
}

// RequestJSON sends the request and decodes the unwrapped payload into out.
func (c *HTTPClient) RequestJSON(ctx context.Context, route Route, out any) error {
	data, err := c.Request(ctx, route, nil, "")
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("malformed %s payload: %w", route.Path, err)
	}
	return nil
}

// RequestFile sends a multipart request carrying file in the "file"
// form field. The file stream is rewound first since callers may have
// read it for validation.
func (c *HTTPClient) RequestFile(ctx context.Context, route Route, file *File, out any) error {
	if err := file.rewind(); err != nil {
		return err
	}

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	part, err := writer.CreateFormFile("file", file.Name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file.Reader); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	data, err := c.Request(ctx, route, buf, writer.FormDataContentType())
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("malformed %s payload: %w", route.Path, err)
	}
	return nil
}
