package squarecloud

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// Option configures a Client.
type Option func(*HTTPClient)

// WithBaseURL overrides the API base URL. Mainly useful in tests.
func WithBaseURL(base string) Option {
	return func(c *HTTPClient) { c.base = base }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.client = hc }
}

// WithLogger sets the transport logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *HTTPClient) { c.log = log }
}

// Client is a typed client for the Square Cloud API. A Client with an
// empty API key can only use public routes.
type Client struct {
	http *HTTPClient
}

// New creates a Client.
func New(apiKey string, opts ...Option) *Client {
	hc := NewHTTPClient(apiKey)
	for _, opt := range opts {
		opt(hc)
	}
	return &Client{http: hc}
}

// Me returns the account bound to the API key, including its applications.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var w wireUser
	if err := c.http.RequestJSON(ctx, Route{Method: "GET", Path: "/user"}, &w); err != nil {
		return nil, err
	}
	return w.toUser()
}

// GetAllApps returns all of the user's applications. The API has no
// dedicated endpoint for this; the list is the one embedded in the
// user profile, so this costs a single request.
func (c *Client) GetAllApps(ctx context.Context) ([]PartialApplication, error) {
	me, err := c.Me(ctx)
	if err != nil {
		return nil, err
	}
	return me.Apps, nil
}

// GetApp returns an application by ID.
func (c *Client) GetApp(ctx context.Context, id string) (*Application, error) {
	var w wireApplication
	route := Route{Method: "GET", Path: "/apps/{app_id}", Params: map[string]string{"app_id": id}}
	if err := c.http.RequestJSON(ctx, route, &w); err != nil {
		return nil, err
	}
	app, err := w.toApplication(c)
	if err != nil {
		return nil, err
	}
	app.client = c
	return app, nil
}

// GetAppStatus returns the current status of an application.
func (c *Client) GetAppStatus(ctx context.Context, id string) (*ApplicationStatus, error) {
	var w wireApplicationStatus
	route := Route{Method: "GET", Path: "/apps/{app_id}/status", Params: map[string]string{"app_id": id}}
	if err := c.http.RequestJSON(ctx, route, &w); err != nil {
		return nil, err
	}
	return w.toStatus(), nil
}

// GetAllAppsStatus returns the partial status of every application.
func (c *Client) GetAllAppsStatus(ctx context.Context) ([]PartialApplicationStatus, error) {
	var statuses []PartialApplicationStatus
	route := Route{Method: "GET", Path: "/apps/all/status"}
	if err := c.http.RequestJSON(ctx, route, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// GetAppLogs returns the latest logs of an application.
func (c *Client) GetAppLogs(ctx context.Context, id string) (string, error) {
	var payload struct {
		Logs string `json:"logs"`
	}
	route := Route{Method: "GET", Path: "/apps/{app_id}/logs", Params: map[string]string{"app_id": id}}
	if err := c.http.RequestJSON(ctx, route, &payload); err != nil {
		return "", err
	}
	return payload.Logs, nil
}

// StartApp starts an application.
func (c *Client) StartApp(ctx context.Context, id string) error {
	route := Route{Method: "POST", Path: "/apps/{app_id}/start", Params: map[string]string{"app_id": id}}
	return c.http.RequestJSON(ctx, route, nil)
}

// RestartApp restarts an application.
func (c *Client) RestartApp(ctx context.Context, id string) error {
	route := Route{Method: "POST", Path: "/apps/{app_id}/restart", Params: map[string]string{"app_id": id}}
	return c.http.RequestJSON(ctx, route, nil)
}

// StopApp stops an application.
func (c *Client) StopApp(ctx context.Context, id string) error {
	route := Route{Method: "POST", Path: "/apps/{app_id}/stop", Params: map[string]string{"app_id": id}}
	return c.http.RequestJSON(ctx, route, nil)
}

// GetBackupURL returns a URL to download a backup of the application files.
func (c *Client) GetBackupURL(ctx context.Context, id string) (string, error) {
	var payload struct {
		DownloadURL string `json:"downloadURL"`
	}
	route := Route{Method: "GET", Path: "/apps/{app_id}/backup", Params: map[string]string{"app_id": id}}
	if err := c.http.RequestJSON(ctx, route, &payload); err != nil {
		return "", err
	}
	return payload.DownloadURL, nil
}

// Upload uploads a new application archive to the host.
func (c *Client) Upload(ctx context.Context, file *File) (*UploadedApplication, error) {
	var app UploadedApplication
	route := Route{Method: "POST", Path: "/apps/upload"}
	if err := c.http.RequestFile(ctx, route, file, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// Commit uploads a new file tree to an existing application,
// optionally restarting it.
func (c *Client) Commit(ctx context.Context, id string, file *File, restart bool) error {
	route := Route{
		Method: "POST",
		Path:   "/apps/{app_id}/commit?restart={restart}",
		Params: map[string]string{"app_id": id, "restart": strconv.FormatBool(restart)},
	}
	return c.http.RequestFile(ctx, route, file, nil)
}

// DeleteApp permanently deletes an application.
func (c *Client) DeleteApp(ctx context.Context, id string) error {
	route := Route{Method: "DELETE", Path: "/apps/{app_id}/delete", Params: map[string]string{"app_id": id}}
	return c.http.RequestJSON(ctx, route, nil)
}

// GetServiceStatistics returns public host-wide statistics.
func (c *Client) GetServiceStatistics(ctx context.Context) (*ServiceStatistics, error) {
	var w wireStatistics
	if err := c.http.RequestJSON(ctx, Route{Method: "GET", Path: "/service/statistics"}, &w); err != nil {
		return nil, err
	}
	return w.toStatistics(), nil
}
