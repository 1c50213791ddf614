package squarecloud

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// The API returns network usage pre-formatted, e.g. "1.2 GB".
var networkRe = regexp.MustCompile(`\d+(?:\.\d+)?\s*[KMGT]?B`)

// PartialApplication is the application snapshot embedded in the user
// profile response.
type PartialApplication struct {
	ID          string `json:"id"`
	Name        string `json:"tag"`
	Description string `json:"desc"`
	RAM         int    `json:"ram"`
	Lang        string `json:"lang"`
	Cluster     string `json:"cluster"`
	IsWebsite   bool   `json:"isWebsite"`
}

// NetworkUsage holds a formatted upload/download byte quantity pair.
type NetworkUsage struct {
	Up   string
	Down string
}

// ParseNetworkUsage extracts the up/down pair from a server-formatted
// string such as "1.2GB ↑ 500MB ↓".
func ParseNetworkUsage(s string) NetworkUsage {
	matches := networkRe.FindAllString(s, -1)
	var usage NetworkUsage
	if len(matches) > 0 {
		usage.Up = strings.ReplaceAll(matches[0], " ", "")
	}
	if len(matches) > 1 {
		usage.Down = strings.ReplaceAll(matches[1], " ", "")
	}
	return usage
}

func (n NetworkUsage) String() string {
	return fmt.Sprintf("%s ↑ %s ↓", n.Up, n.Down)
}

// ApplicationNetwork is the application's network usage, current and total.
type ApplicationNetwork struct {
	Total NetworkUsage
	Now   NetworkUsage
}

// ApplicationStatus is a point in time snapshot of an application's
// resource usage. Staleness is the caller's responsibility.
type ApplicationStatus struct {
	CPU      string
	RAM      string
	Status   string
	Running  bool
	Storage  string
	Network  ApplicationNetwork
	Requests int
	Uptime   *time.Time
}

type wireApplicationStatus struct {
	CPU     string `json:"cpu"`
	RAM     string `json:"ram"`
	Status  string `json:"status"`
	Running bool   `json:"running"`
	Storage string `json:"storage"`
	Network struct {
		Total string `json:"total"`
		Now   string `json:"now"`
	} `json:"network"`
	Requests int   `json:"requests"`
	Uptime   int64 `json:"uptime"`
}

func (w wireApplicationStatus) toStatus() *ApplicationStatus {
	status := &ApplicationStatus{
		CPU:     w.CPU,
		RAM:     w.RAM,
		Status:  w.Status,
		Running: w.Running,
		Storage: w.Storage,
		Network: ApplicationNetwork{
			Total: ParseNetworkUsage(w.Network.Total),
			Now:   ParseNetworkUsage(w.Network.Now),
		},
		Requests: w.Requests,
	}
	if w.Uptime != 0 {
		t := time.UnixMilli(w.Uptime).UTC()
		status.Uptime = &t
	}
	return status
}

// PartialApplicationStatus is the per-application entry of the
// all-applications status endpoint.
type PartialApplicationStatus struct {
	ID      string `json:"id"`
	CPU     string `json:"cpu"`
	RAM     string `json:"ram"`
	Running bool   `json:"running"`
}

// Application is a full application as returned by the single
// application endpoint. It caches the latest fetched status and logs;
// both caches start empty and are only valid after a successful fetch.
type Application struct {
	ID             string
	Name           string
	Description    string
	Cluster        string
	RAM            int
	Language       string
	Domain         string
	Custom         string
	IsWebsite      bool
	GitIntegration bool

	client *Client
	status *ApplicationStatus
	logs   *string
}

type wireApplication struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"desc"`
	Cluster        string `json:"cluster"`
	RAM            int    `json:"ram"`
	Language       string `json:"language"`
	Domain         string `json:"domain"`
	Custom         string `json:"custom"`
	IsWebsite      bool   `json:"isWebsite"`
	GitIntegration bool   `json:"gitIntegration"`
}

func (w wireApplication) toApplication(c *Client) (*Application, error) {
	if w.ID == "" {
		return nil, fmt.Errorf("malformed application payload: missing id")
	}
	return &Application{
		ID:             w.ID,
		Name:           w.Name,
		Description:    w.Description,
		Cluster:        w.Cluster,
		RAM:            w.RAM,
		Language:       w.Language,
		Domain:         w.Domain,
		Custom:         w.Custom,
		IsWebsite:      w.IsWebsite,
		GitIntegration: w.GitIntegration,
	}, nil
}

// Status returns the cached status. Calling it before a successful
// FetchStatus is a programming error.
func (a *Application) Status() *ApplicationStatus {
	if a.status == nil {
		panic("squarecloud: Application.Status read before FetchStatus")
	}
	return a.status
}

// HasStatus reports whether a status has been fetched.
func (a *Application) HasStatus() bool { return a.status != nil }

// Logs returns the cached logs. Calling it before a successful
// FetchLogs is a programming error.
func (a *Application) Logs() string {
	if a.logs == nil {
		panic("squarecloud: Application.Logs read before FetchLogs")
	}
	return *a.logs
}

// HasLogs reports whether logs have been fetched.
func (a *Application) HasLogs() bool { return a.logs != nil }

// Clear drops the cached status and logs.
func (a *Application) Clear() {
	a.status = nil
	a.logs = nil
}

// FetchStatus fetches the application status and updates the cache.
func (a *Application) FetchStatus(ctx context.Context) (*ApplicationStatus, error) {
	status, err := a.client.GetAppStatus(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	a.status = status
	return status, nil
}

// FetchLogs fetches the application logs and updates the cache.
func (a *Application) FetchLogs(ctx context.Context) (string, error) {
	logs, err := a.client.GetAppLogs(ctx, a.ID)
	if err != nil {
		return "", err
	}
	a.logs = &logs
	return logs, nil
}

// Start starts the application.
func (a *Application) Start(ctx context.Context) error {
	return a.client.StartApp(ctx, a.ID)
}

// Restart restarts the application.
func (a *Application) Restart(ctx context.Context) error {
	return a.client.RestartApp(ctx, a.ID)
}

// Stop stops the application.
func (a *Application) Stop(ctx context.Context) error {
	return a.client.StopApp(ctx, a.ID)
}

// BackupURL returns a URL to download a backup of the application files.
func (a *Application) BackupURL(ctx context.Context) (string, error) {
	return a.client.GetBackupURL(ctx, a.ID)
}

// Delete deletes the application from the host.
func (a *Application) Delete(ctx context.Context) error {
	return a.client.DeleteApp(ctx, a.ID)
}

// ApplicationLanguage is the runtime of an uploaded application.
// Version is either "recommended" or "latest".
type ApplicationLanguage struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// UploadedApplication is returned after a successful upload.
type UploadedApplication struct {
	ID          string              `json:"id"`
	Name        string              `json:"tag"`
	Description string              `json:"description"`
	Subdomain   string              `json:"subdomain"`
	RAM         int                 `json:"ram"`
	CPU         int                 `json:"cpu"`
	Language    ApplicationLanguage `json:"language"`
}
