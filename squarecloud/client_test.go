package squarecloud

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

const userPayload = `{
	"status": "success",
	"response": {
		"user": {
			"id": "1234",
			"tag": "joab",
			"email": "joab@example.com",
			"plan": {
				"name": "standard",
				"memory": {"limit": 1024, "available": 512, "used": 512},
				"duration": 0
			}
		},
		"applications": [
			{"id": "a1", "tag": "bot-one", "ram": 256, "lang": "go", "cluster": "fl-1", "isWebsite": false},
			{"id": "a2", "tag": "site", "ram": 512, "lang": "js", "cluster": "fl-1", "isWebsite": true}
		]
	}
}`

func TestGetAllApps_SingleRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/user" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(userPayload))
	}))
	defer srv.Close()

	c := New("key", WithBaseURL(srv.URL))
	apps, err := c.GetAllApps(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(apps) != 2 {
		t.Fatalf("got %d apps, want 2", len(apps))
	}
	if apps[0].ID != "a1" || apps[0].Name != "bot-one" {
		t.Errorf("unexpected first app: %+v", apps[0])
	}
	if !apps[1].IsWebsite {
		t.Error("second app should be a website")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("made %d requests, want 1", n)
	}
}

func TestMe_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","response":{"user":{}}}`))
	}))
	defer srv.Close()

	c := New("key", WithBaseURL(srv.URL))
	if _, err := c.Me(context.Background()); err == nil {
		t.Fatal("expected error for user payload without id")
	}
}

func TestGetAppLogs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/apps/a1/logs" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"success","response":{"logs":"hello\nworld"}}`))
	}))
	defer srv.Close()

	c := New("key", WithBaseURL(srv.URL))
	logs, err := c.GetAppLogs(context.Background(), "a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logs != "hello\nworld" {
		t.Errorf("got %q", logs)
	}
}

func TestCommit_RestartParamAndMethod(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/apps/a1/commit" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("restart"); got != "true" {
			t.Errorf("restart = %q, want true", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parsing multipart form: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file field: %v", err)
		}
		defer file.Close()
		if header.Filename != "main.go" {
			t.Errorf("filename = %q", header.Filename)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "package main" {
			t.Errorf("file content = %q", data)
		}
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	c := New("key", WithBaseURL(srv.URL))
	file := NewFile("main.go", []byte("package main"))

	// Simulate a caller that already consumed the stream; the upload
	// must rewind before sending.
	io.Copy(io.Discard, file.Reader)

	if err := c.Commit(context.Background(), "a1", file, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/apps/upload" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		w.Write([]byte(`{
			"status": "success",
			"response": {
				"id": "n1",
				"tag": "fresh-app",
				"subdomain": "fresh-app.squareweb.app",
				"ram": 256,
				"cpu": 1,
				"language": {"name": "go", "version": "1.23"}
			}
		}`))
	}))
	defer srv.Close()

	c := New("key", WithBaseURL(srv.URL))
	app, err := c.Upload(context.Background(), NewFile("app.zip", []byte("fake zip")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if app.ID != "n1" || app.Name != "fresh-app" {
		t.Errorf("unexpected app: %+v", app)
	}
	if app.Language.Name != "go" || app.Language.Version != "1.23" {
		t.Errorf("unexpected language: %+v", app.Language)
	}
}

func TestDeleteApp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s, want DELETE", r.Method)
		}
		if r.URL.Path != "/apps/a1/delete" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	c := New("key", WithBaseURL(srv.URL))
	if err := c.DeleteApp(context.Background(), "a1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetBackupURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","response":{"downloadURL":"https://backups.example/b.zip"}}`))
	}))
	defer srv.Close()

	c := New("key", WithBaseURL(srv.URL))
	url, err := c.GetBackupURL(context.Background(), "a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://backups.example/b.zip" {
		t.Errorf("got %q", url)
	}
}
