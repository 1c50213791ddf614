package flow

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Joab0/squarecloud-manager/bot/locale"
	"github.com/Joab0/squarecloud-manager/squarecloud"
)

// fakeRenderer records every render instead of talking to Discord.
type fakeRenderer struct {
	mu       sync.Mutex
	responds []*View
	updates  []*View
	edits    []*View
	notices  []*View
	files    []string
	acks     int
}

func (r *fakeRenderer) Respond(i *discordgo.Interaction, v *View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responds = append(r.responds, v)
	return nil
}

func (r *fakeRenderer) Update(i *discordgo.Interaction, v *View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, v)
	return nil
}

func (r *fakeRenderer) Edit(i *discordgo.Interaction, v *View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edits = append(r.edits, v)
	return nil
}

func (r *fakeRenderer) Ack(i *discordgo.Interaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acks++
	return nil
}

func (r *fakeRenderer) Notify(i *discordgo.Interaction, v *View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, v)
	return nil
}

func (r *fakeRenderer) NotifyFile(i *discordgo.Interaction, name string, reader io.Reader) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, name)
	return nil
}

func (r *fakeRenderer) lastEdit() *View {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.edits) == 0 {
		return nil
	}
	return r.edits[len(r.edits)-1]
}

func (r *fakeRenderer) editCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.edits)
}

func (r *fakeRenderer) noticeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

func testTranslator(t *testing.T) *locale.Translator {
	t.Helper()

	dir := t.TempDir()
	catalog := `
common:
  back: Back
  confirm: Confirm
  cancel: Cancel
apps:
  loading: Loading...
  last_logs: Last logs
  select_app:
    title: Your applications
    description: Select an application.
    footer: Page {0}/{1}
    menu:
      label: Select an application
  status:
    uptime: Uptime
    cpu: CPU
    ram: RAM
    storage: Storage
    network_now: Network (now)
    network_total: Network (total)
    requests: Requests
  buttons:
    logs: Logs
    backup: Backup
    settings: Settings
  backup:
    success: Backup ready.
    download: Download
  settings:
    title: "{0} settings"
    description: Manage settings.
    delete: Delete
  delete:
    confirm: Delete {0}?
    success: "{0} deleted."
errors:
  api_error: "API error: {0}"
  unexpected_error: Unexpected error.
`
	if err := os.WriteFile(filepath.Join(dir, "en-US.yaml"), []byte(catalog), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := locale.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	return locale.NewTranslator(c, "en-US", nil)
}

// fakeAPI is a minimal app backend with a togglable running state.
type fakeAPI struct {
	mu      sync.Mutex
	running bool
	logs    string
	stops   int
	deletes int
	failAll bool
}

func (a *fakeAPI) server(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		defer a.mu.Unlock()

		if a.failAll {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"status":"error","code":"HOST_ON_FIRE"}`))
			return
		}

		switch {
		case r.URL.Path == "/apps/a1" && r.Method == http.MethodGet:
			w.Write([]byte(`{"status":"success","response":{"id":"a1","name":"bot-one","domain":"bot-one.squareweb.app","ram":256}}`))
		case r.URL.Path == "/apps/a1/status":
			fmt.Fprintf(w, `{"status":"success","response":{"cpu":"1%%","ram":"60MB","running":%t,"uptime":1700000000000,"network":{"total":"1 GB ↑ 2 GB ↓","now":"1 KB ↑ 2 KB ↓"}}}`, a.running)
		case r.URL.Path == "/apps/a1/logs":
			fmt.Fprintf(w, `{"status":"success","response":{"logs":%q}}`, a.logs)
		case r.URL.Path == "/apps/a1/stop":
			a.stops++
			a.running = false
			w.Write([]byte(`{"status":"success"}`))
		case r.URL.Path == "/apps/a1/start":
			a.running = true
			w.Write([]byte(`{"status":"success"}`))
		case r.URL.Path == "/apps/a1/delete":
			a.deletes++
			w.Write([]byte(`{"status":"success"}`))
		case r.URL.Path == "/apps/a1/backup":
			w.Write([]byte(`{"status":"success","response":{"downloadURL":"https://backups.example/a1.zip"}}`))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testFlow(t *testing.T, client *squarecloud.Client) (*Manager, *Flow, *fakeRenderer) {
	t.Helper()

	r := &fakeRenderer{}
	m := NewManager(r, nil)
	f := m.newFlow("user1", testTranslator(t), client)
	return m, f, r
}

func testApps(n int) []squarecloud.PartialApplication {
	apps := make([]squarecloud.PartialApplication, n)
	for i := range apps {
		apps[i] = squarecloud.PartialApplication{
			ID:   fmt.Sprintf("app-%d", i),
			Name: fmt.Sprintf("App %d", i),
		}
	}
	return apps
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never satisfied")
}

func TestSelectState_Pagination(t *testing.T) {
	_, f, _ := testFlow(t, nil)
	s := newSelect(testApps(60), 1)

	if got := s.maxPage(); got != 3 {
		t.Fatalf("maxPage = %d, want 3", got)
	}

	v := s.view(f)
	if len(v.Select.Options) != selectPageSize {
		t.Errorf("page 1 has %d options, want %d", len(v.Select.Options), selectPageSize)
	}
	if v.Footer != "Page 1/3" {
		t.Errorf("footer = %q", v.Footer)
	}
	if len(v.Buttons) != 2 || !v.Buttons[0].Disabled || v.Buttons[1].Disabled {
		t.Errorf("unexpected nav buttons: %+v", v.Buttons)
	}

	if _, err := s.handle(context.Background(), f, &Action{ID: "next"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.handle(context.Background(), f, &Action{ID: "next"}); err != nil {
		t.Fatal(err)
	}

	v = s.view(f)
	if len(v.Select.Options) != 10 {
		t.Errorf("last page has %d options, want 10", len(v.Select.Options))
	}
	if v.Footer != "Page 3/3" {
		t.Errorf("footer = %q", v.Footer)
	}
	if !v.Buttons[1].Disabled {
		t.Error("next should be disabled on the last page")
	}

	// Already at the end, next stays put.
	if _, err := s.handle(context.Background(), f, &Action{ID: "next"}); err != nil {
		t.Fatal(err)
	}
	if s.page != 3 {
		t.Errorf("page = %d, want 3", s.page)
	}
}

func TestSelectState_SinglePageHasNoNav(t *testing.T) {
	_, f, _ := testFlow(t, nil)
	s := newSelect(testApps(5), 1)

	if v := s.view(f); len(v.Buttons) != 0 {
		t.Errorf("got %d nav buttons, want none", len(v.Buttons))
	}
}

func TestNewSelect_ClampsPage(t *testing.T) {
	if s := newSelect(testApps(30), 99); s.page != 2 {
		t.Errorf("page = %d, want 2", s.page)
	}
	if s := newSelect(testApps(30), 0); s.page != 1 {
		t.Errorf("page = %d, want 1", s.page)
	}
	if s := newSelect(nil, 1); s.page != 1 || s.maxPage() != 1 {
		t.Errorf("empty list: page=%d maxPage=%d", s.page, s.maxPage())
	}
}

func TestManageState_StopTogglesButtons(t *testing.T) {
	api := &fakeAPI{running: true, logs: "booted"}
	srv := api.server(t)

	client := squarecloud.New("key", squarecloud.WithBaseURL(srv.URL))
	_, f, _ := testFlow(t, client)

	s, err := newManage(context.Background(), f, "a1")
	if err != nil {
		t.Fatal(err)
	}

	v := s.view(f)
	if !v.Buttons[0].Disabled {
		t.Error("start should be disabled while running")
	}
	if v.Buttons[2].Disabled {
		t.Error("stop should be enabled while running")
	}

	tr, err := s.handle(context.Background(), f, &Action{ID: "stop"})
	if err != nil {
		t.Fatal(err)
	}
	if tr.op != opStay {
		t.Errorf("op = %v, want stay", tr.op)
	}
	if api.stops != 1 {
		t.Errorf("stops = %d, want 1", api.stops)
	}

	v = s.view(f)
	if v.Buttons[0].Disabled {
		t.Error("start should be enabled after stopping")
	}
	if !v.Buttons[2].Disabled {
		t.Error("stop should be disabled after stopping")
	}
}

func TestManageState_BigLogsGoAsFile(t *testing.T) {
	api := &fakeAPI{running: true, logs: strings.Repeat("log line\n", 500)}
	srv := api.server(t)

	client := squarecloud.New("key", squarecloud.WithBaseURL(srv.URL))
	_, f, r := testFlow(t, client)

	s, err := newManage(context.Background(), f, "a1")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.handle(context.Background(), f, &Action{ID: "logs"}); err != nil {
		t.Fatal(err)
	}

	if len(r.files) != 1 || r.files[0] != "logs-bot-one.txt" {
		t.Errorf("files = %v", r.files)
	}
	if len(r.notices) != 0 {
		t.Errorf("got %d embed notices, want the file path instead", len(r.notices))
	}
}

func TestManageState_SmallLogsGoInline(t *testing.T) {
	api := &fakeAPI{running: true, logs: "just one line"}
	srv := api.server(t)

	client := squarecloud.New("key", squarecloud.WithBaseURL(srv.URL))
	_, f, r := testFlow(t, client)

	s, err := newManage(context.Background(), f, "a1")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.handle(context.Background(), f, &Action{ID: "logs"}); err != nil {
		t.Fatal(err)
	}

	if len(r.files) != 0 {
		t.Errorf("files = %v, want none", r.files)
	}
	if len(r.notices) != 1 || !strings.Contains(r.notices[0].Description, "just one line") {
		t.Errorf("notices = %+v", r.notices)
	}
}

func TestLastLogLines(t *testing.T) {
	logs := "a\nb\nc\nd\ne\nf\ng\n"
	if got := lastLogLines(logs); got != "c\nd\ne\nf\ng" {
		t.Errorf("got %q", got)
	}

	long := strings.Repeat("x", 2*logPreviewChars)
	if got := lastLogLines(long); len(got) != logPreviewChars {
		t.Errorf("len = %d, want %d", len(got), logPreviewChars)
	}
}

func TestConfirmState(t *testing.T) {
	_, f, _ := testFlow(t, nil)

	var got *bool
	s := &confirmState{
		prompt: "sure?",
		done: func(ctx context.Context, f *Flow, answer *bool) (transition, error) {
			got = answer
			return stay(), nil
		},
	}

	if _, err := s.handle(context.Background(), f, &Action{ID: "confirm"}); err != nil {
		t.Fatal(err)
	}
	if got == nil || !*got {
		t.Errorf("answer = %v, want true", got)
	}

	if _, err := s.handle(context.Background(), f, &Action{ID: "cancel"}); err != nil {
		t.Fatal(err)
	}
	if got == nil || *got {
		t.Errorf("answer = %v, want false", got)
	}

	got = new(bool)
	s.expire(context.Background(), f)
	if got != nil {
		t.Errorf("answer = %v, want nil on expiry", got)
	}
}

func TestFlowRun_ErrorKeepsDialogAlive(t *testing.T) {
	api := &fakeAPI{running: true, logs: "booted"}
	srv := api.server(t)

	client := squarecloud.New("key", squarecloud.WithBaseURL(srv.URL))
	m, f, r := testFlow(t, client)

	s, err := newManage(context.Background(), f, "a1")
	if err != nil {
		t.Fatal(err)
	}
	f.stack = []state{s}
	m.register(f)
	go f.run(context.Background())

	// Every API call fails from now on; the action must surface a
	// notice and leave the dialog interactive.
	api.mu.Lock()
	api.failAll = true
	api.mu.Unlock()

	f.actions <- &Action{ID: "stop", Interaction: &discordgo.Interaction{}}

	waitFor(t, func() bool { return r.noticeCount() == 1 })
	r.mu.Lock()
	desc := r.notices[0].Description
	r.mu.Unlock()
	if !strings.Contains(desc, "HOST_ON_FIRE") {
		t.Errorf("notice = %q", desc)
	}

	// Re-rendered and still registered.
	waitFor(t, func() bool { return r.editCount() >= 1 })
	m.mu.Lock()
	_, alive := m.flows[f.id]
	m.mu.Unlock()
	if !alive {
		t.Error("flow was removed after a recoverable error")
	}
}

func TestFlowRun_BackRestoresRememberedPage(t *testing.T) {
	api := &fakeAPI{running: true, logs: "booted"}
	srv := api.server(t)

	client := squarecloud.New("key", squarecloud.WithBaseURL(srv.URL))
	m, f, r := testFlow(t, client)

	manage, err := newManage(context.Background(), f, "a1")
	if err != nil {
		t.Fatal(err)
	}
	f.stack = []state{newSelect(testApps(60), 2), manage}
	m.register(f)
	go f.run(context.Background())

	f.actions <- &Action{ID: "back", Interaction: &discordgo.Interaction{}}

	waitFor(t, func() bool {
		v := r.lastEdit()
		return v != nil && v.Footer == "Page 2/3"
	})
}

func TestManagerDispatch(t *testing.T) {
	_, f, r := testFlow(t, nil)
	m := f.mgr
	f.stack = []state{newSelect(testApps(5), 1)}
	m.register(f)

	interaction := func(customID, userID string) *discordgo.InteractionCreate {
		return &discordgo.InteractionCreate{
			Interaction: &discordgo.Interaction{
				Type: discordgo.InteractionMessageComponent,
				Data: discordgo.MessageComponentInteractionData{CustomID: customID},
				User: &discordgo.User{ID: userID},
			},
		}
	}

	if m.Dispatch(interaction("not-a-flow-id", "user1")) {
		t.Error("foreign custom ID claimed by the flow namespace")
	}

	// Someone else's dialog: acknowledged, never enqueued.
	if !m.Dispatch(interaction(f.controlID("next"), "intruder")) {
		t.Error("flow custom ID not claimed")
	}
	if r.acks != 1 {
		t.Errorf("acks = %d, want 1", r.acks)
	}
	select {
	case <-f.actions:
		t.Error("foreign user's action was enqueued")
	default:
	}

	// Owner's input gets enqueued.
	if !m.Dispatch(interaction(f.controlID("next"), "user1")) {
		t.Error("owner dispatch not claimed")
	}
	act := <-f.actions
	if act.ID != "next" {
		t.Errorf("action = %q, want next", act.ID)
	}

	// Unknown flow ID: acknowledged.
	if !m.Dispatch(interaction("flow:dead-beef:next", "user1")) {
		t.Error("flow-namespaced ID not claimed")
	}
	if r.acks != 2 {
		t.Errorf("acks = %d, want 2", r.acks)
	}
}
