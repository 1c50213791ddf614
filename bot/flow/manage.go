package flow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Joab0/squarecloud-manager/squarecloud"
)

// Log preview limits for the manage embed.
const (
	logPreviewLines = 5
	logPreviewChars = 512
)

// Full log dumps beyond these limits are sent as a file instead of an
// embed.
const (
	logEmbedMaxLines = 30
	logEmbedMaxChars = 2000
)

// manageState is the main application dashboard dialog.
type manageState struct {
	app *squarecloud.Application
}

// newManage fetches the full application plus its status, and logs
// when it is running. A missing log file is not an error, the
// application may simply never have written one.
func newManage(ctx context.Context, f *Flow, id string) (*manageState, error) {
	app, err := f.client.GetApp(ctx, id)
	if err != nil {
		return nil, err
	}
	status, err := app.FetchStatus(ctx)
	if err != nil {
		return nil, err
	}
	if status.Running {
		if _, err := app.FetchLogs(ctx); err != nil && !squarecloud.IsNotFound(err) {
			return nil, err
		}
	}
	return &manageState{app: app}, nil
}

// refresh re-fetches the application and its point-in-time caches
// after an action changed its state.
func (s *manageState) refresh(ctx context.Context, f *Flow) error {
	app, err := f.client.GetApp(ctx, s.app.ID)
	if err != nil {
		return err
	}
	status, err := app.FetchStatus(ctx)
	if err != nil {
		return err
	}
	if status.Running {
		if _, err := app.FetchLogs(ctx); err != nil && !squarecloud.IsNotFound(err) {
			return err
		}
	}
	s.app = app
	return nil
}

func (s *manageState) timeout() time.Duration { return 600 * time.Second }

func (s *manageState) view(f *Flow) *View {
	t := f.t
	app := s.app
	status := app.Status()

	v := &View{
		Title:       app.Name,
		Description: app.Description,
		Timestamp:   true,
	}
	if app.Domain != "" {
		v.URL = "https://" + app.Domain
	}
	if status.Running {
		v.Color = colorGreen
	} else {
		v.Color = colorRed
	}

	if status.Uptime != nil {
		v.Fields = append(v.Fields, Field{
			Name:   t.T("apps.status.uptime"),
			Value:  fmt.Sprintf("<t:%d:R>", status.Uptime.Unix()),
			Inline: true,
		})
	}
	v.Fields = append(v.Fields,
		Field{Name: t.T("apps.status.cpu"), Value: status.CPU, Inline: true},
		Field{Name: t.T("apps.status.ram"), Value: status.RAM, Inline: true},
		Field{Name: t.T("apps.status.storage"), Value: status.Storage, Inline: true},
	)
	// Keep the message short, skip usage that is zero by definition
	// when the application is stopped.
	if status.Running {
		v.Fields = append(v.Fields, Field{
			Name:   t.T("apps.status.network_now"),
			Value:  status.Network.Now.String(),
			Inline: true,
		})
	}
	v.Fields = append(v.Fields, Field{
		Name:   t.T("apps.status.network_total"),
		Value:  status.Network.Total.String(),
		Inline: true,
	})
	if status.Requests > 0 {
		v.Fields = append(v.Fields, Field{
			Name:   t.T("apps.status.requests"),
			Value:  fmt.Sprintf("%d", status.Requests),
			Inline: true,
		})
	}
	if status.Running && app.HasLogs() {
		if preview := lastLogLines(app.Logs()); preview != "" {
			v.Fields = append(v.Fields, Field{
				Name:  t.T("apps.last_logs"),
				Value: "```\n" + preview + "```",
			})
		}
	}

	v.Buttons = []Button{
		{ID: f.controlID("start"), Emoji: "▶️", Style: discordgo.SuccessButton, Disabled: status.Running, Row: 0},
		{ID: f.controlID("restart"), Emoji: "🔄", Style: discordgo.PrimaryButton, Disabled: !status.Running, Row: 0},
		{ID: f.controlID("stop"), Emoji: "⏹️", Style: discordgo.DangerButton, Disabled: !status.Running, Row: 0},
		{ID: f.controlID("logs"), Emoji: "📄", Label: t.T("apps.buttons.logs"), Style: discordgo.SecondaryButton, Disabled: !status.Running, Row: 1},
		{ID: f.controlID("backup"), Emoji: "☁️", Label: t.T("apps.buttons.backup"), Style: discordgo.SecondaryButton, Row: 1},
		{ID: f.controlID("settings"), Emoji: "⚙️", Label: t.T("apps.buttons.settings"), Style: discordgo.SecondaryButton, Row: 1},
	}
	// Only flows opened from the application chooser can go back to it.
	if f.depth() > 1 {
		v.Buttons = append(v.Buttons, Button{
			ID:    f.controlID("back"),
			Emoji: "◀️",
			Label: t.T("common.back"),
			Style: discordgo.SecondaryButton,
			Row:   2,
		})
	}

	return v
}

// lastLogLines keeps the last lines of the log, bounded by
// logPreviewLines and logPreviewChars. When even the last line does
// not fit it is truncated rather than dropped.
func lastLogLines(logs string) string {
	lines := strings.Split(strings.TrimRight(logs, "\n"), "\n")
	if len(lines) > logPreviewLines {
		lines = lines[len(lines)-logPreviewLines:]
	}

	total := 0
	start := len(lines)
	for i := len(lines) - 1; i >= 0; i-- {
		if total+len(lines[i])+1 > logPreviewChars {
			break
		}
		total += len(lines[i]) + 1
		start = i
	}

	if start == len(lines) {
		last := lines[len(lines)-1]
		if len(last) > logPreviewChars {
			last = last[:logPreviewChars]
		}
		return last
	}
	return strings.Join(lines[start:], "\n")
}

func (s *manageState) handle(ctx context.Context, f *Flow, act *Action) (transition, error) {
	switch act.ID {
	case "start":
		if err := s.app.Start(ctx); err != nil {
			return stay(), err
		}
		return stay(), s.refresh(ctx, f)

	case "restart":
		if err := s.app.Restart(ctx); err != nil {
			return stay(), err
		}
		return stay(), s.refresh(ctx, f)

	case "stop":
		if err := s.app.Stop(ctx); err != nil {
			return stay(), err
		}
		return stay(), s.refresh(ctx, f)

	case "logs":
		logs, err := s.app.FetchLogs(ctx)
		if err != nil {
			// No logs yet is an expected branch, just re-render.
			if squarecloud.IsNotFound(err) {
				return stay(), nil
			}
			return stay(), err
		}
		if strings.Count(logs, "\n")+1 > logEmbedMaxLines || len(logs) > logEmbedMaxChars {
			err = f.r.NotifyFile(act.Interaction, "logs-"+s.app.Name+".txt", strings.NewReader(logs))
		} else {
			err = f.r.Notify(act.Interaction, &View{Description: "```\n" + logs + "```"})
		}
		return stay(), err

	case "backup":
		url, err := s.app.BackupURL(ctx)
		if err != nil {
			return stay(), err
		}
		notice := &View{
			Description: "✅ **|** " + f.t.T("apps.backup.success"),
			Buttons: []Button{
				{Label: f.t.T("apps.backup.download"), URL: url},
			},
		}
		return stay(), f.r.Notify(act.Interaction, notice)

	case "settings":
		return push(&settingsState{app: s.app}), nil

	case "back":
		return pop(), nil
	}
	return stay(), nil
}
