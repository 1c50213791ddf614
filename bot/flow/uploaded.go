package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Joab0/squarecloud-manager/squarecloud"
)

// DashboardURL is the external web dashboard offered after an upload.
const DashboardURL = "https://squarecloud.app/dashboard"

// uploadedState is the post-upload dialog: a dashboard link plus a
// transition into the manage dialog for the new application.
type uploadedState struct {
	app *squarecloud.UploadedApplication
}

func (s *uploadedState) timeout() time.Duration { return 300 * time.Second }

func (s *uploadedState) view(f *Flow) *View {
	t := f.t
	app := s.app

	v := &View{
		Title:       app.Name,
		Description: "✅ **|** " + t.T("up.success"),
		Color:       colorGreen,
		Fields: []Field{
			{Name: t.T("apps.status.ram"), Value: fmt.Sprintf("%dMB", app.RAM), Inline: true},
			{Name: t.T("apps.status.cpu"), Value: fmt.Sprintf("%d", app.CPU), Inline: true},
			{Name: t.T("up.language"), Value: fmt.Sprintf("%s (%s)", app.Language.Name, app.Language.Version), Inline: true},
		},
	}
	if app.Subdomain != "" {
		v.Fields = append(v.Fields, Field{Name: t.T("up.subdomain"), Value: app.Subdomain, Inline: true})
	}

	v.Buttons = []Button{
		{Label: t.T("up.dashboard"), URL: DashboardURL, Row: 0},
		{ID: f.controlID("manage"), Emoji: "🛠️", Label: t.T("up.manage"), Style: discordgo.PrimaryButton, Row: 0},
	}
	return v
}

func (s *uploadedState) handle(ctx context.Context, f *Flow, act *Action) (transition, error) {
	if act.ID != "manage" {
		return stay(), nil
	}

	f.ackLoading(act)
	manage, err := newManage(ctx, f, s.app.ID)
	if err != nil {
		return stay(), err
	}
	return replace(manage), nil
}
