package flow

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Joab0/squarecloud-manager/squarecloud"
)

// settingsState exposes destructive application operations behind an
// extra dialog so they never sit one tap away on the dashboard.
type settingsState struct {
	app *squarecloud.Application
}

func (s *settingsState) timeout() time.Duration { return 300 * time.Second }

func (s *settingsState) view(f *Flow) *View {
	t := f.t
	return &View{
		Title:       t.T("apps.settings.title", s.app.Name),
		Description: t.T("apps.settings.description"),
		Buttons: []Button{
			{ID: f.controlID("delete"), Emoji: "🗑️", Label: t.T("apps.settings.delete"), Style: discordgo.DangerButton, Row: 0},
			{ID: f.controlID("back"), Emoji: "◀️", Label: t.T("common.back"), Style: discordgo.SecondaryButton, Row: 1},
		},
	}
}

func (s *settingsState) handle(ctx context.Context, f *Flow, act *Action) (transition, error) {
	switch act.ID {
	case "delete":
		app := s.app
		confirm := &confirmState{
			prompt: f.t.T("apps.delete.confirm", app.Name),
			done: func(ctx context.Context, f *Flow, confirmed *bool) (transition, error) {
				if confirmed == nil {
					// Timed out, the flow is about to go inert.
					return stay(), nil
				}
				if !*confirmed {
					return pop(), nil
				}
				if err := app.Delete(ctx); err != nil {
					return stay(), err
				}
				final := &View{
					Description: "✅ **|** " + f.t.T("apps.delete.success", app.Name),
					Color:       colorGreen,
				}
				return end(final), nil
			},
		}
		return push(confirm), nil

	case "back":
		return pop(), nil
	}
	return stay(), nil
}
