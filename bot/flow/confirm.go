package flow

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// confirmState is a generic yes/no prompt with a deliberately short
// timeout. The done callback receives the outcome: true, false, or nil
// when the prompt expired; after a nil outcome the flow goes inert.
type confirmState struct {
	prompt string
	done   func(ctx context.Context, f *Flow, confirmed *bool) (transition, error)
}

func (s *confirmState) timeout() time.Duration { return 30 * time.Second }

func (s *confirmState) view(f *Flow) *View {
	t := f.t
	return &View{
		Description: "⚠️ **|** " + s.prompt,
		Color:       colorRed,
		Buttons: []Button{
			{ID: f.controlID("confirm"), Label: t.T("common.confirm"), Style: discordgo.SuccessButton, Row: 0},
			{ID: f.controlID("cancel"), Label: t.T("common.cancel"), Style: discordgo.DangerButton, Row: 0},
		},
	}
}

func (s *confirmState) handle(ctx context.Context, f *Flow, act *Action) (transition, error) {
	switch act.ID {
	case "confirm":
		confirmed := true
		return s.done(ctx, f, &confirmed)
	case "cancel":
		confirmed := false
		return s.done(ctx, f, &confirmed)
	}
	return stay(), nil
}

func (s *confirmState) expire(ctx context.Context, f *Flow) {
	if _, err := s.done(ctx, f, nil); err != nil {
		f.log.Error("confirm expiry callback failed", zap.Error(err))
	}
}
