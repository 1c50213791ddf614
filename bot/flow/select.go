package flow

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Joab0/squarecloud-manager/squarecloud"
)

// Discord caps select menus at 25 entries, which sets the page size.
const selectPageSize = 25

// selectState is the paginated application chooser.
type selectState struct {
	apps []squarecloud.PartialApplication
	page int
}

// newSelect clamps page into [1, maxPage], which matters when coming
// back from a manage dialog after the last application of the last
// page was deleted.
func newSelect(apps []squarecloud.PartialApplication, page int) *selectState {
	s := &selectState{apps: apps, page: page}
	if s.page < 1 {
		s.page = 1
	}
	if max := s.maxPage(); s.page > max {
		s.page = max
	}
	return s
}

func (s *selectState) maxPage() int {
	pages := (len(s.apps) + selectPageSize - 1) / selectPageSize
	if pages < 1 {
		pages = 1
	}
	return pages
}

func (s *selectState) pageApps() []squarecloud.PartialApplication {
	start := (s.page - 1) * selectPageSize
	end := start + selectPageSize
	if end > len(s.apps) {
		end = len(s.apps)
	}
	return s.apps[start:end]
}

func (s *selectState) timeout() time.Duration { return 60 * time.Second }

func (s *selectState) view(f *Flow) *View {
	t := f.t

	menu := &Select{
		ID:          f.controlID("select"),
		Placeholder: t.T("apps.select_app.menu.label"),
	}
	for _, app := range s.pageApps() {
		emoji := "🖥️"
		if app.IsWebsite {
			emoji = "🌐"
		}
		menu.Options = append(menu.Options, SelectOption{
			Label:       app.Name,
			Value:       app.ID,
			Description: app.Description,
			Emoji:       emoji,
		})
	}

	v := &View{
		Title:       t.T("apps.select_app.title"),
		Description: t.T("apps.select_app.description"),
		Footer:      t.T("apps.select_app.footer", s.page, s.maxPage()),
		Select:      menu,
	}

	// Navigation is pointless with a single page.
	if s.maxPage() > 1 {
		v.Buttons = []Button{
			{
				ID:       f.controlID("prev"),
				Emoji:    "⬅️",
				Style:    discordgo.SecondaryButton,
				Disabled: s.page == 1,
				Row:      1,
			},
			{
				ID:       f.controlID("next"),
				Emoji:    "➡️",
				Style:    discordgo.SecondaryButton,
				Disabled: s.page == s.maxPage(),
				Row:      1,
			},
		}
	}

	return v
}

func (s *selectState) handle(ctx context.Context, f *Flow, act *Action) (transition, error) {
	switch act.ID {
	case "select":
		f.ackLoading(act)
		manage, err := newManage(ctx, f, act.Value)
		if err != nil {
			return stay(), err
		}
		return push(manage), nil
	case "prev":
		if s.page > 1 {
			s.page--
		}
		return stay(), nil
	case "next":
		if s.page < s.maxPage() {
			s.page++
		}
		return stay(), nil
	}
	return stay(), nil
}
