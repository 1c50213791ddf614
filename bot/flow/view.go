package flow

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// Embed colors.
const (
	colorDefault = 0x2563EB
	colorGreen   = 0x57F287
	colorRed     = 0xED4245
)

// Field is a labeled embed field.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Button is an interactive or link control. Link buttons leave ID
// empty and set URL instead.
type Button struct {
	ID       string
	Label    string
	Emoji    string
	Style    discordgo.ButtonStyle
	URL      string
	Disabled bool
	Row      int
}

// SelectOption is one entry of a select menu.
type SelectOption struct {
	Label       string
	Value       string
	Description string
	Emoji       string
}

// Select is a single-choice menu.
type Select struct {
	ID          string
	Placeholder string
	Disabled    bool
	Options     []SelectOption
}

// View is the structured model of one rendered dialog. States build
// views; a single Renderer turns them into Discord messages.
type View struct {
	Title       string
	Description string
	URL         string
	Footer      string
	Color       int
	Timestamp   bool
	Fields      []Field
	Select      *Select
	Buttons     []Button
}

// DisableAll marks every interactive control disabled.
func (v *View) DisableAll() {
	if v.Select != nil {
		v.Select.Disabled = true
	}
	for i := range v.Buttons {
		if v.Buttons[i].URL == "" {
			v.Buttons[i].Disabled = true
		}
	}
}

func (v *View) embed() *discordgo.MessageEmbed {
	color := v.Color
	if color == 0 {
		color = colorDefault
	}

	embed := &discordgo.MessageEmbed{
		Title:       v.Title,
		Description: v.Description,
		URL:         v.URL,
		Color:       color,
	}
	if v.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: v.Footer}
	}
	if v.Timestamp {
		embed.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	for _, field := range v.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   field.Name,
			Value:  field.Value,
			Inline: field.Inline,
		})
	}
	return embed
}

func (v *View) components() []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent

	if v.Select != nil {
		menu := discordgo.SelectMenu{
			MenuType:    discordgo.StringSelectMenu,
			CustomID:    v.Select.ID,
			Placeholder: v.Select.Placeholder,
			Disabled:    v.Select.Disabled,
		}
		for _, opt := range v.Select.Options {
			option := discordgo.SelectMenuOption{
				Label:       opt.Label,
				Value:       opt.Value,
				Description: opt.Description,
			}
			if opt.Emoji != "" {
				option.Emoji = &discordgo.ComponentEmoji{Name: opt.Emoji}
			}
			menu.Options = append(menu.Options, option)
		}
		rows = append(rows, discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{menu},
		})
	}

	byRow := make(map[int][]discordgo.MessageComponent)
	var order []int
	for _, b := range v.Buttons {
		button := discordgo.Button{
			Label:    b.Label,
			Style:    b.Style,
			Disabled: b.Disabled,
		}
		if b.Emoji != "" {
			button.Emoji = &discordgo.ComponentEmoji{Name: b.Emoji}
		}
		if b.URL != "" {
			button.Style = discordgo.LinkButton
			button.URL = b.URL
		} else {
			button.CustomID = b.ID
		}

		if _, ok := byRow[b.Row]; !ok {
			order = append(order, b.Row)
		}
		byRow[b.Row] = append(byRow[b.Row], button)
	}
	for _, row := range order {
		rows = append(rows, discordgo.ActionsRow{Components: byRow[row]})
	}

	return rows
}
