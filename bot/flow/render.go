package flow

import (
	"io"

	"github.com/bwmarrin/discordgo"
)

// Renderer is the presentation surface flows draw on. All methods are
// scoped to the interaction that triggered the work; Respond, Update
// and Edit target the flow's single primary message, Notify and
// NotifyFile produce supplementary self-contained messages.
type Renderer interface {
	// Respond creates the flow's primary message as the interaction response.
	Respond(i *discordgo.Interaction, v *View) error
	// Update responds to a component interaction by editing the
	// primary message in place.
	Update(i *discordgo.Interaction, v *View) error
	// Edit rewrites the primary message after the interaction was
	// already responded to.
	Edit(i *discordgo.Interaction, v *View) error
	// Ack acknowledges an interaction without changing anything.
	Ack(i *discordgo.Interaction) error
	// Notify sends an ephemeral followup message.
	Notify(i *discordgo.Interaction, v *View) error
	// NotifyFile sends an ephemeral followup carrying a file.
	NotifyFile(i *discordgo.Interaction, name string, r io.Reader) error
}

// sessionRenderer renders views through a Discord session.
type sessionRenderer struct {
	s *discordgo.Session
}

// NewSessionRenderer creates the production Renderer.
func NewSessionRenderer(s *discordgo.Session) Renderer {
	return &sessionRenderer{s: s}
}

func (r *sessionRenderer) Respond(i *discordgo.Interaction, v *View) error {
	return r.s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{v.embed()},
			Components: v.components(),
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
}

func (r *sessionRenderer) Update(i *discordgo.Interaction, v *View) error {
	return r.s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{v.embed()},
			Components: v.components(),
		},
	})
}

func (r *sessionRenderer) Edit(i *discordgo.Interaction, v *View) error {
	embeds := []*discordgo.MessageEmbed{v.embed()}
	components := v.components()
	_, err := r.s.InteractionResponseEdit(i, &discordgo.WebhookEdit{
		Embeds:     &embeds,
		Components: &components,
	})
	return err
}

func (r *sessionRenderer) Ack(i *discordgo.Interaction) error {
	return r.s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
}

func (r *sessionRenderer) Notify(i *discordgo.Interaction, v *View) error {
	_, err := r.s.FollowupMessageCreate(i, true, &discordgo.WebhookParams{
		Embeds:     []*discordgo.MessageEmbed{v.embed()},
		Components: v.components(),
		Flags:      discordgo.MessageFlagsEphemeral,
	})
	return err
}

func (r *sessionRenderer) NotifyFile(i *discordgo.Interaction, name string, reader io.Reader) error {
	_, err := r.s.FollowupMessageCreate(i, true, &discordgo.WebhookParams{
		Files: []*discordgo.File{{Name: name, Reader: reader}},
		Flags: discordgo.MessageFlagsEphemeral,
	})
	return err
}
