package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/Joab0/squarecloud-manager/bot/locale"
	"github.com/Joab0/squarecloud-manager/squarecloud"
)

const loginModalID = "login"

// Uploads are capped well below Discord's own attachment limit so a
// runaway archive never sits in memory.
const maxUploadSize = 100 << 20

type command struct {
	name     string
	needAuth bool
	cooldown time.Duration
	options  []*discordgo.ApplicationCommandOption
	handler  func(ctx context.Context, b *Bot, i *discordgo.InteractionCreate, t *locale.Translator, client *squarecloud.Client) error
}

func commandTable() map[string]*command {
	table := map[string]*command{
		"ping": {
			name:    "ping",
			handler: handlePing,
		},
		"help": {
			name:    "help",
			handler: handleHelp,
		},
		"statistics": {
			name:     "statistics",
			cooldown: 5 * time.Second,
			handler:  handleStatistics,
		},
		"login": {
			name:     "login",
			cooldown: 5 * time.Second,
			handler:  handleLogin,
		},
		"apps": {
			name:     "apps",
			needAuth: true,
			cooldown: 5 * time.Second,
			handler:  handleApps,
		},
		"up": {
			name:     "up",
			needAuth: true,
			cooldown: 15 * time.Second,
			options: []*discordgo.ApplicationCommandOption{
				{
					Type:     discordgo.ApplicationCommandOptionAttachment,
					Name:     "file",
					Required: true,
				},
			},
			handler: handleUp,
		},
	}
	return table
}

// commandDefinitions builds the slash command payload, localizing
// descriptions from the catalog for every loaded locale.
func (b *Bot) commandDefinitions() []*discordgo.ApplicationCommand {
	catalog := b.Catalog()

	localize := func(key string) (string, map[discordgo.Locale]string) {
		def, err := catalog.Translate(key, locale.DefaultLocale)
		if err != nil {
			b.log.Error("missing command translation", zap.String("key", key), zap.Error(err))
			def = key
		}

		localized := make(map[discordgo.Locale]string)
		for _, id := range catalog.Locales() {
			if id == locale.DefaultLocale {
				continue
			}
			if s, err := catalog.Translate(key, id); err == nil {
				localized[discordgo.Locale(id)] = s
			}
		}
		return def, localized
	}

	names := make([]string, 0, len(b.commands))
	for name := range b.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]*discordgo.ApplicationCommand, 0, len(names))
	for _, name := range names {
		cmd := b.commands[name]

		desc, descLoc := localize(name + ".description")
		def := &discordgo.ApplicationCommand{
			Name:                     name,
			Description:              desc,
			DescriptionLocalizations: &descLoc,
		}

		for _, opt := range cmd.options {
			optDesc, optDescLoc := localize(name + ".options." + opt.Name + ".description")
			option := *opt
			option.Description = optDesc
			option.DescriptionLocalizations = optDescLoc
			def.Options = append(def.Options, &option)
		}

		defs = append(defs, def)
	}
	return defs
}

func respondEmbed(b *Bot, i *discordgo.Interaction, embed *discordgo.MessageEmbed, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return b.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

func handlePing(_ context.Context, b *Bot, i *discordgo.InteractionCreate, t *locale.Translator, _ *squarecloud.Client) error {
	latency := b.session.HeartbeatLatency().Milliseconds()

	embed := &discordgo.MessageEmbed{
		Title: "🏓 " + t.T("ping.pong"),
		Color: 0x2563EB,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📡 " + t.T("ping.latency"), Value: fmt.Sprintf("%dms", latency)},
		},
	}
	return respondEmbed(b, i.Interaction, embed, true)
}

func handleHelp(_ context.Context, b *Bot, i *discordgo.InteractionCreate, t *locale.Translator, _ *squarecloud.Client) error {
	names := make([]string, 0, len(b.commands))
	for name := range b.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var list strings.Builder
	for _, name := range names {
		fmt.Fprintf(&list, "🔹 %s: %s\n", b.commandMention(name), t.T(name+".description"))
	}

	embed := &discordgo.MessageEmbed{
		Title:       t.T("help.command_list"),
		Description: list.String(),
		Color:       0x2563EB,
	}

	content := t.T("help.response",
		interactionUsername(i.Interaction),
		"https://squarecloud.app/",
		b.commandMention("login"),
	)

	return b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Embeds:  []*discordgo.MessageEmbed{embed},
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func handleStatistics(ctx context.Context, b *Bot, i *discordgo.InteractionCreate, t *locale.Translator, client *squarecloud.Client) error {
	stats, err := client.GetServiceStatistics(ctx)
	if err != nil {
		return err
	}

	embed := &discordgo.MessageEmbed{
		Title: t.T("statistics.title"),
		Description: fmt.Sprintf(
			"**%s:** %d\n**%s:** %d\n**%s:** %d\n**%s:** %dms\n",
			t.T("statistics.users"), stats.Users,
			t.T("statistics.apps"), stats.Apps,
			t.T("statistics.websites"), stats.Websites,
			t.T("statistics.ping"), stats.Ping,
		),
		Color:     0x2563EB,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	return respondEmbed(b, i.Interaction, embed, false)
}

func handleLogin(_ context.Context, b *Bot, i *discordgo.InteractionCreate, t *locale.Translator, _ *squarecloud.Client) error {
	return b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: loginModalID,
			Title:    t.T("login.modal.title"),
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    "api_key",
							Label:       t.T("login.modal.api_key_input.label"),
							Placeholder: t.T("login.modal.api_key_input.placeholder"),
							Style:       discordgo.TextInputShort,
							Required:    true,
							MinLength:   10,
							MaxLength:   100,
						},
					},
				},
			},
		},
	})
}

// handleModalSubmit finishes the login started by handleLogin: the
// submitted key must authenticate against the API before it is stored.
func (b *Bot) handleModalSubmit(i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	if data.CustomID != loginModalID {
		return
	}

	ctx := context.Background()
	t := b.translator(i.Interaction)
	userID := interactionUserID(i.Interaction)

	apiKey := ""
	for _, row := range data.Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, component := range actionsRow.Components {
			if input, ok := component.(*discordgo.TextInput); ok && input.CustomID == "api_key" {
				apiKey = strings.TrimSpace(input.Value)
			}
		}
	}

	if _, err := b.newClient(apiKey).Me(ctx); err != nil {
		if squarecloud.IsAuthenticationFailure(err) {
			b.respondError(i.Interaction, t.T("login.failure"))
			return
		}
		b.log.Error("login validation failed", zap.String("user", userID), zap.Error(err))
		b.respondError(i.Interaction, t.T("errors.unexpected_error"))
		return
	}

	if err := b.keys.Save(ctx, userID, apiKey); err != nil {
		b.log.Error("saving api key failed", zap.String("user", userID), zap.Error(err))
		b.respondError(i.Interaction, t.T("errors.unexpected_error"))
		return
	}

	embed := &discordgo.MessageEmbed{
		Description: "✅ **|** " + t.T("login.success"),
		Color:       0x57F287,
	}
	if err := respondEmbed(b, i.Interaction, embed, true); err != nil {
		b.log.Warn("login response failed", zap.Error(err))
	}
}

func handleApps(ctx context.Context, b *Bot, i *discordgo.InteractionCreate, t *locale.Translator, client *squarecloud.Client) error {
	apps, err := client.GetAllApps(ctx)
	if err != nil {
		return err
	}
	if len(apps) == 0 {
		b.respondError(i.Interaction, t.T("apps.no_apps"))
		return nil
	}
	return b.flows.StartApps(ctx, i.Interaction, t, client, apps)
}

func handleUp(ctx context.Context, b *Bot, i *discordgo.InteractionCreate, t *locale.Translator, client *squarecloud.Client) error {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return fmt.Errorf("up: missing file option")
	}

	attachmentID, _ := data.Options[0].Value.(string)
	if data.Resolved == nil {
		return fmt.Errorf("up: attachment %q not resolved", attachmentID)
	}
	attachment, ok := data.Resolved.Attachments[attachmentID]
	if !ok {
		return fmt.Errorf("up: attachment %q not resolved", attachmentID)
	}

	// Local validation happens before any API traffic.
	if !strings.HasSuffix(strings.ToLower(attachment.Filename), ".zip") {
		b.respondError(i.Interaction, t.T("up.invalid_file"))
		return nil
	}

	// Downloading and uploading take a while, ack first.
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		return err
	}

	archive, err := downloadAttachment(ctx, attachment.URL)
	if err != nil {
		return err
	}

	if _, err := squarecloud.ParseArchiveConfig(archive); err != nil {
		b.log.Debug("rejected upload", zap.String("file", attachment.Filename), zap.Error(err))
		b.respondError(i.Interaction, t.T("up.invalid_config"))
		return nil
	}

	uploaded, err := client.Upload(ctx, squarecloud.NewFile(attachment.Filename, archive))
	if err != nil {
		var httpErr *squarecloud.HTTPError
		if errors.As(err, &httpErr) {
			b.respondError(i.Interaction, t.T("errors.api_error", httpErr.Code))
			return nil
		}
		return err
	}

	return b.flows.StartUploaded(ctx, i.Interaction, t, client, uploaded)
}

func downloadAttachment(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading attachment: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxUploadSize))
}
