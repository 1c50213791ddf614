// Package bot is the Discord front-end for managing Square Cloud
// applications: slash commands, the login modal and the interactive
// application dialogs.
package bot

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Joab0/squarecloud-manager/bot/flow"
	"github.com/Joab0/squarecloud-manager/bot/locale"
	"github.com/Joab0/squarecloud-manager/squarecloud"
)

//go:embed schema.sql
var schema string

// Config holds the bot's runtime configuration, loaded from the
// environment.
type Config struct {
	Token        string
	AppID        string
	GuildID      string
	DatabasePath string
	LocalesDir   string
	Debug        bool
}

// ConfigFromEnv reads the configuration from environment variables.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		Token:        os.Getenv("BOT_TOKEN"),
		AppID:        os.Getenv("DISCORD_APP_ID"),
		GuildID:      os.Getenv("GUILD_ID"),
		DatabasePath: os.Getenv("DATABASE_PATH"),
		LocalesDir:   os.Getenv("LOCALES_DIR"),
		Debug:        os.Getenv("DEBUG") == "true" || os.Getenv("DEBUG") == "1",
	}
	if cfg.Token == "" {
		return cfg, fmt.Errorf("BOT_TOKEN not set")
	}
	if cfg.AppID == "" {
		return cfg, fmt.Errorf("DISCORD_APP_ID not set")
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "squarecloud-manager.db"
	}
	if cfg.LocalesDir == "" {
		cfg.LocalesDir = "locales"
	}
	return cfg, nil
}

// Bot wires the Discord session, the credential store, the locale
// catalog and the flow manager together.
type Bot struct {
	cfg     Config
	log     *zap.Logger
	session *discordgo.Session
	db      *sql.DB
	keys    *KeyStore
	flows   *flow.Manager

	catalog   atomic.Pointer[locale.Catalog]
	cooldowns *cooldownGate
	commands  map[string]*command

	// registered slash commands by name, used to build mentions.
	registered map[string]*discordgo.ApplicationCommand

	// newClient is swapped in tests to point at a fake API.
	newClient func(apiKey string) *squarecloud.Client
}

// New constructs the bot. It opens the database (creating the schema
// when absent) and loads the locale catalogs; both must succeed for
// the process to start.
func New(cfg Config, log *zap.Logger) (*Bot, error) {
	catalog, err := locale.Load(cfg.LocalesDir)
	if err != nil {
		return nil, fmt.Errorf("loading locales: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating database schema: %w", err)
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsNone

	b := &Bot{
		cfg:        cfg,
		log:        log,
		session:    session,
		db:         db,
		keys:       NewKeyStore(db),
		cooldowns:  newCooldownGate(),
		registered: make(map[string]*discordgo.ApplicationCommand),
		newClient: func(apiKey string) *squarecloud.Client {
			return squarecloud.New(apiKey, squarecloud.WithLogger(log))
		},
	}
	b.catalog.Store(catalog)
	b.flows = flow.NewManager(flow.NewSessionRenderer(session), log)
	b.commands = commandTable()

	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteraction)

	return b, nil
}

// Start opens the gateway connection and registers the slash commands.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return err
	}

	defs := b.commandDefinitions()
	registered, err := b.session.ApplicationCommandBulkOverwrite(b.cfg.AppID, b.cfg.GuildID, defs)
	if err != nil {
		return fmt.Errorf("registering commands: %w", err)
	}
	for _, cmd := range registered {
		b.registered[cmd.Name] = cmd
	}

	b.log.Info("commands registered",
		zap.Int("count", len(registered)),
		zap.String("guild", b.cfg.GuildID),
	)
	return nil
}

// Close shuts the gateway connection and the database down.
func (b *Bot) Close() error {
	b.log.Info("shutting down")
	return multierr.Combine(b.session.Close(), b.db.Close())
}

// Catalog returns the current locale catalog.
func (b *Bot) Catalog() *locale.Catalog {
	return b.catalog.Load()
}

// ReloadLocales builds a fresh catalog from disk and swaps it in
// atomically. A failed load leaves the current catalog serving.
func (b *Bot) ReloadLocales() error {
	catalog, err := locale.Load(b.cfg.LocalesDir)
	if err != nil {
		return err
	}
	b.catalog.Store(catalog)
	b.log.Info("locale catalogs reloaded", zap.Strings("locales", catalog.Locales()))
	return nil
}

func (b *Bot) translator(i *discordgo.Interaction) *locale.Translator {
	return locale.NewTranslator(b.Catalog(), string(i.Locale), b.log)
}

// commandMention formats a clickable command mention, falling back to
// plain text before registration completes.
func (b *Bot) commandMention(name string) string {
	if cmd, ok := b.registered[name]; ok {
		return fmt.Sprintf("</%s:%s>", name, cmd.ID)
	}
	return "/" + name
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.log.Info("connected",
		zap.String("user", r.User.Username),
		zap.String("id", r.User.ID),
	)
}

func (b *Bot) onInteraction(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(i)
	case discordgo.InteractionMessageComponent:
		if !b.flows.Dispatch(i) {
			b.log.Debug("unroutable component", zap.String("custom_id", i.MessageComponentData().CustomID))
		}
	case discordgo.InteractionModalSubmit:
		b.handleModalSubmit(i)
	}
}

func (b *Bot) handleCommand(i *discordgo.InteractionCreate) {
	ctx := context.Background()
	t := b.translator(i.Interaction)
	name := i.ApplicationCommandData().Name

	cmd, ok := b.commands[name]
	if !ok {
		b.log.Warn("unknown command", zap.String("name", name))
		return
	}

	userID := interactionUserID(i.Interaction)

	if remaining := b.cooldowns.check(name, userID, cmd.cooldown); remaining > 0 {
		b.respondError(i.Interaction, t.T("errors.on_cooldown", formatDuration(remaining)))
		return
	}

	apiKey := ""
	if cmd.needAuth {
		key, err := b.userAPIKey(ctx, userID)
		if err != nil {
			b.log.Error("api key lookup failed", zap.String("user", userID), zap.Error(err))
			b.respondError(i.Interaction, t.T("errors.unexpected_error"))
			return
		}
		if key == "" {
			b.respondError(i.Interaction, t.T("errors.unauthenticated", b.commandMention("login")))
			return
		}
		apiKey = key
	}

	client := b.newClient(apiKey)
	if err := cmd.handler(ctx, b, i, t, client); err != nil {
		b.log.Error("command failed",
			zap.String("command", name),
			zap.String("user", userID),
			zap.Error(err),
		)
		b.respondError(i.Interaction, t.T("errors.unexpected_error"))
	}
}

// userAPIKey resolves and validates the user's stored API key. A
// cached key was already validated; a key coming from the database is
// checked against the API and removed when the host rejects it.
func (b *Bot) userAPIKey(ctx context.Context, userID string) (string, error) {
	if key, ok := b.keys.Cached(userID); ok {
		return key, nil
	}

	key, err := b.keys.Lookup(ctx, userID)
	if err != nil || key == "" {
		return "", err
	}

	if _, err := b.newClient(key).Me(ctx); err != nil {
		if squarecloud.IsAuthenticationFailure(err) {
			if removeErr := b.keys.Remove(ctx, userID); removeErr != nil {
				return "", removeErr
			}
			return "", nil
		}
		return "", err
	}

	b.keys.Cache(userID, key)
	return key, nil
}

// respondError renders a localized error notice, as the interaction
// response when still possible, as a followup otherwise.
func (b *Bot) respondError(i *discordgo.Interaction, msg string) {
	embed := &discordgo.MessageEmbed{
		Description: "❌ **|** " + msg,
		Color:       0xED4245,
	}

	err := b.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		_, err = b.session.FollowupMessageCreate(i, true, &discordgo.WebhookParams{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		})
		if err != nil {
			b.log.Warn("error notice failed", zap.Error(err))
		}
	}
}

func interactionUserID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func interactionUsername(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.GlobalName
	}
	if i.User != nil {
		return i.User.GlobalName
	}
	return ""
}

// formatDuration renders a duration with second precision for
// cooldown notices.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Second {
		d = time.Second
	}
	return d.String()
}
