package channels

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/tinyland-inc/bridgeclaw/pkg/bus"
	"github.com/tinyland-inc/bridgeclaw/pkg/decor"
	"github.com/tinyland-inc/bridgeclaw/pkg/origin"
	"github.com/tinyland-inc/bridgeclaw/pkg/registry"
	"github.com/tinyland-inc/bridgeclaw/pkg/relay"
	"github.com/tinyland-inc/bridgeclaw/pkg/transform"
)

// DiscordTransport bridges any number of guilds through one gateway
// connection. Only messages arriving in a guild's bound channel are in
// scope, and blacklisted guilds are ignored entirely.
type DiscordTransport struct {
	*BaseTransport
	token    string
	session  *discordgo.Session
	registry *registry.Registry
	pipeline *transform.Pipeline
	origins  *origin.Tracker
	commands *relay.Handler

	// ctx is the transport lifetime, captured at Start for use inside
	// gateway callbacks.
	ctx context.Context
}

var _ relay.ChannelSink = (*DiscordTransport)(nil)

func NewDiscord(
	token string,
	reg *registry.Registry,
	pipeline *transform.Pipeline,
	origins *origin.Tracker,
	eb *bus.EventBus,
	state *relay.State,
	log zerolog.Logger,
) *DiscordTransport {
	return &DiscordTransport{
		BaseTransport: NewBaseTransport("Discord", eb, state, log),
		token:         token,
		registry:      reg,
		pipeline:      pipeline,
		origins:       origins,
	}
}

// SetCommandHandler wires the admin command handler. Must be called
// before Start.
func (t *DiscordTransport) SetCommandHandler(h *relay.Handler) {
	t.commands = h
}

// ResolveGuildName is the best-effort resolver handed to the command
// handler.
func (t *DiscordTransport) ResolveGuildName(guildID string) (string, bool) {
	if t.session == nil {
		return "", false
	}
	if g, err := t.session.State.Guild(guildID); err == nil && g.Name != "" {
		return g.Name, true
	}
	if g, err := t.session.Guild(guildID); err == nil && g.Name != "" {
		return g.Name, true
	}
	return "", false
}

func (t *DiscordTransport) ID() string {
	return "Discord"
}

func (t *DiscordTransport) Start(ctx context.Context) error {
	session, err := discordgo.New("Bot " + t.token)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsMessageContent

	t.ctx = ctx
	t.session = session
	session.AddHandler(t.onReady)
	session.AddHandler(t.onDisconnect)
	session.AddHandler(t.onResumed)
	session.AddHandler(t.onMessageCreate)
	session.AddHandler(t.onReactionAdd)
	session.AddHandler(t.onInteraction)

	t.SetPhase(relay.PhaseConnecting)
	if err := session.Open(); err != nil {
		t.SetPhase(relay.PhaseDisconnected)
		return fmt.Errorf("open discord gateway: %w", err)
	}
	t.SetRunning(true)
	return nil
}

func (t *DiscordTransport) Stop(ctx context.Context) error {
	t.SetRunning(false)
	t.SetPhase(relay.PhaseDisconnected)
	if t.session != nil {
		return t.session.Close()
	}
	return nil
}

// SendTo posts rendered text into a bound channel and records which
// external message it came from, so later replies and reactions can be
// attributed without re-parsing the envelope.
func (t *DiscordTransport) SendTo(ctx context.Context, channelID, text string, ev bus.RelayEvent) error {
	msg, err := t.session.ChannelMessageSend(channelID, text)
	if err != nil {
		return fmt.Errorf("send to channel %s: %w", channelID, err)
	}
	t.origins.Record(msg.ID, origin.Record{
		Source: ev.Source,
		Actor:  ev.Actor,
		Body:   decor.Strip(ev.Body),
	})
	return nil
}

func (t *DiscordTransport) onReady(s *discordgo.Session, r *discordgo.Ready) {
	t.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("discord gateway ready")
	if err := t.registerCommands(s); err != nil {
		t.log.Error().Err(err).Msg("slash command registration failed")
	}
	t.SetPhase(relay.PhaseReady)
}

// The SDK reconnects on its own; a full reconnect re-fires onReady, while a
// resumed session only gets Resumed. Either way dispatch stays gated in between.
func (t *DiscordTransport) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	t.SetPhase(relay.PhaseDisconnected)
	t.log.Warn().Msg("discord gateway dropped, waiting for reconnect")
}

func (t *DiscordTransport) onResumed(_ *discordgo.Session, _ *discordgo.Resumed) {
	t.SetPhase(relay.PhaseReady)
	t.log.Info().Msg("discord gateway session resumed")
}

func (t *DiscordTransport) registerCommands(s *discordgo.Session) error {
	cmds := []*discordgo.ApplicationCommand{
		{
			Name:        "setchannel",
			Description: "Bind the bridge to this channel",
		},
		{
			Name:        "blacklist",
			Description: "Manage the bridge blacklist (operators only)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Blacklist a guild",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "guild", Description: "Guild id", Required: true},
						{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Why"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove a guild from the blacklist",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "guild", Description: "Guild id", Required: true},
					},
				},
			},
		},
	}
	_, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, "", cmds)
	return err
}

// inScope reports whether events from this guild channel are relayed:
// the guild must be bound to exactly this channel and not blacklisted.
func (t *DiscordTransport) inScope(guildID, channelID string) bool {
	if guildID == "" || t.registry.IsBlacklisted(guildID) {
		return false
	}
	b, ok := t.registry.Lookup(guildID)
	return ok && b.ChannelID == channelID
}

func (t *DiscordTransport) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}
	if !t.inScope(m.GuildID, m.ChannelID) {
		return
	}
	if m.Content == "" && len(m.Attachments) == 0 {
		return
	}

	content := transform.ResolveMentions(m.Content, mentionsOf(m.Message))

	if m.Type == discordgo.MessageTypeReply && m.MessageReference != nil {
		author, body := t.referencedAuthor(s, m.Message)
		content = transform.ReplyPrefix(author, body) + content
	}

	attachments := make([]string, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		attachments = append(attachments, a.URL)
	}
	content = t.pipeline.Apply(t.ctx, m.ID, content, attachments)

	t.Publish(t.ctx, t.guildLabel(m.GuildID), m.ChannelID, bus.KindMessage, displayName(m.Author), content)
}

func (t *DiscordTransport) onReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.UserID == s.State.User.ID {
		return
	}
	if !t.inScope(r.GuildID, r.ChannelID) {
		return
	}

	msg, err := s.ChannelMessage(r.ChannelID, r.MessageID)
	if err != nil {
		t.log.Warn().Err(err).Str("message_id", r.MessageID).Msg("reacted message fetch failed, dropping reaction")
		return
	}
	author, body := msg.Author, msg.Content
	authorName := displayName(author)
	if author != nil && author.ID == s.State.User.ID {
		authorName, body = t.recoverOrigin(msg)
	}

	var reactorUser *discordgo.User
	if r.Member != nil {
		reactorUser = r.Member.User
	}
	reactor := displayName(reactorUser)
	narrative := fmt.Sprintf("reacted to %s's message (%s) with %s",
		authorName, decor.Grey(transform.Excerpt(body)), r.Emoji.MessageFormat())

	t.Publish(t.ctx, t.guildLabel(r.GuildID), r.ChannelID, bus.KindAction, reactor, narrative)
}

func (t *DiscordTransport) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand || t.commands == nil {
		return
	}

	inv := t.invocationFrom(s, i)
	reply := t.commands.Handle(t.ctx, inv)

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: reply,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		t.log.Error().Err(err).Str("command", inv.Command).Msg("interaction response failed")
	}
}

func (t *DiscordTransport) invocationFrom(s *discordgo.Session, i *discordgo.InteractionCreate) relay.Invocation {
	data := i.ApplicationCommandData()
	inv := relay.Invocation{
		Command:   data.Name,
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
	}
	if g, err := s.State.Guild(i.GuildID); err == nil {
		inv.GuildName = g.Name
	}
	if c, err := s.State.Channel(i.ChannelID); err == nil {
		inv.ChannelName = c.Name
	} else if c, err := s.Channel(i.ChannelID); err == nil {
		inv.ChannelName = c.Name
	}
	if i.Member != nil {
		if i.Member.User != nil {
			inv.InvokerID = i.Member.User.ID
			inv.InvokerName = displayName(i.Member.User)
		}
		inv.GuildAdmin = i.Member.Permissions&discordgo.PermissionAdministrator != 0
	}
	for _, opt := range data.Options {
		if opt.Type == discordgo.ApplicationCommandOptionSubCommand {
			inv.Args = append(inv.Args, opt.Name)
			for _, sub := range opt.Options {
				inv.Args = append(inv.Args, sub.StringValue())
			}
			continue
		}
		inv.Args = append(inv.Args, opt.StringValue())
	}
	return inv
}

// referencedAuthor resolves who a reply points at. Replies to the
// bridge's own posts are resolved to the original external author.
func (t *DiscordTransport) referencedAuthor(s *discordgo.Session, m *discordgo.Message) (author, body string) {
	ref := m.ReferencedMessage
	if ref == nil {
		fetched, err := s.ChannelMessage(m.MessageReference.ChannelID, m.MessageReference.MessageID)
		if err != nil {
			t.log.Warn().Err(err).Str("message_id", m.MessageReference.MessageID).Msg("referenced message fetch failed")
			return "unknown", ""
		}
		ref = fetched
	}
	if ref.Author != nil && ref.Author.ID == s.State.User.ID {
		return t.recoverOrigin(ref)
	}
	return displayName(ref.Author), ref.Content
}

// recoverOrigin attributes one of the bridge's own posts to its
// external author: side table first, envelope parse as the fallback for
// posts made before this process started.
func (t *DiscordTransport) recoverOrigin(msg *discordgo.Message) (author, body string) {
	if rec, ok := t.origins.Lookup(msg.ID); ok {
		return rec.Actor, rec.Body
	}
	if rec, ok := origin.ParseEnvelope(msg.Content); ok {
		return rec.Actor, rec.Body
	}
	return displayName(msg.Author), msg.Content
}

func (t *DiscordTransport) guildLabel(guildID string) string {
	if name, ok := t.ResolveGuildName(guildID); ok {
		return name
	}
	return guildID
}

func mentionsOf(m *discordgo.Message) []transform.Mention {
	out := make([]transform.Mention, 0, 2*len(m.Mentions))
	for _, u := range m.Mentions {
		out = append(out,
			transform.Mention{Token: "<@" + u.ID + ">", Display: displayName(u)},
			transform.Mention{Token: "<@!" + u.ID + ">", Display: displayName(u)},
		)
	}
	return out
}

func displayName(u *discordgo.User) string {
	if u == nil {
		return "unknown"
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
