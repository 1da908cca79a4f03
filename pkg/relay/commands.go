package relay

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tinyland-inc/bridgeclaw/pkg/registry"
)

// Invocation is an already-parsed admin command. Parsing and transport
// acknowledgment belong to the host platform; the handler only decides
// and replies.
type Invocation struct {
	Command     string
	Args        []string
	GuildID     string
	GuildName   string
	ChannelID   string
	ChannelName string
	InvokerID   string
	InvokerName string
	// GuildAdmin reports whether the invoker holds administrator
	// capability in the originating guild.
	GuildAdmin bool
}

// GuildNameResolver resolves a guild id to a display name, best-effort.
type GuildNameResolver func(guildID string) (string, bool)

// Handler processes the two admin commands against the registry.
type Handler struct {
	registry     *registry.Registry
	operators    []string
	resolveGuild GuildNameResolver
	log          zerolog.Logger
}

func NewHandler(reg *registry.Registry, operators []string, resolve GuildNameResolver, log zerolog.Logger) *Handler {
	if resolve == nil {
		resolve = func(string) (string, bool) { return "", false }
	}
	return &Handler{
		registry:     reg,
		operators:    operators,
		resolveGuild: resolve,
		log:          log.With().Str("component", "commands").Logger(),
	}
}

// Handle executes the invocation and returns the reply text for the
// invoker. Persistence failures are logged and surfaced as a generic
// failure reply; they never propagate.
func (h *Handler) Handle(ctx context.Context, inv Invocation) string {
	switch inv.Command {
	case "setchannel":
		return h.setChannel(ctx, inv)
	case "blacklist":
		return h.blacklist(ctx, inv)
	default:
		return "Unknown command."
	}
}

func (h *Handler) setChannel(ctx context.Context, inv Invocation) string {
	if !inv.GuildAdmin {
		return "You need to be a server administrator to set the bridge channel."
	}
	if h.registry.IsBlacklisted(inv.GuildID) {
		return "This server is blacklisted from the bridge."
	}

	replaced, err := h.registry.Upsert(ctx, registry.Binding{
		GuildID:     inv.GuildID,
		ChannelID:   inv.ChannelID,
		GuildName:   inv.GuildName,
		ChannelName: inv.ChannelName,
	})
	if err != nil {
		h.log.Error().Err(err).Str("guild_id", inv.GuildID).Str("channel_id", inv.ChannelID).Msg("binding upsert failed")
		return "Something went wrong saving the channel binding. Please try again."
	}

	h.log.Info().Str("guild", inv.GuildName).Str("channel", inv.ChannelName).Bool("replaced", replaced).Msg("channel bound")
	if replaced {
		return "Bridge messages will now be sent to #" + inv.ChannelName + ", replacing the previous one."
	}
	return "Bridge messages will now be sent to #" + inv.ChannelName + "."
}

func (h *Handler) blacklist(ctx context.Context, inv Invocation) string {
	if !slices.Contains(h.operators, inv.InvokerID) {
		return "You are not a bridge operator."
	}
	if len(inv.Args) < 2 {
		return "Usage: blacklist {add|remove} <guild id> [reason]"
	}

	action, guildID := inv.Args[0], inv.Args[1]
	name, ok := h.resolveGuild(guildID)
	if !ok {
		name = guildID
	}

	switch action {
	case "add":
		added, err := h.registry.AddBlacklist(ctx, registry.BlacklistEntry{
			GuildID:       guildID,
			Reason:        strings.Join(inv.Args[2:], " "),
			BlacklistedBy: inv.InvokerID,
			CreatedAt:     time.Now().UTC(),
		})
		if err != nil {
			h.log.Error().Err(err).Str("guild_id", guildID).Msg("blacklist insert failed")
			return "Something went wrong updating the blacklist. Please try again."
		}
		if !added {
			return name + " is already blacklisted."
		}
		h.log.Info().Str("guild_id", guildID).Str("by", inv.InvokerID).Msg("guild blacklisted")
		return "Blacklisted " + name + "."
	case "remove":
		if err := h.registry.RemoveBlacklist(ctx, guildID); err != nil {
			h.log.Error().Err(err).Str("guild_id", guildID).Msg("blacklist delete failed")
			return "Something went wrong updating the blacklist. Please try again."
		}
		h.log.Info().Str("guild_id", guildID).Str("by", inv.InvokerID).Msg("guild removed from blacklist")
		return "Removed " + name + " from the blacklist."
	default:
		return "Usage: blacklist {add|remove} <guild id> [reason]"
	}
}
