package channels

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ergochat/irc-go/ircevent"
	"github.com/ergochat/irc-go/ircmsg"
	"github.com/rs/zerolog"

	"github.com/tinyland-inc/bridgeclaw/pkg/bus"
	"github.com/tinyland-inc/bridgeclaw/pkg/config"
	"github.com/tinyland-inc/bridgeclaw/pkg/decor"
	"github.com/tinyland-inc/bridgeclaw/pkg/relay"
)

const nickServ = "NickServ"

// IRCTransport bridges one IRC network. The connection is not Ready
// until NickServ has accepted the identify, at which point the shared
// channel is joined exactly once per connection.
type IRCTransport struct {
	*BaseTransport
	network config.IRCNetwork
	ident   config.IRCIdentity
	channel string
	conn    *ircevent.Connection
	// joined guards the per-connection channel join; reset on connect.
	joined atomic.Bool
}

var _ relay.IRCSink = (*IRCTransport)(nil)

func NewIRC(network config.IRCNetwork, ident config.IRCIdentity, channel string, eb *bus.EventBus, state *relay.State, log zerolog.Logger) *IRCTransport {
	return &IRCTransport{
		BaseTransport: NewBaseTransport(network.Name, eb, state, log),
		network:       network,
		ident:         ident,
		channel:       channel,
	}
}

func (t *IRCTransport) ID() string {
	return t.network.Name
}

func (t *IRCTransport) Start(ctx context.Context) error {
	conn := &ircevent.Connection{
		Server:        t.network.Server,
		Nick:          t.ident.Nick,
		User:          t.ident.User,
		RealName:      t.ident.RealName,
		Version:       t.ident.Version,
		QuitMessage:   "bridge shutting down",
		ReconnectFreq: 30 * time.Second,
	}
	t.conn = conn

	conn.AddConnectCallback(func(e ircmsg.Message) {
		t.joined.Store(false)
		t.SetPhase(relay.PhaseAuthenticating)
		t.log.Info().Str("server", t.network.Server).Msg("registered, identifying with NickServ")
		if err := conn.Privmsg(nickServ, "IDENTIFY "+t.ident.Password); err != nil {
			t.log.Error().Err(err).Msg("identify failed to send")
		}
		if t.network.UserModes != "" {
			if err := conn.Send("MODE", conn.CurrentNick(), t.network.UserModes); err != nil {
				t.log.Warn().Err(err).Str("modes", t.network.UserModes).Msg("user mode change failed to send")
			}
		}
	})
	conn.AddDisconnectCallback(func(e ircmsg.Message) {
		t.SetPhase(relay.PhaseDisconnected)
		t.log.Warn().Msg("disconnected, reconnect scheduled")
	})

	conn.AddCallback("PRIVMSG", func(e ircmsg.Message) { t.onPrivmsg(ctx, e) })
	conn.AddCallback("NOTICE", func(e ircmsg.Message) { t.onNotice(e) })
	conn.AddCallback("JOIN", func(e ircmsg.Message) { t.onJoin(ctx, e) })
	conn.AddCallback("PART", func(e ircmsg.Message) { t.onPart(ctx, e) })
	conn.AddCallback("KICK", func(e ircmsg.Message) { t.onKick(ctx, e) })
	conn.AddCallback("QUIT", func(e ircmsg.Message) { t.onQuit(ctx, e) })
	conn.AddCallback("NICK", func(e ircmsg.Message) { t.onNick(ctx, e) })

	t.SetPhase(relay.PhaseConnecting)
	if err := conn.Connect(); err != nil {
		t.SetPhase(relay.PhaseDisconnected)
		return fmt.Errorf("connect to %s: %w", t.network.Server, err)
	}
	t.SetPhase(relay.PhaseConnected)
	t.SetRunning(true)
	go conn.Loop()
	return nil
}

func (t *IRCTransport) Stop(ctx context.Context) error {
	if t.conn != nil {
		t.conn.Quit()
	}
	t.SetRunning(false)
	t.SetPhase(relay.PhaseDisconnected)
	return nil
}

// Say delivers rendered text to the shared channel.
func (t *IRCTransport) Say(ctx context.Context, text string) error {
	if t.conn == nil || !t.conn.Connected() {
		return fmt.Errorf("%s: not connected", t.network.Name)
	}
	return t.conn.Privmsg(t.channel, text)
}

func (t *IRCTransport) onPrivmsg(ctx context.Context, e ircmsg.Message) {
	if len(e.Params) < 2 {
		return
	}
	nick := sourceNick(e)
	target, text := e.Params[0], e.Params[1]

	if nick == nickServ {
		t.onNickServ(text)
		return
	}
	if target != t.channel || nick == t.conn.CurrentNick() {
		return
	}

	kind := bus.KindMessage
	if action, ok := ctcpAction(text); ok {
		kind = bus.KindAction
		text = action
	}
	t.Publish(ctx, t.network.Name, "", kind, nick, text)
}

func (t *IRCTransport) onNotice(e ircmsg.Message) {
	if len(e.Params) < 2 {
		return
	}
	if sourceNick(e) == nickServ {
		t.onNickServ(e.Params[1])
	}
}

// onNickServ watches for the identify acknowledgment; it gates the
// Ready phase and the one-time channel join.
func (t *IRCTransport) onNickServ(text string) {
	if !strings.HasPrefix(text, "Password accepted") {
		return
	}
	if !t.joined.CompareAndSwap(false, true) {
		return
	}
	t.log.Info().Str("channel", t.channel).Msg("identified, joining channel")
	if err := t.conn.Join(t.channel); err != nil {
		t.log.Error().Err(err).Msg("channel join failed to send")
	}
	t.SetPhase(relay.PhaseReady)
}

func (t *IRCTransport) onJoin(ctx context.Context, e ircmsg.Message) {
	nick := sourceNick(e)
	if len(e.Params) < 1 || e.Params[0] != t.channel || nick == t.conn.CurrentNick() {
		return
	}
	t.Publish(ctx, t.network.Name, "", bus.KindAction, nick, "joined "+t.channel)
}

func (t *IRCTransport) onPart(ctx context.Context, e ircmsg.Message) {
	nick := sourceNick(e)
	if len(e.Params) < 1 || e.Params[0] != t.channel || nick == t.conn.CurrentNick() {
		return
	}
	reason := ""
	if len(e.Params) > 1 {
		reason = e.Params[1]
	}
	t.Publish(ctx, t.network.Name, "", bus.KindAction, nick,
		fmt.Sprintf("left %s (%s)", t.channel, decor.Grey(reason)))
}

func (t *IRCTransport) onKick(ctx context.Context, e ircmsg.Message) {
	if len(e.Params) < 2 || e.Params[0] != t.channel {
		return
	}
	kicked := e.Params[1]
	reason := ""
	if len(e.Params) > 2 {
		reason = e.Params[2]
	}
	t.Publish(ctx, t.network.Name, "", bus.KindAction, kicked,
		fmt.Sprintf("was kicked from %s by %s (%s)", t.channel, sourceNick(e), decor.Grey(reason)))
}

// onQuit relays quits unconditionally: the bridge only occupies the one
// shared channel, so the server only shows it quits from users there.
func (t *IRCTransport) onQuit(ctx context.Context, e ircmsg.Message) {
	nick := sourceNick(e)
	if nick == t.conn.CurrentNick() {
		return
	}
	reason := ""
	if len(e.Params) > 0 {
		reason = e.Params[0]
	}
	t.Publish(ctx, t.network.Name, "", bus.KindAction, nick,
		fmt.Sprintf("quit (%s)", decor.Grey(reason)))
}

func (t *IRCTransport) onNick(ctx context.Context, e ircmsg.Message) {
	nick := sourceNick(e)
	if len(e.Params) < 1 || nick == t.conn.CurrentNick() {
		return
	}
	t.Publish(ctx, t.network.Name, "", bus.KindAction, nick, "is now "+e.Params[0])
}

func sourceNick(e ircmsg.Message) string {
	nick, _, _ := strings.Cut(e.Source, "!")
	return nick
}

// ctcpAction unwraps "\x01ACTION <text>\x01" /me messages.
func ctcpAction(text string) (string, bool) {
	const prefix = "\x01ACTION "
	if !strings.HasPrefix(text, prefix) {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(text, prefix), "\x01"), true
}
