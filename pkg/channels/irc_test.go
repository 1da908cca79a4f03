package channels

import (
	"testing"

	"github.com/ergochat/irc-go/ircmsg"
	"github.com/stretchr/testify/assert"
)

func TestSourceNick(t *testing.T) {
	assert.Equal(t, "alice", sourceNick(ircmsg.Message{Source: "alice!user@host.example"}))
	assert.Equal(t, "irc.rizon.net", sourceNick(ircmsg.Message{Source: "irc.rizon.net"}))
	assert.Equal(t, "", sourceNick(ircmsg.Message{}))
}

func TestCTCPAction(t *testing.T) {
	text, ok := ctcpAction("\x01ACTION waves\x01")
	assert.True(t, ok)
	assert.Equal(t, "waves", text)

	_, ok = ctcpAction("just a message")
	assert.False(t, ok)

	_, ok = ctcpAction("\x01VERSION\x01")
	assert.False(t, ok)
}
