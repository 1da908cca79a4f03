package origin

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordLookup(t *testing.T) {
	tr := NewTracker(8)
	rec := Record{Source: "Rizon", Actor: "alice", Body: "hello there"}
	tr.Record("m1", rec)

	got, ok := tr.Lookup("m1")
	require.True(t, ok)
	assert.Equal(t, rec, got)

	_, ok = tr.Lookup("m2")
	assert.False(t, ok)
}

func TestEvictionKeepsNewest(t *testing.T) {
	tr := NewTracker(4)
	for i := 0; i < 10; i++ {
		tr.Record(fmt.Sprintf("m%d", i), Record{Actor: fmt.Sprintf("u%d", i)})
	}

	_, ok := tr.Lookup("m0")
	assert.False(t, ok, "oldest entries evicted")
	got, ok := tr.Lookup("m9")
	require.True(t, ok)
	assert.Equal(t, "u9", got.Actor)
}

func TestRecordOverwriteSameID(t *testing.T) {
	tr := NewTracker(4)
	tr.Record("m1", Record{Actor: "alice"})
	tr.Record("m1", Record{Actor: "alice", Body: "updated"})

	got, _ := tr.Lookup("m1")
	assert.Equal(t, "updated", got.Body)
}

func TestParseEnvelopeMessage(t *testing.T) {
	rec, ok := ParseEnvelope("[Rizon] <alice> hello world")
	require.True(t, ok)
	assert.Equal(t, Record{Source: "Rizon", Actor: "alice", Body: "hello world"}, rec)
}

func TestParseEnvelopeAction(t *testing.T) {
	rec, ok := ParseEnvelope("[Furnet] * bob joined #chat")
	require.True(t, ok)
	assert.Equal(t, Record{Source: "Furnet", Actor: "bob", Body: "joined #chat"}, rec)
}

func TestParseEnvelopeRejectsForeignText(t *testing.T) {
	for _, s := range []string{
		"just a normal message",
		"[Rizon] no actor marker",
		"<alice> missing source",
		"",
	} {
		_, ok := ParseEnvelope(s)
		assert.False(t, ok, "should reject %q", s)
	}
}
