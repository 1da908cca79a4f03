package bus

// EventKind distinguishes direct utterances from narrated activity.
type EventKind string

const (
	// KindMessage is a direct utterance (IRC PRIVMSG, Discord message).
	KindMessage EventKind = "message"
	// KindAction is narrated activity: joins, parts, kicks, quits,
	// nick changes, reactions and /me actions. Rendered with a "* nick"
	// prefix instead of "<nick>".
	KindAction EventKind = "action"
)

// RelayEvent is the canonical form every transport event is normalized
// into before dispatch. It is created once per inbound event and consumed
// exactly once by the dispatcher.
type RelayEvent struct {
	// ID correlates log lines across the pipeline.
	ID string `json:"id"`
	// Source identifies the originating network, e.g. "Rizon", "Furnet",
	// or a Discord guild name.
	Source string `json:"source"`
	// SourceChannelID is set only for multi-channel surfaces (Discord)
	// and prevents echoing back into the exact originating channel.
	SourceChannelID string    `json:"source_channel_id,omitempty"`
	Kind            EventKind `json:"kind"`
	// Actor is the display name of the originating user.
	Actor string `json:"actor"`
	// Body is send-ready text: mentions resolved, reply context prefixed,
	// oversize content and attachments already externalized.
	Body string `json:"body"`
}
