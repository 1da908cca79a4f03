package relay

import (
	"fmt"

	"github.com/tinyland-inc/bridgeclaw/pkg/bus"
	"github.com/tinyland-inc/bridgeclaw/pkg/decor"
)

// RenderIRC renders an event for an IRC destination: source in red,
// actor in blue, body as authored (IRC understands inline color codes).
func RenderIRC(ev bus.RelayEvent) string {
	if ev.Kind == bus.KindAction {
		return fmt.Sprintf("[%s] * %s %s", decor.Red(ev.Source), decor.Blue(ev.Actor), ev.Body)
	}
	return fmt.Sprintf("[%s] <%s> %s", decor.Red(ev.Source), decor.Blue(ev.Actor), ev.Body)
}

// RenderPlain renders an event for destinations without inline color
// support (Discord); all decoration is stripped.
func RenderPlain(ev bus.RelayEvent) string {
	if ev.Kind == bus.KindAction {
		return fmt.Sprintf("[%s] * %s %s", ev.Source, ev.Actor, decor.Strip(ev.Body))
	}
	return fmt.Sprintf("[%s] <%s> %s", ev.Source, ev.Actor, decor.Strip(ev.Body))
}
