// Package decor applies and strips mIRC-style inline decoration.
// IRC destinations get colored source/actor labels; Discord and the
// paste service get decoration-free text.
package decor

import "github.com/ergochat/irc-go/ircfmt"

func color(name, s string) string {
	return ircfmt.Unescape("$c[" + name + "]" + ircfmt.Escape(s) + "$c")
}

// Red decorates source labels.
func Red(s string) string { return color("red", s) }

// Blue decorates actor names.
func Blue(s string) string { return color("blue", s) }

// Grey decorates quoted reasons and excerpts.
func Grey(s string) string { return color("grey", s) }

// Strip removes all color and style codes.
func Strip(s string) string { return ircfmt.Strip(s) }
