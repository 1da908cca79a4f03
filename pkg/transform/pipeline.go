// Package transform prepares message content for relaying: mention
// resolution, reply-context prefixing, and best-effort externalization
// of oversized bodies and attachments.
package transform

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/tinyland-inc/bridgeclaw/pkg/decor"
)

const (
	// DefaultMaxInlineChars is the largest body relayed verbatim.
	// One character more, or any newline, turns the body into a paste.
	DefaultMaxInlineChars = 500

	excerptWords    = 5
	excerptMaxChars = 50
)

// Externalizer is the slice of the CDN client the pipeline needs.
type Externalizer interface {
	UploadText(ctx context.Context, content, filename string) (string, error)
	ShortenURL(ctx context.Context, src string) (string, error)
}

// Mention is one raw mention token and the display name it resolves to.
type Mention struct {
	Token   string
	Display string
}

// ResolveMentions replaces every raw mention token with "@<display>".
func ResolveMentions(body string, mentions []Mention) string {
	for _, m := range mentions {
		body = strings.ReplaceAll(body, m.Token, "@"+m.Display)
	}
	return body
}

// Excerpt shortens a referenced message for quoting: the first five
// words, capped at fifty characters, with a trailing ellipsis when
// anything was cut. An empty body becomes "Multimedia message".
func Excerpt(body string) string {
	body = decor.Strip(body)
	if body == "" {
		return "Multimedia message"
	}
	words := strings.Fields(body)
	short := strings.Join(words[:min(len(words), excerptWords)], " ")
	truncated := len(words) > excerptWords
	if utf8.RuneCountInString(short) > excerptMaxChars {
		short = string([]rune(short)[:excerptMaxChars])
		truncated = true
	}
	if truncated {
		short += "..."
	}
	return short
}

// ReplyPrefix builds the "Reply to <author> (<excerpt>): " prefix for a
// reply to the given original message.
func ReplyPrefix(author, original string) string {
	return "Reply to " + author + " (" + decor.Grey(Excerpt(original)) + "): "
}

// Pipeline runs the externalization steps. Failures never drop content;
// the original body or attachment URL is kept instead.
type Pipeline struct {
	ext      Externalizer
	maxChars int
	log      zerolog.Logger
}

func NewPipeline(ext Externalizer, maxChars int, log zerolog.Logger) *Pipeline {
	if maxChars <= 0 {
		maxChars = DefaultMaxInlineChars
	}
	return &Pipeline{
		ext:      ext,
		maxChars: maxChars,
		log:      log.With().Str("component", "transform").Logger(),
	}
}

// Apply externalizes an oversized body and the attachments, returning
// the final send-ready text. msgID names the paste file.
func (p *Pipeline) Apply(ctx context.Context, msgID, body string, attachments []string) string {
	if p.oversize(body) {
		url, err := p.ext.UploadText(ctx, decor.Strip(body), "message-"+msgID+".txt")
		if err != nil {
			p.log.Warn().Err(err).Str("message_id", msgID).Msg("paste upload failed, relaying body unchanged")
		} else {
			body = "Message paste: " + url
		}
	}

	if len(attachments) > 0 {
		links := make([]string, 0, len(attachments))
		for _, src := range attachments {
			short, err := p.ext.ShortenURL(ctx, src)
			if err != nil {
				p.log.Debug().Err(err).Str("url", src).Msg("shortener unavailable, using original url")
				short = src
			}
			links = append(links, short)
		}
		label := "Attachment"
		if len(links) > 1 {
			label = "Attachments"
		}
		if body != "" {
			body += " / "
		}
		body += label + ": " + strings.Join(links, " / ")
	}

	return body
}

func (p *Pipeline) oversize(body string) bool {
	return strings.Contains(body, "\n") || utf8.RuneCountInString(body) > p.maxChars
}
