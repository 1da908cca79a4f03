// Package config loads the bridge configuration from the environment,
// with an optional .env file for local runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// IRCNetwork is one IRC server the bridge connects to.
type IRCNetwork struct {
	// Name labels the network in relayed envelopes, e.g. "Rizon".
	Name   string
	Server string
	// UserModes is an optional raw mode string applied to the bridge's
	// own nick after identifying, e.g. "+Bx".
	UserModes string
}

// IRCIdentity is the identity shared across all IRC networks.
type IRCIdentity struct {
	Nick     string
	User     string
	RealName string
	// Password is the NickServ password used in the identify handshake.
	Password string
	Version  string
}

type Config struct {
	Nick         string `env:"BRIDGE_NICK,required,notEmpty"`
	User         string `env:"BRIDGE_USER"`
	RealName     string `env:"BRIDGE_REALNAME"`
	NickServPass string `env:"BRIDGE_NICKSERV_PASSWORD,required,notEmpty"`
	CTCPVersion  string `env:"BRIDGE_CTCP_VERSION" envDefault:"bridgeclaw"`

	// Channel is the single shared IRC channel, including the "#".
	Channel string `env:"BRIDGE_IRC_CHANNEL,required,notEmpty"`
	// Networks are "Name=host:port" pairs.
	Networks []string `env:"BRIDGE_IRC_NETWORKS" envDefault:"Rizon=irc.rizon.net:6667,Furnet=irc.furnet.org:6667"`
	// UserModes are "Name=modes" pairs applied after identify.
	UserModes []string `env:"BRIDGE_IRC_USER_MODES"`

	DiscordToken string `env:"DISCORD_TOKEN,required,notEmpty"`
	// Operators may run the blacklist command; Discord user ids.
	Operators []string `env:"BRIDGE_OPERATORS"`

	CDNBaseURL string `env:"CDN_BASE_URL" envDefault:"https://cdn.fl1nt.dev"`
	CDNToken   string `env:"CDN_TOKEN,required,notEmpty"`

	DBPath        string `env:"BRIDGE_DB_PATH" envDefault:"bridgeclaw.db"`
	PasteMaxChars int    `env:"BRIDGE_PASTE_MAX_CHARS" envDefault:"500"`
	Debug         bool   `env:"BRIDGE_DEBUG"`
}

// Load reads .env (if present) and the process environment, then
// validates. Missing required values are returned as errors and are
// fatal at startup.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Channel, "#") {
		return fmt.Errorf("BRIDGE_IRC_CHANNEL must start with '#', got %q", c.Channel)
	}
	if len(c.Networks) == 0 {
		return errors.New("BRIDGE_IRC_NETWORKS must name at least one network")
	}
	if _, err := c.IRCNetworks(); err != nil {
		return err
	}
	if c.PasteMaxChars <= 0 {
		return fmt.Errorf("BRIDGE_PASTE_MAX_CHARS must be positive, got %d", c.PasteMaxChars)
	}
	return nil
}

// IRCNetworks parses the Networks and UserModes pairs.
func (c *Config) IRCNetworks() ([]IRCNetwork, error) {
	modes := make(map[string]string, len(c.UserModes))
	for _, entry := range c.UserModes {
		name, m, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("BRIDGE_IRC_USER_MODES entry %q is not Name=modes", entry)
		}
		modes[name] = m
	}

	out := make([]IRCNetwork, 0, len(c.Networks))
	seen := make(map[string]bool, len(c.Networks))
	for _, entry := range c.Networks {
		name, server, ok := strings.Cut(entry, "=")
		if !ok || name == "" || server == "" {
			return nil, fmt.Errorf("BRIDGE_IRC_NETWORKS entry %q is not Name=host:port", entry)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate IRC network name %q", name)
		}
		seen[name] = true
		out = append(out, IRCNetwork{Name: name, Server: server, UserModes: modes[name]})
	}
	return out, nil
}

// Identity returns the shared IRC identity, defaulting the username and
// realname to the nick.
func (c *Config) Identity() IRCIdentity {
	user := c.User
	if user == "" {
		user = c.Nick
	}
	realName := c.RealName
	if realName == "" {
		realName = c.Nick
	}
	return IRCIdentity{
		Nick:     c.Nick,
		User:     user,
		RealName: realName,
		Password: c.NickServPass,
		Version:  c.CTCPVersion,
	}
}
