package run

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tinyland-inc/bridgeclaw/pkg/bus"
	"github.com/tinyland-inc/bridgeclaw/pkg/channels"
	"github.com/tinyland-inc/bridgeclaw/pkg/config"
	"github.com/tinyland-inc/bridgeclaw/pkg/externalize"
	"github.com/tinyland-inc/bridgeclaw/pkg/origin"
	"github.com/tinyland-inc/bridgeclaw/pkg/registry"
	"github.com/tinyland-inc/bridgeclaw/pkg/relay"
	"github.com/tinyland-inc/bridgeclaw/pkg/store"
	"github.com/tinyland-inc/bridgeclaw/pkg/transform"
)

func runBridge(debug bool) error {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if debug {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	networks, err := cfg.IRCNetworks()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	// Registry state must be trusted before any event flows; storage
	// faults here are fatal.
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("error opening store: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := registry.New(db, log)
	if err := reg.Load(ctx); err != nil {
		return fmt.Errorf("error loading registry: %w", err)
	}

	eventBus := bus.NewEventBus()
	state := relay.NewState()
	pipeline := transform.NewPipeline(externalize.New(cfg.CDNBaseURL, cfg.CDNToken), cfg.PasteMaxChars, log)
	origins := origin.NewTracker(1024)

	discord := channels.NewDiscord(cfg.DiscordToken, reg, pipeline, origins, eventBus, state, log)
	discord.SetCommandHandler(relay.NewHandler(reg, cfg.Operators, discord.ResolveGuildName, log))

	dispatcher := relay.NewDispatcher(eventBus, state, reg, log)
	dispatcher.SetChannelSink(discord)

	transports := []channels.Transport{discord}
	for _, network := range networks {
		irc := channels.NewIRC(network, cfg.Identity(), cfg.Channel, eventBus, state, log)
		dispatcher.AddIRCSink(irc)
		transports = append(transports, irc)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range transports {
		t := t
		g.Go(func() error {
			if err := t.Start(gctx); err != nil {
				return fmt.Errorf("start %s: %w", t.Name(), err)
			}
			log.Info().Str("transport", t.Name()).Msg("transport started")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	go dispatcher.Run(ctx)
	fmt.Println("✓ Bridge started, relaying once all transports are ready")
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	eventBus.Close()
	for _, t := range transports {
		if err := t.Stop(ctx); err != nil {
			log.Warn().Err(err).Str("transport", t.Name()).Msg("transport stop failed")
		}
	}
	cancel()
	fmt.Println("✓ Bridge stopped")

	return nil
}
