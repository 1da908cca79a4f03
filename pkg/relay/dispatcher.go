package relay

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tinyland-inc/bridgeclaw/pkg/bus"
	"github.com/tinyland-inc/bridgeclaw/pkg/registry"
)

// IRCSink is a single-channel destination: one IRC network joined to
// the shared channel.
type IRCSink interface {
	ID() string
	Say(ctx context.Context, text string) error
}

// ChannelSink is a multi-channel destination (the Discord gateway).
// The event accompanies the rendered text so the sink can record the
// provenance of what it posts.
type ChannelSink interface {
	ID() string
	SendTo(ctx context.Context, channelID, text string, ev bus.RelayEvent) error
}

type sendJob struct {
	eventID string
	text    string
	send    func(ctx context.Context, text string) error
}

// Dispatcher consumes normalized events from the bus and fans them out
// to every eligible destination. Events from one source are processed
// in arrival order; each destination has its own queue and worker, so a
// slow or failing destination never stalls or reorders the others.
type Dispatcher struct {
	bus      *bus.EventBus
	state    *State
	registry *registry.Registry
	log      zerolog.Logger

	irc     []IRCSink
	discord ChannelSink

	queueSize int
	queues    map[string]chan sendJob
	wg        sync.WaitGroup
}

func NewDispatcher(eb *bus.EventBus, state *State, reg *registry.Registry, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		bus:       eb,
		state:     state,
		registry:  reg,
		log:       log.With().Str("component", "dispatcher").Logger(),
		queueSize: 100,
		queues:    make(map[string]chan sendJob),
	}
}

func (d *Dispatcher) AddIRCSink(s IRCSink) {
	d.irc = append(d.irc, s)
}

func (d *Dispatcher) SetChannelSink(s ChannelSink) {
	d.discord = s
}

// Run consumes the bus until it closes or ctx is cancelled, then drains
// the destination workers. It is the single consumer of the bus.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		ev, ok := d.bus.Consume(ctx)
		if !ok {
			break
		}
		d.dispatch(ctx, ev)
	}
	for _, q := range d.queues {
		close(q)
	}
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(ctx context.Context, ev bus.RelayEvent) {
	if !d.state.AllReady() {
		d.log.Debug().Str("event_id", ev.ID).Str("source", ev.Source).Msg("transports not ready, dropping event")
		return
	}

	for _, sink := range d.irc {
		if sink.ID() == ev.Source {
			continue
		}
		sink := sink
		d.enqueue(ctx, sink.ID(), sendJob{
			eventID: ev.ID,
			text:    RenderIRC(ev),
			send:    sink.Say,
		})
	}

	if d.discord == nil {
		return
	}
	text := RenderPlain(ev)
	for _, b := range d.registry.Bindings() {
		if d.registry.IsBlacklisted(b.GuildID) {
			continue
		}
		if b.ChannelID == ev.SourceChannelID {
			continue
		}
		b, ev := b, ev
		d.enqueue(ctx, d.discord.ID()+":"+b.ChannelID, sendJob{
			eventID: ev.ID,
			text:    text,
			send: func(ctx context.Context, text string) error {
				return d.discord.SendTo(ctx, b.ChannelID, text, ev)
			},
		})
	}
}

// enqueue hands the job to the destination's worker, spawning it on
// first use. The queues map is only touched from the dispatch loop.
func (d *Dispatcher) enqueue(ctx context.Context, dest string, job sendJob) {
	q, ok := d.queues[dest]
	if !ok {
		q = make(chan sendJob, d.queueSize)
		d.queues[dest] = q
		d.wg.Add(1)
		go d.worker(ctx, dest, q)
	}
	select {
	case q <- job:
	default:
		d.log.Warn().Str("destination", dest).Str("event_id", job.eventID).Msg("destination queue full, dropping send")
	}
}

func (d *Dispatcher) worker(ctx context.Context, dest string, q <-chan sendJob) {
	defer d.wg.Done()
	for job := range q {
		if err := job.send(ctx, job.text); err != nil {
			// Transport fault: isolated to this destination.
			d.log.Error().Err(err).Str("destination", dest).Str("event_id", job.eventID).Msg("send failed")
		}
	}
}
