// Package transport provides the relt-backed group transport that carries
// the time-management engine's internal protocol messages between
// federates, and a CallbackHandler-delegating ambassador.Sink built on
// top of it for production use outside of tests.
package transport

import (
	"context"
	"sync"
	"time"

	"github.com/jabolina/relt/pkg/relt"
	"github.com/onox/openrti-timecore/pkg/rticore/ambassador"
	"github.com/onox/openrti-timecore/pkg/rticore/definition"
	"github.com/onox/openrti-timecore/pkg/rticore/ltime"
	"github.com/onox/openrti-timecore/pkg/rticore/rtiids"
	"github.com/prometheus/common/log"
)

// CallbackHandler receives the three callbacks the engine fires once a
// synthetic transition reaches the head of its dispatch queue. It is
// kept separate from Sink.Send so a GroupTransport's wire concern stays
// independent from whatever the host does with a granted advance.
type CallbackHandler interface {
	TimeRegulationEnabled(t ltime.Time)
	TimeConstrainedEnabled(t ltime.Time)
	TimeAdvanceGrant(t ltime.Time)
}

// nopCallbackHandler discards every callback, the default until a host
// installs its own via SetCallbackHandler.
type nopCallbackHandler struct{}

func (nopCallbackHandler) TimeRegulationEnabled(ltime.Time)  {}
func (nopCallbackHandler) TimeConstrainedEnabled(ltime.Time) {}
func (nopCallbackHandler) TimeAdvanceGrant(ltime.Time)       {}

// Config supplies the one-time construction parameters of a
// GroupTransport.
type Config struct {
	// Federation names the relt group address this federate's messages
	// are broadcast to and consumed from: one federation, one group.
	Federation rtiids.FederationHandle

	// Self is this federate's own handle, used to tag outgoing relt
	// frames and answer ambassador.Source.FederateHandle.
	Self rtiids.FederateHandle

	// Factory decodes/encodes the ltime.Time values riding inside
	// protocol messages; must match the engine's own factory.
	Factory ltime.Factory

	// KnownFederates seeds the roster ambassador.Source.KnownFederateHandles
	// returns. Self is added automatically if absent.
	KnownFederates []rtiids.FederateHandle

	// Logger receives transport failures. Defaults to
	// definition.NewLogrusLogger(). Message-encoding failures go to the
	// package-level prometheus/common/log logger instead, matching the
	// teacher's own transport-layer fallback.
	Logger definition.Logger
}

// GroupTransport is the production ambassador.Sink/Source pair: Send
// marshals an internal protocol message and broadcasts it over relt to
// every federate in the federation's group, and Source answers from a
// roster the host keeps current via AddFederate/RemoveFederate.
type GroupTransport struct {
	federation rtiids.FederationHandle
	self       rtiids.FederateHandle
	factory    ltime.Factory
	logger     definition.Logger

	relt *relt.Relt

	roster   map[rtiids.FederateHandle]struct{}
	rosterMu sync.RWMutex

	handler   CallbackHandler
	handlerMu sync.RWMutex

	consumer chan interface{}

	ctx    context.Context
	cancel context.CancelFunc
}

// NewGroupTransport dials the relt group for cfg.Federation and starts
// the background consume loop. Close must be called to release the
// underlying relt connection.
func NewGroupTransport(cfg Config) (*GroupTransport, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = definition.NewLogrusLogger()
	}

	conf := relt.DefaultReltConfiguration()
	conf.Name = string(cfg.Self)
	conf.Exchange = relt.GroupAddress(cfg.Federation)
	r, err := relt.NewRelt(*conf)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	roster := make(map[rtiids.FederateHandle]struct{}, len(cfg.KnownFederates)+1)
	roster[cfg.Self] = struct{}{}
	for _, h := range cfg.KnownFederates {
		roster[h] = struct{}{}
	}

	g := &GroupTransport{
		federation: cfg.Federation,
		self:       cfg.Self,
		factory:    cfg.Factory,
		logger:     logger,
		relt:       r,
		roster:     roster,
		handler:    nopCallbackHandler{},
		consumer:   make(chan interface{}, 128),
		ctx:        ctx,
		cancel:     cancel,
	}
	go g.poll()
	return g, nil
}

var _ ambassador.Sink = (*GroupTransport)(nil)
var _ ambassador.Source = (*GroupTransport)(nil)

// SetCallbackHandler installs the host's callback sink. Safe to call
// before or after messages start flowing.
func (g *GroupTransport) SetCallbackHandler(h CallbackHandler) {
	g.handlerMu.Lock()
	defer g.handlerMu.Unlock()
	g.handler = h
}

func (g *GroupTransport) callbackHandler() CallbackHandler {
	g.handlerMu.RLock()
	defer g.handlerMu.RUnlock()
	return g.handler
}

// Send implements ambassador.Sink: it marshals message to its wire
// envelope and broadcasts it to every federate in the group. A marshal
// or broadcast failure is logged rather than returned, matching
// ambassador.Sink's fire-and-forget contract and the teacher's own
// ReliableTransport.Broadcast error handling.
func (g *GroupTransport) Send(message interface{}) {
	data, err := encodeMessage(g.factory, message)
	if err != nil {
		// Mirrors the teacher's own inconsistency: the marshal failure
		// goes to the package-level logger, the broadcast failure below
		// goes to the per-transport one.
		log.Errorf("failed encoding %#v for federation %s: %v", message, g.federation, err)
		return
	}
	send := relt.Send{Address: relt.GroupAddress(g.federation), Data: data}
	if err := g.relt.Broadcast(g.ctx, send); err != nil {
		g.logger.Errorf("failed broadcasting %#v: %v", message, err)
	}
}

func (g *GroupTransport) TimeRegulationEnabled(t ltime.Time) {
	g.callbackHandler().TimeRegulationEnabled(t)
}

func (g *GroupTransport) TimeConstrainedEnabled(t ltime.Time) {
	g.callbackHandler().TimeConstrainedEnabled(t)
}

func (g *GroupTransport) TimeAdvanceGrant(t ltime.Time) {
	g.callbackHandler().TimeAdvanceGrant(t)
}

// FederateHandle implements ambassador.Source.
func (g *GroupTransport) FederateHandle() rtiids.FederateHandle { return g.self }

// FederationHandle implements ambassador.Source.
func (g *GroupTransport) FederationHandle() rtiids.FederationHandle { return g.federation }

// KnownFederateHandles implements ambassador.Source.
func (g *GroupTransport) KnownFederateHandles() []rtiids.FederateHandle {
	g.rosterMu.RLock()
	defer g.rosterMu.RUnlock()
	out := make([]rtiids.FederateHandle, 0, len(g.roster))
	for h := range g.roster {
		out = append(out, h)
	}
	return out
}

// AddFederate registers a newly joined federate so future
// EnableTimeRegulation calls wait on it too.
func (g *GroupTransport) AddFederate(h rtiids.FederateHandle) {
	g.rosterMu.Lock()
	defer g.rosterMu.Unlock()
	g.roster[h] = struct{}{}
}

// RemoveFederate drops a resigned or evicted federate from the roster.
// Callers must separately invoke Engine.RemoveFederateFromTimeManagement.
func (g *GroupTransport) RemoveFederate(h rtiids.FederateHandle) {
	g.rosterMu.Lock()
	defer g.rosterMu.Unlock()
	delete(g.roster, h)
}

// Listen returns the channel of decoded internal protocol messages
// arriving from other federates. A caller typically pumps this into
// Engine.AcceptInternalMessage, the same split the teacher draws between
// Transport.Listen and Peer.poll.
func (g *GroupTransport) Listen() <-chan interface{} {
	return g.consumer
}

// Close releases the underlying relt connection and stops the consume
// loop.
func (g *GroupTransport) Close() {
	g.cancel()
	if err := g.relt.Close(); err != nil {
		g.logger.Errorf("failed stopping transport: %v", err)
	}
}

func (g *GroupTransport) poll() {
	listener, err := g.relt.Consume()
	if err != nil {
		g.logger.Fatalf("failed starting relt consumer: %v", err)
		return
	}
	for {
		select {
		case <-g.ctx.Done():
			return
		case recv, ok := <-listener:
			if !ok {
				return
			}
			g.consume(recv.Origin, relt.Recv{Data: recv.Data, Error: recv.Error})
		}
	}
}

// consume mirrors the teacher's own ReliableTransport.consume: validate,
// decode, and hand off with a bounded wait rather than blocking forever
// on a full consumer channel.
func (g *GroupTransport) consume(origin string, recv relt.Recv) {
	if recv.Error != nil {
		g.logger.Errorf("failed consuming message from %s: %v", origin, recv.Error)
		return
	}
	if recv.Data == nil {
		g.logger.Warnf("received empty message from %s", origin)
		return
	}

	message, err := decodeMessage(g.factory, recv.Data)
	if err != nil {
		g.logger.Errorf("failed decoding message from %s: %v", origin, err)
		return
	}

	timeout, cancel := context.WithTimeout(g.ctx, 250*time.Millisecond)
	defer cancel()
	select {
	case <-timeout.Done():
		g.logger.Warnf("dropped %#v from %s, consumer channel full", message, origin)
	case g.consumer <- message:
	}
}
