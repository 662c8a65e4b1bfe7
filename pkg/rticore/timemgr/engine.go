// Package timemgr implements the time-management engine: the orthogonal
// regulation/constrained/advance state machine, the message scheduler
// that interleaves time-stamped and receive-order delivery, and the
// commit-generation logic that keeps every regulating peer's view of this
// federate's lower bound up to date.
package timemgr

import (
	"github.com/hashicorp/go-version"
	"github.com/onox/openrti-timecore/pkg/rticore/ambassador"
	"github.com/onox/openrti-timecore/pkg/rticore/definition"
	"github.com/onox/openrti-timecore/pkg/rticore/lbts"
	"github.com/onox/openrti-timecore/pkg/rticore/ltime"
	"github.com/onox/openrti-timecore/pkg/rticore/mlist"
	"github.com/onox/openrti-timecore/pkg/rticore/rtiids"
)

// DefaultProtocolVersion is stamped on outgoing messages when Config
// does not specify one.
const DefaultProtocolVersion = "1.0.0"

// Config supplies the one-time construction parameters of an Engine.
type Config struct {
	Factory ltime.Factory
	Sink    ambassador.Sink
	Source  ambassador.Source

	// Logger receives diagnostics about peer protocol violations and
	// mode transitions. Defaults to definition.NopLogger if nil.
	Logger definition.Logger

	// ProtocolVersion is this federate's own version, stamped on every
	// outgoing message. Defaults to DefaultProtocolVersion if empty.
	ProtocolVersion string

	// SupportedVersions is a go-version constraint string (e.g.
	// ">= 1.0.0, < 2.0.0") bounding which peer protocol versions this
	// engine accepts. Empty means accept any version.
	SupportedVersions string

	// PoolPrewarm pre-allocates this many mlist.Element values at
	// construction instead of paying for them on the first burst of
	// scheduled messages.
	PoolPrewarm int
}

// Engine is one federate's time-management core. It is not safe for
// concurrent use: every method must be called from a single goroutine,
// the same contract the original single-threaded cooperative model
// assumes.
type Engine struct {
	factory ltime.Factory
	sink    ambassador.Sink
	source  ambassador.Source

	regulation      RegulationMode
	constrained     ConstrainedMode
	advance         AdvanceMode
	asyncDeliveryOn bool

	logicalTime                     ltime.Pair
	pendingLogicalTime              ltime.Pair
	outboundLowerBoundTimeStamp     ltime.Pair
	lastOutboundLowerBoundTimeStamp ltime.Pair

	committedOutboundLowerBoundTimeStamp    ltime.Time
	committedNextMessageLowerBoundTimeStamp ltime.Time

	currentLookahead ltime.Interval
	targetLookahead  ltime.Interval

	commitID                 uint64
	timeAdvanceToBeScheduled bool

	federateLowerBoundMap *lbts.Map

	timeRegulationEnableFederateHandleSet     map[rtiids.FederateHandle]struct{}
	timeRegulationEnableFederateHandleTimeMap map[rtiids.FederateHandle]ltime.Time

	pool          *mlist.Pool
	timeQueue     *mlist.TimeQueue
	receiveOrder  *mlist.ReceiveOrderList
	instanceIndex *mlist.InstanceIndex

	logger            definition.Logger
	protocolVersion   *version.Version
	supportedVersions version.Constraints

	inCallback bool
}

// New constructs an Engine at the factory's initial logical time, with
// regulation and constrained both disabled and lookahead zero.
func New(cfg Config) *Engine {
	initial := cfg.Factory.InitialTime()
	zeroInterval := cfg.Factory.ZeroInterval()
	pair := ltime.Pair{Time: initial, Tag: ltime.TagAvailable}

	logger := cfg.Logger
	if logger == nil {
		logger = definition.NopLogger{}
	}

	protocolVersionString := cfg.ProtocolVersion
	if protocolVersionString == "" {
		protocolVersionString = DefaultProtocolVersion
	}
	protocolVersion, err := version.NewVersion(protocolVersionString)
	if err != nil {
		// A malformed constant configured by the host is a programming
		// error, not a runtime condition a caller can recover from.
		panic("timemgr: invalid ProtocolVersion: " + err.Error())
	}

	var supportedVersions version.Constraints
	if cfg.SupportedVersions != "" {
		supportedVersions, err = version.NewConstraint(cfg.SupportedVersions)
		if err != nil {
			panic("timemgr: invalid SupportedVersions: " + err.Error())
		}
	}

	e := &Engine{
		factory:     cfg.Factory,
		sink:        cfg.Sink,
		source:      cfg.Source,
		regulation:  RegulationDisabled,
		constrained: ConstrainedDisabled,
		advance:     AdvanceGranted,

		logicalTime:                     pair,
		pendingLogicalTime:              pair,
		outboundLowerBoundTimeStamp:     pair,
		lastOutboundLowerBoundTimeStamp: pair,

		committedOutboundLowerBoundTimeStamp:    initial,
		committedNextMessageLowerBoundTimeStamp: initial,

		currentLookahead: zeroInterval,
		targetLookahead:  zeroInterval,

		// Seeded near the type's maximum so that wraparound is exercised
		// by ordinary long-running test scenarios, not only targeted ones.
		commitID: ^uint64(0) - 17,

		federateLowerBoundMap: lbts.New(),

		timeRegulationEnableFederateHandleSet:     make(map[rtiids.FederateHandle]struct{}),
		timeRegulationEnableFederateHandleTimeMap: make(map[rtiids.FederateHandle]ltime.Time),

		pool:          mlist.NewPool(),
		timeQueue:     mlist.NewTimeQueue(),
		receiveOrder:  mlist.NewReceiveOrderList(),
		instanceIndex: mlist.NewInstanceIndex(),

		logger:            logger,
		protocolVersion:   protocolVersion,
		supportedVersions: supportedVersions,
	}
	if cfg.PoolPrewarm > 0 {
		e.pool.Prewarm(cfg.PoolPrewarm)
	}
	return e
}

func (e *Engine) guardCallback() error {
	if e.inCallback {
		return ErrCallNotAllowedFromWithinCallback
	}
	return nil
}

func (e *Engine) timeRegulationEnabled() bool         { return e.regulation == RegulationEnabled }
func (e *Engine) timeRegulationEnablePending() bool   { return e.regulation == RegulationEnablePending }
func (e *Engine) timeRegulationEnabledOrPending() bool {
	return e.regulation == RegulationEnabled || e.regulation == RegulationEnablePending
}
func (e *Engine) timeRegulationDisabled() bool { return e.regulation == RegulationDisabled }

func (e *Engine) timeConstrainedEnabled() bool       { return e.constrained == ConstrainedEnabled }
func (e *Engine) timeConstrainedEnablePending() bool { return e.constrained == ConstrainedEnablePending }
func (e *Engine) timeConstrainedEnabledOrPending() bool {
	return e.constrained == ConstrainedEnabled || e.constrained == ConstrainedEnablePending
}

func (e *Engine) timeAdvancePending() bool { return e.advance.isPending() }

// QueryLogicalTime returns the current committed local time.
func (e *Engine) QueryLogicalTime() ltime.Time {
	return e.logicalTime.Time
}

// QueryLookahead returns the currently effective lookahead.
func (e *Engine) QueryLookahead() ltime.Interval {
	return e.currentLookahead
}

// QueryGALT returns the Greatest Available Logical Time, if any
// regulating peer is known.
func (e *Engine) QueryGALT() (ltime.Time, bool) {
	if e.federateLowerBoundMap.Empty() {
		return nil, false
	}
	return e.federateLowerBoundMap.GALT(), true
}

// QueryLITS returns the Lower Index for Time Stamp: the minimum of GALT
// and the earliest queued message's time, whichever is known.
func (e *Engine) QueryLITS() (ltime.Time, bool) {
	front, haveFront := e.timeQueue.Front()
	galtEmpty := e.federateLowerBoundMap.Empty()
	switch {
	case !haveFront && galtEmpty:
		return nil, false
	case !haveFront:
		return e.federateLowerBoundMap.GALT(), true
	case galtEmpty:
		return front.Time, true
	default:
		galt := e.federateLowerBoundMap.GALT()
		if galt.Less(front.Time) {
			return galt, true
		}
		return front.Time, true
	}
}

// RegulationState, ConstrainedState, and AdvanceState report the engine's
// current orthogonal mode values, for diagnostics and tests.
func (e *Engine) RegulationState() RegulationMode   { return e.regulation }
func (e *Engine) ConstrainedState() ConstrainedMode { return e.constrained }
func (e *Engine) AdvanceState() AdvanceMode         { return e.advance }
func (e *Engine) AsynchronousDeliveryEnabled() bool { return e.asyncDeliveryOn }

// QueryPoolStats reports the message-element pool's current occupancy,
// for operator tooling.
func (e *Engine) QueryPoolStats() mlist.Stats {
	return mlist.Stats{
		Pooled: e.pool.Pooled(),
		Live:   e.timeQueue.Len() + e.receiveOrder.Len(),
	}
}
