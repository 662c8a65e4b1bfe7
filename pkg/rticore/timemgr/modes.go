package timemgr

// RegulationMode tracks whether this federate stamps outgoing messages
// and participates in lower-bound-timestamp computation.
type RegulationMode int

const (
	RegulationDisabled RegulationMode = iota
	RegulationEnablePending
	RegulationEnabled
)

// ConstrainedMode tracks whether this federate honors incoming
// timestamps for delivery ordering.
type ConstrainedMode int

const (
	ConstrainedDisabled ConstrainedMode = iota
	ConstrainedEnablePending
	ConstrainedEnabled
)

// AdvanceMode names which time-advance protocol, if any, is in flight.
type AdvanceMode int

const (
	// AdvanceGranted means no advance request is outstanding.
	AdvanceGranted AdvanceMode = iota
	// AdvanceTAR is a plain time-advance request: the grant must follow
	// every payload message timestamped exactly at the requested time.
	AdvanceTAR
	// AdvanceTARA is the available variant: the grant may fire alongside
	// payloads still arriving at the requested time.
	AdvanceTARA
	// AdvanceNMR requests an advance to the earlier of the requested time
	// or the next queued message, gated on peer agreement.
	AdvanceNMR
	// AdvanceNMRA is the available variant of AdvanceNMR.
	AdvanceNMRA
	// AdvanceFlushQueue requests an advance that first drains every
	// queued time-stamped message regardless of the constrained gate.
	AdvanceFlushQueue
)

func (m RegulationMode) String() string {
	switch m {
	case RegulationDisabled:
		return "disabled"
	case RegulationEnablePending:
		return "enable-pending"
	case RegulationEnabled:
		return "enabled"
	default:
		return "unknown"
	}
}

func (m ConstrainedMode) String() string {
	switch m {
	case ConstrainedDisabled:
		return "disabled"
	case ConstrainedEnablePending:
		return "enable-pending"
	case ConstrainedEnabled:
		return "enabled"
	default:
		return "unknown"
	}
}

func (m AdvanceMode) String() string {
	switch m {
	case AdvanceGranted:
		return "granted"
	case AdvanceTAR:
		return "time-advance-request"
	case AdvanceTARA:
		return "time-advance-request-available"
	case AdvanceNMR:
		return "next-message-request"
	case AdvanceNMRA:
		return "next-message-request-available"
	case AdvanceFlushQueue:
		return "flush-queue"
	default:
		return "unknown"
	}
}

func (m AdvanceMode) isAnyAdvanceRequest() bool {
	return m == AdvanceTAR || m == AdvanceTARA
}

func (m AdvanceMode) isAnyNextMessageMode() bool {
	return m == AdvanceNMR || m == AdvanceNMRA
}

func (m AdvanceMode) isAnyAvailableMode() bool {
	return m == AdvanceTARA || m == AdvanceNMRA
}

func (m AdvanceMode) isFlushQueue() bool {
	return m == AdvanceFlushQueue
}

func (m AdvanceMode) isPending() bool {
	return m != AdvanceGranted
}
