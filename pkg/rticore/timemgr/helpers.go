package timemgr

import "github.com/onox/openrti-timecore/pkg/rticore/ltime"

func maxInterval(a, b ltime.Interval) ltime.Interval {
	if a.Less(b) {
		return b
	}
	return a
}

func minInterval(a, b ltime.Interval) ltime.Interval {
	if b.Less(a) {
		return b
	}
	return a
}

// pendingTimeSecondField computes the tag the current advance mode
// requires for a candidate pending time: strict request variants (TAR,
// NMR) must not be granted until every payload at the same timestamp has
// been delivered, so they carry TagComplete; everything else is
// TagAvailable.
func (e *Engine) pendingTimeSecondField() ltime.Tag {
	if !e.timeConstrainedEnabled() {
		return ltime.TagAvailable
	}
	if e.advance.isAnyAvailableMode() || e.advance.isFlushQueue() {
		return ltime.TagAvailable
	}
	return ltime.TagComplete
}

// outboundLowerTimeStampSecondField mirrors pendingTimeSecondField for
// the outbound bound: a zero lookahead forces TagComplete for strict
// request variants, since otherwise a message at exactly the new bound
// would be indistinguishable from one sent before the advance.
func (e *Engine) outboundLowerTimeStampSecondField(lookahead ltime.Interval) ltime.Tag {
	if !e.timeRegulationEnabled() {
		return ltime.TagAvailable
	}
	if e.advance.isAnyAvailableMode() {
		return ltime.TagAvailable
	}
	if e.factory.IsZeroInterval(lookahead) {
		return ltime.TagComplete
	}
	return ltime.TagAvailable
}

// setOutboundLowerTimeStampAndCurrentLookahead recomputes the outbound
// bound for a new base time, shrinking currentLookahead rather than
// letting the bound regress below last, since a regressing bound would
// retract an already-committed guarantee to peers.
func (e *Engine) setOutboundLowerTimeStampAndCurrentLookahead(t ltime.Time, last ltime.Pair) {
	candidate := ltime.Pair{
		Time: t.Add(e.targetLookahead),
		Tag:  e.outboundLowerTimeStampSecondField(e.targetLookahead),
	}
	if candidate.Less(last) {
		e.currentLookahead = minInterval(last.Time.Sub(t), e.targetLookahead)
		e.outboundLowerBoundTimeStamp = last
	} else {
		e.currentLookahead = e.targetLookahead
		e.outboundLowerBoundTimeStamp = candidate
	}
}
