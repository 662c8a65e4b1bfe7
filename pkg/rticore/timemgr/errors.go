package timemgr

import "errors"

// Contract errors raised synchronously against the caller of the client
// surface. Protocol violations by peers are logged and dropped instead
// (see AcceptInternalMessage and QueueTimeStampedMessage); these are
// reserved for violations the local caller itself committed.
var (
	ErrTimeRegulationAlreadyEnabled        = errors.New("timemgr: time regulation already enabled or pending")
	ErrTimeRegulationIsNotEnabled          = errors.New("timemgr: time regulation is not enabled")
	ErrTimeConstrainedAlreadyEnabled       = errors.New("timemgr: time constrained already enabled or pending")
	ErrTimeConstrainedIsNotEnabled         = errors.New("timemgr: time constrained is not enabled")
	ErrInTimeAdvancingState                = errors.New("timemgr: a time advance request is already pending")
	ErrRequestForTimeRegulationPending     = errors.New("timemgr: a time regulation enable request is pending")
	ErrRequestForTimeConstrainedPending    = errors.New("timemgr: a time constrained enable request is pending")
	ErrInvalidLogicalTime                  = errors.New("timemgr: logical time precedes the current logical time")
	ErrLogicalTimeAlreadyPassed            = errors.New("timemgr: logical time has already passed")
	ErrInvalidLookahead                    = errors.New("timemgr: lookahead must be non-negative")
	ErrAsynchronousDeliveryAlreadyEnabled  = errors.New("timemgr: asynchronous delivery already enabled")
	ErrAsynchronousDeliveryAlreadyDisabled = errors.New("timemgr: asynchronous delivery already disabled")
	ErrCallNotAllowedFromWithinCallback    = errors.New("timemgr: call not allowed from within a callback")
)
