package timemgr

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-version"
)

// ErrUnsupportedProtocolVersion is returned by checkRPCHeader, and logged
// (not returned to any caller) when it surfaces out of AcceptInternalMessage:
// a version mismatch is a fact about a peer, not this federate's own
// misuse of the client surface.
var ErrUnsupportedProtocolVersion = errors.New("timemgr: protocol version not supported")

// rpcHeader stamps an outgoing message with this engine's own protocol
// version, so a peer running a different supported range can reject it
// before acting on it.
func (e *Engine) rpcHeader() RPCHeader {
	return RPCHeader{ProtocolVersion: e.protocolVersion.String()}
}

// checkRPCHeader rejects a message whose protocol version this engine's
// supported range does not cover. A missing or unparsable version is
// treated as unsupported rather than silently accepted.
func (e *Engine) checkRPCHeader(h RPCHeader) error {
	if e.supportedVersions == nil {
		return nil
	}
	v, err := version.NewVersion(h.ProtocolVersion)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedProtocolVersion, err)
	}
	if !e.supportedVersions.Check(v) {
		return fmt.Errorf("%w: %s not in %s", ErrUnsupportedProtocolVersion, v, e.supportedVersions)
	}
	return nil
}
