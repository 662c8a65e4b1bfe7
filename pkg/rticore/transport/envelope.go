package transport

import (
	"encoding/json"
	"fmt"

	"github.com/onox/openrti-timecore/pkg/rticore/lbts"
	"github.com/onox/openrti-timecore/pkg/rticore/ltime"
	"github.com/onox/openrti-timecore/pkg/rticore/rtiids"
	"github.com/onox/openrti-timecore/pkg/rticore/timemgr"
)

// envelope is the wire shape every internal protocol message is reduced
// to before it reaches encoding/json: a type tag plus a flat field set
// covering the union of every message, with ltime.Time values reduced to
// the factory's own byte encoding rather than anything this package
// understands. Unused fields are simply omitted by omitempty.
type envelope struct {
	Kind               string                  `json:"kind"`
	Header             timemgr.RPCHeader       `json:"header"`
	Federation         rtiids.FederationHandle `json:"federation,omitempty"`
	Federate           rtiids.FederateHandle   `json:"federate,omitempty"`
	RespondingFederate rtiids.FederateHandle   `json:"respondingFederate,omitempty"`
	SendingFederate    rtiids.FederateHandle   `json:"sendingFederate,omitempty"`
	Time               []byte                  `json:"time,omitempty"`
	TimeValid          bool                    `json:"timeValid,omitempty"`
	CommitType         lbts.CommitKind         `json:"commitType,omitempty"`
	CommitID           uint64                  `json:"commitID,omitempty"`
	Locked             bool                    `json:"locked,omitempty"`
}

// encodeMessage reduces one of timemgr's internal message types to its
// wire envelope and marshals it to JSON.
func encodeMessage(factory ltime.Factory, message interface{}) ([]byte, error) {
	var e envelope
	switch m := message.(type) {
	case timemgr.EnableTimeRegulationRequest:
		e = envelope{Kind: "EnableTimeRegulationRequest", Header: m.Header, Federation: m.Federation, Federate: m.Federate, Time: factory.EncodeTime(m.Time), CommitID: m.CommitID}
	case timemgr.EnableTimeRegulationResponse:
		e = envelope{Kind: "EnableTimeRegulationResponse", Header: m.Header, Federation: m.Federation, Federate: m.Federate, RespondingFederate: m.RespondingFederate, Time: factory.EncodeTime(m.Time), TimeValid: m.TimeValid}
	case timemgr.DisableTimeRegulationRequest:
		e = envelope{Kind: "DisableTimeRegulationRequest", Header: m.Header, Federation: m.Federation, Federate: m.Federate}
	case timemgr.CommitLowerBoundTimeStamp:
		e = envelope{Kind: "CommitLowerBoundTimeStamp", Header: m.Header, Federation: m.Federation, Federate: m.Federate, Time: factory.EncodeTime(m.Time), CommitType: m.CommitType, CommitID: m.CommitID}
	case timemgr.CommitLowerBoundTimeStampResponse:
		e = envelope{Kind: "CommitLowerBoundTimeStampResponse", Header: m.Header, Federation: m.Federation, Federate: m.Federate, CommitID: m.CommitID, SendingFederate: m.SendingFederate}
	case timemgr.LockedByNextMessageRequest:
		e = envelope{Kind: "LockedByNextMessageRequest", Header: m.Header, Federation: m.Federation, Locked: m.Locked, SendingFederate: m.SendingFederate}
	default:
		return nil, fmt.Errorf("transport: message type %T has no wire encoding", message)
	}
	return json.Marshal(e)
}

// decodeMessage is the inverse of encodeMessage, reconstructing the
// concrete timemgr message type so it can be handed to
// Engine.AcceptInternalMessage.
func decodeMessage(factory ltime.Factory, data []byte) (interface{}, error) {
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("transport: unmarshal envelope: %w", err)
	}

	var t ltime.Time
	var err error
	if len(e.Time) > 0 {
		t, err = factory.DecodeTime(e.Time)
		if err != nil {
			return nil, fmt.Errorf("transport: decode time: %w", err)
		}
	}

	switch e.Kind {
	case "EnableTimeRegulationRequest":
		return timemgr.EnableTimeRegulationRequest{Header: e.Header, Federation: e.Federation, Federate: e.Federate, Time: t, CommitID: e.CommitID}, nil
	case "EnableTimeRegulationResponse":
		return timemgr.EnableTimeRegulationResponse{Header: e.Header, Federation: e.Federation, Federate: e.Federate, RespondingFederate: e.RespondingFederate, Time: t, TimeValid: e.TimeValid}, nil
	case "DisableTimeRegulationRequest":
		return timemgr.DisableTimeRegulationRequest{Header: e.Header, Federation: e.Federation, Federate: e.Federate}, nil
	case "CommitLowerBoundTimeStamp":
		return timemgr.CommitLowerBoundTimeStamp{Header: e.Header, Federation: e.Federation, Federate: e.Federate, Time: t, CommitType: e.CommitType, CommitID: e.CommitID}, nil
	case "CommitLowerBoundTimeStampResponse":
		return timemgr.CommitLowerBoundTimeStampResponse{Header: e.Header, Federation: e.Federation, Federate: e.Federate, CommitID: e.CommitID, SendingFederate: e.SendingFederate}, nil
	case "LockedByNextMessageRequest":
		return timemgr.LockedByNextMessageRequest{Header: e.Header, Federation: e.Federation, Locked: e.Locked, SendingFederate: e.SendingFederate}, nil
	default:
		return nil, fmt.Errorf("transport: unknown message kind %q", e.Kind)
	}
}
