package protocol

import (
	"encoding/json"

	"github.com/dkeye/Cast/internal/core"
)

type HostReadyAck struct {
	T       Type   `json:"t"`
	Session string `json:"s"`
}

type ViewerJoinedAck struct {
	T        Type   `json:"t"`
	Session  string `json:"s"`
	ViewerID string `json:"uid"`
}

// ViewerJoined tells a host that a viewer arrived.
type ViewerJoined struct {
	T           Type   `json:"t"`
	ViewerID    string `json:"viewerId"`
	ViewerCount int    `json:"viewerCount"`
}

// ViewerCountChanged tells a host that a viewer left.
type ViewerCountChanged struct {
	T       Type   `json:"t"`
	Session string `json:"s"`
	Count   int    `json:"count"`
}

type HostDisconnected struct {
	T       Type   `json:"t"`
	Session string `json:"s"`
}

type OfferOut struct {
	T       Type            `json:"t"`
	Session string          `json:"s"`
	Data    json.RawMessage `json:"d"`
	HostID  string          `json:"hostId"`
}

type AnswerOut struct {
	T        Type            `json:"t"`
	Session  string          `json:"s"`
	Data     json.RawMessage `json:"d"`
	ViewerID string          `json:"viewerId"`
}

type ICECandidateOut struct {
	T        Type            `json:"t"`
	Session  string          `json:"s"`
	Data     json.RawMessage `json:"d"`
	From     string          `json:"from"`
	HostID   string          `json:"hostId,omitempty"`
	ViewerID string          `json:"viewerId,omitempty"`
}

type Pong struct {
	T Type `json:"t"`
}

type Error struct {
	T       Type   `json:"t"`
	Message string `json:"message"`
}

func NewHostReadyAck(session string) HostReadyAck {
	return HostReadyAck{T: TypeHostReadyAck, Session: session}
}

func NewViewerJoinedAck(session, viewerID string) ViewerJoinedAck {
	return ViewerJoinedAck{T: TypeViewerJoinedAck, Session: session, ViewerID: viewerID}
}

func NewViewerJoined(viewerID string, count int) ViewerJoined {
	return ViewerJoined{T: TypeViewerJoined, ViewerID: viewerID, ViewerCount: count}
}

func NewViewerCountChanged(session string, count int) ViewerCountChanged {
	return ViewerCountChanged{T: TypeViewerCountChanged, Session: session, Count: count}
}

func NewHostDisconnected(session string) HostDisconnected {
	return HostDisconnected{T: TypeHostDisconnected, Session: session}
}

func NewOffer(session string, data json.RawMessage, hostID string) OfferOut {
	return OfferOut{T: TypeOffer, Session: session, Data: data, HostID: hostID}
}

func NewAnswer(session string, data json.RawMessage, viewerID string) AnswerOut {
	return AnswerOut{T: TypeAnswer, Session: session, Data: data, ViewerID: viewerID}
}

// NewHostCandidate is a candidate from the host, addressed to a viewer.
func NewHostCandidate(session string, data json.RawMessage, hostID string) ICECandidateOut {
	return ICECandidateOut{T: TypeICECandidate, Session: session, Data: data, From: FromHost, HostID: hostID}
}

// NewViewerCandidate is a candidate from a viewer, addressed to the host.
func NewViewerCandidate(session string, data json.RawMessage, viewerID string) ICECandidateOut {
	return ICECandidateOut{T: TypeICECandidate, Session: session, Data: data, From: FromViewer, ViewerID: viewerID}
}

func NewPong() Pong { return Pong{T: TypePong} }

func NewError(message string) Error {
	return Error{T: TypeError, Message: message}
}

// Encode marshals an outbound frame.
func Encode(v any) (core.Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return core.Frame(b), nil
}
