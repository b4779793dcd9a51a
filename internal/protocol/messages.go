// Package protocol defines the JSON frames exchanged over the signaling
// socket. Every frame is an object discriminated by its "t" field.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Type string

const (
	TypeHostReady          Type = "host-ready"
	TypeHostReadyAck       Type = "host-ready-ack"
	TypeViewerJoin         Type = "viewer-join"
	TypeViewerJoinedAck    Type = "viewer-joined-ack"
	TypeViewerJoined       Type = "viewer-joined"
	TypeViewerCountChanged Type = "viewer-count-changed"
	TypeHostDisconnected   Type = "host-disconnected"
	TypeOffer              Type = "offer"
	TypeAnswer             Type = "answer"
	TypeICECandidate       Type = "ice-candidate"
	TypeCursor             Type = "cursor"
	TypeStats              Type = "stats"
	TypePing               Type = "ping"
	TypePong               Type = "pong"
	TypeError              Type = "error"
)

// Values of the "from" tag on forwarded ice-candidate frames.
const (
	FromHost   = "host"
	FromViewer = "viewer"
)

var (
	ErrMalformed    = errors.New("malformed message")
	ErrMissingField = errors.New("missing field")
)

// Message is one decoded inbound frame. The set of implementations is closed.
type Message interface {
	Type() Type
	inbound()
}

type HostReady struct {
	Session string `json:"s"`
}

type ViewerJoin struct {
	Session  string `json:"s"`
	ViewerID string `json:"uid"`
}

type Offer struct {
	Session        string          `json:"s"`
	Data           json.RawMessage `json:"d"`
	TargetViewerID string          `json:"targetViewerId"`
}

type Answer struct {
	Session string          `json:"s"`
	Data    json.RawMessage `json:"d"`
}

// ICECandidate goes host→viewer when TargetViewerID is set by a host, and
// viewer→host otherwise. The sender's From claim is informational only.
type ICECandidate struct {
	Session        string          `json:"s"`
	Data           json.RawMessage `json:"d"`
	TargetViewerID string          `json:"targetViewerId,omitempty"`
	From           string          `json:"from,omitempty"`
}

// Cursor is fanned out verbatim; Raw holds the frame as received.
type Cursor struct {
	ViewerID string          `json:"uid"`
	Pos      json.RawMessage `json:"pos"`
	Raw      []byte          `json:"-"`
}

type Stats struct {
	Session string          `json:"s"`
	Data    json.RawMessage `json:"d"`
}

type Ping struct{}

// Unknown is a frame whose "t" is not part of the protocol.
type Unknown struct {
	Name string
}

func (HostReady) Type() Type    { return TypeHostReady }
func (ViewerJoin) Type() Type   { return TypeViewerJoin }
func (Offer) Type() Type        { return TypeOffer }
func (Answer) Type() Type       { return TypeAnswer }
func (ICECandidate) Type() Type { return TypeICECandidate }
func (Cursor) Type() Type       { return TypeCursor }
func (Stats) Type() Type        { return TypeStats }
func (Ping) Type() Type         { return TypePing }
func (u Unknown) Type() Type    { return Type(u.Name) }

func (HostReady) inbound()    {}
func (ViewerJoin) inbound()   {}
func (Offer) inbound()        {}
func (Answer) inbound()       {}
func (ICECandidate) inbound() {}
func (Cursor) inbound()       {}
func (Stats) inbound()        {}
func (Ping) inbound()         {}
func (Unknown) inbound()      {}

// Bytes returns the transferred-bytes figure a host reported, if any.
func (s Stats) Bytes() uint64 {
	var d struct {
		BytesTransferred *float64 `json:"bytesTransferred"`
	}
	if len(s.Data) == 0 || json.Unmarshal(s.Data, &d) != nil || d.BytesTransferred == nil {
		return 0
	}
	if *d.BytesTransferred < 0 {
		return 0
	}
	return uint64(*d.BytesTransferred)
}

// Decode parses one inbound frame.
func Decode(data []byte) (Message, error) {
	var env struct {
		T Type `json:"t"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.T == "" {
		return nil, fmt.Errorf("%w: t", ErrMissingField)
	}

	switch env.T {
	case TypeHostReady:
		m, err := decodeAs[HostReady](data)
		if err != nil {
			return nil, err
		}
		if m.Session == "" {
			return nil, fmt.Errorf("%w: s", ErrMissingField)
		}
		return m, nil
	case TypeViewerJoin:
		m, err := decodeAs[ViewerJoin](data)
		if err != nil {
			return nil, err
		}
		if m.Session == "" {
			return nil, fmt.Errorf("%w: s", ErrMissingField)
		}
		if m.ViewerID == "" {
			return nil, fmt.Errorf("%w: uid", ErrMissingField)
		}
		return m, nil
	case TypeOffer:
		m, err := decodeAs[Offer](data)
		if err != nil {
			return nil, err
		}
		if m.TargetViewerID == "" {
			return nil, fmt.Errorf("%w: targetViewerId", ErrMissingField)
		}
		if isEmpty(m.Data) {
			return nil, fmt.Errorf("%w: d", ErrMissingField)
		}
		return m, nil
	case TypeAnswer:
		m, err := decodeAs[Answer](data)
		if err != nil {
			return nil, err
		}
		if isEmpty(m.Data) {
			return nil, fmt.Errorf("%w: d", ErrMissingField)
		}
		return m, nil
	case TypeICECandidate:
		m, err := decodeAs[ICECandidate](data)
		if err != nil {
			return nil, err
		}
		if isEmpty(m.Data) {
			return nil, fmt.Errorf("%w: d", ErrMissingField)
		}
		return m, nil
	case TypeCursor:
		m, err := decodeAs[Cursor](data)
		if err != nil {
			return nil, err
		}
		m.Raw = append([]byte(nil), data...)
		return m, nil
	case TypeStats:
		return decodeAs[Stats](data)
	case TypePing:
		return Ping{}, nil
	default:
		return Unknown{Name: string(env.T)}, nil
	}
}

func decodeAs[T Message](data []byte) (T, error) {
	var m T
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return m, nil
}

func isEmpty(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
