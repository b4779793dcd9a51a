package app

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	Disconnect
)

// Policy decides what happens to a peer whose send queue is full.
type Policy interface {
	OnBackPressure(conn *Connection) BackpressureAction
}

// SimplePolicy disconnects any peer that cannot keep up.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(*Connection) BackpressureAction {
	return Disconnect
}
