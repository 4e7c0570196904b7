package resource

// Handle is an opaque reference to a tracked native allocation.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Kind tags what a tracked value holds.
type Kind uint8

const (
	KindDevice        Kind = iota + 1 // a bound device wrapper
	KindVirtualDevice                 // a uinput device created from a description
	KindStream                        // a FILE stream held open across calls
)

func (k Kind) String() string {
	switch k {
	case KindDevice:
		return "device"
	case KindVirtualDevice:
		return "virtual-device"
	case KindStream:
		return "stream"
	default:
		return "unknown"
	}
}

// EventType identifies a lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

// Event represents a resource lifecycle event.
type Event struct {
	Value  Dropper
	Err    error
	Handle Handle
	Kind   Kind
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// Dropper is implemented by every tracked value. Drop releases the native
// allocation and must be safe to call more than once.
type Dropper interface {
	Drop() error
}
