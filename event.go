package i7565

import "fmt"

type EventType int

func (et EventType) String() string {
	switch et {
	case EventTypeError:
		return "ERROR"
	case EventTypeWarning:
		return "WARN"
	case EventTypeInfo:
		return "INFO"
	case EventTypeDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

const (
	EventTypeError EventType = iota
	EventTypeWarning
	EventTypeInfo
	EventTypeDebug
)

// Event is a driver diagnostic. Line holds the raw converter line that caused
// it, without the CR, and is empty for events not tied to received traffic.
type Event struct {
	Type    EventType
	Details string
	Line    string
}

func (e Event) String() string {
	if e.Line == "" {
		return fmt.Sprintf("[%s] %s", e.Type, e.Details)
	}
	return fmt.Sprintf("[%s] %s: %q", e.Type, e.Details, e.Line)
}
