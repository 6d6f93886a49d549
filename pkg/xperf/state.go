package xperf

// State is the position of a Session in its lifecycle. A session only
// moves forward: Idle, Recording, Stopped, Converted, Parsed.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopped
	StateConverted
	StateParsed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopped:
		return "stopped"
	case StateConverted:
		return "converted"
	case StateParsed:
		return "parsed"
	default:
		return "unknown"
	}
}
