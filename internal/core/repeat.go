package core

// RepeatMode defines queue boundary behavior for next/previous navigation.
type RepeatMode int

const (
	// RepeatOff stops playback at the end of the queue.
	RepeatOff RepeatMode = iota
	// RepeatTrack loops the current track.
	RepeatTrack
	// RepeatContext wraps around to the start of the queue.
	RepeatContext
)

// Cycle returns the next repeat mode in off → track → context → off order.
func (m RepeatMode) Cycle() RepeatMode {
	switch m {
	case RepeatOff:
		return RepeatTrack
	case RepeatTrack:
		return RepeatContext
	default:
		return RepeatOff
	}
}

// String returns the repeat mode name.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "off"
	case RepeatTrack:
		return "track"
	case RepeatContext:
		return "context"
	default:
		return "unknown"
	}
}

// ParseRepeatMode parses a repeat mode name. Unknown names map to RepeatOff.
func ParseRepeatMode(s string) RepeatMode {
	switch s {
	case "track":
		return RepeatTrack
	case "context":
		return RepeatContext
	default:
		return RepeatOff
	}
}
