package engine

// EventType enumerates the state-change events the control surface can
// submit. Events not legal in the current system state are silently
// ignored by the control state machine.
type EventType uint8

const (
	// EventPassthrough returns the system to bypass, resetting all tracks.
	EventPassthrough EventType = iota
	// EventRecord starts recording into a track within a group.
	EventRecord
	// EventOverdub starts summing live input onto an existing track.
	EventOverdub
	// EventPlay stops recording/overdubbing, or updates a track's repeat
	// flag during playback.
	EventPlay
	// EventMute makes the mixer skip a track.
	EventMute
	// EventUnmute returns a muted track to playback.
	EventUnmute
	// EventAddToGroup adds a track to a group.
	EventAddToGroup
	// EventRemoveFromGroup removes a track from a group.
	EventRemoveFromGroup
	// EventSetGroup selects the active group.
	EventSetGroup
	// EventReset returns every track to Off and the system to passthrough.
	EventReset
	// EventCalibrate starts a diagnostic recording into the fixed
	// calibration track.
	EventCalibrate
	// EventEndCalibrate stops a calibration run.
	EventEndCalibrate
)

// String returns a short name for logging.
func (e EventType) String() string {
	switch e {
	case EventPassthrough:
		return "passthrough"
	case EventRecord:
		return "record"
	case EventOverdub:
		return "overdub"
	case EventPlay:
		return "play"
	case EventMute:
		return "mute"
	case EventUnmute:
		return "unmute"
	case EventAddToGroup:
		return "add-to-group"
	case EventRemoveFromGroup:
		return "remove-from-group"
	case EventSetGroup:
		return "set-group"
	case EventReset:
		return "reset"
	case EventCalibrate:
		return "calibrate"
	case EventEndCalibrate:
		return "end-calibrate"
	default:
		return "unknown"
	}
}

// RepeatChange carries the repeat semantics of a play event.
type RepeatChange uint8

const (
	// RepeatKeep leaves the track's repeat flag untouched.
	RepeatKeep RepeatChange = iota
	// RepeatOn enables looping.
	RepeatOn
	// RepeatOff disables looping.
	RepeatOff
)

// Command is one validated state-change event. Track and Group are engine
// indices already checked by the producer; the engine re-validates before
// applying. The frame delays are the producer's estimate of how far into
// the current audio cycle the command arrived, used for edge alignment.
type Command struct {
	Event          EventType
	Track          int
	Group          int
	Repeat         RepeatChange
	RecFrameDelay  int
	PlayFrameDelay int
}
