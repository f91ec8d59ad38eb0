// Package serialctl implements the six-byte serial command protocol of
// the looper's control surface and the listener goroutine that feeds
// validated events into the engine.
//
// Frame layout: command byte, two track digits, sub-command byte, one
// group digit, terminator. Accepted frames are acknowledged with a single
// 'p', rejected frames with a single 'f'.
package serialctl

import (
	"github.com/rchanrussell/go-looper/internal/engine"
	"github.com/rchanrussell/go-looper/internal/errors"
)

const (
	// FrameLen is the fixed command frame length in bytes.
	FrameLen = 6

	// Ack and Nak are the single-byte command responses.
	Ack byte = 'p'
	Nak byte = 'f'

	// terminator of a regular frame; the play command also accepts the
	// repeat selectors 'r' and 's' in its place
	cr byte = '\r'
)

// Protocol bounds. Two track digits and one group digit cap the address
// space regardless of the engine's configured sizes.
const (
	MaxTrack = 16
	MaxGroup = 4
)

// Parse decodes one six-byte frame into an engine command. The returned
// error carries the reject reason for logging; the wire response is a
// bare Nak either way.
func Parse(frame []byte) (engine.Command, error) {
	var cmd engine.Command

	if len(frame) != FrameLen {
		return cmd, errors.Newf("command frame must be %d bytes, got %d", FrameLen, len(frame)).
			Component("serialctl").
			Category(errors.CategoryValidation).
			Context("length", len(frame)).
			Build()
	}

	switch frame[0] {
	case 'r', 'R':
		track, err := trackDigits(frame)
		if err != nil {
			return cmd, err
		}
		group, err := groupDigit(frame)
		if err != nil {
			return cmd, err
		}
		if err := wantTerminator(frame); err != nil {
			return cmd, err
		}
		cmd = engine.Command{Event: engine.EventRecord, Track: track, Group: group}

	case 'o', 'O':
		track, err := trackDigits(frame)
		if err != nil {
			return cmd, err
		}
		if err := wantTerminator(frame); err != nil {
			return cmd, err
		}
		cmd = engine.Command{Event: engine.EventOverdub, Track: track}

	case 'p', 'P':
		track, err := trackDigits(frame)
		if err != nil {
			return cmd, err
		}
		var repeat engine.RepeatChange
		switch frame[5] {
		case cr, '\n':
			repeat = engine.RepeatKeep
		case 'r':
			repeat = engine.RepeatOn
		case 's':
			repeat = engine.RepeatOff
		default:
			return cmd, badTerminator(frame[5])
		}
		cmd = engine.Command{Event: engine.EventPlay, Track: track, Repeat: repeat}

	case 'm', 'M':
		track, err := trackDigits(frame)
		if err != nil {
			return cmd, err
		}
		if err := wantTerminator(frame); err != nil {
			return cmd, err
		}
		cmd = engine.Command{Event: engine.EventMute, Track: track}

	case 'u', 'U':
		track, err := trackDigits(frame)
		if err != nil {
			return cmd, err
		}
		if err := wantTerminator(frame); err != nil {
			return cmd, err
		}
		cmd = engine.Command{Event: engine.EventUnmute, Track: track}

	case 't', 'T':
		track, err := trackDigits(frame)
		if err != nil {
			return cmd, err
		}
		group, err := groupDigit(frame)
		if err != nil {
			return cmd, err
		}
		if err := wantTerminator(frame); err != nil {
			return cmd, err
		}
		cmd = engine.Command{Event: engine.EventAddToGroup, Track: track, Group: group}

	case 'd', 'D':
		track, err := trackDigits(frame)
		if err != nil {
			return cmd, err
		}
		group, err := groupDigit(frame)
		if err != nil {
			return cmd, err
		}
		if err := wantTerminator(frame); err != nil {
			return cmd, err
		}
		cmd = engine.Command{Event: engine.EventRemoveFromGroup, Track: track, Group: group}

	case 'g', 'G':
		group, err := groupDigit(frame)
		if err != nil {
			return cmd, err
		}
		if err := wantTerminator(frame); err != nil {
			return cmd, err
		}
		cmd = engine.Command{Event: engine.EventSetGroup, Group: group}

	case 's', 'S':
		if err := wantTerminator(frame); err != nil {
			return cmd, err
		}
		cmd = engine.Command{Event: engine.EventReset}

	case 'q', 'Q':
		if err := wantTerminator(frame); err != nil {
			return cmd, err
		}
		cmd = engine.Command{Event: eventQuit}

	default:
		return cmd, errors.Newf("unknown command byte %q", frame[0]).
			Component("serialctl").
			Category(errors.CategoryValidation).
			Context("byte", frame[0]).
			Build()
	}

	return cmd, nil
}

// eventQuit is a protocol-level event: it never reaches the engine, the
// listener shuts down instead. The value sits past the engine's own
// events so it can share the Command struct.
const eventQuit engine.EventType = 0xFF

// trackDigits decodes bytes 1..2 as a two-digit track number.
func trackDigits(frame []byte) (int, error) {
	tens, ones := frame[1], frame[2]
	if !isDigit(tens) || !isDigit(ones) {
		return 0, errors.Newf("track field is not numeric: %q%q", tens, ones).
			Component("serialctl").
			Category(errors.CategoryValidation).
			Build()
	}
	track := int(tens-'0')*10 + int(ones-'0')
	if track >= MaxTrack {
		return 0, errors.Newf("track %d out of range", track).
			Component("serialctl").
			Category(errors.CategoryValidation).
			Context("track", track).
			Build()
	}
	return track, nil
}

// groupDigit decodes byte 4 as the group number. Byte 3 is the 'g'
// sub-command marker on frames that carry a group.
func groupDigit(frame []byte) (int, error) {
	if frame[3] != 'g' && frame[3] != 'G' {
		return 0, errors.Newf("missing group marker, got %q", frame[3]).
			Component("serialctl").
			Category(errors.CategoryValidation).
			Build()
	}
	if !isDigit(frame[4]) {
		return 0, errors.Newf("group field is not numeric: %q", frame[4]).
			Component("serialctl").
			Category(errors.CategoryValidation).
			Build()
	}
	group := int(frame[4] - '0')
	if group >= MaxGroup {
		return 0, errors.Newf("group %d out of range", group).
			Component("serialctl").
			Category(errors.CategoryValidation).
			Context("group", group).
			Build()
	}
	return group, nil
}

func wantTerminator(frame []byte) error {
	if frame[5] != cr && frame[5] != '\n' {
		return badTerminator(frame[5])
	}
	return nil
}

func badTerminator(b byte) error {
	return errors.Newf("bad terminator byte %q", b).
		Component("serialctl").
		Category(errors.CategoryValidation).
		Context("byte", b).
		Build()
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
