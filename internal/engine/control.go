package engine

// apply runs one validated command through the control state machine.
// Events that are not legal in the current system state are counted and
// dropped; nothing here may allocate or block, since apply runs on the
// realtime goroutine at the top of a cycle.
func (l *Looper) apply(cmd *Command) {
	ok := false

	switch cmd.Event {
	case EventPassthrough:
		if l.state != StatePassthrough {
			l.resetSystem()
			ok = true
		}

	case EventReset:
		l.resetSystem()
		ok = true

	case EventRecord:
		if l.state == StatePassthrough || l.state == StatePlayback {
			l.startRecording(cmd.Track, cmd.Group)
			ok = true
		}

	case EventOverdub:
		if l.state == StatePlayback {
			ok = l.startOverdubbing(cmd.Track)
		}

	case EventPlay:
		switch l.state {
		case StateRecording:
			l.stopRecording(cmd.Repeat)
			ok = true
		case StateOverdubbing:
			l.stopOverdubbing(cmd.Repeat)
			ok = true
		case StatePlayback:
			l.updateRepeat(cmd.Track, cmd.Repeat)
			ok = true
		}

	case EventMute:
		if l.state == StatePlayback {
			if t := l.tracks[cmd.Track]; t.state == TrackPlayback {
				t.state = TrackMute
				ok = true
			}
		}

	case EventUnmute:
		if l.state == StatePlayback {
			if t := l.tracks[cmd.Track]; t.state == TrackMute {
				t.state = TrackPlayback
				ok = true
			}
		}

	case EventAddToGroup:
		if l.state == StatePlayback {
			l.members[cmd.Group][cmd.Track] = true
			if e := l.tracks[cmd.Track].endIdx; e > l.masterLength[cmd.Group] {
				l.masterLength[cmd.Group] = e
			}
			ok = true
		}

	case EventRemoveFromGroup:
		if l.state == StatePlayback {
			l.members[cmd.Group][cmd.Track] = false
			l.recomputeMasterLength(cmd.Group)
			ok = true
		}

	case EventSetGroup:
		if l.state == StatePlayback {
			l.setActiveGroup(cmd.Group)
			ok = true
		}

	case EventCalibrate:
		if l.state == StatePassthrough {
			l.startCalibration()
			ok = true
		}

	case EventEndCalibrate:
		if l.state == StateCalibration {
			l.calibration.state = TrackPlayback
			l.state = StatePassthrough
			ok = true
		}
	}

	if ok {
		l.applied.Add(1)
	} else {
		l.ignored.Add(1)
	}
}

// startRecording binds track t into group g and arms it as the recording
// destination. When the target group is empty, newly selected, or t is its
// only active track, the master clock restarts so the new loop defines the
// section from zero.
func (l *Looper) startRecording(t, g int) {
	active := l.activeTracksInGroup(g)
	onlyTrack := active == 1 && l.members[g][t] && l.tracks[t].state != TrackOff

	if active == 0 || g != l.selectedGroup || onlyTrack {
		l.masterCurrIdx = 0
		l.masterLength[g] = 0
	}

	l.members[g][t] = true
	l.selectedGroup = g
	l.selectedTrack = t

	tr := l.tracks[t]
	tr.startIdx = l.masterCurrIdx
	tr.currIdx = l.masterCurrIdx
	tr.endIdx = 0
	tr.repeat = false
	tr.state = TrackRecording

	l.state = StateRecording
}

// startOverdubbing arms an already recorded member of the active group for
// summing. Returns false when the target cannot be overdubbed.
func (l *Looper) startOverdubbing(t int) bool {
	if !l.members[l.selectedGroup][t] {
		return false
	}
	tr := l.tracks[t]
	if tr.state == TrackOff || tr.endIdx == 0 {
		return false
	}
	l.selectedTrack = t
	tr.state = TrackRecording
	l.state = StateOverdubbing
	return true
}

// stopRecording finalizes the selected track's loop. The loop end lands
// playFrameDelay frames past the current position; the cycle observing
// this transition still captures those frames (see Process). When the new
// loop defines the group's master length the master clock restarts and
// every member realigns, so the whole section plays from the top.
func (l *Looper) stopRecording(rep RepeatChange) {
	g := l.selectedGroup
	tr := l.tracks[l.selectedTrack]

	end := tr.currIdx + l.playFrameDelay
	if end > tr.maxIdx {
		end = tr.maxIdx
	}
	l.finalize = tr
	l.finalizeAt = tr.currIdx
	tr.endIdx = end

	l.applyRepeat(tr, rep)
	tr.state = TrackPlayback
	l.state = StatePlayback

	if end >= l.masterLength[g] {
		l.masterLength[g] = end
		l.masterCurrIdx = 0
		l.realignGroup(g)
	}
}

// stopOverdubbing finalizes an overdub session. Unlike a fresh recording
// the existing loop extent is preserved; the end only moves outward when
// the overdub ran past it.
func (l *Looper) stopOverdubbing(rep RepeatChange) {
	g := l.selectedGroup
	tr := l.tracks[l.selectedTrack]

	end := tr.currIdx + l.playFrameDelay
	if end > tr.maxIdx {
		end = tr.maxIdx
	}
	if end > tr.endIdx {
		tr.endIdx = end
		l.finalize = tr
		l.finalizeAt = tr.currIdx
		l.finalizeOverdub = true
	}
	if tr.endIdx > l.masterLength[g] {
		l.masterLength[g] = tr.endIdx
	}

	l.applyRepeat(tr, rep)
	tr.state = TrackPlayback
	l.state = StatePlayback
}

// updateRepeat changes a track's repeat flag during playback.
func (l *Looper) updateRepeat(t int, rep RepeatChange) {
	l.applyRepeat(l.tracks[t], rep)
}

func (l *Looper) applyRepeat(tr *Track, rep RepeatChange) {
	switch rep {
	case RepeatOn:
		tr.repeat = true
	case RepeatOff:
		tr.repeat = false
	case RepeatKeep:
	}
}

// setActiveGroup switches sections. Two passes: first every non-Off track
// is muted, then the members of the new group return to playback, repeat
// tracks from their loop start and the others from index zero. The master
// clock restarts for the new section.
func (l *Looper) setActiveGroup(g int) {
	for _, tr := range l.tracks {
		if tr.state != TrackOff {
			tr.state = TrackMute
		}
	}
	for t, in := range l.members[g] {
		if !in {
			continue
		}
		tr := l.tracks[t]
		if tr.state != TrackMute {
			continue
		}
		tr.state = TrackPlayback
		if tr.repeat {
			tr.currIdx = tr.startIdx
		} else {
			tr.currIdx = 0
		}
	}
	l.selectedGroup = g
	l.masterCurrIdx = 0
}

// startCalibration rewinds the fixed calibration track and begins the
// diagnostic recording.
func (l *Looper) startCalibration() {
	c := l.calibration
	c.startIdx = 0
	c.currIdx = 0
	c.endIdx = 0
	c.repeat = false
	c.state = TrackRecording
	l.state = StateCalibration
}

// resetSystem returns every track to Off, clears group membership and the
// master clocks, and drops to passthrough. Applying it twice equals
// applying it once.
func (l *Looper) resetSystem() {
	for _, tr := range l.tracks {
		tr.reset()
	}
	l.calibration.reset()
	for g := range l.members {
		for t := range l.members[g] {
			l.members[g][t] = false
		}
		l.masterLength[g] = 0
	}
	l.masterCurrIdx = 0
	l.selectedGroup = 0
	l.selectedTrack = 0
	l.finalize = nil
	l.state = StatePassthrough
}

// realignGroup rewinds every active member of g: repeat tracks to their
// loop start, the others to index zero.
func (l *Looper) realignGroup(g int) {
	for t, in := range l.members[g] {
		if !in {
			continue
		}
		tr := l.tracks[t]
		if tr.state == TrackOff {
			continue
		}
		if tr.repeat {
			tr.currIdx = tr.startIdx
		} else {
			tr.currIdx = 0
		}
	}
}

// recomputeMasterLength rebuilds masterLength[g] from the remaining
// members, keeping the longest-end invariant after a removal.
func (l *Looper) recomputeMasterLength(g int) {
	length := 0
	for t, in := range l.members[g] {
		if in && l.tracks[t].endIdx > length {
			length = l.tracks[t].endIdx
		}
	}
	l.masterLength[g] = length
}

// activeTracksInGroup counts the members of g that hold audio.
func (l *Looper) activeTracksInGroup(g int) int {
	n := 0
	for t, in := range l.members[g] {
		if in && l.tracks[t].state != TrackOff {
			n++
		}
	}
	return n
}
