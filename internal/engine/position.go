package engine

// advancePositions runs after the cycle's data has been copied. It moves
// the master index and every active track of the selected group by n
// frames, growing the recording track's extent and wrapping playback
// tracks per the repeat rules.
//
// The master wrap decision uses the master index as advanced this cycle;
// it is reset only after every track update so all tracks wrap coherently.
func (l *Looper) advancePositions(n int) {
	g := l.selectedGroup

	l.masterCurrIdx += n
	if l.masterCurrIdx > l.cfg.SampleLimit {
		l.masterCurrIdx = l.cfg.SampleLimit
	}

	recording := l.state == StateRecording || l.state == StateOverdubbing

	// While recording, the master length is being redefined by the
	// recording track; realignment of the others waits for the stop.
	masterWrap := l.state == StatePlayback && l.masterCurrIdx >= l.masterLength[g]

	for t, in := range l.members[g] {
		if !in {
			continue
		}
		tr := l.tracks[t]
		if tr.state == TrackOff {
			continue
		}

		tr.currIdx += n

		if recording && t == l.selectedTrack {
			if tr.currIdx > l.cfg.SampleLimit {
				// Buffer-full guard: keep what was captured, stop growing.
				tr.currIdx = l.cfg.SampleLimit
				tr.endIdx = l.cfg.SampleLimit
				tr.state = TrackPlayback
				l.state = StatePlayback
				l.overflows.Add(1)
			}
			if tr.currIdx > tr.endIdx {
				tr.endIdx = tr.currIdx
			}
			// The track may belong to other groups as well; every group
			// holding it keeps a master length no shorter than its end.
			for mg := range l.members {
				if l.members[mg][t] && tr.endIdx > l.masterLength[mg] {
					l.masterLength[mg] = tr.endIdx
				}
			}
			continue
		}

		// Playback: the repeat wrap keeps the overshoot so a loop that is
		// not cycle-aligned stays sample-accurate; the master realign only
		// applies to tracks that did not wrap on their own.
		switch {
		case tr.repeat && tr.currIdx >= tr.endIdx:
			span := tr.endIdx - tr.startIdx
			if span > 0 {
				tr.currIdx = tr.startIdx + (tr.currIdx-tr.startIdx)%span
			} else {
				tr.currIdx = tr.startIdx
			}
		case masterWrap:
			if tr.repeat {
				tr.currIdx = tr.startIdx
			} else {
				tr.currIdx = 0
			}
		}
	}

	if l.state == StatePlayback && masterWrap {
		l.masterCurrIdx = 0
	}
}
