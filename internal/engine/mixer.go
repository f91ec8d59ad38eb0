package engine

// mixGroup sums the active tracks of group g at their current positions
// into the internal mixdown buffers, then adds the live input. The limiter
// runs on every accumulation so intermediate sums can never escape the
// hard ceiling. Tracks whose position has moved past endIdx without repeat
// contribute nothing; that is the silent exclusion the playback rules
// require, not an error.
//
// Repeat tracks are read through the loop body modulo its span, so a cycle
// that crosses endIdx mid-buffer wraps to startIdx without a seam.
func (l *Looper) mixGroup(g int, inL, inR []float32, n int) {
	mixL := l.mixL[:n]
	mixR := l.mixR[:n]
	for s := range mixL {
		mixL[s] = 0
		mixR[s] = 0
	}

	stereo := l.cfg.Channels > 1
	for t, in := range l.members[g] {
		if !in {
			continue
		}
		tr := l.tracks[t]
		if tr.state == TrackOff || tr.state == TrackMute {
			continue
		}

		span := tr.endIdx - tr.startIdx
		if tr.currIdx < tr.startIdx {
			continue
		}
		if tr.repeat {
			if span <= 0 {
				continue
			}
		} else if tr.currIdx >= tr.endIdx {
			continue
		}

		for s := 0; s < n; s++ {
			i := tr.currIdx + s
			if i >= tr.endIdx {
				if !tr.repeat {
					break
				}
				i = tr.startIdx + (i-tr.startIdx)%span
			}
			mixL[s] = clampSample(limit(float64(mixL[s]) + float64(tr.sample(0, i))))
			if stereo {
				mixR[s] = clampSample(limit(float64(mixR[s]) + float64(tr.sample(1, i))))
			}
		}
	}

	if !stereo {
		copy(mixR, mixL)
	}

	if inL != nil {
		for s := 0; s < n; s++ {
			mixL[s] = clampSample(limit(float64(mixL[s]) + float64(inL[s])))
		}
	}
	if inR != nil {
		for s := 0; s < n; s++ {
			mixR[s] = clampSample(limit(float64(mixR[s]) + float64(inR[s])))
		}
	} else if inL != nil {
		// Mono source: the left sum, live input included, feeds both
		// output sides.
		copy(mixR, mixL)
	}
}
