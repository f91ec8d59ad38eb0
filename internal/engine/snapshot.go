package engine

// TrackSnapshot is a point-in-time copy of one track's public state.
type TrackSnapshot struct {
	State   string `json:"state"`
	Repeat  bool   `json:"repeat"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Current int    `json:"current"`
	Groups  []int  `json:"groups"`
}

// Snapshot is a point-in-time copy of the engine state for diagnostics.
// All slices are allocated once and reused; readers receive a deep copy.
type Snapshot struct {
	State         string          `json:"state"`
	SelectedGroup int             `json:"selected_group"`
	SelectedTrack int             `json:"selected_track"`
	MasterCurrent int             `json:"master_current"`
	MasterLength  []int           `json:"master_length"`
	Tracks        []TrackSnapshot `json:"tracks"`
}

func newSnapshot(tracks, groups int) Snapshot {
	s := Snapshot{
		MasterLength: make([]int, groups),
		Tracks:       make([]TrackSnapshot, tracks),
	}
	for t := range s.Tracks {
		s.Tracks[t].Groups = make([]int, 0, groups)
	}
	return s
}

// publishSnapshot refreshes the diagnostics snapshot at the end of a
// cycle. A seqlock (odd sequence = write in progress) keeps readers on
// other goroutines from observing a torn copy without the realtime
// goroutine ever taking a lock. All buffers are pre-allocated.
func (l *Looper) publishSnapshot() {
	l.publishedAt.Add(1) // odd: write in progress

	s := &l.snap
	s.State = l.state.String()
	s.SelectedGroup = l.selectedGroup
	s.SelectedTrack = l.selectedTrack
	s.MasterCurrent = l.masterCurrIdx
	copy(s.MasterLength, l.masterLength)
	for t := range l.tracks {
		tr := l.tracks[t]
		ts := &s.Tracks[t]
		ts.State = tr.state.String()
		ts.Repeat = tr.repeat
		ts.Start = tr.startIdx
		ts.End = tr.endIdx
		ts.Current = tr.currIdx
		ts.Groups = ts.Groups[:0]
		for g := range l.members {
			if l.members[g][t] {
				ts.Groups = append(ts.Groups, g)
			}
		}
	}

	l.publishedAt.Add(1) // even: stable
}

// ReadSnapshot returns a deep copy of the last published snapshot. It
// retries while the realtime goroutine is mid-publish; after a few
// failed attempts the possibly-torn copy is returned anyway, which is
// acceptable for diagnostics output.
func (l *Looper) ReadSnapshot() Snapshot {
	var out Snapshot
	for range 5 {
		seq := l.publishedAt.Load()
		if seq%2 != 0 {
			continue
		}
		out = l.copySnapshot()
		if l.publishedAt.Load() == seq {
			return out
		}
	}
	return l.copySnapshot()
}

func (l *Looper) copySnapshot() Snapshot {
	s := l.snap
	out := Snapshot{
		State:         s.State,
		SelectedGroup: s.SelectedGroup,
		SelectedTrack: s.SelectedTrack,
		MasterCurrent: s.MasterCurrent,
		MasterLength:  append([]int(nil), s.MasterLength...),
		Tracks:        make([]TrackSnapshot, len(s.Tracks)),
	}
	for t := range s.Tracks {
		out.Tracks[t] = s.Tracks[t]
		out.Tracks[t].Groups = append([]int(nil), s.Tracks[t].Groups...)
	}
	return out
}
