package forecast

import (
	"sync"
	"time"
)

// Session is the per-browser widget state: the active unit, the selected
// location and the last forecast that was fetched successfully. Only the
// newest selection may commit a result; responses for older selections are
// dropped when they arrive.
type Session struct {
	ID string

	mu        sync.Mutex
	unit      Unit
	location  *Location
	series    []ForecastDay
	fetchedAt time.Time
	lastSeen  time.Time

	seq     uint64
	loading bool
	errMsg  string
}

// NewSession creates an empty session using unit.
func NewSession(id string, unit Unit, now time.Time) *Session {
	if unit == "" {
		unit = Celsius
	}
	return &Session{ID: id, unit: unit, lastSeen: now}
}

// SessionView is a consistent copy of a session's state.
type SessionView struct {
	ID        string        `json:"id"`
	Unit      Unit          `json:"unit"`
	Location  *Location     `json:"location,omitempty"`
	Series    []ForecastDay `json:"-"`
	FetchedAt time.Time     `json:"fetchedAt"`
	Loading   bool          `json:"loading"`
	Error     string        `json:"error,omitempty"`
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := SessionView{
		ID:        s.ID,
		Unit:      s.unit,
		Series:    s.series,
		FetchedAt: s.fetchedAt,
		Loading:   s.loading,
		Error:     s.errMsg,
	}
	if s.location != nil {
		loc := *s.location
		v.Location = &loc
	}
	return v
}

// Touch records activity for idle pruning.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen reports the last recorded activity.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// ToggleUnit flips the unit and returns the new one.
func (s *Session) ToggleUnit() Unit {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unit = s.unit.Toggle()
	return s.unit
}

// beginFetch marks a new selection as in flight, hides any previous error and
// returns the sequence number the result must be committed with.
func (s *Session) beginFetch(loc Location) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	l := loc
	s.location = &l
	s.loading = true
	s.errMsg = ""
	return s.seq
}

// commit stores the outcome of fetch seq. It reports false when a newer
// selection has started since, in which case nothing changes.
func (s *Session) commit(seq uint64, series []ForecastDay, err error, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return false
	}
	s.loading = false
	if err != nil {
		s.errMsg = UserMessage(err)
		return true
	}
	s.series = series
	s.fetchedAt = now
	return true
}

// refreshTarget returns the selected location and the sequence a background
// refresh has to commit with. ok is false when nothing is selected or a
// selection is still in flight.
func (s *Session) refreshTarget() (loc Location, seq uint64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.location == nil || s.loading {
		return Location{}, 0, false
	}
	return *s.location, s.seq, true
}

// commitRefresh stores a background refresh of the location selected at seq.
// It reports false when a selection has started since. Unlike commit it never
// takes a sequence number of its own and never records failures.
func (s *Session) commitRefresh(seq uint64, series []ForecastDay, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq || s.loading {
		return false
	}
	s.series = series
	s.fetchedAt = now
	s.errMsg = ""
	return true
}
