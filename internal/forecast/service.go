package forecast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultRefreshTimeout bounds each location's fetch during RefreshAll.
const DefaultRefreshTimeout = 30 * time.Second

// Service connects the provider, the session store and the renderer.
type Service struct {
	provider Provider
	sessions SessionStore
	logger   *zap.Logger
	now      func() time.Time

	refreshTimeout time.Duration
}

// NewService creates a new Service.
func NewService(provider Provider, sessions SessionStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		provider: provider,
		sessions: sessions,
		logger:   logger,
		now:      time.Now,

		refreshTimeout: DefaultRefreshTimeout,
	}
}

// Fetch calls the provider for the given coordinates.
func (s *Service) Fetch(ctx context.Context, lat, lon float64) ([]ForecastDay, error) {
	if s.provider == nil {
		return nil, errors.New("no forecast provider configured")
	}
	return s.provider.Fetch(ctx, lat, lon)
}

// Select fetches the forecast for loc and commits it to the session. Errors
// are recorded on the session as a user-facing message and also returned.
// If another selection started while this one was in flight, the result is
// discarded.
func (s *Service) Select(ctx context.Context, sess *Session, loc Location) error {
	seq := sess.beginFetch(loc)

	start := s.now()
	series, err := s.Fetch(ctx, loc.Lat, loc.Lon)

	if !sess.commit(seq, series, err, s.now()) {
		s.logger.Debug("Discarding stale forecast response",
			zap.String("session", sess.ID),
			zap.String("location", loc.Name),
			zap.Uint64("seq", seq))
		return nil
	}

	if err != nil {
		s.logger.Error("Error fetching weather data",
			zap.String("session", sess.ID),
			zap.String("location", loc.Name),
			zap.String("coords", loc.ID()),
			zap.Error(err))
		return fmt.Errorf("fetch forecast for %s: %w", loc.Name, err)
	}

	s.logger.Info("Forecast fetched",
		zap.String("session", sess.ID),
		zap.String("location", loc.Name),
		zap.Int("days", len(series)),
		zap.Duration("duration", s.now().Sub(start)))
	return nil
}

// ToggleUnit flips the session's unit and re-renders the stored forecast.
// It never calls the provider.
func (s *Service) ToggleUnit(sess *Session) []DisplayCard {
	unit := sess.ToggleUnit()
	s.logger.Debug("Temperature unit toggled",
		zap.String("session", sess.ID),
		zap.String("unit", string(unit)))
	return s.Cards(sess)
}

// Cards renders the session's stored forecast in its active unit.
func (s *Service) Cards(sess *Session) []DisplayCard {
	view := sess.Snapshot()
	return Render(view.Series, view.Unit, s.now())
}

// Session returns the session with the given id, creating a new one when id
// is empty or unknown.
func (s *Service) Session(id string, unit Unit) (sess *Session, created bool) {
	if id != "" {
		if existing, err := s.sessions.Get(id); err == nil {
			existing.Touch(s.now())
			return existing, false
		}
	}
	return s.sessions.Create(unit), true
}

type refreshEntry struct {
	sess *Session
	seq  uint64
}

// RefreshAll re-fetches the selected location of every idle session and
// returns how many sessions were updated. Each distinct location is fetched
// once, concurrently, under its own timeout. A failed refresh only logs: the
// session keeps its forecast and shows no error, and a session whose user
// selected something else meanwhile is left alone.
func (s *Service) RefreshAll(ctx context.Context) int {
	groups := make(map[string][]refreshEntry)
	locations := make(map[string]Location)
	for _, sess := range s.sessions.List() {
		loc, seq, ok := sess.refreshTarget()
		if !ok {
			continue
		}
		id := loc.ID()
		groups[id] = append(groups[id], refreshEntry{sess: sess, seq: seq})
		locations[id] = loc
	}

	var (
		wg      sync.WaitGroup
		updated atomic.Int64
	)
	for id, targets := range groups {
		wg.Add(1)
		go func(loc Location, targets []refreshEntry) {
			defer wg.Done()
			updated.Add(int64(s.refreshLocation(ctx, loc, targets)))
		}(locations[id], targets)
	}
	wg.Wait()
	return int(updated.Load())
}

func (s *Service) refreshLocation(ctx context.Context, loc Location, targets []refreshEntry) int {
	ctx, cancel := context.WithTimeout(ctx, s.refreshTimeout)
	defer cancel()

	series, err := s.Fetch(ctx, loc.Lat, loc.Lon)
	if err != nil {
		s.logger.Warn("Background refresh failed",
			zap.String("location", loc.Name),
			zap.String("coords", loc.ID()),
			zap.Int("sessions", len(targets)),
			zap.Error(err))
		return 0
	}

	now := s.now()
	n := 0
	for _, t := range targets {
		if t.sess.commitRefresh(t.seq, series, now) {
			n++
		}
	}
	if n < len(targets) {
		s.logger.Debug("Skipped refresh for reselected sessions",
			zap.String("location", loc.Name),
			zap.Int("skipped", len(targets)-n))
	}
	return n
}

// PruneSessions drops idle sessions and returns how many were removed.
func (s *Service) PruneSessions() int {
	return s.sessions.Prune(s.now())
}
