package forecast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type stubProvider struct {
	calls atomic.Int32
	fetch func(ctx context.Context, lat, lon float64) ([]ForecastDay, error)
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Fetch(ctx context.Context, lat, lon float64) ([]ForecastDay, error) {
	p.calls.Add(1)
	return p.fetch(ctx, lat, lon)
}

type mapStore struct {
	mu       sync.Mutex
	next     int
	sessions map[string]*Session
}

func newMapStore() *mapStore {
	return &mapStore{sessions: make(map[string]*Session)}
}

func (m *mapStore) Create(unit Unit) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	sess := NewSession(fmt.Sprintf("s%d", m.next), unit, testNow)
	m.sessions[sess.ID] = sess
	return sess
}

func (m *mapStore) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[id]; ok {
		return sess, nil
	}
	return nil, errors.New("not found")
}

func (m *mapStore) List() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess)
	}
	return out
}

func (m *mapStore) Prune(now time.Time) int { return 0 }

var (
	london = Location{Name: "London", Lat: 51.5074, Lon: -0.1278}
	tokyo  = Location{Name: "Tokyo", Lat: 35.6762, Lon: 139.6503}
)

func newTestService(t *testing.T, p Provider) *Service {
	t.Helper()
	svc := NewService(p, newMapStore(), zaptest.NewLogger(t))
	svc.now = func() time.Time { return testNow }
	return svc
}

func staticSeries(days ...ForecastDay) func(context.Context, float64, float64) ([]ForecastDay, error) {
	return func(context.Context, float64, float64) ([]ForecastDay, error) {
		return days, nil
	}
}

func TestServiceSelectStoresSeries(t *testing.T) {
	p := &stubProvider{fetch: staticSeries(ForecastDay{Weather: "clear", Timepoint: intPtr(12), Temp2m: Single(20)})}
	svc := newTestService(t, p)
	sess, _ := svc.Session("", Celsius)

	if err := svc.Select(context.Background(), sess, london); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	view := sess.Snapshot()
	if view.Loading {
		t.Error("loading should be cleared after the fetch completes")
	}
	if view.Location == nil || view.Location.Name != "London" {
		t.Errorf("location = %+v, want London", view.Location)
	}
	if !view.FetchedAt.Equal(testNow) {
		t.Errorf("fetchedAt = %v, want %v", view.FetchedAt, testNow)
	}

	cards := svc.Cards(sess)
	if len(cards) != 1 || cards[0].HighLabel() != "H: 20°C" {
		t.Fatalf("unexpected cards: %+v", cards)
	}
}

func TestServiceSelectPassesCoordinates(t *testing.T) {
	var gotLat, gotLon float64
	p := &stubProvider{fetch: func(_ context.Context, lat, lon float64) ([]ForecastDay, error) {
		gotLat, gotLon = lat, lon
		return []ForecastDay{{Weather: "fog"}}, nil
	}}
	svc := newTestService(t, p)
	sess, _ := svc.Session("", Celsius)

	if err := svc.Select(context.Background(), sess, tokyo); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLat != tokyo.Lat || gotLon != tokyo.Lon {
		t.Errorf("provider called with (%v, %v), want (%v, %v)", gotLat, gotLon, tokyo.Lat, tokyo.Lon)
	}
}

func TestServiceToggleUnitDoesNotFetch(t *testing.T) {
	p := &stubProvider{fetch: staticSeries(ForecastDay{Weather: "rain", Temp2m: Range(10, 0)})}
	svc := newTestService(t, p)
	sess, _ := svc.Session("", Celsius)

	if err := svc.Select(context.Background(), sess, london); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cards := svc.ToggleUnit(sess)
	if p.calls.Load() != 1 {
		t.Errorf("provider called %d times, want 1", p.calls.Load())
	}
	if len(cards) != 1 || cards[0].High != 50 || cards[0].Low != 32 || cards[0].Symbol != "°F" {
		t.Errorf("unexpected cards after toggle: %+v", cards)
	}

	cards = svc.ToggleUnit(sess)
	if cards[0].High != 10 || cards[0].Low != 0 || cards[0].Symbol != "°C" {
		t.Errorf("unexpected cards after second toggle: %+v", cards)
	}
}

func TestServiceToggleWithoutForecast(t *testing.T) {
	p := &stubProvider{fetch: staticSeries()}
	svc := newTestService(t, p)
	sess, _ := svc.Session("", Celsius)

	cards := svc.ToggleUnit(sess)
	if len(cards) != 0 {
		t.Errorf("expected no cards, got %d", len(cards))
	}
	if sess.Snapshot().Unit != Fahrenheit {
		t.Error("unit should still flip with no forecast loaded")
	}
	if p.calls.Load() != 0 {
		t.Error("provider should not be called")
	}
}

func TestServiceSelectErrorKeepsPreviousSeries(t *testing.T) {
	fail := false
	p := &stubProvider{fetch: func(context.Context, float64, float64) ([]ForecastDay, error) {
		if fail {
			return nil, &HTTPStatusError{StatusCode: 500}
		}
		return []ForecastDay{{Weather: "snow", Temp2m: Single(-2)}}, nil
	}}
	svc := newTestService(t, p)
	sess, _ := svc.Session("", Celsius)

	if err := svc.Select(context.Background(), sess, london); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fail = true
	err := svc.Select(context.Background(), sess, tokyo)
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != 500 {
		t.Fatalf("expected HTTPStatusError 500, got %v", err)
	}

	view := sess.Snapshot()
	want := "Failed to fetch weather data: HTTP error! status: 500. Please try again later."
	if view.Error != want {
		t.Errorf("error message = %q, want %q", view.Error, want)
	}
	if view.Loading {
		t.Error("loading should be cleared after a failure")
	}
	if len(view.Series) != 1 || view.Series[0].Weather != "snow" {
		t.Errorf("previous series should be kept, got %+v", view.Series)
	}

	// A later successful selection hides the error.
	fail = false
	if err := svc.Select(context.Background(), sess, tokyo); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.Snapshot().Error != "" {
		t.Error("error should be cleared by a new selection")
	}
}

func TestServiceDiscardsStaleResponse(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	p := &stubProvider{fetch: func(_ context.Context, lat, _ float64) ([]ForecastDay, error) {
		if lat == london.Lat {
			close(started)
			<-release
			return []ForecastDay{{Weather: "rain"}}, nil
		}
		return []ForecastDay{{Weather: "clear"}}, nil
	}}
	svc := newTestService(t, p)
	sess, _ := svc.Session("", Celsius)

	done := make(chan error, 1)
	go func() {
		done <- svc.Select(context.Background(), sess, london)
	}()
	<-started

	if !sess.Snapshot().Loading {
		t.Error("session should report loading while a fetch is in flight")
	}

	if err := svc.Select(context.Background(), sess, tokyo); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("stale select should not return an error, got %v", err)
	}

	view := sess.Snapshot()
	if view.Location == nil || view.Location.Name != "Tokyo" {
		t.Errorf("location = %+v, want Tokyo", view.Location)
	}
	if len(view.Series) != 1 || view.Series[0].Weather != "clear" {
		t.Errorf("series = %+v, want the Tokyo response", view.Series)
	}
}

func TestServiceSessionReusesExisting(t *testing.T) {
	svc := newTestService(t, &stubProvider{fetch: staticSeries()})

	first, created := svc.Session("", Fahrenheit)
	if !created {
		t.Fatal("expected a new session")
	}
	if first.Snapshot().Unit != Fahrenheit {
		t.Error("new session should use the requested unit")
	}

	again, created := svc.Session(first.ID, Celsius)
	if created || again != first {
		t.Error("expected the existing session to be returned")
	}

	other, created := svc.Session("missing", Celsius)
	if !created || other == first {
		t.Error("unknown id should create a new session")
	}
}

func TestServiceRefreshAll(t *testing.T) {
	p := &stubProvider{fetch: staticSeries(ForecastDay{Weather: "windy"})}
	svc := newTestService(t, p)

	withLocation, _ := svc.Session("", Celsius)
	svc.Session("", Celsius)

	if err := svc.Select(context.Background(), withLocation, london); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := svc.RefreshAll(context.Background()); n != 1 {
		t.Errorf("refreshed %d sessions, want 1", n)
	}
	if p.calls.Load() != 2 {
		t.Errorf("provider called %d times, want 2", p.calls.Load())
	}
}

func TestUserMessage(t *testing.T) {
	cases := map[string]error{
		"Failed to fetch weather data: network request failed. Please try again later.":                       ErrTransport,
		"Failed to fetch weather data: no weather data available for this location. Please try again later.": ErrEmptyData,
		"Failed to fetch weather data: HTTP error! status: 404. Please try again later.":                     &HTTPStatusError{StatusCode: 404},
		"Failed to fetch weather data: unknown error. Please try again later.":                                nil,
	}
	for want, err := range cases {
		if got := UserMessage(err); got != want {
			t.Errorf("UserMessage(%v) = %q, want %q", err, got, want)
		}
	}

	wrapped := fmt.Errorf("%w: dial tcp: connection refused", ErrTransport)
	if got := UserMessage(wrapped); !strings.Contains(got, "connection refused") {
		t.Errorf("wrapped error detail missing from %q", got)
	}
}

func selectAll(t *testing.T, svc *Service, n int, loc Location) []*Session {
	t.Helper()
	out := make([]*Session, 0, n)
	for i := 0; i < n; i++ {
		sess, _ := svc.Session("", Celsius)
		if err := svc.Select(context.Background(), sess, loc); err != nil {
			t.Fatalf("select %s: %v", loc.Name, err)
		}
		out = append(out, sess)
	}
	return out
}

func TestServiceRefreshAllFetchesEachLocationOnce(t *testing.T) {
	p := &stubProvider{fetch: staticSeries(ForecastDay{Weather: "fog"})}
	svc := newTestService(t, p)

	selectAll(t, svc, 10, london)
	selectAll(t, svc, 10, tokyo)
	before := p.calls.Load()

	if n := svc.RefreshAll(context.Background()); n != 20 {
		t.Errorf("refreshed %d sessions, want 20", n)
	}
	if got := p.calls.Load() - before; got != 2 {
		t.Errorf("provider called %d times during refresh, want 2", got)
	}
}

func TestServiceRefreshFailureKeepsSessionState(t *testing.T) {
	var refreshing atomic.Bool
	p := &stubProvider{fetch: func(_ context.Context, lat, _ float64) ([]ForecastDay, error) {
		if !refreshing.Load() {
			return []ForecastDay{{Weather: "snow"}}, nil
		}
		if lat == tokyo.Lat {
			return nil, ErrTransport
		}
		return []ForecastDay{{Weather: "rain"}}, nil
	}}
	svc := newTestService(t, p)

	londonSessions := selectAll(t, svc, 3, london)
	tokyoSessions := selectAll(t, svc, 3, tokyo)

	refreshing.Store(true)
	if n := svc.RefreshAll(context.Background()); n != 3 {
		t.Errorf("refreshed %d sessions, want 3", n)
	}

	for _, sess := range londonSessions {
		view := sess.Snapshot()
		if view.Series[0].Weather != "rain" || view.Error != "" {
			t.Errorf("london session not refreshed: %+v", view)
		}
	}
	for _, sess := range tokyoSessions {
		view := sess.Snapshot()
		if view.Error != "" {
			t.Errorf("failed background refresh should not show an error, got %q", view.Error)
		}
		if view.Series[0].Weather != "snow" || view.Loading {
			t.Errorf("tokyo session should keep its forecast: %+v", view)
		}
	}
}

func TestServiceRefreshAllTimesOutPerLocation(t *testing.T) {
	var refreshing atomic.Bool
	p := &stubProvider{fetch: func(ctx context.Context, _, _ float64) ([]ForecastDay, error) {
		if !refreshing.Load() {
			return []ForecastDay{{Weather: "fog"}}, nil
		}
		if _, ok := ctx.Deadline(); !ok {
			return nil, errors.New("refresh fetch without deadline")
		}
		select {
		case <-time.After(40 * time.Millisecond):
			return []ForecastDay{{Weather: "windy"}}, nil
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrTransport, ctx.Err())
		}
	}}
	svc := newTestService(t, p)

	// Ten slow locations together take longer than one location's budget.
	for i := 0; i < 10; i++ {
		selectAll(t, svc, 1, Location{Name: fmt.Sprintf("loc%d", i), Lat: float64(i), Lon: float64(i)})
	}
	svc.refreshTimeout = 200 * time.Millisecond
	refreshing.Store(true)

	if n := svc.RefreshAll(context.Background()); n != 10 {
		t.Errorf("refreshed %d sessions, want 10", n)
	}
}

func TestServiceRefreshDoesNotOverrideNewSelection(t *testing.T) {
	var blockLondon atomic.Bool
	started := make(chan struct{})
	release := make(chan struct{})

	p := &stubProvider{fetch: func(_ context.Context, lat, _ float64) ([]ForecastDay, error) {
		if lat == london.Lat && blockLondon.Load() {
			close(started)
			<-release
			return []ForecastDay{{Weather: "rain"}}, nil
		}
		if lat == tokyo.Lat {
			return []ForecastDay{{Weather: "clear"}}, nil
		}
		return []ForecastDay{{Weather: "fog"}}, nil
	}}
	svc := newTestService(t, p)
	sess := selectAll(t, svc, 1, london)[0]

	blockLondon.Store(true)
	done := make(chan int, 1)
	go func() {
		done <- svc.RefreshAll(context.Background())
	}()
	<-started

	if err := svc.Select(context.Background(), sess, tokyo); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(release)

	if n := <-done; n != 0 {
		t.Errorf("refresh updated %d sessions, want 0", n)
	}
	view := sess.Snapshot()
	if view.Location == nil || view.Location.Name != "Tokyo" {
		t.Errorf("location = %+v, want Tokyo", view.Location)
	}
	if len(view.Series) != 1 || view.Series[0].Weather != "clear" {
		t.Errorf("series = %+v, want the Tokyo forecast", view.Series)
	}
}
