package forecast

import (
	"context"
	"time"
)

// Provider abstracts the forecast data source (7Timer! in production).
// Fetch returns the dataseries exactly as received or one of ErrTransport,
// *HTTPStatusError, ErrDecode, ErrEmptyData.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, lat, lon float64) ([]ForecastDay, error)
}

// SessionStore is the contract the in-memory session store must satisfy.
type SessionStore interface {
	Create(unit Unit) *Session
	Get(id string) (*Session, error)
	List() []*Session
	Prune(now time.Time) int
}
