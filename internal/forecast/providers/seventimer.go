package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/forecast-widget/forecast-widget/internal/forecast"
)

// DefaultSevenTimerURL is the 7Timer! API endpoint.
const DefaultSevenTimerURL = "https://www.7timer.info/bin/api.pl"

// SevenTimerProvider implements forecast.Provider for the 7Timer! civil product.
type SevenTimerProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// SevenTimerOptions configures a SevenTimerProvider. Zero values use defaults.
type SevenTimerOptions struct {
	BaseURL string
	Breaker BreakerConfig
	HTTP    HTTPClientConfig
	Logger  *zap.Logger
}

func NewSevenTimerProvider(opts SevenTimerOptions) *SevenTimerProvider {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultSevenTimerURL
	}

	p := &SevenTimerProvider{
		name:    "7timer",
		baseURL: baseURL,
		httpCfg: opts.HTTP,
		logger:  logger,
	}
	p.circuit = newBreaker(p.name, opts.Breaker, func(name string, from, to gobreaker.State) {
		logger.Warn("Circuit breaker state changed",
			zap.String("provider", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()))
	})
	return p
}

func (p *SevenTimerProvider) Name() string {
	return p.name
}

type sevenTimerResponse struct {
	Product    string                 `json:"product"`
	Init       string                 `json:"init"`
	DataSeries []forecast.ForecastDay `json:"dataseries"`
}

func (p *SevenTimerProvider) Fetch(ctx context.Context, lat, lon float64) ([]forecast.ForecastDay, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
		values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
		values.Set("product", "civil")
		values.Set("output", "json")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload sevenTimerResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", forecast.ErrDecode, err)
	}

	if len(payload.DataSeries) == 0 {
		return nil, forecast.ErrEmptyData
	}

	p.logger.Debug("Forecast received",
		zap.String("provider", p.name),
		zap.String("init", payload.Init),
		zap.Int("entries", len(payload.DataSeries)))

	return payload.DataSeries, nil
}
