package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/carwash-app/carwash/internal/observability"
	"github.com/carwash-app/carwash/services/weather/internal/domain"
)

const maxAttempts = 3

// Client fetches forecasts from weatherapi.com.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewClient(baseURL, apiKey string, timeout time.Duration, rps float64) *Client {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(limit, 1),
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Forecast asks the provider for days of forecast for city. Client errors
// (400/401/403/404) end the call at once; server errors, timeouts and
// malformed bodies are retried with exponential backoff.
func (c *Client) Forecast(ctx context.Context, city string, days int) (*domain.ProviderForecast, error) {
	log := observability.GetLogger(ctx).With(zap.String("city", city), zap.Int("days", days))

	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: api key not configured", domain.ErrProviderAuth)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		start := time.Now()
		status, body, err := c.get(ctx, city, days)
		log.Debug("provider_response",
			zap.Int("attempt", attempt+1),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)),
		)

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			providerRequestsTotal.WithLabelValues("transport_error").Inc()
			lastErr = err
			log.Warn("provider request failed", zap.Int("attempt", attempt+1), zap.Error(err))
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		providerRequestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()

		switch {
		case status == http.StatusOK:
			pf, err := Parse(body)
			if err != nil {
				lastErr = err
				log.Warn("invalid provider response", zap.Int("attempt", attempt+1))
				continue
			}
			return pf, nil

		case status == http.StatusBadRequest || status == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", domain.ErrCityNotFound, city)

		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			log.Error("provider rejected api key", zap.Int("status", status))
			return nil, domain.ErrProviderAuth

		default:
			lastErr = fmt.Errorf("provider returned %d", status)
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, lastErr)
}

// backoff waits 2^attempt seconds unless attempt is the last one.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	if attempt >= maxAttempts-1 {
		return nil
	}
	return c.sleep(ctx, time.Duration(1<<attempt)*time.Second)
}

func (c *Client) get(ctx context.Context, city string, days int) (int, []byte, error) {
	q := url.Values{
		"key":    {c.apiKey},
		"q":      {city},
		"days":   {strconv.Itoa(days)},
		"aqi":    {"no"},
		"alerts": {"no"},
		"lang":   {"ru"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}
