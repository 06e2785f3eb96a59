package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carwash-app/carwash/services/weather/internal/domain"
)

// ForecastCache keeps rendered responses in Redis under weather:<city>:<days>.
type ForecastCache struct {
	R   *redis.Client
	TTL time.Duration
}

func Key(city string, days int) string {
	return "weather:" + strings.ToLower(strings.TrimSpace(city)) + ":" + strconv.Itoa(days)
}

// Get returns redis.Nil on a miss.
func (c *ForecastCache) Get(ctx context.Context, city string, days int) (*domain.ForecastResponse, error) {
	b, err := c.R.Get(ctx, Key(city, days)).Bytes()
	if err != nil {
		return nil, err
	}
	var resp domain.ForecastResponse
	return &resp, json.Unmarshal(b, &resp)
}

func (c *ForecastCache) Set(ctx context.Context, city string, days int, resp *domain.ForecastResponse) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, Key(city, days), b, c.TTL).Err()
}
