package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/airtickets/config"
	"github.com/Domenick1991/airtickets/internal/domain"
	"github.com/redis/go-redis/v9"
)

func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
}

type RedisCache struct {
	client     *redis.Client
	flightsTTL time.Duration
}

func NewRedisCache(client *redis.Client, flightsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     client,
		flightsTTL: flightsTTL,
	}
}

// GetFlightPage returns nil, nil on a cache miss.
func (c *RedisCache) GetFlightPage(ctx context.Context, page, size int) (*domain.FlightPage, error) {
	var result domain.FlightPage
	ok, err := c.getJSON(ctx, flightPageKey(page, size), &result)
	if err != nil || !ok {
		return nil, err
	}
	return &result, nil
}

func (c *RedisCache) SetFlightPage(ctx context.Context, result *domain.FlightPage) error {
	return c.setJSON(ctx, flightPageKey(result.Page, result.PageSize), result)
}

// GetFlight returns nil, nil on a cache miss.
func (c *RedisCache) GetFlight(ctx context.Context, flightNumber string) (*domain.Flight, error) {
	var flight domain.Flight
	ok, err := c.getJSON(ctx, flightKey(flightNumber), &flight)
	if err != nil || !ok {
		return nil, err
	}
	return &flight, nil
}

func (c *RedisCache) SetFlight(ctx context.Context, flight *domain.Flight) error {
	return c.setJSON(ctx, flightKey(flight.FlightNumber), flight)
}

func (c *RedisCache) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) setJSON(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, c.flightsTTL).Err()
}

func flightPageKey(page, size int) string {
	return fmt.Sprintf("cache:flights:page:%d:size:%d", page, size)
}

func flightKey(flightNumber string) string {
	return "cache:flights:number:" + flightNumber
}
