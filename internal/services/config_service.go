package services

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"trainingops/internal/models"
	"trainingops/internal/supabase"
)

// ConfigService reads and writes system_config key/value rows
type ConfigService struct {
	client  *supabase.Client
	table   string
	cache   *cache.Cache
	metrics *Metrics
}

// NewConfigService creates a config service caching reads for ttl
func NewConfigService(client *supabase.Client, ttl time.Duration, metrics *Metrics) *ConfigService {
	return &ConfigService{
		client:  client,
		table:   models.TableSystemConfig,
		cache:   cache.New(ttl, 2*ttl),
		metrics: metrics,
	}
}

// Get returns the value for key; found is false when no row exists
func (s *ConfigService) Get(ctx context.Context, key string) (string, bool, error) {
	if value, ok := s.cache.Get(key); ok {
		s.metrics.cacheHit("system_config")
		return value.(string), true, nil
	}

	res, err := s.client.From(s.table).Eq("key", key).Limit(1).Execute(ctx)
	if err != nil {
		return "", false, fmt.Errorf("failed to read config %s: %w", key, err)
	}
	var rows []models.SystemConfig
	if err := res.Decode(&rows); err != nil {
		return "", false, err
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	s.cache.Set(key, rows[0].Value, cache.DefaultExpiration)
	return rows[0].Value, true, nil
}

// Set upserts key; an empty description leaves an existing one in place
func (s *ConfigService) Set(ctx context.Context, key, value, description string) error {
	now := time.Now().UTC()
	row := map[string]interface{}{
		"key":        key,
		"value":      value,
		"updated_at": now,
	}
	if description != "" {
		row["description"] = description
	}
	if _, err := s.client.From(s.table).Upsert(ctx, row, "key"); err != nil {
		return fmt.Errorf("failed to set config %s: %w", key, err)
	}
	s.cache.Delete(key)
	return nil
}

// List returns every config row ordered by key
func (s *ConfigService) List(ctx context.Context) ([]models.SystemConfig, error) {
	res, err := s.client.From(s.table).Order("key", true).Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list config: %w", err)
	}
	var rows []models.SystemConfig
	if err := res.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes key and reports whether a row existed
func (s *ConfigService) Delete(ctx context.Context, key string) (bool, error) {
	res, err := s.client.From(s.table).Eq("key", key).Delete(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to delete config %s: %w", key, err)
	}
	s.cache.Delete(key)
	return res.Len() > 0, nil
}
