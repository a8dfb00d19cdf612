package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/patrickmn/go-cache"

	"trainingops/internal/models"
	"trainingops/internal/supabase"
)

// Stored procedures behind the analytics endpoints
const (
	RPCUsageStatistics       = "get_usage_statistics"
	RPCCompareTrainingVsLive = "compare_training_vs_live"
	RPCEffectivenessMetrics  = "get_effectiveness_metrics"
)

// AnalyticsService proxies the per-user analytics procedures. An empty result
// yields the default zero shape, never an error.
type AnalyticsService struct {
	client  *supabase.Client
	cache   *cache.Cache
	metrics *Metrics
}

// NewAnalyticsService creates an analytics service caching results per user for ttl.
// A ttl of zero or less disables caching.
func NewAnalyticsService(client *supabase.Client, ttl time.Duration, metrics *Metrics) *AnalyticsService {
	s := &AnalyticsService{client: client, metrics: metrics}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

// Usage returns get_usage_statistics for userID
func (s *AnalyticsService) Usage(ctx context.Context, userID string) (models.UsageStatistics, error) {
	out := models.DefaultUsageStatistics()
	err := s.call(ctx, RPCUsageStatistics, userID, &out)
	if out.ToolsUsed == nil {
		out.ToolsUsed = []string{}
	}
	return out, err
}

// Comparison returns compare_training_vs_live for userID
func (s *AnalyticsService) Comparison(ctx context.Context, userID string) (models.TrainingComparison, error) {
	out := models.DefaultTrainingComparison()
	err := s.call(ctx, RPCCompareTrainingVsLive, userID, &out)
	return out, err
}

// Effectiveness returns get_effectiveness_metrics for userID
func (s *AnalyticsService) Effectiveness(ctx context.Context, userID string) (models.EffectivenessMetrics, error) {
	out := models.DefaultEffectivenessMetrics()
	err := s.call(ctx, RPCEffectivenessMetrics, userID, &out)
	if out.ByTool == nil {
		out.ByTool = map[string]float64{}
	}
	return out, err
}

// call invokes fn and decodes the first returned row into dest, leaving dest
// at its default when there are no rows
func (s *AnalyticsService) call(ctx context.Context, fn, userID string, dest interface{}) error {
	key := fn + ":" + userID
	if s.cache != nil {
		if raw, ok := s.cache.Get(key); ok {
			s.metrics.cacheHit("analytics")
			return decodeFirstRow(raw.(json.RawMessage), dest)
		}
	}

	started := time.Now()
	res, err := s.client.RPC(ctx, fn, map[string]interface{}{"p_user_id": userID})
	s.metrics.rpc(fn, started)
	if err != nil {
		log.Printf("⚠️  [ANALYTICS] %s failed for user %s: %v", fn, userID, err)
		return fmt.Errorf("%s: %w", fn, err)
	}

	if s.cache != nil {
		s.cache.Set(key, res.Data, cache.DefaultExpiration)
	}
	return decodeFirstRow(res.Data, dest)
}

func decodeFirstRow(data json.RawMessage, dest interface{}) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '[' {
		var rows []json.RawMessage
		if err := json.Unmarshal(data, &rows); err != nil {
			return fmt.Errorf("failed to decode procedure result: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		data = rows[0]
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode procedure result: %w", err)
	}
	return nil
}
