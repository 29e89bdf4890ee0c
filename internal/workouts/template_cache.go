package workouts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/fitnesstracker/internal/telemetry/metrics"
)

const (
	templateCacheName   = "workout_templates"
	templateCacheExpire = 60 * 60 // seconds
)

type templateSource interface {
	GetTemplate(ctx context.Context, templateID string) (map[string]any, error)
}

// TemplateCache is an in-process read-through cache of workout templates.
// Templates are never modified through the API, so entries only expire.
type TemplateCache struct {
	source  templateSource
	cache   *freecache.Cache
	metrics *metrics.Manager
}

func NewTemplateCache(source templateSource, sizeBytes int, metricsManager *metrics.Manager) *TemplateCache {
	megabyte := 1024 * 1024
	if sizeBytes <= 0 {
		sizeBytes = 10 * megabyte
	}
	return &TemplateCache{
		source:  source,
		cache:   freecache.NewCache(sizeBytes),
		metrics: metricsManager,
	}
}

func (c *TemplateCache) GetTemplate(ctx context.Context, templateID string) (map[string]any, error) {
	cacheKey := []byte("template::" + templateID)
	if cached, err := c.cache.Get(cacheKey); err == nil {
		template := map[string]any{}
		if err := json.Unmarshal(cached, &template); err == nil {
			c.metrics.ObserveCacheLookup(templateCacheName, metrics.CacheHit)
			return template, nil
		} else {
			log.Errorf("failed to unmarshal cached template %s: %s", templateID, err)
			c.metrics.ObserveCacheLookup(templateCacheName, metrics.CacheError)
		}
	} else {
		c.metrics.ObserveCacheLookup(templateCacheName, metrics.CacheMiss)
	}

	template, err := c.source.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(template)
	if err != nil {
		return nil, fmt.Errorf("marshal template %s: %w", templateID, err)
	}
	if err := c.cache.Set(cacheKey, encoded, templateCacheExpire); err != nil {
		log.Errorf("failed to cache template %s: %s", templateID, err)
	}

	// served from the encoded form so hits and misses look the same
	fresh := map[string]any{}
	if err := json.Unmarshal(encoded, &fresh); err != nil {
		return nil, fmt.Errorf("unmarshal template %s: %w", templateID, err)
	}
	return fresh, nil
}

func (c *TemplateCache) EntryCount() int64 {
	return c.cache.EntryCount()
}
