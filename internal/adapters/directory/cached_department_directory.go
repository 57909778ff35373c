package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/zatekoja/orderdesk/backend/internal/domain/providers"
	"github.com/zatekoja/orderdesk/backend/internal/infrastructure/observability"
)

// defaultDepartmentTTL is used when no TTL is configured (seconds)
const defaultDepartmentTTL = 3600

// CachedDepartmentDirectory wraps a DepartmentDirectory with a shared cache.
// Department names change rarely, so every board reload would otherwise
// repeat the same lookups.
type CachedDepartmentDirectory struct {
	directory  providers.DepartmentDirectory
	cache      providers.CacheProvider
	ttlSeconds int
	metrics    *observability.Metrics
}

// NewCachedDepartmentDirectory creates a cached department directory
func NewCachedDepartmentDirectory(directory providers.DepartmentDirectory, cache providers.CacheProvider, ttlSeconds int) *CachedDepartmentDirectory {
	if ttlSeconds <= 0 {
		ttlSeconds = defaultDepartmentTTL
	}
	return &CachedDepartmentDirectory{
		directory:  directory,
		cache:      cache,
		ttlSeconds: ttlSeconds,
	}
}

var _ providers.DepartmentDirectory = (*CachedDepartmentDirectory)(nil)

// SetMetrics attaches cache hit and miss counters
func (d *CachedDepartmentDirectory) SetMetrics(metrics *observability.Metrics) {
	d.metrics = metrics
}

type cachedDepartment struct {
	Name string `json:"name"`
}

func departmentCacheKey(id string) string {
	return fmt.Sprintf("department:%s", id)
}

// DepartmentName serves a cached name or asks the wrapped directory.
// Cache failures never fail the lookup.
func (d *CachedDepartmentDirectory) DepartmentName(ctx context.Context, departmentID string) (string, error) {
	logger := observability.LoggerFromContext(ctx)
	cacheKey := departmentCacheKey(departmentID)

	cached, err := d.cache.Get(ctx, cacheKey)
	switch {
	case err == nil:
		var dept cachedDepartment
		if err := json.Unmarshal(cached, &dept); err == nil && strings.TrimSpace(dept.Name) != "" {
			observability.RecordDepartmentCache(ctx, d.metrics, true)
			return dept.Name, nil
		}
		logger.Warn().Str("department_id", departmentID).Msg("discarding unreadable cached department")
		if err := d.cache.Delete(ctx, cacheKey); err != nil {
			logger.Warn().Err(err).Str("department_id", departmentID).Msg("failed to evict cached department")
		}
	case !errors.Is(err, providers.ErrCacheMiss):
		logger.Warn().Err(err).Str("department_id", departmentID).Msg("department cache unavailable")
	}
	observability.RecordDepartmentCache(ctx, d.metrics, false)

	name, err := d.directory.DepartmentName(ctx, departmentID)
	if err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil
	}

	data, err := json.Marshal(cachedDepartment{Name: name})
	if err == nil {
		if err := d.cache.Set(ctx, cacheKey, data, d.ttlSeconds); err != nil {
			logger.Warn().Err(err).Str("department_id", departmentID).Msg("failed to cache department")
		}
	}
	return name, nil
}
