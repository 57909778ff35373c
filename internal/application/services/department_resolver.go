package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/graph-gophers/dataloader/v7"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/orderdesk/backend/internal/domain/entities"
	"github.com/zatekoja/orderdesk/backend/internal/domain/providers"
	"github.com/zatekoja/orderdesk/backend/internal/infrastructure/observability"
)

// DepartmentBatch is the outcome of one resolution pass. Names is keyed by
// department id, or by order id for orders that carry no department id.
type DepartmentBatch struct {
	Names    map[string]string
	Failures int
}

// DepartmentNameResolver looks up department display names for an order
// collection. It never fails: lookups that error are logged and counted.
type DepartmentNameResolver struct {
	directory   providers.DepartmentDirectory
	concurrency int
	metrics     *observability.Metrics
}

// NewDepartmentNameResolver creates a resolver issuing at most concurrency lookups at once
func NewDepartmentNameResolver(directory providers.DepartmentDirectory, concurrency int) *DepartmentNameResolver {
	if concurrency < 1 {
		concurrency = 1
	}
	return &DepartmentNameResolver{directory: directory, concurrency: concurrency}
}

// SetMetrics attaches metrics for lookup failures
func (r *DepartmentNameResolver) SetMetrics(metrics *observability.Metrics) {
	r.metrics = metrics
}

// ResolveBatch resolves the distinct, non-empty department ids of orders.
// Orders without a department id contribute their embedded name under their own id.
func (r *DepartmentNameResolver) ResolveBatch(ctx context.Context, orders []*entities.Order) DepartmentBatch {
	ctx, span := observability.StartSpan(ctx, "departments.resolve_batch")
	defer span.End()

	batch := DepartmentBatch{Names: make(map[string]string)}

	var ids []string
	seen := make(map[string]struct{})
	for _, order := range orders {
		id := strings.TrimSpace(order.DepartmentID)
		if id == "" {
			if name := strings.TrimSpace(order.DepartmentName); name != "" {
				batch.Names[order.ID] = name
			}
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	if len(ids) == 0 || r.directory == nil {
		return batch
	}

	loader := dataloader.NewBatchedLoader(r.lookup,
		dataloader.WithBatchCapacity[string, string](len(ids)),
	)
	names, errs := loader.LoadMany(ctx, ids)()

	logger := observability.LoggerFromContext(ctx)
	for i, id := range ids {
		var err error
		if i < len(errs) {
			err = errs[i]
		}
		if err == nil && i < len(names) && strings.TrimSpace(names[i]) == "" {
			err = fmt.Errorf("department %s has no name", id)
		}
		if err != nil {
			batch.Failures++
			logger.Warn().Err(err).Str("department_id", id).Msg("department name lookup failed")
			continue
		}
		batch.Names[id] = strings.TrimSpace(names[i])
	}

	observability.SetSpanAttributes(span,
		attribute.Int("departments.requested", len(ids)),
		attribute.Int("departments.failed", batch.Failures),
	)
	observability.RecordDepartmentLookupFailures(ctx, r.metrics, batch.Failures)
	return batch
}

// lookup is the dataloader batch function: one directory call per key, run concurrently
func (r *DepartmentNameResolver) lookup(ctx context.Context, keys []string) []*dataloader.Result[string] {
	results := make([]*dataloader.Result[string], len(keys))

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)
	for i, key := range keys {
		g.Go(func() error {
			name, err := r.directory.DepartmentName(ctx, key)
			results[i] = &dataloader.Result[string]{Data: name, Error: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// DepartmentNameCache holds the names resolved for the order collection a
// board currently shows. Each reload starts a new generation; batches from
// an older generation, or arriving after Close, are discarded.
type DepartmentNameCache struct {
	mu         sync.RWMutex
	names      map[string]string
	generation uint64
	closed     bool
}

// NewDepartmentNameCache creates an empty cache
func NewDepartmentNameCache() *DepartmentNameCache {
	return &DepartmentNameCache{names: make(map[string]string)}
}

// Begin starts a new generation and returns its identity
func (c *DepartmentNameCache) Begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	return c.generation
}

// Apply installs a batch in one step if it belongs to the current generation.
// It reports whether the batch was applied.
func (c *DepartmentNameCache) Apply(generation uint64, batch DepartmentBatch) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || generation != c.generation {
		return false
	}
	names := make(map[string]string, len(batch.Names))
	for k, v := range batch.Names {
		names[k] = v
	}
	c.names = names
	return true
}

// NameFor returns the display name for an order: the resolved department
// name, else the order's embedded name, else UnknownDepartment.
func (c *DepartmentNameCache) NameFor(order *entities.Order) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if id := strings.TrimSpace(order.DepartmentID); id != "" {
		if name, ok := c.names[id]; ok {
			return name
		}
	} else if name, ok := c.names[order.ID]; ok {
		return name
	}
	if name := strings.TrimSpace(order.DepartmentName); name != "" {
		return name
	}
	return entities.UnknownDepartment
}

// Close drops the cache; later batches are ignored
func (c *DepartmentNameCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.names = make(map[string]string)
}
