package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestInitLogger_JSONCarriesServiceField(t *testing.T) {
	var buf bytes.Buffer
	initLogger(&buf, "orderdesk", "production", "debug")
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	LoggerFromContext(context.Background()).Info().Str("order_id", "o-1").Msg("approved")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "orderdesk", line["service"])
	assert.Equal(t, "o-1", line["order_id"])
	assert.Equal(t, "approved", line["message"])
}

func TestInitLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	initLogger(&buf, "orderdesk", "production", "chatty")
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	GetLogger().Debug().Msg("hidden")
	assert.Zero(t, buf.Len())

	GetLogger().Info().Msg("shown")
	assert.NotZero(t, buf.Len())
}

func TestMetricsHelpersTolerateNil(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		RecordDecision(ctx, nil, "approve", "success")
		RecordDepartmentLookupFailures(ctx, nil, 2)
		RecordDepartmentCache(ctx, nil, true)
		RecordRequestMetric(ctx, nil, "GET", "/api/orders", 200, 0)
	})
}

func TestInitMetrics(t *testing.T) {
	metrics, err := InitMetrics()
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		RecordDecision(context.Background(), metrics, "reject", "validation")
	})
}

type memoryExporter struct {
	records []sdklog.Record
}

func (m *memoryExporter) Export(_ context.Context, records []sdklog.Record) error {
	for _, r := range records {
		m.records = append(m.records, r.Clone())
	}
	return nil
}

func (m *memoryExporter) Shutdown(context.Context) error   { return nil }
func (m *memoryExporter) ForceFlush(context.Context) error { return nil }

func TestExportLogs_MirrorsEntries(t *testing.T) {
	var buf bytes.Buffer
	initLogger(&buf, "orderdesk", "production", "info")
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	exporter := &memoryExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exporter)))
	ExportLogs(provider)

	LoggerFromContext(context.Background()).Warn().
		Str("department_id", "dep-7").
		Str("order_id", "ord-1").
		Int("attempt", 2).
		Bool("cached", false).
		Msg("department lookup failed")
	GetLogger().Debug().Msg("filtered")

	require.Len(t, exporter.records, 1)
	rec := exporter.records[0]
	assert.Equal(t, "department lookup failed", rec.Body().AsString())
	assert.Equal(t, otellog.SeverityWarn, rec.Severity())
	assert.False(t, rec.Timestamp().IsZero())

	attrs := map[string]otellog.Value{}
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value
		return true
	})
	assert.Equal(t, "dep-7", attrs["department_id"].AsString())
	assert.Equal(t, "ord-1", attrs["order_id"].AsString())
	assert.Equal(t, "orderdesk", attrs["service"].AsString())
	assert.Equal(t, int64(2), attrs["attempt"].AsInt64())
	assert.False(t, attrs["cached"].AsBool())
	assert.NotContains(t, attrs, "message")
	assert.NotContains(t, attrs, "level")

	assert.Contains(t, buf.String(), `"department_id":"dep-7"`)
}
