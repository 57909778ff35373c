package observability

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	otellog "go.opentelemetry.io/otel/log"
)

// ExportLogs mirrors every global zerolog entry, fields included, to an
// OpenTelemetry logger provider. Call after InitLogger.
func ExportLogs(provider otellog.LoggerProvider) {
	exporter := otelLogWriter{logger: provider.Logger(instrumentationName)}
	log.Logger = log.Logger.Output(zerolog.MultiLevelWriter(logOutput, exporter))
}

// otelLogWriter turns each JSON log line into an OpenTelemetry record.
// Every field other than the message, level and time becomes an attribute.
type otelLogWriter struct {
	logger otellog.Logger
}

func (w otelLogWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.NoLevel, p)
}

func (w otelLogWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(p, &fields); err != nil {
		return len(p), nil
	}

	if level == zerolog.NoLevel {
		if raw, ok := fields[zerolog.LevelFieldName].(string); ok {
			if parsed, err := zerolog.ParseLevel(raw); err == nil {
				level = parsed
			}
		}
	}
	if level == zerolog.NoLevel || level == zerolog.Disabled {
		return len(p), nil
	}

	now := time.Now()
	var rec otellog.Record
	rec.SetTimestamp(entryTime(fields[zerolog.TimestampFieldName], now))
	rec.SetObservedTimestamp(now)
	rec.SetSeverity(severityOf(level))
	rec.SetSeverityText(level.String())
	if msg, ok := fields[zerolog.MessageFieldName].(string); ok {
		rec.SetBody(otellog.StringValue(msg))
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		switch k {
		case zerolog.MessageFieldName, zerolog.LevelFieldName, zerolog.TimestampFieldName:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]otellog.KeyValue, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, attributeOf(k, fields[k]))
	}
	rec.AddAttributes(attrs...)

	w.logger.Emit(context.Background(), rec)
	return len(p), nil
}

// entryTime reads the unix-seconds time field written by the logger
func entryTime(v interface{}, fallback time.Time) time.Time {
	secs, ok := v.(float64)
	if !ok || secs <= 0 {
		return fallback
	}
	return time.Unix(int64(secs), 0)
}

func attributeOf(key string, v interface{}) otellog.KeyValue {
	switch val := v.(type) {
	case string:
		return otellog.String(key, val)
	case bool:
		return otellog.Bool(key, val)
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return otellog.Int64(key, int64(val))
		}
		return otellog.Float64(key, val)
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return otellog.String(key, "")
		}
		return otellog.String(key, string(raw))
	}
}

func severityOf(level zerolog.Level) otellog.Severity {
	switch level {
	case zerolog.TraceLevel:
		return otellog.SeverityTrace
	case zerolog.DebugLevel:
		return otellog.SeverityDebug
	case zerolog.WarnLevel:
		return otellog.SeverityWarn
	case zerolog.ErrorLevel:
		return otellog.SeverityError
	case zerolog.FatalLevel, zerolog.PanicLevel:
		return otellog.SeverityFatal
	default:
		return otellog.SeverityInfo
	}
}
