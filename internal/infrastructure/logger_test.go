package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"poscope/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_InjectsContextIDs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)

	ctx := WithTraceID(context.Background(), "trace-123")
	ctx = WithSessionID(ctx, "session-9")
	logger.InfoContext(ctx, "upload accepted", slog.Int("rows", 3))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "upload accepted", entry["msg"])
	assert.Equal(t, "trace-123", entry["trace_id"])
	assert.Equal(t, "session-9", entry["session_id"])
	assert.Equal(t, float64(3), entry["rows"])
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		logDebug  bool
		wantEmpty bool
	}{
		{name: "info hides debug", level: "info", logDebug: true, wantEmpty: true},
		{name: "debug shows debug", level: "debug", logDebug: true, wantEmpty: false},
		{name: "unknown level defaults to info", level: "loud", logDebug: true, wantEmpty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := NewLogger(config.LoggingConfig{Level: tt.level}, &buf)
			require.NoError(t, err)
			logger.Debug("details")
			assert.Equal(t, tt.wantEmpty, buf.Len() == 0)
		})
	}
}

func TestNewLogger_FileOutput(t *testing.T) {
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "logs", "poscope.log")
	logger, err := NewLogger(config.LoggingConfig{Level: "info", Output: "file", FilePath: logFile}, nil)
	require.NoError(t, err)

	logger.Info("written to file")
	require.NoError(t, CloseLogFile())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestInitializeLogger_Once(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	first, err := InitializeLogger(config.LoggingConfig{Level: "info"})
	require.NoError(t, err)
	second, err := InitializeLogger(config.LoggingConfig{Level: "debug"})
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Same(t, first, GetLogger())
}

func TestEnsureTraceID(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	id := GetTraceID(ctx)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, GetTraceID(EnsureTraceID(ctx)))
}

func TestBusinessMetrics_NoopMeter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	providers, err := InitializeOTel(&OTelConfig{ServiceName: "test", TraceExporter: "none", MetricExporter: "none", SampleRatio: 1}, logger)
	require.NoError(t, err)
	require.NotNil(t, providers.Meter)
	require.NotNil(t, providers.Tracer)

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		metrics.RecordUpload(ctx, "pos", true)
		metrics.RecordMemoLookup(ctx, "clean", false)
		metrics.RecordAggregation(ctx, "customers_per_day", time.Millisecond)
		metrics.RecordForecastAction(ctx, "train", time.Second, nil)
		var nilMetrics *BusinessMetrics
		nilMetrics.RecordUpload(ctx, "pos", false)
	})
	require.NoError(t, providers.Shutdown(ctx))
}

func TestInitializeOTel_UnsupportedExporter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	_, err := InitializeOTel(&OTelConfig{TraceExporter: "jaeger"}, logger)
	assert.Error(t, err)
}

func TestCollectSystemStats(t *testing.T) {
	stats := CollectSystemStats(time.Now().Add(-time.Minute))
	assert.Greater(t, stats.GoRoutines, int64(0))
	assert.GreaterOrEqual(t, stats.ProcessUptime, time.Minute)
}
