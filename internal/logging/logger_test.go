package logging

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestInitialize_SilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")

	require.NoError(t, Initialize(""))
	assert.False(t, GetLogger().Core().Enabled(zapcore.ErrorLevel))
}

func TestInitialize_FromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	t.Cleanup(func() { SetLogger(nil) })

	require.NoError(t, InitializeFromEnv())
	assert.True(t, GetLogger().Core().Enabled(zapcore.WarnLevel))
	assert.False(t, GetLogger().Core().Enabled(zapcore.InfoLevel))
}

func TestDomainHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	LogProbe("10.0.0.2", true, "13.1.0(tasmota)", nil)
	LogProbe("10.0.0.3", false, "", errors.New("timeout"))
	LogHTTPExchange("10.0.0.2", "GET", "/dl", 200, 20*time.Millisecond, nil)
	LogDeviceResult("backup", "10.0.0.3", false, errors.New("boom"))

	entries := logs.All()
	require.Len(t, entries, 4)

	assert.Equal(t, "Found device", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "13.1.0(tasmota)", entries[0].ContextMap()["firmware"])

	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	assert.Equal(t, int64(200), entries[2].ContextMap()["status_code"])
	assert.Equal(t, zapcore.WarnLevel, entries[3].Level)
	assert.Equal(t, "backup", entries[3].ContextMap()["op"])
}

func TestGetLogger_ConcurrentUse(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%4 == 0 {
				SetLogger(zap.NewNop())
			}
			assert.NotNil(t, GetLogger())
			LogDeviceResult("command", "10.0.0.1", true, nil)
		}()
	}
	wg.Wait()
}
