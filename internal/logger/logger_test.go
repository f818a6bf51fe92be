package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		development bool
		wantErr     bool
	}{
		{name: "debug level production", level: "debug"},
		{name: "info level production", level: "info"},
		{name: "warn level development", level: "warn", development: true},
		{name: "error level development", level: "error", development: true},
		{name: "fatal is not accepted", level: "fatal", wantErr: true},
		{name: "invalid level", level: "invalid", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level, tt.development)
			if tt.wantErr {
				require.Error(t, err)
				require.Nil(t, logger)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, logger.SugaredLogger)
			require.Equal(t, tt.level, logger.GetLevel())
		})
	}
}

func TestLogger_SetLevel(t *testing.T) {
	logger, err := NewLogger("info", false)
	require.NoError(t, err)

	require.NoError(t, logger.SetLevel("debug"))
	require.Equal(t, "debug", logger.GetLevel())

	require.Error(t, logger.SetLevel("verbose"))
	require.Equal(t, "debug", logger.GetLevel())
}

func TestLogger_ComponentsShareLevel(t *testing.T) {
	base, err := NewLogger("info", false)
	require.NoError(t, err)
	require.Equal(t, "", base.GetComponent())

	ingestor := base.WithComponent("ingestor")
	reorg := base.WithComponent("reorg-handler")

	require.Equal(t, "ingestor", ingestor.GetComponent())
	require.Equal(t, "reorg-handler", reorg.GetComponent())

	require.NoError(t, base.SetLevel("warn"))
	require.Equal(t, "warn", ingestor.GetLevel())
	require.Equal(t, "warn", reorg.GetLevel())

	require.False(t, ingestor.atomicLevel.Enabled(zapcore.InfoLevel))
	require.True(t, reorg.atomicLevel.Enabled(zapcore.ErrorLevel))
}

func TestNewComponentLogger(t *testing.T) {
	logger := NewComponentLogger("checkpoint", "debug", true)
	require.Equal(t, "checkpoint", logger.GetComponent())
	require.Equal(t, "debug", logger.GetLevel())

	require.Panics(t, func() {
		_ = NewComponentLogger("checkpoint", "loud", false)
	})
}

type mockLoggingConfig struct {
	defaultLevel    string
	development     bool
	componentLevels map[string]string
}

func (m *mockLoggingConfig) GetComponentLevel(component string) string {
	if level, ok := m.componentLevels[component]; ok {
		return level
	}
	return m.defaultLevel
}

func (m *mockLoggingConfig) GetDefaultLevel() string {
	return m.defaultLevel
}

func (m *mockLoggingConfig) IsDevelopment() bool {
	return m.development
}

func TestNewComponentLoggerFromConfig(t *testing.T) {
	var typedNil *mockLoggingConfig

	tests := []struct {
		name          string
		component     string
		config        LoggingConfig
		expectedLevel string
	}{
		{
			name:      "component with specific level",
			component: "router",
			config: &mockLoggingConfig{
				defaultLevel:    "info",
				componentLevels: map[string]string{"router": "debug"},
			},
			expectedLevel: "debug",
		},
		{
			name:          "component using default level",
			component:     "store",
			config:        &mockLoggingConfig{defaultLevel: "warn"},
			expectedLevel: "warn",
		},
		{
			name:          "nil config uses defaults",
			component:     "maintenance",
			config:        nil,
			expectedLevel: "info",
		},
		{
			name:          "typed nil config uses defaults",
			component:     "cache",
			config:        typedNil,
			expectedLevel: "info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewComponentLoggerFromConfig(tt.component, tt.config)
			require.Equal(t, tt.component, logger.GetComponent())
			require.Equal(t, tt.expectedLevel, logger.GetLevel())
		})
	}
}

func TestNewNopLogger(t *testing.T) {
	logger := NewNopLogger()
	require.NotNil(t, logger.SugaredLogger)

	logger.Debug("test")
	logger.Infow("test", "key", "value")
	require.Equal(t, "nop", logger.WithComponent("nop").GetComponent())
}
