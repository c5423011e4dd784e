package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/rtuport/internal/config"
)

func TestParseLevelValid(t *testing.T) {
	tests := []struct {
		input    string
		expected logrus.Level
	}{
		{"trace", logrus.TraceLevel},
		{"debug", logrus.DebugLevel},
		{"DEBUG", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := parseLevel(tt.input)
			if err != nil {
				t.Errorf("parseLevel(%q) returned error: %v", tt.input, err)
			}
			if level != tt.expected {
				t.Errorf("parseLevel(%q) = %v, expected %v", tt.input, level, tt.expected)
			}
		})
	}
}

func TestParseLevelInvalid(t *testing.T) {
	for _, input := range []string{"invalid", "fatal", ""} {
		t.Run(input, func(t *testing.T) {
			_, err := parseLevel(input)
			assert.Error(t, err)
		})
	}
}

func TestFormatter(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&formatter{pattern: "[%level] %field %msg\n", time: time.RFC3339})

	l.WithFields(logrus.Fields{"unit": 1, "func": "0x03"}).Info("frame emitted")

	assert.Equal(t, "[INFO] func=0x03,unit=1 frame emitted\n", buf.String())
}

func TestInitWithFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtuport.log")
	cfg := config.LogConfig{
		Level:   "debug",
		Pattern: "%level %msg",
		Outputs: config.LogOutputsConfig{
			File: config.FileOutputConfig{
				Enabled:  true,
				Path:     path,
				Rotation: config.RotationConfig{MaxSizeMB: 1, MaxBackups: 1},
			},
		},
	}

	require.NoError(t, Init(cfg))
	defer SetLogger(newDefault())

	logger := GetLogger()
	assert.True(t, logger.IsDebugEnabled())
	assert.False(t, logger.IsTraceEnabled())
	logger.WithField("seq", 7).Debug("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "DEBUG written to file\n"), "got %q", string(data))
}

func TestInitRejectsBadConfig(t *testing.T) {
	assert.Error(t, Init(config.LogConfig{Level: "loud"}))
	assert.Error(t, Init(config.LogConfig{
		Level:   "info",
		Outputs: config.LogOutputsConfig{File: config.FileOutputConfig{Enabled: true}},
	}))
	assert.NotNil(t, GetLogger())
}
