package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want *zapcore.Level
	}{
		{"debug", levelPtr(zapcore.DebugLevel)},
		{"warn", levelPtr(zapcore.WarnLevel)},
		{"verbose", nil},
	}

	for _, tt := range tests {
		got := parseLevel(tt.in)
		if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	log.Info("dropped", String("k", "v"), Bool("b", true))
	log.Warnf("dropped %d", 1)
	if err := log.Sync(); err != nil {
		t.Errorf("Nop().Sync() error = %v", err)
	}
}

func levelPtr(l zapcore.Level) *zapcore.Level { return &l }
