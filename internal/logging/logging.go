// Package logging builds the zap.Logger every component threads through
// its constructor. INFO and DEBUG go to stdout, WARN and above to stderr,
// matching the human-readable INFO/WARNING/ERROR split spec §6 calls for.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process-wide logger. debug enables DEBUG-level output.
func New(debug bool) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoder := zapcore.NewConsoleEncoder(encCfg)

	minLevel := zapcore.InfoLevel
	if debug {
		minLevel = zapcore.DebugLevel
	}

	stdout := zapcore.Lock(zapcore.AddSync(os.Stdout))
	stderr := zapcore.Lock(zapcore.AddSync(os.Stderr))

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, stdout, levelRange{min: minLevel, max: zapcore.InfoLevel}),
		zapcore.NewCore(encoder, stderr, levelRange{min: zapcore.WarnLevel, max: zapcore.FatalLevel}),
	)

	return zap.New(core)
}

// levelRange implements zapcore.LevelEnabler for a closed level interval.
type levelRange struct {
	min, max zapcore.Level
}

func (r levelRange) Enabled(l zapcore.Level) bool {
	return l >= r.min && l <= r.max
}
