// Package logging bootstraps molt's structured logger, grounded in
// waffle's logging.BootstrapLogger/BuildLogger split between an early
// logger usable before flags are parsed and a fully configured one.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// formatEnv is spec.md §6's ambient logging knob: MOLT_LOG_FORMAT=json
// switches the encoder to JSON for machine consumption; anything else
// (including unset) keeps the human-readable development encoder.
const formatEnv = "MOLT_LOG_FORMAT"

// BootstrapLogger returns a development-friendly logger safe to use before
// CLI flags are parsed, since it reads no flag and no Config.
func BootstrapLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// BuildLogger constructs the logger the Driver uses for the rest of a run,
// honoring MOLT_LOG_FORMAT and NO_COLOR (spec.md §6's only two
// environment inputs besides the module search root).
func BuildLogger() (*zap.Logger, error) {
	var cfg zap.Config
	if strings.EqualFold(os.Getenv(formatEnv), "json") {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "json"
	} else {
		cfg = zap.NewDevelopmentConfig()
		if os.Getenv("NO_COLOR") != "" {
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		}
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// MustBuildLogger is a convenience for main() that wants to fatal on
// logger build failure, the way waffle's MustBuildLogger does.
func MustBuildLogger() *zap.Logger {
	logger, err := BuildLogger()
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	return logger
}
