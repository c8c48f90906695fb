package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kwetherill/streamgauge/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds a zap logger from the log configuration, with colored
// console output split across stdout/stderr by level and optional JSON file
// output through lumberjack rotation.
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARN: %v, defaulting to INFO level\n", err)
		level = zapcore.InfoLevel
	}

	isConsole := strings.ToLower(cfg.Format) == "console"
	isDevelopment := (level == zapcore.DebugLevel) || isConsole

	cores := []zapcore.Core{}

	if isConsole {
		consoleEncoder := buildEncoder(true)
		stdout := zapcore.Lock(os.Stdout)
		stderr := zapcore.Lock(os.Stderr)
		// Below-error goes to stdout, error and up to stderr.
		cores = append(cores,
			zapcore.NewCore(consoleEncoder, stdout, zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lvl >= level && lvl < zapcore.ErrorLevel
			})),
			zapcore.NewCore(consoleEncoder, stderr, zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lvl >= level && lvl >= zapcore.ErrorLevel
			})),
		)
	}

	if cfg.FileLoggingEnabled {
		if err := os.MkdirAll(cfg.Directory, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory '%s': %w", cfg.Directory, err)
		}

		ljack := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Directory, cfg.Filename),
			MaxSize:    cfg.MaxSize,    // megabytes
			MaxBackups: cfg.MaxBackups, // files
			MaxAge:     cfg.MaxAge,     // days
			Compress:   cfg.Compress,
		}
		cores = append(cores, zapcore.NewCore(buildEncoder(false), zapcore.AddSync(ljack), level))
	}

	var combinedCore zapcore.Core
	switch len(cores) {
	case 0:
		return nil, fmt.Errorf("no logging outputs configured (neither console nor file enabled)")
	case 1:
		combinedCore = cores[0]
	default:
		combinedCore = zapcore.NewTee(cores...)
	}

	loggerOptions := []zap.Option{
		zap.AddCaller(),
		zap.AddCallerSkip(1),
	}
	if isDevelopment {
		loggerOptions = append(loggerOptions, zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	} else {
		loggerOptions = append(loggerOptions, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger := zap.New(combinedCore, loggerOptions...)

	logger.Debug("Zap logger constructed",
		zap.String("final_level", level.String()),
		zap.String("console_format", cfg.Format),
		zap.Bool("file_logging_enabled", cfg.FileLoggingEnabled),
		zap.Bool("development_mode", isDevelopment),
	)

	return logger, nil
}

func parseLevel(levelStr string) (zapcore.Level, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(levelStr))); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level '%s'", levelStr)
	}
	return level, nil
}

func buildEncoder(useConsoleStyle bool) zapcore.Encoder {
	if useConsoleStyle {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	// File output stays machine-readable.
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}
