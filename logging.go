package linkml

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap.SugaredLogger suitable for a Compiler/
// ValidationEngine: production encoding, level raised to Debug when
// verbose is set. Callers that don't care about logging can leave a
// Compiler's default no-op logger in place.
func NewLogger(verbose bool) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// NewNopLogger returns a logger that discards everything, the default
// installed by NewCompiler.
func NewNopLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
