package logger

import "sync/atomic"

type Logger interface {
	Info(message string, module string)
	Warn(message string, module string)
	Error(string)
}

var logger Logger = discard{}

var verbosity atomic.Int32

func SetLogger(l Logger) {
	if l == nil {
		l = discard{}
	}
	logger = l
}

// SetVerbosity sets the level used by callers to gate debug output.
func SetVerbosity(v int) {
	verbosity.Store(int32(v))
}

func Verbosity() int {
	return int(verbosity.Load())
}

func Info(message string, module string) {
	logger.Info(message, module)
}

func Warn(message string, module string) {
	logger.Warn(message, module)
}

func Error(message string) {
	logger.Error(message)
}

type discard struct{}

func (discard) Info(string, string) {}
func (discard) Warn(string, string) {}
func (discard) Error(string)        {}
