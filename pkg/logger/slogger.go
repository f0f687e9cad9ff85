package logger

import (
	"io"
	"log/slog"
)

// SlogLogger writes informational messages with the bracketed text handler
// and errors as JSON records.
type SlogLogger struct {
	InfoLog  *slog.Logger
	ErrorLog *slog.Logger
}

func NewSlogLogger(out io.Writer, errOut io.Writer) *SlogLogger {
	return &SlogLogger{
		InfoLog:  slog.New(NewHandler(out, nil)),
		ErrorLog: slog.New(slog.NewJSONHandler(errOut, nil)),
	}
}

func (l *SlogLogger) Info(message string, module string) {
	l.InfoLog.Info(message, "module", module)
}

func (l *SlogLogger) Warn(message string, module string) {
	l.InfoLog.Warn(message, "module", module)
}

func (l *SlogLogger) Error(message string) {
	l.ErrorLog.Error(message)
}
