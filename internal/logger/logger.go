// Package logger provides the module-tagged logger shared by the analyses.
package logger

import "go.uber.org/zap"

// Logger encapsulates a Logger and module which it belongs to.
// Use this through SetLogger() of an analysis.
type Logger struct {
	*zap.SugaredLogger
	module string
}

// LogSetter is an analysis that logs through a Logger.
type LogSetter interface {
	SetLogger(*Logger)
}

// New returns a Logger writing to l, tagged with module.
func New(l *zap.SugaredLogger, module string) *Logger {
	return &Logger{SugaredLogger: l, module: module}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// Module returns (stylised) module name.
func (l *Logger) Module() string {
	return l.module
}

// For returns a Logger sharing the output of l, tagged with module.
func (l *Logger) For(module string) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger, module: module}
}
