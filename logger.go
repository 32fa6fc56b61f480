package oasis

import (
	"fmt"
	"strings"
)

// Logger is the leveled, key/value logger used across the package.
// glog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// LoggerProvider hands out named loggers.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// LoggerProviderFunc adapts a function to LoggerProvider.
type LoggerProviderFunc func(name string) Logger

// GetLogger implements LoggerProvider.
func (f LoggerProviderFunc) GetLogger(name string) Logger {
	if f == nil {
		return nil
	}
	return f(name)
}

// ResolveLogger returns a provider and a logger scoped to name. An explicit
// logger wins over the provider; with neither we fall back to the console logger.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	if logger == nil && provider != nil {
		logger = provider.GetLogger(name)
	}

	if logger == nil {
		logger = defaultLogger(name)
	}

	if provider == nil {
		fallback := logger
		provider = LoggerProviderFunc(func(string) Logger { return fallback })
	}

	if resolved := provider.GetLogger(name); resolved == nil {
		fallback := logger
		provider = LoggerProviderFunc(func(string) Logger { return fallback })
	}

	return provider, logger
}

// logCritical records operator facing failures. Logger has no critical
// level so it goes out as an error tagged with the severity.
func logCritical(logger Logger, msg string, args ...any) {
	logger.Error(msg, append([]any{"severity", "critical"}, args...)...)
}

// logNotice records noteworthy but normal events.
func logNotice(logger Logger, msg string, args ...any) {
	logger.Info(msg, append([]any{"severity", "notice"}, args...)...)
}

type defLogger struct {
	name string
}

func defaultLogger(name string) Logger {
	return defLogger{name: name}
}

func (d defLogger) Debug(msg string, args ...any) { d.print("DBG", msg, args...) }
func (d defLogger) Info(msg string, args ...any)  { d.print("INF", msg, args...) }
func (d defLogger) Warn(msg string, args ...any)  { d.print("WRN", msg, args...) }
func (d defLogger) Error(msg string, args ...any) { d.print("ERR", msg, args...) }

func (d defLogger) print(level, msg string, args ...any) {
	var b strings.Builder
	b.WriteString("[" + level + "] ")
	if d.name != "" {
		b.WriteString(strings.ToUpper(d.name) + " ")
	}
	b.WriteString(msg)

	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
			continue
		}
		fmt.Fprintf(&b, " %v", args[i])
	}

	fmt.Println(b.String())
}
