package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Logger is a component logger that prefixes every line with the component
// name and appends key/value pairs. It follows the package level.
type Logger struct {
	component string
	logger    *log.Logger
	keyvals   []interface{}
}

// NewLogger creates a logger for a component writing to stdout.
func NewLogger(component string) *Logger {
	return NewLoggerTo(os.Stdout, component)
}

// NewLoggerTo creates a logger writing to w.
func NewLoggerTo(w io.Writer, component string) *Logger {
	return &Logger{
		component: component,
		logger:    log.New(w, fmt.Sprintf("[%s] ", component), log.LstdFlags),
	}
}

// With returns a child logger that always carries keyvals.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	child := *l
	child.keyvals = append(append([]interface{}{}, l.keyvals...), keyvals...)
	return &child
}

func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.print(Debug, "DEBUG", msg, keyvals)
}

func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.print(Info, "INFO", msg, keyvals)
}

func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.print(Warning, "WARN", msg, keyvals)
}

func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.print(Error, "ERROR", msg, keyvals)
}

func (l *Logger) print(level int, tag, msg string, keyvals []interface{}) {
	if currentLevel() > level {
		return
	}
	l.logger.Println(formatMessage(tag, msg, append(append([]interface{}{}, l.keyvals...), keyvals...)))
}

// formatMessage renders "[LEVEL] msg k=v k=v". A trailing key without a
// value is dropped.
func formatMessage(level, msg string, keyvals []interface{}) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", level, msg)
	for i := 0; i+1 < len(keyvals); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keyvals[i], keyvals[i+1])
	}
	return b.String()
}
