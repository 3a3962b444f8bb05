package logger

import (
	"fmt"
	"io"
	"log"
	"sync"
)

type Logger interface {
	Log(format string, v ...interface{})
	WithPrefix(extraPrefix string) Logger
}

// BaseLogger writes prefixed lines to an optional writer and to the
// standard logger.
type BaseLogger struct {
	mu     *sync.Mutex
	prefix string
	writer io.Writer
	echo   bool
}

func NewLogger(writer io.Writer, prefix string) *BaseLogger {
	return &BaseLogger{
		mu:     &sync.Mutex{},
		writer: writer,
		prefix: prefix,
		echo:   true,
	}
}

// Discard drops everything; handy in tests
func Discard() *BaseLogger {
	return &BaseLogger{mu: &sync.Mutex{}, writer: io.Discard}
}

func (l *BaseLogger) Log(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	message := fmt.Sprintf(format, v...)
	if l.prefix != "" {
		message = l.prefix + " " + message
	}
	if l.writer != nil {
		fmt.Fprintln(l.writer, message)
	}
	if l.echo {
		log.Print(message)
	}
}

func (l *BaseLogger) WithPrefix(extraPrefix string) Logger {
	prefix := extraPrefix
	if l.prefix != "" {
		prefix = l.prefix + " " + extraPrefix
	}
	return &BaseLogger{
		mu:     l.mu,
		writer: l.writer,
		prefix: prefix,
		echo:   l.echo,
	}
}

// Quiet stops echoing to the standard logger
func (l *BaseLogger) Quiet() *BaseLogger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.echo = false
	return l
}
