package framework

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// Logger is the minimal logging interface used throughout the harness. *log.Logger satisfies it.
type Logger interface {
	Println(args ...interface{})
	Printf(message string, args ...interface{})
}

type nullLogger struct{}

func (n nullLogger) Println(args ...interface{})                {}
func (n nullLogger) Printf(message string, args ...interface{}) {}

func NullLogger() Logger { return nullLogger{} }

type CapturedMessage struct {
	Time    time.Time
	Message string
}

type CapturedOutput []CapturedMessage

// CapturingLogger records all output sent to it, so that it can be shown later (for instance,
// only if a scenario failed). It can also forward each message to another Logger as it arrives.
type CapturingLogger struct {
	output  []CapturedMessage
	forward Logger
	lock    sync.Mutex
}

// NewCapturingLogger creates a CapturingLogger. If forward is non-nil, every message is also
// passed through to it.
func NewCapturingLogger(forward Logger) *CapturingLogger {
	return &CapturingLogger{forward: forward}
}

func (l *CapturingLogger) Println(args ...interface{}) {
	m := strings.TrimRight(fmt.Sprintln(args...), "\r\n") // Sprintln appends a newline
	l.append(CapturedMessage{Time: time.Now(), Message: m})
}

func (l *CapturingLogger) Printf(message string, args ...interface{}) {
	l.append(CapturedMessage{Time: time.Now(), Message: fmt.Sprintf(message, args...)})
}

func (l *CapturingLogger) append(m CapturedMessage) {
	l.lock.Lock()
	l.output = append(l.output, m)
	forward := l.forward
	l.lock.Unlock()
	if forward != nil {
		forward.Println(m.Message)
	}
}

func (l *CapturingLogger) Output() CapturedOutput {
	l.lock.Lock()
	ret := append([]CapturedMessage(nil), l.output...)
	l.lock.Unlock()
	return ret
}

func (output CapturedOutput) ToString(prefix string) string {
	ret := ""
	for _, m := range output {
		if ret != "" {
			ret += "\n"
		}
		ret += fmt.Sprintf("%s[%s] %s",
			prefix,
			m.Time.Format(timestampFormat),
			m.Message,
		)
	}
	return ret
}

type prefixedLogger struct {
	base   Logger
	prefix string
}

// LoggerWithPrefix returns a Logger that adds a fixed prefix to every message.
func LoggerWithPrefix(baseLogger Logger, prefix string) Logger {
	if baseLogger == nil {
		baseLogger = NullLogger()
	}
	return prefixedLogger{baseLogger, prefix}
}

func (p prefixedLogger) Println(args ...interface{}) {
	p.base.Println(append([]interface{}{p.prefix}, args...)...)
}

func (p prefixedLogger) Printf(message string, args ...interface{}) {
	p.base.Printf(p.prefix+message, args...)
}

// ConsoleLogger writes timestamped lines to a writer, optionally in a color. It is safe for
// concurrent use.
type ConsoleLogger struct {
	out   io.Writer
	color *color.Color
	lock  sync.Mutex
}

// NewConsoleLogger creates a ConsoleLogger. The color may be nil for plain output.
func NewConsoleLogger(out io.Writer, c *color.Color) *ConsoleLogger {
	return &ConsoleLogger{out: out, color: c}
}

func (c *ConsoleLogger) Println(args ...interface{}) {
	c.write(strings.TrimRight(fmt.Sprintln(args...), "\r\n"))
}

func (c *ConsoleLogger) Printf(message string, args ...interface{}) {
	c.write(fmt.Sprintf(message, args...))
}

func (c *ConsoleLogger) write(message string) {
	line := fmt.Sprintf("[%s] %s\n", time.Now().Format(timestampFormat), message)
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.color != nil {
		_, _ = c.color.Fprint(c.out, line)
		return
	}
	_, _ = io.WriteString(c.out, line)
}
