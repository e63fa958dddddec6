package logging

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// formatEntry renders one log line. Both outputs share the format so a file
// log reads the same as the console, minus color.
func formatEntry(e LogEntry, levelColor, resetColor string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s%-5s%s [%s:%d] %s",
		time.Unix(0, e.Time).Format("2006-01-02 15:04:05.000"),
		levelColor,
		e.Severity,
		resetColor,
		e.File,
		e.Line,
		e.Message,
	)

	if e.ModelID != "" {
		fmt.Fprintf(&b, " [model=%s]", e.ModelID)
	}
	if e.TokenInfo != nil {
		fmt.Fprintf(&b, " [tokens=%d]", e.TokenInfo.TotalTokens)
	}

	for _, k := range slices.Sorted(maps.Keys(e.Fields)) {
		v := fmt.Sprintf("%v", e.Fields[k])
		// Keep long values, like prompt excerpts, from swallowing the line.
		if len(v) > 100 {
			fmt.Fprintf(&b, " %s=%q", k, v[:97]+"...")
		} else {
			fmt.Fprintf(&b, " %s=%s", k, v)
		}
	}

	return b.String()
}

func severityColor(s Severity) string {
	switch s {
	case DEBUG:
		return "\033[37m"
	case INFO:
		return "\033[32m"
	case WARN:
		return "\033[33m"
	case ERROR:
		return "\033[31m"
	case FATAL:
		return "\033[35m"
	default:
		return ""
	}
}

// ConsoleOutput writes human-readable log lines, colored by severity.
type ConsoleOutput struct {
	mu     sync.Mutex
	writer io.Writer
	color  bool
}

type ConsoleOutputOption func(*ConsoleOutput)

func WithColor(enabled bool) ConsoleOutputOption {
	return func(o *ConsoleOutput) {
		o.color = enabled
	}
}

// NewConsoleOutput writes to stderr when useStderr is set, keeping stdout
// free for program output. Color is on unless disabled via WithColor.
func NewConsoleOutput(useStderr bool, opts ...ConsoleOutputOption) *ConsoleOutput {
	writer := os.Stdout
	if useStderr {
		writer = os.Stderr
	}

	o := &ConsoleOutput{
		writer: writer,
		color:  true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *ConsoleOutput) Write(e LogEntry) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var levelColor, resetColor string
	if o.color {
		levelColor = severityColor(e.Severity)
		resetColor = "\033[0m"
	}

	_, err := fmt.Fprintln(o.writer, formatEntry(e, levelColor, resetColor))
	return err
}

func (o *ConsoleOutput) Sync() error {
	if syncer, ok := o.writer.(interface{ Sync() error }); ok {
		return syncer.Sync()
	}
	return nil
}

func (o *ConsoleOutput) Close() error {
	if closer, ok := o.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// FileOutput appends plain-text log lines to a file. Writes are buffered;
// Sync flushes the buffer to disk.
type FileOutput struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
}

// NewFileOutput opens (or creates) the log file at path, creating parent
// directories as needed.
func NewFileOutput(path string) (*FileOutput, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	return &FileOutput{
		file: f,
		buf:  bufio.NewWriter(f),
	}, nil
}

func (o *FileOutput) Write(e LogEntry) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	_, err := fmt.Fprintln(o.buf, formatEntry(e, "", ""))
	return err
}

func (o *FileOutput) Sync() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.buf.Flush(); err != nil {
		return err
	}
	return o.file.Sync()
}

func (o *FileOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.buf.Flush(); err != nil {
		return err
	}
	return o.file.Close()
}
