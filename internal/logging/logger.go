// Package logging provides a tagged, leveled logger with per-tag levels
// configurable through the LOGLEVEL environment variable, e.g.
//
//	LOGLEVEL=warn,tvinput=debug,v4l2=3
//
// A directive without a tag sets the default level.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const timestampFormat = "2006-01-02 15:04:05.000"

type Logger struct {
	// Messages more verbose than this level are dropped.
	Level

	// Tag used to filter and classify log messages.
	Tag string

	out io.Writer

	// Shared by all derived loggers so their lines never interleave.
	mu *sync.Mutex
}

// DefaultLogger writes to stderr.
var DefaultLogger = &Logger{defaultLevel, "", os.Stderr, new(sync.Mutex)}

// Per-tag level overrides parsed from LOGLEVEL.
var tagLevels map[string]Level

func init() {
	tagLevels = make(map[string]Level)
	for _, directive := range strings.Split(os.Getenv("LOGLEVEL"), ",") {
		if directive == "" {
			continue
		}
		parts := strings.SplitN(directive, "=", 2)
		level, err := parseLevel(parts[len(parts)-1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Bad LOGLEVEL directive %q: %s\n", directive, err)
			continue
		}
		if len(parts) == 1 {
			defaultLevel = level
		} else {
			tagLevels[parts[0]] = level
		}
	}
	DefaultLogger.Level = defaultLevel
}

// SetDestination overrides where this logger writes.
func (log *Logger) SetDestination(out io.Writer) {
	log.out = out
}

// WithTag derives a logger for the given tag, honoring any LOGLEVEL
// override for it.
func (log *Logger) WithTag(tag string) *Logger {
	level := log.Level
	if override, ok := tagLevels[tag]; ok {
		level = override
	}
	return &Logger{level, tag, log.out, log.mu}
}

// Log formats a message at the given level, mentioning the file and line
// 'calldepth' steps up the call stack.
func (log *Logger) Log(level Level, calldepth int, format string, a ...interface{}) {
	if level > log.Level {
		return
	}

	var buf []byte
	buf = append(buf, ansiWhite...)
	buf = time.Now().AppendFormat(buf, timestampFormat)
	buf = append(buf, ' ')
	buf = append(buf, level.color()...)
	buf = append(buf, level.letter(), '/')
	buf = append(buf, log.Tag...)

	_, file, line, ok := runtime.Caller(calldepth + 1)
	if !ok {
		file = "?"
	}
	buf = append(buf, fmt.Sprintf("[%s:%d] ", filepath.Base(file), line)...)
	buf = append(buf, ansiReset...)

	buf = append(buf, fmt.Sprintf(format, a...)...)
	if n := len(buf); n == 0 || buf[n-1] != '\n' {
		buf = append(buf, '\n')
	}

	log.mu.Lock()
	log.out.Write(buf)
	log.mu.Unlock()
}

func (log *Logger) Error(format string, a ...interface{}) {
	log.Log(Error, 1, format, a...)
}

func (log *Logger) Warn(format string, a ...interface{}) {
	log.Log(Warn, 1, format, a...)
}

func (log *Logger) Info(format string, a ...interface{}) {
	log.Log(Info, 1, format, a...)
}

func (log *Logger) Debug(format string, a ...interface{}) {
	log.Log(Debug, 1, format, a...)
}

func (log *Logger) Trace(n int, format string, a ...interface{}) {
	log.Log(Level(n), 1, format, a...)
}
