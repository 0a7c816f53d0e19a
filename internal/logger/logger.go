package logger

import (
	"io"
	"log"
	"os"
	"strings"
)

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Logger is a leveled wrapper over the standard library logger.
type Logger struct {
	level       Level
	infoLogger  *log.Logger
	errorLogger *log.Logger
	debugLogger *log.Logger
	fatalLogger *log.Logger
	prefix      string
}

func New(level string) *Logger {
	return NewWithWriters(level, os.Stderr, os.Stderr)
}

// NewWithWriters builds a logger writing info/debug lines to out and
// error/fatal lines to errOut.
func NewWithWriters(level string, out, errOut io.Writer) *Logger {
	flags := log.Ldate | log.Ltime
	return &Logger{
		level:       ParseLevel(level),
		infoLogger:  log.New(out, "INFO: ", flags),
		errorLogger: log.New(errOut, "ERROR: ", flags),
		debugLogger: log.New(out, "DEBUG: ", flags),
		fatalLogger: log.New(errOut, "FATAL: ", flags),
	}
}

func NewDiscard() *Logger {
	return &Logger{
		level:       LevelInfo,
		infoLogger:  log.New(io.Discard, "", 0),
		errorLogger: log.New(io.Discard, "", 0),
		debugLogger: log.New(io.Discard, "", 0),
		fatalLogger: log.New(io.Discard, "", 0),
	}
}

func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// With returns a copy of the logger whose messages start with prefix.
func (l *Logger) With(prefix string) *Logger {
	c := *l
	c.prefix = l.prefix + prefix + " "
	return &c
}

// SetOutput redirects every level, e.g. while a TUI owns the terminal.
func (l *Logger) SetOutput(w io.Writer) {
	l.infoLogger.SetOutput(w)
	l.debugLogger.SetOutput(w)
	l.errorLogger.SetOutput(w)
	l.fatalLogger.SetOutput(w)
}

func (l *Logger) Info(format string, v ...any) {
	if l.level == LevelError {
		return
	}
	l.infoLogger.Printf(l.prefix+format, v...)
}

func (l *Logger) Error(format string, v ...any) {
	l.errorLogger.Printf(l.prefix+format, v...)
}

func (l *Logger) Debug(format string, v ...any) {
	if l.level != LevelDebug {
		return
	}
	l.debugLogger.Printf(l.prefix+format, v...)
}

func (l *Logger) Fatal(v ...any) {
	l.fatalLogger.Fatal(v...)
}
