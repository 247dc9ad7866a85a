// Etebase - Encrypt Everything
// Copyright (C) 2025 EteSync
//
// This file is part of Etebase.
//
// Etebase is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Etebase is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Etebase. If not, see <https://www.gnu.org/licenses/>.

// Package logger provides the structured JSON logger used by the transport
// and CLI layers. Key, nonce and tag material must never be passed in as a
// field value.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is the severity of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name to a Level, defaulting to Info.
func ParseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DebugLevel
	case "WARN":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Field is one structured logging field.
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an integer field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Err creates an error field.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Logger is the structured logging interface.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	WithFields(fields ...Field) Logger
}

// JSONLogger writes one JSON object per entry.
type JSONLogger struct {
	mu         sync.Mutex
	level      Level
	output     io.Writer
	baseFields []Field
}

// New creates a logger writing to output at the given level.
func New(output io.Writer, level Level) *JSONLogger {
	return &JSONLogger{level: level, output: output}
}

// NewDefault creates a stderr logger honoring ETEBASE_LOG_LEVEL.
func NewDefault() *JSONLogger {
	return New(os.Stderr, ParseLevel(os.Getenv("ETEBASE_LOG_LEVEL")))
}

// Debug logs at debug level.
func (l *JSONLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields...) }

// Info logs at info level.
func (l *JSONLogger) Info(msg string, fields ...Field) { l.log(InfoLevel, msg, fields...) }

// Warn logs at warn level.
func (l *JSONLogger) Warn(msg string, fields ...Field) { l.log(WarnLevel, msg, fields...) }

// Error logs at error level.
func (l *JSONLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields...) }

// WithFields returns a logger that includes fields on every entry.
func (l *JSONLogger) WithFields(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.baseFields)+len(fields))
	merged = append(merged, l.baseFields...)
	merged = append(merged, fields...)
	return &JSONLogger{level: l.level, output: l.output, baseFields: merged}
}

func (l *JSONLogger) log(level Level, msg string, fields ...Field) {
	if level < l.level {
		return
	}
	entry := make(map[string]interface{}, len(l.baseFields)+len(fields)+3)
	entry["timestamp"] = time.Now().Format(time.RFC3339)
	entry["level"] = level.String()
	entry["message"] = msg
	for _, f := range l.baseFields {
		entry[f.Key] = f.Value
	}
	for _, f := range fields {
		entry[f.Key] = f.Value
	}

	data, err := json.Marshal(entry)
	if err != nil {
		l.mu.Lock()
		fmt.Fprintf(l.output, `{"level":"ERROR","message":"log entry marshal failed","error":%q}`+"\n", err.Error())
		l.mu.Unlock()
		return
	}
	l.mu.Lock()
	fmt.Fprintf(l.output, "%s\n", data)
	l.mu.Unlock()
}

// Nop is a logger that discards everything.
type Nop struct{}

func (Nop) Debug(string, ...Field)       {}
func (Nop) Info(string, ...Field)        {}
func (Nop) Warn(string, ...Field)        {}
func (Nop) Error(string, ...Field)       {}
func (Nop) WithFields(...Field) Logger   { return Nop{} }
