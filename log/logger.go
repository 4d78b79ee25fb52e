// Copyright 2023 The ledgercore Authors
// This file is part of the ledgercore library.
//
// The ledgercore library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ledgercore library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ledgercore library. If not, see <http://www.gnu.org/licenses/>.

// Package log implements a structured logger on top of log/slog, with a
// glog-style verbosity/vmodule handler and a terminal handler intended for
// interactive use. Every long-lived component in ledgercore takes a
// *log.Logger at construction time rather than reaching for a global.
package log

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

const errorKey = "LOG_ERROR"

// Level mirrors slog.Level with the two extra values the teacher's log
// package carries: Trace (below Debug) and Crit (above Error).
const (
	LevelTrace slog.Level = -8
	LevelDebug slog.Level = slog.LevelDebug
	LevelInfo  slog.Level = slog.LevelInfo
	LevelWarn  slog.Level = slog.LevelWarn
	LevelError slog.Level = slog.LevelError
	LevelCrit  slog.Level = 12
)

// LevelString formats a slog.Level into the 4/5-char tags used by the
// terminal and logfmt handlers.
func LevelString(l slog.Level) string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelCrit:
		return "CRIT"
	default:
		return "INFO"
	}
}

// Logger is the interface injected into every ledgercore component.
type Logger interface {
	With(ctx ...any) Logger
	New(ctx ...any) Logger

	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	Crit(msg string, ctx ...any)

	Log(level slog.Level, msg string, ctx ...any)

	Handler() slog.Handler
}

type logger struct {
	inner *slog.Logger
}

// NewLogger wraps an slog.Handler into a Logger.
func NewLogger(h slog.Handler) Logger {
	return &logger{inner: slog.New(h)}
}

func (l *logger) Handler() slog.Handler { return l.inner.Handler() }

func (l *logger) Write(level slog.Level, msg string, ctx ...any) {
	l.write(level, msg, ctx...)
}

func (l *logger) write(level slog.Level, msg string, attrs ...any) {
	ctx := context.Background()
	if !l.inner.Enabled(ctx, level) {
		return
	}
	if len(attrs)%2 != 0 {
		attrs = append(attrs, nil, errorKey, "Normalized odd number of arguments by adding nil")
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:]) // skip Callers, write, and the exported level method
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(attrs...)
	_ = l.inner.Handler().Handle(ctx, r)
}

func (l *logger) Log(level slog.Level, msg string, ctx ...any) { l.write(level, msg, ctx...) }
func (l *logger) Trace(msg string, ctx ...any)                 { l.write(LevelTrace, msg, ctx...) }
func (l *logger) Debug(msg string, ctx ...any)                 { l.write(LevelDebug, msg, ctx...) }
func (l *logger) Info(msg string, ctx ...any)                  { l.write(LevelInfo, msg, ctx...) }
func (l *logger) Warn(msg string, ctx ...any)                  { l.write(LevelWarn, msg, ctx...) }
func (l *logger) Error(msg string, ctx ...any)                 { l.write(LevelError, msg, ctx...) }
func (l *logger) Crit(msg string, ctx ...any)                  { l.write(LevelCrit, msg, ctx...) }

func (l *logger) With(ctx ...any) Logger {
	return &logger{inner: slog.New(l.inner.Handler()).With(ctx...)}
}

func (l *logger) New(ctx ...any) Logger { return l.With(ctx...) }

var (
	defaultMu     sync.Mutex
	defaultLogger atomic.Value // Logger
)

func init() {
	defaultLogger.Store(NewLogger(NewTerminalHandler(os.Stderr, false)))
}

// SetDefault installs l as the package-level default logger used by the
// free functions below (Trace, Debug, ...).
func SetDefault(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger.Store(l)
}

// Root returns the current package-level default logger.
func Root() Logger { return defaultLogger.Load().(Logger) }

func Trace(msg string, ctx ...any) { Root().Trace(msg, ctx...) }
func Debug(msg string, ctx ...any) { Root().Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { Root().Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { Root().Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { Root().Error(msg, ctx...) }
func Crit(msg string, ctx ...any)  { Root().Crit(msg, ctx...) }
func New(ctx ...any) Logger        { return Root().New(ctx...) }
