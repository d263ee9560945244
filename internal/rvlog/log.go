// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

// Package rvlog is a small leveled, structured logger: call sites pass a
// message plus an even number of key/value context arguments, e.g.
// rvlog.Info("fetch stalled", "pc", pc, "cause", "MISS").
package rvlog

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	colorable "github.com/mattn/go-colorable"
	isatty "github.com/mattn/go-isatty"
)

// Lvl is a logging level, most to least severe ordered low to high like the
// syslog levels this mirrors.
type Lvl int

const (
	LvlCrit Lvl = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
)

func (l Lvl) String() string {
	switch l {
	case LvlCrit:
		return "CRIT"
	case LvlError:
		return "ERROR"
	case LvlWarn:
		return "WARN"
	case LvlInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

var levelColor = map[Lvl]color.Attribute{
	LvlCrit:  color.FgMagenta,
	LvlError: color.FgRed,
	LvlWarn:  color.FgYellow,
	LvlInfo:  color.FgGreen,
	LvlDebug: color.FgCyan,
}

// Record is one emitted log line.
type Record struct {
	Time  time.Time
	Lvl   Lvl
	Msg   string
	Ctx   []interface{}
	Call  stack.Call
}

// Handler processes a Record; Root's default handler writes a
// human-readable, optionally colorized line to an io.Writer.
type Handler interface {
	Log(r *Record) error
}

// StreamHandler writes records to w, colorizing the level tag when w is (or
// wraps) a real terminal.
type StreamHandler struct {
	mu     sync.Mutex
	w      *os.File
	color  bool
}

// NewStreamHandler wraps w with colorable so ANSI codes render on Windows
// consoles too, and auto-detects whether color should be used at all.
func NewStreamHandler(w *os.File) *StreamHandler {
	return &StreamHandler{w: w, color: isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd())}
}

func (h *StreamHandler) Log(r *Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := colorable.NewColorable(h.w)

	tag := r.Lvl.String()
	if h.color {
		tag = color.New(levelColor[r.Lvl]).Sprint(tag)
	}
	fmt.Fprintf(out, "%s [%s] %s", r.Time.Format("15:04:05.000"), tag, r.Msg)
	for i := 0; i+1 < len(r.Ctx); i += 2 {
		fmt.Fprintf(out, " %v=%v", r.Ctx[i], r.Ctx[i+1])
	}
	if r.Lvl <= LvlError {
		fmt.Fprintf(out, " caller=%+v", r.Call)
	}
	fmt.Fprintln(out)
	return nil
}

// Logger emits Records at or below its configured level to a Handler.
type Logger struct {
	mu      sync.Mutex
	level   Lvl
	handler Handler
}

// New returns a Logger writing to stderr at LvlInfo.
func New() *Logger {
	return &Logger{level: LvlInfo, handler: NewStreamHandler(os.Stderr)}
}

// SetLevel changes the minimum severity emitted.
func (l *Logger) SetLevel(lvl Lvl) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = lvl
}

// SetHandler replaces the destination handler.
func (l *Logger) SetHandler(h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = h
}

func (l *Logger) log(lvl Lvl, msg string, ctx ...interface{}) {
	l.mu.Lock()
	level, handler := l.level, l.handler
	l.mu.Unlock()
	if lvl > level {
		return
	}
	var call stack.Call
	if lvl <= LvlError {
		call = stack.Caller(2)
	}
	handler.Log(&Record{Time: time.Now(), Lvl: lvl, Msg: msg, Ctx: ctx, Call: call})
}

func (l *Logger) Debug(msg string, ctx ...interface{}) { l.log(LvlDebug, msg, ctx...) }
func (l *Logger) Info(msg string, ctx ...interface{})  { l.log(LvlInfo, msg, ctx...) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { l.log(LvlWarn, msg, ctx...) }
func (l *Logger) Error(msg string, ctx ...interface{}) { l.log(LvlError, msg, ctx...) }
func (l *Logger) Crit(msg string, ctx ...interface{})  { l.log(LvlCrit, msg, ctx...) }

// Root is the package-level default logger, for package-scoped
// log.Info/log.Warn call sites that don't need their own Logger.
var Root = New()

func Debug(msg string, ctx ...interface{}) { Root.Debug(msg, ctx...) }
func Info(msg string, ctx ...interface{})  { Root.Info(msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { Root.Warn(msg, ctx...) }
func Error(msg string, ctx ...interface{}) { Root.Error(msg, ctx...) }
func Crit(msg string, ctx ...interface{})  { Root.Crit(msg, ctx...) }
