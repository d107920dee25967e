// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// Package trace provides a decorator for io.ReadWriter that logs all reads
// and writes.
package trace

import (
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Trace is a trace log on an io.ReadWriter.
//
// All reads and writes are written to the logger at debug level.
type Trace struct {
	rw   io.ReadWriter
	l    *zap.Logger
	wfmt string
	rfmt string
}

// Option modifies a Trace object created by New.
type Option func(*Trace)

// New creates a new trace on the io.ReadWriter.
func New(rw io.ReadWriter, options ...Option) *Trace {
	t := &Trace{
		rw:   rw,
		wfmt: "%q",
		rfmt: "%q",
	}
	for _, option := range options {
		option(t)
	}
	if t.l == nil {
		t.l = zap.NewNop()
	}
	return t
}

// WithReadFormat sets the format used for read logs.
func WithReadFormat(format string) Option {
	return func(t *Trace) {
		t.rfmt = format
	}
}

// WithWriteFormat sets the format used for write logs.
func WithWriteFormat(format string) Option {
	return func(t *Trace) {
		t.wfmt = format
	}
}

// WithLogger specifies the logger to be used to log trace messages.
//
// By default traces are discarded.
func WithLogger(l *zap.Logger) Option {
	return func(t *Trace) {
		t.l = l.Named("trace")
	}
}

func (t *Trace) Read(p []byte) (n int, err error) {
	n, err = t.rw.Read(p)
	if n > 0 {
		t.l.Debug("r", zap.String("data", fmt.Sprintf(t.rfmt, p[:n])))
	}
	return n, err
}

func (t *Trace) Write(p []byte) (n int, err error) {
	n, err = t.rw.Write(p)
	if n > 0 {
		t.l.Debug("w", zap.String("data", fmt.Sprintf(t.wfmt, p[:n])))
	}
	return n, err
}
