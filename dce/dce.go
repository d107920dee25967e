// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// Package dce provides the modem object, which decorates the AT modem with
// the command catalog for a particular device variant, the PDP context and
// the mode state machine.
package dce

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/warthog618/ltemodem/at"
	"github.com/warthog618/ltemodem/catalog"
	"github.com/warthog618/ltemodem/info"
	"github.com/warthog618/ltemodem/mode"
	"github.com/warthog618/sms/encoding/pdumode"
	"go.uber.org/zap"
)

// PDPContext describes the cellular data session.
type PDPContext struct {
	ContextID    int
	ProtocolType string
	APN          string
}

// DCE decorates the AT modem with typed operations for a device variant.
type DCE struct {
	*at.AT
	variant catalog.Variant
	modes   *mode.Machine
	mux     MuxHook
	sca     pdumode.SMSCAddress
	log     *zap.Logger

	// delay between identifying the module and configuring the PDP context,
	// for variants that require it.
	settle time.Duration

	// covers pdp
	mu  sync.Mutex
	pdp PDPContext
}

// MuxHook is called when the modem enters or moves within a multiplexed
// mode, so the external CMUX framing layer can follow.
type MuxHook func(ctx context.Context, to mode.Mode) error

// Option is a construction option for a DCE.
type Option func(*DCE)

// WithVariant sets the device variant, which selects the catalog overrides.
//
// The default is catalog.Generic.
func WithVariant(v catalog.Variant) Option {
	return func(d *DCE) {
		d.variant = v
	}
}

// WithPDPContext sets the initial PDP context.
func WithPDPContext(pdp PDPContext) Option {
	return func(d *DCE) {
		d.pdp = pdp
	}
}

// WithAPN sets the APN of the initial PDP context.
func WithAPN(apn string) Option {
	return func(d *DCE) {
		d.pdp.APN = apn
	}
}

// WithMuxHook sets the hook called on multiplexed mode changes.
func WithMuxHook(h MuxHook) Option {
	return func(d *DCE) {
		d.mux = h
	}
}

// WithSCA sets the SMSC address used for PDU mode SMS.
//
// The default is empty, so the modem uses its configured SMSC.
func WithSCA(sca pdumode.SMSCAddress) Option {
	return func(d *DCE) {
		d.sca = sca
	}
}

// WithDataSettle sets the delay the AIR780E requires after it is identified
// and before the PDP context is configured, when entering data mode.
//
// The default is 4 seconds.
func WithDataSettle(settle time.Duration) Option {
	return func(d *DCE) {
		d.settle = settle
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *DCE) {
		d.log = l
	}
}

// New creates a new DCE.
//
// The PDP context defaults to context 1, protocol IP, with an empty APN.
func New(a *at.AT, options ...Option) *DCE {
	d := &DCE{
		AT:     a,
		pdp:    PDPContext{ContextID: 1, ProtocolType: "IP"},
		log:    zap.NewNop(),
		settle: 4 * time.Second,
	}
	for _, option := range options {
		option(d)
	}
	d.modes = mode.New(executor{d}, mode.WithLogger(d.log))
	return d
}

// Variant returns the device variant.
func (d *DCE) Variant() catalog.Variant {
	return d.variant
}

// reply is the outcome of an operation.
type reply struct {
	def    catalog.Def
	result at.Result
	info   []string
}

// run issues the operation, including its pre and post operations.
//
// The error is only set if the operation could not be issued.
// The results of the pre and post operations are ignored.
func (d *DCE) run(ctx context.Context, op catalog.Op, args ...interface{}) (reply, error) {
	def, err := catalog.Lookup(d.variant, op)
	if err != nil {
		return reply{}, err
	}
	for _, pre := range def.Pre {
		if _, err := d.run(ctx, pre); err != nil {
			return reply{}, err
		}
	}
	cmd, err := def.Command(args...)
	if err != nil {
		return reply{}, err
	}
	rsp := reply{def: def}
	if def.String {
		var out string
		rsp.result, out, err = d.GetString(ctx, cmd.Text, cmd.Timeout)
		if out != "" {
			rsp.info = []string{out}
		}
	} else {
		rsp.result, rsp.info, err = d.Execute(ctx, cmd)
	}
	if err != nil {
		return rsp, errors.Wrap(err, op.String())
	}
	d.log.Debug("command",
		zap.Stringer("op", op),
		zap.Stringer("result", rsp.result),
		zap.Strings("info", rsp.info))
	for _, post := range def.Post {
		if _, err := d.run(ctx, post); err != nil {
			return rsp, err
		}
	}
	return rsp, nil
}

// do issues the operation and requires it to pass.
func (d *DCE) do(ctx context.Context, op catalog.Op, args ...interface{}) (reply, error) {
	rsp, err := d.run(ctx, op, args...)
	if err != nil {
		return rsp, err
	}
	if rsp.result != at.OK {
		return rsp, CommandError{Op: op, Result: rsp.result, Info: rsp.info}
	}
	return rsp, nil
}

// line issues the operation and returns its single data line.
func (d *DCE) line(ctx context.Context, op catalog.Op) (catalog.Def, string, error) {
	rsp, err := d.do(ctx, op)
	if err != nil {
		return rsp.def, "", err
	}
	if len(rsp.info) == 0 {
		return rsp.def, "", parsed(op, ErrMalformed)
	}
	return rsp.def, rsp.info[len(rsp.info)-1], nil
}

// CommandError indicates an operation did not pass.
//
// Info the modem returned that could not be parsed fails the operation, with
// the parse error in Err.
type CommandError struct {
	Op     catalog.Op
	Result at.Result
	Info   []string
	Err    error
}

// parsed converts a failure to parse the info returned by op into a
// CommandError.
func parsed(op catalog.Op, err error) error {
	if err == nil {
		return nil
	}
	return CommandError{Op: op, Result: at.Fail, Err: err}
}

func (e CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s returned %s: %s", e.Op, e.Result, e.Err)
	}
	if len(e.Info) > 0 {
		if err := at.ParseError(e.Info[len(e.Info)-1]); err != nil {
			return fmt.Sprintf("%s returned %s: %s", e.Op, e.Result, err)
		}
	}
	return fmt.Sprintf("%s returned %s", e.Op, e.Result)
}

// Is matches ErrFail or ErrTimeout, depending on the result.
func (e CommandError) Is(target error) bool {
	switch target {
	case ErrFail:
		return e.Result == at.Fail
	case ErrTimeout:
		return e.Result == at.Timeout
	}
	return false
}

// Unwrap returns the parse error, if any.
func (e CommandError) Unwrap() error {
	return e.Err
}

var (
	// ErrFail indicates the modem returned a fail phrase.
	ErrFail = errors.New("command failed")

	// ErrTimeout indicates the modem did not return a pass or fail phrase
	// before the command timeout.
	ErrTimeout = errors.New("command timed out")

	// ErrMalformed indicates the modem passed the command but the info
	// returned could not be parsed. It is returned within a CommandError,
	// so also matches ErrFail.
	ErrMalformed = info.ErrMalformed
)
