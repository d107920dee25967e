// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// Package mode tracks the operating mode of the modem.
//
// Mode changes are requested, never asserted. A request issues the
// operation that moves the modem into the target mode and only changes the
// tracked mode if that operation succeeds.
package mode

import (
	"context"

	"github.com/looplab/fsm"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Mode is the operating mode of the modem.
type Mode int

const (
	// Command mode accepts AT commands.
	Command Mode = iota

	// Data mode carries PPP over the link.
	Data

	// CMUX multiplexes command and data channels over the link.
	CMUX

	// CMUXManual is a multiplexed link managed by the caller.
	CMUXManual

	// CMUXManualExit leaves the manual multiplexer back to Command.
	CMUXManualExit

	// CMUXManualSwap swaps the command and data channels.
	CMUXManualSwap

	// CMUXManualData switches the manual multiplexer to its data channel.
	CMUXManualData

	// CMUXManualCommand switches the manual multiplexer to its command
	// channel.
	CMUXManualCommand
)

var modeNames = []string{
	"command",
	"data",
	"cmux",
	"cmux_manual",
	"cmux_manual_exit",
	"cmux_manual_swap",
	"cmux_manual_data",
	"cmux_manual_command",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// Parse returns the mode corresponding to the name.
func Parse(name string) (Mode, error) {
	for i, n := range modeNames {
		if n == name {
			return Mode(i), nil
		}
	}
	return Command, errors.Wrap(ErrUnknownMode, name)
}

// Executor issues the operations that move the modem between modes.
type Executor interface {
	EnterMode(ctx context.Context, from, to Mode) error
}

// Machine is the mode state machine.
//
// The states are Command, Data, CMUX and CMUXManual. The CMUXManual sub
// requests (exit, swap, data and command) are events that either return to
// Command or remain in CMUXManual.
type Machine struct {
	fsm  *fsm.FSM
	exec Executor
	log  *zap.Logger
}

// Option is a construction option for a Machine.
type Option func(*Machine)

// WithLogger sets the logger for mode changes.
func WithLogger(l *zap.Logger) Option {
	return func(m *Machine) {
		m.log = l
	}
}

// New creates a Machine in Command mode.
func New(exec Executor, options ...Option) *Machine {
	m := &Machine{
		exec: exec,
		log:  zap.NewNop(),
	}
	for _, option := range options {
		option(m)
	}
	command := Command.String()
	manual := CMUXManual.String()
	m.fsm = fsm.NewFSM(
		command,
		fsm.Events{
			{Name: Command.String(), Src: []string{command, Data.String(), CMUX.String(), manual}, Dst: command},
			{Name: Data.String(), Src: []string{command}, Dst: Data.String()},
			{Name: CMUX.String(), Src: []string{command}, Dst: CMUX.String()},
			{Name: manual, Src: []string{command}, Dst: manual},
			{Name: CMUXManualExit.String(), Src: []string{manual}, Dst: command},
			{Name: CMUXManualSwap.String(), Src: []string{manual}, Dst: manual},
			{Name: CMUXManualData.String(), Src: []string{manual}, Dst: manual},
			{Name: CMUXManualCommand.String(), Src: []string{manual}, Dst: manual},
		},
		fsm.Callbacks{
			"before_event": m.beforeEvent,
		},
	)
	return m
}

func (m *Machine) beforeEvent(ctx context.Context, e *fsm.Event) {
	from, err := Parse(e.Src)
	if err != nil {
		e.Cancel(err)
		return
	}
	to, err := Parse(e.Event)
	if err != nil {
		e.Cancel(err)
		return
	}
	if err := m.exec.EnterMode(ctx, from, to); err != nil {
		m.log.Warn("mode change failed",
			zap.Stringer("from", from),
			zap.Stringer("to", to),
			zap.Error(err))
		e.Cancel(err)
	}
}

// Mode returns the current mode.
func (m *Machine) Mode() Mode {
	md, _ := Parse(m.fsm.Current())
	return md
}

// Can returns true if the target mode can be requested from the current mode.
func (m *Machine) Can(target Mode) bool {
	return m.fsm.Can(target.String())
}

// Request moves the modem to the target mode.
//
// Requesting the current mode reissues the underlying operation. If the
// operation fails the mode is unchanged and the failure is returned.
func (m *Machine) Request(ctx context.Context, target Mode) error {
	from := m.Mode()
	err := m.fsm.Event(ctx, target.String())
	if err == nil {
		m.log.Info("mode changed",
			zap.Stringer("from", from),
			zap.Stringer("to", m.Mode()))
		return nil
	}
	var nte fsm.NoTransitionError
	if errors.As(err, &nte) && nte.Err == nil {
		return nil
	}
	var ce fsm.CanceledError
	if errors.As(err, &ce) && ce.Err != nil {
		return ce.Err
	}
	var ie fsm.InvalidEventError
	if errors.As(err, &ie) {
		return errors.Wrapf(ErrInvalidTransition, "%s to %s", from, target)
	}
	var ue fsm.UnknownEventError
	if errors.As(err, &ue) {
		return errors.Wrapf(ErrInvalidTransition, "%s to %s", from, target)
	}
	return err
}

// Reset forces the tracked mode back to Command, as after a modem reset.
func (m *Machine) Reset() {
	m.fsm.SetState(Command.String())
}

var (
	// ErrInvalidTransition indicates the target mode cannot be reached from
	// the current mode.
	ErrInvalidTransition = errors.New("invalid mode transition")

	// ErrUnknownMode indicates the mode name is not recognised.
	ErrUnknownMode = errors.New("unknown mode")
)
