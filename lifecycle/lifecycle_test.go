// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package lifecycle_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/warthog618/ltemodem/dce"
	"github.com/warthog618/ltemodem/info"
	"github.com/warthog618/ltemodem/lifecycle"
	"github.com/warthog618/ltemodem/mode"
	"github.com/warthog618/ltemodem/power"
	"go.uber.org/mock/gomock"
)

// fastConfig removes the delays so the lifecycle runs at full speed.
func fastConfig() lifecycle.Config {
	cfg := lifecycle.DefaultConfig()
	cfg.Settle = 0
	cfg.SIMRetry = 0
	cfg.InfoRetry = 0
	cfg.RegistrationPoll = 0
	cfg.MonitorPeriod = 0
	cfg.IPTimeout = 50 * time.Millisecond
	return cfg
}

func TestNext(t *testing.T) {
	patterns := []struct {
		name  string
		state lifecycle.State
		event lifecycle.Event
		next  lifecycle.State
	}{
		{"sim ready", lifecycle.Init, lifecycle.EvSIMReady, lifecycle.SIMOK},
		{"sim retry", lifecycle.Init, lifecycle.EvSIMFail, lifecycle.Init},
		{"sim absent", lifecycle.Init, lifecycle.EvSIMAbsent, lifecycle.SIMNo},
		{"no modem", lifecycle.Init, lifecycle.EvNoModem, lifecycle.Fault},
		{"registered", lifecycle.SIMOK, lifecycle.EvRegistered, lifecycle.NetOK},
		{"registering", lifecycle.SIMOK, lifecycle.EvNotRegistered, lifecycle.NetNo},
		{"still registering", lifecycle.NetNo, lifecycle.EvNotRegistered, lifecycle.NetNo},
		{"registered late", lifecycle.NetNo, lifecycle.EvRegistered, lifecycle.NetOK},
		{"attach", lifecycle.NetOK, lifecycle.EvAttach, lifecycle.GotIPWait},
		{"got ip", lifecycle.GotIPWait, lifecycle.EvGotIP, lifecycle.GotIPOK},
		{"ip timeout", lifecycle.GotIPWait, lifecycle.EvIPTimeout, lifecycle.GotIPTimeout},
		{"reset attached", lifecycle.GotIPOK, lifecycle.EvReset, lifecycle.Init},
		{"reset timeout", lifecycle.GotIPTimeout, lifecycle.EvReset, lifecycle.Init},
		{"reset no sim", lifecycle.SIMNo, lifecycle.EvReset, lifecycle.Init},
		{"fault is final", lifecycle.Fault, lifecycle.EvReset, lifecycle.Fault},
		{"attach unregistered", lifecycle.NetNo, lifecycle.EvAttach, lifecycle.NetNo},
		{"got ip unattached", lifecycle.SIMOK, lifecycle.EvGotIP, lifecycle.SIMOK},
		{"sim ready attached", lifecycle.GotIPOK, lifecycle.EvSIMReady, lifecycle.GotIPOK},
		{"unknown event", lifecycle.Init, lifecycle.Event(42), lifecycle.Init},
	}
	for _, p := range patterns {
		f := func(t *testing.T) {
			assert.Equal(t, p.next, lifecycle.Next(p.state, p.event))
		}
		t.Run(p.name, f)
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "checking sim", lifecycle.Init.String())
	assert.Equal(t, "got ip", lifecycle.GotIPOK.String())
	assert.Equal(t, "fault", lifecycle.Fault.String())
	assert.Equal(t, "state(42)", lifecycle.State(42).String())
	assert.Equal(t, "sim-absent", lifecycle.EvSIMAbsent.String())
	assert.Equal(t, "event(-1)", lifecycle.Event(-1).String())
}

func TestSIMEscalation(t *testing.T) {
	m := &fakeModem{pin: func(int) (bool, error) { return false, errPIN }}
	ctrl := gomock.NewController(t)
	p := power.NewMockController(ctrl)
	c := lifecycle.New(m, lifecycle.WithPower(p), lifecycle.WithConfig(fastConfig()))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var st lifecycle.Status
	gomock.InOrder(
		p.EXPECT().PowerOff(gomock.Any()).Return(nil),
		p.EXPECT().PowerOn(gomock.Any()).Return(nil),
		p.EXPECT().PowerOff(gomock.Any()).DoAndReturn(func(context.Context) error {
			st = c.Status()
			cancel()
			return nil
		}),
		p.EXPECT().PowerOn(gomock.Any()).Return(nil),
	)
	err := c.Run(ctx)
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, 4, m.calls("pin"))
	assert.Equal(t, lifecycle.SIMNo, st.State)
	assert.Equal(t, lifecycle.Counters{PIN: 0, Terminal: 1}, st.Counters)
	// reset clears the state, but not the terminal counter
	st = c.Status()
	assert.Equal(t, lifecycle.Init, st.State)
	assert.Equal(t, 1, st.Counters.Terminal)
	assert.Equal(t, 2, m.calls("reset-mode"))
	// never left command mode
	assert.Empty(t, m.requested())
}

func TestNoModem(t *testing.T) {
	m := &fakeModem{pin: func(int) (bool, error) { return false, nil }}
	ctrl := gomock.NewController(t)
	p := power.NewMockController(ctrl)
	p.EXPECT().PowerOff(gomock.Any()).Return(nil).Times(10)
	p.EXPECT().PowerOn(gomock.Any()).Return(nil).Times(10)
	c := lifecycle.New(m, lifecycle.WithPower(p), lifecycle.WithConfig(fastConfig()))
	err := c.Run(context.Background())
	assert.Equal(t, lifecycle.ErrNoModem, err)
	assert.Equal(t, 40, m.calls("pin"))
	st := c.Status()
	assert.Equal(t, lifecycle.Fault, st.State)
	assert.Equal(t, 10, st.Counters.Terminal)
	assert.False(t, c.Running())

	// permanently stopped
	err = c.Run(context.Background())
	assert.Equal(t, lifecycle.ErrNoModem, err)
	assert.Equal(t, 40, m.calls("pin"))
}

func TestSIMRecovery(t *testing.T) {
	// three failures, then ready, is below the threshold
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := &fakeModem{
		pin: func(n int) (bool, error) { return n > 3, nil },
		reg: func(int) (info.Registration, error) {
			cancel()
			return info.Registration{URC: 2, State: 2}, nil
		},
	}
	c := lifecycle.New(m, lifecycle.WithConfig(fastConfig()))
	err := c.Run(ctx)
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, 4, m.calls("pin"))
	st := c.Status()
	assert.Equal(t, lifecycle.Counters{}, st.Counters)
	assert.Equal(t, lifecycle.NetNo, st.State)
}

func TestConnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := lifecycle.NewSignal()
	var st lifecycle.Status
	var c *lifecycle.Controller
	m := &fakeModem{
		reg: func(n int) (info.Registration, error) {
			switch {
			case n == 1:
				return info.Registration{URC: 2, State: 2}, nil
			case n == 2:
				return info.Registration{}, errors.New("timeout")
			case n < 6:
				return info.Registration{URC: 2, State: 1}, nil
			}
			st = c.Status()
			cancel()
			return info.Registration{URC: 2, State: 1}, nil
		},
		mode: func(ctx context.Context, target mode.Mode) error {
			sig.Set()
			return nil
		},
	}
	c = lifecycle.New(m, lifecycle.WithConfig(fastConfig()), lifecycle.WithSignal(sig))
	err := c.Run(ctx)
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, lifecycle.GotIPOK, st.State)
	assert.Equal(t, "LE20B04SIM7600G22", st.Firmware)
	assert.Equal(t, "867584031234567", st.IMEI)
	assert.Equal(t, "460001234567890", st.IMSI)
	assert.Equal(t, info.Location{Latitude: "31.254763", Longitude: "120.468111"}, st.Location)
	assert.Equal(t, lifecycle.Counters{}, st.Counters)
	assert.Equal(t, []mode.Mode{mode.CMUX}, m.modes)
	assert.Equal(t, 1, m.calls("location"))
	// one pin check before attach, one per monitor pass
	assert.Equal(t, 4, m.calls("pin"))
}

func TestInfoRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := &fakeModem{
		imei: func(n int) (string, error) {
			if n < 3 {
				return "", errors.New("busy")
			}
			return "867584031234567", nil
		},
		reg: func(int) (info.Registration, error) {
			cancel()
			return info.Registration{}, nil
		},
	}
	c := lifecycle.New(m, lifecycle.WithConfig(fastConfig()))
	err := c.Run(ctx)
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, 1, m.calls("version"))
	assert.Equal(t, 3, m.calls("imei"))
	assert.Equal(t, 1, m.calls("imsi"))
	assert.Equal(t, lifecycle.NetNo, c.Status().State)
}

func TestAttachTimeout(t *testing.T) {
	patterns := []struct {
		name  string
		mode  func(ctx context.Context, target mode.Mode) error
		modes []mode.Mode
	}{
		{
			"no ip",
			func(context.Context, mode.Mode) error { return nil },
			// back to command before the power cycle
			[]mode.Mode{mode.Data, mode.Command},
		},
		{
			"mode rejected",
			func(_ context.Context, target mode.Mode) error {
				if target == mode.Data {
					return errors.New("rejected")
				}
				return nil
			},
			[]mode.Mode{mode.Data},
		},
	}
	for _, p := range patterns {
		f := func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			m := &fakeModem{mode: p.mode}
			ctrl := gomock.NewController(t)
			pc := power.NewMockController(ctrl)
			c := lifecycle.New(m,
				lifecycle.WithPower(pc),
				lifecycle.WithConfig(fastConfig()),
				lifecycle.WithSignal(lifecycle.NewSignal()),
				lifecycle.WithDataMode(mode.Data))
			var st lifecycle.Status
			var modes []mode.Mode
			gomock.InOrder(
				pc.EXPECT().PowerOff(gomock.Any()).Return(nil),
				pc.EXPECT().PowerOn(gomock.Any()).Return(nil),
				pc.EXPECT().PowerOff(gomock.Any()).DoAndReturn(func(context.Context) error {
					st = c.Status()
					modes = m.requested()
					cancel()
					return nil
				}),
				pc.EXPECT().PowerOn(gomock.Any()).Return(nil),
			)
			err := c.Run(ctx)
			assert.Equal(t, context.Canceled, err)
			assert.Equal(t, lifecycle.GotIPTimeout, st.State)
			assert.Equal(t, p.modes, modes)
			assert.Equal(t, mode.Command, m.Mode())
			// cached info is cleared by the reset
			st = c.Status()
			assert.Equal(t, "", st.Firmware)
			assert.Equal(t, info.Location{}, st.Location)
		}
		t.Run(p.name, f)
	}
}

func TestMonitorEscalation(t *testing.T) {
	patterns := []struct {
		name     string
		pin      func(n int) (bool, error)
		reg      func(n int) (info.Registration, error)
		pinCalls int
		regCalls int
	}{
		{
			"sim lost",
			func(n int) (bool, error) { return n < 3, nil },
			func(int) (info.Registration, error) { return info.Registration{State: 1}, nil },
			// check, monitor ok, then 4 failures
			6,
			2,
		},
		{
			"net lost",
			func(int) (bool, error) { return true, nil },
			// registration lost after the first monitor pass
			func(n int) (info.Registration, error) {
				if n <= 2 {
					return info.Registration{URC: 2, State: 1}, nil
				}
				return info.Registration{URC: 2, State: 3}, nil
			},
			6,
			6,
		},
	}
	for _, p := range patterns {
		f := func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			m := &fakeModem{pin: p.pin, reg: p.reg}
			ctrl := gomock.NewController(t)
			pc := power.NewMockController(ctrl)
			c := lifecycle.New(m, lifecycle.WithPower(pc), lifecycle.WithConfig(fastConfig()))
			var st lifecycle.Status
			var pinCalls, regCalls int
			var modes []mode.Mode
			gomock.InOrder(
				pc.EXPECT().PowerOff(gomock.Any()).Return(nil),
				pc.EXPECT().PowerOn(gomock.Any()).Return(nil),
				pc.EXPECT().PowerOff(gomock.Any()).DoAndReturn(func(context.Context) error {
					st = c.Status()
					pinCalls = m.calls("pin")
					regCalls = m.calls("reg")
					modes = m.requested()
					cancel()
					return nil
				}),
				pc.EXPECT().PowerOn(gomock.Any()).Return(nil),
			)
			err := c.Run(ctx)
			assert.Equal(t, context.Canceled, err)
			assert.Equal(t, lifecycle.GotIPOK, st.State)
			assert.Equal(t, lifecycle.Counters{}, st.Counters)
			assert.Equal(t, p.pinCalls, pinCalls)
			assert.Equal(t, p.regCalls, regCalls)
			// the multiplexer is closed before the power cycle
			assert.Equal(t, []mode.Mode{mode.CMUX, mode.Command}, modes)
			assert.Equal(t, 2, m.calls("reset-mode"))
		}
		t.Run(p.name, f)
	}
}

func TestCancelNotCounted(t *testing.T) {
	patterns := []struct {
		name  string
		pin   func(n int) bool
		reg   func(n int) (info.Registration, error)
		state lifecycle.State
	}{
		{
			"sim check",
			func(int) bool { return false },
			nil,
			lifecycle.Init,
		},
		{
			"monitor pin",
			func(n int) bool { return n == 1 },
			nil,
			lifecycle.GotIPOK,
		},
		{
			"monitor registration",
			func(int) bool { return true },
			func(n int) (info.Registration, error) {
				if n == 1 {
					return info.Registration{URC: 2, State: 1}, nil
				}
				return info.Registration{}, context.Canceled
			},
			lifecycle.GotIPOK,
		},
	}
	for _, p := range patterns {
		f := func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			m := &fakeModem{
				pin: func(n int) (bool, error) {
					if p.pin(n) {
						return true, nil
					}
					cancel()
					return false, context.Canceled
				},
			}
			if p.reg != nil {
				m.reg = func(n int) (info.Registration, error) {
					reg, err := p.reg(n)
					if err != nil {
						cancel()
					}
					return reg, err
				}
			}
			c := lifecycle.New(m, lifecycle.WithConfig(fastConfig()))
			err := c.Run(ctx)
			assert.Equal(t, context.Canceled, err)
			st := c.Status()
			assert.Equal(t, p.state, st.State)
			assert.Equal(t, lifecycle.Counters{}, st.Counters)
		}
		t.Run(p.name, f)
	}
}

func TestMonitorTransient(t *testing.T) {
	// failures below the thresholds are tolerated
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var st lifecycle.Status
	var c *lifecycle.Controller
	m := &fakeModem{
		pin: func(n int) (bool, error) {
			if n == 2 || n == 3 || n == 4 {
				return false, errPIN
			}
			return true, nil
		},
		reg: func(n int) (info.Registration, error) {
			switch {
			case n == 1:
				return info.Registration{State: 1}, nil
			case n < 5:
				return info.Registration{State: 2}, nil
			}
			st = c.Status()
			cancel()
			return info.Registration{State: 1}, nil
		},
	}
	c = lifecycle.New(m, lifecycle.WithConfig(fastConfig()))
	err := c.Run(ctx)
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, lifecycle.Counters{PIN: 0, Net: 3}, st.Counters)
	st = c.Status()
	assert.Equal(t, lifecycle.GotIPOK, st.State)
	assert.Equal(t, lifecycle.Counters{}, st.Counters)
}

func TestRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	started := make(chan struct{})
	var once sync.Once
	m := &fakeModem{
		reg: func(int) (info.Registration, error) {
			once.Do(func() { close(started) })
			return info.Registration{State: 0}, nil
		},
	}
	cfg := fastConfig()
	cfg.RegistrationPoll = time.Millisecond
	c := lifecycle.New(m, lifecycle.WithConfig(cfg))
	assert.False(t, c.Running())
	done := make(chan error)
	go func() {
		done <- c.Run(ctx)
	}()
	<-started
	assert.True(t, c.Running())
	assert.Equal(t, lifecycle.ErrRunning, c.Run(ctx))
	cancel()
	assert.Equal(t, context.Canceled, <-done)
	assert.False(t, c.Running())
}

func TestSignal(t *testing.T) {
	s := lifecycle.NewSignal()
	ctx := context.Background()
	assert.False(t, s.IsSet())
	err := s.Wait(ctx, time.Millisecond)
	assert.Equal(t, lifecycle.ErrSignalTimeout, err)

	time.AfterFunc(10*time.Millisecond, s.Set)
	err = s.Wait(ctx, time.Second)
	assert.Nil(t, err)
	assert.True(t, s.IsSet())
	// idempotent
	s.Set()
	assert.Nil(t, s.Wait(ctx, 0))

	s.Clear()
	assert.False(t, s.IsSet())
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	err = s.Wait(cctx, time.Second)
	assert.Equal(t, context.Canceled, err)
}

var (
	_ lifecycle.Modem = (*fakeModem)(nil)
	_ lifecycle.Modem = (*dce.DCE)(nil)

	errPIN = errors.New("+CME ERROR: 10")
)

// fakeModem provides scripted responses to the lifecycle, keyed by the number
// of the call, starting at 1.
//
// Unscripted operations succeed.
type fakeModem struct {
	pin  func(n int) (bool, error)
	imei func(n int) (string, error)
	reg  func(n int) (info.Registration, error)
	mode func(ctx context.Context, target mode.Mode) error

	mu      sync.Mutex
	count   map[string]int
	modes   []mode.Mode
	current mode.Mode
}

func (m *fakeModem) call(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.count == nil {
		m.count = map[string]int{}
	}
	m.count[op]++
	return m.count[op]
}

func (m *fakeModem) calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count[op]
}

func (m *fakeModem) ReadPIN(ctx context.Context) (bool, error) {
	n := m.call("pin")
	if m.pin == nil {
		return true, nil
	}
	return m.pin(n)
}

func (m *fakeModem) ModuleVersion(ctx context.Context) (string, error) {
	m.call("version")
	return "LE20B04SIM7600G22", nil
}

func (m *fakeModem) IMEI(ctx context.Context) (string, error) {
	n := m.call("imei")
	if m.imei == nil {
		return "867584031234567", nil
	}
	return m.imei(n)
}

func (m *fakeModem) IMSI(ctx context.Context) (string, error) {
	m.call("imsi")
	return "460001234567890", nil
}

func (m *fakeModem) RegistrationState(ctx context.Context) (info.Registration, error) {
	n := m.call("reg")
	if m.reg == nil {
		return info.Registration{URC: 2, State: 1}, nil
	}
	return m.reg(n)
}

func (m *fakeModem) Location(ctx context.Context) (info.Location, error) {
	m.call("location")
	return info.Location{Latitude: "31.254763", Longitude: "120.468111"}, nil
}

func (m *fakeModem) Mode() mode.Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *fakeModem) RequestMode(ctx context.Context, target mode.Mode) error {
	m.mu.Lock()
	m.modes = append(m.modes, target)
	m.mu.Unlock()
	if m.mode != nil {
		if err := m.mode(ctx, target); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.current = target
	m.mu.Unlock()
	return nil
}

// requested returns the modes requested so far.
func (m *fakeModem) requested() []mode.Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mode.Mode(nil), m.modes...)
}

func (m *fakeModem) ResetMode() {
	m.call("reset-mode")
	m.mu.Lock()
	m.current = mode.Command
	m.mu.Unlock()
}
