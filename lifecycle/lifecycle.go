// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// Package lifecycle provides the controller that brings the modem from power
// on to an attached data session, and keeps it there.
//
// The controller checks the SIM, collects the module information, waits for
// network registration, fetches a location fix and then requests the data
// mode. Once attached it monitors the SIM and registration, and resets the
// modem if either is lost.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/warthog618/ltemodem/info"
	"github.com/warthog618/ltemodem/mode"
	"github.com/warthog618/ltemodem/power"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Modem is the subset of the DCE operations used by the controller.
type Modem interface {
	ReadPIN(ctx context.Context) (bool, error)
	ModuleVersion(ctx context.Context) (string, error)
	IMEI(ctx context.Context) (string, error)
	IMSI(ctx context.Context) (string, error)
	RegistrationState(ctx context.Context) (info.Registration, error)
	Location(ctx context.Context) (info.Location, error)
	Mode() mode.Mode
	RequestMode(ctx context.Context, target mode.Mode) error
	ResetMode()
}

// Config contains the intervals and thresholds of the lifecycle.
type Config struct {
	// Settle is the delay before each SIM check.
	Settle time.Duration

	// SIMRetry is the additional delay after a failed SIM check.
	SIMRetry time.Duration

	// InfoRetry is the delay between module info requests.
	InfoRetry time.Duration

	// RegistrationPoll is the period of the registration poll.
	RegistrationPoll time.Duration

	// IPTimeout bounds the data mode request and the wait for an IP address.
	IPTimeout time.Duration

	// MonitorPeriod is the period of the steady state monitor.
	MonitorPeriod time.Duration

	// PINThreshold is the number of consecutive SIM failures tolerated.
	PINThreshold int

	// TerminalThreshold is the number of SIM escalations after which the
	// modem is considered absent.
	TerminalThreshold int

	// NetThreshold is the number of consecutive registration failures
	// tolerated by the monitor.
	NetThreshold int
}

// DefaultConfig returns the default lifecycle configuration.
func DefaultConfig() Config {
	return Config{
		Settle:            2 * time.Second,
		SIMRetry:          3 * time.Second,
		InfoRetry:         time.Second,
		RegistrationPoll:  3 * time.Second,
		IPTimeout:         30 * time.Second,
		MonitorPeriod:     5 * time.Second,
		PINThreshold:      3,
		TerminalThreshold: 10,
		NetThreshold:      3,
	}
}

// Counters are the retry counters of the lifecycle.
type Counters struct {
	// PIN counts consecutive SIM check failures.
	PIN int

	// Terminal counts SIM escalations. It is only cleared by a successful
	// SIM check.
	Terminal int

	// Net counts consecutive registration failures in the monitor.
	Net int
}

// Status is a snapshot of the lifecycle.
type Status struct {
	State    State
	Firmware string
	IMEI     string
	IMSI     string
	Location info.Location
	Counters Counters
}

// Controller drives the modem through the connection lifecycle.
type Controller struct {
	modem   Modem
	power   power.Controller
	sig     *Signal
	target  mode.Mode
	cfg     Config
	log     *zap.Logger
	running *atomic.Bool

	// covers status
	mu     sync.Mutex
	status Status
}

// Option modifies a Controller created by New.
type Option func(*Controller)

// WithConfig sets the intervals and thresholds.
func WithConfig(cfg Config) Option {
	return func(c *Controller) {
		c.cfg = cfg
	}
}

// WithPower sets the power controller used to reset the modem.
//
// The default is power.Nop.
func WithPower(p power.Controller) Option {
	return func(c *Controller) {
		c.power = p
	}
}

// WithSignal sets the latch set by the network stack once the data session
// has an IP address.
//
// If not set the data session is considered up once the modem has entered
// the data mode.
func WithSignal(s *Signal) Option {
	return func(c *Controller) {
		c.sig = s
	}
}

// WithDataMode sets the mode requested to attach.
//
// The default is mode.CMUX.
func WithDataMode(m mode.Mode) Option {
	return func(c *Controller) {
		c.target = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

// New creates a Controller for the modem.
func New(m Modem, options ...Option) *Controller {
	c := &Controller{
		modem:   m,
		power:   power.Nop{},
		target:  mode.CMUX,
		cfg:     DefaultConfig(),
		log:     zap.NewNop(),
		running: atomic.NewBool(false),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Status returns a snapshot of the lifecycle.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Running returns true while Run is active.
func (c *Controller) Running() bool {
	return c.running.Load()
}

// Run resets the modem and drives it through the lifecycle until the context
// is done or the modem is found to be absent.
//
// Returns ErrNoModem once the SIM check has escalated TerminalThreshold
// times. The controller is then permanently faulted.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer c.running.Store(false)
	if c.Status().State == Fault {
		return ErrNoModem
	}
	c.reset(ctx)
	for {
		err := c.connect(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrNoModem) {
			c.log.Error("modem not present, stopping", zap.Error(err))
			return err
		}
		c.log.Warn("resetting modem", zap.Error(err))
		c.reset(ctx)
	}
}

// connect runs the lifecycle from the SIM check through to the monitor.
//
// It only returns on an escalation or when the context is done.
func (c *Controller) connect(ctx context.Context) error {
	if err := c.checkSIM(ctx); err != nil {
		return err
	}
	if err := c.fillInfo(ctx); err != nil {
		return err
	}
	if err := c.register(ctx); err != nil {
		return err
	}
	if err := c.attach(ctx); err != nil {
		return err
	}
	return c.monitor(ctx)
}

// reset returns the modem to command mode, power cycles it and clears the
// cached state.
func (c *Controller) reset(ctx context.Context) {
	c.log.Info("reset")
	if m := c.modem.Mode(); m != mode.Command {
		if err := c.modem.RequestMode(ctx, mode.Command); err != nil {
			c.log.Warn("command mode failed", zap.Stringer("mode", m), zap.Error(err))
		}
	}
	if err := c.power.PowerOff(ctx); err != nil {
		c.log.Warn("power off failed", zap.Error(err))
	}
	if err := c.power.PowerOn(ctx); err != nil {
		c.log.Warn("power on failed", zap.Error(err))
	}
	c.modem.ResetMode()
	if c.sig != nil {
		c.sig.Clear()
	}
	c.apply(EvReset)
	c.mu.Lock()
	c.status.Firmware = ""
	c.status.IMEI = ""
	c.status.IMSI = ""
	c.status.Location = info.Location{}
	c.status.Counters.PIN = 0
	c.status.Counters.Net = 0
	c.mu.Unlock()
}

// apply applies the event to the current state.
func (c *Controller) apply(e Event) State {
	c.mu.Lock()
	from := c.status.State
	to := Next(from, e)
	c.status.State = to
	c.mu.Unlock()
	if to != from {
		c.log.Info("state",
			zap.Stringer("event", e),
			zap.Stringer("from", from),
			zap.Stringer("to", to))
	}
	return to
}

// pinReady returns true if the SIM is present and unlocked.
func (c *Controller) pinReady(ctx context.Context) bool {
	ready, err := c.modem.ReadPIN(ctx)
	if err != nil {
		c.log.Debug("read pin failed", zap.Error(err))
		return false
	}
	return ready
}

// countPIN increments the PIN counter, returning true if the threshold is
// breached.
func (c *Controller) countPIN() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.Counters.PIN++
	n := c.status.Counters.PIN
	if n > c.cfg.PINThreshold {
		c.status.Counters.PIN = 0
		return n, true
	}
	return n, false
}

func (c *Controller) checkSIM(ctx context.Context) error {
	for {
		if err := sleep(ctx, c.cfg.Settle); err != nil {
			return err
		}
		if c.pinReady(ctx) {
			c.mu.Lock()
			c.status.Counters.PIN = 0
			c.status.Counters.Terminal = 0
			c.mu.Unlock()
			c.apply(EvSIMReady)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, breached := c.countPIN()
		if breached {
			c.mu.Lock()
			c.status.Counters.Terminal++
			terminal := c.status.Counters.Terminal
			c.mu.Unlock()
			if terminal >= c.cfg.TerminalThreshold {
				c.apply(EvNoModem)
				return ErrNoModem
			}
			c.apply(EvSIMAbsent)
			return errors.Wrapf(ErrSIMAbsent, "terminal count %d", terminal)
		}
		c.apply(EvSIMFail)
		c.log.Info("sim not ready", zap.Int("count", n))
		if err := sleep(ctx, c.cfg.SIMRetry); err != nil {
			return err
		}
	}
}

// fillInfo collects the firmware version, IMEI and IMSI, one request per
// pass.
func (c *Controller) fillInfo(ctx context.Context) error {
	for {
		if c.fillNext(ctx) {
			return nil
		}
		if err := sleep(ctx, c.cfg.InfoRetry); err != nil {
			return err
		}
	}
}

// fillNext requests the first missing item of module info, returning true
// once all are present.
func (c *Controller) fillNext(ctx context.Context) bool {
	st := c.Status()
	var field *string
	var get func(context.Context) (string, error)
	switch {
	case st.Firmware == "":
		field, get = &c.status.Firmware, c.modem.ModuleVersion
	case st.IMEI == "":
		field, get = &c.status.IMEI, c.modem.IMEI
	case st.IMSI == "":
		field, get = &c.status.IMSI, c.modem.IMSI
	default:
		return true
	}
	v, err := get(ctx)
	if err != nil {
		c.log.Debug("module info failed", zap.Error(err))
		return false
	}
	c.mu.Lock()
	*field = v
	c.mu.Unlock()
	return false
}

// register polls the registration state until the modem is registered.
func (c *Controller) register(ctx context.Context) error {
	for {
		reg, err := c.modem.RegistrationState(ctx)
		if err == nil && reg.State == 1 {
			c.apply(EvRegistered)
			return nil
		}
		c.apply(EvNotRegistered)
		if err != nil {
			c.log.Debug("registration failed", zap.Error(err))
		} else {
			c.log.Info("not registered", zap.Int("state", reg.State))
		}
		if err := sleep(ctx, c.cfg.RegistrationPoll); err != nil {
			return err
		}
	}
}

// attach fetches the location, if not already known, and requests the data
// mode.
func (c *Controller) attach(ctx context.Context) error {
	if c.Status().Location.Latitude == "" {
		loc, err := c.modem.Location(ctx)
		if err != nil {
			c.log.Info("location failed", zap.Error(err))
		} else if loc.Latitude != "" && loc.Longitude != "" {
			c.mu.Lock()
			c.status.Location = loc
			c.mu.Unlock()
			c.log.Info("location",
				zap.String("latitude", loc.Latitude),
				zap.String("longitude", loc.Longitude))
		}
	}
	c.apply(EvAttach)
	actx, cancel := context.WithTimeout(ctx, c.cfg.IPTimeout)
	defer cancel()
	err := c.modem.RequestMode(actx, c.target)
	if err == nil && c.sig != nil {
		err = c.sig.Wait(actx, c.cfg.IPTimeout)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.apply(EvIPTimeout)
		return attachError{err}
	}
	c.apply(EvGotIP)
	return nil
}

// monitor periodically checks the SIM and registration, returning if either
// fails more often than its threshold.
func (c *Controller) monitor(ctx context.Context) error {
	for {
		if err := sleep(ctx, c.cfg.MonitorPeriod); err != nil {
			return err
		}
		if !c.pinReady(ctx) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			n, breached := c.countPIN()
			if breached {
				return ErrSIMLost
			}
			c.log.Info("sim not ready", zap.Int("count", n))
			continue
		}
		c.mu.Lock()
		c.status.Counters.PIN = 0
		c.mu.Unlock()
		reg, err := c.modem.RegistrationState(ctx)
		if err == nil && reg.State == 1 {
			c.mu.Lock()
			c.status.Counters.Net = 0
			c.mu.Unlock()
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.mu.Lock()
		c.status.Counters.Net++
		n := c.status.Counters.Net
		breached := n > c.cfg.NetThreshold
		if breached {
			c.status.Counters.Net = 0
		}
		c.mu.Unlock()
		if breached {
			return ErrNetLost
		}
		c.log.Warn("network lost", zap.Int("count", n), zap.Error(err))
	}
}

// attachError carries the cause of an attach failure, and matches ErrAttach.
type attachError struct {
	err error
}

func (e attachError) Error() string {
	return ErrAttach.Error() + ": " + e.err.Error()
}

func (e attachError) Is(target error) bool {
	return target == ErrAttach
}

func (e attachError) Unwrap() error {
	return e.err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var (
	// ErrNoModem indicates the SIM check escalated too often, so no working
	// modem is present.
	ErrNoModem = errors.New("no modem")

	// ErrRunning indicates Run was called while the controller was already
	// running.
	ErrRunning = errors.New("already running")

	// ErrSIMAbsent indicates the SIM check failed more often than the
	// threshold.
	ErrSIMAbsent = errors.New("sim absent")

	// ErrSIMLost indicates the SIM was lost while attached.
	ErrSIMLost = errors.New("sim lost")

	// ErrNetLost indicates the registration was lost while attached.
	ErrNetLost = errors.New("network lost")

	// ErrAttach indicates the data session could not be established.
	ErrAttach = errors.New("attach failed")

	// ErrSignalTimeout indicates the IP signal was not set in time.
	ErrSignalTimeout = errors.New("signal timeout")
)
