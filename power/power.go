// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

//go:generate mockgen -source=power.go -destination=mock_power.go -package=power

// Package power provides control of the modem power supply.
package power

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/stianeikeland/go-rpio/v4"
	"go.uber.org/zap"
)

// Controller switches the modem on and off.
type Controller interface {
	PowerOn(ctx context.Context) error
	PowerOff(ctx context.Context) error
}

// Nop is a Controller for modems without power control.
type Nop struct{}

// PowerOn does nothing.
func (Nop) PowerOn(context.Context) error {
	return nil
}

// PowerOff does nothing.
func (Nop) PowerOff(context.Context) error {
	return nil
}

// pin is the subset of rpio.Pin used to drive the power key.
type pin interface {
	Output()
	High()
	Low()
}

// GPIO drives the modem power key from GPIO pins.
//
// The power key is active low.
type GPIO struct {
	on    pin
	off   pin
	pulse time.Duration
	boot  time.Duration
	log   *zap.Logger
}

// GPIOOption modifies a GPIO created by NewGPIO.
type GPIOOption func(*gpioConfig)

type gpioConfig struct {
	off   int
	pulse time.Duration
	boot  time.Duration
	log   *zap.Logger
}

// WithOffPin sets a separate pin for powering off.
//
// By default the power on pin is pulsed for both.
func WithOffPin(p int) GPIOOption {
	return func(c *gpioConfig) {
		c.off = p
	}
}

// WithPulse sets the time the power key is held low.
//
// The default is 1.5s.
func WithPulse(d time.Duration) GPIOOption {
	return func(c *gpioConfig) {
		c.pulse = d
	}
}

// WithBootDelay sets the time waited after power on for the modem to boot.
//
// The default is 2s.
func WithBootDelay(d time.Duration) GPIOOption {
	return func(c *gpioConfig) {
		c.boot = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) GPIOOption {
	return func(c *gpioConfig) {
		c.log = l
	}
}

// NewGPIO opens the GPIO memory range and configures the power key pin, a
// BCM pin number, as an output.
func NewGPIO(onPin int, options ...GPIOOption) (*GPIO, error) {
	cfg := gpioConfig{
		off:   -1,
		pulse: 1500 * time.Millisecond,
		boot:  2 * time.Second,
		log:   zap.NewNop(),
	}
	for _, option := range options {
		option(&cfg)
	}
	if err := rpio.Open(); err != nil {
		return nil, errors.Wrap(err, "gpio")
	}
	on := rpio.Pin(onPin)
	off := on
	if cfg.off >= 0 {
		off = rpio.Pin(cfg.off)
	}
	return newGPIO(on, off, cfg), nil
}

func newGPIO(on, off pin, cfg gpioConfig) *GPIO {
	g := &GPIO{
		on:    on,
		off:   off,
		pulse: cfg.pulse,
		boot:  cfg.boot,
		log:   cfg.log,
	}
	for _, p := range []pin{on, off} {
		p.Output()
		p.High()
	}
	return g
}

// Close releases the GPIO memory range.
func (g *GPIO) Close() error {
	return rpio.Close()
}

// PowerOn pulses the power key, then waits for the modem to boot.
func (g *GPIO) PowerOn(ctx context.Context) error {
	g.log.Info("power on")
	if err := g.press(ctx, g.on); err != nil {
		return err
	}
	return sleep(ctx, g.boot)
}

// PowerOff pulses the power key.
func (g *GPIO) PowerOff(ctx context.Context) error {
	g.log.Info("power off")
	return g.press(ctx, g.off)
}

func (g *GPIO) press(ctx context.Context, p pin) error {
	p.Low()
	err := sleep(ctx, g.pulse)
	p.High()
	return err
}

// Resetter restarts the modem.
type Resetter interface {
	SoftReset(ctx context.Context) error
}

// SoftReset power cycles the modem with an AT reset command, for modems
// without a controllable power key.
type SoftReset struct {
	r    Resetter
	boot time.Duration
}

// NewSoftReset creates a SoftReset that waits boot after the reset.
func NewSoftReset(r Resetter, boot time.Duration) *SoftReset {
	return &SoftReset{r: r, boot: boot}
}

// PowerOff issues the reset command.
func (s *SoftReset) PowerOff(ctx context.Context) error {
	return s.r.SoftReset(ctx)
}

// PowerOn waits for the modem to restart.
func (s *SoftReset) PowerOn(ctx context.Context) error {
	return sleep(ctx, s.boot)
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
