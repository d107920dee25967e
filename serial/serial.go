// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// Package serial provides the serial port connection to the modem.
package serial

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/tarm/serial"
	enum "go.bug.st/serial"
)

// Config is the configuration of the serial port.
type Config struct {
	port        string
	baud        int
	readTimeout time.Duration
}

// Option modifies the configuration of the serial port.
type Option func(*Config)

// WithPort sets the device path of the serial port.
func WithPort(port string) Option {
	return func(c *Config) {
		c.port = port
	}
}

// WithBaud sets the baud rate of the serial port.
func WithBaud(baud int) Option {
	return func(c *Config) {
		c.baud = baud
	}
}

// WithReadTimeout sets the timeout for reads from the serial port.
//
// The default is zero, so reads block until data is available.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.readTimeout = d
	}
}

// New opens the serial port.
//
// The port and baud default to the platform defaults, e.g. /dev/ttyUSB0 and
// 115200 on Linux.
func New(options ...Option) (*serial.Port, error) {
	cfg := defaultConfig
	for _, option := range options {
		option(&cfg)
	}
	config := &serial.Config{
		Name:        cfg.port,
		Baud:        cfg.baud,
		ReadTimeout: cfg.readTimeout,
	}
	p, err := serial.OpenPort(config)
	if err != nil {
		return nil, errors.Wrap(err, cfg.port)
	}
	return p, nil
}

// Ports returns the serial ports available on the host, sorted by name.
func Ports() ([]string, error) {
	ports, err := enum.GetPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "list ports")
	}
	sort.Strings(ports)
	return ports, nil
}
