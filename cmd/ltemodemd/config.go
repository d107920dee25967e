// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package main

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/warthog618/ltemodem/lifecycle"
	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
type Config struct {
	Serial    SerialConfig    `yaml:"serial"`
	Modem     ModemConfig     `yaml:"modem"`
	Power     PowerConfig     `yaml:"power"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Log       LogConfig       `yaml:"log"`
}

// SerialConfig is the configuration of the serial link to the modem.
type SerialConfig struct {
	Port    string   `yaml:"port"`
	Baud    int      `yaml:"baud"`
	Timeout Duration `yaml:"timeout"`
}

// ModemConfig describes the modem and its data session.
type ModemConfig struct {
	Variant      string `yaml:"variant"`
	ContextID    int    `yaml:"context_id"`
	ProtocolType string `yaml:"protocol_type"`
	APN          string `yaml:"apn"`
	DataMode     string `yaml:"data_mode"`
}

// PowerConfig selects how the modem is power cycled.
type PowerConfig struct {
	// Method is one of "none", "gpio" or "at".
	Method string   `yaml:"method"`
	Pin    int      `yaml:"pin"`
	OffPin int      `yaml:"off_pin"`
	Pulse  Duration `yaml:"pulse"`
	Boot   Duration `yaml:"boot"`
}

// LifecycleConfig contains the lifecycle intervals and thresholds.
type LifecycleConfig struct {
	Settle            Duration `yaml:"settle"`
	SIMRetry          Duration `yaml:"sim_retry"`
	InfoRetry         Duration `yaml:"info_retry"`
	RegistrationPoll  Duration `yaml:"registration_poll"`
	IPTimeout         Duration `yaml:"ip_timeout"`
	MonitorPeriod     Duration `yaml:"monitor_period"`
	PINThreshold      int      `yaml:"pin_threshold"`
	TerminalThreshold int      `yaml:"terminal_threshold"`
	NetThreshold      int      `yaml:"net_threshold"`
	StatusPeriod      Duration `yaml:"status_period"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	Trace       bool   `yaml:"trace"`
}

// Duration wraps time.Duration for YAML unmarshaling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "line %d", value.Line)
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DefaultConfig returns the configuration used for anything not set in the
// config file or by flags.
func DefaultConfig() *Config {
	lc := lifecycle.DefaultConfig()
	return &Config{
		Serial: SerialConfig{
			Port:    "/dev/ttyUSB2",
			Baud:    115200,
			Timeout: Duration(5 * time.Second),
		},
		Modem: ModemConfig{
			Variant:      "generic",
			ContextID:    1,
			ProtocolType: "IP",
			DataMode:     "cmux",
		},
		Power: PowerConfig{
			Method: "none",
			OffPin: -1,
			Pulse:  Duration(1500 * time.Millisecond),
			Boot:   Duration(2 * time.Second),
		},
		Lifecycle: LifecycleConfig{
			Settle:            Duration(lc.Settle),
			SIMRetry:          Duration(lc.SIMRetry),
			InfoRetry:         Duration(lc.InfoRetry),
			RegistrationPoll:  Duration(lc.RegistrationPoll),
			IPTimeout:         Duration(lc.IPTimeout),
			MonitorPeriod:     Duration(lc.MonitorPeriod),
			PINThreshold:      lc.PINThreshold,
			TerminalThreshold: lc.TerminalThreshold,
			NetThreshold:      lc.NetThreshold,
			StatusPeriod:      Duration(time.Minute),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads the config file over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return cfg, nil
}

// toLifecycle converts the config to the lifecycle form.
func (c LifecycleConfig) toLifecycle() lifecycle.Config {
	return lifecycle.Config{
		Settle:            c.Settle.Duration(),
		SIMRetry:          c.SIMRetry.Duration(),
		InfoRetry:         c.InfoRetry.Duration(),
		RegistrationPoll:  c.RegistrationPoll.Duration(),
		IPTimeout:         c.IPTimeout.Duration(),
		MonitorPeriod:     c.MonitorPeriod.Duration(),
		PINThreshold:      c.PINThreshold,
		TerminalThreshold: c.TerminalThreshold,
		NetThreshold:      c.NetThreshold,
	}
}
