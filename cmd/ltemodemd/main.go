// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// ltemodemd keeps a cellular modem attached to the network.
//
// The modem is reset and driven through SIM check, registration, location
// fix and data mode attachment, and is then monitored and reset if the
// connection is lost. The serial port is reopened, with backoff, if it
// closes.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
	"github.com/warthog618/ltemodem/at"
	"github.com/warthog618/ltemodem/catalog"
	"github.com/warthog618/ltemodem/dce"
	"github.com/warthog618/ltemodem/info"
	"github.com/warthog618/ltemodem/lifecycle"
	"github.com/warthog618/ltemodem/mode"
	"github.com/warthog618/ltemodem/power"
	"github.com/warthog618/ltemodem/serial"
	"github.com/warthog618/ltemodem/trace"
	"go.uber.org/zap"
)

var version = "undefined"

func main() {
	cfgPath := flag.String("c", "", "path to config file")
	dev := flag.String("d", "", "path to modem device")
	baud := flag.Int("b", 0, "baud rate")
	variant := flag.String("m", "", "modem variant")
	apn := flag.String("apn", "", "access point name")
	level := flag.String("log-level", "", "log level")
	verbose := flag.Bool("v", false, "log modem interactions")
	list := flag.Bool("list", false, "list serial ports and exit")
	vsn := flag.Bool("version", false, "report version and exit")
	flag.Parse()
	if *vsn {
		fmt.Printf("%s %s\n", os.Args[0], version)
		os.Exit(0)
	}
	if *list {
		ports, err := serial.Ports()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		os.Exit(0)
	}
	cfg := DefaultConfig()
	if *cfgPath != "" {
		var err error
		if cfg, err = LoadConfig(*cfgPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	// flags override the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "d":
			cfg.Serial.Port = *dev
		case "b":
			cfg.Serial.Baud = *baud
		case "m":
			cfg.Modem.Variant = *variant
		case "apn":
			cfg.Modem.APN = *apn
		case "log-level":
			cfg.Log.Level = *level
		case "v":
			cfg.Log.Trace = *verbose
		}
	})
	log, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := run(ctx, cfg, log); err != nil {
		log.Error("exiting", zap.Error(err))
		os.Exit(1)
	}
	log.Info("exiting")
}

func newLogger(cfg LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	lvl, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = lvl
	return zc.Build()
}

// run opens the modem and runs the lifecycle, reopening the modem if it
// closes, until the context is done or the modem is found to be absent.
func run(ctx context.Context, cfg *Config, log *zap.Logger) error {
	connect := time.NewTimer(0)
	defer connect.Stop()
	b := backoff.Backoff{
		Min: time.Second,
		Max: 5 * time.Minute,
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-connect.C:
			err := session(ctx, cfg, log, b.Reset)
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, lifecycle.ErrNoModem) {
				return err
			}
			d := b.Duration()
			log.Warn("modem disconnected", zap.Error(err), zap.Duration("retry", d))
			connect.Reset(d)
		}
	}
}

// session runs the lifecycle on one opening of the serial port.
//
// connected is called once the modem responds to AT commands.
func session(ctx context.Context, cfg *Config, log *zap.Logger, connected func()) error {
	v, err := catalog.ParseVariant(cfg.Modem.Variant)
	if err != nil {
		return err
	}
	dataMode, err := mode.Parse(cfg.Modem.DataMode)
	if err != nil {
		return err
	}
	m, err := serial.New(serial.WithPort(cfg.Serial.Port), serial.WithBaud(cfg.Serial.Baud))
	if err != nil {
		return err
	}
	defer m.Close()
	var mio io.ReadWriter = m
	if cfg.Log.Trace {
		mio = trace.New(m, trace.WithLogger(log))
	}
	a := at.New(mio,
		at.WithTimeout(cfg.Serial.Timeout.Duration()),
		at.WithIndication("+CEREG:", func(info []string) {
			logRegistration(log, info)
		}))
	ictx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = a.Init(ictx)
	cancel()
	if err != nil {
		return err
	}
	connected()
	log.Info("modem connected", zap.String("port", cfg.Serial.Port), zap.Stringer("variant", v))

	d := dce.New(a,
		dce.WithVariant(v),
		dce.WithPDPContext(dce.PDPContext{
			ContextID:    cfg.Modem.ContextID,
			ProtocolType: cfg.Modem.ProtocolType,
			APN:          cfg.Modem.APN,
		}),
		dce.WithLogger(log.Named("dce")))
	pc, err := newPower(cfg.Power, d, log)
	if err != nil {
		return err
	}
	if c, ok := pc.(io.Closer); ok {
		defer c.Close()
	}
	lc := lifecycle.New(d,
		lifecycle.WithConfig(cfg.Lifecycle.toLifecycle()),
		lifecycle.WithPower(pc),
		lifecycle.WithDataMode(dataMode),
		lifecycle.WithLogger(log.Named("lifecycle")))

	lctx, lcancel := context.WithCancel(ctx)
	defer lcancel()
	done := make(chan error, 1)
	go func() {
		done <- lc.Run(lctx)
	}()
	go reportStatus(lctx, lc, cfg.Lifecycle.StatusPeriod.Duration(), log)
	select {
	case err = <-done:
		return err
	case <-a.Closed():
		lcancel()
		<-done
		return at.ErrClosed
	}
}

func newPower(cfg PowerConfig, d *dce.DCE, log *zap.Logger) (power.Controller, error) {
	switch cfg.Method {
	case "", "none":
		return power.Nop{}, nil
	case "gpio":
		return power.NewGPIO(cfg.Pin,
			power.WithOffPin(cfg.OffPin),
			power.WithPulse(cfg.Pulse.Duration()),
			power.WithBootDelay(cfg.Boot.Duration()),
			power.WithLogger(log.Named("power")))
	case "at":
		return power.NewSoftReset(d, cfg.Boot.Duration()), nil
	}
	return nil, errors.Errorf("unknown power method '%s'", cfg.Method)
}

func logRegistration(log *zap.Logger, lines []string) {
	if len(lines) == 0 {
		return
	}
	// unsolicited reports carry only the state
	state, err := info.Int(lines[0], "+CEREG")
	if reg, rerr := info.ParseRegistration(lines[0], "+CEREG"); rerr == nil {
		state, err = reg.State, nil
	}
	if err != nil {
		log.Info("registration", zap.String("urc", lines[0]))
		return
	}
	log.Info("registration", zap.Int("state", state))
}

// reportStatus periodically logs the lifecycle status.
func reportStatus(ctx context.Context, lc *lifecycle.Controller, period time.Duration, log *zap.Logger) {
	if period <= 0 {
		return
	}
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st := lc.Status()
			log.Info("status",
				zap.Stringer("state", st.State),
				zap.String("firmware", st.Firmware),
				zap.String("imei", st.IMEI),
				zap.String("imsi", st.IMSI),
				zap.String("latitude", st.Location.Latitude),
				zap.String("longitude", st.Location.Longitude),
				zap.Int("pin", st.Counters.PIN),
				zap.Int("terminal", st.Counters.Terminal),
				zap.Int("net", st.Counters.Net))
		}
	}
}
