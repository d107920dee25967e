// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// netwatch watches the network registration of the modem, and polls the
// signal quality, dumping both to stdout.
//
// This provides an example of using indications, as well as a test
// that the library works with the modem.
//
// The modem device provided must support notifications, or no registration
// changes will be seen (the notification port is typically USB2, hence the
// default).
package main

import (
	"context"
	"flag"
	"io"
	"time"

	"github.com/warthog618/ltemodem/at"
	"github.com/warthog618/ltemodem/catalog"
	"github.com/warthog618/ltemodem/dce"
	"github.com/warthog618/ltemodem/info"
	"github.com/warthog618/ltemodem/serial"
	"github.com/warthog618/ltemodem/trace"
	"go.uber.org/zap"
)

func main() {
	dev := flag.String("d", "/dev/ttyUSB2", "path to modem device")
	baud := flag.Int("b", 115200, "baud rate")
	variant := flag.String("m", "generic", "modem variant")
	period := flag.Duration("p", 10*time.Minute, "period to watch")
	poll := flag.Duration("i", time.Minute, "signal quality poll interval")
	timeout := flag.Duration("t", 5*time.Second, "command timeout period")
	verbose := flag.Bool("v", false, "log modem interactions")
	flag.Parse()

	log, _ := zap.NewDevelopment()
	defer log.Sync()
	v, err := catalog.ParseVariant(*variant)
	if err != nil {
		log.Fatal("bad variant", zap.Error(err))
	}
	m, err := serial.New(serial.WithPort(*dev), serial.WithBaud(*baud))
	if err != nil {
		log.Fatal("open failed", zap.Error(err))
	}
	defer m.Close()
	var mio io.ReadWriter = m
	if *verbose {
		mio = trace.New(m, trace.WithLogger(log))
	}
	a := at.New(mio, at.WithTimeout(*timeout))
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	err = a.Init(ctx)
	cancel()
	if err != nil {
		log.Fatal("init failed", zap.Error(err))
	}
	d := dce.New(a, dce.WithVariant(v), dce.WithLogger(log))
	ctx, cancel = context.WithTimeout(context.Background(), *period)
	defer cancel()
	go pollSignalQuality(ctx, d, *poll, *timeout, log)
	watchRegistration(ctx, d, *timeout, log)
}

// pollSignalQuality polls the modem to read signal quality.
// This is run in parallel to watchRegistration to demonstrate separate
// goroutines interacting with the modem.
func pollSignalQuality(ctx context.Context, d *dce.DCE, poll, timeout time.Duration, log *zap.Logger) {
	for {
		select {
		case <-time.After(poll):
			tctx, tcancel := context.WithTimeout(ctx, timeout)
			sig, err := d.SignalQuality(tctx)
			tcancel()
			if err != nil {
				log.Warn("signal quality", zap.Error(err))
				continue
			}
			log.Info("signal quality", zap.Int("rssi", sig.RSSI), zap.Int("ber", sig.BER))
		case <-ctx.Done():
			return
		}
	}
}

// watchRegistration adds an indication to the modem and prints any
// registration changes.
// It will continue to wait until the provided context is done.
func watchRegistration(ctx context.Context, d *dce.DCE, timeout time.Duration, log *zap.Logger) {
	reg := make(chan []string, 4)
	err := d.AddIndication("+CEREG:", func(info []string) {
		reg <- info
	})
	if err != nil {
		log.Error("add indication", zap.Error(err))
		return
	}
	defer d.CancelIndication("+CEREG:")
	cctx, cancel := context.WithTimeout(ctx, timeout)
	// tell the modem to report registration changes.
	_, _, err = d.Execute(cctx, at.Command{
		Text:    "AT+CEREG=2\r\n",
		Pass:    []string{"OK"},
		Fail:    []string{"ERROR"},
		Timeout: timeout,
	})
	cancel()
	if err != nil {
		log.Error("enable reports", zap.Error(err))
		return
	}
	cctx, cancel = context.WithTimeout(ctx, timeout)
	if r, err := d.RegistrationState(cctx); err == nil {
		log.Info("registration", zap.Int("state", r.State))
	}
	cancel()
	for {
		select {
		case <-ctx.Done():
			log.Info("exiting...")
			return
		case <-d.Closed():
			log.Fatal("modem closed, exiting...")
		case i := <-reg:
			if len(i) == 0 {
				continue
			}
			state, err := info.Int(i[0], "+CEREG")
			if err != nil {
				log.Warn("malformed report", zap.String("urc", i[0]))
				continue
			}
			log.Info("registration", zap.Int("state", state))
		}
	}
}
