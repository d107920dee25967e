// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// modeminfo collects and displays information related to the modem and its
// current configuration.
//
// This serves as an example of how interact with a modem, as well as
// providing information which may be useful for debugging.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/warthog618/ltemodem/at"
	"github.com/warthog618/ltemodem/catalog"
	"github.com/warthog618/ltemodem/dce"
	"github.com/warthog618/ltemodem/serial"
	"github.com/warthog618/ltemodem/trace"
	"go.uber.org/zap"
)

var version = "undefined"

func main() {
	dev := flag.String("d", "/dev/ttyUSB2", "path to modem device")
	baud := flag.Int("b", 115200, "baud rate")
	variant := flag.String("m", "generic", "modem variant")
	timeout := flag.Duration("t", 5*time.Second, "command timeout period")
	verbose := flag.Bool("v", false, "log modem interactions")
	vsn := flag.Bool("version", false, "report version and exit")
	flag.Parse()
	if *vsn {
		fmt.Printf("%s %s\n", os.Args[0], version)
		os.Exit(0)
	}
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
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	a := at.New(mio, at.WithTimeout(*timeout))
	if err = a.Init(ctx); err != nil {
		log.Fatal("init failed", zap.Error(err))
	}
	d := dce.New(a, dce.WithVariant(v), dce.WithLogger(log))
	queries := []struct {
		name string
		get  func(context.Context) (interface{}, error)
	}{
		{"model", func(ctx context.Context) (interface{}, error) { return d.ModuleName(ctx) }},
		{"version", func(ctx context.Context) (interface{}, error) { return d.ModuleVersion(ctx) }},
		{"imei", func(ctx context.Context) (interface{}, error) { return d.IMEI(ctx) }},
		{"imsi", func(ctx context.Context) (interface{}, error) { return d.IMSI(ctx) }},
		{"sim ready", func(ctx context.Context) (interface{}, error) { return d.ReadPIN(ctx) }},
		{"signal", func(ctx context.Context) (interface{}, error) { return d.SignalQuality(ctx) }},
		{"battery", func(ctx context.Context) (interface{}, error) { return d.BatteryStatus(ctx) }},
		{"operator", func(ctx context.Context) (interface{}, error) { return d.OperatorName(ctx) }},
		{"registration", func(ctx context.Context) (interface{}, error) { return d.RegistrationState(ctx) }},
		{"attached", func(ctx context.Context) (interface{}, error) { return d.NetworkAttachment(ctx) }},
		{"radio", func(ctx context.Context) (interface{}, error) { return d.RadioState(ctx) }},
		{"system mode", func(ctx context.Context) (interface{}, error) { return d.SystemMode(ctx) }},
		{"apn", func(ctx context.Context) (interface{}, error) {
			apn, ip, err := d.APNIP(ctx)
			return apn + " " + ip, err
		}},
	}
	for _, q := range queries {
		qctx, qcancel := context.WithTimeout(context.Background(), *timeout)
		i, err := q.get(qctx)
		qcancel()
		if err != nil {
			fmt.Printf("%-12s %s\n", q.name, err)
			continue
		}
		fmt.Printf("%-12s %+v\n", q.name, i)
	}
}
