// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// sendsms sends an SMS using the modem.
//
// This provides an example of using the SendSMS command, as well as a test
// that the library works with the modem.
package main

import (
	"context"
	"flag"
	"io"
	"time"

	"github.com/warthog618/ltemodem/at"
	"github.com/warthog618/ltemodem/catalog"
	"github.com/warthog618/ltemodem/dce"
	"github.com/warthog618/ltemodem/serial"
	"github.com/warthog618/ltemodem/trace"
	"go.uber.org/zap"
)

func main() {
	dev := flag.String("d", "/dev/ttyUSB2", "path to modem device")
	baud := flag.Int("b", 115200, "baud rate")
	variant := flag.String("m", "generic", "modem variant")
	num := flag.String("n", "+12345", "number to send to, in international format")
	msg := flag.String("msg", "Zoot Zoot", "the message to send")
	pdu := flag.Bool("p", false, "send in PDU mode")
	timeout := flag.Duration("t", 2*time.Minute, "send timeout period")
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
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	a := at.New(mio)
	if err = a.Init(ctx); err != nil {
		log.Fatal("init failed", zap.Error(err))
	}
	d := dce.New(a, dce.WithVariant(v), dce.WithLogger(log))
	if *pdu {
		mrs, err := d.SendSMSPDU(ctx, *num, *msg)
		if err != nil {
			log.Fatal("send failed", zap.Error(err))
		}
		log.Info("sent", zap.Strings("mr", mrs))
		return
	}
	if err = d.SetSMSTextMode(ctx, true); err != nil {
		log.Fatal("text mode failed", zap.Error(err))
	}
	if err = d.SetSMSCharacterSet(ctx); err != nil {
		log.Fatal("character set failed", zap.Error(err))
	}
	mr, err := d.SendSMS(ctx, *num, *msg)
	if err != nil {
		log.Fatal("send failed", zap.Error(err))
	}
	log.Info("sent", zap.String("mr", mr))
}
