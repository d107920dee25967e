// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package dce

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/warthog618/ltemodem/catalog"
	"github.com/warthog618/ltemodem/mode"
	"go.uber.org/zap"
)

// Mode returns the current operating mode of the modem.
func (d *DCE) Mode() mode.Mode {
	return d.modes.Mode()
}

// RequestMode moves the modem to the target mode.
//
// The mode is only changed if the modem accepts the change. Requesting the
// current mode reissues the command for that mode.
func (d *DCE) RequestMode(ctx context.Context, target mode.Mode) error {
	return d.modes.Request(ctx, target)
}

// ResetMode returns the mode to command, without issuing any command.
//
// This is required after the modem has been power cycled.
func (d *DCE) ResetMode() {
	d.modes.Reset()
}

// executor issues the commands for mode changes on behalf of the mode
// machine.
type executor struct {
	d *DCE
}

func (e executor) EnterMode(ctx context.Context, from, to mode.Mode) error {
	d := e.d
	switch to {
	case mode.Command:
		if from == mode.CMUX || from == mode.CMUXManual {
			if err := d.muxHook(ctx, to); err != nil {
				return err
			}
		}
		_, err := d.do(ctx, catalog.OpCommandMode)
		return err
	case mode.Data:
		if err := d.setupDataMode(ctx); err != nil {
			return err
		}
		_, err := d.do(ctx, catalog.OpDataMode)
		return err
	case mode.CMUX, mode.CMUXManual:
		if _, err := d.do(ctx, catalog.OpCMUX); err != nil {
			return err
		}
		return d.muxHook(ctx, to)
	case mode.CMUXManualData:
		return d.muxHook(ctx, to)
	case mode.CMUXManualExit, mode.CMUXManualSwap, mode.CMUXManualCommand:
		if err := d.muxHook(ctx, to); err != nil {
			return err
		}
		_, err := d.do(ctx, catalog.OpSync)
		return err
	}
	return errors.Wrap(mode.ErrInvalidTransition, to.String())
}

// setupDataMode configures the PDP context prior to dialling.
func (d *DCE) setupDataMode(ctx context.Context) error {
	if d.variant == catalog.AIR780E {
		if err := d.SetEcho(ctx, false); err != nil {
			return err
		}
		name, err := d.ModuleName(ctx)
		if err != nil {
			return err
		}
		d.log.Info("module", zap.String("name", name))
		t := time.NewTimer(d.settle)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return d.SetPDPContext(ctx, d.PDPContext())
}

func (d *DCE) muxHook(ctx context.Context, to mode.Mode) error {
	if d.mux == nil {
		return nil
	}
	return d.mux(ctx, to)
}
