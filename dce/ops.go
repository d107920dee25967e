// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package dce

import (
	"context"

	"github.com/warthog618/ltemodem/catalog"
	"github.com/warthog618/ltemodem/info"
)

// Sync checks the modem is responding to AT commands.
func (d *DCE) Sync(ctx context.Context) error {
	_, err := d.do(ctx, catalog.OpSync)
	return err
}

// Reset performs a full reset of the modem, waiting for it to restart.
func (d *DCE) Reset(ctx context.Context) error {
	_, err := d.do(ctx, catalog.OpReset)
	if err == nil {
		d.modes.Reset()
	}
	return err
}

// SoftReset restarts the modem without waiting for it to come back.
func (d *DCE) SoftReset(ctx context.Context) error {
	_, err := d.run(ctx, catalog.OpSoftReset)
	d.modes.Reset()
	return err
}

// StoreProfile stores the current settings in the user profile.
func (d *DCE) StoreProfile(ctx context.Context) error {
	_, err := d.do(ctx, catalog.OpStoreProfile)
	return err
}

// PowerDown powers down the modem.
func (d *DCE) PowerDown(ctx context.Context) error {
	_, err := d.do(ctx, catalog.OpPowerDown)
	return err
}

// SetBaud sets the modem serial rate.
func (d *DCE) SetBaud(ctx context.Context, baud int) error {
	_, err := d.do(ctx, catalog.OpSetBaud, baud)
	return err
}

// HangUp terminates any call.
func (d *DCE) HangUp(ctx context.Context) error {
	_, err := d.do(ctx, catalog.OpHangUp)
	return err
}

// SetFlowControl sets the DCE and DTE flow control methods.
func (d *DCE) SetFlowControl(ctx context.Context, dceFlow, dteFlow int) error {
	_, err := d.do(ctx, catalog.OpSetFlowControl, dceFlow, dteFlow)
	return err
}

// SetEcho turns the command echo on or off.
func (d *DCE) SetEcho(ctx context.Context, on bool) error {
	op := catalog.OpEchoOff
	if on {
		op = catalog.OpEchoOn
	}
	_, err := d.do(ctx, op)
	return err
}

// PDPContext returns the current PDP context.
func (d *DCE) PDPContext() PDPContext {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pdp
}

// SetPDPContext configures the PDP context in the modem.
//
// The context is only updated if the modem accepts it.
func (d *DCE) SetPDPContext(ctx context.Context, pdp PDPContext) error {
	_, err := d.do(ctx, catalog.OpSetPDPContext, pdp.ContextID, pdp.ProtocolType, pdp.APN)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.pdp = pdp
	d.mu.Unlock()
	return nil
}

// APNIP returns the APN and IP address of PDP context 1.
func (d *DCE) APNIP(ctx context.Context) (apn, ip string, err error) {
	rsp, err := d.do(ctx, catalog.OpGetPDPContext)
	if err != nil {
		return "", "", err
	}
	apn, ip, err = info.PDPContext(rsp.info)
	if err != nil {
		return "", "", parsed(catalog.OpGetPDPContext, err)
	}
	return apn, ip, nil
}

// ResumeDataMode returns to data mode after an escape, without redialling.
func (d *DCE) ResumeDataMode(ctx context.Context) error {
	_, err := d.do(ctx, catalog.OpResumeDataMode)
	return err
}

// IMSI returns the IMSI of the SIM.
func (d *DCE) IMSI(ctx context.Context) (string, error) {
	_, l, err := d.line(ctx, catalog.OpIMSI)
	return l, err
}

// IMEI returns the IMEI of the modem.
func (d *DCE) IMEI(ctx context.Context) (string, error) {
	_, l, err := d.line(ctx, catalog.OpIMEI)
	return l, err
}

// ModuleName returns the model of the modem.
func (d *DCE) ModuleName(ctx context.Context) (string, error) {
	_, l, err := d.line(ctx, catalog.OpModel)
	if err != nil {
		return "", err
	}
	name, err := info.Model(l)
	return name, parsed(catalog.OpModel, err)
}

// ModuleVersion returns the firmware version of the modem.
func (d *DCE) ModuleVersion(ctx context.Context) (string, error) {
	_, l, err := d.line(ctx, catalog.OpVersion)
	if err != nil {
		return "", err
	}
	version, err := info.Version(l)
	return version, parsed(catalog.OpVersion, err)
}

// ReadPIN returns true if the SIM is ready, and false if it is awaiting a
// PIN or PUK.
func (d *DCE) ReadPIN(ctx context.Context) (bool, error) {
	_, l, err := d.line(ctx, catalog.OpReadPIN)
	if err != nil {
		return false, err
	}
	ready, err := info.PIN(l)
	return ready, parsed(catalog.OpReadPIN, err)
}

// SetPIN enters the SIM PIN.
func (d *DCE) SetPIN(ctx context.Context, pin string) error {
	_, err := d.do(ctx, catalog.OpSetPIN, pin)
	return err
}

// SignalQuality returns the signal quality.
func (d *DCE) SignalQuality(ctx context.Context) (info.Signal, error) {
	_, l, err := d.line(ctx, catalog.OpSignalQuality)
	if err != nil {
		return info.Signal{}, err
	}
	sig, err := info.SignalQuality(l)
	return sig, parsed(catalog.OpSignalQuality, err)
}

// OperatorName returns the current operator and access technology.
func (d *DCE) OperatorName(ctx context.Context) (info.Operator, error) {
	_, l, err := d.line(ctx, catalog.OpGetOperator)
	if err != nil {
		return info.Operator{}, err
	}
	op, err := info.ParseOperator(l)
	return op, parsed(catalog.OpGetOperator, err)
}

// SetOperator selects the operator.
func (d *DCE) SetOperator(ctx context.Context, mode, format int, oper string) error {
	_, err := d.do(ctx, catalog.OpSetOperator, mode, format, oper)
	return err
}

// NetworkAttachment returns true if the modem is attached to the packet
// domain.
func (d *DCE) NetworkAttachment(ctx context.Context) (bool, error) {
	n, err := d.intQuery(ctx, catalog.OpGetAttach, "+CGATT")
	return n == 1, err
}

// SetNetworkAttachment attaches to, or detaches from, the packet domain.
func (d *DCE) SetNetworkAttachment(ctx context.Context, attach bool) error {
	state := 0
	if attach {
		state = 1
	}
	_, err := d.do(ctx, catalog.OpSetAttach, state)
	return err
}

// RadioState returns the modem functionality level.
func (d *DCE) RadioState(ctx context.Context) (int, error) {
	return d.intQuery(ctx, catalog.OpGetRadio, "+CFUN")
}

// SetRadioState sets the modem functionality level.
func (d *DCE) SetRadioState(ctx context.Context, state int) error {
	_, err := d.do(ctx, catalog.OpSetRadio, state)
	return err
}

// SetNetworkMode sets the preferred radio access technology.
func (d *DCE) SetNetworkMode(ctx context.Context, mode int) error {
	_, err := d.do(ctx, catalog.OpSetNetworkMode, mode)
	return err
}

// SetPreferredMode selects between CAT-M and NB-IoT.
func (d *DCE) SetPreferredMode(ctx context.Context, mode int) error {
	_, err := d.do(ctx, catalog.OpSetPreferredMode, mode)
	return err
}

// SetNetworkBands restricts the modem to the bands.
func (d *DCE) SetNetworkBands(ctx context.Context, mode string, bands []int) error {
	_, err := d.do(ctx, catalog.OpSetBands, mode, bands)
	return err
}

// SystemMode returns the current system mode.
func (d *DCE) SystemMode(ctx context.Context) (int, error) {
	_, l, err := d.line(ctx, catalog.OpSystemMode)
	if err != nil {
		return 0, err
	}
	m, err := info.SystemMode(l)
	return m, parsed(catalog.OpSystemMode, err)
}

// GNSSPower returns the GNSS power state.
func (d *DCE) GNSSPower(ctx context.Context) (int, error) {
	return d.intQuery(ctx, catalog.OpGetGNSSPower, "+CGNSPWR")
}

// SetGNSSPower sets the GNSS power state.
func (d *DCE) SetGNSSPower(ctx context.Context, mode int) error {
	_, err := d.do(ctx, catalog.OpSetGNSSPower, mode)
	return err
}

// BatteryStatus returns the battery state.
//
// Variants that only report the voltage return -1 for BCS and BCL.
func (d *DCE) BatteryStatus(ctx context.Context) (info.Battery, error) {
	def, l, err := d.line(ctx, catalog.OpBatteryStatus)
	if err != nil {
		return info.Battery{}, err
	}
	var bat info.Battery
	if def.Format == catalog.FormatVoltage {
		bat, err = info.BatteryVoltage(l)
	} else {
		bat, err = info.BatteryStatus(l)
	}
	return bat, parsed(catalog.OpBatteryStatus, err)
}

// RegistrationState returns the EPS network registration state.
func (d *DCE) RegistrationState(ctx context.Context) (info.Registration, error) {
	_, l, err := d.line(ctx, catalog.OpRegistration)
	if err != nil {
		return info.Registration{}, err
	}
	reg, err := info.ParseRegistration(l, "+CEREG")
	return reg, parsed(catalog.OpRegistration, err)
}

// Location returns a coarse location fix from the network.
//
// The bearer required for the fix is opened before, and closed after, the
// request.
func (d *DCE) Location(ctx context.Context) (info.Location, error) {
	_, l, err := d.line(ctx, catalog.OpLocation)
	if err != nil {
		return info.Location{}, err
	}
	loc, err := info.ParseLocation(l)
	return loc, parsed(catalog.OpLocation, err)
}

// WaitLTEReady waits for the modem to report LTE service.
func (d *DCE) WaitLTEReady(ctx context.Context) error {
	_, err := d.do(ctx, catalog.OpWaitLTEReady)
	return err
}

func (d *DCE) intQuery(ctx context.Context, op catalog.Op, prefix string) (int, error) {
	_, l, err := d.line(ctx, op)
	if err != nil {
		return 0, err
	}
	n, err := info.Int(l, prefix)
	return n, parsed(op, err)
}
