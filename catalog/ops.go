// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package catalog

import "fmt"

// Op is a logical modem operation.
//
// The command issued for an Op depends on the Variant.
type Op int

const (
	// Modem control.
	OpSync Op = iota
	OpReset
	OpSoftReset
	OpStoreProfile
	OpPowerDown
	OpSetBaud
	OpHangUp
	OpSetFlowControl
	OpEchoOn
	OpEchoOff

	// Data session and mode changes.
	OpSetPDPContext
	OpGetPDPContext
	OpDataMode
	OpResumeDataMode
	OpCommandMode
	OpCMUX

	// Identification.
	OpIMSI
	OpIMEI
	OpModel
	OpVersion

	// SMS.
	OpSMSTextMode
	OpSMSPDUMode
	OpSMSCharacterSet
	OpSendSMS
	OpSendSMSPDU

	// SIM.
	OpReadPIN
	OpSetPIN

	// Network and radio.
	OpSignalQuality
	OpGetOperator
	OpSetOperator
	OpGetAttach
	OpSetAttach
	OpGetRadio
	OpSetRadio
	OpSetNetworkMode
	OpSetPreferredMode
	OpSetBands
	OpSystemMode
	OpGetGNSSPower
	OpSetGNSSPower

	// Status.
	OpBatteryStatus
	OpRegistration

	// Bearer used by the location fix, which is issued by OpLocation.
	OpBearerContype
	OpBearerAPN
	OpBearerOpen
	OpBearerQuery
	OpBearerClose
	OpLocation

	// OpWaitLTEReady awaits the LTE service indication.
	OpWaitLTEReady
)

var opNames = map[Op]string{
	OpSync:             "sync",
	OpReset:            "reset",
	OpSoftReset:        "soft-reset",
	OpStoreProfile:     "store-profile",
	OpPowerDown:        "power-down",
	OpSetBaud:          "set-baud",
	OpHangUp:           "hang-up",
	OpSetFlowControl:   "set-flow-control",
	OpEchoOn:           "echo-on",
	OpEchoOff:          "echo-off",
	OpSetPDPContext:    "set-pdp-context",
	OpGetPDPContext:    "get-pdp-context",
	OpDataMode:         "data-mode",
	OpResumeDataMode:   "resume-data-mode",
	OpCommandMode:      "command-mode",
	OpCMUX:             "cmux",
	OpIMSI:             "imsi",
	OpIMEI:             "imei",
	OpModel:            "model",
	OpVersion:          "version",
	OpSMSTextMode:      "sms-text-mode",
	OpSMSPDUMode:       "sms-pdu-mode",
	OpSMSCharacterSet:  "sms-character-set",
	OpSendSMS:          "send-sms",
	OpSendSMSPDU:       "send-sms-pdu",
	OpReadPIN:          "read-pin",
	OpSetPIN:           "set-pin",
	OpSignalQuality:    "signal-quality",
	OpGetOperator:      "get-operator",
	OpSetOperator:      "set-operator",
	OpGetAttach:        "get-attach",
	OpSetAttach:        "set-attach",
	OpGetRadio:         "get-radio",
	OpSetRadio:         "set-radio",
	OpSetNetworkMode:   "set-network-mode",
	OpSetPreferredMode: "set-preferred-mode",
	OpSetBands:         "set-bands",
	OpSystemMode:       "system-mode",
	OpGetGNSSPower:     "get-gnss-power",
	OpSetGNSSPower:     "set-gnss-power",
	OpBatteryStatus:    "battery-status",
	OpRegistration:     "registration",
	OpBearerContype:    "bearer-contype",
	OpBearerAPN:        "bearer-apn",
	OpBearerOpen:       "bearer-open",
	OpBearerQuery:      "bearer-query",
	OpBearerClose:      "bearer-close",
	OpLocation:         "location",
	OpWaitLTEReady:     "wait-lte-ready",
}

func (op Op) String() string {
	if n, ok := opNames[op]; ok {
		return n
	}
	return fmt.Sprintf("op(%d)", int(op))
}
