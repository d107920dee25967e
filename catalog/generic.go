// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package catalog

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultTimeout is the timeout of commands that do not specify their own.
const DefaultTimeout = 500 * time.Millisecond

var (
	okPhrase    = []string{"OK"}
	errorPhrase = []string{"ERROR"}
)

// common is a command that passes on OK and fails on ERROR.
func common(text string, args int, timeout time.Duration) Def {
	return Def{
		Text:    text,
		Args:    args,
		Pass:    okPhrase,
		Fail:    errorPhrase,
		Timeout: timeout,
	}
}

// query is a command returning a single data line.
func query(text string, timeout time.Duration) Def {
	return Def{
		Text:    text,
		String:  true,
		Timeout: timeout,
	}
}

var generic = map[Op]Def{
	OpSync:           common("AT\r\n", 0, DefaultTimeout),
	OpReset:          {Text: "AT+CRESET\r\n", Pass: []string{"PB DONE"}, Fail: errorPhrase, Timeout: 60 * time.Second},
	OpSoftReset:      common("AT+RESET\r\n", 0, DefaultTimeout),
	OpStoreProfile:   common("AT&W\r\n", 0, DefaultTimeout),
	OpPowerDown:      {Text: "AT+QPOWD=1\r\n", Pass: []string{"POWERED DOWN"}, Fail: errorPhrase, Timeout: time.Second},
	OpSetBaud:        common("AT+IPR=%d\r\n", 1, DefaultTimeout),
	OpHangUp:         common("ATH\r\n", 0, 90*time.Second),
	OpSetFlowControl: common("AT+IFC=%d,%d\r\n", 2, DefaultTimeout),
	OpEchoOn:         common("ATE1\r\n", 0, DefaultTimeout),
	OpEchoOff:        common("ATE0\r\n", 0, DefaultTimeout),
	OpSetPDPContext:  common("AT+CGDCONT=%d,\"%s\",\"%s\"\r\n", 3, 150*time.Second),
	OpGetPDPContext: {
		Text:    "AT+CGDCONT?\r\n",
		Pass:    okPhrase,
		Fail:    errorPhrase,
		Timeout: DefaultTimeout,
		Pre:     []Op{OpEchoOff},
	},
	OpDataMode:       {Text: "ATD*99##\r\n", Pass: []string{"CONNECT"}, Fail: errorPhrase, Timeout: 5 * time.Second},
	OpResumeDataMode: {Text: "ATO\r\n", Pass: []string{"CONNECT"}, Fail: errorPhrase, Timeout: 5 * time.Second},
	OpCommandMode:    {Text: "+++", Pass: []string{"NO CARRIER", "OK"}, Fail: errorPhrase, Timeout: 5 * time.Second},
	OpCMUX: {
		Text:    "AT+CMUX=0\r\n",
		Pass:    okPhrase,
		Fail:    errorPhrase,
		Timeout: DefaultTimeout,
		Pre:     []Op{OpSync},
	},
	OpIMSI:            query("AT+CIMI\r\n", 5*time.Second),
	OpIMEI:            query("AT+CGSN\r\n", 5*time.Second),
	OpModel:           query("AT+CGMM\r\n", 5*time.Second),
	OpVersion:         query("AT+CGMR\r\n", 5*time.Second),
	OpSMSTextMode:     common("AT+CMGF=1\r\n", 0, DefaultTimeout),
	OpSMSPDUMode:      common("AT+CMGF=0\r\n", 0, DefaultTimeout),
	OpSMSCharacterSet: common("AT+CSCS=\"GSM\"\r\n", 0, DefaultTimeout),
	OpSendSMS: {
		Text:    "AT+CMGS=\"%s\"\r",
		Args:    2,
		Pass:    okPhrase,
		Fail:    errorPhrase,
		Timeout: 120 * time.Second,
		Prompt:  '>',
	},
	OpSendSMSPDU: {
		Text:    "AT+CMGS=%d\r",
		Args:    2,
		Pass:    okPhrase,
		Fail:    errorPhrase,
		Timeout: 120 * time.Second,
		Prompt:  '>',
	},
	OpReadPIN: {
		Text:    "AT+CPIN?\r\n",
		String:  true,
		Timeout: DefaultTimeout,
		Pre:     []Op{OpSync},
	},
	OpSetPIN:           common("AT+CPIN=%s\r\n", 1, DefaultTimeout),
	OpSignalQuality:    query("AT+CSQ\r\n", DefaultTimeout),
	OpGetOperator:      query("AT+COPS?\r\n", 75*time.Second),
	OpSetOperator:      common("AT+COPS=%d,%d,\"%s\"\r\n", 3, 90*time.Second),
	OpGetAttach:        query("AT+CGATT?\r\n", DefaultTimeout),
	OpSetAttach:        common("AT+CGATT=%d\r\n", 1, DefaultTimeout),
	OpGetRadio:         query("AT+CFUN?\r\n", DefaultTimeout),
	OpSetRadio:         common("AT+CFUN=%d\r\n", 1, 15*time.Second),
	OpSetNetworkMode:   common("AT+CNMP=%d\r\n", 1, DefaultTimeout),
	OpSetPreferredMode: common("AT+CMNB=%d\r\n", 1, DefaultTimeout),
	OpSetBands: {
		Args:    2,
		Pass:    okPhrase,
		Fail:    errorPhrase,
		Timeout: DefaultTimeout,
		render:  bandList,
	},
	OpSystemMode:    query("AT+CNSMOD?\r\n", DefaultTimeout),
	OpGetGNSSPower:  query("AT+CGNSPWR?\r\n", DefaultTimeout),
	OpSetGNSSPower:  common("AT+CGNSPWR=%d\r\n", 1, DefaultTimeout),
	OpBatteryStatus: query("AT+CBC\r\n", DefaultTimeout),
	OpRegistration:  query("AT+CEREG?\r\n", DefaultTimeout),
	OpBearerContype: common("AT+SAPBR=3,1,\"CONTYPE\",\"GPRS\"\r\n", 0, time.Second),
	OpBearerAPN:     common("AT+SAPBR=3,1,\"APN\",\"\"\r\n", 0, time.Second),
	OpBearerOpen:    common("AT+SAPBR=1,1\r\n", 0, time.Second),
	OpBearerQuery:   common("AT+SAPBR=2,1\r\n", 0, DefaultTimeout),
	OpBearerClose:   common("AT+SAPBR=0,1\r\n", 0, DefaultTimeout),
	OpLocation: {
		Text:    "AT+CIPGSMLOC=1,1\r\n",
		String:  true,
		Timeout: DefaultTimeout,
		Pre:     []Op{OpBearerContype, OpBearerAPN, OpBearerOpen, OpBearerQuery},
		Post:    []Op{OpBearerClose},
	},
	OpWaitLTEReady: {
		Pass:    []string{"+E_UTRAN Service"},
		Fail:    []string{"---"},
		Timeout: 5 * time.Second,
		Post:    []Op{OpEchoOff},
	},
}

// bandArgs extracts the mode and band list arguments of OpSetBands.
func bandArgs(args []interface{}) (string, []int, error) {
	mode, ok := args[0].(string)
	if !ok {
		return "", nil, errors.Wrap(ErrArgs, "mode must be a string")
	}
	bands, ok := args[1].([]int)
	if !ok || len(bands) == 0 {
		return "", nil, errors.Wrap(ErrArgs, "bands must be a non-empty []int")
	}
	return mode, bands, nil
}

// bandList renders the bands as a decimal list.
func bandList(args []interface{}) (string, error) {
	mode, bands, err := bandArgs(args)
	if err != nil {
		return "", err
	}
	bb := make([]string, len(bands))
	for i, b := range bands {
		bb[i] = strconv.Itoa(b)
	}
	return "AT+CBANDCFG=\"" + mode + "\"," + strings.Join(bb, ",") + "\r\n", nil
}
