// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package catalog

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var (
	cpowd = Def{
		Text:    "AT+CPOWD=1\r\n",
		Pass:    []string{"POWER DOWN"},
		Fail:    errorPhrase,
		Timeout: time.Second,
	}
	dialSIM800 = Def{
		Text:    "ATD*99#\r\n",
		Pass:    []string{"CONNECT"},
		Fail:    errorPhrase,
		Timeout: 5 * time.Second,
	}
)

// overrides are the variant specific definitions, checked before generic.
var overrides = map[Variant]map[Op]Def{
	SIM7600: {
		OpBatteryStatus: {
			Text:    "AT+CBC\r\n",
			String:  true,
			Timeout: DefaultTimeout,
			Format:  FormatVoltage,
		},
		OpSetBands: {
			Args:    2,
			Pass:    okPhrase,
			Fail:    errorPhrase,
			Timeout: DefaultTimeout,
			render:  bandMask,
		},
		OpSetGNSSPower: common("AT+CGPS=%d\r\n", 1, DefaultTimeout),
		OpPowerDown:    common("AT+CPOF\r\n", 0, time.Second),
	},
	SIM7070: {
		OpPowerDown: cpowd,
	},
	SIM7000: {
		OpPowerDown: cpowd,
	},
	SIM800: {
		OpPowerDown: cpowd,
		OpDataMode:  dialSIM800,
	},
	AIR780E: {
		OpDataMode: {
			Text:    dialSIM800.Text,
			Pass:    dialSIM800.Pass,
			Fail:    dialSIM800.Fail,
			Timeout: dialSIM800.Timeout,
			Pre:     []Op{OpHangUp},
		},
	},
}

// bandMask renders the bands as a 64 bit mask with bit n-1 set for band n.
func bandMask(args []interface{}) (string, error) {
	mode, bands, err := bandArgs(args)
	if err != nil {
		return "", err
	}
	var mask uint64
	for _, b := range bands {
		if b < 1 || b > 64 {
			return "", errors.Wrapf(ErrArgs, "band %d out of range", b)
		}
		mask |= 1 << uint(b-1)
	}
	return fmt.Sprintf("AT+CNBP=%s,0x%016X\r\n", mode, mask), nil
}
