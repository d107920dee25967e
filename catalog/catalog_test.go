// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package catalog_test

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/ltemodem/at"
	"github.com/warthog618/ltemodem/catalog"
)

func TestLookup(t *testing.T) {
	patterns := []struct {
		name    string
		variant catalog.Variant
		op      catalog.Op
		args    []interface{}
		cmd     at.Command
	}{
		{
			"sync",
			catalog.Generic,
			catalog.OpSync,
			nil,
			at.Command{Text: "AT\r\n", Pass: []string{"OK"}, Fail: []string{"ERROR"}, Timeout: catalog.DefaultTimeout},
		},
		{
			"command mode",
			catalog.SIM7600,
			catalog.OpCommandMode,
			nil,
			at.Command{Text: "+++", Pass: []string{"NO CARRIER", "OK"}, Fail: []string{"ERROR"}, Timeout: 5 * time.Second},
		},
		{
			"generic power down",
			catalog.Generic,
			catalog.OpPowerDown,
			nil,
			at.Command{Text: "AT+QPOWD=1\r\n", Pass: []string{"POWERED DOWN"}, Fail: []string{"ERROR"}, Timeout: time.Second},
		},
		{
			"sim7600 power down",
			catalog.SIM7600,
			catalog.OpPowerDown,
			nil,
			at.Command{Text: "AT+CPOF\r\n", Pass: []string{"OK"}, Fail: []string{"ERROR"}, Timeout: time.Second},
		},
		{
			"sim7070 power down",
			catalog.SIM7070,
			catalog.OpPowerDown,
			nil,
			at.Command{Text: "AT+CPOWD=1\r\n", Pass: []string{"POWER DOWN"}, Fail: []string{"ERROR"}, Timeout: time.Second},
		},
		{
			"sim800 power down",
			catalog.SIM800,
			catalog.OpPowerDown,
			nil,
			at.Command{Text: "AT+CPOWD=1\r\n", Pass: []string{"POWER DOWN"}, Fail: []string{"ERROR"}, Timeout: time.Second},
		},
		{
			"bg96 power down",
			catalog.BG96,
			catalog.OpPowerDown,
			nil,
			at.Command{Text: "AT+QPOWD=1\r\n", Pass: []string{"POWERED DOWN"}, Fail: []string{"ERROR"}, Timeout: time.Second},
		},
		{
			"generic dial",
			catalog.Generic,
			catalog.OpDataMode,
			nil,
			at.Command{Text: "ATD*99##\r\n", Pass: []string{"CONNECT"}, Fail: []string{"ERROR"}, Timeout: 5 * time.Second},
		},
		{
			"sim800 dial",
			catalog.SIM800,
			catalog.OpDataMode,
			nil,
			at.Command{Text: "ATD*99#\r\n", Pass: []string{"CONNECT"}, Fail: []string{"ERROR"}, Timeout: 5 * time.Second},
		},
		{
			"pdp context",
			catalog.Generic,
			catalog.OpSetPDPContext,
			[]interface{}{1, "IP", "internet"},
			at.Command{Text: "AT+CGDCONT=1,\"IP\",\"internet\"\r\n", Pass: []string{"OK"}, Fail: []string{"ERROR"}, Timeout: 150 * time.Second},
		},
		{
			"generic bands",
			catalog.Generic,
			catalog.OpSetBands,
			[]interface{}{"CAT-M", []int{1, 3, 20}},
			at.Command{Text: "AT+CBANDCFG=\"CAT-M\",1,3,20\r\n", Pass: []string{"OK"}, Fail: []string{"ERROR"}, Timeout: catalog.DefaultTimeout},
		},
		{
			"sim7600 bands",
			catalog.SIM7600,
			catalog.OpSetBands,
			[]interface{}{"0x0002000000400183", []int{1, 3, 20}},
			at.Command{Text: "AT+CNBP=0x0002000000400183,0x0000000000080005\r\n", Pass: []string{"OK"}, Fail: []string{"ERROR"}, Timeout: catalog.DefaultTimeout},
		},
		{
			"sim7600 high band",
			catalog.SIM7600,
			catalog.OpSetBands,
			[]interface{}{"m", []int{41, 64}},
			at.Command{Text: "AT+CNBP=m,0x8000010000000000\r\n", Pass: []string{"OK"}, Fail: []string{"ERROR"}, Timeout: catalog.DefaultTimeout},
		},
		{
			"generic gnss",
			catalog.Generic,
			catalog.OpSetGNSSPower,
			[]interface{}{1},
			at.Command{Text: "AT+CGNSPWR=1\r\n", Pass: []string{"OK"}, Fail: []string{"ERROR"}, Timeout: catalog.DefaultTimeout},
		},
		{
			"sim7600 gnss",
			catalog.SIM7600,
			catalog.OpSetGNSSPower,
			[]interface{}{1},
			at.Command{Text: "AT+CGPS=1\r\n", Pass: []string{"OK"}, Fail: []string{"ERROR"}, Timeout: catalog.DefaultTimeout},
		},
		{
			"sms",
			catalog.Generic,
			catalog.OpSendSMS,
			[]interface{}{"+12345", "hello"},
			at.Command{Text: "AT+CMGS=\"+12345\"\r", Pass: []string{"OK"}, Fail: []string{"ERROR"}, Timeout: 120 * time.Second, Prompt: '>', Payload: "hello"},
		},
		{
			"sms pdu",
			catalog.Generic,
			catalog.OpSendSMSPDU,
			[]interface{}{17, "0011000B911234"},
			at.Command{Text: "AT+CMGS=17\r", Pass: []string{"OK"}, Fail: []string{"ERROR"}, Timeout: 120 * time.Second, Prompt: '>', Payload: "0011000B911234"},
		},
		{
			"wait lte ready",
			catalog.Generic,
			catalog.OpWaitLTEReady,
			nil,
			at.Command{Pass: []string{"+E_UTRAN Service"}, Fail: []string{"---"}, Timeout: 5 * time.Second},
		},
	}
	for _, p := range patterns {
		f := func(t *testing.T) {
			d, err := catalog.Lookup(p.variant, p.op)
			require.Nil(t, err)
			assert.Equal(t, p.op, d.Op)
			cmd, err := d.Command(p.args...)
			require.Nil(t, err)
			assert.Equal(t, p.cmd, cmd)
		}
		t.Run(p.name, f)
	}
}

func TestLookupFormat(t *testing.T) {
	d, err := catalog.Lookup(catalog.Generic, catalog.OpBatteryStatus)
	require.Nil(t, err)
	assert.Equal(t, catalog.FormatDefault, d.Format)
	assert.True(t, d.String)
	d, err = catalog.Lookup(catalog.SIM7600, catalog.OpBatteryStatus)
	require.Nil(t, err)
	assert.Equal(t, catalog.FormatVoltage, d.Format)
	assert.True(t, d.String)
}

func TestLookupSequences(t *testing.T) {
	patterns := []struct {
		name    string
		variant catalog.Variant
		op      catalog.Op
		pre     []catalog.Op
		post    []catalog.Op
	}{
		{"cmux", catalog.Generic, catalog.OpCMUX, []catalog.Op{catalog.OpSync}, nil},
		{"pin", catalog.Generic, catalog.OpReadPIN, []catalog.Op{catalog.OpSync}, nil},
		{"pdp", catalog.Generic, catalog.OpGetPDPContext, []catalog.Op{catalog.OpEchoOff}, nil},
		{
			"location",
			catalog.Generic,
			catalog.OpLocation,
			[]catalog.Op{catalog.OpBearerContype, catalog.OpBearerAPN, catalog.OpBearerOpen, catalog.OpBearerQuery},
			[]catalog.Op{catalog.OpBearerClose},
		},
		{"air780e dial", catalog.AIR780E, catalog.OpDataMode, []catalog.Op{catalog.OpHangUp}, nil},
		{"sim800 dial", catalog.SIM800, catalog.OpDataMode, nil, nil},
	}
	for _, p := range patterns {
		f := func(t *testing.T) {
			d, err := catalog.Lookup(p.variant, p.op)
			require.Nil(t, err)
			assert.Equal(t, p.pre, d.Pre)
			assert.Equal(t, p.post, d.Post)
		}
		t.Run(p.name, f)
	}
}

func TestEveryOpHasGeneric(t *testing.T) {
	for op := catalog.OpSync; op <= catalog.OpWaitLTEReady; op++ {
		_, err := catalog.Lookup(catalog.Generic, op)
		assert.Nil(t, err, op.String())
	}
}

func TestOverridesHaveGeneric(t *testing.T) {
	variants := []catalog.Variant{
		catalog.SIM7600, catalog.SIM7070, catalog.SIM7000, catalog.BG96,
		catalog.SIM800, catalog.AIR724, catalog.AIR780E,
	}
	for _, v := range variants {
		for _, op := range catalog.Overrides(v) {
			vd, err := catalog.Lookup(v, op)
			require.Nil(t, err)
			gd, err := catalog.Lookup(catalog.Generic, op)
			require.Nil(t, err)
			assert.Equal(t, gd.Args, vd.Args, "%s %s", v, op)
		}
	}
	assert.Empty(t, catalog.Overrides(catalog.BG96))
	assert.Len(t, catalog.Overrides(catalog.SIM7600), 4)
}

func TestLookupUnsupported(t *testing.T) {
	_, err := catalog.Lookup(catalog.Generic, catalog.Op(999))
	assert.True(t, errors.Is(err, catalog.ErrUnsupported))
}

func TestCommandArgs(t *testing.T) {
	patterns := []struct {
		name    string
		variant catalog.Variant
		op      catalog.Op
		args    []interface{}
	}{
		{"too few", catalog.Generic, catalog.OpSetPDPContext, []interface{}{1, "IP"}},
		{"too many", catalog.Generic, catalog.OpSync, []interface{}{1}},
		{"payload type", catalog.Generic, catalog.OpSendSMS, []interface{}{"+123", 42}},
		{"band type", catalog.Generic, catalog.OpSetBands, []interface{}{"m", "1,2"}},
		{"no bands", catalog.SIM7600, catalog.OpSetBands, []interface{}{"m", []int{}}},
		{"band range", catalog.SIM7600, catalog.OpSetBands, []interface{}{"m", []int{65}}},
		{"band zero", catalog.SIM7600, catalog.OpSetBands, []interface{}{"m", []int{0}}},
	}
	for _, p := range patterns {
		f := func(t *testing.T) {
			d, err := catalog.Lookup(p.variant, p.op)
			require.Nil(t, err)
			_, err = d.Command(p.args...)
			assert.True(t, errors.Is(err, catalog.ErrArgs), err)
		}
		t.Run(p.name, f)
	}
}

func TestVariant(t *testing.T) {
	patterns := []struct {
		name    string
		variant catalog.Variant
	}{
		{"generic", catalog.Generic},
		{"sim7600", catalog.SIM7600},
		{"sim7070", catalog.SIM7070},
		{"sim7000", catalog.SIM7000},
		{"bg96", catalog.BG96},
		{"sim800", catalog.SIM800},
		{"air724", catalog.AIR724},
		{"air780e", catalog.AIR780E},
	}
	for _, p := range patterns {
		f := func(t *testing.T) {
			assert.Equal(t, p.name, p.variant.String())
			v, err := catalog.ParseVariant(p.name)
			assert.Nil(t, err)
			assert.Equal(t, p.variant, v)
		}
		t.Run(p.name, f)
	}
	v, err := catalog.ParseVariant("SIM7600")
	assert.Nil(t, err)
	assert.Equal(t, catalog.SIM7600, v)
	_, err = catalog.ParseVariant("nokia")
	assert.True(t, errors.Is(err, catalog.ErrUnknownVariant))
	assert.Equal(t, "variant(42)", catalog.Variant(42).String())
}
