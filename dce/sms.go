// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package dce

import (
	"context"

	"github.com/warthog618/ltemodem/catalog"
	"github.com/warthog618/ltemodem/info"
	"github.com/warthog618/sms"
	"github.com/warthog618/sms/encoding/pdumode"
)

// SetSMSTextMode selects text or PDU mode for SMS.
func (d *DCE) SetSMSTextMode(ctx context.Context, text bool) error {
	op := catalog.OpSMSPDUMode
	if text {
		op = catalog.OpSMSTextMode
	}
	_, err := d.do(ctx, op)
	return err
}

// SetSMSCharacterSet selects the GSM default alphabet for text mode SMS.
func (d *DCE) SetSMSCharacterSet(ctx context.Context) error {
	_, err := d.do(ctx, catalog.OpSMSCharacterSet)
	return err
}

// SendSMS sends a text mode SMS message to the number.
//
// The message reference is returned on success.
// The modem must already be in text mode.
func (d *DCE) SendSMS(ctx context.Context, number string, message string) (string, error) {
	rsp, err := d.do(ctx, catalog.OpSendSMS, number, message)
	if err != nil {
		return "", err
	}
	return messageReference(rsp.info)
}

// SendSMSPDU sends an SMS message to the number in PDU mode.
//
// The message is encoded using the most compact character set that suits
// it, and is split into a multi-part message if required. The message
// reference of each part is returned.
//
// The modem is switched to PDU mode for the send, and back to text mode
// after.
func (d *DCE) SendSMSPDU(ctx context.Context, number string, message string) ([]string, error) {
	tpdus, err := sms.Encode([]byte(message), sms.To(number), sms.WithAllCharsets)
	if err != nil {
		return nil, err
	}
	if err := d.SetSMSTextMode(ctx, false); err != nil {
		return nil, err
	}
	defer d.run(ctx, catalog.OpSMSTextMode)
	mrs := make([]string, 0, len(tpdus))
	for _, p := range tpdus {
		tp, err := p.MarshalBinary()
		if err != nil {
			return mrs, err
		}
		mr, err := d.sendPDU(ctx, tp)
		if err != nil {
			return mrs, err
		}
		mrs = append(mrs, mr)
	}
	return mrs, nil
}

// sendPDU sends a single binary TPDU.
func (d *DCE) sendPDU(ctx context.Context, tpdu []byte) (string, error) {
	pdu := pdumode.PDU{SMSC: d.sca, TPDU: tpdu}
	s, err := pdu.MarshalHexString()
	if err != nil {
		return "", err
	}
	rsp, err := d.do(ctx, catalog.OpSendSMSPDU, len(tpdu), s)
	if err != nil {
		return "", err
	}
	return messageReference(rsp.info)
}

func messageReference(lines []string) (string, error) {
	if mr, ok := info.Find(lines, "+CMGS"); ok {
		return mr, nil
	}
	return "", parsed(catalog.OpSendSMS, ErrMalformed)
}
