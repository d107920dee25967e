// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// Package catalog provides the AT command definitions for the supported
// modem families.
//
// Each logical operation has a generic definition, which may be overridden
// for particular device variants. Lookup checks the variant overrides before
// falling back to the generic definition, and an override always replaces
// the command text and phrase sets together.
package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/warthog618/ltemodem/at"
)

// Variant identifies the modem family.
type Variant int

const (
	// Generic is a modem with no family specific commands.
	Generic Variant = iota

	// SIM7600 reports battery voltage only, takes a hex band mask and uses
	// AT+CGPS for GNSS.
	SIM7600

	// SIM7070 powers down with AT+CPOWD.
	SIM7070

	// SIM7000 powers down with AT+CPOWD.
	SIM7000

	// BG96 uses the generic commands.
	BG96

	// SIM800 is a 2G modem that powers down with AT+CPOWD and dials
	// ATD*99#.
	SIM800

	// AIR724 uses the generic commands.
	AIR724

	// AIR780E hangs up before dialling ATD*99#, and must settle between
	// identification and PDP configuration.
	AIR780E
)

var variantNames = map[Variant]string{
	Generic: "generic",
	SIM7600: "sim7600",
	SIM7070: "sim7070",
	SIM7000: "sim7000",
	BG96:    "bg96",
	SIM800:  "sim800",
	AIR724:  "air724",
	AIR780E: "air780e",
}

func (v Variant) String() string {
	if n, ok := variantNames[v]; ok {
		return n
	}
	return fmt.Sprintf("variant(%d)", int(v))
}

// ParseVariant returns the variant corresponding to the name.
//
// The name is case insensitive.
func ParseVariant(name string) (Variant, error) {
	name = strings.ToLower(name)
	for v, n := range variantNames {
		if n == name {
			return v, nil
		}
	}
	return Generic, errors.Wrap(ErrUnknownVariant, name)
}

// Format identifies how the info returned by a command is laid out, where
// that differs between variants.
type Format int

const (
	// FormatDefault is the standard layout for the command.
	FormatDefault Format = iota

	// FormatVoltage is the "+CBC: <int>.<frac> V" battery layout.
	FormatVoltage
)

// Def is the definition of an operation.
type Def struct {
	Op Op

	// Text is a fmt template for the command, including the AT prefix and
	// line terminator.
	Text string

	// Args is the number of arguments expected by Command, including any
	// payload.
	Args int

	Pass    []string
	Fail    []string
	Timeout time.Duration

	// String indicates the command returns a single data line, and is
	// classified by the string-get rule rather than the phrase sets.
	String bool

	// Prompt, if non-zero, indicates the final argument is a payload sent
	// after the modem returns the prompt.
	Prompt byte

	// Pre are operations issued, with results ignored, before the command.
	Pre []Op

	// Post are operations issued, with results ignored, after the command.
	Post []Op

	// Format is the layout of the returned info.
	Format Format

	render func(args []interface{}) (string, error)
}

// Command renders the definition into a command for the engine.
func (d Def) Command(args ...interface{}) (at.Command, error) {
	if len(args) != d.Args {
		return at.Command{}, errors.Wrapf(ErrArgs, "%s expects %d, got %d", d.Op, d.Args, len(args))
	}
	cmd := at.Command{
		Pass:    d.Pass,
		Fail:    d.Fail,
		Timeout: d.Timeout,
		Prompt:  d.Prompt,
	}
	if d.Prompt != 0 {
		payload, ok := args[len(args)-1].(string)
		if !ok {
			return at.Command{}, errors.Wrapf(ErrArgs, "%s payload must be a string", d.Op)
		}
		cmd.Payload = payload
		args = args[:len(args)-1]
	}
	if d.render != nil {
		text, err := d.render(args)
		if err != nil {
			return at.Command{}, errors.Wrap(err, d.Op.String())
		}
		cmd.Text = text
		return cmd, nil
	}
	if len(args) == 0 {
		cmd.Text = d.Text
	} else {
		cmd.Text = fmt.Sprintf(d.Text, args...)
	}
	return cmd, nil
}

// Lookup returns the definition of the operation for the variant.
//
// Variant overrides take precedence over the generic definition.
func Lookup(v Variant, op Op) (Def, error) {
	if ovr, ok := overrides[v]; ok {
		if d, ok := ovr[op]; ok {
			d.Op = op
			return d, nil
		}
	}
	if d, ok := generic[op]; ok {
		d.Op = op
		return d, nil
	}
	return Def{}, errors.Wrapf(ErrUnsupported, "%s on %s", op, v)
}

// Overrides returns the operations overridden for the variant.
func Overrides(v Variant) []Op {
	ovr := overrides[v]
	ops := make([]Op, 0, len(ovr))
	for op := range ovr {
		ops = append(ops, op)
	}
	return ops
}

var (
	// ErrUnsupported indicates the operation is not defined for the variant.
	ErrUnsupported = errors.New("unsupported operation")

	// ErrArgs indicates the arguments do not suit the operation.
	ErrArgs = errors.New("invalid arguments")

	// ErrUnknownVariant indicates the variant name is not recognised.
	ErrUnknownVariant = errors.New("unknown variant")
)
