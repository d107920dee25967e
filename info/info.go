// Package info provides utility functions for manipulating info lines returned
// by the modem in response to AT commands.
//
// The parsers validate every field before conversion and return ErrMalformed
// rather than panicking on unexpected input.
package info

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrMalformed indicates an info line did not have the expected shape.
var ErrMalformed = errors.New("malformed info")

// HasPrefix returns true if the line begins with the info prefix for the command.
func HasPrefix(line, cmd string) bool {
	return strings.HasPrefix(line, cmd+":")
}

// TrimPrefix removes the command  prefix, if any, and any intervening space
// from the info line.
func TrimPrefix(line, cmd string) string {
	return strings.TrimLeft(strings.TrimPrefix(line, cmd+":"), " ")
}

// Find returns the first line containing the info prefix for the command,
// with the prefix removed.
func Find(lines []string, cmd string) (string, bool) {
	for _, l := range lines {
		if idx := strings.Index(l, cmd+":"); idx >= 0 {
			return TrimPrefix(l[idx:], cmd), true
		}
	}
	return "", false
}

// Signal is the signal quality reported by +CSQ.
type Signal struct {
	RSSI int
	BER  int
}

// SignalQuality parses a "+CSQ: <rssi>,<ber>" line.
func SignalQuality(line string) (Signal, error) {
	fields, err := fieldsAfter(line, "+CSQ", 2)
	if err != nil {
		return Signal{}, err
	}
	v, err := atois(fields)
	if err != nil {
		return Signal{}, err
	}
	return Signal{RSSI: v[0], BER: v[1]}, nil
}

// Battery is the battery state reported by +CBC.
//
// BCS and BCL are -1 when the modem only reports the voltage.
type Battery struct {
	BCS     int
	BCL     int
	Voltage int // mV
}

// BatteryStatus parses a "+CBC: <bcs>,<bcl>,<voltage>" line.
func BatteryStatus(line string) (Battery, error) {
	fields, err := fieldsAfter(line, "+CBC", 3)
	if err != nil {
		return Battery{}, err
	}
	v, err := atois(fields)
	if err != nil {
		return Battery{}, err
	}
	return Battery{BCS: v[0], BCL: v[1], Voltage: v[2]}, nil
}

// BatteryVoltage parses a "+CBC: <int>.<frac> V" line.
//
// The voltage is scaled to mV as 1000*int+frac.
func BatteryVoltage(line string) (Battery, error) {
	if !HasPrefix(line, "+CBC") {
		return Battery{}, ErrMalformed
	}
	v := strings.TrimSpace(TrimPrefix(line, "+CBC"))
	v = strings.TrimSpace(strings.TrimSuffix(v, "V"))
	parts := strings.SplitN(v, ".", 2)
	if len(parts) != 2 {
		return Battery{}, ErrMalformed
	}
	n, err := atois(parts)
	if err != nil {
		return Battery{}, err
	}
	return Battery{BCS: -1, BCL: -1, Voltage: 1000*n[0] + n[1]}, nil
}

// Operator is the current operator reported by +COPS.
type Operator struct {
	Name string
	// Act is the access technology, or -1 if not reported.
	Act int
}

// ParseOperator parses a "+COPS: <mode>,<format>,<oper>[,<act>]" line.
func ParseOperator(line string) (Operator, error) {
	if !HasPrefix(line, "+COPS") {
		return Operator{}, ErrMalformed
	}
	fields := strings.SplitN(TrimPrefix(line, "+COPS"), ",", 3)
	if len(fields) != 3 {
		return Operator{}, ErrMalformed
	}
	rest := fields[2]
	var name string
	if strings.HasPrefix(rest, "\"") {
		end := strings.Index(rest[1:], "\"")
		if end < 0 {
			return Operator{}, ErrMalformed
		}
		name = rest[1 : end+1]
		rest = rest[end+2:]
	} else if idx := strings.Index(rest, ","); idx >= 0 {
		name = rest[:idx]
		rest = rest[idx:]
	} else {
		name = rest
		rest = ""
	}
	op := Operator{Name: name, Act: -1}
	if strings.HasPrefix(rest, ",") {
		act, err := strconv.Atoi(strings.TrimSpace(rest[1:]))
		if err != nil {
			return Operator{}, ErrMalformed
		}
		op.Act = act
	}
	return op, nil
}

// PDPContext finds the "+CGDCONT: 1,..." line and returns its APN and IP
// fields.
func PDPContext(lines []string) (apn, ip string, err error) {
	for _, l := range lines {
		idx := strings.Index(l, "+CGDCONT: 1")
		if idx < 0 {
			continue
		}
		fields := strings.Split(l[idx:], ",")
		if len(fields) < 4 {
			continue
		}
		return unquote(fields[2]), unquote(fields[3]), nil
	}
	return "", "", ErrMalformed
}

// Registration is the network registration state reported by +CEREG or
// +CREG.
type Registration struct {
	URC   int
	State int
}

// ParseRegistration parses a "<cmd>: <urc>,<state>[,...]" line, where cmd is
// +CEREG, +CREG or +CGREG.
func ParseRegistration(line, cmd string) (Registration, error) {
	if !HasPrefix(line, cmd) {
		return Registration{}, ErrMalformed
	}
	fields := strings.Split(TrimPrefix(line, cmd), ",")
	if len(fields) < 2 {
		return Registration{}, ErrMalformed
	}
	v, err := atois(fields[:2])
	if err != nil {
		return Registration{}, err
	}
	return Registration{URC: v[0], State: v[1]}, nil
}

// Location is a coarse location fix reported by +CIPGSMLOC.
type Location struct {
	Latitude  string
	Longitude string
}

// ParseLocation parses a "+CIPGSMLOC: <code>,<lati>,<longi>,<date>,<time>"
// line.
func ParseLocation(line string) (Location, error) {
	if !HasPrefix(line, "+CIPGSMLOC") {
		return Location{}, ErrMalformed
	}
	fields := strings.Split(TrimPrefix(line, "+CIPGSMLOC"), ",")
	if len(fields) < 3 {
		return Location{}, ErrMalformed
	}
	if code, err := strconv.Atoi(strings.TrimSpace(fields[0])); err != nil || code != 0 {
		return Location{}, ErrMalformed
	}
	return Location{
		Latitude:  strings.TrimSpace(fields[1]),
		Longitude: strings.TrimSpace(fields[2]),
	}, nil
}

// Version parses a `+CGMR: "<ver>"` line.
func Version(line string) (string, error) {
	if !HasPrefix(line, "+CGMR") {
		return "", ErrMalformed
	}
	return unquote(TrimPrefix(line, "+CGMR")), nil
}

// Model parses a "+CGMM: <model>" line.
//
// Modems that return the bare model name are accepted as is.
func Model(line string) (string, error) {
	if line == "" {
		return "", ErrMalformed
	}
	return TrimPrefix(line, "+CGMM"), nil
}

// PIN parses a "+CPIN: <state>" line, returning true if the SIM is ready.
//
// A SIM awaiting a PIN or PUK is not an error, just not ready.
func PIN(line string) (bool, error) {
	if strings.Contains(line, "OK") || !strings.Contains(line, "+CPIN:") {
		return false, ErrMalformed
	}
	switch {
	case strings.Contains(line, "SIM PIN"), strings.Contains(line, "SIM PUK"):
		return false, nil
	case strings.Contains(line, "READY"):
		return true, nil
	}
	return false, ErrMalformed
}

// Int parses a "<cmd>: <n>[,...]" line, returning the first field.
func Int(line, cmd string) (int, error) {
	if !HasPrefix(line, cmd) {
		return 0, ErrMalformed
	}
	f := strings.SplitN(TrimPrefix(line, cmd), ",", 2)
	n, err := strconv.Atoi(strings.TrimSpace(f[0]))
	if err != nil {
		return 0, ErrMalformed
	}
	return n, nil
}

// SystemMode parses a "+CNSMOD: <n>,<mode>" line, returning the mode.
func SystemMode(line string) (int, error) {
	fields, err := fieldsAfter(line, "+CNSMOD", 2)
	if err != nil {
		return 0, err
	}
	v, err := atois(fields)
	if err != nil {
		return 0, err
	}
	return v[1], nil
}

// fieldsAfter splits the info line for cmd into exactly n comma separated
// fields.
func fieldsAfter(line, cmd string, n int) ([]string, error) {
	if !HasPrefix(line, cmd) {
		return nil, ErrMalformed
	}
	fields := strings.Split(TrimPrefix(line, cmd), ",")
	if len(fields) != n {
		return nil, ErrMalformed
	}
	return fields, nil
}

func atois(fields []string) ([]int, error) {
	v := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, ErrMalformed
		}
		v[i] = n
	}
	return v, nil
}

// unquote strips one leading and one trailing quote, if present.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "\"")
	return strings.TrimSuffix(s, "\"")
}
