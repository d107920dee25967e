// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package lifecycle

import "fmt"

// State is the stage the connection has reached.
type State int

const (
	// Init is the state after a reset, while the SIM is being checked.
	Init State = iota

	// SIMOK indicates the SIM is present and unlocked.
	SIMOK

	// SIMNo indicates the SIM check failed repeatedly.
	SIMNo

	// NetOK indicates the modem is registered on the network.
	NetOK

	// NetNo indicates the modem is not yet registered.
	NetNo

	// GotIPOK indicates the data session is up.
	GotIPOK

	// GotIPWait indicates the data session is being established.
	GotIPWait

	// GotIPTimeout indicates the data session could not be established.
	GotIPTimeout

	// Fault indicates no working modem is present.
	//
	// The controller stops permanently on reaching this state.
	Fault
)

var stateNames = []string{
	Init:         "checking sim",
	SIMOK:        "sim ok",
	SIMNo:        "no sim",
	NetOK:        "registered",
	NetNo:        "registering",
	GotIPOK:      "got ip",
	GotIPWait:    "waiting for ip",
	GotIPTimeout: "ip timeout",
	Fault:        "fault",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Event is an outcome of a lifecycle step.
type Event int

const (
	// EvReset is a full modem reset.
	EvReset Event = iota

	// EvSIMReady is a successful SIM check.
	EvSIMReady

	// EvSIMFail is a failed SIM check below the retry threshold.
	EvSIMFail

	// EvSIMAbsent is a failed SIM check that breached the retry threshold.
	EvSIMAbsent

	// EvNoModem is a SIM failure that breached the terminal threshold.
	EvNoModem

	// EvRegistered indicates the modem is registered on its home network.
	EvRegistered

	// EvNotRegistered indicates the modem is not registered.
	EvNotRegistered

	// EvAttach is the start of the data session request.
	EvAttach

	// EvGotIP indicates the data session is up.
	EvGotIP

	// EvIPTimeout indicates the data session request failed.
	EvIPTimeout
)

var eventNames = []string{
	EvReset:         "reset",
	EvSIMReady:      "sim-ready",
	EvSIMFail:       "sim-fail",
	EvSIMAbsent:     "sim-absent",
	EvNoModem:       "no-modem",
	EvRegistered:    "registered",
	EvNotRegistered: "not-registered",
	EvAttach:        "attach",
	EvGotIP:         "got-ip",
	EvIPTimeout:     "ip-timeout",
}

func (e Event) String() string {
	if e >= 0 && int(e) < len(eventNames) {
		return eventNames[e]
	}
	return fmt.Sprintf("event(%d)", int(e))
}

type transition struct {
	src []State
	dst State
}

var transitions = map[Event]transition{
	EvReset:         {[]State{Init, SIMOK, SIMNo, NetOK, NetNo, GotIPOK, GotIPWait, GotIPTimeout}, Init},
	EvSIMReady:      {[]State{Init}, SIMOK},
	EvSIMFail:       {[]State{Init}, Init},
	EvSIMAbsent:     {[]State{Init}, SIMNo},
	EvNoModem:       {[]State{Init, SIMNo}, Fault},
	EvRegistered:    {[]State{SIMOK, NetNo}, NetOK},
	EvNotRegistered: {[]State{SIMOK, NetNo}, NetNo},
	EvAttach:        {[]State{NetOK}, GotIPWait},
	EvGotIP:         {[]State{GotIPWait}, GotIPOK},
	EvIPTimeout:     {[]State{GotIPWait}, GotIPTimeout},
}

// Next returns the state following the event.
//
// Events that are not valid in the state leave the state unchanged, and
// Fault is never left.
func Next(s State, e Event) State {
	t, ok := transitions[e]
	if !ok {
		return s
	}
	for _, src := range t.src {
		if src == s {
			return t.dst
		}
	}
	return s
}
