// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package at

import (
	"strings"
	"time"
)

// Command is a single request to the modem.
//
// Text is written to the modem verbatim, so must include the AT prefix and
// line terminator where required.
type Command struct {
	// Text is the literal text written to the modem.
	Text string

	// Pass phrases indicate the command succeeded.
	Pass []string

	// Fail phrases indicate the command failed.
	Fail []string

	// Timeout bounds the wait for a matching phrase.
	// If zero the AT default timeout is used.
	Timeout time.Duration

	// Prompt, if non-zero, is the byte the modem returns when it is ready to
	// accept the Payload.
	Prompt byte

	// Payload is the deferred body written after the Prompt, terminated with
	// Ctrl-Z.
	Payload string
}

// Result is the outcome of a command.
type Result int

const (
	// Timeout indicates neither a pass nor fail phrase was found before the
	// deadline.
	Timeout Result = iota

	// OK indicates a pass phrase was found.
	OK

	// Fail indicates a fail phrase was found.
	Fail
)

func (r Result) String() string {
	switch r {
	case OK:
		return "OK"
	case Fail:
		return "FAIL"
	case Timeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// matcher examines a line received while a command is outstanding and
// returns true if the command is complete.
//
// prompted is false while the command is waiting on its prompt.
type matcher func(line string, prompted bool) bool

type phraseMatcher struct {
	cmd    Command
	result Result
}

func (m *phraseMatcher) match(line string, prompted bool) bool {
	if prompted {
		for _, p := range m.cmd.Pass {
			if strings.Contains(line, p) {
				m.result = OK
				return true
			}
		}
	}
	for _, p := range m.cmd.Fail {
		if strings.Contains(line, p) {
			m.result = Fail
			return true
		}
	}
	return false
}

type stringMatcher struct {
	output string
	result Result
}

func (m *stringMatcher) match(line string, prompted bool) bool {
	switch {
	case strings.Contains(line, "OK"):
		m.result = OK
		return true
	case strings.Contains(line, "ERROR"):
		m.result = Fail
		return true
	case len(line) > 2:
		m.output = line
	}
	return false
}

// Match classifies a response against the pass and fail phrases of the
// command, without issuing it.
//
// The response is split into lines, with trailing CR/LF stripped, and the
// lines are checked in order. An empty response is a Timeout.
func (c Command) Match(response string) Result {
	m := phraseMatcher{cmd: c}
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		if m.match(line, true) {
			break
		}
	}
	return m.result
}
