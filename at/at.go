// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// Package at provides a low level driver for AT modems.
//
// Commands are matched against the lines returned by the modem using sets of
// pass and fail phrases, rather than by relying on the final result code, as
// many modems return non-standard completion lines (e.g. "POWERED DOWN",
// "PB DONE" or "CONNECT").
package at

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// AT represents a modem that can be managed using AT commands.
//
// Commands can be issued to the modem using the Execute and GetString methods.
//
// The AT closes the closed channel when the connection to the underlying
// modem is broken (Read returns EOF).
//
// When closed, all outstanding commands return ErrClosed and the state of the
// underlying modem becomes unknown.
//
// Once closed the AT cannot be re-opened - it must be recreated.
type AT struct {
	// channel for commands issued to the modem
	cmdCh chan func()

	// channel for changes to inds
	indCh chan func()

	// closed when modem is closed
	closed chan struct{}

	// channel for all lines read from the modem
	iLines chan string

	// channel for lines read from the modem after indications removed
	cLines chan string

	// the underlying modem
	modem io.ReadWriter

	// the minimum time between an escape command and the subsequent command
	escTime time.Duration

	// the timeout applied to commands that do not specify their own
	timeout time.Duration

	// indications mapped by prefix
	inds map[string]indication // only modified in indLoop

	// the info prefix of the outstanding command, e.g. "+CEREG:".
	// Lines with this prefix are passed to the command rather than to any
	// indication.
	solicited atomic.String

	// commands issued by Init.
	initCmds []string

	// covers escGuard
	escGuardMu sync.Mutex

	// if not-nil, the time the subsequent command must wait
	escGuard <-chan time.Time
}

// Option is a construction option for an AT.
type Option func(*AT)

// New creates a new AT modem.
func New(modem io.ReadWriter, options ...Option) *AT {
	a := &AT{
		modem:   modem,
		cmdCh:   make(chan func()),
		indCh:   make(chan func()),
		iLines:  make(chan string),
		cLines:  make(chan string),
		closed:  make(chan struct{}),
		escTime: 20 * time.Millisecond,
		timeout: 500 * time.Millisecond,
		inds:    make(map[string]indication),
	}
	for _, option := range options {
		option(a)
	}
	if a.initCmds == nil {
		a.initCmds = []string{
			"AT\r\n",   // sync
			"ATE0\r\n", // echo off
		}
	}
	go lineReader(a.modem, a.iLines)
	go a.indLoop(a.indCh, a.iLines, a.cLines)
	go cmdLoop(a.cmdCh, a.cLines, a.closed)
	return a
}

const (
	sub = byte(0x1a)
	esc = byte(0x1b)

	// EscapeSequence switches the modem from data mode back to command mode.
	EscapeSequence = "+++"
)

// WithEscTime sets the guard time for the modem.
//
// The escape time is the minimum time between an escape command being sent to
// the modem and any subsequent commands.
//
// The default guard time is 20msec.
func WithEscTime(d time.Duration) Option {
	return func(a *AT) {
		a.escTime = d
	}
}

// WithTimeout sets the default timeout for commands that do not specify one.
//
// The default timeout is 500msec.
func WithTimeout(d time.Duration) Option {
	return func(a *AT) {
		a.timeout = d
	}
}

// InfoHandler receives indication info.
type InfoHandler func([]string)

// WithIndication adds an indication during construction.
func WithIndication(prefix string, handler InfoHandler, options ...IndicationOption) Option {
	ind := newIndication(prefix, handler, options...)
	return func(a *AT) {
		a.inds[prefix] = ind
	}
}

// WithInitCmds specifies the commands issued by Init.
//
// The commands are literal, so must include the AT prefix and line
// terminator. The default commands are AT and ATE0.
func WithInitCmds(cmds ...string) Option {
	return func(a *AT) {
		a.initCmds = cmds
	}
}

// Closed returns a channel which will block while the modem is not closed.
func (a *AT) Closed() <-chan struct{} {
	return a.closed
}

// Execute issues the command to the modem and classifies the response.
//
// Lines are checked in the order they arrive. Each line is searched for the
// pass phrases, and then the fail phrases, in the order supplied, and the
// first phrase found determines the result. If no phrase is found before the
// command timeout then the result is Timeout.
//
// The returned info contains all non-empty lines received while the command
// was outstanding, including the matching line.
//
// The error is only set if the command could not be issued or the context
// was done, in which case the result is Timeout.
func (a *AT) Execute(ctx context.Context, cmd Command) (Result, []string, error) {
	m := phraseMatcher{cmd: cmd}
	info, err := a.request(ctx, cmd, m.match)
	return m.result, info, err
}

// GetString issues a command which returns a single line of data.
//
// A line containing OK completes the command successfully, a line containing
// ERROR fails it, and any other line longer than two characters is taken as
// the data. If more than one data line arrives the last is returned.
func (a *AT) GetString(ctx context.Context, text string, timeout time.Duration) (Result, string, error) {
	m := stringMatcher{}
	_, err := a.request(ctx, Command{Text: text, Timeout: timeout}, m.match)
	return m.result, m.output, err
}

// AddIndication adds a handler for a set of lines beginning with the prefixed
// line and the following trailing lines.
func (a *AT) AddIndication(prefix string, handler InfoHandler, options ...IndicationOption) (err error) {
	ind := newIndication(prefix, handler, options...)
	errs := make(chan error)
	indf := func() {
		if _, ok := a.inds[ind.prefix]; ok {
			errs <- ErrIndicationExists
			return
		}
		a.inds[ind.prefix] = ind
		close(errs)
	}
	select {
	case <-a.closed:
		err = ErrClosed
	case a.indCh <- indf:
		err = <-errs
	}
	return
}

// CancelIndication removes any indication corresponding to the prefix.
func (a *AT) CancelIndication(prefix string) {
	done := make(chan struct{})
	indf := func() {
		delete(a.inds, prefix)
		close(done)
	}
	select {
	case <-a.closed:
	case a.indCh <- indf:
		<-done
	}
}

// Init initialises the modem by escaping any outstanding SMS commands
// and issuing the init commands.
//
// The Init is intended to be called after creation and before any other commands
// are issued in order to get the modem into a known state.
//
// The default init commands can be overridden by the cmds parameter.
func (a *AT) Init(ctx context.Context, cmds ...string) error {
	// escape any outstanding SMS operations then CR to flush the command
	// buffer
	a.escape([]byte("\r\n")...)

	if cmds == nil {
		cmds = a.initCmds
	}
	for _, cmd := range cmds {
		r, _, err := a.Execute(ctx, Command{Text: cmd, Pass: []string{"OK"}, Fail: []string{"ERROR"}})
		if err != nil {
			return err
		}
		if r != OK {
			return errors.Errorf("%s returned %s", strings.TrimSpace(cmd), r)
		}
	}
	return nil
}

// request serialises the command through the cmdLoop.
func (a *AT) request(ctx context.Context, cmd Command, match matcher) ([]string, error) {
	done := make(chan response)
	cmdf := func() {
		info, err := a.processReq(ctx, cmd, match)
		done <- response{info: info, err: err}
	}
	select {
	case <-a.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case a.cmdCh <- cmdf:
		rsp := <-done
		return rsp.info, rsp.err
	}
}

// cmdLoop is responsible for the interface to the modem.
//
// It serialises the issuing of commands and awaits the responses.
// If no command is pending then any lines received are discarded.
//
// The cmdLoop terminates when the downstream closes.
func cmdLoop(cmds chan func(), in <-chan string, out chan struct{}) {
	for {
		select {
		case cmd := <-cmds:
			cmd()
		case _, ok := <-in:
			if !ok {
				close(out)
				return
			}
		}
	}
}

// lineReader takes lines from m and redirects them to out.
//
// lineReader exits when m closes.
func lineReader(m io.Reader, out chan string) {
	scanner := bufio.NewScanner(m)
	scanner.Split(scanLines)
	for scanner.Scan() {
		out <- scanner.Text()
	}
	close(out) // tell pipeline we're done - end of pipeline will close the AT.
}

// indLoop is responsible for pulling indications from the stream of lines read
// from the modem, and forwarding them to handlers.
//
// Non-indication lines are passed upstream. Indication trailing lines are
// assumed to arrive in a contiguous block immediately after the indication.
//
// indLoop exits when the in channel closes.
func (a *AT) indLoop(cmds chan func(), in <-chan string, out chan string) {
	defer close(out)
nextLine:
	for {
		select {
		case cmd := <-cmds:
			cmd()
		case line, ok := <-in:
			if !ok {
				return
			}
			if s := a.solicited.Load(); s != "" && strings.HasPrefix(line, s) {
				out <- line
				continue
			}
			for prefix, ind := range a.inds {
				if strings.HasPrefix(line, prefix) {
					n := make([]string, ind.lines)
					n[0] = line
					for i := 1; i < ind.lines; i++ {
						t, ok := <-in
						if !ok {
							return
						}
						n[i] = t
					}
					ind.handler(n)
					continue nextLine
				}
			}
			out <- line
		}
	}
}

func (a *AT) processReq(ctx context.Context, cmd Command, match matcher) (info []string, err error) {
	a.waitEscGuard()
	a.solicited.Store(infoPrefix(cmd.Text))
	defer a.solicited.Store("")
	// an empty command waits for unsolicited lines
	if cmd.Text != "" {
		if err = a.write(cmd.Text); err != nil {
			return
		}
	}
	if cmd.Text == EscapeSequence {
		a.startEscGuard()
	}
	timeout := cmd.Timeout
	if timeout == 0 {
		timeout = a.timeout
	}
	expired := time.NewTimer(timeout)
	defer expired.Stop()
	prompted := cmd.Prompt == 0
	for {
		select {
		case <-ctx.Done():
			if !prompted {
				// cancel outstanding prompt
				a.escape()
			}
			err = ctx.Err()
			return
		case <-expired.C:
			if !prompted {
				a.escape()
			}
			return
		case line, ok := <-a.cLines:
			if !ok {
				return info, ErrClosed
			}
			if line == "" {
				continue
			}
			if !prompted {
				if line[0] == cmd.Prompt {
					prompted = true
					if err = a.write(cmd.Payload + string(sub)); err != nil {
						a.escape()
						return
					}
					continue
				}
			} else if cmd.Payload != "" && line[len(line)-1] == sub && strings.HasPrefix(line, cmd.Payload) {
				// swallow echoed payload
				continue
			}
			info = append(info, line)
			if match(line, prompted) {
				return
			}
		}
	}
}

// infoPrefix returns the prefix of info lines returned by an extended
// command, e.g. "+CEREG:" for "AT+CEREG?\r\n", or "" if the command is not an
// extended command.
func infoPrefix(text string) string {
	if !strings.HasPrefix(text, "AT+") {
		return ""
	}
	name := text[2:]
	if i := strings.IndexAny(name, "?=\r\n"); i >= 0 {
		name = name[:i]
	}
	if len(name) < 2 {
		return ""
	}
	return name + ":"
}

// issue an escape command
func (a *AT) escape(b ...byte) {
	cmd := append([]byte(string(esc)+"\r\n"), b...)
	a.modem.Write(cmd)
	a.startEscGuard()
}

// startEscGuard starts a write guard that prevents a subsequent write within
// a short period of time (default 20ms).
func (a *AT) startEscGuard() {
	a.escGuardMu.Lock()
	a.escGuard = time.After(a.escTime)
	a.escGuardMu.Unlock()
}

// waitEscGuard waits for a write guard to allow a write to the modem.
func (a *AT) waitEscGuard() {
	a.escGuardMu.Lock()
	defer a.escGuardMu.Unlock()
	if a.escGuard == nil {
		return
	}
	for {
		select {
		case _, ok := <-a.cLines:
			if !ok {
				return
			}
		case <-a.escGuard:
			a.escGuard = nil
			return
		}
	}
}

// write writes literal text to the modem.
func (a *AT) write(text string) error {
	_, err := a.modem.Write([]byte(text))
	return err
}

// CMEError indicates a CME Error was returned by the modem.
//
// The value is the error value, in string form, which may be the numeric or
// textual, depending on the modem configuration.
type CMEError string

// CMSError indicates a CMS Error was returned by the modem.
//
// The value is the error value, in string form, which may be the numeric or
// textual, depending on the modem configuration.
type CMSError string

func (e CMEError) Error() string {
	return string("CME Error: " + e)
}

func (e CMSError) Error() string {
	return string("CMS Error: " + e)
}

var (
	// ErrClosed indicates an operation cannot be performed as the modem has
	// been closed.
	ErrClosed = errors.New("closed")

	// ErrError indicates the modem returned a generic AT ERROR in response to
	// an operation.
	ErrError = errors.New("ERROR")

	// ErrIndicationExists indicates there is already a indication registered
	// for a prefix.
	ErrIndicationExists = errors.New("indication exists")
)

// ParseError creates an error corresponding to the content of an error line.
//
// Returns nil if the line is not an error line.
func ParseError(line string) error {
	var err error
	switch {
	case strings.HasPrefix(line, "ERROR"):
		err = ErrError
	case strings.HasPrefix(line, "+CMS ERROR:"):
		err = CMSError(strings.TrimSpace(line[11:]))
	case strings.HasPrefix(line, "+CME ERROR:"):
		err = CMEError(strings.TrimSpace(line[11:]))
	}
	return err
}

// response represents the result of a request operation performed on the
// modem.
//
// info is the collection of lines returned while the command was
// outstanding. err corresponds to any error returned while interacting with
// the modem.
type response struct {
	info []string
	err  error
}

// indication represents an unsolicited result code (URC) from the modem, such
// as a change in network registration.
//
// Indications are lines prefixed with a particular pattern, and may include a
// number of trailing lines. The matching lines are bundled into a slice and
// sent to the handler.
type indication struct {
	prefix  string
	lines   int
	handler InfoHandler
}

func newIndication(prefix string, handler InfoHandler, options ...IndicationOption) indication {
	ind := indication{
		prefix:  prefix,
		handler: handler,
		lines:   1,
	}
	for _, option := range options {
		option(&ind)
	}
	return ind
}

// IndicationOption alters the behavior of the indication.
type IndicationOption func(*indication)

// WithTrailingLines indicates the indication includes a number of lines after
// the line containing the indication.
func WithTrailingLines(l int) func(*indication) {
	return func(ind *indication) {
		ind.lines = l + 1
	}
}

// WithTrailingLine indicates the indication includes one line after the line
// containing the indication.
var WithTrailingLine = WithTrailingLines(1)

// scanLines is a custom line scanner for lineReader that recognises the prompt
// returned by the modem in response to SMS commands such as +CMGS.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	// handle SMS prompt special case - no CR at prompt
	if len(data) >= 1 && data[0] == '>' {
		i := 1
		// there may be trailing space, so swallow that...
		for ; i < len(data) && data[i] == ' '; i++ {
		}
		return i, data[0:1], nil
	}
	return bufio.ScanLines(data, atEOF)
}
