// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package lifecycle

import (
	"context"
	"sync"
	"time"
)

// Signal is a latch set by the network stack when the data session has
// acquired an IP address.
type Signal struct {
	mu  sync.Mutex
	ch  chan struct{}
	set bool
}

// NewSignal creates a cleared Signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Set sets the latch, releasing any waiters.
func (s *Signal) Set() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		close(s.ch)
		s.set = true
	}
}

// Clear clears the latch.
func (s *Signal) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set {
		s.ch = make(chan struct{})
		s.set = false
	}
}

// IsSet returns true if the latch is set.
func (s *Signal) IsSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// Wait waits for the latch to be set, for at most the timeout.
//
// Returns ErrSignalTimeout if the timeout expires first.
func (s *Signal) Wait(ctx context.Context, timeout time.Duration) error {
	s.mu.Lock()
	ch := s.ch
	s.mu.Unlock()
	select {
	case <-ch:
		return nil
	default:
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return ErrSignalTimeout
	}
}
