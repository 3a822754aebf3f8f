// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWatchForCancel_SignalCancelsBatch(t *testing.T) {
	t.Parallel()

	sig := make(chan os.Signal, 1)
	done := make(chan struct{})
	cancelled := make(chan struct{})

	exited := make(chan struct{})
	go func() {
		watchForCancel(sig, done, func() { close(cancelled) })
		close(exited)
	}()

	sig <- syscall.SIGINT
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("signal did not cancel the batch")
	}
	<-exited
}

func TestWatchForCancel_DetachesWhenBatchFinishes(t *testing.T) {
	t.Parallel()

	sig := make(chan os.Signal, 1)
	done := make(chan struct{})

	var cancelled bool
	exited := make(chan struct{})
	go func() {
		watchForCancel(sig, done, func() { cancelled = true })
		close(exited)
	}()

	close(done)
	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("watcher did not detach after the batch finished")
	}

	// A signal landing after the batch finished is a no-op: the
	// channel stays open and buffers it, nothing panics.
	sig <- syscall.SIGINT
	assert.False(t, cancelled)
}
