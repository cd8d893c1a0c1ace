/* SPDX-License-Identifier: GPL-3.0-or-later
 *
 * tmedia
 * Copyright (C) 2025 e1z0 <e1z0@icloud.com>
 *
 * This file is part of tmedia.
 *
 * tmedia is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * tmedia is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with tmedia.  If not, see <https://www.gnu.org/licenses/>.
 */
package media

import (
	"sync"
	"testing"
	"time"

	"github.com/tmedia-go/tmedia/internal/decode"
)

// newTestFetcher builds a Fetcher with a zero-value façade (duration 0,
// no selected streams), enough to exercise the coordinator API paths that
// never dereference a stream decoder.
func newTestFetcher(mt decode.MediaType) *Fetcher {
	f := &Fetcher{facade: &decode.Facade{}, mediaType: mt}
	f.exitCond = sync.NewCond(&f.exitMu)
	f.resumeCond = sync.NewCond(&f.resumeMu)
	f.inUse.Store(true)
	return f
}

func TestShouldExitTracksInUse(t *testing.T) {
	f := newTestFetcher(decode.Video)
	if f.ShouldExit() {
		t.Fatalf("fresh fetcher should not report should_exit")
	}
	f.DispatchExit()
	if !f.ShouldExit() {
		t.Fatalf("after DispatchExit, should_exit must be true")
	}
}

func TestPauseResumeRoundTrip(t *testing.T) {
	f := newTestFetcher(decode.Video)
	f.clock.Init(0)

	if !f.IsPlaying() {
		t.Fatalf("clock should start playing")
	}
	if err := f.Pause(0.5); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if f.IsPlaying() {
		t.Fatalf("clock should be paused")
	}
	if got := f.GetTime(10.0); got != 0.5 {
		t.Fatalf("paused time should stay frozen at 0.5, got %v", got)
	}
	if err := f.Resume(1.0); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if !f.IsPlaying() {
		t.Fatalf("clock should be playing again")
	}
}

func TestPauseResumeRejectedForImage(t *testing.T) {
	f := newTestFetcher(decode.Image)
	if err := f.Pause(0); err != ErrCannotPlayImage {
		t.Fatalf("Pause on image: want ErrCannotPlayImage, got %v", err)
	}
	if err := f.Resume(0); err != ErrCannotPlayImage {
		t.Fatalf("Resume on image: want ErrCannotPlayImage, got %v", err)
	}
}

func TestJumpToTimeRejectsNegative(t *testing.T) {
	f := newTestFetcher(decode.Video)
	f.clock.Init(0)
	if err := f.JumpToTime(-1, 0); err != ErrSeekOutOfRange {
		t.Fatalf("want ErrSeekOutOfRange, got %v", err)
	}
}

func TestJumpToTimeSkipsClock(t *testing.T) {
	f := newTestFetcher(decode.Video)
	f.clock.Init(0)
	before := f.GetTime(1.0)
	if err := f.JumpToTime(5.0, 1.0); err != nil {
		t.Fatalf("JumpToTime: %v", err)
	}
	after := f.GetTime(1.0)
	if got := after - before; got < 3.999 || got > 4.001 {
		t.Fatalf("expected ~4s skip (target 5.0 minus current 1.0), got %v", got)
	}
}

func TestDispatchExitErrIsTerminalFirstWriterWins(t *testing.T) {
	f := newTestFetcher(decode.Video)
	if f.HasError() {
		t.Fatalf("fresh fetcher should have no error")
	}
	if err := f.Error(); err != ErrNoError {
		t.Fatalf("want ErrNoError, got %v", err)
	}

	f.DispatchExitErr("boom")
	if !f.HasError() {
		t.Fatalf("HasError should be true after DispatchExitErr")
	}
	if !f.ShouldExit() {
		t.Fatalf("DispatchExitErr must also dispatch exit")
	}

	f.DispatchExitErr("second error should be ignored")
	if got := f.Error().Error(); got != "media: boom" {
		t.Fatalf("first error should win, got %q", got)
	}
}

func TestDispatchExitErrPanicsOnEmptyMessage(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on empty error message")
		}
	}()
	f := newTestFetcher(decode.Video)
	f.DispatchExitErr("")
}

func TestGetAudioDesyncTimeZeroWithoutAudio(t *testing.T) {
	f := newTestFetcher(decode.Video)
	f.clock.Init(0)
	if got := f.GetAudioDesyncTime(1.0); got != 0 {
		t.Fatalf("want 0 desync with no audio buffer, got %v", got)
	}
}

func TestSleepOnExitReturnsEarlyOnDispatch(t *testing.T) {
	f := newTestFetcher(decode.Video)
	done := make(chan struct{})
	go func() {
		f.sleepOnExit(2 * time.Second)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	f.DispatchExit()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("sleepOnExit did not wake promptly on DispatchExit")
	}
}

func TestWaitResumeOrExitReturnsOnResume(t *testing.T) {
	f := newTestFetcher(decode.Video)
	f.clock.Init(0)
	f.Pause(0)

	done := make(chan struct{})
	go func() {
		f.waitResumeOrExit(2 * time.Second)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	f.Resume(0.01)
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("waitResumeOrExit did not wake promptly on Resume")
	}
}

func TestTimedWaitReturnsImmediatelyWhenReady(t *testing.T) {
	var mu sync.Mutex
	cond := sync.NewCond(&mu)
	mu.Lock()
	start := time.Now()
	timedWait(cond, time.Second, func() bool { return true })
	mu.Unlock()
	if time.Since(start) > 50*time.Millisecond {
		t.Fatalf("timedWait should return immediately when ready() is already true")
	}
}

func TestTimedWaitRespectsDeadline(t *testing.T) {
	var mu sync.Mutex
	cond := sync.NewCond(&mu)
	mu.Lock()
	start := time.Now()
	timedWait(cond, 30*time.Millisecond, func() bool { return false })
	mu.Unlock()
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Fatalf("timedWait returned too early: %v", elapsed)
	}
}
