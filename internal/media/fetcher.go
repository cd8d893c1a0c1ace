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

// Package media implements the media fetcher coordinator: a single
// instance bound to one file path for its lifetime, owning a video worker,
// an audio worker, a duration-watcher worker, a shared bitmap, a blocking
// audio ring buffer, and a media clock, all guarded by one alter-mutex
// plus two leaf condvar-pair mutexes (exit, resume).
package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tmedia-go/tmedia/internal/bitmap"
	"github.com/tmedia-go/tmedia/internal/clock"
	"github.com/tmedia-go/tmedia/internal/config"
	"github.com/tmedia-go/tmedia/internal/decode"
	"github.com/tmedia-go/tmedia/internal/ringbuffer"
)

// internalAudioBufferSeconds sizes the ring buffer to hold this many
// seconds of decoded audio.
const internalAudioBufferSeconds = 5

var (
	// ErrCannotPlayImage is returned by operations that only make sense for
	// playable (VIDEO/AUDIO) media when called against an IMAGE fetcher.
	ErrCannotPlayImage = errors.New("media: cannot pause/resume/check playing state of image media")
	// ErrSeekOutOfRange is returned by JumpToTime when target is outside
	// [0, duration].
	ErrSeekOutOfRange = errors.New("media: jump target out of range")
	// ErrNoError is returned by Error when has_error() is false.
	ErrNoError = errors.New("media: no error is set")
)

// Fetcher owns the demuxer façade, both stream decoders (via the façade),
// the audio ring buffer, the shared bitmap, and the media clock, and
// exposes the public API the owning thread drives.
type Fetcher struct {
	path  string
	flags config.Flags

	facade    *decode.Facade
	mediaType decode.MediaType

	// AudioBuffer is nil when the file carries no audio stream.
	AudioBuffer *ringbuffer.Blocking

	Bitmap bitmap.Bitmap

	// alterMu guards every field below it: the clock, both workers'
	// pending-seek counters, the renderer's requested output dimensions,
	// and the terminal error slot. No worker holds this mutex across a
	// blocking wait.
	alterMu       sync.Mutex
	clock         clock.Clock
	videoSeeks    int
	audioSeeks    int
	requestedDims config.Dim2
	errMsg        string
	hasErr        bool

	// inUse is read by ShouldExit far more often than it's written, so it
	// is kept atomic rather than folded under alterMu.
	inUse atomic.Bool

	exitMu   sync.Mutex
	exitCond *sync.Cond

	resumeMu   sync.Mutex
	resumeCond *sync.Cond

	beginOnce sync.Once
	wg        sync.WaitGroup

	// logger receives worker diagnostics tagged with a component=video|
	// audio|clock attribute alongside source=path. Defaults to
	// slog.Default(); SetLogger overrides it before Begin.
	logger *slog.Logger
}

// SetLogger installs l as the fetcher's diagnostic logger. Call before
// Begin; unset fetchers log through slog.Default().
func (f *Fetcher) SetLogger(l *slog.Logger) { f.logger = l }

// logComponent logs msg at the given level, tagged with component and the
// fetcher's source path, using f.logger (or slog.Default() if unset).
func (f *Fetcher) logComponent(level slog.Level, component, msg string, args ...any) {
	l := f.logger
	if l == nil {
		l = slog.Default()
	}
	l.Log(context.Background(), level, msg, append([]any{"component", component, "source", f.path}, args...)...)
}

// New opens path, identifies its streams, classifies its media type, and
// (if it carries audio) allocates a ring buffer sized for
// internalAudioBufferSeconds seconds of audio. It does not start any
// workers; call Begin for that.
func New(path string, flags config.Flags) (*Fetcher, error) {
	mask := decode.WantVideo | decode.WantAudio
	facade, err := decode.Open(path, mask, flags.Has(config.IgnoreAttachedPic))
	if err != nil {
		return nil, err
	}

	f := &Fetcher{
		path:      path,
		flags:     flags,
		facade:    facade,
		mediaType: facade.MediaType(),
	}
	f.exitCond = sync.NewCond(&f.exitMu)
	f.resumeCond = sync.NewCond(&f.resumeMu)

	if facade.Audio != nil {
		sampleRate := facade.Audio.SampleRate()
		channels := facade.Audio.Channels()
		capacity := sampleRate * internalAudioBufferSeconds
		f.AudioBuffer = ringbuffer.NewBlocking(capacity, channels, sampleRate, 0.0)
	}

	return f, nil
}

// MediaType reports the classification decided at Open time.
func (f *Fetcher) MediaType() decode.MediaType { return f.mediaType }

// Path is the file this fetcher was opened against.
func (f *Fetcher) Path() string { return f.path }

// Duration is the container's reported duration in seconds, or 0 if
// unknown.
func (f *Fetcher) Duration() float64 { return f.facade.Duration() }

// HasVideoStream/HasAudioStream report whether the façade selected a
// stream decoder of that kind.
func (f *Fetcher) HasVideoStream() bool { return f.facade.Video != nil }
func (f *Fetcher) HasAudioStream() bool { return f.facade.Audio != nil }

// SetRequestedDims records the renderer's desired output pixel dimensions.
// Read by the video/visualization sub-loops at the top of their next
// iteration.
func (f *Fetcher) SetRequestedDims(d config.Dim2) {
	f.alterMu.Lock()
	f.requestedDims = d
	f.alterMu.Unlock()
}

// Begin spawns the video, audio, and duration-watcher workers and starts
// the media clock at currSysTime. Non-reentrant: a second call is a no-op.
func (f *Fetcher) Begin(currSysTime float64) {
	f.beginOnce.Do(func() {
		f.inUse.Store(true)
		f.alterMu.Lock()
		f.clock.Init(currSysTime)
		f.alterMu.Unlock()

		f.wg.Add(1)
		go f.videoThreadFunc()

		if f.facade.Audio != nil {
			f.wg.Add(1)
			go f.audioThreadFunc()
		}

		f.wg.Add(1)
		go f.durationWatchThreadFunc()
	})
}

// Join signals exit, pauses the clock if still playing, and blocks until
// every worker goroutine has returned.
func (f *Fetcher) Join(currSysTime float64) {
	f.inUse.Store(false)
	if f.mediaType != decode.Image && f.IsPlaying() {
		f.Pause(currSysTime)
	}
	f.broadcastExit()
	f.wg.Wait()
}

// IsPlaying reports whether the media clock is advancing.
func (f *Fetcher) IsPlaying() bool {
	f.alterMu.Lock()
	defer f.alterMu.Unlock()
	return f.clock.IsPlaying()
}

// Pause stops the clock at currSysTime. Returns ErrCannotPlayImage for
// IMAGE media.
func (f *Fetcher) Pause(currSysTime float64) error {
	if f.mediaType == decode.Image {
		return ErrCannotPlayImage
	}
	f.alterMu.Lock()
	f.clock.Stop(currSysTime)
	f.alterMu.Unlock()
	return nil
}

// Resume restarts the clock from currSysTime and wakes every worker
// sleeping on the resume condvar.
func (f *Fetcher) Resume(currSysTime float64) error {
	if f.mediaType == decode.Image {
		return ErrCannotPlayImage
	}
	f.alterMu.Lock()
	f.clock.Resume(currSysTime)
	f.alterMu.Unlock()

	f.resumeMu.Lock()
	f.resumeCond.Broadcast()
	f.resumeMu.Unlock()
	return nil
}

// GetTime returns the current playback timestamp given the current system
// time.
func (f *Fetcher) GetTime(currSysTime float64) float64 {
	f.alterMu.Lock()
	defer f.alterMu.Unlock()
	return f.clock.GetTime(currSysTime)
}

// GetAudioDesyncTime is |ring_buffer.current_time - clock.get_time(t)|, or
// 0 if the file has no audio stream (video self-paces and never desyncs
// from the clock it drives itself against).
func (f *Fetcher) GetAudioDesyncTime(currSysTime float64) float64 {
	if f.AudioBuffer == nil {
		return 0
	}
	playbackTime := f.GetTime(currSysTime)
	audioTime := f.AudioBuffer.CurrentTime()
	d := audioTime - playbackTime
	if d < 0 {
		d = -d
	}
	return d
}

// JumpToTime increments both workers' pending-seek counters and skips the
// clock by (target - current time). The counters are integers rather than
// booleans so a re-seek issued while a previous one is still draining is
// not lost. The workers themselves perform the façade seek the next time
// they observe a nonzero counter.
func (f *Fetcher) JumpToTime(target, currSysTime float64) error {
	if target < 0 || (f.facade.Duration() > 0 && target > f.facade.Duration()) {
		return ErrSeekOutOfRange
	}
	f.alterMu.Lock()
	defer f.alterMu.Unlock()

	original := f.clock.GetTime(currSysTime)
	if f.facade.Video != nil {
		f.videoSeeks++
	}
	if f.facade.Audio != nil {
		f.audioSeeks++
	}
	f.clock.Skip(target - original)
	return nil
}

// DispatchExit broadcasts on the exit and resume condvars, waking every
// sleeping worker so it observes ShouldExit() on its next check.
func (f *Fetcher) DispatchExit() {
	f.inUse.Store(false)
	f.broadcastExit()
}

// DispatchExitErr sets the terminal error (first writer wins) and then
// dispatches exit. err must be non-empty.
func (f *Fetcher) DispatchExitErr(err string) {
	if err == "" {
		panic("media: DispatchExitErr called with empty message")
	}
	f.alterMu.Lock()
	if !f.hasErr {
		f.errMsg = err
		f.hasErr = true
	}
	f.alterMu.Unlock()
	f.DispatchExit()
}

func (f *Fetcher) broadcastExit() {
	f.exitMu.Lock()
	f.exitCond.Broadcast()
	f.exitMu.Unlock()

	f.resumeMu.Lock()
	f.resumeCond.Broadcast()
	f.resumeMu.Unlock()
}

// ShouldExit reports whether exit has been dispatched.
func (f *Fetcher) ShouldExit() bool { return !f.inUse.Load() }

// HasError reports whether a terminal error has been set.
func (f *Fetcher) HasError() bool {
	f.alterMu.Lock()
	defer f.alterMu.Unlock()
	return f.hasErr
}

// Error returns the terminal error, or ErrNoError if none is set.
func (f *Fetcher) Error() error {
	f.alterMu.Lock()
	defer f.alterMu.Unlock()
	if !f.hasErr {
		return ErrNoError
	}
	return fmt.Errorf("media: %s", f.errMsg)
}

// Close releases the façade's demuxer/decoder resources. Call after Join.
func (f *Fetcher) Close() {
	f.facade.Close()
}

// waitResumeOrExit blocks until the clock is playing or exit has been
// dispatched, re-checking in timeout slices so a lost broadcast still
// produces bounded latency.
func (f *Fetcher) waitResumeOrExit(timeout time.Duration) {
	f.resumeMu.Lock()
	defer f.resumeMu.Unlock()
	timedWait(f.resumeCond, timeout, func() bool {
		return f.IsPlaying() || f.ShouldExit()
	})
}

// sleepOnExit sleeps for d or until exit is dispatched, whichever is
// first. d <= 0 returns immediately.
func (f *Fetcher) sleepOnExit(d time.Duration) {
	if d <= 0 {
		return
	}
	f.exitMu.Lock()
	defer f.exitMu.Unlock()
	timedWait(f.exitCond, d, f.ShouldExit)
}

// timedWait waits on cond (whose paired mutex must already be held by the
// caller) until ready() is true or timeout elapses. sync.Cond has no
// native timed wait, so a short-lived ticker goroutine broadcasts
// periodically to force a re-check - the same workaround
// internal/ringbuffer's Blocking.waitThen uses for an identical gap.
func timedWait(cond *sync.Cond, timeout time.Duration, ready func() bool) {
	if ready() {
		return
	}
	const pollInterval = 2 * time.Millisecond
	deadline := time.Now().Add(timeout)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		t := time.NewTicker(pollInterval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				cond.Broadcast()
			}
		}
	}()

	for !ready() {
		if !time.Now().Before(deadline) {
			return
		}
		cond.Wait()
	}
}
