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

// Package audioout adapts a PCM ring buffer to an oto/v2 audio device: it
// pulls samples on demand from the device's reader callback, ramping gain
// up/down at zero-crossings so starting and stopping playback never
// clicks. oto pulls from a Reader we control, so the ramp/mute/volume math
// lives directly in Read with no extra fill goroutine.
package audioout

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/oto/v2"
)

// Source is the capability interface a ring buffer satisfies, narrowed to
// what the fill path needs. *ringbuffer.Blocking implements this directly.
type Source interface {
	TryReadInto(nb int, dst []float32, timeout time.Duration) bool
	Channels() int
	SampleRate() int
}

// State is the adapter's lifecycle state.
type State int32

const (
	Stopped State = iota
	Playing
	Stopping
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

const (
	// rampWindowSeconds bounds the start/stop gain ramp. A channel that
	// never crosses zero within this window is forced to switch anyway, so
	// a DC-biased or silent stream can't wedge playback permanently muted
	// (or permanently loud on the way down).
	rampWindowSeconds = 0.120

	pullTimeout = 2 * time.Millisecond
)

// Device is the audio-output capability: start/stop playback, report
// whether it is playing, and control volume and mute. AudioOut is the
// oto-backed implementation.
type Device interface {
	Playing() bool
	Start() error
	Stop() error
	SetVolume(v float64)
	SetMuted(m bool)
}

// AudioOut exposes Start/Stop/Playing/SetVolume/SetMuted, backed by an
// oto/v2 context pulling from a Source.
type AudioOut struct {
	ctx *oto.Context
	src Source

	state  atomic.Int32
	volume atomic.Uint64 // float64 bits, clamped to [0,1]
	muted  atomic.Bool

	mu         sync.Mutex
	player     oto.Player
	reader     *pullReader
	rampedDown chan struct{}
}

// New builds an AudioOut that plays src's frames through ctx. Volume starts
// at 1 (unmuted, full volume).
func New(ctx *oto.Context, src Source) *AudioOut {
	a := &AudioOut{ctx: ctx, src: src}
	a.volume.Store(floatBits(1))
	return a
}

// Start transitions STOPPED -> PLAYING, opening a device player whose pull
// callback is this adapter's Read. A no-op if already playing or stopping.
func (a *AudioOut) Start() error {
	if !a.state.CompareAndSwap(int32(Stopped), int32(Playing)) {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.reader = newPullReader(a.src, a)
	a.rampedDown = make(chan struct{})
	p := a.ctx.NewPlayer(a.reader)
	a.player = p
	p.Play()
	return nil
}

// Stop transitions PLAYING -> STOPPING, waits until every channel has
// ramped down (giving up after 2 seconds), then closes the device player.
// There is no sample queue between the source and the device, so no
// separate drain step follows the ramp-down. A no-op if not currently
// playing.
func (a *AudioOut) Stop() error {
	if !a.state.CompareAndSwap(int32(Playing), int32(Stopping)) {
		return nil
	}
	a.mu.Lock()
	reader := a.reader
	rampedDown := a.rampedDown
	a.mu.Unlock()
	reader.beginRampDown()

	select {
	case <-rampedDown:
	case <-time.After(2 * time.Second):
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	err := a.player.Close()
	a.state.Store(int32(Stopped))
	return err
}

// Playing reports whether the adapter is in the PLAYING state. STOPPING
// still counts as playing for callers deciding whether a stop is needed.
func (a *AudioOut) Playing() bool {
	return State(a.state.Load()) != Stopped
}

// SetVolume clamps v to [0,1] and applies it to subsequent samples.
func (a *AudioOut) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	a.volume.Store(floatBits(v))
}

func (a *AudioOut) volumeGain() float64 { return floatFromBits(a.volume.Load()) }

// SetMuted zeroes output samples without changing how the source is
// drained, so media time keeps advancing while muted.
func (a *AudioOut) SetMuted(m bool) { a.muted.Store(m) }

func (a *AudioOut) Muted() bool { return a.muted.Load() }

func floatBits(f float64) uint64     { return math.Float64bits(f) }
func floatFromBits(b uint64) float64 { return math.Float64frombits(b) }

// pullReader is the io.Reader oto's player drains. It converts interleaved
// float32 frames pulled from a Source into signed 16-bit little-endian
// PCM, applying ramp/mute/volume gain along the way.
type pullReader struct {
	src Source
	out *AudioOut

	channels   int
	rampFrames int

	upCrossed   []bool
	downCrossed []bool
	prevSign    []int8
	elapsed     []int

	rampDownStarted atomic.Bool
	rampDownDone    bool

	frameBuf []float32
}

func newPullReader(src Source, out *AudioOut) *pullReader {
	ch := src.Channels()
	r := &pullReader{
		src:         src,
		out:         out,
		channels:    ch,
		rampFrames:  int(rampWindowSeconds * float64(src.SampleRate())),
		upCrossed:   make([]bool, ch),
		downCrossed: make([]bool, ch),
		prevSign:    make([]int8, ch),
		elapsed:     make([]int, ch),
	}
	if r.rampFrames < 1 {
		r.rampFrames = 1
	}
	return r
}

func (r *pullReader) beginRampDown() {
	for c := range r.downCrossed {
		r.downCrossed[c] = false
		r.elapsed[c] = 0
		r.prevSign[c] = 0
	}
	r.rampDownStarted.Store(true)
}

// Read fills p with signed-16-bit-LE PCM. It always pulls real frames from
// the source (so the ring buffer's read position, and with it its
// CurrentTime, keeps advancing) even while stopping or muted; it only ever zeroes what gets
// written out.
func (r *pullReader) Read(p []byte) (int, error) {
	const bytesPerSample = 2
	bytesPerFrame := bytesPerSample * r.channels
	if bytesPerFrame == 0 {
		return 0, nil
	}
	nb := len(p) / bytesPerFrame
	if nb == 0 {
		return 0, nil
	}

	need := nb * r.channels
	if cap(r.frameBuf) < need {
		r.frameBuf = make([]float32, need)
	}
	buf := r.frameBuf[:need]

	n := len(p)
	if !r.src.TryReadInto(nb, buf, pullTimeout) {
		for i := range p {
			p[i] = 0
		}
		return n, nil
	}

	rampingDown := r.rampDownStarted.Load()
	muted := r.out.Muted()
	volume := r.out.volumeGain()

	allDown := true
	for i := 0; i < nb; i++ {
		for c := 0; c < r.channels; c++ {
			idx := i*r.channels + c
			sample := buf[idx]

			var gain float64
			if rampingDown {
				gain = r.downGain(c, sample)
				if !r.downCrossed[c] {
					allDown = false
				}
			} else {
				gain = r.upGain(c, sample)
			}
			if muted {
				gain = 0
			}

			out := sample * float32(gain*volume)
			binary.LittleEndian.PutUint16(p[idx*bytesPerSample:], floatToS16(out))
		}
	}

	if rampingDown && allDown && !r.rampDownDone {
		r.rampDownDone = true
		r.out.mu.Lock()
		ch := r.out.rampedDown
		r.out.mu.Unlock()
		select {
		case <-ch:
		default:
			close(ch)
		}
	}

	return n, nil
}

// upGain returns this sample's ramp-up gain (0 until the channel's first
// zero crossing or the window elapses, 1 after).
func (r *pullReader) upGain(c int, sample float32) float64 {
	if r.upCrossed[c] {
		return 1
	}
	r.observeCrossing(c, sample, r.upCrossed)
	if r.upCrossed[c] {
		return 1
	}
	return 0
}

// downGain returns this sample's ramp-down gain (1 until the channel's
// first zero crossing or the window elapses, 0 after).
func (r *pullReader) downGain(c int, sample float32) float64 {
	if r.downCrossed[c] {
		return 0
	}
	r.observeCrossing(c, sample, r.downCrossed)
	if r.downCrossed[c] {
		return 0
	}
	return 1
}

func (r *pullReader) observeCrossing(c int, sample float32, crossed []bool) {
	sign := int8(0)
	switch {
	case sample > 0:
		sign = 1
	case sample < 0:
		sign = -1
	}
	if r.prevSign[c] != 0 && sign != 0 && sign != r.prevSign[c] {
		crossed[c] = true
	}
	if sign != 0 {
		r.prevSign[c] = sign
	}
	r.elapsed[c]++
	if r.elapsed[c] >= r.rampFrames {
		crossed[c] = true
	}
}

func floatToS16(f float32) uint16 {
	if f > 1 {
		f = 1
	}
	if f < -1 {
		f = -1
	}
	return uint16(int16(f * 32767))
}
