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
package audioout

import (
	"encoding/binary"
	"testing"
	"time"
)

// fakeSource emits a fixed mono waveform that crosses zero every other
// sample, so ramp logic can be exercised without a real ring buffer.
type fakeSource struct {
	wave     []float32
	pos      int
	channels int
	rate     int
	fail     bool
}

func (f *fakeSource) Channels() int   { return f.channels }
func (f *fakeSource) SampleRate() int { return f.rate }

func (f *fakeSource) TryReadInto(nb int, dst []float32, _ time.Duration) bool {
	if f.fail {
		return false
	}
	for i := 0; i < nb*f.channels; i++ {
		dst[i] = f.wave[f.pos%len(f.wave)]
		f.pos++
	}
	return true
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		wave:     []float32{0.5, -0.5, 0.5, -0.5, 0.5, -0.5, 0.5, -0.5},
		channels: 1,
		rate:     8000,
	}
}

func decodeS16(p []byte) []int16 {
	out := make([]int16, len(p)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(p[i*2:]))
	}
	return out
}

func TestRampUpStartsSilentThenOpensAtZeroCrossing(t *testing.T) {
	src := newFakeSource()
	out := New(nil, src)
	r := newPullReader(src, out)

	buf := make([]byte, 8*2) // 8 mono frames
	n, err := r.Read(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("Read: n=%d err=%v", n, err)
	}
	samples := decodeS16(buf)
	if samples[0] != 0 {
		t.Fatalf("first sample should be silenced during ramp-up, got %d", samples[0])
	}
	sawNonZero := false
	for _, s := range samples {
		if s != 0 {
			sawNonZero = true
		}
	}
	if !sawNonZero {
		t.Fatalf("ramp-up should eventually pass signal through once crossed, all samples were zero")
	}
}

func TestRampDownEndsSilentAndSignalsDrain(t *testing.T) {
	src := newFakeSource()
	out := New(nil, src)
	r := newPullReader(src, out)
	out.rampedDown = make(chan struct{})

	// Warm past ramp-up so the signal is flowing.
	warm := make([]byte, 4*2)
	r.Read(warm)

	r.beginRampDown()
	// rampFrames for 8kHz is int(0.12*8000) = 960 frames; drive enough
	// reads for the forced-switch fallback to guarantee termination.
	var last []int16
	for i := 0; i < 300; i++ {
		buf := make([]byte, 8*2)
		r.Read(buf)
		last = decodeS16(buf)
	}
	for _, s := range last {
		if s != 0 {
			t.Fatalf("expected ramp-down to reach silence, got %v", last)
		}
	}
	select {
	case <-out.rampedDown:
	default:
		t.Fatalf("expected rampedDown channel to be closed once all channels ramped down")
	}
}

func TestMuteZeroesOutputButStillDrainsSource(t *testing.T) {
	src := newFakeSource()
	out := New(nil, src)
	out.SetMuted(true)
	r := newPullReader(src, out)

	// Pass ramp-up quickly by forcing upCrossed.
	r.upCrossed[0] = true

	buf := make([]byte, 4*2)
	r.Read(buf)
	for _, b := range decodeS16(buf) {
		if b != 0 {
			t.Fatalf("muted output should be all zero, got %v", b)
		}
	}
	if src.pos == 0 {
		t.Fatalf("muting must not stop draining the source")
	}
}

func TestUnderrunProducesSilenceWithoutBlocking(t *testing.T) {
	src := newFakeSource()
	src.fail = true
	out := New(nil, src)
	r := newPullReader(src, out)

	buf := make([]byte, 4*2)
	n, err := r.Read(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("Read: n=%d err=%v", n, err)
	}
	for _, b := range buf {
		if b != 0 {
			t.Fatalf("underrun should yield silence, got %v", buf)
		}
	}
}

func TestVolumeClamped(t *testing.T) {
	out := New(nil, newFakeSource())
	out.SetVolume(5)
	if g := out.volumeGain(); g != 1 {
		t.Fatalf("volume should clamp to 1, got %v", g)
	}
	out.SetVolume(-5)
	if g := out.volumeGain(); g != 0 {
		t.Fatalf("volume should clamp to 0, got %v", g)
	}
}

func TestStateString(t *testing.T) {
	if Stopped.String() != "stopped" || Playing.String() != "playing" || Stopping.String() != "stopping" {
		t.Fatalf("unexpected state strings")
	}
}
