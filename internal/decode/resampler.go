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
package decode

import (
	"fmt"
	"math"

	astiav "github.com/asticode/go-astiav"
)

// Resampler converts decoded audio frames to interleaved float32 PCM at a
// fixed output sample rate, keeping the source's own channel layout (the
// audio worker sizes its ring buffer and audio device off of whatever
// channel count the file itself carries, rather than forcing a down/up-mix
// to a hardcoded layout). The underlying swr context self-configures from
// the source/destination frames' own metadata on the first ConvertFrame
// call.
type Resampler struct {
	swr        *astiav.SoftwareResampleContext
	dst        *astiav.Frame
	sampleRate int
	channels   int
}

// NewResampler builds a resampler targeting sampleRate, Float32 samples.
func NewResampler(sampleRate int) (*Resampler, error) {
	swr := astiav.AllocSoftwareResampleContext()
	if swr == nil {
		return nil, fmt.Errorf("decode: AllocSoftwareResampleContext failed")
	}
	return &Resampler{swr: swr, dst: astiav.AllocFrame(), sampleRate: sampleRate}, nil
}

// Convert resamples src and returns interleaved float32 samples
// (len == nb_samples * channels) plus the channel count.
func (r *Resampler) Convert(src *astiav.Frame) ([]float32, int, error) {
	channels := src.ChannelLayout().Channels()

	r.dst.Unref()
	r.dst.SetChannelLayout(src.ChannelLayout())
	r.dst.SetSampleRate(r.sampleRate)
	r.dst.SetSampleFormat(astiav.SampleFormatFlt)
	// Output frame count scales with the rate change; oversize slightly
	// and trust NbSamples() after conversion for the true count.
	nb := src.NbSamples()*r.sampleRate/src.SampleRate() + 32
	r.dst.SetNbSamples(nb)
	if err := r.dst.AllocBuffer(0); err != nil {
		return nil, 0, fmt.Errorf("decode: resample AllocBuffer: %w", err)
	}

	if err := r.swr.ConvertFrame(src, r.dst); err != nil {
		return nil, 0, fmt.Errorf("decode: ConvertFrame: %w", err)
	}
	r.channels = channels

	n := r.dst.NbSamples() * channels
	raw, err := r.dst.Data().Bytes(0)
	if err != nil {
		return nil, 0, fmt.Errorf("decode: resampled Data: %w", err)
	}
	out := make([]float32, n)
	if err := bytesToFloat32(raw, out); err != nil {
		return nil, 0, err
	}
	return out, channels, nil
}

// DrainDelay flushes any samples the resampler is internally buffering
// (e.g. due to rate conversion), called once per audio-worker iteration.
func (r *Resampler) DrainDelay() ([]float32, error) {
	r.dst.Unref()
	r.dst.SetSampleFormat(astiav.SampleFormatFlt)
	r.dst.SetSampleRate(r.sampleRate)
	r.dst.SetNbSamples(256)
	if err := r.dst.AllocBuffer(0); err != nil {
		return nil, fmt.Errorf("decode: drain AllocBuffer: %w", err)
	}
	if err := r.swr.ConvertFrame(nil, r.dst); err != nil {
		return nil, nil // no delayed samples buffered; not an error condition
	}
	n := r.dst.NbSamples() * r.channels
	if n == 0 {
		return nil, nil
	}
	raw, err := r.dst.Data().Bytes(0)
	if err != nil {
		return nil, fmt.Errorf("decode: drain Data: %w", err)
	}
	out := make([]float32, n)
	if err := bytesToFloat32(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resampler) Close() {
	if r.dst != nil {
		r.dst.Free()
		r.dst = nil
	}
	if r.swr != nil {
		r.swr.Free()
		r.swr = nil
	}
}

func bytesToFloat32(raw []byte, out []float32) error {
	need := len(out) * 4
	if len(raw) < need {
		return fmt.Errorf("decode: resampled buffer too small: got %d want %d", len(raw), need)
	}
	for i := range out {
		bits := uint32(raw[i*4]) | uint32(raw[i*4+1])<<8 | uint32(raw[i*4+2])<<16 | uint32(raw[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return nil
}
