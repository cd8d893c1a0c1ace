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
	"time"

	astiav "github.com/asticode/go-astiav"

	"github.com/tmedia-go/tmedia/internal/bitmap"
)

// nowSeconds is the fetcher's system-clock source, matching the
// float64-seconds convention clock.Clock expects.
func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// durationFromSeconds converts a signed seconds value into a
// non-negative time.Duration, treating non-positive input as "no wait".
func durationFromSeconds(sec float64) time.Duration {
	if sec <= 0 {
		return 0
	}
	return time.Duration(sec * float64(time.Second))
}

// freeFrames releases a decoded-frame batch returned by decode.Facade's
// NextFrames.
func freeFrames(frames []*astiav.Frame) {
	for _, fr := range frames {
		fr.Unref()
		fr.Free()
	}
}

// rgbToPixels reinterprets a tightly packed RGB24 byte buffer (as
// produced by decode.Scaler) as a row-major Pixel slice.
func rgbToPixels(rgb []byte) []bitmap.Pixel {
	n := len(rgb) / 3
	out := make([]bitmap.Pixel, n)
	for i := 0; i < n; i++ {
		out[i] = bitmap.Pixel{R: rgb[i*3], G: rgb[i*3+1], B: rgb[i*3+2]}
	}
	return out
}

// renderWaveform downmixes an interleaved float32 audio peek to a mono
// signal in [-1,1] and draws it as a centered waveform trace across a
// width x height grid.
func renderWaveform(buf []float32, nbFrames, channels, width, height int) []bitmap.Pixel {
	pixels := make([]bitmap.Pixel, width*height)
	if width <= 0 || height <= 0 || nbFrames <= 0 || channels <= 0 {
		return pixels
	}
	mid := height / 2

	for x := 0; x < width; x++ {
		idx := x * nbFrames / width
		if idx >= nbFrames {
			idx = nbFrames - 1
		}

		var sum float32
		for c := 0; c < channels; c++ {
			sum += buf[idx*channels+c]
		}
		mono := sum / float32(channels)
		if mono > 1 {
			mono = 1
		} else if mono < -1 {
			mono = -1
		}

		yOffset := int(mono * float32(mid))
		y0, y1 := mid, mid-yOffset
		if y0 > y1 {
			y0, y1 = y1, y0
		}
		for y := y0; y <= y1 && y < height; y++ {
			if y < 0 {
				continue
			}
			pixels[y*width+x] = bitmap.Pixel{G: 200}
		}
	}
	return pixels
}
