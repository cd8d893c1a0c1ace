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

// Package bitmap implements the shared pixel buffer a video worker
// publishes into and a renderer samples from.
package bitmap

import "sync/atomic"

// Pixel is a 24-bit RGB triple.
type Pixel struct {
	R, G, B uint8
}

// payload is the immutable snapshot published by Bitmap.Put. Readers take
// a cheap copy of the pointer rather than the pixel array itself.
type payload struct {
	width, height int
	pixels        []Pixel // row-major, len == width*height
}

// Bitmap is the shared, snapshotable pixel grid between the video worker
// and a renderer: the worker is the sole producer (overwrite in place,
// never queued - only the latest frame matters) and any number of readers
// copy-on-read under the changed flag.
//
// Mutation happens by swapping an atomic pointer to an immutable payload,
// so producers never block readers and readers never see a half-written
// frame, without taking a mutex on the hot path.
type Bitmap struct {
	cur     atomic.Pointer[payload]
	changed atomic.Bool
}

// Put publishes a new frame. pixels must be row-major, len == width*height,
// and must not be mutated by the caller afterwards (ownership transfers).
func (b *Bitmap) Put(width, height int, pixels []Pixel) {
	b.cur.Store(&payload{width: width, height: height, pixels: pixels})
	b.changed.Store(true)
}

// Snapshot is a read-only view of one published frame.
type Snapshot struct {
	Width, Height int
	Pixels        []Pixel
}

// Empty reports whether the bitmap has never had a frame published to it.
func (b *Bitmap) Empty() bool {
	p := b.cur.Load()
	return p == nil || p.width == 0 || p.height == 0
}

// Snapshot returns the most recently published frame without copying its
// pixel data (the payload is immutable once published).
func (b *Bitmap) Snapshot() Snapshot {
	p := b.cur.Load()
	if p == nil {
		return Snapshot{}
	}
	return Snapshot{Width: p.width, Height: p.height, Pixels: p.pixels}
}

// Changed reports whether a new frame has been published since the last
// Changed call, and clears the flag as it reads it (clear-on-read).
func (b *Bitmap) Changed() bool {
	return b.changed.Swap(false)
}
