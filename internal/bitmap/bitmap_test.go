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
package bitmap

import "testing"

func TestEmptyBeforeFirstPut(t *testing.T) {
	var b Bitmap
	if !b.Empty() {
		t.Fatalf("bitmap should be empty before any Put")
	}
	if b.Changed() {
		t.Fatalf("changed flag should be false before any Put")
	}
}

func TestPutSetsChangedAndClearsOnRead(t *testing.T) {
	var b Bitmap
	b.Put(2, 1, []Pixel{{R: 1}, {G: 2}})
	if !b.Changed() {
		t.Fatalf("expected changed flag after Put")
	}
	if b.Changed() {
		t.Fatalf("changed flag should clear on read")
	}
	snap := b.Snapshot()
	if snap.Width != 2 || snap.Height != 1 || len(snap.Pixels) != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestPutOverwritesPreviousFrame(t *testing.T) {
	var b Bitmap
	b.Put(1, 1, []Pixel{{R: 1}})
	b.Put(1, 1, []Pixel{{R: 9}})
	b.Changed() // drain
	snap := b.Snapshot()
	if snap.Pixels[0].R != 9 {
		t.Fatalf("expected latest frame only, got %+v", snap.Pixels[0])
	}
}
