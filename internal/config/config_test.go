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
package config

import (
	"path/filepath"
	"testing"
)

func TestFlagsHas(t *testing.T) {
	f := VisualizeVideo | IgnoreAttachedPic
	if !f.Has(VisualizeVideo) || !f.Has(IgnoreAttachedPic) {
		t.Fatalf("expected both flags set")
	}
	if Flags(0).Has(VisualizeVideo) {
		t.Fatalf("zero value should have no flags")
	}
}

func TestMaxFrameHeightDerivation(t *testing.T) {
	want := MaxFrameWidth * 9 * ParWidth / (16 * ParHeight)
	if MaxFrameHeight != want {
		t.Fatalf("want %d got %d", want, MaxFrameHeight)
	}
}

func TestBoundDimsPreservesAspectAndNeverUpscales(t *testing.T) {
	got := BoundDims(100, 50, 40, 40)
	if got.Width != 40 || got.Height != 20 {
		t.Fatalf("unexpected bound: %+v", got)
	}
	got = BoundDims(10, 10, 1000, 1000)
	if got.Width != 10 || got.Height != 10 {
		t.Fatalf("should not upscale past source, got %+v", got)
	}
}

func TestOutputDimsClampsToAbsoluteMaxima(t *testing.T) {
	got := OutputDims(10000, 10000, Dim2{Width: 100000, Height: 100000})
	if got.Width > MaxFrameWidth || got.Height > MaxFrameHeight {
		t.Fatalf("exceeded absolute maxima: %+v", got)
	}
}

func TestSaveAndLoadDefaultsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "defaults.yaml")

	want := Defaults{
		RequestedWidth:  320,
		RequestedHeight: 240,
		VisualizeVideo:  true,
		Volume:          50,
	}
	if err := SaveDefaults(path, want); err != nil {
		t.Fatalf("SaveDefaults: %v", err)
	}
	got, err := LoadDefaults(path)
	if err != nil {
		t.Fatalf("LoadDefaults: %v", err)
	}
	if got != want {
		t.Fatalf("want %+v got %+v", want, got)
	}
	if !got.Flags().Has(VisualizeVideo) {
		t.Fatalf("expected VisualizeVideo flag derived from defaults")
	}
	if got.Flags().Has(IgnoreAttachedPic) {
		t.Fatalf("did not expect IgnoreAttachedPic flag")
	}
}
