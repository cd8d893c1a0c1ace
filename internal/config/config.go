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

// Package config holds the fetcher's read-only-after-begin options: the
// VISUALIZE_VIDEO/IGNORE_ATTACHED_PIC flag bitset, the pixel-aspect-ratio
// bounding rule used to size decoded frames for a character-cell terminal,
// and an optional on-disk defaults file.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// Flags is the fetcher's read-only-after-begin option bitset.
type Flags uint32

const (
	// VisualizeVideo forces the audio-visualization sub-loop even when the
	// file carries a usable attached picture.
	VisualizeVideo Flags = 1 << iota
	// IgnoreAttachedPic tells the façade to treat an attached-picture
	// stream as if it did not exist during classification.
	IgnoreAttachedPic
)

func (f Flags) Has(flag Flags) bool { return f&flag != 0 }

// Dim2 is a requested or computed (width, height) in pixels.
type Dim2 struct {
	Width, Height int
}

// Pixel-aspect-ratio constants: terminal cells are taller than wide, so a
// source frame is stretched by 5:2 before bounding.
const (
	ParWidth  = 2
	ParHeight = 5

	MaxFrameWidth  = 640
	MaxFrameHeight = MaxFrameWidth * 9 * ParWidth / (16 * ParHeight)
)

// BoundDims fits a srcW x srcH rectangle (already pixel-aspect-corrected by
// the caller) within a boundW x boundH box, preserving aspect ratio.
func BoundDims(srcW, srcH, boundW, boundH int) Dim2 {
	if srcW <= 0 || srcH <= 0 || boundW <= 0 || boundH <= 0 {
		return Dim2{}
	}
	// Scale down to fit both dimensions; never scale up past the source.
	wScale := float64(boundW) / float64(srcW)
	hScale := float64(boundH) / float64(srcH)
	scale := wScale
	if hScale < scale {
		scale = hScale
	}
	if scale > 1 {
		scale = 1
	}
	w := int(float64(srcW) * scale)
	h := int(float64(srcH) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return Dim2{Width: w, Height: h}
}

// OutputDims applies the full pixel-aspect-scaling rule: bound
// srcW*ParHeight x srcH*ParWidth against the requested dims, then bound
// again against the absolute maxima.
func OutputDims(srcW, srcH int, requested Dim2) Dim2 {
	parCorrected := BoundDims(srcW*ParHeight, srcH*ParWidth, requested.Width, requested.Height)
	return BoundDims(parCorrected.Width, parCorrected.Height, MaxFrameWidth, MaxFrameHeight)
}

// Defaults is the small set of fetcher defaults an owning process may want
// to persist across runs. Playback state itself is never persisted.
type Defaults struct {
	RequestedWidth  int  `yaml:"requested_width,omitempty"`
	RequestedHeight int  `yaml:"requested_height,omitempty"`
	VisualizeVideo  bool `yaml:"visualize_video,omitempty"`
	IgnoreAttached  bool `yaml:"ignore_attached_pic,omitempty"`
	Volume          int  `yaml:"volume,omitempty"` // 0..100
}

// Flags converts the persisted booleans into a Flags bitset.
func (d Defaults) Flags() Flags {
	var f Flags
	if d.VisualizeVideo {
		f |= VisualizeVideo
	}
	if d.IgnoreAttached {
		f |= IgnoreAttachedPic
	}
	return f
}

// LoadDefaults reads a YAML defaults file.
func LoadDefaults(path string) (Defaults, error) {
	var d Defaults
	b, err := os.ReadFile(path)
	if err != nil {
		return d, err
	}
	if err := yaml.Unmarshal(b, &d); err != nil {
		return d, err
	}
	return d, nil
}

// SaveDefaults writes d to path atomically (write to a temp file, then
// rename).
func SaveDefaults(path string, d Defaults) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(f)
	if err := enc.Encode(&d); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
