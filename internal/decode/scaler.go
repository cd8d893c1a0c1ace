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

	astiav "github.com/asticode/go-astiav"
)

// Scaler converts decoded video frames into tightly packed RGB24 bytes at
// a caller-chosen destination size, reconfiguring itself only when the
// source format or destination size changes.
type Scaler struct {
	ssc    *astiav.SoftwareScaleContext
	dst    *astiav.Frame
	srcW   int
	srcH   int
	srcFmt astiav.PixelFormat
	dstW   int
	dstH   int
}

// Close releases the scaler's ffmpeg resources.
func (s *Scaler) Close() {
	if s.dst != nil {
		s.dst.Free()
		s.dst = nil
	}
	if s.ssc != nil {
		s.ssc.Free()
		s.ssc = nil
	}
}

// ensure (re)builds the scaler's internal context if the source format or
// requested destination size changed since the last call.
func (s *Scaler) ensure(src *astiav.Frame, dstW, dstH int) error {
	sw, sh := src.Width(), src.Height()
	sp := src.PixelFormat()

	if s.ssc != nil && sw == s.srcW && sh == s.srcH && sp == s.srcFmt &&
		dstW == s.dstW && dstH == s.dstH {
		return nil
	}
	s.Close()

	flags := astiav.NewSoftwareScaleContextFlags()
	ssc, err := astiav.CreateSoftwareScaleContext(
		sw, sh, sp,
		dstW, dstH, astiav.PixelFormatRgb24,
		flags,
	)
	if err != nil {
		return fmt.Errorf("CreateSoftwareScaleContext(%dx%d %v -> RGB24 %dx%d): %w", sw, sh, sp, dstW, dstH, err)
	}

	dst := astiav.AllocFrame()
	dst.SetWidth(dstW)
	dst.SetHeight(dstH)
	dst.SetPixelFormat(astiav.PixelFormatRgb24)
	if err := dst.AllocBuffer(1); err != nil {
		dst.Free()
		ssc.Free()
		return fmt.Errorf("dst.AllocBuffer: %w", err)
	}

	s.ssc = ssc
	s.dst = dst
	s.srcW, s.srcH, s.srcFmt = sw, sh, sp
	s.dstW, s.dstH = dstW, dstH
	return nil
}

// ScaleToRGB24 scales src into a dstW x dstH packed RGB24 buffer
// (row-major, 3 bytes per pixel).
func (s *Scaler) ScaleToRGB24(src *astiav.Frame, dstW, dstH int) (int, int, []byte, error) {
	if err := s.ensure(src, dstW, dstH); err != nil {
		return 0, 0, nil, err
	}
	if err := s.ssc.ScaleFrame(src, s.dst); err != nil {
		return 0, 0, nil, fmt.Errorf("ScaleFrame: %w", err)
	}
	n, err := s.dst.ImageBufferSize(1)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("ImageBufferSize: %w", err)
	}
	out := make([]byte, n)
	if _, err := s.dst.ImageCopyToBuffer(out, 1); err != nil {
		return 0, 0, nil, fmt.Errorf("ImageCopyToBuffer: %w", err)
	}
	return s.dstW, s.dstH, out, nil
}
