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
	"fmt"
	"log/slog"

	"github.com/tmedia-go/tmedia/internal/config"
	"github.com/tmedia-go/tmedia/internal/decode"
)

// videoThreadFunc picks one of three sub-loops based on media type and
// stream availability, then runs it to completion. A sub-loop error is
// terminal for the whole fetcher.
func (f *Fetcher) videoThreadFunc() {
	defer f.wg.Done()

	var err error
	switch {
	case f.facade.Video != nil && f.mediaType == decode.Image:
		err = f.imageSubLoop()
	case f.facade.Video != nil && f.mediaType == decode.Audio:
		f.frameAudioFetchingFunc()
	case f.facade.Video != nil && f.mediaType == decode.Video:
		err = f.videoSubLoop()
	case f.facade.Audio != nil:
		f.audioVisualizationSubLoop()
	}

	if err != nil {
		f.logComponent(slog.LevelError, "video", "video worker failed", "error", err)
		f.DispatchExitErr(err.Error())
	}
}

// videoSubLoop paces decoded video frames against the media clock,
// reconfiguring the scaler when the renderer's requested dimensions change
// and servicing pending seeks.
func (f *Fetcher) videoSubLoop() error {
	sd := f.facade.Video
	scaler := &decode.Scaler{}
	defer scaler.Close()

	srcW, srcH := sd.Width(), sd.Height()
	outDim := config.BoundDims(srcW*config.ParHeight, srcH*config.ParWidth, config.MaxFrameWidth, config.MaxFrameHeight)

	runsWFail := 0
	for !f.ShouldExit() {
		f.waitResumeOrExit(pausedSleepTime)
		if f.ShouldExit() {
			break
		}

		f.alterMu.Lock()
		req := f.requestedDims
		f.alterMu.Unlock()
		if req.Width > 0 && req.Height > 0 {
			parCorrected := config.BoundDims(srcW*config.ParHeight, srcH*config.ParWidth, req.Width, req.Height)
			outDim = config.BoundDims(parCorrected.Width, parCorrected.Height, config.MaxFrameWidth, config.MaxFrameHeight)
		}

		frames, err := f.facade.NextFrames(sd)
		if err != nil {
			return fmt.Errorf("video decode: %w", err)
		}

		f.alterMu.Lock()
		currentTime := f.clock.GetTime(nowSeconds())
		seekPending := f.videoSeeks > 0
		bitmapEmpty := f.Bitmap.Empty()
		f.alterMu.Unlock()

		if seekPending {
			freeFrames(frames)
			if err := f.facade.JumpToTime(currentTime); err != nil {
				return fmt.Errorf("video seek: %w", err)
			}
			frames, err = f.facade.NextFrames(sd)
			if err != nil {
				return fmt.Errorf("video decode after seek: %w", err)
			}
			f.alterMu.Lock()
			f.videoSeeks--
			f.alterMu.Unlock()
		}

		if len(frames) > 0 {
			runsWFail = 0
			framePts := sd.PtsToSec(frames[0].Pts())
			waitDuration := framePts - currentTime

			if waitDuration > 0 || bitmapEmpty {
				last := frames[len(frames)-1]
				w, h, rgb, err := scaler.ScaleToRGB24(last, outDim.Width, outDim.Height)
				if err != nil {
					freeFrames(frames)
					return fmt.Errorf("video scale: %w", err)
				}
				f.Bitmap.Put(w, h, rgbToPixels(rgb))
			}
			freeFrames(frames)

			f.sleepOnExit(durationFromSeconds(waitDuration))
		} else {
			runsWFail++
			if runsWFail >= maxRunsWFail {
				runsWFail = 0
				f.sleepOnExit(maxRunsWaitTime)
			}
		}
	}
	return nil
}

// imageSubLoop decodes exactly one frame, scales it, publishes it, and
// returns.
func (f *Fetcher) imageSubLoop() error {
	sd := f.facade.Video
	scaler := &decode.Scaler{}
	defer scaler.Close()

	srcW, srcH := sd.Width(), sd.Height()
	outDim := config.BoundDims(srcW*config.ParHeight, srcH*config.ParWidth, config.MaxFrameWidth, config.MaxFrameHeight)

	frames, err := f.facade.NextFrames(sd)
	if err != nil {
		return fmt.Errorf("image decode: %w", err)
	}
	defer freeFrames(frames)
	if len(frames) == 0 {
		return fmt.Errorf("image decode: no frame available")
	}

	last := frames[len(frames)-1]
	w, h, rgb, err := scaler.ScaleToRGB24(last, outDim.Width, outDim.Height)
	if err != nil {
		return fmt.Errorf("image scale: %w", err)
	}
	f.Bitmap.Put(w, h, rgbToPixels(rgb))
	return nil
}

// frameAudioFetchingFunc handles audio files that still carry a video
// stream (an attached picture, given the classification): unless
// VisualizeVideo forces the waveform, try to decode the picture as a cover
// image first; on failure fall through to the visualization sub-loop
// rather than raising an error.
func (f *Fetcher) frameAudioFetchingFunc() {
	if f.facade.Video != nil && !f.flags.Has(config.VisualizeVideo) {
		if err := f.imageSubLoop(); err == nil {
			return
		}
	}
	f.audioVisualizationSubLoop()
}

// audioVisualizationSubLoop periodically peeks (never consumes) the
// audio ring buffer and renders a waveform snapshot into the bitmap.
func (f *Fetcher) audioVisualizationSubLoop() {
	rb := f.AudioBuffer
	if rb == nil {
		return
	}
	nbCh := rb.Channels()
	if nbCh == 0 {
		return
	}
	framesPerPeek := audioPeekMaxSampleSize / nbCh
	buf := make([]float32, framesPerPeek*nbCh)

	visDim := f.visualizationDims()

	for !f.ShouldExit() {
		f.waitResumeOrExit(pausedSleepTime)
		if f.ShouldExit() {
			break
		}

		if rb.TryPeekInto(framesPerPeek, buf, audioPeekTryWait) {
			pixels := renderWaveform(buf, framesPerPeek, nbCh, visDim.Width, visDim.Height)
			f.Bitmap.Put(visDim.Width, visDim.Height, pixels)
			visDim = f.visualizationDims()
		}

		f.sleepOnExit(durationFromSeconds(defaultAvgFts))
	}
}

func (f *Fetcher) visualizationDims() config.Dim2 {
	f.alterMu.Lock()
	req := f.requestedDims
	f.alterMu.Unlock()
	if req.Width <= 0 || req.Height <= 0 {
		return config.Dim2{Width: config.MaxFrameWidth, Height: config.MaxFrameHeight}
	}
	return config.BoundDims(req.Width, req.Height, config.MaxFrameWidth, config.MaxFrameHeight)
}
