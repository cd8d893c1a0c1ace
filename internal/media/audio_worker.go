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

// audioThreadFunc opens its own demuxer handle on the same path (so the
// audio and video workers never contend over one container's seek
// position), builds a resampler, and loops decoding/resampling/writing
// into the shared ring buffer until exit.
func (f *Fetcher) audioThreadFunc() {
	defer f.wg.Done()

	aFacade, err := decode.Open(f.path, decode.WantAudio, f.flags.Has(config.IgnoreAttachedPic))
	if err != nil {
		f.logComponent(slog.LevelError, "audio", "audio worker open failed", "error", err)
		f.DispatchExitErr(fmt.Sprintf("audio worker open: %v", err))
		return
	}
	defer aFacade.Close()

	sd := aFacade.Audio
	if sd == nil {
		return
	}

	resampler, err := decode.NewResampler(sd.SampleRate())
	if err != nil {
		f.logComponent(slog.LevelError, "audio", "audio worker resampler init failed", "error", err)
		f.DispatchExitErr(fmt.Sprintf("audio worker resampler: %v", err))
		return
	}
	defer resampler.Close()

	// Respect the container's start offset before decoding the first
	// packet.
	f.sleepOnExit(durationFromSeconds(sd.StartTimeSec()))

	runsWFail := 0
	for !f.ShouldExit() {
		f.waitResumeOrExit(audioThreadPausedSleep)
		if f.ShouldExit() {
			break
		}

		frames, err := aFacade.NextFrames(sd)
		if err != nil {
			f.logComponent(slog.LevelError, "audio", "audio decode failed", "error", err)
			f.DispatchExitErr(fmt.Sprintf("audio decode: %v", err))
			return
		}

		f.alterMu.Lock()
		currentTime := f.clock.GetTime(nowSeconds())
		seekPending := f.audioSeeks > 0
		f.alterMu.Unlock()

		if seekPending {
			freeFrames(frames)
			if err := aFacade.JumpToTime(currentTime); err != nil {
				f.logComponent(slog.LevelError, "audio", "audio seek failed", "error", err)
				f.DispatchExitErr(fmt.Sprintf("audio seek: %v", err))
				return
			}
			frames, err = aFacade.NextFrames(sd)
			if err != nil {
				f.logComponent(slog.LevelError, "audio", "audio decode after seek failed", "error", err)
				f.DispatchExitErr(fmt.Sprintf("audio decode after seek: %v", err))
				return
			}
			// The buffer's start_time is only ever re-anchored here, after
			// the jump+decode round-trip has completed.
			f.AudioBuffer.Clear(currentTime)
			f.alterMu.Lock()
			f.audioSeeks--
			f.alterMu.Unlock()
		}

		if len(frames) == 0 {
			runsWFail++
		}
		for _, frame := range frames {
			runsWFail = 0
			samples, channels, err := resampler.Convert(frame)
			frame.Unref()
			frame.Free()
			if err != nil {
				f.logComponent(slog.LevelError, "audio", "audio resample failed", "error", err)
				f.DispatchExitErr(fmt.Sprintf("audio resample: %v", err))
				return
			}
			f.writeAllFrames(samples, channels)
			if f.ShouldExit() {
				return
			}
		}

		// Drain any samples the resampler is still internally buffering
		// (rate-conversion delay) before the next iteration.
		for {
			samples, err := resampler.DrainDelay()
			if err != nil || len(samples) == 0 {
				break
			}
			f.writeAllFrames(samples, sd.Channels())
			if f.ShouldExit() {
				return
			}
		}

		if runsWFail >= maxRunsWFail {
			runsWFail = 0
			f.sleepOnExit(maxRunsWaitTime)
		}
	}
}

// writeAllFrames retries TryWriteInto until it succeeds or exit is
// dispatched, so the worker never blocks past a bounded timeout while the
// fetcher is being torn down.
func (f *Fetcher) writeAllFrames(samples []float32, channels int) {
	if channels == 0 {
		return
	}
	nb := len(samples) / channels
	if nb == 0 {
		return
	}
	for !f.AudioBuffer.TryWriteInto(nb, samples, audioBufferTryWriteWait) {
		if f.ShouldExit() {
			return
		}
	}
}
