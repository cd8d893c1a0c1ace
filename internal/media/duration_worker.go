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
	"log/slog"

	"github.com/tmedia-go/tmedia/internal/decode"
)

// durationWatchThreadFunc watches the media clock against the container's
// reported duration and dispatches a clean (non-error) exit once playback
// has reached the end, so the owning thread's HasError()==false path after
// Join reads as end-of-stream.
func (f *Fetcher) durationWatchThreadFunc() {
	defer f.wg.Done()

	if f.mediaType == decode.Image {
		return
	}
	duration := f.facade.Duration()
	if duration <= 0 {
		return
	}

	for !f.ShouldExit() {
		if f.GetTime(nowSeconds()) >= duration {
			f.logComponent(slog.LevelInfo, "clock", "reached end of stream", "duration", duration)
			f.DispatchExit()
			return
		}
		f.sleepOnExit(durationCheckInterval)
	}
}
