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

import "time"

// Worker timing constants. Sleeps taken while paused or after a run of
// empty decodes are all bounded so exit stays responsive.
const (
	pausedSleepTime         = 100 * time.Millisecond
	defaultAvgFts           = 1.0 / 24.0 // seconds; frame period of the audio-visualization sub-loop
	audioPeekTryWait        = 100 * time.Millisecond
	audioPeekMaxSampleSize  = 2048 // ring-buffer frames*channels peeked for visualization
	audioThreadPausedSleep  = 25 * time.Millisecond
	audioBufferTryWriteWait = 25 * time.Millisecond
	maxRunsWaitTime         = 25 * time.Millisecond
	maxRunsWFail            = 5

	// durationCheckInterval paces the duration-watcher worker.
	durationCheckInterval = 250 * time.Millisecond
)
