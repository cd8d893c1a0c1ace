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

import "testing"

func TestClassifyKnownImageFormat(t *testing.T) {
	if got := classify("png_pipe", 0, -1, false, 0); got != Image {
		t.Fatalf("want Image, got %v", got)
	}
}

func TestClassifyKnownAudioFormat(t *testing.T) {
	if got := classify("mp3", -1, 0, false, 120); got != Audio {
		t.Fatalf("want Audio, got %v", got)
	}
}

func TestClassifyKnownVideoFormat(t *testing.T) {
	if got := classify("mpegts", 0, 0, false, 120); got != Video {
		t.Fatalf("want Video, got %v", got)
	}
}

func TestClassifyVideoNoAudioNoDurationIsImage(t *testing.T) {
	// step 4: a video stream, no audio, no duration.
	if got := classify("unknownfmt", 0, -1, false, 0); got != Image {
		t.Fatalf("want Image (step 4), got %v", got)
	}
}

func TestClassifyAllAttachedPicWithAudioIsAudio(t *testing.T) {
	// step 5: every video stream is attached-picture, audio exists.
	if got := classify("unknownfmt", 0, 0, true, 200); got != Audio {
		t.Fatalf("want Audio (step 5), got %v", got)
	}
}

func TestClassifyAllAttachedPicNoAudioIsImage(t *testing.T) {
	// step 5: a nonzero duration keeps step 4 from deciding first.
	if got := classify("unknownfmt", 0, -1, true, 200); got != Image {
		t.Fatalf("want Image (step 5, no audio), got %v", got)
	}
}

func TestClassifyVideoStreamIsVideo(t *testing.T) {
	// step 6: a (non-attached-pic) video stream exists.
	if got := classify("unknownfmt", 0, -1, false, 300); got != Video {
		t.Fatalf("want Video (step 6), got %v", got)
	}
}

func TestClassifyAudioOnlyIsAudio(t *testing.T) {
	// step 7: no video stream, audio exists.
	if got := classify("unknownfmt", -1, 0, false, 100); got != Audio {
		t.Fatalf("want Audio (step 7), got %v", got)
	}
}

func TestClassifyNeitherStreamIsUnknown(t *testing.T) {
	// step 8: fails.
	if got := classify("unknownfmt", -1, -1, false, 0); got != MediaType(-1) {
		t.Fatalf("want UnknownMediaType, got %v", got)
	}
}

func TestMediaTypeString(t *testing.T) {
	cases := map[MediaType]string{Video: "video", Audio: "audio", Image: "image", MediaType(99): "unknown"}
	for mt, want := range cases {
		if got := mt.String(); got != want {
			t.Fatalf("MediaType(%d).String() = %q, want %q", mt, got, want)
		}
	}
}
