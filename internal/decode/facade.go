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

// Package decode wraps go-astiav into a demuxer/decoder façade: open a
// container, refuse blacklisted formats, select at most one best video and
// one best audio stream, classify the file as VIDEO/AUDIO/IMAGE, decode
// batches of frames on demand, and support timestamp seeks that reset
// decoder state.
package decode

import (
	"errors"
	"fmt"

	astiav "github.com/asticode/go-astiav"
)

// MediaType is the classification assigned to an opened file, decided once
// at open time from container and stream inspection.
type MediaType int

const (
	Video MediaType = iota
	Audio
	Image
)

func (m MediaType) String() string {
	switch m {
	case Video:
		return "video"
	case Audio:
		return "audio"
	case Image:
		return "image"
	default:
		return "unknown"
	}
}

// StreamsMask selects which stream kinds the caller wants opened.
type StreamsMask uint8

const (
	WantVideo StreamsMask = 1 << iota
	WantAudio
)

// avTimeBase mirrors libavutil's AV_TIME_BASE: the fixed 1/1,000,000s unit
// FormatContext-level seeks and durations are expressed in, independent of
// any one stream's time base.
const avTimeBase = 1_000_000

var (
	ErrOpenFailure            = errors.New("decode: open failure")
	ErrUnsupportedFormat      = errors.New("decode: format is blacklisted")
	ErrStreamSelectionFailure = errors.New("decode: stream selection failure")
	ErrUnknownMediaType       = errors.New("decode: unknown media type")
	ErrSeekOutOfRange         = errors.New("decode: seek target out of range")
)

// blacklistedFormats are short-name demuxers refused as playable media
// (the "tty" pseudo-format ffmpeg uses for raw ANSI captures).
var blacklistedFormats = map[string]bool{
	"tty": true,
}

// imageFormats/audioFormats/videoFormats are the known-format sets checked
// first during classification. They are not exhaustive of every
// libavformat short name, only of the common containers a media player is
// expected to see.
var imageFormats = map[string]bool{
	"image2":    true,
	"png_pipe":  true,
	"jpeg_pipe": true,
	"bmp_pipe":  true,
	"gif":       true,
	"webp_pipe": true,
	"tiff_pipe": true,
}

var audioFormats = map[string]bool{
	"mp3":  true,
	"flac": true,
	"wav":  true,
	"ogg":  true,
	"wv":   true,
	"tta":  true,
	"aac":  true,
	"ac3":  true,
}

var videoFormats = map[string]bool{
	"matroska,webm":           true,
	"mov,mp4,m4a,3gp,3g2,mj2": true,
	"avi":                     true,
	"mpegts":                  true,
	"flv":                     true,
	"asf":                     true,
}

// Facade owns one container handle and its selected video/audio
// StreamDecoders.
type Facade struct {
	path string

	fc *astiav.FormatContext

	mediaType MediaType

	Video *StreamDecoder
	Audio *StreamDecoder

	durationSec float64
	startSec    float64
}

// Open opens path, rejects blacklisted formats, selects streams per mask,
// and classifies the result. ignoreAttachedPic treats attached-picture
// video streams as if they did not exist during classification and stream
// selection.
func Open(path string, mask StreamsMask, ignoreAttachedPic bool) (*Facade, error) {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, fmt.Errorf("%w: AllocFormatContext", ErrOpenFailure)
	}

	if err := fc.OpenInput(path, nil, nil); err != nil {
		fc.Free()
		return nil, fmt.Errorf("%w: OpenInput: %v", ErrOpenFailure, err)
	}
	if err := fc.FindStreamInfo(nil); err != nil {
		fc.CloseInput()
		return nil, fmt.Errorf("%w: FindStreamInfo: %v", ErrOpenFailure, err)
	}

	formatName := fc.InputFormat().Name()
	if blacklistedFormats[formatName] {
		fc.CloseInput()
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, formatName)
	}

	f := &Facade{path: path, fc: fc}

	vIdx, aIdx, hasAttachedPicOnly := selectStreams(fc, mask, ignoreAttachedPic)

	durationSec := 0.0
	if d := fc.Duration(); d > 0 {
		durationSec = float64(d) / avTimeBase
	}
	f.mediaType = classify(formatName, vIdx, aIdx, hasAttachedPicOnly, durationSec)
	if f.mediaType == -1 {
		fc.CloseInput()
		return nil, ErrUnknownMediaType
	}

	if vIdx >= 0 {
		sd, err := newStreamDecoder(fc, vIdx)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: video: %v", ErrStreamSelectionFailure, err)
		}
		f.Video = sd
	}
	if aIdx >= 0 {
		sd, err := newStreamDecoder(fc, aIdx)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: audio: %v", ErrStreamSelectionFailure, err)
		}
		f.Audio = sd
	}

	f.durationSec = durationSec
	if vIdx >= 0 {
		f.startSec = f.Video.StartTimeSec()
	} else if aIdx >= 0 {
		f.startSec = f.Audio.StartTimeSec()
	}

	return f, nil
}

// selectStreams picks the best (first) video and audio stream indexes,
// reporting whether every candidate video stream turned out to be an
// attached picture (and was therefore skipped when ignoreAttachedPic, or
// counted towards the "all attached picture" classification rule when
// not).
func selectStreams(fc *astiav.FormatContext, mask StreamsMask, ignoreAttachedPic bool) (vIdx, aIdx int, allAttachedPic bool) {
	vIdx, aIdx = -1, -1
	sawVideo := false
	allAttachedPic = true

	for i, s := range fc.Streams() {
		switch s.CodecParameters().MediaType() {
		case astiav.MediaTypeVideo:
			if mask&WantVideo == 0 {
				continue
			}
			sawVideo = true
			attached := s.Disposition()&astiav.DispositionAttachedPic != 0
			if !attached {
				allAttachedPic = false
			}
			if vIdx < 0 && !(ignoreAttachedPic && attached) {
				vIdx = i
			}
		case astiav.MediaTypeAudio:
			if mask&WantAudio == 0 {
				continue
			}
			if aIdx < 0 {
				aIdx = i
			}
		}
	}
	if !sawVideo {
		allAttachedPic = false
	}
	return vIdx, aIdx, allAttachedPic
}

// classify decides the media type: known format names first, then stream
// shape (video with no audio and no duration is an image; all-attached-pic
// video is audio cover art or a bare image). Returns -1 when neither a
// video nor an audio stream exists. Pure function of the façade's
// stream-scan results so it can be tested without a real container.
func classify(formatName string, vIdx, aIdx int, allAttachedPic bool, durationSec float64) MediaType {
	switch {
	case imageFormats[formatName]:
		return Image
	case audioFormats[formatName]:
		return Audio
	case videoFormats[formatName]:
		return Video
	}

	hasVideo := vIdx >= 0
	hasAudio := aIdx >= 0
	noDuration := durationSec <= 0

	switch {
	case hasVideo && !hasAudio && noDuration:
		return Image
	case hasVideo && allAttachedPic:
		if hasAudio {
			return Audio
		}
		return Image
	case hasVideo:
		return Video
	case hasAudio:
		return Audio
	default:
		return MediaType(-1)
	}
}

// MediaType reports the classification decided at Open time.
func (f *Facade) MediaType() MediaType { return f.mediaType }

// Duration is the container's reported duration in seconds, or 0 if
// unknown (e.g. a still image).
func (f *Facade) Duration() float64 { return f.durationSec }

// StartTime is the selected video stream's start offset in seconds, or the
// audio stream's when no video stream was selected.
func (f *Facade) StartTime() float64 { return f.startSec }

// JumpToTime seeks the container to t seconds and resets both decoders.
// The caller must subsequently drain NextFrames until delivered frames
// reach or pass t.
func (f *Facade) JumpToTime(t float64) error {
	if t < 0 || (f.durationSec > 0 && t > f.durationSec) {
		return ErrSeekOutOfRange
	}
	ts := int64(t * avTimeBase)
	flags := astiav.NewSeekFlags(astiav.SeekFlagBackward)
	if err := f.fc.SeekFrame(-1, ts, flags); err != nil {
		return fmt.Errorf("decode: seek: %w", err)
	}
	if f.Video != nil {
		f.Video.reset()
	}
	if f.Audio != nil {
		f.Audio.reset()
	}
	return nil
}

// NextFrames decodes the next batch of frames for the given stream
// decoder, demuxing further packets (and routing each to whichever
// decoder owns its stream index) as needed. The caller owns the returned
// frames and must Unref+Free each one.
func (f *Facade) NextFrames(sd *StreamDecoder) ([]*astiav.Frame, error) {
	return sd.nextFrames(f.fc, f.otherDecoder(sd))
}

func (f *Facade) otherDecoder(sd *StreamDecoder) *StreamDecoder {
	if sd == f.Video {
		return f.Audio
	}
	return f.Video
}

// Close releases the container and both decoders.
func (f *Facade) Close() {
	if f.Video != nil {
		f.Video.close()
	}
	if f.Audio != nil {
		f.Audio.close()
	}
	if f.fc != nil {
		f.fc.CloseInput()
		f.fc.Free()
		f.fc = nil
	}
}
