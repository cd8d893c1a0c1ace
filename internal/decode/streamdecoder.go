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
	"errors"
	"fmt"
	"io"

	astiav "github.com/asticode/go-astiav"
)

// maxDemuxPacketsPerCall bounds how many packets nextFrames will pull out
// of the container looking for a frame of its own type before giving up
// and returning an empty batch for this call. Without a bound, an audio
// StreamDecoder asked for frames on a file with a very long run of
// video-only packets (or vice versa) could demux the entire remaining
// file into the other decoder's pending queue in one call.
const maxDemuxPacketsPerCall = 256

// StreamDecoder owns one selected stream's codec context and decodes
// batches of frames for it on demand.
type StreamDecoder struct {
	stream *astiav.Stream
	ctx    *astiav.CodecContext

	streamIndex int
	timeBaseNum int
	timeBaseDen int
	startSec    float64
	avgFrameSec float64

	pkt   *astiav.Packet
	frame *astiav.Frame

	// pending holds packets belonging to this decoder's stream that were
	// read while the façade was servicing the other decoder's
	// nextFrames call.
	pending []*astiav.Packet
}

func newStreamDecoder(fc *astiav.FormatContext, streamIndex int) (*StreamDecoder, error) {
	stream := fc.Streams()[streamIndex]
	par := stream.CodecParameters()

	codec := astiav.FindDecoder(par.CodecID())
	if codec == nil {
		return nil, fmt.Errorf("FindDecoder: no decoder for %v", par.CodecID())
	}
	ctx := astiav.AllocCodecContext(codec)
	if ctx == nil {
		return nil, errors.New("AllocCodecContext failed")
	}
	if err := par.ToCodecContext(ctx); err != nil {
		ctx.Free()
		return nil, fmt.Errorf("ToCodecContext: %w", err)
	}
	if err := ctx.Open(codec, nil); err != nil {
		ctx.Free()
		return nil, fmt.Errorf("codec open: %w", err)
	}

	tb := stream.TimeBase()
	sd := &StreamDecoder{
		stream:      stream,
		ctx:         ctx,
		streamIndex: streamIndex,
		timeBaseNum: tb.Num(),
		timeBaseDen: tb.Den(),
		pkt:         astiav.AllocPacket(),
		frame:       astiav.AllocFrame(),
	}

	if stream.StartTime() != astiav.NoPtsValue {
		sd.startSec = float64(stream.StartTime()) * float64(tb.Num()) / float64(tb.Den())
	}

	r := stream.AvgFrameRate()
	if r.Num() > 0 && r.Den() > 0 {
		sd.avgFrameSec = float64(r.Den()) / float64(r.Num())
	} else {
		sd.avgFrameSec = 1.0 / 24.0
	}

	return sd, nil
}

func (sd *StreamDecoder) StreamIndex() int         { return sd.streamIndex }
func (sd *StreamDecoder) StartTimeSec() float64    { return sd.startSec }
func (sd *StreamDecoder) AvgFrameTimeSec() float64 { return sd.avgFrameSec }

// SampleRate is the audio codec's sample rate in Hz. Meaningless for a
// video stream decoder.
func (sd *StreamDecoder) SampleRate() int { return sd.ctx.SampleRate() }

// Channels is the audio codec's channel count. Meaningless for a video
// stream decoder.
func (sd *StreamDecoder) Channels() int { return sd.ctx.ChannelLayout().Channels() }

// Width/Height are the video codec's frame dimensions. Meaningless for an
// audio stream decoder.
func (sd *StreamDecoder) Width() int  { return sd.ctx.Width() }
func (sd *StreamDecoder) Height() int { return sd.ctx.Height() }

// PtsToSec converts a PTS expressed in this stream's time base to seconds.
func (sd *StreamDecoder) PtsToSec(pts int64) float64 {
	if sd.timeBaseDen == 0 {
		return 0
	}
	return float64(pts) * float64(sd.timeBaseNum) / float64(sd.timeBaseDen)
}

// reset flushes the codec's internal buffers and drops any pending
// packets, as required after a seek.
func (sd *StreamDecoder) reset() {
	sd.ctx.FlushBuffers()
	for _, p := range sd.pending {
		p.Free()
	}
	sd.pending = sd.pending[:0]
}

// nextFrames returns decoded frames for sd, demuxing further packets from
// fc as needed and routing packets belonging to other to its pending
// queue. Returns an empty batch (not an error) at EOF.
func (sd *StreamDecoder) nextFrames(fc *astiav.FormatContext, other *StreamDecoder) ([]*astiav.Frame, error) {
	var frames []*astiav.Frame

	drain := func() error {
		for {
			if err := sd.ctx.ReceiveFrame(sd.frame); err != nil {
				if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
					return nil
				}
				return err
			}
			owned := astiav.AllocFrame()
			if err := owned.Ref(sd.frame); err != nil {
				owned.Free()
				sd.frame.Unref()
				return fmt.Errorf("frame ref: %w", err)
			}
			sd.frame.Unref()
			frames = append(frames, owned)
		}
	}

	send := func(p *astiav.Packet) error {
		if err := sd.ctx.SendPacket(p); err != nil && !errors.Is(err, astiav.ErrEagain) {
			return err
		}
		return drain()
	}

	// First service anything queued from a previous call servicing the
	// other decoder.
	for len(sd.pending) > 0 && len(frames) == 0 {
		p := sd.pending[0]
		sd.pending = sd.pending[1:]
		if err := send(p); err != nil {
			p.Free()
			return nil, fmt.Errorf("decode: send pending packet: %w", err)
		}
		p.Free()
	}

	for i := 0; len(frames) == 0 && i < maxDemuxPacketsPerCall; i++ {
		if err := fc.ReadFrame(sd.pkt); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, astiav.ErrEof) {
				return frames, nil
			}
			return frames, fmt.Errorf("decode: ReadFrame: %w", err)
		}

		switch sd.pkt.StreamIndex() {
		case sd.streamIndex:
			err := send(sd.pkt)
			sd.pkt.Unref()
			if err != nil {
				return nil, fmt.Errorf("decode: decode packet: %w", err)
			}
		case otherIndex(other):
			clone := astiav.AllocPacket()
			if err := clone.Ref(sd.pkt); err == nil {
				other.pending = append(other.pending, clone)
			} else {
				clone.Free()
			}
			sd.pkt.Unref()
		default:
			sd.pkt.Unref()
		}
	}

	return frames, nil
}

func otherIndex(other *StreamDecoder) int {
	if other == nil {
		return -1
	}
	return other.streamIndex
}

func (sd *StreamDecoder) close() {
	for _, p := range sd.pending {
		p.Free()
	}
	sd.pending = nil
	if sd.frame != nil {
		sd.frame.Free()
		sd.frame = nil
	}
	if sd.pkt != nil {
		sd.pkt.Free()
		sd.pkt = nil
	}
	if sd.ctx != nil {
		sd.ctx.Free()
		sd.ctx = nil
	}
}
