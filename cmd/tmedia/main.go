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

// Command tmedia opens one media fetcher per playlist argument, drives
// begin/pause/resume/seek from line-buffered stdin commands, and prints a
// one-line transport status to stdout.
//
// A real terminal renderer would pull Fetcher.Bitmap.Snapshot() each frame
// and turn it into character cells; that layer (and raw single-keystroke
// capture with it) lives outside this module, so commands are read one
// line at a time: space/play/pause, left/right for +/-5s seeks, digits for
// percentage seeks, n/p for playlist moves, q to quit.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hajimehoshi/oto/v2"

	"github.com/tmedia-go/tmedia/internal/audioout"
	"github.com/tmedia-go/tmedia/internal/config"
	"github.com/tmedia-go/tmedia/internal/decode"
	"github.com/tmedia-go/tmedia/internal/media"
)

const (
	skipSeconds = 5.0

	// maxAudioDesync is how far the ring buffer's timestamp may drift from
	// the media clock before the owner forces a resync seek back to clock
	// time.
	maxAudioDesync = 0.6
)

func main() {
	var (
		width            = flag.Int("width", 0, "requested output width in pixels (0 = use the defaults file, else the maximum frame size)")
		height           = flag.Int("height", 0, "requested output height in pixels")
		visualize        = flag.Bool("visualize", false, "force audio-visualization sub-loop even for files with a usable attached picture")
		ignoreAttached   = flag.Bool("ignore-attached-pic", false, "treat an attached-picture stream as if it did not exist")
		defaultsPath     = flag.String("defaults", "", "path to an optional YAML defaults file (requested_width/height, visualize_video, ignore_attached_pic, volume)")
		statusIntervalMs = flag.Int("status-interval-ms", 500, "how often to print a transport status line")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: tmedia [flags] file [file ...]")
		os.Exit(2)
	}

	defaults := config.Defaults{RequestedWidth: *width, RequestedHeight: *height, Volume: 100}
	if *defaultsPath != "" {
		d, err := config.LoadDefaults(*defaultsPath)
		if err != nil {
			logger.Warn("failed to load defaults file, using flags only", "path", *defaultsPath, "error", err)
		} else {
			defaults = d
		}
	}

	flags := defaults.Flags()
	if *visualize {
		flags |= config.VisualizeVideo
	}
	if *ignoreAttached {
		flags |= config.IgnoreAttachedPic
	}
	dims := config.Dim2{Width: defaults.RequestedWidth, Height: defaults.RequestedHeight}
	if *width > 0 {
		dims.Width = *width
	}
	if *height > 0 {
		dims.Height = *height
	}

	cmds := make(chan string, 16)
	go readCommands(os.Stdin, cmds)

	player := &player{
		paths:          paths,
		flags:          flags,
		dims:           dims,
		volume:         clamp01(float64(defaults.Volume) / 100),
		statusInterval: time.Duration(*statusIntervalMs) * time.Millisecond,
		logger:         logger,
	}
	player.run(cmds)
}

// readCommands feeds one trimmed, lower-cased line at a time into cmds
// until stdin closes.
func readCommands(r *os.File, cmds chan<- string) {
	defer close(cmds)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if line != "" {
			cmds <- line
		}
	}
}

// player drives one Fetcher at a time across the whole playlist,
// reacting to commands between status prints.
type player struct {
	paths          []string
	flags          config.Flags
	dims           config.Dim2
	volume         float64
	muted          bool
	statusInterval time.Duration
	logger         *slog.Logger
}

func (p *player) run(cmds <-chan string) {
	index := 0
	for index >= 0 && index < len(p.paths) {
		move := p.playOne(p.paths[index], cmds)
		switch move {
		case moveQuit:
			return
		case moveNext:
			index++
		case movePrev:
			index--
			if index < 0 {
				index = 0
			}
		}
	}
}

type playlistMove int

const (
	moveNext playlistMove = iota
	movePrev
	moveQuit
	// moveNone means the command did not end this file's playback.
	moveNone
)

// playOne opens path, plays it to completion (or until a command ends it
// early), and reports which way the playlist should move next.
func (p *player) playOne(path string, cmds <-chan string) playlistMove {
	log := p.logger.With("source", path)

	fetcher, err := media.New(path, p.flags)
	if err != nil {
		log.Error("open failed", "error", err)
		return moveNext
	}
	defer fetcher.Close()

	fetcher.SetLogger(p.logger)
	fetcher.SetRequestedDims(p.dims)

	var audioOut *audioout.AudioOut
	if fetcher.HasAudioStream() {
		ctx, ready, err := oto.NewContext(fetcher.AudioBuffer.SampleRate(), fetcher.AudioBuffer.Channels(), oto.FormatSignedInt16LE)
		if err != nil {
			log.Warn("audio device open failed, continuing without sound", "error", err)
		} else {
			<-ready
			audioOut = audioout.New(ctx, fetcher.AudioBuffer)
			audioOut.SetVolume(p.volume)
			audioOut.SetMuted(p.muted)
		}
	}

	now := nowSeconds()
	fetcher.Begin(now)
	if audioOut != nil {
		if err := audioOut.Start(); err != nil {
			log.Warn("audio start failed", "error", err)
		}
	}

	interval := p.statusInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	statusTicker := time.NewTicker(interval)
	defer statusTicker.Stop()

	move := moveNext
loop:
	for !fetcher.ShouldExit() {
		select {
		case cmd, ok := <-cmds:
			if !ok {
				fetcher.DispatchExit()
				move = moveQuit
				break loop
			}
			switch p.handleCommand(cmd, fetcher, audioOut) {
			case moveNext:
				move = moveNext
				break loop
			case movePrev:
				move = movePrev
				break loop
			case moveQuit:
				move = moveQuit
				break loop
			}
		case <-statusTicker.C:
			p.resyncAudio(fetcher, log)
			p.printStatus(path, fetcher)
		}
	}

	fetcher.Join(nowSeconds())
	if audioOut != nil {
		if err := audioOut.Stop(); err != nil {
			log.Warn("audio stop failed", "error", err)
		}
	}
	if fetcher.HasError() {
		log.Error("playback ended with error", "error", fetcher.Error())
	}
	return move
}

// handleCommand applies one line command to fetcher/audioOut, returning
// moveNext/movePrev/moveQuit when the command ends this file's playback
// (next/prev/quit); any other command returns moveNone and playback of
// the current file continues.
func (p *player) handleCommand(cmd string, fetcher *media.Fetcher, audioOut *audioout.AudioOut) playlistMove {
	now := nowSeconds()
	switch {
	case cmd == "q" || cmd == "quit" || cmd == "esc":
		fetcher.DispatchExit()
		return moveQuit
	case cmd == "n" || cmd == "next":
		fetcher.DispatchExit()
		return moveNext
	case cmd == "p" || cmd == "prev":
		fetcher.DispatchExit()
		return movePrev
	case cmd == " " || cmd == "space" || cmd == "play" || cmd == "pause":
		p.togglePlay(fetcher, audioOut, now)
	case cmd == "left" || cmd == "back":
		p.seekRelative(fetcher, -skipSeconds, now)
	case cmd == "right" || cmd == "fwd":
		p.seekRelative(fetcher, skipSeconds, now)
	case cmd == "m" || cmd == "mute":
		p.muted = !p.muted
		if audioOut != nil {
			audioOut.SetMuted(p.muted)
		}
	case cmd == "up":
		p.volume = clamp01(p.volume + 0.01)
		if audioOut != nil {
			audioOut.SetVolume(p.volume)
		}
	case cmd == "down":
		p.volume = clamp01(p.volume - 0.01)
		if audioOut != nil {
			audioOut.SetVolume(p.volume)
		}
	case len(cmd) == 1 && cmd[0] >= '0' && cmd[0] <= '9':
		digit, _ := strconv.Atoi(cmd)
		duration := fetcher.Duration()
		target := duration * float64(digit) / 10
		if err := fetcher.JumpToTime(target, now); err != nil {
			p.logger.Warn("seek failed", "error", err)
		}
	}
	return moveNone
}

func (p *player) togglePlay(fetcher *media.Fetcher, audioOut *audioout.AudioOut, now float64) {
	if fetcher.MediaType() == decode.Image {
		return
	}
	if fetcher.IsPlaying() {
		if audioOut != nil {
			_ = audioOut.Stop()
		}
		_ = fetcher.Pause(now)
	} else {
		_ = fetcher.Resume(now)
		if audioOut != nil {
			_ = audioOut.Start()
		}
	}
}

// resyncAudio seeks back to clock time when the audio buffer has drifted
// past maxAudioDesync from the media clock.
func (p *player) resyncAudio(fetcher *media.Fetcher, log *slog.Logger) {
	if !fetcher.HasAudioStream() || fetcher.MediaType() == decode.Image {
		return
	}
	now := nowSeconds()
	if !fetcher.IsPlaying() {
		return
	}
	if desync := fetcher.GetAudioDesyncTime(now); desync > maxAudioDesync {
		if err := fetcher.JumpToTime(fetcher.GetTime(now), now); err != nil {
			log.Warn("audio resync seek failed", "desync", desync, "error", err)
		}
	}
}

func (p *player) seekRelative(fetcher *media.Fetcher, delta, now float64) {
	if fetcher.MediaType() == decode.Image {
		return
	}
	target := fetcher.GetTime(now) + delta
	if target < 0 {
		target = 0
	}
	if d := fetcher.Duration(); d > 0 && target > d {
		target = d
	}
	if err := fetcher.JumpToTime(target, now); err != nil {
		p.logger.Warn("seek failed", "error", err)
	}
}

func (p *player) printStatus(path string, fetcher *media.Fetcher) {
	now := nowSeconds()
	snap := fetcher.Bitmap.Snapshot()
	state := "playing"
	if fetcher.MediaType() != decode.Image && !fetcher.IsPlaying() {
		state = "paused"
	}
	fmt.Printf("\r%-40s %6.1f / %6.1f s  [%s]  %dx%d  vol=%.0f%%",
		truncatePath(path), fetcher.GetTime(now), fetcher.Duration(), state, snap.Width, snap.Height, p.volume*100)
}

func truncatePath(path string) string {
	if len(path) <= 40 {
		return path
	}
	return "..." + path[len(path)-37:]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
