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
package clock

import "testing"

func approxEqual(a, b float64) bool {
	const eps = 1e-9
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < eps
}

func TestMonotonicPlayback(t *testing.T) {
	var c Clock
	c.Init(0)
	t0 := c.GetTime(10)
	t1 := c.GetTime(12.5)
	if !approxEqual(t1-t0, 2.5) {
		t.Fatalf("expected delta 2.5, got %v", t1-t0)
	}
}

func TestPauseFreezesTime(t *testing.T) {
	var c Clock
	c.Init(0)
	c.Stop(0.5)
	if got := c.GetTime(1.5); !approxEqual(got, 0.5) {
		t.Fatalf("expected frozen time 0.5, got %v", got)
	}
	c.Resume(1.5)
	if got := c.GetTime(2.5); !approxEqual(got, 1.5) {
		t.Fatalf("expected resumed time 1.5, got %v", got)
	}
}

func TestSkipAddsExactDelta(t *testing.T) {
	var c Clock
	c.Init(0)
	before := c.GetTime(1.0)
	c.Skip(4.0)
	after := c.GetTime(1.0)
	if !approxEqual(after-before, 4.0) {
		t.Fatalf("expected skip delta 4.0, got %v", after-before)
	}
}

func TestSkipNeverUnpauses(t *testing.T) {
	var c Clock
	c.Init(0)
	c.Stop(1.0)
	c.Skip(2.0)
	if c.IsPlaying() {
		t.Fatalf("skip must not unpause the clock")
	}
}

func TestToggle(t *testing.T) {
	var c Clock
	c.Init(0)
	if !c.IsPlaying() {
		t.Fatalf("clock should start playing after Init")
	}
	c.Toggle(1.0)
	if c.IsPlaying() {
		t.Fatalf("toggle should have paused the clock")
	}
	c.Toggle(2.0)
	if !c.IsPlaying() {
		t.Fatalf("toggle should have resumed the clock")
	}
}
