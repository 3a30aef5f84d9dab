// go-hokuyo
// Copyright (c) 2025 The OpenLidar Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-hokuyo.
//
// go-hokuyo is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-hokuyo is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-hokuyo; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package driver

import "strconv"

// Level is the three-level outcome shared by diagnostics and self-test
// probes.
type Level int

const (
	// LevelOK means healthy.
	LevelOK Level = iota
	// LevelWarning means degraded but usable.
	LevelWarning
	// LevelError means not operational.
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelOK:
		return "ok"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	}
	return "unknown"
}

// KeyValue is one named diagnostics field.
type KeyValue struct {
	Key   string
	Value string
}

// DiagnosticStatus is a pull-based health snapshot of the driver.
type DiagnosticStatus struct {
	Summary string
	Values  []KeyValue
	Level   Level
}

// Diagnostics builds a health snapshot from the current state, device
// identity and failure counters. Safe to call concurrently with the
// acquisition loop.
func (d *Driver) Diagnostics() DiagnosticStatus {
	state := d.State()
	identity := d.Identity()
	cfg := d.configSnapshot()

	var status DiagnosticStatus
	switch {
	case state == StateClosed:
		status.Level = LevelError
		status.Summary = "Not connected. " + d.ConnectFailure()
	case identity.Status != goodStatus:
		status.Level = LevelError
		status.Summary = "Sensor not operational"
	case state == StateRunning:
		status.Level = LevelOK
		status.Summary = "Sensor streaming."
	case state == StateOpened:
		status.Level = LevelOK
		status.Summary = "Sensor open."
	default:
		status.Level = LevelError
		status.Summary = "Unknown sensor state."
	}

	status.Values = []KeyValue{
		{Key: "Port", Value: cfg.Port},
		{Key: "Device ID", Value: identity.ID},
		{Key: "Device Status", Value: identity.Status},
		{Key: "Scan Loop Lost Count", Value: strconv.FormatInt(d.LostLoopJoins(), 10)},
		{Key: "Corrupted Scan Count", Value: strconv.FormatInt(d.CorruptedScans(), 10)},
	}
	return status
}
