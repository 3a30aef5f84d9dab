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

package hokuyo

import "time"

// ScanConfig is the immutable per-scan configuration echo: the geometry and
// timing the device was actually asked for when the scan was requested.
// Changing driver configuration while streaming has no effect until the next
// start, so consumers can trust this snapshot over any live config.
type ScanConfig struct {
	// MinAngle and MaxAngle are the first and last measured angles in
	// radians, zero pointing straight ahead, counter-clockwise positive.
	MinAngle float64
	MaxAngle float64
	// AngleIncrement is the angle between consecutive (clustered) samples.
	AngleIncrement float64
	// TimeIncrement is the time between consecutive samples in seconds.
	TimeIncrement float64
	// ScanTime is the duration of one full sweep in seconds.
	ScanTime float64
	// MinRange and MaxRange are the device measurement limits in meters.
	MinRange float64
	MaxRange float64
	// ClusterCount is the number of adjacent steps merged per sample.
	ClusterCount int
	// SkipCount is the number of sweeps skipped between reported scans.
	SkipCount int
	// Intensity reports whether intensity sampling was active.
	Intensity bool
}

// Scan is one complete decoded measurement sweep. A fresh value is produced
// per sweep; nothing in the library aliases or reuses a delivered Scan.
type Scan struct {
	// Timestamp is the host-clock time of the sweep, corrected by the
	// calibrated device latency when calibration has run.
	Timestamp time.Time
	// Ranges holds one distance per sample in meters, ordered from
	// MinAngle to MaxAngle. Values below the device minimum carry the
	// device's error codes scaled to meters and should be treated as
	// invalid returns.
	Ranges []float64
	// Intensities holds one reflectance value per sample. Empty unless the
	// scan was requested with intensity sampling.
	Intensities []float64
	// Config echoes the configuration the scan was taken with.
	Config ScanConfig
}

// DeviceLimits describes the measurement envelope reported by the device.
type DeviceLimits struct {
	// MinAngle and MaxAngle are the measurable angle bounds in radians.
	MinAngle float64
	MaxAngle float64
	// MinRange and MaxRange are the measurable distance bounds in meters.
	MinRange float64
	MaxRange float64
}
