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

import (
	"fmt"
	"time"

	hokuyo "github.com/OpenLidarProject/go-hokuyo"
)

const (
	// selfTestScans is the length of the streamed probe bursts.
	selfTestScans = 99
	// selfTestTimeout bounds each device round trip inside a probe.
	selfTestTimeout = 1000 * time.Millisecond
)

// ProbeResult is the outcome of one self-test probe.
type ProbeResult struct {
	Name    string
	Message string
	Level   Level
}

// SelfTest runs the ordered diagnostic probe sequence: status check, laser
// on, single poll, streamed burst, streamed burst with corruption
// tolerance, laser off. It requires an open, idle device: probes exercise
// the handle directly and must not race the acquisition loop. Probes never
// short-circuit each other, but the order matters because the later data
// probes assume the laser is on.
func (d *Driver) SelfTest() ([]ProbeResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.State() != StateOpened {
		return nil, fmt.Errorf("self-test requires an open idle device, driver is %s", d.State())
	}

	limits := d.laser.Limits()
	return []ProbeResult{
		d.statusProbe(),
		d.laserOnProbe(),
		d.polledDataProbe(limits),
		d.streamedDataProbe(limits),
		d.streamedIntensityProbe(limits),
		d.laserOffProbe(),
	}, nil
}

func (d *Driver) statusProbe() ProbeResult {
	result := ProbeResult{Name: "Status Test"}
	result.Message = d.laser.Status()
	if result.Message != goodStatus {
		result.Level = LevelError
	}
	return result
}

func (d *Driver) laserOnProbe() ProbeResult {
	result := ProbeResult{Name: "Laser Test"}
	if err := d.laser.LaserOn(); err != nil {
		result.Level = LevelError
		result.Message = err.Error()
		return result
	}
	result.Message = "Laser turned on successfully."
	return result
}

func (d *Driver) polledDataProbe(limits hokuyo.DeviceLimits) ProbeResult {
	result := ProbeResult{Name: "Polled Data Test"}
	_, status, err := d.laser.PollScan(limits.MinAngle, limits.MaxAngle, 1, selfTestTimeout)
	switch {
	case err != nil:
		result.Level = LevelError
		result.Message = err.Error()
	case status != 0:
		result.Level = LevelError
		result.Message = fmt.Sprintf("Device error code: %d. Consult the manual for meaning.", status)
	default:
		result.Message = "Polled device for data successfully."
	}
	return result
}

func (d *Driver) streamedDataProbe(limits hokuyo.DeviceLimits) ProbeResult {
	result := ProbeResult{Name: "Streamed Data Test"}
	status, err := d.laser.RequestScans(false, limits.MinAngle, limits.MaxAngle, 1, 1, selfTestScans, selfTestTimeout)
	if err != nil {
		result.Level = LevelError
		result.Message = err.Error()
		return result
	}
	if status != 0 {
		result.Level = LevelError
		result.Message = fmt.Sprintf("Device error code: %d. Consult the manual for meaning.", status)
		return result
	}

	for i := 0; i < selfTestScans; i++ {
		_, scanStatus, err := d.laser.ServiceScan(selfTestTimeout)
		if err != nil {
			result.Level = LevelError
			result.Message = err.Error()
			return result
		}
		if scanStatus != 0 {
			result.Level = LevelError
			result.Message = fmt.Sprintf("Stream ended early: status %d.", scanStatus)
			return result
		}
	}
	result.Message = "Streamed data from device successfully."
	return result
}

func (d *Driver) streamedIntensityProbe(limits hokuyo.DeviceLimits) ProbeResult {
	result := ProbeResult{Name: "Streamed Intensity Data Test"}
	status, err := d.laser.RequestScans(true, limits.MinAngle, limits.MaxAngle, 1, 1, selfTestScans, selfTestTimeout)
	if err != nil {
		result.Level = LevelError
		result.Message = err.Error()
		return result
	}
	if status != 0 {
		result.Level = LevelError
		result.Message = fmt.Sprintf("Device error code: %d. Consult the manual for meaning.", status)
		return result
	}

	corrupted := 0
	for i := 0; i < selfTestScans; i++ {
		_, scanStatus, err := d.laser.ServiceScan(selfTestTimeout)
		if err != nil {
			if hokuyo.IsCorruptedFrame(err) {
				corrupted++
				continue
			}
			result.Level = LevelError
			result.Message = err.Error()
			return result
		}
		if scanStatus != 0 {
			result.Level = LevelError
			result.Message = fmt.Sprintf("Stream ended early: status %d.", scanStatus)
			return result
		}
	}

	switch {
	case corrupted == 1:
		result.Level = LevelWarning
		result.Message = "Single corrupted message. This is acceptable and unavoidable."
	case corrupted > 1:
		result.Level = LevelError
		result.Message = fmt.Sprintf("%d corrupted messages.", corrupted)
	default:
		result.Message = "Streamed data with intensity from device successfully."
	}
	return result
}

func (d *Driver) laserOffProbe() ProbeResult {
	result := ProbeResult{Name: "Laser Off Test"}
	if err := d.laser.LaserOff(); err != nil {
		result.Level = LevelError
		result.Message = err.Error()
		return result
	}
	result.Message = "Laser turned off successfully."
	return result
}
