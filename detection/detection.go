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

// Package detection discovers serial ports that look like attached Hokuyo
// range-finders.
package detection

import (
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// hokuyoVID is the USB vendor ID used by Hokuyo sensors.
const hokuyoVID = "15D1"

// DeviceInfo describes one candidate port.
type DeviceInfo struct {
	// Path is the serial device path usable with serialport.New.
	Path string
	// SerialNumber is the USB serial number when available.
	SerialNumber string
	// VID and PID are the USB identifiers when available.
	VID string
	PID string
}

// Candidates lists serial ports likely to be Hokuyo sensors: USB ports with
// the Hokuyo vendor ID first, then CDC-ACM style ports as a fallback for
// setups where the kernel hides USB metadata.
func Candidates() ([]DeviceInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("detection: list ports: %w", err)
	}

	var matched, fallback []DeviceInfo
	for _, port := range ports {
		info := DeviceInfo{
			Path:         port.Name,
			SerialNumber: port.SerialNumber,
			VID:          strings.ToUpper(port.VID),
			PID:          strings.ToUpper(port.PID),
		}
		switch {
		case port.IsUSB && info.VID == hokuyoVID:
			matched = append(matched, info)
		case strings.Contains(port.Name, "ttyACM"):
			fallback = append(fallback, info)
		}
	}
	return append(matched, fallback...), nil
}
