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

// Option is a functional option for configuring a Device.
type Option func(*Device) error

// WithTimeout sets the default timeout for device round trips.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		d.SetTimeout(timeout)
		return nil
	}
}

// WithDeviceConfig replaces the whole device configuration.
func WithDeviceConfig(config *DeviceConfig) Option {
	return func(d *Device) error {
		if config != nil {
			d.config = config
		}
		return nil
	}
}
