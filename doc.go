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

// Package hokuyo is a driver library for SCIP2.0 compliant Hokuyo laser
// range-finders such as the UTM-30LX and the URG-04LX.
//
// The package provides the device handle: connecting over a serial
// transport, laser control, streamed and polled scan acquisition, and
// one-time clock latency calibration. The driver subpackage layers the
// connection lifecycle state machine, the background acquisition loop,
// self-test probes and a diagnostics snapshot on top of it.
//
// Basic usage:
//
//	device, err := hokuyo.New(serialport.Factory())
//	if err != nil {
//		log.Fatal(err)
//	}
//	drv := driver.New(device)
//	drv.OnScan = func(scan *hokuyo.Scan) {
//		fmt.Printf("%d ranges\n", len(scan.Ranges))
//	}
//	cfg := config.Default()
//	drv.Open(cfg)
//	drv.Start(cfg)
//	defer drv.Close()
package hokuyo
