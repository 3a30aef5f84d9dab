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

import (
	"fmt"
	"time"

	"github.com/OpenLidarProject/go-hokuyo/internal/scip"
)

const (
	// clockSamples is the number of TM1 round trips used to pair the
	// device clock with the host clock.
	clockSamples = 10

	// latencyScans is the length of the timed scan burst used to estimate
	// the fixed device-to-host scan latency.
	latencyScans = 10
)

// CalcLatency measures the fixed offset between device-reported and
// host-observed time and stores it in the handle; every Scan produced
// afterwards is stamped with the corrected host time. This is slow (several
// device round trips plus a scan burst) and is meant to run once per
// calibrated lifetime, synchronously during driver open. Any communication
// failure is fatal and aborts the open.
func (d *Device) CalcLatency(intensity bool, minAngle, maxAngle float64, cluster, skip int) error {
	if !d.IsOpen() {
		return NewFatalError("calibrate", ErrNotConnected)
	}
	if d.model04LX {
		// 04LX only accepts MD, so the burst below must not use ME.
		intensity = false
	}

	if err := d.pairClocks(); err != nil {
		return err
	}
	if err := d.measureScanLatency(intensity, minAngle, maxAngle, cluster, skip); err != nil {
		return err
	}

	d.calibrated = true
	debugf("calibration done: latency %v", d.latency)
	return nil
}

// pairClocks samples the device clock in timestamp mode and pairs the
// observation with the lowest round-trip time against the host clock.
func (d *Device) pairClocks() error {
	if status, err := d.command("TM0"); err != nil {
		return err
	} else if status != 0 {
		return NewFatalError("TM0", fmt.Errorf("enter timestamp mode: status %d", status))
	}

	bestRoundTrip := time.Duration(-1)
	for i := 0; i < clockSamples; i++ {
		before := time.Now()
		deviceMs, err := d.readDeviceClock()
		after := time.Now()
		if err != nil {
			_, _ = d.command("TM2")
			return err
		}
		roundTrip := after.Sub(before)
		if bestRoundTrip < 0 || roundTrip < bestRoundTrip {
			bestRoundTrip = roundTrip
			d.clockBase = before.Add(roundTrip / 2)
			d.deviceBase = deviceMs
		}
	}

	if status, err := d.command("TM2"); err != nil {
		return err
	} else if status != 0 {
		return NewFatalError("TM2", fmt.Errorf("leave timestamp mode: status %d", status))
	}
	return nil
}

// readDeviceClock performs one TM1 round trip.
func (d *Device) readDeviceClock() (int, error) {
	if err := d.transport.WriteCommand("TM1"); err != nil {
		return 0, wrapTransportErr("TM1", err)
	}
	status, err := d.readResponseHeader("TM1", d.config.Timeout)
	if err != nil {
		return 0, err
	}
	if status != 0 {
		return 0, NewFatalError("TM1", fmt.Errorf("read device clock: status %d", status))
	}
	line, err := d.transport.ReadLine(d.config.Timeout)
	if err != nil {
		return 0, wrapTransportErr("TM1", err)
	}
	payload, err := scip.VerifyLine(line)
	if err != nil || len(payload) != scip.FourChar {
		return 0, NewFatalError("TM1", fmt.Errorf("%w: bad timestamp line %q", ErrProtocolDesync, line))
	}
	deviceMs, err := scip.DecodeUint(payload)
	if err != nil {
		return 0, NewFatalError("TM1", err)
	}
	if err := d.readBlank("TM1", d.config.Timeout); err != nil {
		return 0, err
	}
	return deviceMs, nil
}

// measureScanLatency streams a short burst and takes the smallest observed
// difference between a scan's corrected stamp and its arrival time as the
// fixed transmission latency.
func (d *Device) measureScanLatency(intensity bool, minAngle, maxAngle float64, cluster, skip int) error {
	d.latency = 0

	status, err := d.RequestScans(intensity, minAngle, maxAngle, cluster, skip, latencyScans, d.config.Timeout)
	if err != nil {
		return err
	}
	if status != 0 {
		return NewFatalError("calibrate", fmt.Errorf("scan request refused: status %d", status))
	}

	// The stamp helper needs the clock pairing active during the burst.
	d.calibrated = true
	defer func() { d.calibrated = false }()

	best := time.Duration(-1)
	for i := 0; i < latencyScans; i++ {
		scan, scanStatus, err := d.ServiceScan(d.config.Timeout)
		if err != nil {
			if IsCorruptedFrame(err) {
				continue
			}
			return err
		}
		if scanStatus != 0 {
			// Burst ended early; keep what we have.
			break
		}
		observed := time.Since(scan.Timestamp)
		if best < 0 || observed < best {
			best = observed
		}
	}
	if best > 0 {
		d.latency = best
	}
	return nil
}

// Calibrated reports whether a latency calibration has completed on this
// handle.
func (d *Device) Calibrated() bool {
	return d.calibrated
}
