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

// Package driver implements the connection lifecycle of a Hokuyo
// range-finder: the closed/opened/running state machine, the background
// acquisition loop that hands decoded scans to a consumer callback, one-time
// latency calibration on open, a self-test suite and a diagnostics snapshot.
package driver

import (
	"sync"
	"sync/atomic"
	"time"

	hokuyo "github.com/OpenLidarProject/go-hokuyo"
	"github.com/OpenLidarProject/go-hokuyo/config"
	"github.com/OpenLidarProject/go-hokuyo/internal/logutil"
)

// DefaultJoinTimeout bounds how long Stop waits for the acquisition loop.
const DefaultJoinTimeout = 2000 * time.Millisecond

// goodStatus is the status string a healthy sensor reports.
const goodStatus = "Sensor works well."

// idUnknown is the placeholder identity an unprovisioned sensor reports.
const idUnknown = "H0000000"

// Laser is the device-handle contract the driver coordinates. It is
// satisfied by *hokuyo.Device; tests substitute fakes.
type Laser interface {
	Open(port string, model04LX bool) error
	Close() error
	ID() string
	Status() string
	Limits() hokuyo.DeviceLimits
	LaserOn() error
	LaserOff() error
	RequestScans(intensity bool, minAngle, maxAngle float64, cluster, skip, count int, timeout time.Duration) (int, error)
	ServiceScan(timeout time.Duration) (*hokuyo.Scan, int, error)
	PollScan(minAngle, maxAngle float64, cluster int, timeout time.Duration) (*hokuyo.Scan, int, error)
	CalcLatency(intensity bool, minAngle, maxAngle float64, cluster, skip int) error
}

// Identity is the device identity pair reported by the driver.
type Identity struct {
	ID     string
	Status string
}

// Driver owns one device handle and runs its lifecycle state machine.
//
// The control methods (Open, Start, Stop, Close, SelfTest) are meant to be
// driven from one foreground goroutine. Only Stop and the acquisition loop
// synchronize with each other; everything else relies on the state
// discipline documented per method. None of the control methods return
// errors: every failure leaves the driver in a well-defined state with the
// cause inspectable through Diagnostics and ConnectFailure.
type Driver struct {
	// OnScan is invoked synchronously from the acquisition goroutine with
	// each decoded scan. Set it before Start. A blocking callback throttles
	// acquisition and can push Stop into its join timeout.
	OnScan func(*hokuyo.Scan)

	laser Laser

	// mu serializes state transitions.
	mu       sync.Mutex
	loopDone chan struct{}

	// infoMu guards the identity strings, failure message and config
	// snapshot so Diagnostics never blocks behind a slow transition.
	infoMu       sync.Mutex
	deviceID     string
	deviceStatus string
	connectFail  string
	cfg          config.Config

	state       atomic.Int32
	lostJoins   atomic.Int64
	corrupted   atomic.Int64
	calibrated  bool
	joinTimeout time.Duration
	scanTimeout time.Duration
}

// Option configures a Driver.
type Option func(*Driver)

// WithJoinTimeout overrides how long Stop waits for the acquisition loop
// before abandoning it.
func WithJoinTimeout(timeout time.Duration) Option {
	return func(d *Driver) {
		if timeout > 0 {
			d.joinTimeout = timeout
		}
	}
}

// WithScanTimeout overrides the per-read deadline of the acquisition loop.
// Zero uses the device handle's own default.
func WithScanTimeout(timeout time.Duration) Option {
	return func(d *Driver) {
		d.scanTimeout = timeout
	}
}

// New creates a driver around laser, in the closed state.
func New(laser Laser, opts ...Option) *Driver {
	d := &Driver{
		laser:        laser,
		deviceID:     "unknown",
		deviceStatus: "unknown",
		joinTimeout:  DefaultJoinTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the current connection state.
func (d *Driver) State() ConnectionState {
	return ConnectionState(d.state.Load())
}

// Identity returns the device identity recorded at the last successful open.
// The hardware's placeholder serial is normalized to "unknown".
func (d *Driver) Identity() Identity {
	d.infoMu.Lock()
	defer d.infoMu.Unlock()
	return Identity{ID: d.deviceID, Status: d.deviceStatus}
}

// ConnectFailure returns the last recorded fatal failure message.
func (d *Driver) ConnectFailure() string {
	d.infoMu.Lock()
	defer d.infoMu.Unlock()
	return d.connectFail
}

// LostLoopJoins returns how many times Stop abandoned an acquisition loop
// that failed to exit within the join timeout.
func (d *Driver) LostLoopJoins() int64 {
	return d.lostJoins.Load()
}

// CorruptedScans returns the cumulative count of corrupted frames and
// rejected scan requests.
func (d *Driver) CorruptedScans() int64 {
	return d.corrupted.Load()
}

// Calibrated reports whether the one-time latency calibration has run.
func (d *Driver) Calibrated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calibrated
}

// ResetCalibration clears the calibration flag so the next Open with
// CalibrateTime set calibrates again. The flag otherwise persists for the
// driver's lifetime, across close/reopen cycles.
func (d *Driver) ResetCalibration() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calibrated = false
}

// Open connects to the device named by cfg and moves the driver to the
// opened state. Valid only while closed; otherwise it is a logged no-op.
// When cfg.CalibrateTime is set and calibration has not run yet, the laser
// is turned on and the latency calibration runs before the state changes.
// Any fatal failure records its message, closes the connection and leaves
// the driver closed.
func (d *Driver) Open(cfg config.Config) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.State() != StateClosed {
		logutil.Warnf("open ignored: driver is %s", d.State())
		return
	}

	d.setIdentity("unknown", "unknown")
	d.setConfig(cfg)

	if err := d.laser.Open(cfg.Port, cfg.Model04LX); err != nil {
		d.openFailedLocked(err)
		return
	}
	id := normalizeID(d.laser.ID())
	d.setIdentity(id, d.laser.Status())
	logutil.Debugf("connected to device with ID: %s", id)

	if cfg.CalibrateTime && !d.calibrated {
		if err := d.laser.LaserOn(); err != nil {
			d.openFailedLocked(err)
			return
		}
		logutil.Debugf("starting calibration")
		// The 04LX only accepts the MD command, so calibration must not
		// sample intensity on that model.
		if err := d.laser.CalcLatency(!cfg.Model04LX && cfg.Intensity, cfg.MinAngle, cfg.MaxAngle, cfg.Cluster, cfg.Skip); err != nil {
			d.openFailedLocked(err)
			return
		}
		// Calibration is slow; run it once per calibrated lifetime.
		d.calibrated = true
		logutil.Debugf("calibration finished")
	}

	d.state.Store(int32(StateOpened))
}

// Close stops streaming if needed and disconnects. Valid from any state;
// the driver is always closed afterwards. Close failures are logged, never
// escalated.
func (d *Driver) Close() {
	d.Stop()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeLocked()
}

// Start turns the laser on, requests a scan stream and spawns the
// acquisition loop. Valid only while opened; otherwise it is a logged
// no-op. A rejected scan request (non-zero device status) counts as a
// corrupted-scan event and leaves the driver opened. A fatal failure
// records its message and closes the connection.
func (d *Driver) Start(cfg config.Config) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.State() != StateOpened {
		logutil.Warnf("start ignored: driver is %s", d.State())
		return
	}
	d.setConfig(cfg)

	if err := d.laser.LaserOn(); err != nil {
		logutil.Warnf("failure while starting device: %v", err)
		d.setConnectFail(err.Error())
		d.closeLocked()
		return
	}

	intensity := cfg.Intensity && !cfg.Model04LX
	status, err := d.laser.RequestScans(intensity, cfg.MinAngle, cfg.MaxAngle, cfg.Cluster, cfg.Skip, 0, d.scanTimeout)
	if err != nil {
		logutil.Warnf("failure while starting device: %v", err)
		d.setConnectFail(err.Error())
		d.closeLocked()
		return
	}
	if status != 0 {
		logutil.Warnf("failed to request scans from device: status %d", status)
		d.corrupted.Add(1)
		return
	}

	done := make(chan struct{})
	d.loopDone = done
	d.state.Store(int32(StateRunning))
	go d.acquisitionLoop(done)
}

// Stop ends streaming. Meaningful only while running: the loop can also
// exit on its own, in which case Stop is a no-op. The state moves to opened
// before the bounded join; if the loop fails to exit within the join
// timeout it is abandoned and the lost-join counter incremented. Anything
// an abandoned loop still delivers must be treated as stale by the
// consumer.
func (d *Driver) Stop() {
	d.mu.Lock()
	if d.State() != StateRunning {
		d.mu.Unlock()
		return
	}
	d.state.Store(int32(StateOpened))
	done := d.loopDone
	d.loopDone = nil
	d.mu.Unlock()

	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(d.joinTimeout):
		logutil.Warnf("acquisition loop did not exit within %v; abandoning it", d.joinTimeout)
		d.lostJoins.Add(1)
	}
}

// acquisitionLoop is the single background worker of a running period. It
// pulls one decoded scan per iteration and forwards it to OnScan.
func (d *Driver) acquisitionLoop(done chan struct{}) {
	defer close(done)
	defer d.loopEpilogue()

	for d.State() == StateRunning {
		scan, status, err := d.laser.ServiceScan(d.scanTimeout)
		if err != nil {
			if hokuyo.IsCorruptedFrame(err) {
				logutil.Debugf("skipping corrupted scan frame")
				d.corrupted.Add(1)
				continue
			}
			logutil.Warnf("failure while reading scan: %v", err)
			d.setConnectFail(err.Error())
			d.mu.Lock()
			d.closeLocked()
			d.mu.Unlock()
			return
		}
		if status != 0 {
			logutil.Warnf("error getting scan: status %d", status)
			return
		}
		if cb := d.OnScan; cb != nil {
			cb(scan)
		}
	}
}

// loopEpilogue runs on every loop exit: best-effort laser stop, and the
// running→opened reconciliation unless the connection is already closed.
func (d *Driver) loopEpilogue() {
	if err := d.laser.LaserOff(); err != nil {
		logutil.Debugf("laser off on loop exit: %v", err)
	}
	d.state.CompareAndSwap(int32(StateRunning), int32(StateOpened))
}

// closeLocked disconnects and forces the closed state. Callers hold mu.
func (d *Driver) closeLocked() {
	if err := d.laser.Close(); err != nil {
		logutil.Warnf("failure while closing device: %v", err)
	}
	// If the device cannot even close, the connection is done for anyway.
	d.state.Store(int32(StateClosed))
}

func (d *Driver) openFailedLocked(err error) {
	logutil.Warnf("failure while opening device: %v", err)
	d.setConnectFail(err.Error())
	d.closeLocked()
}

func (d *Driver) setIdentity(id, status string) {
	d.infoMu.Lock()
	defer d.infoMu.Unlock()
	d.deviceID = id
	d.deviceStatus = status
}

func (d *Driver) setConnectFail(msg string) {
	d.infoMu.Lock()
	defer d.infoMu.Unlock()
	d.connectFail = msg
}

func (d *Driver) setConfig(cfg config.Config) {
	d.infoMu.Lock()
	defer d.infoMu.Unlock()
	d.cfg = cfg
}

func (d *Driver) configSnapshot() config.Config {
	d.infoMu.Lock()
	defer d.infoMu.Unlock()
	return d.cfg
}

func normalizeID(id string) string {
	if id == "" || id == idUnknown {
		return "unknown"
	}
	return id
}
