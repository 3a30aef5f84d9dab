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
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hokuyo "github.com/OpenLidarProject/go-hokuyo"
	"github.com/OpenLidarProject/go-hokuyo/config"
)

// fakeLaser scripts the device handle so driver transitions can be tested
// without a transport.
type fakeLaser struct {
	mu sync.Mutex

	id     string
	status string

	openErr       error
	laserOnErr    error
	laserOffErr   error
	calcErr       error
	requestErr    error
	requestStatus int
	pollErr       error
	pollStatus    int

	// serviceFn scripts ServiceScan per call number (1-based). When nil a
	// fresh empty scan is produced after a short delay.
	serviceFn func(call int) (*hokuyo.Scan, int, error)

	openCalls     int
	closeCalls    int
	laserOnCalls  int
	laserOffCalls int
	calcCalls     int
	requestCalls  int
	serviceCalls  int
	pollCalls     int

	lastModel04LX        bool
	lastCalcIntensity    bool
	lastRequestIntensity bool
}

func newFakeLaser() *fakeLaser {
	return &fakeLaser{id: "H1102999", status: goodStatus}
}

func (f *fakeLaser) Open(_ string, model04LX bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openCalls++
	f.lastModel04LX = model04LX
	return f.openErr
}

func (f *fakeLaser) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	return nil
}

func (f *fakeLaser) ID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id
}

func (f *fakeLaser) Status() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeLaser) Limits() hokuyo.DeviceLimits {
	return hokuyo.DeviceLimits{MinAngle: -2, MaxAngle: 2, MinRange: 0.02, MaxRange: 5.6}
}

func (f *fakeLaser) LaserOn() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.laserOnCalls++
	return f.laserOnErr
}

func (f *fakeLaser) LaserOff() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.laserOffCalls++
	return f.laserOffErr
}

func (f *fakeLaser) RequestScans(intensity bool, _, _ float64, _, _, _ int, _ time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requestCalls++
	f.lastRequestIntensity = intensity
	return f.requestStatus, f.requestErr
}

func (f *fakeLaser) ServiceScan(time.Duration) (*hokuyo.Scan, int, error) {
	f.mu.Lock()
	f.serviceCalls++
	call := f.serviceCalls
	fn := f.serviceFn
	f.mu.Unlock()

	if fn != nil {
		return fn(call)
	}
	time.Sleep(time.Millisecond)
	return &hokuyo.Scan{}, 0, nil
}

func (f *fakeLaser) PollScan(_, _ float64, _ int, _ time.Duration) (*hokuyo.Scan, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollCalls++
	if f.pollErr != nil || f.pollStatus != 0 {
		return nil, f.pollStatus, f.pollErr
	}
	return &hokuyo.Scan{}, 0, nil
}

func (f *fakeLaser) CalcLatency(intensity bool, _, _ float64, _, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calcCalls++
	f.lastCalcIntensity = intensity
	return f.calcErr
}

func (f *fakeLaser) counts() (open, closeN, laserOff, calc, service int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.openCalls, f.closeCalls, f.laserOffCalls, f.calcCalls, f.serviceCalls
}

// testConfig returns a config that skips the slow calibration path.
func testConfig() config.Config {
	cfg := config.Default()
	cfg.CalibrateTime = false
	return cfg
}

func TestDriverLifecycle(t *testing.T) {
	t.Parallel()

	laser := newFakeLaser()
	drv := New(laser)
	cfg := testConfig()

	assert.Equal(t, StateClosed, drv.State())

	drv.Open(cfg)
	require.Equal(t, StateOpened, drv.State())

	// A second open while not closed is a no-op.
	drv.Open(cfg)
	open, _, _, _, _ := laser.counts()
	assert.Equal(t, 1, open)

	drv.Start(cfg)
	require.Equal(t, StateRunning, drv.State())

	drv.Stop()
	assert.Equal(t, StateOpened, drv.State())
	assert.Equal(t, int64(0), drv.LostLoopJoins())

	drv.Close()
	assert.Equal(t, StateClosed, drv.State())

	// Stop and Close are safe from the closed state.
	drv.Stop()
	drv.Close()
	assert.Equal(t, StateClosed, drv.State())
}

func TestDriverStartRequiresOpened(t *testing.T) {
	t.Parallel()

	laser := newFakeLaser()
	drv := New(laser)

	drv.Start(testConfig())
	assert.Equal(t, StateClosed, drv.State())
	_, _, _, _, service := laser.counts()
	assert.Zero(t, service)
}

func TestDriverOpenFailure(t *testing.T) {
	t.Parallel()

	laser := newFakeLaser()
	laser.openErr = errors.New("no such port")
	drv := New(laser)

	drv.Open(testConfig())
	assert.Equal(t, StateClosed, drv.State())
	assert.Contains(t, drv.ConnectFailure(), "no such port")
	_, closeN, _, _, _ := laser.counts()
	assert.Equal(t, 1, closeN)
}

func TestDriverCalibratesOncePerLifetime(t *testing.T) {
	t.Parallel()

	laser := newFakeLaser()
	drv := New(laser)
	cfg := config.Default()

	drv.Open(cfg)
	require.Equal(t, StateOpened, drv.State())
	assert.True(t, drv.Calibrated())
	_, _, _, calc, _ := laser.counts()
	assert.Equal(t, 1, calc)

	// Reopening skips the calibration.
	drv.Close()
	drv.Open(cfg)
	require.Equal(t, StateOpened, drv.State())
	_, _, _, calc, _ = laser.counts()
	assert.Equal(t, 1, calc)

	// Resetting the flag re-runs it.
	drv.Close()
	drv.ResetCalibration()
	drv.Open(cfg)
	_, _, _, calc, _ = laser.counts()
	assert.Equal(t, 2, calc)
}

func TestDriverCalibrationFailureClosesDriver(t *testing.T) {
	t.Parallel()

	laser := newFakeLaser()
	laser.calcErr = hokuyo.NewTimeoutError("TM1")
	drv := New(laser)

	drv.Open(config.Default())
	assert.Equal(t, StateClosed, drv.State())
	assert.False(t, drv.Calibrated())
	assert.NotEmpty(t, drv.ConnectFailure())
}

func TestDriver04LXForcesIntensityOff(t *testing.T) {
	t.Parallel()

	laser := newFakeLaser()
	drv := New(laser)
	cfg := config.Default()
	cfg.Model04LX = true
	cfg.Intensity = true

	drv.Open(cfg)
	require.Equal(t, StateOpened, drv.State())

	laser.mu.Lock()
	assert.True(t, laser.lastModel04LX)
	assert.False(t, laser.lastCalcIntensity)
	laser.mu.Unlock()

	drv.Start(cfg)
	require.Equal(t, StateRunning, drv.State())
	laser.mu.Lock()
	assert.False(t, laser.lastRequestIntensity)
	laser.mu.Unlock()

	drv.Close()
}

func TestDriverStartRejectedRequest(t *testing.T) {
	t.Parallel()

	laser := newFakeLaser()
	laser.requestStatus = 13
	drv := New(laser)

	drv.Open(testConfig())
	drv.Start(testConfig())

	assert.Equal(t, StateOpened, drv.State())
	assert.Equal(t, int64(1), drv.CorruptedScans())
	_, _, _, _, service := laser.counts()
	assert.Zero(t, service)
}

func TestDriverStartFatalFailure(t *testing.T) {
	t.Parallel()

	laser := newFakeLaser()
	laser.laserOnErr = errors.New("device gone")
	drv := New(laser)

	drv.Open(testConfig())
	drv.Start(testConfig())

	assert.Equal(t, StateClosed, drv.State())
	assert.Contains(t, drv.ConnectFailure(), "device gone")
}

func TestDriverDeliversScans(t *testing.T) {
	t.Parallel()

	laser := newFakeLaser()
	drv := New(laser)

	var delivered atomic.Int64
	drv.OnScan = func(scan *hokuyo.Scan) {
		assert.NotNil(t, scan)
		delivered.Add(1)
	}

	drv.Open(testConfig())
	drv.Start(testConfig())
	require.Equal(t, StateRunning, drv.State())

	assert.Eventually(t, func() bool { return delivered.Load() >= 3 },
		time.Second, time.Millisecond)

	drv.Close()
	assert.Equal(t, StateClosed, drv.State())
}

func TestDriverCountsCorruptedScans(t *testing.T) {
	t.Parallel()

	laser := newFakeLaser()
	laser.serviceFn = func(call int) (*hokuyo.Scan, int, error) {
		if call <= 3 {
			return nil, 0, hokuyo.NewCorruptedError("service scan", errors.New("checksum mismatch"))
		}
		time.Sleep(time.Millisecond)
		return &hokuyo.Scan{}, 0, nil
	}
	drv := New(laser)

	drv.Open(testConfig())
	drv.Start(testConfig())

	// Corrupted frames are skipped and counted; the loop keeps running.
	assert.Eventually(t, func() bool { return drv.CorruptedScans() == 3 },
		time.Second, time.Millisecond)
	assert.Equal(t, StateRunning, drv.State())

	drv.Close()
}

func TestDriverFatalScanErrorClosesDriver(t *testing.T) {
	t.Parallel()

	var delivered atomic.Int64
	laser := newFakeLaser()
	laser.serviceFn = func(call int) (*hokuyo.Scan, int, error) {
		if call == 1 {
			return &hokuyo.Scan{}, 0, nil
		}
		return nil, 0, hokuyo.NewTimeoutError("service scan")
	}
	drv := New(laser)
	drv.OnScan = func(*hokuyo.Scan) { delivered.Add(1) }

	drv.Open(testConfig())
	drv.Start(testConfig())

	assert.Eventually(t, func() bool { return drv.State() == StateClosed },
		time.Second, time.Millisecond)
	assert.NotEmpty(t, drv.ConnectFailure())

	// No further deliveries once the loop has died.
	final := delivered.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, final, delivered.Load())
	assert.Zero(t, drv.CorruptedScans())
}

func TestDriverStreamEndReturnsToOpened(t *testing.T) {
	t.Parallel()

	laser := newFakeLaser()
	laser.serviceFn = func(int) (*hokuyo.Scan, int, error) {
		return nil, 10, nil
	}
	drv := New(laser)

	drv.Open(testConfig())
	drv.Start(testConfig())

	// The loop exits on the device status and reconciles back to opened.
	assert.Eventually(t, func() bool { return drv.State() == StateOpened },
		time.Second, time.Millisecond)
	assert.Eventually(t, func() bool {
		_, _, laserOff, _, _ := laser.counts()
		return laserOff >= 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, int64(0), drv.LostLoopJoins())

	// Stop after a self-terminated loop is a no-op.
	drv.Stop()
	assert.Equal(t, StateOpened, drv.State())
}

func TestDriverStopAbandonsStuckLoop(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	laser := newFakeLaser()
	laser.serviceFn = func(int) (*hokuyo.Scan, int, error) {
		once.Do(func() { close(entered) })
		<-release
		return nil, 10, nil
	}
	drv := New(laser, WithJoinTimeout(20*time.Millisecond))

	drv.Open(testConfig())
	drv.Start(testConfig())
	<-entered

	drv.Stop()
	assert.Equal(t, StateOpened, drv.State())
	assert.Equal(t, int64(1), drv.LostLoopJoins())

	close(release)
}

func TestDriverIdentityNormalization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		raw    string
		wantID string
	}{
		{name: "real serial", raw: "H1102999", wantID: "H1102999"},
		{name: "placeholder serial", raw: "H0000000", wantID: "unknown"},
		{name: "empty serial", raw: "", wantID: "unknown"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			laser := newFakeLaser()
			laser.id = tt.raw
			drv := New(laser)

			drv.Open(testConfig())
			require.Equal(t, StateOpened, drv.State())
			assert.Equal(t, tt.wantID, drv.Identity().ID)
			assert.Equal(t, goodStatus, drv.Identity().Status)
		})
	}
}
