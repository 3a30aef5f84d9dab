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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hokuyo "github.com/OpenLidarProject/go-hokuyo"
)

var probeOrder = []string{
	"Status Test",
	"Laser Test",
	"Polled Data Test",
	"Streamed Data Test",
	"Streamed Intensity Data Test",
	"Laser Off Test",
}

func openedTestDriver(t *testing.T, laser *fakeLaser) *Driver {
	t.Helper()
	drv := New(laser)
	drv.Open(testConfig())
	require.Equal(t, StateOpened, drv.State())
	return drv
}

func TestSelfTestRequiresOpenedIdleDevice(t *testing.T) {
	t.Parallel()

	t.Run("closed", func(t *testing.T) {
		t.Parallel()
		drv := New(newFakeLaser())
		_, err := drv.SelfTest()
		assert.Error(t, err)
	})

	t.Run("running", func(t *testing.T) {
		t.Parallel()
		laser := newFakeLaser()
		drv := openedTestDriver(t, laser)
		drv.Start(testConfig())
		require.Equal(t, StateRunning, drv.State())

		_, err := drv.SelfTest()
		assert.Error(t, err)
		drv.Close()
	})
}

func TestSelfTestAllPass(t *testing.T) {
	t.Parallel()

	laser := newFakeLaser()
	laser.serviceFn = func(int) (*hokuyo.Scan, int, error) {
		return &hokuyo.Scan{}, 0, nil
	}
	drv := openedTestDriver(t, laser)

	results, err := drv.SelfTest()
	require.NoError(t, err)
	require.Len(t, results, len(probeOrder))
	for i, r := range results {
		assert.Equal(t, probeOrder[i], r.Name)
		assert.Equal(t, LevelOK, r.Level, "%s: %s", r.Name, r.Message)
	}
	assert.Equal(t, goodStatus, results[0].Message)

	// Two streamed probes of 99 scans each.
	_, _, _, _, service := laser.counts()
	assert.Equal(t, 2*selfTestScans, service)
}

func TestSelfTestBadDeviceStatus(t *testing.T) {
	t.Parallel()

	laser := newFakeLaser()
	laser.status = "Sensor is abnormal"
	laser.serviceFn = func(int) (*hokuyo.Scan, int, error) {
		return &hokuyo.Scan{}, 0, nil
	}
	drv := openedTestDriver(t, laser)

	results, err := drv.SelfTest()
	require.NoError(t, err)
	require.Len(t, results, len(probeOrder))

	// A failing probe never short-circuits the rest of the sequence.
	assert.Equal(t, LevelError, results[0].Level)
	assert.Equal(t, "Sensor is abnormal", results[0].Message)
	for _, r := range results[1:] {
		assert.Equal(t, LevelOK, r.Level, "%s: %s", r.Name, r.Message)
	}
}

func TestSelfTestPollRejection(t *testing.T) {
	t.Parallel()

	laser := newFakeLaser()
	laser.pollStatus = 21
	laser.serviceFn = func(int) (*hokuyo.Scan, int, error) {
		return &hokuyo.Scan{}, 0, nil
	}
	drv := openedTestDriver(t, laser)

	results, err := drv.SelfTest()
	require.NoError(t, err)

	assert.Equal(t, LevelError, results[2].Level)
	assert.Equal(t, "Device error code: 21. Consult the manual for meaning.", results[2].Message)
}

func TestSelfTestIntensityCorruptionTolerance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		corrupted   int
		wantLevel   Level
		wantMessage string
	}{
		{
			name:        "clean burst",
			corrupted:   0,
			wantLevel:   LevelOK,
			wantMessage: "Streamed data with intensity from device successfully.",
		},
		{
			name:        "single corruption tolerated",
			corrupted:   1,
			wantLevel:   LevelWarning,
			wantMessage: "Single corrupted message. This is acceptable and unavoidable.",
		},
		{
			name:        "repeated corruption fails",
			corrupted:   3,
			wantLevel:   LevelError,
			wantMessage: "3 corrupted messages.",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			laser := newFakeLaser()
			// The first streamed probe consumes calls 1..selfTestScans; the
			// intensity probe's calls follow.
			laser.serviceFn = func(call int) (*hokuyo.Scan, int, error) {
				if call > selfTestScans && call <= selfTestScans+tt.corrupted {
					return nil, 0, hokuyo.NewCorruptedError("service scan", errors.New("checksum mismatch"))
				}
				return &hokuyo.Scan{}, 0, nil
			}
			drv := openedTestDriver(t, laser)

			results, err := drv.SelfTest()
			require.NoError(t, err)

			intensityResult := results[4]
			require.Equal(t, "Streamed Intensity Data Test", intensityResult.Name)
			assert.Equal(t, tt.wantLevel, intensityResult.Level)
			assert.Equal(t, tt.wantMessage, intensityResult.Message)
		})
	}
}

func TestSelfTestStreamEndsEarly(t *testing.T) {
	t.Parallel()

	laser := newFakeLaser()
	laser.serviceFn = func(call int) (*hokuyo.Scan, int, error) {
		if call == 50 {
			return nil, 10, nil
		}
		return &hokuyo.Scan{}, 0, nil
	}
	drv := openedTestDriver(t, laser)

	results, err := drv.SelfTest()
	require.NoError(t, err)

	streamed := results[3]
	require.Equal(t, "Streamed Data Test", streamed.Name)
	assert.Equal(t, LevelError, streamed.Level)
	assert.Equal(t, fmt.Sprintf("Stream ended early: status %d.", 10), streamed.Message)
}
