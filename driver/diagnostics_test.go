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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hokuyo "github.com/OpenLidarProject/go-hokuyo"
)

func diagValue(t *testing.T, diag DiagnosticStatus, key string) string {
	t.Helper()
	for _, kv := range diag.Values {
		if kv.Key == key {
			return kv.Value
		}
	}
	t.Fatalf("diagnostics missing key %q", key)
	return ""
}

func TestDiagnosticsClosed(t *testing.T) {
	t.Parallel()

	laser := newFakeLaser()
	laser.openErr = errors.New("no such port")
	drv := New(laser)
	drv.Open(testConfig())

	diag := drv.Diagnostics()
	assert.Equal(t, LevelError, diag.Level)
	assert.Contains(t, diag.Summary, "Not connected.")
	assert.Contains(t, diag.Summary, "no such port")
}

func TestDiagnosticsOpened(t *testing.T) {
	t.Parallel()

	laser := newFakeLaser()
	drv := New(laser)
	cfg := testConfig()
	cfg.Port = "/dev/ttyACM3"
	drv.Open(cfg)
	require.Equal(t, StateOpened, drv.State())

	diag := drv.Diagnostics()
	assert.Equal(t, LevelOK, diag.Level)
	assert.Equal(t, "Sensor open.", diag.Summary)
	assert.Equal(t, "/dev/ttyACM3", diagValue(t, diag, "Port"))
	assert.Equal(t, "H1102999", diagValue(t, diag, "Device ID"))
	assert.Equal(t, goodStatus, diagValue(t, diag, "Device Status"))
	assert.Equal(t, "0", diagValue(t, diag, "Scan Loop Lost Count"))
	assert.Equal(t, "0", diagValue(t, diag, "Corrupted Scan Count"))
}

func TestDiagnosticsRunning(t *testing.T) {
	t.Parallel()

	laser := newFakeLaser()
	drv := New(laser)
	drv.Open(testConfig())
	drv.Start(testConfig())
	require.Equal(t, StateRunning, drv.State())

	diag := drv.Diagnostics()
	assert.Equal(t, LevelOK, diag.Level)
	assert.Equal(t, "Sensor streaming.", diag.Summary)

	drv.Close()
}

func TestDiagnosticsBadDeviceStatus(t *testing.T) {
	t.Parallel()

	laser := newFakeLaser()
	laser.status = "Sensor is abnormal"
	drv := New(laser)
	drv.Open(testConfig())
	require.Equal(t, StateOpened, drv.State())

	diag := drv.Diagnostics()
	assert.Equal(t, LevelError, diag.Level)
	assert.Equal(t, "Sensor not operational", diag.Summary)
}

func TestDiagnosticsCounters(t *testing.T) {
	t.Parallel()

	laser := newFakeLaser()
	laser.requestStatus = 13
	drv := New(laser)
	drv.Open(testConfig())

	// Two rejected stream requests count as corrupted-scan events.
	drv.Start(testConfig())
	drv.Start(testConfig())
	require.Equal(t, StateOpened, drv.State())

	diag := drv.Diagnostics()
	assert.Equal(t, "2", diagValue(t, diag, "Corrupted Scan Count"))
}

func TestDiagnosticsLostJoinCounter(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	laser := newFakeLaser()
	laser.serviceFn = func(int) (*hokuyo.Scan, int, error) {
		<-release
		return nil, 10, nil
	}
	drv := New(laser, WithJoinTimeout(20*time.Millisecond))
	drv.Open(testConfig())
	drv.Start(testConfig())
	drv.Stop()

	diag := drv.Diagnostics()
	assert.Equal(t, "1", diagValue(t, diag, "Scan Loop Lost Count"))

	close(release)
}
