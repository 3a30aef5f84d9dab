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
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/OpenLidarProject/go-hokuyo/internal/scip"
)

// MockTransport is a scripted Transport for tests: registered command
// prefixes map to canned response lines, and raw lines can be queued to
// simulate a streaming device. Exported so consumers of the library can test
// against it without hardware.
type MockTransport struct {
	writeErr  error
	readErr   error
	responses map[string][]string
	// ResponseFunc, when set, takes precedence over registered responses.
	ResponseFunc func(cmd string) []string
	pending      []string
	writes       []string
	mu           sync.Mutex
	closed       bool
}

// NewMockTransport creates a mock transport with default responses for the
// protocol switch, identity, state and parameter commands, describing a
// URG-04LX-shaped device with serial H1008012 in good health.
func NewMockTransport() *MockTransport {
	m := &MockTransport{responses: make(map[string][]string)}
	m.SetResponse(scipSwitch, scipSwitch, scip.StatusLine(0), "")
	m.SetResponse("VV", MockInfoResponse("VV",
		[2]string{"VEND", "Hokuyo Automatic Co., Ltd."},
		[2]string{"PROD", "SOKUIKI Sensor URG-04LX"},
		[2]string{"FIRM", "3.3.00"},
		[2]string{"PROT", "SCIP 2.0"},
		[2]string{"SERI", "H1008012"},
	)...)
	m.SetResponse("II", MockInfoResponse("II",
		[2]string{"LASR", "OFF"},
		[2]string{"STAT", "Sensor works well."},
	)...)
	m.SetResponse("PP", MockInfoResponse("PP",
		[2]string{"MODL", "URG-04LX"},
		[2]string{"DMIN", "20"},
		[2]string{"DMAX", "5600"},
		[2]string{"ARES", "1024"},
		[2]string{"AMIN", "44"},
		[2]string{"AMAX", "725"},
		[2]string{"AFRT", "384"},
		[2]string{"SCAN", "600"},
	)...)
	return m
}

// SetResponse registers the full response block (echo line included) for
// commands starting with prefix.
func (m *MockTransport) SetResponse(prefix string, lines ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prefix] = lines
}

// QueueLines appends raw lines to the pending read queue, simulating
// asynchronous stream data.
func (m *MockTransport) QueueLines(lines ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, lines...)
}

// FailWrites makes every subsequent WriteCommand return err.
func (m *MockTransport) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// FailReads makes ReadLine return err once the pending queue is empty.
func (m *MockTransport) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// Writes returns the commands written so far.
func (m *MockTransport) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...)
}

// WriteCommand records the command and queues its scripted response. The
// longest matching registered prefix wins; unscripted commands get a plain
// success acknowledgement.
func (m *MockTransport) WriteCommand(cmd string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("mock transport closed: %w", ErrNotConnected)
	}
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes = append(m.writes, cmd)

	if m.ResponseFunc != nil {
		if lines := m.ResponseFunc(cmd); lines != nil {
			m.pending = append(m.pending, lines...)
			return nil
		}
	}

	prefixes := make([]string, 0, len(m.responses))
	for p := range m.responses {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })
	for _, p := range prefixes {
		if strings.HasPrefix(cmd, p) {
			m.pending = append(m.pending, m.responses[p]...)
			return nil
		}
	}

	m.pending = append(m.pending, cmd, scip.StatusLine(0), "")
	return nil
}

// ReadLine pops the next pending line. An empty queue yields the configured
// read error, or a timeout.
func (m *MockTransport) ReadLine(_ time.Duration) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("mock transport closed: %w", ErrNotConnected)
	}
	if len(m.pending) == 0 {
		if m.readErr != nil {
			return nil, m.readErr
		}
		return nil, fmt.Errorf("mock read: %w", ErrTimeout)
	}
	line := m.pending[0]
	m.pending = m.pending[1:]
	return []byte(line), nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsConnected reports whether Close has been called.
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// MockTransportFactory returns a TransportFactory handing out the given
// mock regardless of path.
func MockTransportFactory(m *MockTransport) TransportFactory {
	return func(_ string) (Transport, error) {
		return m, nil
	}
}

// MockInfoResponse builds a complete info-command response block: echo,
// success status, one checksummed line per field, blank terminator.
func MockInfoResponse(cmd string, fields ...[2]string) []string {
	lines := []string{cmd, scip.StatusLine(0)}
	for _, f := range fields {
		lines = append(lines, scip.InfoLine(f[0], f[1]))
	}
	return append(lines, "")
}

// MockScanBlock builds one streamed scan block: echo, status, checksummed
// timestamp, data lines of up to 64 payload characters, blank terminator.
// Pass intensities as nil for an MD-style block.
func MockScanBlock(echo string, status, deviceMs int, ranges, intensities []int) []string {
	lines := []string{echo, scip.StatusLine(status)}
	if status != streamStatus && status != 0 {
		return append(lines, "")
	}

	ts := scip.EncodeUint(deviceMs, scip.FourChar)
	lines = append(lines, string(ts)+string(scip.Checksum(ts)))

	var payload []byte
	for i, r := range ranges {
		payload = append(payload, scip.EncodeUint(r, scip.ThreeChar)...)
		if intensities != nil && i < len(intensities) {
			payload = append(payload, scip.EncodeUint(intensities[i], scip.ThreeChar)...)
		}
	}
	for len(payload) > 0 {
		n := scip.DataLineLen
		if n > len(payload) {
			n = len(payload)
		}
		chunk := payload[:n]
		payload = payload[n:]
		lines = append(lines, string(chunk)+string(scip.Checksum(chunk)))
	}
	return append(lines, "")
}

// CorruptLine flips a payload character so the line fails its checksum.
func CorruptLine(line string) string {
	if len(line) < 2 {
		return line
	}
	b := []byte(line)
	b[0] ^= 0x01
	return string(b)
}
