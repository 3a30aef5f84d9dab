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

// Package serialport implements the serial transport for SCIP2.0 devices.
package serialport

import (
	"bytes"
	"fmt"
	"time"

	"go.bug.st/serial"

	hokuyo "github.com/OpenLidarProject/go-hokuyo"
)

// Hokuyo sensors attach as USB-CDC; the line settings are nominal and the
// devices ignore the baud rate, but a sane mode keeps real RS-232 adapters
// working.
var defaultMode = &serial.Mode{
	BaudRate: 115200,
	DataBits: 8,
	Parity:   serial.NoParity,
	StopBits: serial.OneStopBit,
}

// Transport is a line-oriented serial connection implementing
// hokuyo.Transport.
type Transport struct {
	port      serial.Port
	path      string
	buf       []byte
	connected bool
}

// New opens the serial device at path.
func New(path string) (*Transport, error) {
	port, err := serial.Open(path, defaultMode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Transport{port: port, path: path, connected: true}, nil
}

// Factory returns a hokuyo.TransportFactory backed by New.
func Factory() hokuyo.TransportFactory {
	return func(path string) (hokuyo.Transport, error) {
		return New(path)
	}
}

// WriteCommand sends one command line.
func (t *Transport) WriteCommand(cmd string) error {
	if !t.connected {
		return fmt.Errorf("write %s: %w", t.path, hokuyo.ErrNotConnected)
	}
	if _, err := t.port.Write(append([]byte(cmd), '\n')); err != nil {
		t.connected = false
		return fmt.Errorf("write %s: %w", t.path, err)
	}
	return nil
}

// ReadLine reads one LF-terminated line, without the terminator, within
// timeout. A deadline miss wraps hokuyo.ErrTimeout.
func (t *Transport) ReadLine(timeout time.Duration) ([]byte, error) {
	if !t.connected {
		return nil, fmt.Errorf("read %s: %w", t.path, hokuyo.ErrNotConnected)
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	deadline := time.Now().Add(timeout)

	for {
		if i := bytes.IndexByte(t.buf, '\n'); i >= 0 {
			line := bytes.TrimSuffix(t.buf[:i], []byte{'\r'})
			out := append([]byte(nil), line...)
			t.buf = append(t.buf[:0], t.buf[i+1:]...)
			return out, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("read %s: %w", t.path, hokuyo.ErrTimeout)
		}
		if err := t.port.SetReadTimeout(remaining); err != nil {
			t.connected = false
			return nil, fmt.Errorf("read %s: %w", t.path, err)
		}
		chunk := make([]byte, 256)
		n, err := t.port.Read(chunk)
		if err != nil {
			t.connected = false
			return nil, fmt.Errorf("read %s: %w", t.path, err)
		}
		if n == 0 {
			// go.bug.st/serial signals an expired read timeout with a
			// zero-length read and no error.
			return nil, fmt.Errorf("read %s: %w", t.path, hokuyo.ErrTimeout)
		}
		t.buf = append(t.buf, chunk[:n]...)
	}
}

// Close closes the serial port.
func (t *Transport) Close() error {
	if !t.connected {
		return nil
	}
	t.connected = false
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("close %s: %w", t.path, err)
	}
	return nil
}

// IsConnected reports whether the port is usable.
func (t *Transport) IsConnected() bool {
	return t.connected
}
