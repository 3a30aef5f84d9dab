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

// Transport defines the line-oriented interface for talking SCIP2.0 to a
// range-finder. The real implementation lives in transport/serialport; tests
// use MockTransport.
type Transport interface {
	// WriteCommand sends one command, appending the line terminator.
	WriteCommand(cmd string) error

	// ReadLine reads one response line without its terminator. It returns
	// an empty slice for the blank line that ends a response block, and an
	// error satisfying errors.Is(err, ErrTimeout) when the deadline passes
	// with no complete line.
	ReadLine(timeout time.Duration) ([]byte, error)

	// Close closes the transport connection.
	Close() error

	// IsConnected returns true if the transport is usable.
	IsConnected() bool
}

// TransportFactory creates a Transport for a device path. It decouples the
// device handle from the concrete serial backend.
type TransportFactory func(path string) (Transport, error)
