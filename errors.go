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

import "errors"

// Sentinel errors for device communication. Match them with errors.Is; the
// classification helpers below cover the two policy-relevant classes.
var (
	// ErrCommunicationFailed indicates the connection is unusable and must
	// be reopened.
	ErrCommunicationFailed = errors.New("communication with device failed")

	// ErrCorruptedFrame indicates one damaged scan block; the stream itself
	// is still usable.
	ErrCorruptedFrame = errors.New("corrupted scan frame")

	// ErrTimeout indicates a device round trip missed its deadline.
	ErrTimeout = errors.New("timeout waiting for device")

	// ErrNotConnected indicates an operation on a closed handle.
	ErrNotConnected = errors.New("device not connected")

	// ErrAlreadyConnected indicates an open on a connected handle.
	ErrAlreadyConnected = errors.New("device already connected")

	// ErrProtocolDesync indicates the byte stream no longer lines up with
	// the expected SCIP2.0 response framing.
	ErrProtocolDesync = errors.New("protocol desynchronized")
)

// ErrorKind classifies a CommError.
type ErrorKind int

const (
	// KindFatal marks failures that invalidate the connection.
	KindFatal ErrorKind = iota
	// KindCorrupted marks recoverable single-frame damage.
	KindCorrupted
	// KindTimeout marks missed deadlines. Treated as fatal by policy: a
	// silent device on an active stream means the connection is gone.
	KindTimeout
)

// CommError is a classified device communication error.
type CommError struct {
	Err  error
	Op   string
	Kind ErrorKind
}

func (e *CommError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *CommError) Unwrap() error {
	return e.Err
}

// Is maps the error kind onto the corresponding sentinel so callers can use
// errors.Is without knowing about CommError.
func (e *CommError) Is(target error) bool {
	switch target {
	case ErrCommunicationFailed:
		return e.Kind == KindFatal
	case ErrCorruptedFrame:
		return e.Kind == KindCorrupted
	case ErrTimeout:
		return e.Kind == KindTimeout
	}
	return false
}

// NewFatalError wraps err as a connection-invalidating failure of op.
func NewFatalError(op string, err error) error {
	return &CommError{Op: op, Kind: KindFatal, Err: err}
}

// NewCorruptedError wraps err as recoverable single-frame damage during op.
func NewCorruptedError(op string, err error) error {
	return &CommError{Op: op, Kind: KindCorrupted, Err: err}
}

// NewTimeoutError reports a missed deadline during op.
func NewTimeoutError(op string) error {
	return &CommError{Op: op, Kind: KindTimeout, Err: ErrTimeout}
}

// IsFatal reports whether err invalidates the connection. Timeouts count:
// the policy treats a silent device like a lost one.
func IsFatal(err error) bool {
	return errors.Is(err, ErrCommunicationFailed) || errors.Is(err, ErrTimeout)
}

// IsCorruptedFrame reports whether err is recoverable single-frame damage.
func IsCorruptedFrame(err error) bool {
	return errors.Is(err, ErrCorruptedFrame)
}
