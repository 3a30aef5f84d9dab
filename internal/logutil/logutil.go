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

// Package logutil provides the shared logger behind the library's debug and
// warning output.
package logutil

import (
	"log"
	"os"
	"sync"
	"sync/atomic"
)

var (
	debugEnabled atomic.Bool

	mu     sync.Mutex
	logger = log.New(os.Stderr, "hokuyo: ", log.LstdFlags)
)

// SetDebugEnabled toggles debug output for the whole library.
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// DebugEnabled reports whether debug output is on.
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// SetLogger replaces the destination logger. A nil logger restores the
// default stderr logger.
func SetLogger(l *log.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = log.New(os.Stderr, "hokuyo: ", log.LstdFlags)
	}
	logger = l
}

// Debugf logs a formatted message when debug output is enabled.
func Debugf(format string, args ...any) {
	if !debugEnabled.Load() {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	logger.Printf(format, args...)
}

// Warnf logs a formatted warning unconditionally.
func Warnf(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	logger.Printf("warning: "+format, args...)
}
