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
	"log"

	"github.com/OpenLidarProject/go-hokuyo/internal/logutil"
)

// SetDebugEnabled toggles debug output for the whole library, including the
// driver and config packages.
func SetDebugEnabled(enabled bool) {
	logutil.SetDebugEnabled(enabled)
}

// SetLogger replaces the destination of all library log output. A nil logger
// restores the default stderr logger.
func SetLogger(l *log.Logger) {
	logutil.SetLogger(l)
}

func debugf(format string, args ...any) {
	logutil.Debugf(format, args...)
}

func warnf(format string, args ...any) {
	logutil.Warnf(format, args...)
}
