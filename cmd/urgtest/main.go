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

// urgtest runs the self-test probe sequence against an attached
// range-finder and reports the ordered outcomes. Exit status is 1 when any
// probe errors.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	hokuyo "github.com/OpenLidarProject/go-hokuyo"
	"github.com/OpenLidarProject/go-hokuyo/config"
	"github.com/OpenLidarProject/go-hokuyo/driver"
	"github.com/OpenLidarProject/go-hokuyo/transport/serialport"
)

func main() {
	devicePath := flag.String("device", "/dev/ttyACM0", "Serial device path")
	model04LX := flag.Bool("model-04lx", false, "Device is a legacy URG-04LX")
	debug := flag.Bool("debug", false, "Enable debug output")
	flag.Parse()

	if *debug {
		hokuyo.SetDebugEnabled(true)
	}

	cfg := config.Default()
	cfg.Port = *devicePath
	cfg.Model04LX = *model04LX
	// The self-test exercises the device itself; skip the slow calibration.
	cfg.CalibrateTime = false

	device, err := hokuyo.New(serialport.Factory())
	if err != nil {
		log.Fatalf("create device: %v", err)
	}

	drv := driver.New(device)
	drv.Open(cfg)
	if drv.State() != driver.StateOpened {
		diag := drv.Diagnostics()
		log.Fatalf("open failed: %s", diag.Summary)
	}
	defer drv.Close()

	results, err := drv.SelfTest()
	if err != nil {
		log.Fatalf("self-test: %v", err)
	}

	failed := false
	for _, r := range results {
		fmt.Printf("%-30s [%s] %s\n", r.Name, r.Level, r.Message)
		if r.Level == driver.LevelError {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}
