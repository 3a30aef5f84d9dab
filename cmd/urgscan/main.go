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

// urgscan streams scans from a Hokuyo range-finder and prints per-scan
// summaries until interrupted.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	hokuyo "github.com/OpenLidarProject/go-hokuyo"
	"github.com/OpenLidarProject/go-hokuyo/config"
	"github.com/OpenLidarProject/go-hokuyo/detection"
	"github.com/OpenLidarProject/go-hokuyo/driver"
	"github.com/OpenLidarProject/go-hokuyo/transport/serialport"
)

func main() {
	devicePath := flag.String("device", "",
		"Serial device path (e.g. /dev/ttyACM0). Leave empty to auto-detect.")
	configPath := flag.String("config", "", "Optional configuration file")
	debug := flag.Bool("debug", false, "Enable debug output")
	every := flag.Int("every", 10, "Print a summary every N scans")
	flag.Parse()

	if *debug {
		hokuyo.SetDebugEnabled(true)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}
	if *devicePath != "" {
		cfg.Port = *devicePath
	} else if *configPath == "" {
		candidates, err := detection.Candidates()
		if err == nil && len(candidates) > 0 {
			cfg.Port = candidates[0].Path
			fmt.Printf("auto-detected device at %s\n", cfg.Port)
		}
	}

	device, err := hokuyo.New(serialport.Factory())
	if err != nil {
		log.Fatalf("create device: %v", err)
	}

	var delivered atomic.Int64
	drv := driver.New(device)
	drv.OnScan = func(scan *hokuyo.Scan) {
		n := delivered.Add(1)
		if *every > 0 && n%int64(*every) == 0 {
			fmt.Printf("scan %d: %d ranges, %d intensities, stamp %s\n",
				n, len(scan.Ranges), len(scan.Intensities),
				scan.Timestamp.Format("15:04:05.000"))
		}
	}

	drv.Open(cfg)
	if drv.State() != driver.StateOpened {
		diag := drv.Diagnostics()
		log.Fatalf("open failed: %s", diag.Summary)
	}
	identity := drv.Identity()
	fmt.Printf("connected: id=%s status=%q frame=%s\n", identity.ID, identity.Status, cfg.FrameID)

	if cfg.Autostart {
		drv.Start(cfg)
		if drv.State() != driver.StateRunning {
			diag := drv.Diagnostics()
			log.Fatalf("start failed: %s", diag.Summary)
		}
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt

	drv.Close()
	diag := drv.Diagnostics()
	fmt.Printf("stopped after %d scans\n", delivered.Load())
	for _, kv := range diag.Values {
		fmt.Printf("  %s: %s\n", kv.Key, kv.Value)
	}
}
