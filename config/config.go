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

// Package config defines the driver configuration, its defaults and
// validation, and file/environment loading with migration of deprecated
// parameter names.
package config

import (
	"fmt"
	"math"
	"sync"

	"github.com/spf13/viper"

	"github.com/OpenLidarProject/go-hokuyo/internal/logutil"
)

// Config holds the driver parameters. Angles are radians, measured
// counter-clockwise with zero pointing straight ahead.
type Config struct {
	// Port is the serial device path.
	Port string
	// FrameID names the coordinate frame scans are reported in.
	FrameID string
	// MinAngle and MaxAngle bound the measured arc.
	MinAngle float64
	MaxAngle float64
	// Cluster is the number of adjacent range steps merged per sample.
	Cluster int
	// Skip is the number of sweeps skipped between reported scans.
	Skip int
	// Intensity enables reflectance sampling where the model supports it.
	Intensity bool
	// Autostart begins streaming immediately after a successful open.
	Autostart bool
	// CalibrateTime runs the one-time clock latency calibration on open.
	CalibrateTime bool
	// Model04LX selects the legacy URG-04LX command set (MD only).
	Model04LX bool
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Port:          "/dev/ttyACM0",
		FrameID:       "laser",
		MinAngle:      -math.Pi / 2,
		MaxAngle:      math.Pi / 2,
		Cluster:       1,
		Skip:          1,
		Intensity:     true,
		Autostart:     true,
		CalibrateTime: true,
	}
}

// Validate checks the basic ranges the hardware implies.
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("config: port must not be empty")
	}
	if c.Cluster < 1 {
		return fmt.Errorf("config: cluster must be a positive integer, got %d", c.Cluster)
	}
	if c.Skip < 0 {
		return fmt.Errorf("config: skip must be non-negative, got %d", c.Skip)
	}
	if !(c.MinAngle < c.MaxAngle) {
		return fmt.Errorf("config: min_ang %g must be less than max_ang %g", c.MinAngle, c.MaxAngle)
	}
	return nil
}

// Load reads a configuration file (any format viper understands) plus
// HOKUYO_* environment overrides, migrates deprecated parameter names and
// validates the result.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("hokuyo")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return FromViper(v)
}

// FromViper extracts a Config from an already-populated viper instance.
// Deprecated parameter names are accepted and converted with a one-time
// warning each; they are never silently dropped.
func FromViper(v *viper.Viper) (Config, error) {
	defaults := Default()
	v.SetDefault("port", defaults.Port)
	v.SetDefault("frame_id", defaults.FrameID)
	v.SetDefault("min_ang", defaults.MinAngle)
	v.SetDefault("max_ang", defaults.MaxAngle)
	v.SetDefault("cluster", defaults.Cluster)
	v.SetDefault("skip", defaults.Skip)
	v.SetDefault("intensity", defaults.Intensity)
	v.SetDefault("autostart", defaults.Autostart)
	v.SetDefault("calibrate_time", defaults.CalibrateTime)
	v.SetDefault("model_04LX", defaults.Model04LX)

	cfg := Config{
		Port:          v.GetString("port"),
		FrameID:       v.GetString("frame_id"),
		MinAngle:      v.GetFloat64("min_ang"),
		MaxAngle:      v.GetFloat64("max_ang"),
		Cluster:       v.GetInt("cluster"),
		Skip:          v.GetInt("skip"),
		Intensity:     v.GetBool("intensity"),
		Autostart:     v.GetBool("autostart"),
		CalibrateTime: v.GetBool("calibrate_time"),
		Model04LX:     v.GetBool("model_04LX"),
	}
	applyDeprecated(v, &cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// deprecatedWarned tracks which deprecated keys have already produced their
// one-time warning.
var deprecatedWarned sync.Map

func warnDeprecated(oldKey, newKey string) {
	if _, loaded := deprecatedWarned.LoadOrStore(oldKey, struct{}{}); !loaded {
		logutil.Warnf("parameter %q is deprecated, please use %q instead", oldKey, newKey)
	}
}

func applyDeprecated(v *viper.Viper, cfg *Config) {
	if v.IsSet("frameid") {
		warnDeprecated("frameid", "frame_id")
		cfg.FrameID = v.GetString("frameid")
	}
	if v.IsSet("min_ang_degrees") {
		warnDeprecated("min_ang_degrees", "min_ang")
		cfg.MinAngle = v.GetFloat64("min_ang_degrees") * math.Pi / 180
	}
	if v.IsSet("max_ang_degrees") {
		warnDeprecated("max_ang_degrees", "max_ang")
		cfg.MaxAngle = v.GetFloat64("max_ang_degrees") * math.Pi / 180
	}
	if v.IsSet("hokuyoLaserModel04LX") {
		warnDeprecated("hokuyoLaserModel04LX", "model_04LX")
		cfg.Model04LX = v.GetBool("hokuyoLaserModel04LX")
	}
}
