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
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/OpenLidarProject/go-hokuyo/internal/scip"
)

const (
	// scipSwitch moves SCIP1.1 devices to SCIP2.0. Devices already in
	// SCIP2.0 answer it with a non-zero status, which is fine.
	scipSwitch = "SCIP2.0"

	// streamStatus is the status code carried by MD/ME data blocks.
	streamStatus = 99

	// laserAlreadyOn is BM's status when the laser was on already.
	laserAlreadyOn = 2

	// maxInfoLines bounds VV/II/PP response parsing so a desynchronized
	// stream cannot hang the reader.
	maxInfoLines = 32

	// maxDataLines bounds a single scan block: a full 1081-step sweep with
	// intensity fits in well under 128 lines of 64 characters.
	maxDataLines = 128

	// timestampWrap is the modulus of the device's 24-bit millisecond clock.
	timestampWrap = 1 << 24
)

// DeviceConfig contains configuration options for the Device.
type DeviceConfig struct {
	// Timeout is the default deadline for a single device round trip.
	Timeout time.Duration
}

// DefaultDeviceConfig returns default device configuration.
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		Timeout: 1 * time.Second,
	}
}

// Device is the handle for one SCIP2.0 range-finder.
//
// Thread Safety: Device is NOT thread-safe. The driver package guarantees by
// state discipline that only one of the control path and the acquisition
// loop touches the handle at a time; other callers must provide their own
// synchronization.
type Device struct {
	clockBase time.Time
	factory   TransportFactory
	transport Transport
	config    *DeviceConfig

	vendor   string
	product  string
	firmware string
	protocol string
	serial   string
	status   string

	streamConfig ScanConfig

	// Measurement parameters from the PP command.
	dmin    int // minimum measurable distance, mm
	dmax    int // maximum measurable distance, mm
	ares    int // angular steps per full revolution
	amin    int // first measurable step index
	amax    int // last measurable step index
	afrt    int // step index of the front direction
	scanRPM int // motor speed

	deviceBase int // device clock value paired with clockBase
	latency    time.Duration

	model04LX       bool
	calibrated      bool
	streamIntensity bool
}

// New creates a device handle that opens its transport through factory.
func New(factory TransportFactory, opts ...Option) (*Device, error) {
	device := &Device{
		factory: factory,
		config:  DefaultDeviceConfig(),
		serial:  "unknown",
		status:  "unknown",
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	return device, nil
}

// SetTimeout sets the default timeout for device round trips.
func (d *Device) SetTimeout(timeout time.Duration) {
	d.config.Timeout = timeout
}

// IsOpen reports whether the handle has a usable connection.
func (d *Device) IsOpen() bool {
	return d.transport != nil && d.transport.IsConnected()
}

// Open connects to the device at port, switches it to SCIP2.0 and loads its
// identity, state and measurement parameters. model04LX selects the legacy
// URG-04LX behavior: only the MD scan command (no intensity) is used.
func (d *Device) Open(port string, model04LX bool) error {
	if d.IsOpen() {
		return NewFatalError("open", ErrAlreadyConnected)
	}
	if d.factory == nil {
		return NewFatalError("open", errors.New("no transport factory configured"))
	}

	transport, err := d.factory(port)
	if err != nil {
		return NewFatalError("open", err)
	}
	d.transport = transport
	d.model04LX = model04LX
	d.serial = "unknown"
	d.status = "unknown"

	if err := d.switchProtocol(); err != nil {
		_ = d.Close()
		return err
	}
	if err := d.readVersionInfo(); err != nil {
		_ = d.Close()
		return err
	}
	if err := d.readSensorState(); err != nil {
		_ = d.Close()
		return err
	}
	if err := d.readParameters(); err != nil {
		_ = d.Close()
		return err
	}

	debugf("opened %s %s (serial %s) on %s", d.vendor, d.product, d.serial, port)
	return nil
}

// Close closes the transport. Best effort: errors are returned for logging
// but the handle is unusable afterwards either way.
func (d *Device) Close() error {
	if d.transport == nil {
		return nil
	}
	err := d.transport.Close()
	d.transport = nil
	if err != nil {
		return fmt.Errorf("close transport: %w", err)
	}
	return nil
}

// ID returns the device serial identity as reported at open time.
func (d *Device) ID() string {
	return d.serial
}

// Status returns the device status string as reported at open time.
func (d *Device) Status() string {
	return d.status
}

// Limits returns the measurement envelope reported by the device.
func (d *Device) Limits() DeviceLimits {
	return DeviceLimits{
		MinAngle: d.index2rad(d.amin),
		MaxAngle: d.index2rad(d.amax),
		MinRange: float64(d.dmin) / 1000.0,
		MaxRange: float64(d.dmax) / 1000.0,
	}
}

// LaserOn enables the measurement laser.
func (d *Device) LaserOn() error {
	status, err := d.command("BM")
	if err != nil {
		return err
	}
	if status != 0 && status != laserAlreadyOn {
		return NewFatalError("BM", fmt.Errorf("laser on refused: status %d", status))
	}
	return nil
}

// LaserOff disables the measurement laser and stops any active stream.
func (d *Device) LaserOff() error {
	status, err := d.command("QT")
	if err != nil {
		return err
	}
	if status != 0 {
		return NewFatalError("QT", fmt.Errorf("laser off refused: status %d", status))
	}
	return nil
}

// RequestScans asks the device to stream scans. count bounds the number of
// scans (0 streams until LaserOff). The returned status is the device's
// verdict on the request parameters; zero means streaming has begun and
// ServiceScan will yield data. On a URG-04LX intensity is forced off, since
// the model only accepts the MD command.
func (d *Device) RequestScans(intensity bool, minAngle, maxAngle float64, cluster, skip, count int, timeout time.Duration) (int, error) {
	if !d.IsOpen() {
		return 0, NewFatalError("request scans", ErrNotConnected)
	}
	if d.model04LX && intensity {
		debugf("model 04LX only accepts MD: forcing intensity off")
		intensity = false
	}
	if cluster < 1 {
		cluster = 1
	}
	if skip < 0 {
		skip = 0
	}
	if count < 0 || count > 99 {
		count = 0
	}
	if timeout <= 0 {
		timeout = d.config.Timeout
	}

	code := "MD"
	if intensity {
		code = "ME"
	}
	start, end := d.rad2index(minAngle), d.rad2index(maxAngle)
	cmd := scip.ScanCommand(code, start, end, cluster, skip, count)

	if err := d.transport.WriteCommand(cmd); err != nil {
		return 0, wrapTransportErr(cmd, err)
	}
	status, err := d.readResponseHeader(cmd, timeout)
	if err != nil {
		return 0, err
	}
	if err := d.readBlank(cmd, timeout); err != nil {
		return 0, err
	}

	if status == 0 {
		d.streamIntensity = intensity
		d.streamConfig = d.snapshotConfig(start, end, cluster, skip, intensity)
	}
	return status, nil
}

// ServiceScan reads one streamed scan block. It returns the decoded scan, or
// a non-zero device status (stream ended or rejected), or an error that is
// either a recoverable corrupted frame or a fatal communication failure.
func (d *Device) ServiceScan(timeout time.Duration) (*Scan, int, error) {
	if !d.IsOpen() {
		return nil, 0, NewFatalError("service scan", ErrNotConnected)
	}
	if timeout <= 0 {
		timeout = d.config.Timeout
	}

	echo, err := d.transport.ReadLine(timeout)
	if err != nil {
		return nil, 0, wrapTransportErr("service scan", err)
	}
	if len(echo) < 2 || (string(echo[:2]) != "MD" && string(echo[:2]) != "ME") {
		return nil, 0, NewFatalError("service scan", fmt.Errorf("%w: unexpected block %q", ErrProtocolDesync, echo))
	}

	statusLine, err := d.transport.ReadLine(timeout)
	if err != nil {
		return nil, 0, wrapTransportErr("service scan", err)
	}
	status, err := scip.ParseStatus(statusLine)
	if err != nil {
		d.drainBlock(timeout)
		return nil, 0, NewCorruptedError("service scan", err)
	}
	if status != streamStatus {
		d.drainBlock(timeout)
		return nil, status, nil
	}

	scan, err := d.readScanBody("service scan", d.streamIntensity, d.streamConfig, timeout)
	if err != nil {
		return nil, 0, err
	}
	return scan, 0, nil
}

// PollScan performs a single GD measurement. The laser must already be on.
// The returned status is the device's verdict on the request; zero means
// the scan is valid.
func (d *Device) PollScan(minAngle, maxAngle float64, cluster int, timeout time.Duration) (*Scan, int, error) {
	if !d.IsOpen() {
		return nil, 0, NewFatalError("poll scan", ErrNotConnected)
	}
	if cluster < 1 {
		cluster = 1
	}
	if timeout <= 0 {
		timeout = d.config.Timeout
	}

	start, end := d.rad2index(minAngle), d.rad2index(maxAngle)
	cmd := scip.PollCommand("GD", start, end, cluster)

	if err := d.transport.WriteCommand(cmd); err != nil {
		return nil, 0, wrapTransportErr(cmd, err)
	}
	status, err := d.readResponseHeader(cmd, timeout)
	if err != nil {
		return nil, 0, err
	}
	if status != 0 {
		d.drainBlock(timeout)
		return nil, status, nil
	}

	scan, err := d.readScanBody(cmd, false, d.snapshotConfig(start, end, cluster, 0, false), timeout)
	if err != nil {
		return nil, 0, err
	}
	return scan, 0, nil
}

// command runs a simple command whose response is echo, status and blank.
func (d *Device) command(cmd string) (int, error) {
	if !d.IsOpen() {
		return 0, NewFatalError(cmd, ErrNotConnected)
	}
	if err := d.transport.WriteCommand(cmd); err != nil {
		return 0, wrapTransportErr(cmd, err)
	}
	status, err := d.readResponseHeader(cmd, d.config.Timeout)
	if err != nil {
		return 0, err
	}
	if err := d.readBlank(cmd, d.config.Timeout); err != nil {
		return 0, err
	}
	return status, nil
}

// readResponseHeader consumes the command echo and status line.
func (d *Device) readResponseHeader(cmd string, timeout time.Duration) (int, error) {
	echo, err := d.transport.ReadLine(timeout)
	if err != nil {
		return 0, wrapTransportErr(cmd, err)
	}
	if string(echo) != cmd {
		return 0, NewFatalError(cmd, fmt.Errorf("%w: echo %q", ErrProtocolDesync, echo))
	}
	statusLine, err := d.transport.ReadLine(timeout)
	if err != nil {
		return 0, wrapTransportErr(cmd, err)
	}
	status, err := scip.ParseStatus(statusLine)
	if err != nil {
		return 0, NewFatalError(cmd, err)
	}
	return status, nil
}

func (d *Device) readBlank(cmd string, timeout time.Duration) error {
	line, err := d.transport.ReadLine(timeout)
	if err != nil {
		return wrapTransportErr(cmd, err)
	}
	if len(line) != 0 {
		return NewFatalError(cmd, fmt.Errorf("%w: expected end of block, got %q", ErrProtocolDesync, line))
	}
	return nil
}

// drainBlock consumes response lines up to the blank terminator so the next
// read starts aligned. Errors are ignored; the caller already has one.
func (d *Device) drainBlock(timeout time.Duration) {
	for i := 0; i < maxDataLines; i++ {
		line, err := d.transport.ReadLine(timeout)
		if err != nil || len(line) == 0 {
			return
		}
	}
}

// readScanBody consumes the timestamp and data lines of a scan block and
// decodes them into a Scan.
func (d *Device) readScanBody(op string, intensity bool, cfg ScanConfig, timeout time.Duration) (*Scan, error) {
	tsLine, err := d.transport.ReadLine(timeout)
	if err != nil {
		return nil, wrapTransportErr(op, err)
	}
	tsPayload, err := scip.VerifyLine(tsLine)
	if err != nil || len(tsPayload) != scip.FourChar {
		d.drainBlock(timeout)
		return nil, NewCorruptedError(op, fmt.Errorf("bad timestamp line %q", tsLine))
	}
	deviceMs, err := scip.DecodeUint(tsPayload)
	if err != nil {
		d.drainBlock(timeout)
		return nil, NewCorruptedError(op, err)
	}

	var payload []byte
	for i := 0; ; i++ {
		if i >= maxDataLines {
			return nil, NewFatalError(op, fmt.Errorf("%w: unterminated scan block", ErrProtocolDesync))
		}
		line, err := d.transport.ReadLine(timeout)
		if err != nil {
			return nil, wrapTransportErr(op, err)
		}
		if len(line) == 0 {
			break
		}
		data, err := scip.VerifyLine(line)
		if err != nil {
			d.drainBlock(timeout)
			return nil, NewCorruptedError(op, err)
		}
		payload = append(payload, data...)
	}

	values, err := scip.DecodeBlock(payload, scip.ThreeChar)
	if err != nil {
		return nil, NewCorruptedError(op, err)
	}

	scan := &Scan{
		Timestamp: d.stamp(deviceMs),
		Config:    cfg,
	}
	if intensity {
		scan.Ranges = make([]float64, 0, len(values)/2)
		scan.Intensities = make([]float64, 0, len(values)/2)
		for i := 0; i+1 < len(values); i += 2 {
			scan.Ranges = append(scan.Ranges, float64(values[i])/1000.0)
			scan.Intensities = append(scan.Intensities, float64(values[i+1]))
		}
	} else {
		scan.Ranges = make([]float64, 0, len(values))
		for _, v := range values {
			scan.Ranges = append(scan.Ranges, float64(v)/1000.0)
		}
	}
	return scan, nil
}

// switchProtocol moves the device to SCIP2.0. Devices already running
// SCIP2.0 reject the command; the response is drained either way.
func (d *Device) switchProtocol() error {
	if err := d.transport.WriteCommand(scipSwitch); err != nil {
		return wrapTransportErr(scipSwitch, err)
	}
	echo, err := d.transport.ReadLine(d.config.Timeout)
	if err != nil {
		return wrapTransportErr(scipSwitch, err)
	}
	if string(echo) != scipSwitch {
		return NewFatalError(scipSwitch, fmt.Errorf("%w: echo %q", ErrProtocolDesync, echo))
	}
	// Status value is irrelevant: 0 on a switch, non-zero when already in
	// SCIP2.0.
	d.drainBlock(d.config.Timeout)
	return nil
}

func (d *Device) readVersionInfo() error {
	fields, err := d.parseInfoBlock("VV")
	if err != nil {
		return err
	}
	d.vendor = fields["VEND"]
	d.product = fields["PROD"]
	d.firmware = fields["FIRM"]
	d.protocol = fields["PROT"]
	if serial, ok := fields["SERI"]; ok && serial != "" {
		d.serial = serial
	}
	return nil
}

func (d *Device) readSensorState() error {
	fields, err := d.parseInfoBlock("II")
	if err != nil {
		return err
	}
	if status, ok := fields["STAT"]; ok && status != "" {
		d.status = status
	}
	return nil
}

func (d *Device) readParameters() error {
	fields, err := d.parseInfoBlock("PP")
	if err != nil {
		return err
	}

	required := map[string]*int{
		"DMIN": &d.dmin,
		"DMAX": &d.dmax,
		"ARES": &d.ares,
		"AMIN": &d.amin,
		"AMAX": &d.amax,
		"AFRT": &d.afrt,
	}
	for name, dst := range required {
		raw, ok := fields[name]
		if !ok {
			return NewFatalError("PP", fmt.Errorf("%w: missing %s parameter", ErrProtocolDesync, name))
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return NewFatalError("PP", fmt.Errorf("%w: bad %s value %q", ErrProtocolDesync, name, raw))
		}
		*dst = v
	}
	if d.ares <= 0 {
		return NewFatalError("PP", fmt.Errorf("%w: non-positive angular resolution", ErrProtocolDesync))
	}
	if raw, ok := fields["SCAN"]; ok {
		if v, err := strconv.Atoi(raw); err == nil {
			d.scanRPM = v
		}
	}
	return nil
}

func (d *Device) parseInfoBlock(cmd string) (map[string]string, error) {
	if !d.IsOpen() {
		return nil, NewFatalError(cmd, ErrNotConnected)
	}
	if err := d.transport.WriteCommand(cmd); err != nil {
		return nil, wrapTransportErr(cmd, err)
	}
	status, err := d.readResponseHeader(cmd, d.config.Timeout)
	if err != nil {
		return nil, err
	}
	if status != 0 {
		d.drainBlock(d.config.Timeout)
		return nil, NewFatalError(cmd, fmt.Errorf("device refused %s: status %d", cmd, status))
	}

	fields := make(map[string]string)
	for i := 0; i < maxInfoLines; i++ {
		line, err := d.transport.ReadLine(d.config.Timeout)
		if err != nil {
			return nil, wrapTransportErr(cmd, err)
		}
		if len(line) == 0 {
			return fields, nil
		}
		name, value, err := scip.InfoField(line)
		if err != nil {
			return nil, NewFatalError(cmd, err)
		}
		fields[name] = value
	}
	return nil, NewFatalError(cmd, fmt.Errorf("%w: unterminated %s block", ErrProtocolDesync, cmd))
}

func (d *Device) snapshotConfig(start, end, cluster, skip int, intensity bool) ScanConfig {
	scanTime := 0.0
	timeIncrement := 0.0
	if d.scanRPM > 0 {
		scanTime = 60.0 / float64(d.scanRPM)
		timeIncrement = scanTime / float64(d.ares)
	}
	return ScanConfig{
		MinAngle:       d.index2rad(start),
		MaxAngle:       d.index2rad(end),
		AngleIncrement: 2 * math.Pi * float64(cluster) / float64(d.ares),
		TimeIncrement:  timeIncrement,
		ScanTime:       scanTime,
		MinRange:       float64(d.dmin) / 1000.0,
		MaxRange:       float64(d.dmax) / 1000.0,
		ClusterCount:   cluster,
		SkipCount:      skip,
		Intensity:      intensity,
	}
}

// rad2index converts an angle to the nearest measurable step index.
func (d *Device) rad2index(angle float64) int {
	index := d.afrt + int(math.Round(angle*float64(d.ares)/(2*math.Pi)))
	if index < d.amin {
		index = d.amin
	}
	if index > d.amax {
		index = d.amax
	}
	return index
}

func (d *Device) index2rad(index int) float64 {
	return float64(index-d.afrt) * 2 * math.Pi / float64(d.ares)
}

// stamp converts a device timestamp to host time using the calibrated clock
// offset. Uncalibrated handles fall back to the host clock at decode time.
func (d *Device) stamp(deviceMs int) time.Time {
	if !d.calibrated {
		return time.Now().Add(-d.latency)
	}
	delta := deviceMs - d.deviceBase
	if delta < 0 {
		delta += timestampWrap
	}
	return d.clockBase.Add(time.Duration(delta)*time.Millisecond - d.latency)
}

// wrapTransportErr classifies a transport failure: deadline misses keep
// their timeout identity, everything else is fatal.
func wrapTransportErr(op string, err error) error {
	if errors.Is(err, ErrTimeout) {
		return NewTimeoutError(op)
	}
	return &CommError{Op: op, Kind: KindFatal, Err: fmt.Errorf("%w: %w", ErrCommunicationFailed, err)}
}
