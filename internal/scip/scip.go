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

// Package scip implements the framing primitives of the SCIP2.0 protocol
// spoken by Hokuyo range-finders: line checksums, the 6-bit character
// encoding used for range, intensity and timestamp values, and the fixed
// layout of scan commands.
package scip

import (
	"errors"
	"fmt"
)

// Encoded value widths used by SCIP2.0.
const (
	// TwoChar encodes values up to 4095 (status codes, small counts).
	TwoChar = 2
	// ThreeChar encodes values up to 262143 (range and intensity samples).
	ThreeChar = 3
	// FourChar encodes values up to 16777215 (timestamps).
	FourChar = 4
)

// DataLineLen is the payload length of a full scan data line. The last
// character of each line on the wire is the checksum.
const DataLineLen = 64

var (
	// ErrChecksum indicates a line whose trailing checksum character does
	// not match its payload.
	ErrChecksum = errors.New("scip: checksum mismatch")
	// ErrEncoding indicates a character outside the 6-bit encoding range.
	ErrEncoding = errors.New("scip: invalid encoded character")
	// ErrShortLine indicates a line too short to carry a checksum.
	ErrShortLine = errors.New("scip: line too short")
)

// Checksum computes the SCIP2.0 checksum character for a payload: the low
// six bits of the byte sum, offset into the printable range.
func Checksum(payload []byte) byte {
	var sum int
	for _, b := range payload {
		sum += int(b)
	}
	return byte(sum&0x3f) + 0x30
}

// VerifyLine splits a line into payload and checksum character and verifies
// them, returning the payload on success.
func VerifyLine(line []byte) ([]byte, error) {
	if len(line) < 2 {
		return nil, ErrShortLine
	}
	payload, sum := line[:len(line)-1], line[len(line)-1]
	if Checksum(payload) != sum {
		return nil, fmt.Errorf("%w: line %q", ErrChecksum, line)
	}
	return payload, nil
}

// DecodeUint decodes a SCIP2.0 6-bit encoded value. Each character carries
// six bits, most significant first.
func DecodeUint(chars []byte) (int, error) {
	var v int
	for _, c := range chars {
		if c < 0x30 || c > 0x6f {
			return 0, fmt.Errorf("%w: %q", ErrEncoding, c)
		}
		v = v<<6 | int(c-0x30)
	}
	return v, nil
}

// EncodeUint encodes a value into width 6-bit characters. Used by tests and
// simulated devices; real sensors only ever send encoded values.
func EncodeUint(v, width int) []byte {
	out := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		out[i] = byte(v&0x3f) + 0x30
		v >>= 6
	}
	return out
}

// DecodeBlock decodes a concatenated run of fixed-width encoded samples.
// Trailing characters that do not fill a full sample are ignored, matching
// the devices' padding behavior on the final data line.
func DecodeBlock(data []byte, width int) ([]int, error) {
	out := make([]int, 0, len(data)/width)
	for i := 0; i+width <= len(data); i += width {
		v, err := DecodeUint(data[i : i+width])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ScanCommand builds an MD/ME streaming request or, with skip and count set
// to zero width semantics, the body shared with GD/GE polls. The numeric
// fields of SCIP2.0 scan commands are plain decimal ASCII.
func ScanCommand(code string, start, end, cluster, skip, count int) string {
	return fmt.Sprintf("%s%04d%04d%02d%01d%02d", code, start, end, cluster, skip, count)
}

// PollCommand builds a GD/GE single-scan request.
func PollCommand(code string, start, end, cluster int) string {
	return fmt.Sprintf("%s%04d%04d%02d", code, start, end, cluster)
}

// ParseStatus parses a response status line: two decimal digits plus an
// optional trailing checksum character.
func ParseStatus(line []byte) (int, error) {
	if len(line) < 2 {
		return 0, ErrShortLine
	}
	if len(line) >= 3 {
		if _, err := VerifyLine(line[:3]); err != nil {
			return 0, err
		}
	}
	d1, d2 := line[0], line[1]
	if d1 < '0' || d1 > '9' || d2 < '0' || d2 > '9' {
		return 0, fmt.Errorf("scip: malformed status %q", line)
	}
	return int(d1-'0')*10 + int(d2-'0'), nil
}

// StatusLine renders a status line with its checksum, for tests and
// simulated devices.
func StatusLine(status int) string {
	payload := fmt.Sprintf("%02d", status)
	return payload + string(Checksum([]byte(payload)))
}

// InfoField extracts the value of a VV/PP information line of the form
// "NAME:value;C". The checksum after the semicolon covers "NAME:value".
func InfoField(line []byte) (name, value string, err error) {
	var colon, semi = -1, -1
	for i, c := range line {
		switch {
		case c == ':' && colon < 0:
			colon = i
		case c == ';':
			semi = i
		}
	}
	if colon < 0 || semi < colon {
		return "", "", fmt.Errorf("scip: malformed info line %q", line)
	}
	if semi+1 < len(line) {
		if Checksum(line[:semi]) != line[semi+1] {
			return "", "", fmt.Errorf("%w: info line %q", ErrChecksum, line)
		}
	}
	return string(line[:colon]), string(line[colon+1 : semi]), nil
}

// InfoLine renders an information line with its checksum, for tests and
// simulated devices.
func InfoLine(name, value string) string {
	payload := name + ":" + value
	return payload + ";" + string(Checksum([]byte(payload)))
}
