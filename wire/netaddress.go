// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"io"
	"net"
	"time"
)

// maxNetAddressPayload is the maximum number of bytes a NetAddress record
// occupies: 4-byte timestamp (when present) + 8-byte services + 16-byte IP
// + 2-byte port.
const maxNetAddressPayload = 4 + 8 + 16 + 2

// NetAddress represents a peer address record as carried inside a version
// message. The timestamp field is written and read only when the caller
// asks for it (withTimestamp); the two address records embedded in a
// version message never carry one, mirroring upstream behavior.
type NetAddress struct {
	Timestamp time.Time
	Services  ServiceFlag
	IP        net.IP
	Port      uint16
}

func writeNetAddress(w io.Writer, na *NetAddress, withTimestamp bool) error {
	if withTimestamp {
		if err := writeUnixTime32(w, na.Timestamp); err != nil {
			return err
		}
	}
	if err := writeElements(w, uint64(na.Services)); err != nil {
		return err
	}
	if err := writeNetIP(w, na.IP); err != nil {
		return err
	}
	// Port is encoded big-endian on the wire, unlike every other
	// integer field — a long-standing Bitcoin protocol wart this
	// package preserves for interoperability.
	return binary.Write(w, binary.BigEndian, na.Port)
}

func readNetAddress(r io.Reader, withTimestamp bool) (*NetAddress, error) {
	na := &NetAddress{}
	if withTimestamp {
		t, err := readUnixTime32(r)
		if err != nil {
			return nil, err
		}
		na.Timestamp = t
	}
	var services uint64
	if err := readElements(r, &services); err != nil {
		return nil, err
	}
	na.Services = ServiceFlag(services)

	ip, err := readNetIP(r)
	if err != nil {
		return nil, err
	}
	na.IP = ip

	var port uint16
	if err := binary.Read(r, binary.BigEndian, &port); err != nil {
		return nil, err
	}
	na.Port = port
	return na, nil
}
