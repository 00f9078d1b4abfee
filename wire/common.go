// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// MessageHeaderSize is the number of bytes in a bitcoin message header.
// Bitcoin network (magic) 4 bytes + command 12 bytes + payload length
// 4 bytes + checksum 4 bytes.
const MessageHeaderSize = 24

// CommandSize is the fixed size of all commands in the common bitcoin
// message header. Shorter commands must be zero padded.
const CommandSize = 12

// MaxVarIntPayload is the maximum payload size for a variable length
// integer.
const MaxVarIntPayload = 9

var (
	// ErrNeedMore is returned by Decode when the supplied buffer does not
	// yet hold a full frame. The caller should read more bytes from the
	// connection and retry; it is never an application-level error.
	ErrNeedMore = errors.New("wire: need more bytes")

	// ErrInvalidMagic is returned when the header's network magic does
	// not match the caller's expected network.
	ErrInvalidMagic = errors.New("wire: invalid network magic")

	// ErrInvalidChecksum is returned when the payload checksum does not
	// match the header's declared checksum.
	ErrInvalidChecksum = errors.New("wire: payload checksum mismatch")

	// ErrMessageTooLarge is returned when a header declares a payload
	// length exceeding the configured maximum. This aborts the
	// connection rather than being skipped.
	ErrMessageTooLarge = errors.New("wire: declared payload length exceeds maximum")

	binarySerializer = binary.LittleEndian
)

// checksum returns the first 4 bytes of the double-SHA256 of payload, the
// checksum carried in every message header.
func checksum(payload []byte) [4]byte {
	h := chainhash.DoubleHashB(payload)
	var sum [4]byte
	copy(sum[:], h[:4])
	return sum
}

// writeVarInt serializes val to w using a variable number of bytes
// depending on its value, the same encoding bitcoind and every btcd-lineage
// fork share.
func writeVarInt(w io.Writer, val uint64) error {
	switch {
	case val < 0xfd:
		return binary.Write(w, binarySerializer, uint8(val))
	case val <= 0xffff:
		if _, err := w.Write([]byte{0xfd}); err != nil {
			return err
		}
		return binary.Write(w, binarySerializer, uint16(val))
	case val <= 0xffffffff:
		if _, err := w.Write([]byte{0xfe}); err != nil {
			return err
		}
		return binary.Write(w, binarySerializer, uint32(val))
	default:
		if _, err := w.Write([]byte{0xff}); err != nil {
			return err
		}
		return binary.Write(w, binarySerializer, val)
	}
}

// readVarInt reads a variable length integer from r and returns it as a
// uint64.
func readVarInt(r io.Reader) (uint64, error) {
	var prefix [1]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return 0, err
	}

	switch prefix[0] {
	case 0xff:
		var v uint64
		if err := binary.Read(r, binarySerializer, &v); err != nil {
			return 0, err
		}
		return v, nil
	case 0xfe:
		var v uint32
		if err := binary.Read(r, binarySerializer, &v); err != nil {
			return 0, err
		}
		return uint64(v), nil
	case 0xfd:
		var v uint16
		if err := binary.Read(r, binarySerializer, &v); err != nil {
			return 0, err
		}
		return uint64(v), nil
	default:
		return uint64(prefix[0]), nil
	}
}

// writeVarString serializes s as a var-int length prefix followed by the
// raw bytes of s.
func writeVarString(w io.Writer, s string) error {
	if err := writeVarInt(w, uint64(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// readVarString reads a var-int length prefix followed by that many bytes
// and returns them as a string. maxLen bounds the length to guard against a
// peer claiming an absurd string size.
func readVarString(r io.Reader, maxLen uint64) (string, error) {
	n, err := readVarInt(r)
	if err != nil {
		return "", err
	}
	if n > maxLen {
		return "", fmt.Errorf("wire: var string length %d exceeds max %d", n, maxLen)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// writeElements writes each arg to w using binary.Write with little-endian
// order. It exists to make message codecs read as a flat list of fields.
func writeElements(w io.Writer, elements ...interface{}) error {
	for _, e := range elements {
		if err := binary.Write(w, binarySerializer, e); err != nil {
			return err
		}
	}
	return nil
}

func readElements(r io.Reader, elements ...interface{}) error {
	for _, e := range elements {
		if err := binary.Read(r, binarySerializer, e); err != nil {
			return err
		}
	}
	return nil
}

// writeNetIP writes a net.IP as its 16-byte IPv6 (or IPv4-in-IPv6) form,
// the fixed-width form every NetAddress record uses regardless of pver.
func writeNetIP(w io.Writer, ip net.IP) error {
	var addr [16]byte
	if ip4 := ip.To4(); ip4 != nil {
		// IPv4-mapped IPv6 address: ::ffff:a.b.c.d
		copy(addr[:12], []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0xff, 0xff})
		copy(addr[12:], ip4)
	} else if ip16 := ip.To16(); ip16 != nil {
		copy(addr[:], ip16)
	}
	_, err := w.Write(addr[:])
	return err
}

func readNetIP(r io.Reader) (net.IP, error) {
	var addr [16]byte
	if _, err := io.ReadFull(r, addr[:]); err != nil {
		return nil, err
	}
	ip := make(net.IP, 16)
	copy(ip, addr[:])
	if ip4 := ip.To4(); ip4 != nil {
		return ip4, nil
	}
	return ip, nil
}

// unixTime32 and unixTime64 convert between time.Time and the truncated
// unix-second encodings used by different message fields.
func writeUnixTime32(w io.Writer, t time.Time) error {
	return binary.Write(w, binarySerializer, uint32(t.Unix()))
}

func readUnixTime32(r io.Reader) (time.Time, error) {
	var secs uint32
	if err := binary.Read(r, binarySerializer, &secs); err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(secs), 0), nil
}

func writeUnixTime64(w io.Writer, t time.Time) error {
	return binary.Write(w, binarySerializer, t.Unix())
}

func readUnixTime64(r io.Reader) (time.Time, error) {
	var secs int64
	if err := binary.Read(r, binarySerializer, &secs); err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0), nil
}
