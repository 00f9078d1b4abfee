// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Commands used in bitcoin message headers which describe the type of
// message.
const (
	CmdVersion = "version"
	CmdVerAck  = "verack"
	CmdPing    = "ping"
	CmdPong    = "pong"
	CmdInv     = "inv"
	CmdGetData = "getdata"
	CmdTx      = "tx"
	CmdReject  = "reject"
)

// Message is the interface every message type in this package implements.
// Only the subset of the real Bitcoin wire protocol this client speaks is
// supported; everything else decodes as an unsupported command, dropped
// without closing the connection.
type Message interface {
	// Command returns the protocol command string, used in the message
	// header.
	Command() string

	// MaxPayloadLength returns the maximum number of bytes this message
	// type may occupy for the given protocol version, used to bound
	// decode allocations.
	MaxPayloadLength(pver uint32) uint32

	// BtcEncode writes the message's payload (not the envelope) to w.
	BtcEncode(w io.Writer, pver uint32) error

	// BtcDecode reads the message's payload (not the envelope) from r.
	// payloadLen is the exact number of payload bytes the header
	// declared, needed by opaque passthrough messages such as MsgTx that
	// have no internal length field of their own.
	BtcDecode(r io.Reader, pver uint32, payloadLen uint32) error
}

// makeEmptyMessage returns a freshly allocated Message for the given
// command string, or nil if the command is not one this package supports.
func makeEmptyMessage(command string) Message {
	switch command {
	case CmdVersion:
		return &MsgVersion{}
	case CmdVerAck:
		return &MsgVerAck{}
	case CmdPing:
		return &MsgPing{}
	case CmdPong:
		return &MsgPong{}
	case CmdInv:
		return &MsgInv{}
	case CmdGetData:
		return &MsgGetData{}
	case CmdTx:
		return &MsgTx{}
	case CmdReject:
		return &MsgReject{}
	default:
		return nil
	}
}

// messageHeader is the header every bitcoin P2P frame is prefixed with:
// 4-byte magic, 12-byte NUL-padded command, 4-byte little-endian payload
// length, and a 4-byte checksum over the payload.
type messageHeader struct {
	magic    BitcoinNet
	command  string
	length   uint32
	checksum [4]byte
}

// Encode serializes msg into a complete framed envelope: header plus
// payload.
func Encode(w io.Writer, msg Message, pver uint32, btcnet BitcoinNet) (int, error) {
	var payload bytes.Buffer
	if err := msg.BtcEncode(&payload, pver); err != nil {
		return 0, err
	}
	payloadBytes := payload.Bytes()

	cmd := msg.Command()
	if len(cmd) > CommandSize {
		return 0, fmt.Errorf("wire: command %q exceeds %d bytes", cmd, CommandSize)
	}
	var cmdBytes [CommandSize]byte
	copy(cmdBytes[:], cmd)

	var buf bytes.Buffer
	buf.Grow(MessageHeaderSize + len(payloadBytes))
	if err := binary.Write(&buf, binarySerializer, uint32(btcnet)); err != nil {
		return 0, err
	}
	if _, err := buf.Write(cmdBytes[:]); err != nil {
		return 0, err
	}
	if err := binary.Write(&buf, binarySerializer, uint32(len(payloadBytes))); err != nil {
		return 0, err
	}
	sum := checksum(payloadBytes)
	if _, err := buf.Write(sum[:]); err != nil {
		return 0, err
	}
	if _, err := buf.Write(payloadBytes); err != nil {
		return 0, err
	}

	n, err := w.Write(buf.Bytes())
	return n, err
}

// DecodeResult is the outcome of a single call to Decode.
type DecodeResult struct {
	// Msg is the decoded message, or nil if the frame's command is not
	// one this package understands (the frame is still fully consumed
	// and should be skipped, not treated as an error).
	Msg Message

	// Consumed is the number of bytes of buf the frame occupied. The
	// caller should discard exactly this many bytes before the next
	// call to Decode.
	Consumed int
}

// Decode inspects buf for a single complete frame: a header plus its
// declared payload length. It returns ErrNeedMore when buf does not yet
// hold a full frame, ErrInvalidMagic/ErrInvalidChecksum/ErrMessageTooLarge
// on a malformed frame (the caller must abort the connection), or a
// DecodeResult with Msg set to the decoded message (or nil for an
// unsupported command, which the caller should simply skip and continue).
func Decode(buf []byte, pver uint32, btcnet BitcoinNet, maxPayload uint32) (*DecodeResult, error) {
	if len(buf) < MessageHeaderSize {
		return nil, ErrNeedMore
	}

	var magic uint32
	hr := bytes.NewReader(buf[:MessageHeaderSize])
	if err := binary.Read(hr, binarySerializer, &magic); err != nil {
		return nil, err
	}
	if BitcoinNet(magic) != btcnet {
		return nil, ErrInvalidMagic
	}

	var cmdBytes [CommandSize]byte
	if _, err := io.ReadFull(hr, cmdBytes[:]); err != nil {
		return nil, err
	}
	command := commandString(cmdBytes)

	var length uint32
	if err := binary.Read(hr, binarySerializer, &length); err != nil {
		return nil, err
	}
	if length > maxPayload {
		return nil, ErrMessageTooLarge
	}

	var hdrChecksum [4]byte
	if _, err := io.ReadFull(hr, hdrChecksum[:]); err != nil {
		return nil, err
	}

	total := MessageHeaderSize + int(length)
	if len(buf) < total {
		return nil, ErrNeedMore
	}
	payload := buf[MessageHeaderSize:total]

	if checksum(payload) != hdrChecksum {
		return nil, ErrInvalidChecksum
	}

	msg := makeEmptyMessage(command)
	if msg == nil {
		// Unknown command: the frame is well-formed, just not one we
		// understand. Skip it without closing the connection.
		return &DecodeResult{Msg: nil, Consumed: total}, nil
	}
	if length > msg.MaxPayloadLength(pver) {
		return nil, fmt.Errorf("wire: %s payload length %d exceeds max %d",
			command, length, msg.MaxPayloadLength(pver))
	}
	if err := msg.BtcDecode(bytes.NewReader(payload), pver, length); err != nil {
		return nil, fmt.Errorf("wire: decoding %s: %w", command, err)
	}

	return &DecodeResult{Msg: msg, Consumed: total}, nil
}

// commandString trims the trailing NUL padding from a fixed-width command
// field.
func commandString(raw [CommandSize]byte) string {
	n := 0
	for n < len(raw) && raw[n] != 0 {
		n++
	}
	return string(raw[:n])
}
