// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgVerAck implements the Message interface and represents a bitcoin
// verack message. It is sent in response to a version message to
// acknowledge it, has no payload, and must follow the corresponding
// version message.
type MsgVerAck struct{}

func (msg *MsgVerAck) BtcEncode(w io.Writer, pver uint32) error { return nil }

func (msg *MsgVerAck) BtcDecode(r io.Reader, pver uint32, payloadLen uint32) error { return nil }

func (msg *MsgVerAck) Command() string { return CmdVerAck }

func (msg *MsgVerAck) MaxPayloadLength(pver uint32) uint32 { return 0 }
