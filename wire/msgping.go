// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgPing implements the Message interface and represents a bitcoin ping
// message, carrying an 8-byte nonce. Ping is served with an
// immediate pong echoing the same nonce.
type MsgPing struct {
	Nonce uint64
}

func NewMsgPing(nonce uint64) *MsgPing { return &MsgPing{Nonce: nonce} }

func (msg *MsgPing) BtcEncode(w io.Writer, pver uint32) error {
	return writeElements(w, msg.Nonce)
}

func (msg *MsgPing) BtcDecode(r io.Reader, pver uint32, payloadLen uint32) error {
	return readElements(r, &msg.Nonce)
}

func (msg *MsgPing) Command() string { return CmdPing }

func (msg *MsgPing) MaxPayloadLength(pver uint32) uint32 { return 8 }

// MsgPong implements the Message interface and represents a bitcoin pong
// message, echoing the nonce of the ping it answers.
type MsgPong struct {
	Nonce uint64
}

func NewMsgPong(nonce uint64) *MsgPong { return &MsgPong{Nonce: nonce} }

func (msg *MsgPong) BtcEncode(w io.Writer, pver uint32) error {
	return writeElements(w, msg.Nonce)
}

func (msg *MsgPong) BtcDecode(r io.Reader, pver uint32, payloadLen uint32) error {
	return readElements(r, &msg.Nonce)
}

func (msg *MsgPong) Command() string { return CmdPong }

func (msg *MsgPong) MaxPayloadLength(pver uint32) uint32 { return 8 }
