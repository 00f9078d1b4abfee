// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// RejectCode represents a numeric value by which a remote peer indicates
// why it rejected a message.
type RejectCode uint8

// Numeric reject codes as used by bitcoind pre-BIP61-removal. Only the
// handful this package's callers inspect are named; any other value is
// still decoded and surfaced in Code, uninterpreted.
const (
	RejectMalformed       RejectCode = 0x01
	RejectInvalid         RejectCode = 0x10
	RejectObsolete        RejectCode = 0x11
	RejectDuplicate       RejectCode = 0x12
	RejectNonstandard     RejectCode = 0x40
	RejectDust            RejectCode = 0x41
	RejectInsufficientFee RejectCode = 0x42
)

// maxRejectReasonLen bounds the reason string length this package will
// decode.
const maxRejectReasonLen = 250

// MsgReject implements the Message interface and represents a bitcoin
// reject message. It is decoded best-effort: its absence from a
// connection is never an error, and the trailing Hash field is optional
// depending on which command is being rejected.
type MsgReject struct {
	// Cmd is the command of the message that was rejected, e.g. "tx".
	Cmd string

	// Code is the numeric reason the message gives for the rejection.
	Code RejectCode

	// Reason is a human-readable explanation of the rejection.
	Reason string

	// Hash is the object hash the rejection refers to. It is encoded and
	// decoded only when Cmd is "tx"; for any other command it stays zero.
	Hash chainhash.Hash
}

func (msg *MsgReject) BtcEncode(w io.Writer, pver uint32) error {
	if err := writeVarString(w, msg.Cmd); err != nil {
		return err
	}
	if err := writeElements(w, uint8(msg.Code)); err != nil {
		return err
	}
	if err := writeVarString(w, msg.Reason); err != nil {
		return err
	}
	if msg.Cmd == CmdTx {
		if _, err := w.Write(msg.Hash[:]); err != nil {
			return err
		}
	}
	return nil
}

func (msg *MsgReject) BtcDecode(r io.Reader, pver uint32, payloadLen uint32) error {
	cmd, err := readVarString(r, CommandSize*4)
	if err != nil {
		return err
	}
	msg.Cmd = cmd

	var code uint8
	if err := readElements(r, &code); err != nil {
		return err
	}
	msg.Code = RejectCode(code)

	reason, err := readVarString(r, maxRejectReasonLen)
	if err != nil {
		return err
	}
	msg.Reason = reason

	if msg.Cmd == CmdTx {
		if _, err := io.ReadFull(r, msg.Hash[:]); err != nil && err != io.EOF {
			return err
		}
	}
	return nil
}

func (msg *MsgReject) Command() string { return CmdReject }

func (msg *MsgReject) MaxPayloadLength(pver uint32) uint32 {
	return uint32(1+CommandSize*4) + 1 + uint32(1+maxRejectReasonLen) + uint32(chainhash.HashSize)
}
