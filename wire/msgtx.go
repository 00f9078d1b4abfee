// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// MaxTxPayload bounds the size of a tx message payload this package will
// decode, mirroring the sanity cap the transaction parser applies.
const MaxTxPayload = 400 * 1024

// MsgTx implements the Message interface and represents a bitcoin tx
// message. The transaction body is treated as opaque: Raw is
// passed through byte-for-byte on both encode and decode, with no
// interpretation of its contents.
type MsgTx struct {
	Raw []byte
}

func (msg *MsgTx) BtcEncode(w io.Writer, pver uint32) error {
	_, err := w.Write(msg.Raw)
	return err
}

func (msg *MsgTx) BtcDecode(r io.Reader, pver uint32, payloadLen uint32) error {
	buf := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	msg.Raw = buf
	return nil
}

// TxID returns the double-SHA256 of the raw transaction bytes, the
// identifier peers use to advertise and request it.
func (msg *MsgTx) TxID() chainhash.Hash {
	return chainhash.DoubleHashH(msg.Raw)
}

func (msg *MsgTx) Command() string { return CmdTx }

func (msg *MsgTx) MaxPayloadLength(pver uint32) uint32 { return MaxTxPayload }
