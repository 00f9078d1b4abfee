// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// InvType represents the type of inventory being advertised in an inv or
// getdata message. Only InvTypeTx is ever announced by this client; the
// remaining values are decoded for completeness since a peer's inv may
// legitimately advertise blocks.
type InvType uint32

const (
	InvTypeError InvType = 0
	InvTypeTx    InvType = 1
	InvTypeBlock InvType = 2
)

func (t InvType) String() string {
	switch t {
	case InvTypeTx:
		return "MSG_TX"
	case InvTypeBlock:
		return "MSG_BLOCK"
	default:
		return "MSG_ERROR"
	}
}

// invVectSize is the size of a single inventory vector: 4-byte type plus a
// 32-byte hash.
const invVectSize = 4 + chainhash.HashSize

// InvVect defines a bitcoin inventory vector, used to describe data, as
// specified in the inv and getdata messages.
type InvVect struct {
	Type InvType
	Hash chainhash.Hash
}

func writeInvVect(w io.Writer, iv *InvVect) error {
	if err := writeElements(w, uint32(iv.Type)); err != nil {
		return err
	}
	_, err := w.Write(iv.Hash[:])
	return err
}

func readInvVect(r io.Reader, iv *InvVect) error {
	var t uint32
	if err := readElements(r, &t); err != nil {
		return err
	}
	iv.Type = InvType(t)
	_, err := io.ReadFull(r, iv.Hash[:])
	return err
}
