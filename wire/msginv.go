// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"
)

// MaxInvPerMsg is the maximum number of inventory vectors that can be in a
// single bitcoin inv or getdata message.
const MaxInvPerMsg = 50000

// MsgInv implements the Message interface and represents a bitcoin inv
// message, advertising objects a peer has available. This client only
// announces transactions; a received inv may name any inventory type.
// Receiving an inv naming a pending tx is the propagation evidence this
// system looks for.
type MsgInv struct {
	InvList []*InvVect
}

// AddInvVect adds an inventory vector to the message.
func (msg *MsgInv) AddInvVect(iv *InvVect) error {
	if len(msg.InvList)+1 > MaxInvPerMsg {
		return fmt.Errorf("wire: inv message exceeds max of %d entries", MaxInvPerMsg)
	}
	msg.InvList = append(msg.InvList, iv)
	return nil
}

func (msg *MsgInv) BtcEncode(w io.Writer, pver uint32) error {
	return encodeInvList(w, msg.InvList)
}

func (msg *MsgInv) BtcDecode(r io.Reader, pver uint32, payloadLen uint32) error {
	list, err := decodeInvList(r)
	if err != nil {
		return err
	}
	msg.InvList = list
	return nil
}

func (msg *MsgInv) Command() string { return CmdInv }

func (msg *MsgInv) MaxPayloadLength(pver uint32) uint32 {
	return uint32(MaxVarIntPayload + MaxInvPerMsg*invVectSize)
}

// NewMsgInv returns a new empty inv message.
func NewMsgInv() *MsgInv { return &MsgInv{InvList: make([]*InvVect, 0)} }

func encodeInvList(w io.Writer, list []*InvVect) error {
	if err := writeVarInt(w, uint64(len(list))); err != nil {
		return err
	}
	for _, iv := range list {
		if err := writeInvVect(w, iv); err != nil {
			return err
		}
	}
	return nil
}

func decodeInvList(r io.Reader) ([]*InvVect, error) {
	count, err := readVarInt(r)
	if err != nil {
		return nil, err
	}
	if count > MaxInvPerMsg {
		return nil, fmt.Errorf("wire: inv list count %d exceeds max %d", count, MaxInvPerMsg)
	}
	list := make([]*InvVect, 0, count)
	for i := uint64(0); i < count; i++ {
		iv := &InvVect{}
		if err := readInvVect(r, iv); err != nil {
			return nil, err
		}
		list = append(list, iv)
	}
	return list, nil
}
