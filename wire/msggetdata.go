// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"
)

// MsgGetData implements the Message interface and represents a bitcoin
// getdata message, requesting the bodies of previously advertised objects.
// It shares the exact wire shape of MsgInv.
type MsgGetData struct {
	InvList []*InvVect
}

func (msg *MsgGetData) AddInvVect(iv *InvVect) error {
	if len(msg.InvList)+1 > MaxInvPerMsg {
		return fmt.Errorf("wire: getdata message exceeds max of %d entries", MaxInvPerMsg)
	}
	msg.InvList = append(msg.InvList, iv)
	return nil
}

func (msg *MsgGetData) BtcEncode(w io.Writer, pver uint32) error {
	return encodeInvList(w, msg.InvList)
}

func (msg *MsgGetData) BtcDecode(r io.Reader, pver uint32, payloadLen uint32) error {
	list, err := decodeInvList(r)
	if err != nil {
		return err
	}
	msg.InvList = list
	return nil
}

func (msg *MsgGetData) Command() string { return CmdGetData }

func (msg *MsgGetData) MaxPayloadLength(pver uint32) uint32 {
	return uint32(MaxVarIntPayload + MaxInvPerMsg*invVectSize)
}

// NewMsgGetData returns a new empty getdata message.
func NewMsgGetData() *MsgGetData { return &MsgGetData{InvList: make([]*InvVect, 0)} }
