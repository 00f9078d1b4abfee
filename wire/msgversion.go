// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"
	"time"
)

// MaxUserAgentLen is the maximum allowed length for the user agent field
// in a version message.
const MaxUserAgentLen = 256

// DefaultUserAgent is the user agent this package identifies itself with
// unless the caller overrides it.
const DefaultUserAgent = "/pushtx:0.1.0/"

// MsgVersion implements the Message interface and represents a bitcoin
// version message. It is the first message a peer sends after connecting
// and is used to negotiate the protocol version and capabilities of both
// peers.
type MsgVersion struct {
	ProtocolVersion int32
	Services        ServiceFlag
	Timestamp       int64
	AddrYou         NetAddress
	AddrMe          NetAddress
	Nonce           uint64
	UserAgent       string
	LastBlock       int32
	DisableRelayTx  bool
}

// NewMsgVersion returns a new version message populated with the passed
// parameters and a sensible default for everything else.
func NewMsgVersion(me, you NetAddress, nonce uint64, lastBlock int32) *MsgVersion {
	return &MsgVersion{
		ProtocolVersion: int32(ProtocolVersion),
		Services:        0,
		Timestamp:       time.Now().Unix(),
		AddrYou:         you,
		AddrMe:          me,
		Nonce:           nonce,
		UserAgent:       DefaultUserAgent,
		LastBlock:       lastBlock,
		DisableRelayTx:  false,
	}
}

func (msg *MsgVersion) BtcEncode(w io.Writer, pver uint32) error {
	if err := writeElements(w, msg.ProtocolVersion, uint64(msg.Services), msg.Timestamp); err != nil {
		return err
	}
	// Address records embedded in a version message never carry a
	// timestamp, regardless of protocol version.
	if err := writeNetAddress(w, &msg.AddrYou, false); err != nil {
		return err
	}
	if err := writeNetAddress(w, &msg.AddrMe, false); err != nil {
		return err
	}
	if err := writeElements(w, msg.Nonce); err != nil {
		return err
	}
	if err := writeVarString(w, msg.UserAgent); err != nil {
		return err
	}
	if err := writeElements(w, msg.LastBlock); err != nil {
		return err
	}
	if pver >= BIP0031Version {
		return writeElements(w, !msg.DisableRelayTx)
	}
	return nil
}

func (msg *MsgVersion) BtcDecode(r io.Reader, pver uint32, payloadLen uint32) error {
	if err := readElements(r, &msg.ProtocolVersion); err != nil {
		return err
	}
	var services uint64
	if err := readElements(r, &services); err != nil {
		return err
	}
	msg.Services = ServiceFlag(services)
	if err := readElements(r, &msg.Timestamp); err != nil {
		return err
	}
	you, err := readNetAddress(r, false)
	if err != nil {
		return err
	}
	msg.AddrYou = *you
	me, err := readNetAddress(r, false)
	if err != nil {
		return err
	}
	msg.AddrMe = *me
	if err := readElements(r, &msg.Nonce); err != nil {
		return err
	}
	ua, err := readVarString(r, MaxUserAgentLen)
	if err != nil {
		return err
	}
	msg.UserAgent = ua
	if err := readElements(r, &msg.LastBlock); err != nil {
		return err
	}

	// relay is optional: absent on old peers, and we must not fail
	// decode if the payload simply ends here.
	var relay bool
	if err := readElements(r, &relay); err == nil {
		msg.DisableRelayTx = !relay
	} else if err != io.EOF {
		return err
	}
	return nil
}

func (msg *MsgVersion) Command() string { return CmdVersion }

func (msg *MsgVersion) MaxPayloadLength(pver uint32) uint32 {
	return 4 + 8 + 8 + 2*maxNetAddressPayload + 8 + (1 + MaxUserAgentLen) + 4 + 1
}
