// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"net"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const testNet = MainNet

func roundTrip(t require.TestingT, msg Message) Message {
	var buf bytes.Buffer
	_, err := Encode(&buf, msg, ProtocolVersion, testNet)
	require.NoError(t, err)

	res, err := Decode(buf.Bytes(), ProtocolVersion, testNet, 4<<20)
	require.NoError(t, err)
	require.Equal(t, buf.Len(), res.Consumed)
	require.NotNil(t, res.Msg)
	return res.Msg
}

func TestMsgVerAckRoundTrip(t *testing.T) {
	got := roundTrip(t, &MsgVerAck{})
	require.Equal(t, CmdVerAck, got.Command())
}

func TestMsgPingPongRoundTrip(t *testing.T) {
	ping := NewMsgPing(1234567890)
	got := roundTrip(t, ping).(*MsgPing)
	require.Equal(t, ping.Nonce, got.Nonce)

	pong := NewMsgPong(ping.Nonce)
	gotPong := roundTrip(t, pong).(*MsgPong)
	require.Equal(t, pong.Nonce, gotPong.Nonce)
}

func TestMsgVersionRoundTrip(t *testing.T) {
	me := NetAddress{IP: net.ParseIP("127.0.0.1"), Port: 8333}
	you := NetAddress{IP: net.ParseIP("203.0.113.5"), Port: 8333}
	v := NewMsgVersion(me, you, 0xdeadbeefcafebabe, 800000)
	v.UserAgent = "/pushtx:test/"

	got := roundTrip(t, v).(*MsgVersion)
	require.Equal(t, v.Nonce, got.Nonce)
	require.Equal(t, v.UserAgent, got.UserAgent)
	require.Equal(t, v.LastBlock, got.LastBlock)
	require.True(t, got.AddrYou.IP.Equal(you.IP))
}

func TestMsgInvRoundTrip(t *testing.T) {
	inv := NewMsgInv()
	h1 := chainhash.HashH([]byte("one"))
	h2 := chainhash.HashH([]byte("two"))
	inv.AddInvVect(&InvVect{Type: InvTypeTx, Hash: h1})
	inv.AddInvVect(&InvVect{Type: InvTypeTx, Hash: h2})

	got := roundTrip(t, inv).(*MsgInv)
	require.Len(t, got.InvList, 2)
	require.Equal(t, h1, got.InvList[0].Hash)
	require.Equal(t, h2, got.InvList[1].Hash)
}

func TestMsgGetDataRoundTrip(t *testing.T) {
	gd := NewMsgGetData()
	h := chainhash.HashH([]byte("tx"))
	require.NoError(t, gd.AddInvVect(&InvVect{Type: InvTypeTx, Hash: h}))

	got := roundTrip(t, gd).(*MsgGetData)
	require.Len(t, got.InvList, 1)
	require.Equal(t, h, got.InvList[0].Hash)
}

func TestMsgTxRoundTrip(t *testing.T) {
	raw := []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	tx := &MsgTx{Raw: raw}

	got := roundTrip(t, tx).(*MsgTx)
	require.Equal(t, raw, got.Raw)
}

func TestMsgRejectRoundTrip(t *testing.T) {
	h := chainhash.HashH([]byte("rejected"))
	r := &MsgReject{Cmd: CmdTx, Code: RejectNonstandard, Reason: "mempool min fee not met", Hash: h}

	got := roundTrip(t, r).(*MsgReject)
	require.Equal(t, r.Cmd, got.Cmd)
	require.Equal(t, r.Code, got.Code)
	require.Equal(t, r.Reason, got.Reason)
	require.Equal(t, r.Hash, got.Hash)
}

func TestDecodeNeedsMore(t *testing.T) {
	var buf bytes.Buffer
	_, err := Encode(&buf, &MsgVerAck{}, ProtocolVersion, testNet)
	require.NoError(t, err)

	_, err = Decode(buf.Bytes()[:MessageHeaderSize-1], ProtocolVersion, testNet, 4<<20)
	require.ErrorIs(t, err, ErrNeedMore)
}

func TestDecodeInvalidMagic(t *testing.T) {
	var buf bytes.Buffer
	_, err := Encode(&buf, &MsgVerAck{}, ProtocolVersion, testNet)
	require.NoError(t, err)

	_, err = Decode(buf.Bytes(), ProtocolVersion, TestNet3, 4<<20)
	require.ErrorIs(t, err, ErrInvalidMagic)
}

func TestDecodeInvalidChecksum(t *testing.T) {
	ping := NewMsgPing(42)
	var buf bytes.Buffer
	_, err := Encode(&buf, ping, ProtocolVersion, testNet)
	require.NoError(t, err)

	corrupted := append([]byte(nil), buf.Bytes()...)
	corrupted[len(corrupted)-1] ^= 0xff

	_, err = Decode(corrupted, ProtocolVersion, testNet, 4<<20)
	require.ErrorIs(t, err, ErrInvalidChecksum)
}

func TestDecodeUnsupportedCommandIsSkippedNotError(t *testing.T) {
	var payload bytes.Buffer
	var header bytes.Buffer

	binWrite(t, &header, uint32(testNet))
	var cmd [CommandSize]byte
	copy(cmd[:], "mempool")
	header.Write(cmd[:])
	binWrite(t, &header, uint32(payload.Len()))
	sum := checksum(payload.Bytes())
	header.Write(sum[:])

	res, err := Decode(header.Bytes(), ProtocolVersion, testNet, 4<<20)
	require.NoError(t, err)
	require.Nil(t, res.Msg)
	require.Equal(t, MessageHeaderSize, res.Consumed)
}

func binWrite(t require.TestingT, buf *bytes.Buffer, v uint32) {
	b := []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	_, err := buf.Write(b)
	require.NoError(t, err)
}

// TestFrameRoundTripProperty checks the decode-inverts-encode property for
// ping messages across freely varying nonces.
func TestFrameRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		nonce := rapid.Uint64().Draw(rt, "nonce")
		ping := NewMsgPing(nonce)

		var buf bytes.Buffer
		if _, err := Encode(&buf, ping, ProtocolVersion, testNet); err != nil {
			rt.Fatalf("encode: %v", err)
		}

		res, err := Decode(buf.Bytes(), ProtocolVersion, testNet, 4<<20)
		if err != nil {
			rt.Fatalf("decode: %v", err)
		}
		got := res.Msg.(*MsgPing)
		if got.Nonce != nonce {
			rt.Fatalf("nonce mismatch: got %d, want %d", got.Nonce, nonce)
		}
	})
}
