// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package broadcast

import (
	"net"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
	"github.com/toole-brendan/pushtx/addrmgr"
)

func TestInfoStringVariants(t *testing.T) {
	peer := addrmgr.PeerAddress{IP: net.ParseIP("203.0.113.1"), Port: 8333}
	txID := chainhash.HashH([]byte("tx"))

	require.Equal(t, "ResolvedPeers(3)", Info{Kind: ResolvedPeers, Count: 3}.String())
	require.Equal(t, "Connecting(direct)", Info{Kind: Connecting}.String())
	require.Equal(t, "Connecting(proxy=127.0.0.1:9050)", Info{Kind: Connecting, ProxyAddr: "127.0.0.1:9050"}.String())

	bc := Info{Kind: Broadcast, Peer: peer, TxID: txID}.String()
	require.Contains(t, bc, "Broadcast{")
	require.Contains(t, bc, peer.String())

	rej := Info{Kind: Rejected, Peer: peer, TxID: txID, Reason: "dust"}.String()
	require.Contains(t, rej, `reason="dust"`)
}

func TestErrorKindString(t *testing.T) {
	cases := map[ErrorKind]string{
		NoPeersResolved:           "NoPeersResolved",
		TorRequiredButUnavailable: "TorRequiredButUnavailable",
		AllPeersFailed:            "AllPeersFailed",
		NoneBroadcast:             "NoneBroadcast",
		Timeout:                   "Timeout",
		ParseErrorKind:            "ParseError",
	}
	for kind, want := range cases {
		require.Equal(t, want, kind.String())
	}
}

func TestErrorErrorMethod(t *testing.T) {
	e := &Error{Kind: Timeout}
	require.Equal(t, "broadcast: Timeout", e.Error())

	e2 := &Error{Kind: NoPeersResolved, Detail: "no dns seeds answered"}
	require.Equal(t, "broadcast: NoPeersResolved: no dns seeds answered", e2.Error())
}

func TestResultString(t *testing.T) {
	ok := &Result{Report: &Report{Success: []chainhash.Hash{chainhash.HashH([]byte("a"))}, PeersActive: 2}}
	require.Contains(t, ok.String(), "Ok(")

	failed := &Result{Err: &Error{Kind: AllPeersFailed}}
	require.Equal(t, "Err(broadcast: AllPeersFailed)", failed.String())
}
