// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package broadcast

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
	"github.com/toole-brendan/pushtx/addrmgr"
	"github.com/toole-brendan/pushtx/chaincfg"
	"github.com/toole-brendan/pushtx/txn"
	"github.com/toole-brendan/pushtx/wire"
)

// sampleTxHex is a plausibly-shaped serialized transaction; the supervisor
// never inspects the body, only the txid.
const sampleTxHex = "01000000016dbddb085b1d8af75184f0bc01fad58d1266e9b63b50881990e4b40d6aee3629000000008b483045022100f3581e1972ae8ac7c7367a7a253bc1135223adb9a468bb3a59233f45bc578380022059af01ca17d00e41837a1d58e97aa31bae584edec28d35bd96923690913bae9a0141049c02bfc97ef236ce6d8fe5d94013c721e915982acd2b12b65d9b7d59e20a842005f8fc4e02532e873d37b96f09d6d4511ada8f14042f46614a4c70c0f14beff5ffffffff02404b4c00000000001976a9141aa0cd1cbea6e7458a7abad512a9d9ea1afb225e88ac80fae9c7000000001976a9140eab5bea436a0484cfab12485efda0b78b4ecc5288ac00000000"

// script describes how a simulated peer behaves once a session connects.
type script struct {
	// silent accepts the connection and never sends a byte.
	silent bool

	// dropAfterAck completes the handshake, then closes the connection.
	dropAfterAck bool

	// rejectReason, when non-empty, answers any tx announcement with a
	// reject message naming the announced txid and this reason.
	rejectReason string

	// echo requests announced transactions with getdata and, once the tx
	// body arrives, re-advertises it with an inv of its own.
	echo bool
}

// connGauge tracks the peak number of simultaneously live connections a
// group of simPeers has observed.
type connGauge struct {
	mu   sync.Mutex
	live int
	max  int
}

func (g *connGauge) inc() {
	g.mu.Lock()
	g.live++
	if g.live > g.max {
		g.max = g.live
	}
	g.mu.Unlock()
}

func (g *connGauge) dec() {
	g.mu.Lock()
	g.live--
	g.mu.Unlock()
}

func (g *connGauge) peak() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.max
}

// simPeer is a scripted in-test Bitcoin peer listening on a loopback port.
type simPeer struct {
	ln     net.Listener
	btcnet wire.BitcoinNet
	sc     script

	// gauge, when set before the first connection arrives, counts live
	// connections across every simPeer sharing it.
	gauge *connGauge

	accepted atomic.Int32
	invSeen  atomic.Int32
	txSeen   atomic.Int32
}

func startSimPeer(t *testing.T, btcnet wire.BitcoinNet, sc script) *simPeer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	p := &simPeer{ln: ln, btcnet: btcnet, sc: sc}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			p.accepted.Add(1)
			go p.handle(conn)
		}
	}()
	return p
}

func (p *simPeer) addr() addrmgr.PeerAddress {
	ta := p.ln.Addr().(*net.TCPAddr)
	return addrmgr.PeerAddress{IP: ta.IP, Port: uint16(ta.Port)}
}

func (p *simPeer) send(conn net.Conn, msg wire.Message) error {
	_, err := wire.Encode(conn, msg, wire.ProtocolVersion, p.btcnet)
	return err
}

// readMsg blocks until a full supported frame has arrived on conn.
func (p *simPeer) readMsg(conn net.Conn, buf *[]byte) (wire.Message, error) {
	for {
		res, err := wire.Decode(*buf, wire.ProtocolVersion, p.btcnet, 4<<20)
		if err == wire.ErrNeedMore {
			tmp := make([]byte, 4096)
			n, rerr := conn.Read(tmp)
			if n > 0 {
				*buf = append(*buf, tmp[:n]...)
			}
			if rerr != nil {
				return nil, rerr
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		*buf = (*buf)[res.Consumed:]
		if res.Msg == nil {
			continue
		}
		return res.Msg, nil
	}
}

func (p *simPeer) handle(conn net.Conn) {
	defer conn.Close()
	if p.gauge != nil {
		p.gauge.inc()
		defer p.gauge.dec()
	}

	if p.sc.silent {
		// Hold the connection open, consuming whatever arrives, until the
		// session gives up or the test tears the listener down.
		buf := make([]byte, 4096)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}

	var buf []byte
	for {
		msg, err := p.readMsg(conn, &buf)
		if err != nil {
			return
		}

		switch m := msg.(type) {
		case *wire.MsgVersion:
			me := wire.NetAddress{IP: net.ParseIP("127.0.0.1"), Port: 18444}
			version := wire.NewMsgVersion(me, me, m.Nonce+1, 0)
			if p.send(conn, version) != nil || p.send(conn, &wire.MsgVerAck{}) != nil {
				return
			}

		case *wire.MsgVerAck:
			if p.sc.dropAfterAck {
				return
			}

		case *wire.MsgPing:
			if p.send(conn, wire.NewMsgPong(m.Nonce)) != nil {
				return
			}

		case *wire.MsgInv:
			p.invSeen.Add(int32(len(m.InvList)))
			if p.sc.rejectReason != "" {
				rej := &wire.MsgReject{
					Cmd:    wire.CmdTx,
					Code:   wire.RejectInsufficientFee,
					Reason: p.sc.rejectReason,
					Hash:   m.InvList[0].Hash,
				}
				p.send(conn, rej)
				return
			}
			if p.sc.echo {
				gd := wire.NewMsgGetData()
				for _, iv := range m.InvList {
					gd.AddInvVect(iv)
				}
				if p.send(conn, gd) != nil {
					return
				}
			}

		case *wire.MsgTx:
			p.txSeen.Add(1)
			if p.sc.echo {
				echo := wire.NewMsgInv()
				echo.AddInvVect(&wire.InvVect{Type: wire.InvTypeTx, Hash: m.TxID()})
				p.send(conn, echo)
				return
			}
		}
	}
}

func testTx(t *testing.T) txn.Transaction {
	t.Helper()
	tx, err := txn.Parse(sampleTxHex)
	require.NoError(t, err)
	return tx
}

// testOpts returns Opts pointed at the given simulated peers with timeouts
// shrunk so a full run completes in well under a second of wall clock.
func testOpts(peers ...*simPeer) Opts {
	opts := DefaultOpts()
	opts.Network = chaincfg.Regtest
	opts.TargetPeers = uint16(len(peers))
	opts.GlobalDeadline = 5 * time.Second
	opts.PropagationWindow = 100 * time.Millisecond
	opts.DialTimeout = time.Second
	opts.HandshakeTimeout = time.Second
	opts.LingerTimeout = 50 * time.Millisecond
	for _, p := range peers {
		opts.StaticPeers = append(opts.StaticPeers, p.addr())
	}
	return opts
}

// drain consumes every event until the channel closes, failing the test if
// the run does not terminate within timeout.
func drain(t *testing.T, events <-chan Info, timeout time.Duration) []Info {
	t.Helper()
	var all []Info
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return all
			}
			all = append(all, ev)
		case <-deadline:
			t.Fatalf("run did not terminate; events so far: %s", spew.Sdump(all))
		}
	}
}

func doneResult(t *testing.T, all []Info) *Result {
	t.Helper()
	require.NotEmpty(t, all)
	last := all[len(all)-1]
	require.Equal(t, Done, last.Kind, "Done must be the final event")
	require.NotNil(t, last.Result)
	return last.Result
}

func TestRunHappyPath(t *testing.T) {
	peers := []*simPeer{
		startSimPeer(t, wire.Regtest, script{echo: true}),
		startSimPeer(t, wire.Regtest, script{echo: true}),
		startSimPeer(t, wire.Regtest, script{echo: true}),
	}
	tx := testTx(t)

	events := Run(context.Background(), []txn.Transaction{tx}, testOpts(peers...))
	all := drain(t, events, 10*time.Second)

	res := doneResult(t, all)
	require.Nil(t, res.Err)
	require.Equal(t, []chainhash.Hash{tx.ID}, res.Report.Success)
	require.Zero(t, res.Report.Rejections)
	require.Equal(t, 3, res.Report.PeersActive)
}

func TestRunRejectingPeerOnly(t *testing.T) {
	p := startSimPeer(t, wire.Regtest, script{rejectReason: "mempool min fee not met"})
	tx := testTx(t)

	events := Run(context.Background(), []txn.Transaction{tx}, testOpts(p))
	all := drain(t, events, 10*time.Second)

	var rejected []Info
	for _, ev := range all {
		if ev.Kind == Rejected {
			rejected = append(rejected, ev)
		}
	}
	require.Len(t, rejected, 1)
	require.Equal(t, tx.ID, rejected[0].TxID)
	require.Equal(t, "mempool min fee not met", rejected[0].Reason)

	res := doneResult(t, all)
	require.NotNil(t, res.Err)
	require.Equal(t, NoneBroadcast, res.Err.Kind)
}

func TestRunMixedPeers(t *testing.T) {
	peers := []*simPeer{
		startSimPeer(t, wire.Regtest, script{echo: true}),
		startSimPeer(t, wire.Regtest, script{echo: true}),
		startSimPeer(t, wire.Regtest, script{rejectReason: "txn-mempool-conflict"}),
		startSimPeer(t, wire.Regtest, script{dropAfterAck: true}),
		startSimPeer(t, wire.Regtest, script{silent: true}),
	}
	tx := testTx(t)

	events := Run(context.Background(), []txn.Transaction{tx}, testOpts(peers...))
	all := drain(t, events, 10*time.Second)

	res := doneResult(t, all)
	require.Nil(t, res.Err)
	require.Equal(t, 1, res.Report.Rejections)
	require.Contains(t, res.Report.Success, tx.ID)
}

func TestRunTorRequiredButUnavailable(t *testing.T) {
	p := startSimPeer(t, wire.Regtest, script{echo: true})
	tx := testTx(t)

	// Reserve a port and close it so the proxy probe finds nothing there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	deadAddr := ln.Addr().String()
	ln.Close()

	opts := testOpts(p)
	opts.UseTor = TorRequired
	opts.ProxyEndpoints = []string{deadAddr}

	events := Run(context.Background(), []txn.Transaction{tx}, opts)
	all := drain(t, events, 10*time.Second)

	res := doneResult(t, all)
	require.NotNil(t, res.Err)
	require.Equal(t, TorRequiredButUnavailable, res.Err.Kind)
	require.Zero(t, p.accepted.Load(), "no peer may be dialed when Tor is required but absent")
}

func TestRunDryRunSendsNothing(t *testing.T) {
	var peers []*simPeer
	for i := 0; i < 10; i++ {
		peers = append(peers, startSimPeer(t, wire.Regtest, script{}))
	}
	tx := testTx(t)

	opts := testOpts(peers...)
	opts.DryRun = true
	opts.GlobalDeadline = time.Second

	events := Run(context.Background(), []txn.Transaction{tx}, opts)
	all := drain(t, events, 10*time.Second)

	res := doneResult(t, all)
	require.Nil(t, res.Err)
	require.Empty(t, res.Report.Success)
	require.Equal(t, 10, res.Report.PeersActive)

	for _, p := range peers {
		require.Zero(t, p.invSeen.Load(), "dry run must not announce")
		require.Zero(t, p.txSeen.Load(), "dry run must not send tx")
	}
}

func TestRunGlobalTimeout(t *testing.T) {
	peers := []*simPeer{
		startSimPeer(t, wire.Regtest, script{silent: true}),
		startSimPeer(t, wire.Regtest, script{silent: true}),
	}
	tx := testTx(t)

	opts := testOpts(peers...)
	opts.GlobalDeadline = 700 * time.Millisecond
	opts.HandshakeTimeout = 5 * time.Second

	start := time.Now()
	events := Run(context.Background(), []txn.Transaction{tx}, opts)
	all := drain(t, events, 10*time.Second)
	elapsed := time.Since(start)

	res := doneResult(t, all)
	require.NotNil(t, res.Err)
	require.Equal(t, Timeout, res.Err.Kind)
	require.Less(t, elapsed, 3*time.Second, "run must end near the global deadline, not the handshake timeout")
}

func TestRunEventOrdering(t *testing.T) {
	peers := []*simPeer{
		startSimPeer(t, wire.Regtest, script{echo: true}),
		startSimPeer(t, wire.Regtest, script{echo: true}),
	}
	tx := testTx(t)

	events := Run(context.Background(), []txn.Transaction{tx}, testOpts(peers...))
	all := drain(t, events, 10*time.Second)

	idx := func(kind InfoKind) int {
		for i, ev := range all {
			if ev.Kind == kind {
				return i
			}
		}
		return -1
	}

	require.Equal(t, ResolvingPeers, all[0].Kind)
	require.Less(t, idx(ResolvedPeers), idx(Connecting))
	require.Less(t, idx(Connecting), idx(Broadcast), "Connecting precedes any Broadcast")
	require.Equal(t, Done, all[len(all)-1].Kind, "every Broadcast precedes Done")
}

func TestRunNoPeersResolved(t *testing.T) {
	// Regtest has no DNS seeds and no static peers are supplied, so
	// resolution must fail before anything is dialed.
	tx := testTx(t)
	opts := DefaultOpts()
	opts.Network = chaincfg.Regtest
	opts.GlobalDeadline = time.Second

	events := Run(context.Background(), []txn.Transaction{tx}, opts)
	all := drain(t, events, 5*time.Second)

	res := doneResult(t, all)
	require.NotNil(t, res.Err)
	require.Equal(t, NoPeersResolved, res.Err.Kind)
}

// TestRunConcurrencyBound starts more candidate peers than TargetPeers and
// checks the simulated peers never observe more than TargetPeers live
// connections at once. The dropAfterAck script closes from the peer side,
// so each handler's gauge decrement always precedes the supervisor freeing
// that session's slot.
func TestRunConcurrencyBound(t *testing.T) {
	gauge := &connGauge{}
	var peers []*simPeer
	for i := 0; i < 6; i++ {
		p := startSimPeer(t, wire.Regtest, script{dropAfterAck: true})
		p.gauge = gauge
		peers = append(peers, p)
	}

	tx := testTx(t)
	opts := testOpts(peers...)
	opts.TargetPeers = 2

	events := Run(context.Background(), []txn.Transaction{tx}, opts)
	all := drain(t, events, 10*time.Second)
	doneResult(t, all)

	require.LessOrEqual(t, gauge.peak(), 2)
}
