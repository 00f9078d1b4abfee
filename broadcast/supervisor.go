// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package broadcast

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/toole-brendan/pushtx/addrmgr"
	"github.com/toole-brendan/pushtx/chaincfg"
	"github.com/toole-brendan/pushtx/metrics"
	"github.com/toole-brendan/pushtx/peer"
	"github.com/toole-brendan/pushtx/transport"
	"github.com/toole-brendan/pushtx/txn"
)

// eventBufferSize bounds the supervisor's outbound Info queue; a slower
// consumer delays the supervisor rather than crashing it.
const eventBufferSize = 256

// Run spawns the supervisor for transactions and returns a channel of Info
// events the caller drains until it sees Done. This call never blocks.
func Run(ctx context.Context, transactions []txn.Transaction, opts Opts) <-chan Info {
	out := make(chan Info, eventBufferSize)
	go func() {
		defer close(out)
		runSupervisor(ctx, transactions, opts, out)
	}()
	return out
}

type txOutcome struct {
	seenCount     int
	firstSeenAt   time.Time
	sentCount     int
	rejectedCount int
}

func runSupervisor(ctx context.Context, transactions []txn.Transaction, opts Opts, out chan<- Info) {
	out <- Info{Kind: ResolvingPeers}

	params := chaincfg.ParamsForNetwork(opts.Network)
	var am *addrmgr.AddrManager
	if len(opts.StaticPeers) > 0 {
		am = addrmgr.FromAddresses(opts.StaticPeers)
	} else {
		var err error
		am, err = addrmgr.Resolve(ctx, params)
		if err != nil {
			out <- Info{Kind: Done, Result: &Result{Err: &Error{Kind: NoPeersResolved, Detail: err.Error()}}}
			return
		}
	}
	out <- Info{Kind: ResolvedPeers, Count: am.Len()}

	var mc *metrics.Collector
	if opts.MetricsAddr != "" {
		var reg *prometheus.Registry
		mc, reg = metrics.NewCollector()
		mc.PeersResolved.Set(float64(am.Len()))
		go func() {
			if err := metrics.Serve(ctx, opts.MetricsAddr, reg); err != nil {
				out <- Info{Kind: PeerFailure, FailureKind: "metrics: " + err.Error()}
			}
		}()
	}

	cfg := peer.DefaultConfig()
	cfg.Net = params.Net
	cfg.DryRun = opts.DryRun
	cfg.SendUnsolicited = opts.SendUnsolicited
	if opts.DialTimeout > 0 {
		cfg.DialTimeout = opts.DialTimeout
	}
	if opts.HandshakeTimeout > 0 {
		cfg.HandshakeTimeout = opts.HandshakeTimeout
	}
	if opts.LingerTimeout > 0 {
		cfg.LingerTimeout = opts.LingerTimeout
	}

	var proxyAddr string
	var dialer *transport.Dialer
	switch opts.UseTor {
	case TorOff:
		dialer = transport.NewDirectDialer(cfg.DialTimeout)
	case TorBestEffort:
		proxyAddr = transport.ProbeProxy(ctx, opts.ProxyEndpoints)
		if proxyAddr != "" {
			dialer = transport.NewSocks5Dialer(proxyAddr, cfg.DialTimeout)
		} else {
			dialer = transport.NewDirectDialer(cfg.DialTimeout)
		}
	case TorRequired:
		proxyAddr = transport.ProbeProxy(ctx, opts.ProxyEndpoints)
		if proxyAddr == "" {
			out <- Info{Kind: Done, Result: &Result{Err: &Error{Kind: TorRequiredButUnavailable}}}
			return
		}
		dialer = transport.NewSocks5Dialer(proxyAddr, cfg.DialTimeout)
	}
	out <- Info{Kind: Connecting, ProxyAddr: proxyAddr}

	peerTxs := make([]peer.Tx, len(transactions))
	for i, t := range transactions {
		peerTxs[i] = peer.Tx{ID: t.ID, Raw: t.Raw}
	}

	addresses := am.Addresses()
	var nextIdx int32 = -1
	nextAddr := func() (addrmgr.PeerAddress, bool) {
		i := int(atomic.AddInt32(&nextIdx, 1))
		if i >= len(addresses) {
			return addrmgr.PeerAddress{}, false
		}
		return addresses[i], true
	}

	runCtx, cancel := context.WithTimeout(ctx, opts.GlobalDeadline)
	defer cancel()

	perTx := make(map[chainhash.Hash]*txOutcome, len(transactions))
	for _, t := range transactions {
		perTx[t.ID] = &txOutcome{}
	}
	var mu sync.Mutex
	var everActive atomic.Bool
	activePeers := make(map[string]bool)

	var reasonMu sync.Mutex
	var reason string
	setReason := func(r string) {
		reasonMu.Lock()
		if reason == "" {
			reason = r
		}
		reasonMu.Unlock()
	}

	var scheduleOnce sync.Once

	sessionEvents := make(chan peer.Event, eventBufferSize)
	var wg sync.WaitGroup

	slots := make(chan struct{}, opts.TargetPeers)

	go func() {
		// sessionEvents is closed only after this goroutine's last wg.Add,
		// so Wait cannot return before any session has been started.
		defer func() {
			wg.Wait()
			close(sessionEvents)
		}()
		for {
			select {
			case <-runCtx.Done():
				return
			case slots <- struct{}{}:
			}
			addr, ok := nextAddr()
			if !ok {
				<-slots
				wg.Wait()
				if runCtx.Err() == context.DeadlineExceeded {
					setReason("deadline")
				} else {
					setReason("exhausted")
				}
				cancel()
				return
			}
			am.Attempt(addr)
			if mc != nil {
				mc.DialAttempts.Inc()
			}
			wg.Add(1)
			go func(addr addrmgr.PeerAddress) {
				defer wg.Done()
				defer func() { <-slots }()
				sess := peer.NewSession(cfg, addr, dialer, peerTxs, sessionEvents)
				sess.Run(runCtx)
			}(addr)
		}
	}()

	for ev := range sessionEvents {
		switch ev.Kind {
		case peer.EventActive:
			everActive.Store(true)
			mu.Lock()
			activePeers[ev.Peer.String()] = true
			mu.Unlock()
			am.Good(ev.Peer)
			if mc != nil {
				mc.ActiveSessions.Inc()
			}

		case peer.EventTxSent:
			mu.Lock()
			if o, ok := perTx[ev.TxID]; ok {
				o.sentCount++
			}
			mu.Unlock()
			out <- Info{Kind: Broadcast, Peer: ev.Peer, TxID: ev.TxID}
			if mc != nil {
				mc.TxBroadcast.WithLabelValues(ev.TxID.String()).Inc()
			}

		case peer.EventTxSeen:
			mu.Lock()
			if o, ok := perTx[ev.TxID]; ok {
				o.seenCount++
				if o.seenCount == 1 {
					o.firstSeenAt = time.Now()
				}
			}
			allSeen := true
			var last time.Time
			for _, o := range perTx {
				if o.seenCount == 0 {
					allSeen = false
					break
				}
				if o.firstSeenAt.After(last) {
					last = o.firstSeenAt
				}
			}
			mu.Unlock()
			if allSeen {
				scheduleOnce.Do(func() {
					delay := time.Until(last.Add(opts.PropagationWindow))
					if delay < 0 {
						delay = 0
					}
					time.AfterFunc(delay, func() {
						setReason("propagated")
						cancel()
					})
				})
			}

		case peer.EventTxRejected:
			mu.Lock()
			if o, ok := perTx[ev.TxID]; ok {
				o.rejectedCount++
			}
			mu.Unlock()
			out <- Info{Kind: Rejected, Peer: ev.Peer, TxID: ev.TxID, Reason: ev.Detail}
			am.Bad(ev.Peer)
			if mc != nil {
				mc.TxRejected.WithLabelValues(ev.TxID.String()).Inc()
			}

		case peer.EventFailed:
			out <- Info{Kind: PeerFailure, Peer: ev.Peer, FailureKind: ev.Reason.String()}
			am.Bad(ev.Peer)
			mu.Lock()
			wasActive := activePeers[ev.Peer.String()]
			mu.Unlock()
			if mc != nil {
				if wasActive {
					mc.ActiveSessions.Dec()
				} else {
					mc.DialFailures.Inc()
				}
			}

		case peer.EventClosed:
			if mc != nil {
				mc.ActiveSessions.Dec()
			}
		}
	}

	reasonMu.Lock()
	if reason == "" {
		if runCtx.Err() == context.DeadlineExceeded {
			reason = "deadline"
		} else {
			reason = "canceled"
		}
	}
	finalReason := reason
	reasonMu.Unlock()

	mu.Lock()
	defer mu.Unlock()

	var success []chainhash.Hash
	rejections := 0
	for id, o := range perTx {
		rejections += o.rejectedCount
		if o.seenCount >= 1 || (o.sentCount >= 1 && o.rejectedCount == 0) {
			success = append(success, id)
		}
	}

	if opts.DryRun {
		out <- Info{Kind: Done, Result: &Result{Report: &Report{
			Success:     nil,
			Rejections:  0,
			PeersActive: len(activePeers),
		}}}
		return
	}

	if len(success) == len(transactions) {
		out <- Info{Kind: Done, Result: &Result{Report: &Report{
			Success:     success,
			Rejections:  rejections,
			PeersActive: len(activePeers),
		}}}
		return
	}

	var kind ErrorKind
	switch finalReason {
	case "deadline":
		kind = Timeout
	default:
		if !everActive.Load() {
			kind = AllPeersFailed
		} else {
			kind = NoneBroadcast
		}
	}
	out <- Info{Kind: Done, Result: &Result{Err: &Error{Kind: kind}}}
}
