// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"context"
	"io"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/toole-brendan/pushtx/wire"
)

// broadcastLoop runs the Active-state exchange until ctx is canceled (the supervisor's termination signal) or the
// connection fails.
func (s *Session) broadcastLoop(ctx context.Context) {
	fr := newFrameReader(s.conn, s.cfg.Net, s.cfg.ProtocolVersion, s.cfg.MaxFrameSize)

	msgCh := make(chan wire.Message)
	errCh := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			msg, err := fr.next()
			if err != nil {
				select {
				case errCh <- err:
				case <-done:
				}
				return
			}
			select {
			case msgCh <- msg:
			case <-done:
				return
			}
		}
	}()

	if !s.cfg.DryRun {
		s.announceAll()
	}

	pingCheck := time.NewTicker(5 * time.Second)
	defer pingCheck.Stop()
	lastActivity := time.Now()

	for {
		select {
		case <-ctx.Done():
			s.closeGracefully()
			return

		case err := <-errCh:
			if ctx.Err() != nil {
				// The read unblocked because the supervisor canceled the
				// run, not because the peer misbehaved.
				s.closeGracefully()
				return
			}
			if err == io.EOF {
				s.fail(FailClosedByPeer, err)
			} else {
				s.fail(failReasonFor(err), err)
			}
			return

		case msg := <-msgCh:
			lastActivity = time.Now()
			s.handleActive(msg)

		case <-pingCheck.C:
			idle := time.Since(lastActivity)
			s.mu.Lock()
			pingOutstanding := !s.pingSentAt.IsZero()
			pingSentAt := s.pingSentAt
			s.mu.Unlock()

			if pingOutstanding && time.Since(pingSentAt) > s.cfg.PongTimeout {
				s.fail(FailInactivityTimeout, errInactivityTimeout)
				return
			}
			if !pingOutstanding && idle >= s.cfg.PingInterval {
				s.sendPing()
			}
		}
	}
}

// announceAll advertises (or, if configured, sends outright) every pending
// transaction to this now-Active peer.
func (s *Session) announceAll() {
	if s.cfg.SendUnsolicited {
		for _, tx := range s.txs {
			s.sendTx(tx)
		}
		return
	}

	inv := wire.NewMsgInv()
	for _, tx := range s.txs {
		// A peer that already advertised this tx to us has it; announcing
		// it back would only invite a redundant getdata.
		if s.knownInv.Contains(tx.ID) {
			continue
		}
		inv.AddInvVect(&wire.InvVect{Type: wire.InvTypeTx, Hash: tx.ID})
	}
	if len(inv.InvList) == 0 {
		return
	}
	if _, err := wire.Encode(s.conn, inv, s.cfg.ProtocolVersion, s.cfg.Net); err != nil {
		s.fail(FailIOError, err)
	}
}

// handleActive dispatches a single decoded message against the Active
// state's transition table.
func (s *Session) handleActive(msg wire.Message) {
	switch m := msg.(type) {
	case *wire.MsgPing:
		pong := wire.NewMsgPong(m.Nonce)
		wire.Encode(s.conn, pong, s.cfg.ProtocolVersion, s.cfg.Net)

	case *wire.MsgPong:
		s.mu.Lock()
		if m.Nonce == s.pingNonce {
			s.pingSentAt = time.Time{}
		}
		s.mu.Unlock()

	case *wire.MsgGetData:
		for _, iv := range m.InvList {
			if iv.Type != wire.InvTypeTx {
				continue
			}
			tx, ok := s.txByID(iv.Hash)
			if !ok {
				continue
			}
			s.mu.Lock()
			alreadySent := s.sentTx[iv.Hash]
			s.mu.Unlock()
			if alreadySent {
				// A duplicate getdata after sending is ignored.
				continue
			}
			s.sendTx(tx)
		}

	case *wire.MsgInv:
		for _, iv := range m.InvList {
			if iv.Type != wire.InvTypeTx {
				continue
			}
			s.knownInv.Add(iv.Hash)
			if _, pending := s.pendingEntry(iv.Hash); pending {
				s.markSeen(iv.Hash)
			}
		}

	case *wire.MsgReject:
		if m.Cmd != wire.CmdTx {
			return
		}
		if _, pending := s.pendingEntry(m.Hash); pending {
			s.markRejected(m.Hash, m.Reason)
		}
	}
}

func (s *Session) txByID(id chainhash.Hash) (Tx, bool) {
	for _, tx := range s.txs {
		if tx.ID == id {
			return tx, true
		}
	}
	return Tx{}, false
}

func (s *Session) pendingEntry(id chainhash.Hash) (*txProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[id]
	return p, ok
}

func (s *Session) sendTx(tx Tx) {
	msg := &wire.MsgTx{Raw: tx.Raw}
	if _, err := wire.Encode(s.conn, msg, s.cfg.ProtocolVersion, s.cfg.Net); err != nil {
		s.fail(FailIOError, err)
		return
	}
	s.mu.Lock()
	s.sentTx[tx.ID] = true
	if p, ok := s.pending[tx.ID]; ok {
		p.state = TxSent
	}
	s.mu.Unlock()
	s.knownInv.Add(tx.ID)
	s.emit(Event{Peer: s.addr, Kind: EventTxSent, TxID: tx.ID})
}

func (s *Session) markSeen(id chainhash.Hash) {
	s.mu.Lock()
	if p, ok := s.pending[id]; ok && p.state != TxSeenByOther {
		p.state = TxSeenByOther
	}
	s.mu.Unlock()
	s.emit(Event{Peer: s.addr, Kind: EventTxSeen, TxID: id})
}

func (s *Session) markRejected(id chainhash.Hash, reason string) {
	s.mu.Lock()
	if p, ok := s.pending[id]; ok {
		p.state = TxRejected
		p.reason = reason
	}
	s.mu.Unlock()
	s.emit(Event{Peer: s.addr, Kind: EventTxRejected, TxID: id, Detail: reason})
}

func (s *Session) sendPing() {
	nonce := randomNonce()
	s.mu.Lock()
	s.pingNonce = nonce
	s.pingSentAt = time.Now()
	s.mu.Unlock()
	wire.Encode(s.conn, wire.NewMsgPing(nonce), s.cfg.ProtocolVersion, s.cfg.Net)
}

// closeGracefully implements the Closing state's entry action: send
// nothing further, half-close, and drain briefly before the caller's
// deferred conn.Close().
func (s *Session) closeGracefully() {
	s.setState(StateClosing)
	if tc, ok := s.conn.(interface{ CloseWrite() error }); ok {
		tc.CloseWrite()
	}
	s.conn.SetReadDeadline(time.Now().Add(s.cfg.LingerTimeout))
	buf := make([]byte, 512)
	for {
		if _, err := s.conn.Read(buf); err != nil {
			break
		}
	}
	s.emit(Event{Peer: s.addr, Kind: EventClosed})
}
