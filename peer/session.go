// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peer implements the per-connection state machine driving the
// handshake and then the broadcast exchange. Once a session is Active, a
// read loop goroutine feeds decoded frames to the session's dispatch loop,
// which owns the session state, writes every outbound frame, and runs the
// ping/inactivity timer. Every session runs in its own goroutines, so one
// slow or malicious peer never stalls the others.
package peer

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btclog"
	"github.com/decred/dcrd/lru"
	"github.com/toole-brendan/pushtx/addrmgr"
	"github.com/toole-brendan/pushtx/transport"
	"github.com/toole-brendan/pushtx/wire"
)

// log is this package's logger, defaulting to a no-op sink.
var log = btclog.Disabled

// UseLogger sets the package-wide logger used by peer.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// State identifies where in the connection lifecycle a Session currently
// is.
type State int

const (
	StateConnecting State = iota
	StateHandshaking
	StateActive
	StateClosing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FailReason enumerates why a session transitioned to Failed.
type FailReason int

const (
	FailUnknown FailReason = iota
	FailDialTimeout
	FailHandshakeTimeout
	FailInactivityTimeout
	FailSelfConnect
	FailDecodeError
	FailIOError
	FailRejected
	FailClosedByPeer
)

func (r FailReason) String() string {
	switch r {
	case FailDialTimeout:
		return "DialTimeout"
	case FailHandshakeTimeout:
		return "HandshakeTimeout"
	case FailInactivityTimeout:
		return "InactivityTimeout"
	case FailSelfConnect:
		return "SelfConnect"
	case FailDecodeError:
		return "DecodeError"
	case FailIOError:
		return "IOError"
	case FailRejected:
		return "Rejected"
	case FailClosedByPeer:
		return "ClosedByPeer"
	default:
		return "Unknown"
	}
}

// TxState is the per-transaction progress a single session has made
// broadcasting one transaction.
type TxState int

const (
	TxAnnounced TxState = iota
	TxRequested
	TxSent
	TxSeenByOther
	TxRejected
)

func (s TxState) String() string {
	switch s {
	case TxAnnounced:
		return "announced"
	case TxRequested:
		return "requested"
	case TxSent:
		return "sent"
	case TxSeenByOther:
		return "seen"
	case TxRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// EventKind tags the variants of Event reported from a Session up to the
// supervisor. Sessions never mutate the supervisor's shared counters
// directly; they report what happened and let the supervisor
// aggregate.
type EventKind int

const (
	EventActive EventKind = iota
	EventTxSent
	EventTxSeen
	EventTxRejected
	EventFailed
	EventClosed
)

// Event is a single outcome reported from a Session to the supervisor.
type Event struct {
	Peer   addrmgr.PeerAddress
	Kind   EventKind
	TxID   chainhash.Hash
	Reason FailReason
	Detail string
}

// Tx is the minimal shape of a transaction the peer package needs: its
// identifier and raw wire bytes. It intentionally does not depend on the
// txn package so peer has no upward dependency on transaction parsing.
type Tx struct {
	ID  chainhash.Hash
	Raw []byte
}

// Config bundles the fixed parameters a Session needs that do not change
// once a broadcast run has started.
type Config struct {
	Net             wire.BitcoinNet
	ProtocolVersion uint32
	UserAgent       string
	LastBlock       int32

	DialTimeout       time.Duration
	HandshakeTimeout  time.Duration
	PingInterval      time.Duration
	PongTimeout       time.Duration
	LingerTimeout     time.Duration
	MaxFrameSize      uint32
	KnownInvCacheSize uint32

	DryRun          bool
	SendUnsolicited bool
}

// DefaultConfig returns the production timeouts.
func DefaultConfig() Config {
	return Config{
		ProtocolVersion:   wire.ProtocolVersion,
		UserAgent:         wire.DefaultUserAgent,
		DialTimeout:       10 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		PingInterval:      2 * time.Minute,
		PongTimeout:       90 * time.Second,
		LingerTimeout:     2 * time.Second,
		MaxFrameSize:      4 << 20,
		KnownInvCacheSize: 1000,
	}
}

// txProgress is a session's view of where one transaction stands.
type txProgress struct {
	state  TxState
	reason string
}

// Session is a single outbound peer connection driving the handshake and
// broadcast state machine. One Session exclusively owns its socket.
type Session struct {
	cfg  Config
	addr addrmgr.PeerAddress
	dial *transport.Dialer
	txs  []Tx

	events chan<- Event

	mu      sync.Mutex
	state   State
	pending map[chainhash.Hash]*txProgress

	ourNonce   uint64
	conn       net.Conn
	knownInv   lru.Cache
	sentTx     map[chainhash.Hash]bool
	pingNonce  uint64
	pingSentAt time.Time
}

// NewSession constructs a Session for addr. events is the supervisor's
// single-consumer report channel; the Session is the sole producer for
// events concerning this connection.
func NewSession(cfg Config, addr addrmgr.PeerAddress, dial *transport.Dialer, txs []Tx, events chan<- Event) *Session {
	pending := make(map[chainhash.Hash]*txProgress, len(txs))
	for _, tx := range txs {
		pending[tx.ID] = &txProgress{state: TxAnnounced}
	}
	return &Session{
		cfg:      cfg,
		addr:     addr,
		dial:     dial,
		txs:      txs,
		events:   events,
		state:    StateConnecting,
		pending:  pending,
		ourNonce: randomNonce(),
		knownInv: lru.NewCache(uint(cfg.KnownInvCacheSize)),
		sentTx:   make(map[chainhash.Hash]bool),
	}
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Run drives the session to completion: dial, handshake, broadcast
// exchange, and graceful close. It returns only once the session has
// reached a terminal state (Closing or Failed have both fully unwound);
// ctx cancellation is the supervisor's cooperative stop signal.
func (s *Session) Run(ctx context.Context) {
	if err := s.connect(ctx); err != nil {
		s.fail(failReasonFor(err), err)
		return
	}
	defer s.conn.Close()

	// A blocked Read would otherwise hold the session open past the
	// supervisor's cancellation; expiring the conn deadline unblocks it so
	// every session unwinds within the run's bounds.
	stopPoke := context.AfterFunc(ctx, func() {
		s.conn.SetDeadline(time.Now())
	})
	defer stopPoke()

	if err := s.handshake(ctx); err != nil {
		s.fail(failReasonFor(err), err)
		return
	}

	s.setState(StateActive)
	s.emit(Event{Peer: s.addr, Kind: EventActive})

	s.broadcastLoop(ctx)
}

func (s *Session) connect(ctx context.Context) error {
	s.setState(StateConnecting)
	conn, err := s.dial.Dial(ctx, s.addr.String())
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

// emit reports ev to the supervisor. Event delivery is lossless: a
// full channel simply blocks the caller rather than dropping the event.
func (s *Session) emit(ev Event) {
	s.events <- ev
}

func (s *Session) fail(reason FailReason, err error) {
	s.setState(StateFailed)
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	log.Debugf("peer %s: failed: %s (%v)", s.addr, reason, err)
	s.emit(Event{Peer: s.addr, Kind: EventFailed, Reason: reason, Detail: detail})
}

func failReasonFor(err error) FailReason {
	switch {
	case errors.Is(err, transport.ErrDialTimeout):
		return FailDialTimeout
	case errors.Is(err, errHandshakeTimeout):
		return FailHandshakeTimeout
	case errors.Is(err, errSelfConnect):
		return FailSelfConnect
	case errors.Is(err, errInactivityTimeout):
		return FailInactivityTimeout
	default:
		return FailIOError
	}
}

var (
	errHandshakeTimeout  = errors.New("peer: handshake timed out")
	errSelfConnect       = errors.New("peer: connected to self")
	errInactivityTimeout = errors.New("peer: no pong within timeout")
)

// randomNonce returns a cryptographically random 64-bit nonce. The version
// nonce must be unpredictable for self-connect detection to be reliable.
func randomNonce() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(fmt.Sprintf("peer: crypto/rand unavailable: %v", err))
	}
	return binary.LittleEndian.Uint64(buf[:])
}
