// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package broadcast

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/toole-brendan/pushtx/addrmgr"
)

// InfoKind tags the variants of Info. No open-ended dispatch: a
// caller switches on Kind and reads only the fields that kind populates.
type InfoKind int

const (
	ResolvingPeers InfoKind = iota
	ResolvedPeers
	Connecting
	Broadcast
	Rejected
	PeerFailure
	Done
)

func (k InfoKind) String() string {
	switch k {
	case ResolvingPeers:
		return "ResolvingPeers"
	case ResolvedPeers:
		return "ResolvedPeers"
	case Connecting:
		return "Connecting"
	case Broadcast:
		return "Broadcast"
	case Rejected:
		return "Rejected"
	case PeerFailure:
		return "PeerFailure"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

// Info is a single progress record the supervisor emits.
type Info struct {
	Kind InfoKind

	// ResolvedPeers
	Count int

	// Connecting
	ProxyAddr string // empty when dialing directly

	// Broadcast, Rejected, PeerFailure
	Peer addrmgr.PeerAddress
	TxID chainhash.Hash

	// Rejected
	Reason string

	// PeerFailure
	FailureKind string

	// Done
	Result *Result
}

func (i Info) String() string {
	switch i.Kind {
	case ResolvedPeers:
		return fmt.Sprintf("ResolvedPeers(%d)", i.Count)
	case Connecting:
		if i.ProxyAddr != "" {
			return fmt.Sprintf("Connecting(proxy=%s)", i.ProxyAddr)
		}
		return "Connecting(direct)"
	case Broadcast:
		return fmt.Sprintf("Broadcast{peer=%s, tx=%s}", i.Peer, i.TxID)
	case Rejected:
		return fmt.Sprintf("Rejected{peer=%s, tx=%s, reason=%q}", i.Peer, i.TxID, i.Reason)
	case PeerFailure:
		return fmt.Sprintf("PeerFailure{peer=%s, kind=%s}", i.Peer, i.FailureKind)
	case Done:
		return fmt.Sprintf("Done(%s)", i.Result)
	default:
		return i.Kind.String()
	}
}

// ErrorKind tags the aggregate failure reasons a run can report.
type ErrorKind int

const (
	NoPeersResolved ErrorKind = iota
	TorRequiredButUnavailable
	AllPeersFailed
	NoneBroadcast
	Timeout
	ParseErrorKind
)

func (k ErrorKind) String() string {
	switch k {
	case NoPeersResolved:
		return "NoPeersResolved"
	case TorRequiredButUnavailable:
		return "TorRequiredButUnavailable"
	case AllPeersFailed:
		return "AllPeersFailed"
	case NoneBroadcast:
		return "NoneBroadcast"
	case Timeout:
		return "Timeout"
	case ParseErrorKind:
		return "ParseError"
	default:
		return "Unknown"
	}
}

// Error is the aggregate failure a run reports via Done.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("broadcast: %s", e.Kind)
	}
	return fmt.Sprintf("broadcast: %s: %s", e.Kind, e.Detail)
}

// Report summarizes a successful run.
type Report struct {
	Success     []chainhash.Hash
	Rejections  int
	PeersActive int
}

// Result is the terminal outcome of a run, carried by the Done event.
type Result struct {
	Report *Report
	Err    *Error
}

func (r *Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("Err(%s)", r.Err)
	}
	return fmt.Sprintf("Ok(%+v)", *r.Report)
}
