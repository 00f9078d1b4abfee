// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package broadcast implements the run supervisor: it resolves peers,
// maintains a target number of concurrent peer sessions, aggregates their
// outcomes, and decides when a run is complete.
package broadcast

import (
	"time"

	"github.com/toole-brendan/pushtx/addrmgr"
	"github.com/toole-brendan/pushtx/chaincfg"
)

// TorMode controls whether and how a run uses a local SOCKS5 proxy.
type TorMode int

const (
	// TorOff forbids SOCKS5 even if a local proxy is detected.
	TorOff TorMode = iota

	// TorBestEffort uses a local proxy when probing finds one, and falls
	// back to a direct connection otherwise.
	TorBestEffort

	// TorRequired fails the run if probing does not find a local proxy.
	TorRequired
)

func (m TorMode) String() string {
	switch m {
	case TorBestEffort:
		return "best-effort"
	case TorRequired:
		return "required"
	default:
		return "off"
	}
}

// Opts configures a broadcast run.
type Opts struct {
	Network         chaincfg.Network
	UseTor          TorMode
	TargetPeers     uint16
	DryRun          bool
	SendUnsolicited bool

	// GlobalDeadline bounds the entire run.
	GlobalDeadline time.Duration

	// PropagationWindow is how long the supervisor waits after every
	// transaction has strong propagation evidence before declaring the run
	// complete.
	PropagationWindow time.Duration

	// MinResolvedPeers is carried in the configuration but is not read by
	// the supervisor: dialing starts only once addrmgr.Resolve has returned,
	// whatever the number of resolved candidates.
	MinResolvedPeers int

	// StaticPeers, when non-empty, skips DNS seed resolution entirely and
	// dials only the listed addresses. It backs the CLI's --connect flag
	// and is the only way to reach peers on regtest.
	StaticPeers []addrmgr.PeerAddress

	// DialTimeout, HandshakeTimeout, and LingerTimeout override the peer
	// package's per-session defaults when non-zero.
	DialTimeout      time.Duration
	HandshakeTimeout time.Duration
	LingerTimeout    time.Duration

	// ProxyEndpoints overrides the default local proxy probe list
	// (127.0.0.1:9050, 127.0.0.1:9150), mainly for tests.
	ProxyEndpoints []string

	// MetricsAddr, if non-empty, serves Prometheus metrics for this run on
	// that address until the run completes.
	MetricsAddr string
}

// DefaultOpts returns the production defaults.
func DefaultOpts() Opts {
	return Opts{
		Network:           chaincfg.Mainnet,
		UseTor:            TorOff,
		TargetPeers:       10,
		GlobalDeadline:    60 * time.Second,
		PropagationWindow: 5 * time.Second,
		MinResolvedPeers:  16,
	}
}
