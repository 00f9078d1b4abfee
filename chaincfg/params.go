// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the per-network parameters this module needs:
// the wire magic, default P2P port, and DNS seed list for each of the four
// supported networks.
package chaincfg

import (
	"fmt"
	"strings"

	"github.com/toole-brendan/pushtx/wire"
)

// Network is a tagged variant identifying which Bitcoin network to operate
// on.
type Network int

const (
	Mainnet Network = iota
	Testnet
	Signet
	Regtest
)

// String returns the lower-case network name used on the CLI.
func (n Network) String() string {
	switch n {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	case Signet:
		return "signet"
	case Regtest:
		return "regtest"
	default:
		return fmt.Sprintf("unknown network (%d)", int(n))
	}
}

// ParseNetwork maps a CLI --network flag value to a Network.
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(s) {
	case "mainnet", "main":
		return Mainnet, nil
	case "testnet", "test":
		return Testnet, nil
	case "signet":
		return Signet, nil
	case "regtest":
		return Regtest, nil
	default:
		return 0, fmt.Errorf("chaincfg: unknown network %q", s)
	}
}

// DNSSeed identifies a DNS seed hostname operated by the network community
// whose A/AAAA records enumerate reachable peer addresses.
type DNSSeed struct {
	Host string

	// HasFiltering indicates the seed supports filtering results by
	// service flags via a special query format. This module never
	// filters (it wants any reachable peer), but the field is kept so a
	// caller inspecting Params can tell which seeds would support it.
	HasFiltering bool
}

// Params holds the network-specific parameters needed to dial and speak to
// peers on a given Bitcoin network.
type Params struct {
	Name string

	// Net is the magic bytes prefixing every wire frame on this network.
	Net wire.BitcoinNet

	// DefaultPort is the TCP port peers on this network listen on.
	DefaultPort string

	// DNSSeeds enumerates the seed hostnames used to discover peers.
	DNSSeeds []DNSSeed
}

// MainNetParams defines the network parameters for the main Bitcoin
// network.
var MainNetParams = Params{
	Name:        "mainnet",
	Net:         wire.MainNet,
	DefaultPort: "8333",
	DNSSeeds: []DNSSeed{
		{Host: "seed.bitcoin.sipa.be", HasFiltering: true},
		{Host: "dnsseed.bluematt.me", HasFiltering: false},
		{Host: "dnsseed.bitcoin.dashjr.org", HasFiltering: false},
		{Host: "seed.bitcoinstats.com", HasFiltering: true},
		{Host: "seed.bitcoin.jonasschnelli.ch", HasFiltering: true},
		{Host: "seed.btc.petertodd.org", HasFiltering: true},
		{Host: "seed.bitcoin.sprovoost.nl", HasFiltering: true},
		{Host: "dnsseed.emzy.de", HasFiltering: true},
		{Host: "seed.bitcoin.wiz.biz", HasFiltering: true},
	},
}

// TestNet3Params defines the network parameters for the test Bitcoin
// network (version 3).
var TestNet3Params = Params{
	Name:        "testnet",
	Net:         wire.TestNet3,
	DefaultPort: "18333",
	DNSSeeds: []DNSSeed{
		{Host: "testnet-seed.bitcoin.jonasschnelli.ch"},
		{Host: "seed.tbtc.petertodd.org"},
		{Host: "seed.testnet.bitcoin.sprovoost.nl"},
		{Host: "testnet-seed.bluematt.me"},
	},
}

// SigNetParams defines the network parameters for the public default
// signet.
var SigNetParams = Params{
	Name:        "signet",
	Net:         wire.SigNet,
	DefaultPort: "38333",
	DNSSeeds: []DNSSeed{
		{Host: "seed.signet.bitcoin.sprovoost.nl"},
	},
}

// RegressionNetParams defines the network parameters for a local regtest
// network. It has no DNS seeds — peers must be supplied directly, and
// resolve() will fail with NoPeersResolved unless the caller adds
// addresses out of band.
var RegressionNetParams = Params{
	Name:        "regtest",
	Net:         wire.Regtest,
	DefaultPort: "18444",
	DNSSeeds:    nil,
}

// ParamsForNetwork returns the Params for the given Network.
func ParamsForNetwork(n Network) *Params {
	switch n {
	case Mainnet:
		return &MainNetParams
	case Testnet:
		return &TestNet3Params
	case Signet:
		return &SigNetParams
	case Regtest:
		return &RegressionNetParams
	default:
		return &MainNetParams
	}
}
