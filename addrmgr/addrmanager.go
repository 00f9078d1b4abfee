// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package addrmgr implements peer address discovery: resolving DNS seeds
// for a network into a shuffled, quality-scored bag of candidate peer
// addresses.
package addrmgr

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/toole-brendan/pushtx/chaincfg"
	"github.com/toole-brendan/pushtx/wire"
)

// log is this package's logger. It defaults to a no-op sink; callers that
// want diagnostic output call UseLogger.
var log = btclog.Disabled

// UseLogger sets the package-wide logger used by addrmgr, so importing
// this package never forces a logging backend on the caller.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// ErrNoPeersResolved is returned by Resolve when every configured DNS seed
// failed to resolve.
var ErrNoPeersResolved = errors.New("addrmgr: no peers resolved from any seed")

// PeerAddress is a simple (IP, port) pair with structural equality.
type PeerAddress struct {
	IP   net.IP
	Port uint16
}

// String renders the address in host:port form.
func (p PeerAddress) String() string {
	return net.JoinHostPort(p.IP.String(), strconv.Itoa(int(p.Port)))
}

// key returns a comparable map key for deduplication; net.IP does not
// compare reliably with == because two semantically equal addresses can
// have differently-shaped byte slices (4 vs. 16 bytes).
func (p PeerAddress) key() string {
	return fmt.Sprintf("%s/%d", p.IP.To16().String(), p.Port)
}

// AddrManager is a bag of KnownAddress values produced by resolving a
// network's DNS seeds. It is safe for concurrent use by
// the supervisor and its dial pipeline.
type AddrManager struct {
	mu    sync.Mutex
	byKey map[string]*KnownAddress
	order []string
}

// New returns an empty AddrManager.
func New() *AddrManager {
	return &AddrManager{byKey: make(map[string]*KnownAddress)}
}

// FromAddresses returns an AddrManager seeded directly from addrs instead
// of a DNS resolution pass, deduplicated and shuffled the same way Resolve
// shuffles its results. It backs the --connect CLI flag and is the only way
// to supply peers on regtest, which has no DNS seeds.
func FromAddresses(addrs []PeerAddress) *AddrManager {
	am := New()
	for _, a := range addrs {
		am.add(a)
	}
	am.shuffle()
	return am
}

// Resolve performs peer discovery: it looks up the A and AAAA
// records of every DNS seed configured for params concurrently, unions and
// deduplicates the results, attaches the network's default port, and
// returns a shuffled AddrManager. It fails only if every seed fails
// (ErrNoPeersResolved); a partial success returns whatever resolved.
func Resolve(ctx context.Context, params *chaincfg.Params) (*AddrManager, error) {
	if len(params.DNSSeeds) == 0 {
		return nil, ErrNoPeersResolved
	}

	port, err := strconv.ParseUint(params.DefaultPort, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("addrmgr: invalid default port %q: %w", params.DefaultPort, err)
	}

	type seedResult struct {
		host string
		ips  []net.IP
		err  error
	}

	results := make(chan seedResult, len(params.DNSSeeds))
	resolver := net.DefaultResolver
	for _, seed := range params.DNSSeeds {
		seed := seed
		go func() {
			ips, err := lookupSeed(ctx, resolver, seed.Host)
			results <- seedResult{host: seed.Host, ips: ips, err: err}
		}()
	}

	am := New()
	succeeded := 0
	for range params.DNSSeeds {
		res := <-results
		if res.err != nil {
			log.Warnf("addrmgr: DNS seed %s failed: %v", res.host, res.err)
			continue
		}
		succeeded++
		for _, ip := range res.ips {
			am.add(PeerAddress{IP: ip, Port: uint16(port)})
		}
	}

	if succeeded == 0 {
		return nil, ErrNoPeersResolved
	}

	am.shuffle()
	log.Infof("addrmgr: resolved %d candidate peers from %d/%d seeds",
		len(am.order), succeeded, len(params.DNSSeeds))
	return am, nil
}

// lookupSeed performs parallel A and AAAA lookups of host and unions the
// results.
func lookupSeed(ctx context.Context, resolver *net.Resolver, host string) ([]net.IP, error) {
	type lookupResult struct {
		ips []net.IP
		err error
	}

	v4c := make(chan lookupResult, 1)
	v6c := make(chan lookupResult, 1)

	go func() {
		ips, err := resolver.LookupIP(ctx, "ip4", host)
		v4c <- lookupResult{ips, err}
	}()
	go func() {
		ips, err := resolver.LookupIP(ctx, "ip6", host)
		v6c <- lookupResult{ips, err}
	}()

	v4, v6 := <-v4c, <-v6c
	if v4.err != nil && v6.err != nil {
		return nil, v4.err
	}
	all := append([]net.IP{}, v4.ips...)
	all = append(all, v6.ips...)
	if len(all) == 0 {
		return nil, fmt.Errorf("addrmgr: %s resolved no addresses", host)
	}
	return all, nil
}

// add inserts addr as a freshly-seen KnownAddress, deduplicating by
// address.
func (am *AddrManager) add(addr PeerAddress) {
	am.mu.Lock()
	defer am.mu.Unlock()

	k := addr.key()
	if _, ok := am.byKey[k]; ok {
		return
	}
	am.byKey[k] = &KnownAddress{
		na: &wire.NetAddress{
			Timestamp: time.Now(),
			Services:  0,
			IP:        addr.IP,
			Port:      addr.Port,
		},
		refs: 1,
	}
	am.order = append(am.order, k)
}

// shuffle randomizes the iteration order of am's addresses using a
// cryptographically adequate source.
func (am *AddrManager) shuffle() {
	am.mu.Lock()
	defer am.mu.Unlock()

	n := len(am.order)
	for i := n - 1; i > 0; i-- {
		j := cryptoRandIntn(i + 1)
		am.order[i], am.order[j] = am.order[j], am.order[i]
	}
}

// cryptoRandIntn returns a cryptographically random integer in [0, n).
func cryptoRandIntn(n int) int {
	if n <= 0 {
		return 0
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing is a fatal platform problem; there is no
		// sane fallback that still gives an unbiased shuffle.
		panic(fmt.Sprintf("addrmgr: crypto/rand unavailable: %v", err))
	}
	v := binary.BigEndian.Uint64(buf[:])
	return int(v % uint64(n))
}

// Len returns the number of distinct addresses known.
func (am *AddrManager) Len() int {
	am.mu.Lock()
	defer am.mu.Unlock()
	return len(am.order)
}

// GetAddress returns the most promising candidate address to dial, or nil
// if every known address has gone bad. The returned address is not removed;
// callers signal outcomes via Attempt/Good/Bad, and since a recent attempt
// heavily downweights an address, repeated calls naturally spread across
// the set.
func (am *AddrManager) GetAddress() *PeerAddress {
	am.mu.Lock()
	defer am.mu.Unlock()

	var best *KnownAddress
	bestChance := -1.0
	for _, k := range am.order {
		ka := am.byKey[k]
		if ka.isBad() {
			continue
		}
		c := ka.chance()
		if c > bestChance {
			bestChance = c
			best = ka
		}
	}
	if best == nil {
		return nil
	}
	return &PeerAddress{IP: best.na.IP, Port: best.na.Port}
}

// Addresses returns a snapshot of every known address in the manager's
// shuffled order. Callers that need exclusive leasing of addresses across
// concurrent sessions (no address in more than one live session at once)
// should pop from this snapshot themselves rather than
// relying on repeated GetAddress calls, since GetAddress is a best-chance
// picker, not a queue.
func (am *AddrManager) Addresses() []PeerAddress {
	am.mu.Lock()
	defer am.mu.Unlock()

	out := make([]PeerAddress, 0, len(am.order))
	for _, k := range am.order {
		ka := am.byKey[k]
		out = append(out, PeerAddress{IP: ka.na.IP, Port: ka.na.Port})
	}
	return out
}

// lookup finds the KnownAddress tracking addr, if any.
func (am *AddrManager) lookup(addr PeerAddress) *KnownAddress {
	return am.byKey[addr.key()]
}

// Attempt records a dial attempt against addr.
func (am *AddrManager) Attempt(addr PeerAddress) {
	am.mu.Lock()
	defer am.mu.Unlock()
	if ka := am.lookup(addr); ka != nil {
		ka.attempts++
		ka.lastattempt = time.Now()
	}
}

// Good records that addr completed the handshake successfully.
func (am *AddrManager) Good(addr PeerAddress) {
	am.mu.Lock()
	defer am.mu.Unlock()
	if ka := am.lookup(addr); ka != nil {
		ka.lastsuccess = time.Now()
		ka.attempts = 0
		ka.tried = true
	}
}

// Bad marks addr as having failed by raising its attempt count to
// maxFailures, which meets both of isBad's attempt thresholds — used when a
// session fails in a way that makes the address clearly unusable (e.g.
// connection refused). isBad still applies its one-minute grace after an
// attempt, and an address that has succeeded before counts as bad only once
// its last success is more than minBadDays old.
func (am *AddrManager) Bad(addr PeerAddress) {
	am.mu.Lock()
	defer am.mu.Unlock()
	if ka := am.lookup(addr); ka != nil {
		ka.attempts = maxFailures
		ka.lastattempt = time.Now()
	}
}
