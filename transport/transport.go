// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package transport opens outbound streams to peer addresses, either
// directly or through a local SOCKS5 proxy.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/btcsuite/go-socks/socks"
)

// log is this package's logger, defaulting to a no-op sink.
var log = btclog.Disabled

// UseLogger sets the package-wide logger used by transport.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// ErrDialTimeout is returned when a dial exceeds its configured deadline,
// surfaced to the peer session as the DialTimeout failure.
var ErrDialTimeout = errors.New("transport: dial timed out")

// Mode identifies which transport a Dialer uses for outbound connections.
type Mode int

const (
	// Direct dials peers with a plain net.Dialer.
	Direct Mode = iota

	// Socks5 dials peers through a local SOCKS5 proxy.
	Socks5
)

func (m Mode) String() string {
	if m == Socks5 {
		return "socks5"
	}
	return "direct"
}

// defaultProxyEndpoints are the local anonymizing-proxy endpoints probed at
// startup: Tor's default SOCKS port and the Tor Browser Bundle's.
var defaultProxyEndpoints = []string{
	"127.0.0.1:9050",
	"127.0.0.1:9150",
}

// probeTimeout bounds how long a single proxy-probe connect attempt may
// take.
const probeTimeout = 300 * time.Millisecond

// ProbeProxy attempts a single non-blocking TCP connect to each of the
// default local proxy endpoints (or endpoints, if non-empty) and returns
// the first one that accepts, or "" if none do.
func ProbeProxy(ctx context.Context, endpoints []string) string {
	if len(endpoints) == 0 {
		endpoints = defaultProxyEndpoints
	}
	for _, addr := range endpoints {
		dialCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		conn, err := (&net.Dialer{}).DialContext(dialCtx, "tcp", addr)
		cancel()
		if err == nil {
			conn.Close()
			log.Infof("transport: local proxy detected at %s", addr)
			return addr
		}
	}
	log.Debugf("transport: no local proxy detected among %v", endpoints)
	return ""
}

// Dialer opens outbound connections according to a fixed Mode, chosen once
// per run.
type Dialer struct {
	Mode      Mode
	ProxyAddr string

	// DialTimeout bounds every individual Dial call.
	DialTimeout time.Duration
}

// NewDirectDialer returns a Dialer that connects directly.
func NewDirectDialer(timeout time.Duration) *Dialer {
	return &Dialer{Mode: Direct, DialTimeout: timeout}
}

// NewSocks5Dialer returns a Dialer that connects through the SOCKS5 proxy
// at proxyAddr.
func NewSocks5Dialer(proxyAddr string, timeout time.Duration) *Dialer {
	return &Dialer{Mode: Socks5, ProxyAddr: proxyAddr, DialTimeout: timeout}
}

// Dial opens a stream to addr ("host:port"). Under Socks5 mode, addr's host
// is dialed as an IP literal when possible, to avoid leaking the peer's
// hostname to a DNS resolver outside the proxy; since callers
// always pass an already-resolved PeerAddress, this is the common case.
func (d *Dialer) Dial(ctx context.Context, addr string) (net.Conn, error) {
	dialCtx := ctx
	var cancel context.CancelFunc
	if d.DialTimeout > 0 {
		dialCtx, cancel = context.WithTimeout(ctx, d.DialTimeout)
		defer cancel()
	}

	switch d.Mode {
	case Direct:
		conn, err := (&net.Dialer{}).DialContext(dialCtx, "tcp", addr)
		if err != nil {
			if dialCtx.Err() != nil {
				return nil, ErrDialTimeout
			}
			return nil, err
		}
		return conn, nil
	case Socks5:
		return d.dialSocks5(dialCtx, addr)
	default:
		return nil, fmt.Errorf("transport: unknown mode %v", d.Mode)
	}
}

// dialSocks5 performs the SOCKS5 no-authentication handshake and CONNECT
// request against d.ProxyAddr.
func (d *Dialer) dialSocks5(ctx context.Context, addr string) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	done := make(chan result, 1)

	go func() {
		proxy := &socks.Proxy{Addr: d.ProxyAddr}
		conn, err := proxy.Dial("tcp", addr)
		done <- result{conn, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("transport: socks5 dial via %s: %w", d.ProxyAddr, r.err)
		}
		return r.conn, nil
	case <-ctx.Done():
		return nil, ErrDialTimeout
	}
}
